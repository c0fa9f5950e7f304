package singleshot

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	hostsdk "github.com/chronicals/sdk/pkg/hosterr"
	"github.com/chronicals/sdk/internal/config"
	"github.com/chronicals/sdk/pkg/hostsession"
	"github.com/chronicals/sdk/pkg/ports"
)

// Adapter serves the single-shot surface of spec.md §6: one connection,
// one request, then close. Each request runs its own hostsession.Session;
// if that session's socket closes unintentionally mid-request, the
// session reconnects in the background and ServeRequest keeps waiting
// until the request completes or ctx is done.
type Adapter struct {
	cfg           config.Config
	socketFactory hostsession.SocketFactory
	routeLoader   ports.RouteLoader
	logger        *slog.Logger
	httpClient    *http.Client
}

// New builds an Adapter sharing the same route table and socket factory
// contract as a persistent hostsession.Session.
func New(cfg config.Config, socketFactory hostsession.SocketFactory, routeLoader ports.RouteLoader, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{cfg: cfg, socketFactory: socketFactory, routeLoader: routeLoader, logger: logger, httpClient: &http.Client{Timeout: cfg.ConnectTimeout() + cfg.SendTimeout()}}
}

// ServeRequest opens one connection, declares routes, waits for the
// orchestrator to drive the transaction or page session tagged with
// requestID to completion, and closes — the "{requestId}" branch of
// spec.md §6's POST / body.
func (a *Adapter) ServeRequest(ctx context.Context, instanceID, requestID string) error {
	sess := hostsession.New(a.cfg, instanceID, a.socketFactory, a.routeLoader, a.logger)
	if err := sess.Listen(ctx); err != nil {
		return err
	}
	defer sess.ImmediatelyClose()
	sess.TxnManager().SetCompleteHTTPRequestDelay(a.cfg.CompleteHTTPRequestDelay())

	errCh := make(chan error, 2)
	go func() { errCh <- sess.TxnManager().AwaitRequest(ctx, requestID) }()
	go func() { errCh <- sess.PageManager().AwaitRequest(ctx, requestID) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return hostsdk.NewError(hostsdk.ErrTimeout, "request "+requestID+" did not complete", ctx.Err())
	}
}

// DeclareHost performs the one-shot POST /api/hosts/declare named by
// spec.md §6 — the "{httpHostId}" branch, which declares routes without
// ever opening a socket.
func (a *Adapter) DeclareHost(ctx context.Context, httpHostID string) (*hostsession.DeclareResponse, error) {
	table, err := a.routeLoader.Load(ctx)
	if err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrFatal, "loading routes", err)
	}
	payload := hostsession.BuildDeclarePayload(table, httpHostID)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrFatal, "encoding declare payload", err)
	}

	url := httpBaseURL(a.cfg.Endpoint) + "/api/hosts/declare"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrFatal, "building declare request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-instance-id", httpHostID)
	if a.cfg.APIKey != "" {
		req.Header.Set("x-api-key", a.cfg.APIKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrTimeout, "declare request failed", err)
	}
	defer resp.Body.Close()

	var out hostsession.DeclareResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrFatal, "decoding declare response", err)
	}
	if resp.StatusCode >= 400 || out.Type == "error" {
		return &out, hostsdk.NewError(hostsdk.ErrFatal, "declare rejected: "+out.Message, nil)
	}
	return &out, nil
}

// httpBaseURL derives the HTTP base URL from a WebSocket endpoint, per
// spec.md §6: same host, scheme ws->http (wss->https), empty path.
func httpBaseURL(wsEndpoint string) string {
	base := wsEndpoint
	base = strings.Replace(base, "wss://", "https://", 1)
	base = strings.Replace(base, "ws://", "http://", 1)
	if idx := strings.Index(base[strings.Index(base, "://")+3:], "/"); idx >= 0 {
		base = base[:strings.Index(base, "://")+3+idx]
	}
	return base
}
