package hostsession

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	hostsdk "github.com/chronicals/sdk/pkg/hosterr"
	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/ports"
	"github.com/chronicals/sdk/pkg/rpc"
)

// sendWithRetry wraps rpc.Client.Send with the outer retry loop of
// spec.md §4.9: attemptNumber scales both the send timeout and, on
// TIMEOUT, the sleep before the next try. Any other error kind rethrows
// immediately; exhaustion fails MAX_RETRIES.
func (s *Session) sendWithRetry(ctx context.Context, method string, input any) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxResendAttempts; attempt++ {
		out, err := s.rpc.Send(ctx, method, input, ports.SendOptions{TimeoutFactor: attempt})
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !hostsdk.IsKind(err, hostsdk.ErrTimeout) {
			return nil, err
		}
		select {
		case <-time.After(s.cfg.RetryInterval() * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, hostsdk.NewError(hostsdk.ErrTimeout, "send "+method+" canceled while backing off", ctx.Err())
		}
	}
	return nil, hostsdk.NewError(hostsdk.ErrMaxRetries, "exhausted retries sending "+method, lastErr)
}

// DeclarePayload is the body of INITIALIZE_HOST and of the single-shot
// adapter's HTTP declare call, per spec.md §4.6/§6. Exported so
// pkg/singleshot can build the same shape for its non-socket declare path.
type DeclarePayload struct {
	Actions    []domain.ActionDefinition `json:"actions"`
	Groups     []domain.ActionGroup      `json:"groups"`
	Pages      []domain.PageDefinition   `json:"pages"`
	SDKName    string                    `json:"sdkName"`
	SDKVersion string                    `json:"sdkVersion"`
	RequestID  string                    `json:"requestId,omitempty"`
	Timestamp  int64                     `json:"timestamp"`
}

// DeclareResponse is INITIALIZE_HOST's (and the HTTP declare call's)
// response shape.
type DeclareResponse struct {
	Type         string              `json:"type"`
	Organization domain.Organization `json:"organization"`
	Environment  domain.Environment  `json:"environment"`
	DashboardURL string              `json:"dashboardUrl,omitempty"`
	InvalidSlugs []string            `json:"invalidSlugs"`
	Warnings     []string            `json:"warnings"`
	SDKAlert     string              `json:"sdkAlert,omitempty"`
	Message      string              `json:"message,omitempty"`
}

// BuildDeclarePayload walks table and buckets each route into the three
// lists INITIALIZE_HOST reports, per spec.md §4.6/§6.
func BuildDeclarePayload(table *domain.Table, requestID string) DeclarePayload {
	p := DeclarePayload{SDKName: SDKName, SDKVersion: SDKVersion, RequestID: requestID, Timestamp: time.Now().UnixMilli()}
	for fqSlug, r := range table.Routes {
		switch r.Kind {
		case domain.RouteKindAction:
			p.Actions = append(p.Actions, domain.ActionDefinition{
				Slug:        r.Slug,
				GroupSlug:   r.GroupSlug,
				Description: r.Description,
				Access:      r.Access,
				Unlisted:    r.Flags.Unlisted,
			})
		case domain.RouteKindPage:
			if r.Handler == nil {
				p.Groups = append(p.Groups, domain.ActionGroup{Slug: r.Slug, Description: r.Description})
			} else {
				p.Pages = append(p.Pages, domain.PageDefinition{
					Slug:        r.Slug,
					Name:        fqSlug,
					Description: r.Description,
					HasHandler:  true,
					Unlisted:    r.Flags.Unlisted,
					Access:      r.Access,
				})
			}
		}
	}
	return p
}

// declareHost sends INITIALIZE_HOST for table and applies its response,
// per spec.md §4.6's Initializing row and the fatal-on-all-invalid-slugs
// rule of §6/scenario 6. initial distinguishes the first declare (where
// an all-invalid table is fatal) from a later re-declare (warning only).
func (s *Session) declareHost(ctx context.Context, table *domain.Table, initial bool) error {
	payload := BuildDeclarePayload(table, "")
	raw, err := s.sendWithRetry(ctx, rpc.MethodInitializeHost, payload)
	if err != nil {
		return hostsdk.NewError(hostsdk.ErrFatal, "INITIALIZE_HOST failed", err)
	}

	var resp DeclareResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return hostsdk.NewError(hostsdk.ErrFatal, "decoding INITIALIZE_HOST response", err)
	}
	if resp.Type == "error" {
		return hostsdk.NewError(hostsdk.ErrFatal, "orchestrator rejected declare: "+resp.Message, nil)
	}

	total := len(payload.Actions) + len(payload.Pages)
	allInvalid := total > 0 && len(resp.InvalidSlugs) == total
	if initial && allInvalid {
		return hostsdk.NewError(hostsdk.ErrFatal, fmt.Sprintf("all %d declared slugs are invalid: %v", total, resp.InvalidSlugs), nil)
	}
	if len(resp.InvalidSlugs) > 0 {
		s.logger.Warn("orchestrator reported invalid slugs", "invalidSlugs", resp.InvalidSlugs)
	}
	for _, w := range resp.Warnings {
		s.logger.Warn("orchestrator warning", "message", w)
	}
	if resp.SDKAlert != "" {
		s.logger.Warn("sdk alert", "message", resp.SDKAlert)
	}

	s.txnMgr.SetOrganization(resp.Organization)
	s.orgKnown.Store(true)
	return nil
}
