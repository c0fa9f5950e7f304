// Package resend implements the Resend Engine of spec.md §4.7: replaying
// the three pending-artifact maps after a reconnect, with per-kind
// terminal-error handling and a bounded number of attempt rounds.
package resend

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	hostsdk "github.com/chronicals/sdk/pkg/hosterr"
	"github.com/chronicals/sdk/pkg/pending"
	"github.com/chronicals/sdk/pkg/ports"
	"github.com/chronicals/sdk/pkg/rpc"
)

// Engine replays pending.Store artifacts over an ports.RPCClient.
type Engine struct {
	rpc               ports.RPCClient
	store             *pending.Store
	logger            *slog.Logger
	retryInterval     time.Duration
	maxResendAttempts int
}

// New builds a resend Engine.
func New(rpcClient ports.RPCClient, store *pending.Store, logger *slog.Logger, retryInterval time.Duration, maxResendAttempts int) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if maxResendAttempts <= 0 {
		maxResendAttempts = 5
	}
	if retryInterval <= 0 {
		retryInterval = time.Second
	}
	return &Engine{rpc: rpcClient, store: store, logger: logger, retryInterval: retryInterval, maxResendAttempts: maxResendAttempts}
}

// ReplayAll replays every kind of pending artifact, per spec.md §4.7. It
// is called once per reconnect (Reconnecting -> Serving transition).
func (e *Engine) ReplayAll(ctx context.Context) {
	e.replayKind(ctx, pending.KindIOCall, rpc.MethodSendIOCall, "transactionId", "ioCall")
	e.replayKind(ctx, pending.KindPage, rpc.MethodSendPage, "pageKey", "page")
	e.replayKind(ctx, pending.KindLoading, rpc.MethodSendLoadingCall, "transactionId", "")
}

// ReplaySubset replays only the given ids under kind — reserved for the
// single-shot adapter per spec.md §4.7's final paragraph.
func (e *Engine) ReplaySubset(ctx context.Context, kind pending.Kind, method, idField, payloadField string, ids []string) {
	for _, id := range ids {
		if a, ok := e.store.Get(kind, id); ok {
			e.replayOne(ctx, kind, method, idField, payloadField, id, a)
		}
	}
}

func (e *Engine) replayKind(ctx context.Context, kind pending.Kind, method, idField, payloadField string) {
	for _, a := range e.store.Snapshot(kind) {
		e.replayOne(ctx, kind, method, idField, payloadField, a.ID, a)
	}
}

func (e *Engine) replayOne(ctx context.Context, kind pending.Kind, method, idField, payloadField string, id string, a pending.Artifact) {
	for attempt := 1; attempt <= e.maxResendAttempts; attempt++ {
		payload := map[string]any{idField: id}
		if payloadField != "" {
			payload[payloadField] = string(a.Payload)
		} else {
			var loading map[string]any
			if json.Unmarshal(a.Payload, &loading) == nil {
				for k, v := range loading {
					payload[k] = v
				}
			}
		}

		_, err := e.rpc.Send(ctx, method, payload, ports.SendOptions{TimeoutFactor: attempt})
		if err == nil {
			// Clear on success or on a terminal {type:"ERROR"} render
			// rejection, per spec.md §4.7 — both end the artifact's life,
			// matching the live SEND_IO_CALL path (pkg/txn/manager.go).
			e.store.Delete(kind, id)
			return
		}

		if hostsdk.IsKind(err, hostsdk.ErrCanceled) || hostsdk.IsKind(err, hostsdk.ErrTransactionClosed) {
			e.store.Delete(kind, id)
			return
		}

		e.store.Bump(kind, id)
		e.logger.Debug("resend attempt failed", "kind", kind, "id", id, "attempt", attempt, "err", err)
		time.Sleep(e.retryInterval * time.Duration(attempt))
	}

	e.logger.Warn("resend exhausted attempts", "kind", kind, "id", id)
}
