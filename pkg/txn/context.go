package txn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chronicals/sdk/pkg/domain"
)

const maxLogChars = 10000

// facade is the subset of Manager that HandlerContext needs to reach back
// into the runtime for auxiliary operations (spec.md §4.8). Keeping it as
// a narrow interface avoids HandlerContext depending on Manager's full
// surface (io-response registry, pending store, RPC client).
type facade interface {
	sendLog(ctx context.Context, transactionID string, index int, data string) error
	sendRedirect(ctx context.Context, transactionID string, props map[string]any) error
	setLoading(transactionID string, state map[string]any)
	notify(ctx context.Context, config any) error
}

// HandlerContext is the `ctx` argument passed to every action handler,
// per spec.md §4.4 step 7. Page handlers receive pkg/page's Context.
type HandlerContext struct {
	ctx          context.Context
	host         facade
	transaction  *domain.Transaction
	User         domain.User
	Params       map[string]any
	Environment  domain.Environment
	Organization domain.Organization
	Action       domain.ActionDefinition

	Loading loadingHandle
}

type loadingHandle struct {
	host          facade
	transactionID string
}

// Set records the current loading state for this transaction and
// pushes it to the orchestrator via SEND_LOADING_CALL.
func (l loadingHandle) Set(state map[string]any) {
	l.host.setLoading(l.transactionID, state)
}

// NewHandlerContext builds the per-invocation handler context.
func NewHandlerContext(ctx context.Context, host facade, txn *domain.Transaction, org domain.Organization, action domain.ActionDefinition) *HandlerContext {
	return &HandlerContext{
		ctx:          ctx,
		host:         host,
		transaction:  txn,
		User:         txn.User,
		Params:       txn.Params,
		Environment:  txn.Environment,
		Organization: org,
		Action:       action,
		Loading:      loadingHandle{host: host, transactionID: txn.TransactionID},
	}
}

// Log formats args the way spec.md §4.8 requires (space-joined, strings
// verbatim, everything else 2-space-indented JSON, "undefined" for nil
// interface values), truncates past maxLogChars, and sends SEND_LOG with
// the transaction's next monotonic index.
func (h *HandlerContext) Log(args ...any) error {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatLogArg(a)
	}
	data := strings.Join(parts, " ")
	if len(data) > maxLogChars {
		data = data[:maxLogChars] + fmt.Sprintf(" ... [truncated, %d characters omitted]", len(data)-maxLogChars)
	}
	index := h.transaction.NextLogIndex()
	return h.host.sendLog(h.ctx, h.transaction.TransactionID, index, data)
}

func formatLogArg(a any) string {
	if a == nil {
		return "undefined"
	}
	if s, ok := a.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", a)
	}
	return string(b)
}

// Redirect sends SEND_REDIRECT for this transaction.
func (h *HandlerContext) Redirect(props map[string]any) error {
	return h.host.sendRedirect(h.ctx, h.transaction.TransactionID, props)
}

// Notify forwards the call to the Manager, which has no notification
// transport and no parent object to delegate to: it always returns a
// FATAL error.
func (h *HandlerContext) Notify(config any) error {
	return h.host.notify(h.ctx, config)
}
