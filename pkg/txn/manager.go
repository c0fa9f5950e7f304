package txn

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	hostsdk "github.com/chronicals/sdk/pkg/hosterr"
	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/pending"
	"github.com/chronicals/sdk/pkg/ports"
	"github.com/chronicals/sdk/pkg/rpc"
	"github.com/chronicals/sdk/pkg/superjson"
)

// OnErrorHook is invoked before a handler failure is turned into a
// FAILURE envelope, per spec.md §7.
type OnErrorHook func(err error, route string, action domain.ActionDefinition, params map[string]any, env domain.Environment, user domain.User, org domain.Organization)

// Manager is the Transaction Manager of spec.md §4.4.
type Manager struct {
	mu      sync.Mutex
	txns    map[string]*domain.Transaction
	waiters map[string]chan ioOutcome

	routes  *domain.Table
	rpc     ports.RPCClient
	pending *pending.Store
	logger  *slog.Logger
	onError OnErrorHook

	org          atomic.Pointer[domain.Organization]
	shuttingDown atomic.Bool

	requestWaiters          map[string]chan struct{}
	completeHTTPRequestDelay time.Duration
}

type ioOutcome struct {
	value string
	err   error
}

// New builds a Manager bound to a route table, RPC client, and pending
// artifact store.
func New(routes *domain.Table, rpcClient ports.RPCClient, store *pending.Store, logger *slog.Logger, onError OnErrorHook) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		txns:           map[string]*domain.Transaction{},
		waiters:        map[string]chan ioOutcome{},
		routes:         routes,
		rpc:            rpcClient,
		pending:        store,
		logger:         logger,
		onError:        onError,
		requestWaiters: map[string]chan struct{}{},
	}
	return m
}

// SetCompleteHTTPRequestDelay configures how long, after
// MARK_TRANSACTION_COMPLETE is sent, AwaitRequest waits before returning
// — per spec.md §4.4 step 9, "to allow the orchestrator's ack round trip"
// in single-shot mode. Zero (the default) resolves immediately.
func (m *Manager) SetCompleteHTTPRequestDelay(d time.Duration) {
	m.mu.Lock()
	m.completeHTTPRequestDelay = d
	m.mu.Unlock()
}

// AwaitRequest blocks until the transaction carrying requestID completes,
// used by the single-shot adapter to know when it may close its one
// connection. If no transaction carrying requestID completes before ctx
// is done, it returns a TIMEOUT error once ctx is done.
func (m *Manager) AwaitRequest(ctx context.Context, requestID string) error {
	ch := make(chan struct{})
	m.mu.Lock()
	m.requestWaiters[requestID] = ch
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.requestWaiters, requestID)
		m.mu.Unlock()
	}()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return hostsdk.NewError(hostsdk.ErrTimeout, "awaiting requestId "+requestID, ctx.Err())
	}
}

func (m *Manager) resolveRequest(requestID string) {
	if requestID == "" {
		return
	}
	m.mu.Lock()
	delay := m.completeHTTPRequestDelay
	ch, ok := m.requestWaiters[requestID]
	if ok {
		delete(m.requestWaiters, requestID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		close(ch)
	}()
}

// SetOrganization threads the organization resolved from INITIALIZE_HOST
// into every subsequent handler context, per spec.md §3
// (domain.Organization "resolved once...").
func (m *Manager) SetOrganization(org domain.Organization) {
	m.org.Store(&org)
}

func (m *Manager) organization() domain.Organization {
	if p := m.org.Load(); p != nil {
		return *p
	}
	return domain.Organization{}
}

// SetShuttingDown toggles whether new transactions are accepted, per
// spec.md §4.4 step 1 / §5 Draining semantics.
func (m *Manager) SetShuttingDown(v bool) {
	m.shuttingDown.Store(v)
}

// SetRoutes rebinds the route table, e.g. after a filesystem watcher
// fires and the Host Session redeclares actions to the orchestrator.
func (m *Manager) SetRoutes(routes *domain.Table) {
	m.mu.Lock()
	m.routes = routes
	m.mu.Unlock()
}

// Count returns the number of live transactions, used by the Host
// Session's SafelyClose to detect drain completion.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txns)
}

type startTransactionWire struct {
	TransactionID string `json:"transactionId"`
	Action        struct {
		Slug string `json:"slug"`
	} `json:"action"`
	User                       domain.User          `json:"user"`
	Environment                domain.Environment   `json:"environment"`
	Params                     map[string]any       `json:"params"`
	ParamsMeta                 map[string]string    `json:"paramsMeta"`
	DisplayResolvesImmediately bool                 `json:"displayResolvesImmediately"`
	RequestID                  string               `json:"requestId,omitempty"`
}

// HandleStartTransaction is wired as the rpc.Client handler for
// START_TRANSACTION. It performs the synchronous admission checks of
// spec.md §4.4 steps 1-3 and, if admitted, runs the rest of the flow in
// its own goroutine since handler execution suspends on I/O.
func (m *Manager) HandleStartTransaction(ctx context.Context, raw []byte) (any, error) {
	var in startTransactionWire
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrSchemaInvalid, "decoding START_TRANSACTION", err)
	}

	if m.shuttingDown.Load() {
		return nil, nil // step 1: drop
	}

	m.mu.Lock()
	if _, exists := m.txns[in.TransactionID]; exists {
		m.mu.Unlock()
		return nil, nil // step 2: idempotent duplicate
	}

	route, ok := m.routes.Lookup(in.Action.Slug)
	if !ok || route.Handler == nil {
		m.mu.Unlock()
		m.logger.Warn("start_transaction: unknown action", "slug", in.Action.Slug, "transactionId", in.TransactionID)
		return nil, nil // step 3: log-and-drop
	}

	tx := &domain.Transaction{
		TransactionID:              in.TransactionID,
		Slug:                       in.Action.Slug,
		User:                       in.User,
		Environment:                in.Environment,
		Params:                     in.Params,
		ParamsMeta:                 toAnyMeta(in.ParamsMeta),
		DisplayResolvesImmediately: in.DisplayResolvesImmediately,
		LoadingState:               map[string]any{},
		InlineActionKeys:           map[string]struct{}{},
		RequestID:                  in.RequestID,
	}
	m.txns[in.TransactionID] = tx
	m.mu.Unlock()

	go m.run(context.Background(), route, tx)
	return nil, nil
}

func toAnyMeta(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func toStringMeta(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// run executes steps 4-10 of spec.md §4.4 for a single admitted
// transaction.
func (m *Manager) run(ctx context.Context, route *domain.Route, tx *domain.Transaction) {
	io := newIOClient(m, tx.TransactionID)

	deserialized, err := superjson.Deserialize(superjson.Envelope{
		JSON: mustMarshal(tx.Params),
		Meta: toStringMeta(tx.ParamsMeta),
	})
	if err == nil {
		if asMap, ok := deserialized.(map[string]any); ok {
			tx.Params = asMap
		}
	}

	action := domain.ActionDefinition{Slug: route.Slug, GroupSlug: route.GroupSlug, Description: route.Description, Access: route.Access, Unlisted: route.Flags.Unlisted}
	handlerCtx := NewHandlerContext(ctx, m, tx, m.organization(), action)

	result, handlerErr := route.Handler(io, handlerCtx)

	if handlerErr != nil && hostsdk.IsKind(handlerErr, hostsdk.ErrCanceled) {
		// spec.md §4.4 step 8: a CANCELED I/O failure means the peer
		// already tore the transaction down; do not complete it again.
		m.resolveRequest(tx.RequestID)
		return
	}

	envelope := m.buildEnvelope(tx, action, result, handlerErr)
	m.sendCompletion(ctx, tx, envelope)
	m.resolveRequest(tx.RequestID)

	if !tx.DisplayResolvesImmediately {
		m.closeTransaction(tx.TransactionID)
	}
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func (m *Manager) buildEnvelope(tx *domain.Transaction, action domain.ActionDefinition, result any, handlerErr error) domain.CompletionEnvelope {
	if handlerErr != nil {
		if m.onError != nil {
			m.onError(handlerErr, tx.Slug, action, tx.Params, tx.Environment, tx.User, m.organization())
		}
		fail := domain.FailureData{Error: fmt.Sprintf("%T", handlerErr), Message: handlerErr.Error()}
		if unwrapped := stdErrorsUnwrap(handlerErr); unwrapped != nil {
			fail.Cause = unwrapped.Error()
		}
		return domain.CompletionEnvelope{SchemaVersion: domain.SchemaVersion, Status: domain.ResultFailure, Data: fail}
	}
	env, err := superjson.Serialize(result)
	var data any = result
	var meta any
	if err == nil {
		var decoded any
		_ = json.Unmarshal([]byte(env.JSON), &decoded)
		data = decoded
		if len(env.Meta) > 0 {
			meta = env.Meta
		}
	}
	return domain.CompletionEnvelope{SchemaVersion: domain.SchemaVersion, Status: domain.ResultSuccess, Data: data, Meta: meta}
}

func stdErrorsUnwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func (m *Manager) sendCompletion(ctx context.Context, tx *domain.Transaction, env domain.CompletionEnvelope) {
	body, err := json.Marshal(env)
	if err != nil {
		m.logger.Error("marshal completion envelope", "err", err, "transactionId", tx.TransactionID)
		return
	}
	payload := map[string]any{
		"transactionId": tx.TransactionID,
		"resultStatus":  string(env.Status),
		"result":        string(body),
	}
	if _, err := m.rpc.Send(ctx, rpc.MethodMarkTransactionComplete, payload, ports.SendOptions{}); err != nil {
		m.logger.Error("MARK_TRANSACTION_COMPLETE failed", "err", err, "transactionId", tx.TransactionID)
	}
}

// closeTransaction implements spec.md §4.4 step 10 / §4.5's CLOSE_PAGE
// analogue for transactions: drop the io-response handler, pending
// entries, and loading state.
func (m *Manager) closeTransaction(transactionID string) {
	m.mu.Lock()
	tx, hadTx := m.txns[transactionID]
	delete(m.txns, transactionID)
	waiter, hasWaiter := m.waiters[transactionID]
	delete(m.waiters, transactionID)
	m.mu.Unlock()

	if hadTx {
		m.resolveRequest(tx.RequestID)
	}

	if hasWaiter {
		// Per spec.md §5: a prompt already pending when CLOSE_TRANSACTION
		// arrives rejects CANCELED, not TRANSACTION_CLOSED (that kind is
		// reserved for io-calls attempted after close).
		waiter <- ioOutcome{err: hostsdk.NewError(hostsdk.ErrCanceled, transactionID, nil)}
	}
	m.pending.Delete(pending.KindIOCall, transactionID)
	m.pending.Delete(pending.KindLoading, transactionID)
}

// HandleCloseTransaction is wired as the rpc.Client handler for
// CLOSE_TRANSACTION.
func (m *Manager) HandleCloseTransaction(ctx context.Context, raw []byte) (any, error) {
	var in struct {
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrSchemaInvalid, "decoding CLOSE_TRANSACTION", err)
	}
	m.closeTransaction(in.TransactionID)
	return nil, nil
}

// HandleIOResponse is wired as the rpc.Client handler for IO_RESPONSE.
// value is JSON containing at least {transactionId, ...}; the host
// routes the whole raw value to whichever io.* call is awaiting it.
func (m *Manager) HandleIOResponse(ctx context.Context, raw []byte) (any, error) {
	var in struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrSchemaInvalid, "decoding IO_RESPONSE", err)
	}
	var envelope struct {
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal([]byte(in.Value), &envelope); err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrSchemaInvalid, "decoding IO_RESPONSE value", err)
	}

	m.mu.Lock()
	waiter, ok := m.waiters[envelope.TransactionID]
	delete(m.waiters, envelope.TransactionID)
	m.mu.Unlock()

	if ok {
		waiter <- ioOutcome{value: in.Value}
	}
	return nil, nil
}

// sendIOCall implements ioHost for ioClient: it records the pending
// artifact, sends SEND_IO_CALL, and clears the corresponding pending
// loading state on success (spec.md §4.4 step 4).
func (m *Manager) sendIOCall(ctx context.Context, transactionID, instruction string) error {
	m.mu.Lock()
	_, live := m.txns[transactionID]
	m.mu.Unlock()
	if !live {
		return hostsdk.NewError(hostsdk.ErrTransactionClosed, transactionID, nil)
	}

	m.pending.Set(pending.KindIOCall, transactionID, []byte(instruction), 1)

	resp, err := m.rpc.Send(ctx, rpc.MethodSendIOCall, map[string]any{
		"transactionId": transactionID,
		"ioCall":        instruction,
	}, ports.SendOptions{})
	if err != nil {
		return err
	}

	var ack struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(resp, &ack)
	if ack.Type == "ERROR" {
		m.pending.Delete(pending.KindIOCall, transactionID)
		return hostsdk.NewError(hostsdk.ErrRenderError, transactionID, nil)
	}

	m.pending.Delete(pending.KindLoading, transactionID)
	return nil
}

// awaitIOResponse implements ioHost: block until IO_RESPONSE, CANCELED
// (via CLOSE_TRANSACTION), or the caller's context is done.
func (m *Manager) awaitIOResponse(ctx context.Context, transactionID string) (string, error) {
	ch := make(chan ioOutcome, 1)
	m.mu.Lock()
	m.waiters[transactionID] = ch
	m.mu.Unlock()

	select {
	case out := <-ch:
		m.pending.Delete(pending.KindIOCall, transactionID)
		return out.value, out.err
	case <-ctx.Done():
		return "", hostsdk.NewError(hostsdk.ErrCanceled, transactionID, ctx.Err())
	}
}

func (m *Manager) registerInlineAction(transactionID, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx, ok := m.txns[transactionID]; ok {
		tx.InlineActionKeys[key] = struct{}{}
	}
}

// sendLog implements facade for HandlerContext, per spec.md §4.8.
func (m *Manager) sendLog(ctx context.Context, transactionID string, index int, data string) error {
	_, err := m.rpc.Send(ctx, rpc.MethodSendLog, map[string]any{
		"transactionId": transactionID,
		"data":          data,
		"index":         index,
		"timestamp":     time.Now().UnixMilli(),
	}, ports.SendOptions{})
	return err
}

// sendRedirect implements facade for HandlerContext.
func (m *Manager) sendRedirect(ctx context.Context, transactionID string, props map[string]any) error {
	payload := map[string]any{"transactionId": transactionID}
	for k, v := range props {
		payload[k] = v
	}
	_, err := m.rpc.Send(ctx, rpc.MethodSendRedirect, payload, ports.SendOptions{})
	return err
}

// setLoading implements facade for HandlerContext: it records the
// loading state in the pending store and pushes SEND_LOADING_CALL.
func (m *Manager) setLoading(transactionID string, state map[string]any) {
	m.mu.Lock()
	if tx, ok := m.txns[transactionID]; ok {
		tx.LoadingState = state
	}
	m.mu.Unlock()

	body, err := json.Marshal(state)
	if err != nil {
		return
	}
	m.pending.Set(pending.KindLoading, transactionID, body, 1)

	payload := map[string]any{"transactionId": transactionID}
	for k, v := range state {
		payload[k] = v
	}
	_, _ = m.rpc.Send(context.Background(), rpc.MethodSendLoadingCall, payload, ports.SendOptions{})
}

// notify implements facade for HandlerContext. The core has no
// notification transport and no parent object to delegate to, so it
// always returns a FATAL error.
func (m *Manager) notify(ctx context.Context, config any) error {
	return hostsdk.NewError(hostsdk.ErrFatal, "notify is not implemented by the core runtime; wire a parent Chronicals object", nil)
}

var _ facade = (*Manager)(nil)
