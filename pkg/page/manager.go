package page

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	hostsdk "github.com/chronicals/sdk/pkg/hosterr"
	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/pending"
	"github.com/chronicals/sdk/pkg/ports"
	"github.com/chronicals/sdk/pkg/rpc"
)

// MaxPageRetries bounds sendPage's retry loop, per spec.md §4.5.
const MaxPageRetries = 5

// Manager is the Page Manager of spec.md §4.5.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*domain.PageSession
	coal     map[string]*coalescer

	routes        *domain.Table
	rpc           ports.RPCClient
	pending       *pending.Store
	logger        *slog.Logger
	retryInterval time.Duration

	orgKnown     func() bool
	shuttingDown func() bool

	requestWaiters map[string]chan struct{}
}

// New builds a page Manager. orgKnown reports whether INITIALIZE_HOST has
// resolved an organization yet (spec.md §4.5 step 1); shuttingDown
// reports the Host Session's Draining/Closed state.
func New(routes *domain.Table, rpcClient ports.RPCClient, store *pending.Store, logger *slog.Logger, retryInterval time.Duration, orgKnown, shuttingDown func() bool) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if retryInterval <= 0 {
		retryInterval = time.Second
	}
	return &Manager{
		sessions:       map[string]*domain.PageSession{},
		coal:           map[string]*coalescer{},
		routes:         routes,
		rpc:            rpcClient,
		pending:        store,
		logger:         logger,
		retryInterval:  retryInterval,
		orgKnown:       orgKnown,
		shuttingDown:   shuttingDown,
		requestWaiters: map[string]chan struct{}{},
	}
}

// AwaitRequest blocks until the page session carrying requestID closes,
// used by the single-shot adapter (spec.md §4.5's "resolve any
// single-shot request callback").
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
	ch, ok := m.requestWaiters[requestID]
	m.mu.Unlock()
	if ok {
		close(ch)
	}
}

// Count returns the number of open page sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SetRoutes rebinds the route table, e.g. after a filesystem watcher
// fires and the Host Session redeclares pages to the orchestrator.
func (m *Manager) SetRoutes(routes *domain.Table) {
	m.mu.Lock()
	m.routes = routes
	m.mu.Unlock()
}

type openPageWire struct {
	PageKey string `json:"pageKey"`
	Page    struct {
		Slug string `json:"slug"`
	} `json:"page"`
	User        domain.User        `json:"user"`
	Environment domain.Environment `json:"environment"`
	Params      map[string]any     `json:"params"`
	ParamsMeta  map[string]any     `json:"paramsMeta"`
	RequestID   string             `json:"requestId,omitempty"`
}

// HandleOpenPage is wired as the rpc.Client handler for OPEN_PAGE, per
// spec.md §4.5 steps 1-6.
func (m *Manager) HandleOpenPage(ctx context.Context, raw []byte) (any, error) {
	var in openPageWire
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrSchemaInvalid, "decoding OPEN_PAGE", err)
	}

	if (m.shuttingDown != nil && m.shuttingDown()) || (m.orgKnown != nil && !m.orgKnown()) {
		return map[string]any{"type": "ERROR", "message": "host is not ready"}, nil
	}

	m.mu.Lock()
	if _, exists := m.sessions[in.PageKey]; exists {
		m.mu.Unlock()
		return map[string]any{"type": "ERROR", "message": "page already open"}, nil
	}

	route, ok := m.routes.Lookup(in.Page.Slug)
	if !ok || route.Handler == nil {
		m.mu.Unlock()
		return map[string]any{"type": "ERROR", "message": "unknown page: " + in.Page.Slug}, nil
	}

	session := &domain.PageSession{
		PageKey:          in.PageKey,
		Slug:             in.Page.Slug,
		User:             in.User,
		Environment:      in.Environment,
		Params:           in.Params,
		ParamsMeta:       in.ParamsMeta,
		LoadingState:     map[string]any{},
		InlineActionKeys: map[string]struct{}{},
		RequestID:        in.RequestID,
	}
	m.sessions[in.PageKey] = session
	m.coal[in.PageKey] = newCoalescer(func(ctx context.Context) error { return m.sendPage(ctx, in.PageKey) })
	m.mu.Unlock()

	go m.render(context.Background(), route, session)

	return map[string]any{"type": "SUCCESS", "pageKey": in.PageKey}, nil
}

func (m *Manager) render(ctx context.Context, route *domain.Route, session *domain.PageSession) {
	pctx := &Context{host: m, session: session, User: session.User, Params: session.Params, Environment: session.Environment}
	layout, err := route.Handler(newPageIOClient(m, session.PageKey), pctx)
	if err != nil {
		m.applyLayout(session.PageKey, &domain.Layout{Errors: []domain.LayoutError{{Message: err.Error()}}})
		return
	}

	l, ok := layout.(*domain.Layout)
	if !ok || l == nil {
		l = &domain.Layout{}
	}
	m.applyLayout(session.PageKey, l)

	if !l.Title.IsImmediate() {
		go m.resolveEventualField(ctx, session.PageKey, "title", l.Title.Resolve)
	}
	if !l.Description.IsImmediate() {
		go m.resolveEventualField(ctx, session.PageKey, "description", l.Description.Resolve)
	}
}

func (m *Manager) resolveEventualField(ctx context.Context, pageKey, layoutKey string, resolve func(context.Context) (string, error)) {
	v, err := resolve(ctx)
	m.mu.Lock()
	session, ok := m.sessions[pageKey]
	if !ok || session.Current == nil {
		m.mu.Unlock()
		return
	}
	// session.Current is shared with sendPage's snapshot and the sibling
	// title/description resolver goroutine, so the read-modify-write
	// stays under m.mu.
	if err != nil {
		session.Current.Errors = append(session.Current.Errors, domain.LayoutError{LayoutKey: layoutKey, Message: err.Error()})
	} else if layoutKey == "title" {
		session.Current.Title = domain.Immediate(v)
	} else {
		session.Current.Description = domain.Immediate(v)
	}
	m.mu.Unlock()
	m.scheduleSendPage(pageKey)
}

func (m *Manager) applyLayout(pageKey string, l *domain.Layout) {
	m.mu.Lock()
	session, ok := m.sessions[pageKey]
	if ok {
		session.Current = l
	}
	m.mu.Unlock()
	if ok {
		m.scheduleSendPage(pageKey)
	}
}

// scheduleSendPage is the entry point every layout mutation (initial
// render, resolved eventual, child re-render) funnels through.
func (m *Manager) scheduleSendPage(pageKey string) {
	m.mu.Lock()
	c, ok := m.coal[pageKey]
	m.mu.Unlock()
	if ok {
		c.Schedule()
	}
}

func toWire(l *domain.Layout, ctx context.Context) domain.WirePage {
	wire := domain.WirePage{Kind: "BASIC", Errors: l.Errors}
	if l.Errors == nil {
		wire.Errors = []domain.LayoutError{}
	}
	if title, err := l.Title.Resolve(ctx); err == nil {
		wire.Title = title
	}
	if desc, err := l.Description.Resolve(ctx); err == nil {
		wire.Description = desc
	}
	wire.MenuItems = l.MenuItems
	children := make([]string, 0, len(l.Children))
	for slug := range l.Children {
		children = append(children, slug)
	}
	sort.Strings(children)
	wire.Children = children
	return wire
}

// snapshotLayout copies l's fields that resolveEventualField mutates
// concurrently, so sendPage can build a wire payload outside m.mu without
// racing the resolver goroutines.
func snapshotLayout(l *domain.Layout) *domain.Layout {
	cp := *l
	cp.Errors = append([]domain.LayoutError(nil), l.Errors...)
	return &cp
}

// sendPage serializes the session's current Layout and attempts
// SEND_PAGE up to MaxPageRetries times, per spec.md §4.5.
func (m *Manager) sendPage(ctx context.Context, pageKey string) error {
	m.mu.Lock()
	session, ok := m.sessions[pageKey]
	if !ok || session.Current == nil {
		m.mu.Unlock()
		return nil
	}
	snapshot := snapshotLayout(session.Current)
	m.mu.Unlock()

	wire := toWire(snapshot, ctx)
	body, err := json.Marshal(wire)
	if err != nil {
		return err
	}
	m.pending.Set(pending.KindPage, pageKey, body, 1)

	var lastErr error
	for attempt := 1; attempt <= MaxPageRetries; attempt++ {
		_, err := m.rpc.Send(ctx, rpc.MethodSendPage, map[string]any{
			"pageKey": pageKey,
			"page":    string(body),
		}, ports.SendOptions{TimeoutFactor: attempt})
		if err == nil {
			m.pending.Delete(pending.KindPage, pageKey)
			return nil
		}
		lastErr = err
		time.Sleep(m.retryInterval)
	}

	m.logger.Debug("sendPage exhausted retries", "pageKey", pageKey, "err", lastErr)
	return hostsdk.NewError(hostsdk.ErrMaxRetries, pageKey, lastErr)
}

// HandleClosePage is wired as the rpc.Client handler for CLOSE_PAGE, per
// spec.md §4.5's final paragraph.
func (m *Manager) HandleClosePage(ctx context.Context, raw []byte) (any, error) {
	var in struct {
		PageKey string `json:"pageKey"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, hostsdk.NewError(hostsdk.ErrSchemaInvalid, "decoding CLOSE_PAGE", err)
	}

	m.mu.Lock()
	session, hadSession := m.sessions[in.PageKey]
	delete(m.sessions, in.PageKey)
	delete(m.coal, in.PageKey)
	m.mu.Unlock()

	m.pending.Delete(pending.KindPage, in.PageKey)
	m.pending.Delete(pending.KindLoading, in.PageKey)
	if hadSession {
		m.resolveRequest(session.RequestID)
	}
	return nil, nil
}

func (m *Manager) setLoading(pageKey string, state map[string]any) {
	body, err := json.Marshal(state)
	if err != nil {
		return
	}
	m.pending.Set(pending.KindLoading, pageKey, body, 1)
	payload := map[string]any{"transactionId": pageKey}
	for k, v := range state {
		payload[k] = v
	}
	_, _ = m.rpc.Send(context.Background(), rpc.MethodSendLoadingCall, payload, ports.SendOptions{})
}
