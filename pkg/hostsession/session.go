package hostsession

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chronicals/sdk/internal/config"
	"github.com/chronicals/sdk/internal/metrics"
	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/page"
	"github.com/chronicals/sdk/pkg/pending"
	"github.com/chronicals/sdk/pkg/ports"
	"github.com/chronicals/sdk/pkg/resend"
	"github.com/chronicals/sdk/pkg/rpc"
	"github.com/chronicals/sdk/pkg/txn"
)

// State names the Host Session's lifecycle position, per spec.md §4.6.
type State string

const (
	StateIdle         State = "IDLE"
	StateConnecting   State = "CONNECTING"
	StateInitializing State = "INITIALIZING"
	StateServing      State = "SERVING"
	StateReconnecting State = "RECONNECTING"
	StateDraining     State = "DRAINING"
	StateClosed       State = "CLOSED"
	StateFailed       State = "FAILED"
)

// SDKName/SDKVersion are declared on every INITIALIZE_HOST call.
const (
	SDKName    = "chronicals-go-sdk"
	SDKVersion = "0.1.0"
)

// SocketFactory builds a fresh ports.Socket bound to instanceID. Called
// once on initial connect and again on every reconnect attempt.
type SocketFactory func(instanceID string) ports.Socket

// Session is the Host Session state machine of spec.md §4.6. It owns the
// socket/RPC lifecycle and wires inbound RPCs to the Transaction and Page
// managers, coordinating reconnection and resend on recovery.
type Session struct {
	cfg           config.Config
	socketFactory SocketFactory
	routeLoader   ports.RouteLoader
	locker        ports.DistributedLocker
	logger        *slog.Logger
	metrics       *metrics.Registry

	instanceID string

	mu      sync.Mutex
	state   State
	socket  ports.Socket
	table   *domain.Table
	rootCtx context.Context

	rpc     *rpc.Client
	schemas *rpc.SchemaSet
	txnMgr  *txn.Manager
	pageMgr *page.Manager
	resend  *resend.Engine
	store   *pending.Store

	lastGoodPing atomic.Int64 // unix nanos
	shuttingDown atomic.Bool
	orgKnown     atomic.Bool

	unlock ports.UnlockFunc

	closeCh  chan struct{}
	stopOnce sync.Once

	reinitTimer *time.Timer
}

// Option customizes a Session at construction time.
type Option func(*Session)

// WithLocker installs a distributed locker guarding "at most one active
// socket per instanceId" across horizontally-scaled replicas.
func WithLocker(l ports.DistributedLocker) Option {
	return func(s *Session) { s.locker = l }
}

// WithMetrics installs a metrics.Registry the session records against.
func WithMetrics(m *metrics.Registry) Option {
	return func(s *Session) { s.metrics = m }
}

// New builds an idle Session. Call Listen to connect and start serving.
func New(cfg config.Config, instanceID string, socketFactory SocketFactory, routeLoader ports.RouteLoader, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	schemas := rpc.NewSchemaSet()
	for _, m := range rpc.InboundMethods {
		if err := schemas.Register(m.Name+".input", m.InputSchema); err != nil {
			logger.Error("failed to compile inbound schema", "method", m.Name, "err", err)
		}
	}
	for _, m := range rpc.OutboundMethods {
		if err := schemas.Register(m.Name+".output", m.OutputSchema); err != nil {
			logger.Error("failed to compile outbound schema", "method", m.Name, "err", err)
		}
	}

	rpcClient := rpc.NewClient(cfg.SendTimeout(), schemas)
	store := pending.New()
	table := domain.NewTable()

	s := &Session{
		cfg:           cfg,
		socketFactory: socketFactory,
		routeLoader:   routeLoader,
		logger:        logger,
		instanceID:    instanceID,
		state:         StateIdle,
		rpc:           rpcClient,
		schemas:       schemas,
		store:         store,
		table:         table,
		closeCh:       make(chan struct{}),
	}

	s.txnMgr = txn.New(table, rpcClient, store, logger, s.onHandlerError)
	s.pageMgr = page.New(table, rpcClient, store, logger, cfg.RetryInterval(), s.orgKnown.Load, s.shuttingDown.Load)
	s.resend = resend.New(rpcClient, store, logger, cfg.RetryInterval(), cfg.MaxResendAttempts)

	for _, opt := range opts {
		opt(s)
	}
	s.wireHandlers()
	return s
}

func (s *Session) onHandlerError(err error, route string, action domain.ActionDefinition, params map[string]any, env domain.Environment, user domain.User, org domain.Organization) {
	if s.cfg.OnError != nil {
		s.cfg.OnError(err, route)
	}
	s.logger.Warn("handler error", "route", route, "err", err)
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	s.logger.Debug("host session state transition", "from", prev, "to", next)
}

// State reports the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TransactionCount and PageCount expose the live transaction and page
// counts. SafelyClose's drain check reads the managers' counts directly.
func (s *Session) TransactionCount() int { return s.txnMgr.Count() }
func (s *Session) PageCount() int        { return s.pageMgr.Count() }

func (s *Session) currentSocket() ports.Socket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.socket
}

func (s *Session) setSocket(sock ports.Socket) {
	s.mu.Lock()
	s.socket = sock
	s.mu.Unlock()
	s.rpc.SetSocket(sock)
}

// RPCClient, Store and ResendEngine expose the session's collaborators
// for the single-shot adapter, which drives one request through the same
// dispatch and replay machinery without the reconnect loop.
func (s *Session) RPCClient() *rpc.Client       { return s.rpc }
func (s *Session) Store() *pending.Store        { return s.store }
func (s *Session) ResendEngine() *resend.Engine { return s.resend }
func (s *Session) TxnManager() *txn.Manager     { return s.txnMgr }
func (s *Session) PageManager() *page.Manager   { return s.pageMgr }

// Table returns the currently declared route table, for tooling
// (adapters/mcpdev's list_routes) that inspects a live session.
func (s *Session) Table() *domain.Table { return s.currentTable() }
