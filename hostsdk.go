package hostsdk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/chronicals/sdk/internal/config"
	"github.com/chronicals/sdk/internal/logging"
	"github.com/chronicals/sdk/internal/metrics"
	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/hostsession"
	"github.com/chronicals/sdk/pkg/ports"
	"github.com/chronicals/sdk/pkg/routes"
	"github.com/chronicals/sdk/pkg/shutdown"
	"github.com/chronicals/sdk/pkg/singleshot"
	"github.com/chronicals/sdk/pkg/transport"
)

// Host is the high-level entry point for the SDK. It wraps the internal
// Host Session state machine and provides a simplified API for embedding
// programs to declare actions and pages and drive their lifecycle,
// mirroring trellis.Engine's role as the library's public facade over
// its internal runtime.
type Host struct {
	cfg    config.Config
	logger *slog.Logger

	instanceID string
	builder    *routes.Builder
	locker     ports.DistributedLocker
	metrics    *metrics.Registry

	session *hostsession.Session
	coord   *shutdown.Coordinator
}

// Option customizes a Host at construction time.
type Option func(*Host)

// WithLogger sets a custom structured logger for the Host and everything
// it wires together.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) { h.logger = logger }
}

// WithInstanceID overrides the random instanceId New otherwise generates.
// Multiple replicas of the same host process should each get a distinct,
// stable instanceId (spec.md §4.6's "at most one active socket per
// instanceId").
func WithInstanceID(id string) Option {
	return func(h *Host) { h.instanceID = id }
}

// WithDistributedLocker installs a ports.DistributedLocker (e.g.
// adapters/redisdlock.Locker) guarding that per-instanceId exclusivity
// across horizontally-scaled replicas.
func WithDistributedLocker(l ports.DistributedLocker) Option {
	return func(h *Host) { h.locker = l }
}

// WithMetrics installs a metrics.Registry the Host records connection
// metrics (reconnects, ping latency) against, instead of the private
// registry New creates. The transaction, page-send and resend collectors
// are registered but not updated by the runtime.
func WithMetrics(m *metrics.Registry) Option {
	return func(h *Host) { h.metrics = m }
}

// New builds a Host from cfg. Register actions and pages with
// RegisterAction/RegisterPage before calling Serve.
func New(cfg config.Config, opts ...Option) (*Host, error) {
	h := &Host{
		cfg:        cfg,
		instanceID: uuid.NewString(),
		builder:    routes.NewBuilder(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.New(cfg.LogLevel)
	}
	if h.metrics == nil {
		h.metrics = metrics.New()
	}
	return h, nil
}

// RegisterAction attaches handler under fqSlug, declared to the
// orchestrator as a single-invocation Action route.
func (h *Host) RegisterAction(fqSlug string, r domain.Route, handler domain.Handler) error {
	r.Handler = handler
	return h.builder.Action(fqSlug, r)
}

// RegisterPage attaches handler under fqSlug, declared to the
// orchestrator as a long-lived Page route. handler may be nil for a page
// that only groups child actions.
func (h *Host) RegisterPage(fqSlug string, r domain.Route, handler domain.Handler) error {
	r.Handler = handler
	return h.builder.Page(fqSlug, r)
}

// Routes returns the route table accumulated so far, for inspection
// before Serve is called.
func (h *Host) Routes() *domain.Table { return h.builder.Table() }

func (h *Host) socketFactory(instanceID string) ports.Socket {
	return transport.New(transport.Config{
		Endpoint:       h.cfg.Endpoint,
		APIKey:         h.cfg.APIKey,
		InstanceID:     instanceID,
		ConnectTimeout: h.cfg.ConnectTimeout(),
		SendTimeout:    h.cfg.SendTimeout(),
		PingTimeout:    h.cfg.PingTimeout(),
	})
}

// Serve connects to the orchestrator, declares every registered route,
// and starts serving. It returns once the connection reaches the Serving
// state; reconnection and dispatch continue in the background until
// SafeClose or ImmediateClose is called or ctx is canceled.
func (h *Host) Serve(ctx context.Context) error {
	var sessOpts []hostsession.Option
	if h.locker != nil {
		sessOpts = append(sessOpts, hostsession.WithLocker(h.locker))
	}
	if h.metrics != nil {
		sessOpts = append(sessOpts, hostsession.WithMetrics(h.metrics))
	}

	h.session = hostsession.New(h.cfg, h.instanceID, h.socketFactory, h.builder, h.logger, sessOpts...)
	return h.session.Listen(ctx)
}

// ListenAndAwaitShutdown is a convenience wrapper for long-running host
// processes: it calls Serve, then blocks on OS SIGINT/SIGTERM and drives a
// graceful drain (spec.md §5's safelyClose), forcing an ImmediateClose if
// the drain overruns hardTimeout.
func (h *Host) ListenAndAwaitShutdown(ctx context.Context, hardTimeout time.Duration) error {
	if err := h.Serve(ctx); err != nil {
		return err
	}
	h.coord = shutdown.New(h.session, h.logger, hardTimeout)
	shutdownCtx := h.coord.Listen()
	select {
	case <-ctx.Done():
	case <-shutdownCtx.Done():
	}
	h.coord.Wait()
	return nil
}

// SafeClose drains outstanding transactions and pages before closing,
// per spec.md §5's safelyClose().
func (h *Host) SafeClose(ctx context.Context) error {
	if h.session == nil {
		return fmt.Errorf("hostsdk: SafeClose called before Serve")
	}
	return h.session.SafelyClose(ctx)
}

// ImmediateClose terminates the connection synchronously, forgetting all
// pending state, per spec.md §5's immediatelyClose().
func (h *Host) ImmediateClose() error {
	if h.session == nil {
		return fmt.Errorf("hostsdk: ImmediateClose called before Serve")
	}
	return h.session.ImmediatelyClose()
}

// State reports the Host Session's current lifecycle state. Returns
// hostsession.StateIdle before Serve is called.
func (h *Host) State() hostsession.State {
	if h.session == nil {
		return hostsession.StateIdle
	}
	return h.session.State()
}

// SingleShotAdapter builds a pkg/singleshot.Adapter sharing this Host's
// configuration and registered routes, for serverless deployments that
// invoke via adapters/http instead of holding a persistent connection.
func (h *Host) SingleShotAdapter() *singleshot.Adapter {
	return singleshot.New(h.cfg, h.socketFactory, h.builder, h.logger)
}
