package hostsession

import (
	"context"
	"time"

	hostsdk "github.com/chronicals/sdk/pkg/hosterr"
	"github.com/chronicals/sdk/pkg/domain"
	"github.com/chronicals/sdk/pkg/pending"
	"github.com/chronicals/sdk/pkg/ports"
	"github.com/chronicals/sdk/pkg/rpc"
)

// lockTTL is the expiry passed to the distributed lock. Listen takes the
// lock once and never renews it, so the lock lapses lockTTL after Listen
// unless ImmediatelyClose releases it first.
const lockTTL = 5 * time.Minute

// Listen drives Idle -> Connecting -> Initializing -> Serving, per
// spec.md §4.6. It returns once the session is Serving or has failed;
// reconnection thereafter runs in the background.
func (s *Session) Listen(ctx context.Context) error {
	s.rootCtx = ctx
	s.setState(StateConnecting)

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, "hostsdk:instance:"+s.instanceID, lockTTL)
		if err != nil {
			s.setState(StateFailed)
			return hostsdk.NewError(hostsdk.ErrFatal, "acquiring instance lock", err)
		}
		s.unlock = unlock
	}

	table, err := s.routeLoader.Load(ctx)
	if err != nil {
		s.setState(StateFailed)
		return hostsdk.NewError(hostsdk.ErrFatal, "loading routes", err)
	}
	s.setTable(table)

	sock := s.socketFactory(s.instanceID)
	sock.OnClose(s.handleSocketClose)
	connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout())
	err = sock.Connect(connectCtx)
	cancel()
	if err != nil {
		s.setState(StateFailed)
		return hostsdk.NewError(hostsdk.ErrFatal, "initial connect failed, no retry per spec", err)
	}
	s.setSocket(sock)
	s.lastGoodPing.Store(time.Now().UnixNano())

	s.setState(StateInitializing)
	if err := s.declareHost(ctx, table, true); err != nil {
		s.setState(StateFailed)
		return err
	}

	s.setState(StateServing)
	go s.pingLoop(ctx)
	if w, ok := s.routeLoader.(ports.Watchable); ok {
		go s.watchRoutes(ctx, w)
	}
	return nil
}

func (s *Session) setTable(table *domain.Table) {
	s.mu.Lock()
	s.table = table
	s.mu.Unlock()
	s.txnMgr.SetRoutes(table)
	s.pageMgr.SetRoutes(table)
}

func (s *Session) currentTable() *domain.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// handleSocketClose is the Socket's OnClose hook. An intentional close
// (Draining/Closed) is ignored; any other close begins reconnection.
func (s *Session) handleSocketClose(code int, reason string) {
	switch s.State() {
	case StateDraining, StateClosed:
		return
	}
	s.logger.Warn("socket closed, reconnecting", "code", code, "reason", reason)
	s.setState(StateReconnecting)
	go s.reconnectLoop(s.rootCtx)
}

// reconnectLoop implements spec.md §4.6's Reconnecting row: open a new
// socket with the same instanceId, sleeping retryIntervalMs between
// attempts, then re-declare and trigger resend on success.
func (s *Session) reconnectLoop(ctx context.Context) {
	for {
		select {
		case <-s.closeCh:
			return
		default:
		}

		sock := s.socketFactory(s.instanceID)
		sock.OnClose(s.handleSocketClose)
		connectCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout())
		err := sock.Connect(connectCtx)
		cancel()
		if err != nil {
			s.logger.Warn("reconnect attempt failed", "err", err)
			s.sleepOrStop(s.cfg.RetryInterval())
			continue
		}

		s.setSocket(sock)
		if err := s.declareHost(ctx, s.currentTable(), false); err != nil {
			s.logger.Error("re-declare on reconnect failed", "err", err)
			sock.Close()
			s.sleepOrStop(s.cfg.RetryInterval())
			continue
		}

		s.lastGoodPing.Store(time.Now().UnixNano())
		s.setState(StateServing)
		if s.metrics != nil {
			s.metrics.Reconnects.Inc()
		}
		go s.resend.ReplayAll(ctx)
		return
	}
}

func (s *Session) sleepOrStop(d time.Duration) {
	select {
	case <-time.After(d):
	case <-s.closeCh:
	}
}

// pingLoop implements spec.md §4.6's ping loop: every pingIntervalMs try
// ping(); force-close the socket once the last successful pong is older
// than closeUnresponsiveConnectionTimeoutMs.
func (s *Session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PingInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeCh:
			return
		case <-ticker.C:
			s.tryPing(ctx)
		}
	}
}

func (s *Session) tryPing(ctx context.Context) {
	sock := s.currentSocket()
	if sock == nil {
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, s.cfg.PingTimeout())
	start := time.Now()
	err := sock.Ping(pingCtx)
	cancel()
	if err == nil {
		s.lastGoodPing.Store(time.Now().UnixNano())
		if s.metrics != nil {
			s.metrics.PingLatency.Observe(time.Since(start).Seconds())
		}
		return
	}

	last := s.lastGoodPing.Load()
	if last != 0 && time.Since(time.Unix(0, last)) > s.cfg.CloseUnresponsiveConnectionTimeout() {
		s.logger.Warn("peer unresponsive past threshold, forcing reconnect", "err", err)
		sock.Close()
	}
}

// watchRoutes listens for filesystem route changes and debounces a
// re-declare by reinitializeBatchTimeoutMs, per spec.md §4.6.
func (s *Session) watchRoutes(ctx context.Context, w ports.Watchable) {
	ch, err := w.Watch(ctx)
	if err != nil {
		s.logger.Warn("route watch unavailable", "err", err)
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closeCh:
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			s.scheduleReinit(ctx)
		}
	}
}

func (s *Session) scheduleReinit(ctx context.Context) {
	s.mu.Lock()
	if s.reinitTimer != nil {
		s.reinitTimer.Stop()
	}
	s.reinitTimer = time.AfterFunc(s.cfg.ReinitializeBatchTimeout(), func() { s.reinit(ctx) })
	s.mu.Unlock()
}

func (s *Session) reinit(ctx context.Context) {
	if s.State() != StateServing {
		return
	}
	table, err := s.routeLoader.Load(ctx)
	if err != nil {
		s.logger.Error("reloading routes", "err", err)
		return
	}
	s.setTable(table)
	if err := s.declareHost(ctx, table, false); err != nil {
		s.logger.Error("re-declare failed", "err", err)
	}
}

// SafelyClose implements spec.md §5's safelyClose(): drain (Draining
// state, BEGIN_HOST_SHUTDOWN, refuse new work), wait for outstanding
// transactions and pages to empty, then close.
func (s *Session) SafelyClose(ctx context.Context) error {
	s.setState(StateDraining)
	s.shuttingDown.Store(true)
	s.txnMgr.SetShuttingDown(true)

	if _, err := s.sendWithRetry(ctx, rpc.MethodBeginHostShutdown, map[string]any{}); err != nil {
		s.logger.Warn("BEGIN_HOST_SHUTDOWN failed", "err", err)
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if s.txnMgr.Count() == 0 && s.pageMgr.Count() == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return s.ImmediatelyClose()
		case <-ticker.C:
		}
	}

	time.Sleep(s.cfg.CompleteShutdownDelay())
	return s.ImmediatelyClose()
}

// ImmediatelyClose implements spec.md §5's immediatelyClose(): terminate
// synchronously, forgetting all pending state.
func (s *Session) ImmediatelyClose() error {
	s.stopOnce.Do(func() { close(s.closeCh) })
	s.setState(StateClosed)
	if sock := s.currentSocket(); sock != nil {
		_ = sock.Close()
	}
	if s.unlock != nil {
		_ = s.unlock(context.Background())
	}
	for _, kind := range []pending.Kind{pending.KindIOCall, pending.KindPage, pending.KindLoading} {
		for _, a := range s.store.Snapshot(kind) {
			s.store.Delete(kind, a.ID)
		}
	}
	return nil
}
