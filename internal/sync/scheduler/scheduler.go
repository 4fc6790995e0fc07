// Package scheduler drives the sync engine in the background: a periodic
// sync while online, plus a debounced sync shortly after connectivity
// returns so a flaky reconnect blip does not fire a cycle per flap.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/relampagos/tindapos/backend/internal/connectivity"
	"github.com/relampagos/tindapos/backend/internal/logging"
	syncpkg "github.com/relampagos/tindapos/backend/internal/sync"
)

// Config holds scheduler configuration.
type Config struct {
	SyncInterval   time.Duration // how often to sync when online
	ReconnectDelay time.Duration // debounce after an offline->online edge
}

// DefaultConfig returns default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		SyncInterval:   15 * time.Minute,
		ReconnectDelay: 3 * time.Second,
	}
}

// Scheduler manages background sync operations.
type Scheduler struct {
	engine  *syncpkg.Engine
	monitor *connectivity.Monitor
	log     *logging.Logger

	syncInterval   time.Duration
	reconnectDelay time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu             sync.Mutex
	isRunning      bool
	syncInProgress bool
	lastResult     *syncpkg.Result
	reconnectTimer *time.Timer
}

// New creates a Scheduler over the given engine and connectivity monitor.
func New(engine *syncpkg.Engine, monitor *connectivity.Monitor, config *Config) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}

	return &Scheduler{
		engine:         engine,
		monitor:        monitor,
		log:            logging.Get(),
		syncInterval:   config.SyncInterval,
		reconnectDelay: config.ReconnectDelay,
		stopCh:         make(chan struct{}),
	}
}

// Start launches the periodic loop and the reconnect watcher.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	events := s.monitor.Subscribe()

	s.wg.Add(2)
	go s.periodicLoop(ctx)
	go s.reconnectLoop(ctx, events)

	s.log.Info("sync scheduler started", logging.Fields{
		"interval":        s.syncInterval.String(),
		"reconnect_delay": s.reconnectDelay.String(),
	})
}

// Stop halts both loops, cancels any pending reconnect sync and waits for
// every goroutine to finish, including a reconnect sync already in flight.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cancelReconnectLocked()
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.log.Info("sync scheduler stopped", nil)
}

// cancelReconnectLocked stops a pending reconnect sync. The timer callback
// is tracked by s.wg; when the timer is stopped before firing the callback
// never runs, so its waitgroup slot is released here. Caller holds s.mu.
func (s *Scheduler) cancelReconnectLocked() {
	if s.reconnectTimer == nil {
		return
	}
	if s.reconnectTimer.Stop() {
		s.wg.Done()
	}
	s.reconnectTimer = nil
}

// periodicLoop runs a sync on every tick while online.
func (s *Scheduler) periodicLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.monitor.IsOnline() {
				continue
			}
			s.runSync(ctx)
		}
	}
}

// reconnectLoop watches connectivity edges. An online edge schedules a
// debounced sync; an offline edge inside the window cancels it. The last
// schedule wins.
func (s *Scheduler) reconnectLoop(ctx context.Context, events <-chan connectivity.Event) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case ev := <-events:
			s.mu.Lock()
			s.cancelReconnectLocked()
			if ev.Online && s.isRunning {
				s.wg.Add(1)
				s.reconnectTimer = time.AfterFunc(s.reconnectDelay, func() {
					defer s.wg.Done()
					s.log.Info("connectivity restored, syncing", nil)
					s.runSync(ctx)
				})
			}
			s.mu.Unlock()
		}
	}
}

// runSync executes one sync cycle unless one is already in flight.
func (s *Scheduler) runSync(ctx context.Context) {
	s.mu.Lock()
	if s.syncInProgress {
		s.mu.Unlock()
		s.log.Debug("sync already in progress, skipping", nil)
		return
	}
	s.syncInProgress = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.syncInProgress = false
		s.mu.Unlock()
	}()

	syncCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result := s.engine.SyncAll(syncCtx)

	s.mu.Lock()
	s.lastResult = &result
	s.mu.Unlock()

	if !result.Success {
		s.log.Warn("background sync finished with errors", logging.Fields{
			"message": result.Message,
			"errors":  len(result.Errors),
		})
	}
}

// TriggerSync starts an immediate sync in the background. Reports false
// when a sync is already in flight.
func (s *Scheduler) TriggerSync(ctx context.Context) bool {
	s.mu.Lock()
	inFlight := s.syncInProgress
	s.mu.Unlock()

	if inFlight {
		return false
	}

	go s.runSync(ctx)
	return true
}

// SyncNow runs a sync cycle synchronously and returns its result.
func (s *Scheduler) SyncNow(ctx context.Context) syncpkg.Result {
	syncCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result := s.engine.SyncAll(syncCtx)

	s.mu.Lock()
	s.lastResult = &result
	s.mu.Unlock()

	return result
}

// LastResult returns the most recent sync result, if any.
func (s *Scheduler) LastResult() *syncpkg.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// IsRunning reports whether the scheduler loops are active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
