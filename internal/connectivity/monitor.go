// Package connectivity reports network reachability and notifies
// subscribers on online/offline transitions.
package connectivity

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/relampagos/tindapos/backend/internal/logging"
)

// Event is an edge-triggered connectivity transition.
type Event struct {
	Online bool
	At     time.Time
}

// ProbeFunc reports whether the network is currently reachable.
type ProbeFunc func(ctx context.Context) bool

// DialProbe returns a probe that considers the network reachable when a
// TCP connection to addr succeeds within timeout.
func DialProbe(addr string, timeout time.Duration) ProbeFunc {
	return func(ctx context.Context) bool {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
}

// Monitor polls a reachability probe and emits edge events on transition.
// Subscribers receive at most one event per transition; a slow subscriber
// drops events rather than blocking the poll loop.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	log      *logging.Logger

	mu     sync.RWMutex
	online bool
	subs   []chan Event

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewMonitor creates a Monitor polling probe every interval. The monitor
// starts in the offline state until the first probe or SetOnline call.
func NewMonitor(probe ProbeFunc, interval time.Duration) *Monitor {
	return &Monitor{
		probe:    probe,
		interval: interval,
		log:      logging.Get(),
		stopCh:   make(chan struct{}),
	}
}

// IsOnline reports the current connectivity state.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe returns a channel receiving connectivity transition events.
func (m *Monitor) Subscribe() <-chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan Event, 8)
	m.subs = append(m.subs, ch)
	return ch
}

// SetOnline forces the connectivity state, emitting an edge event if the
// state changed. Exposed for hosts that receive their own network signal
// (and for tests).
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()

	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]chan Event, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	ev := Event{Online: online, At: time.Now()}
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// Subscriber lagging; edge state is queryable via IsOnline.
		}
	}

	m.log.Info("connectivity changed", logging.Fields{"online": online})
}

// Start begins the poll loop. It probes immediately, then every interval,
// until Stop is called or ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.SetOnline(m.probe(ctx))

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.SetOnline(m.probe(ctx))
			}
		}
	}()
}

// Stop halts the poll loop and waits for it to finish.
func (m *Monitor) Stop() {
	m.stopped.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
}
