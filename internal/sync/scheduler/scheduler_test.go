// Package scheduler tests for reconnect debounce and background driving.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relampagos/tindapos/backend/internal/connectivity"
	"github.com/relampagos/tindapos/backend/internal/models"
	"github.com/relampagos/tindapos/backend/internal/store"
	syncpkg "github.com/relampagos/tindapos/backend/internal/sync"
)

// countingRemote counts sync cycles via the product listing call.
type countingRemote struct {
	listCalls atomic.Int32
}

func (r *countingRemote) ListProducts(ctx context.Context) ([]models.Product, error) {
	r.listCalls.Add(1)
	return nil, nil
}

func (r *countingRemote) CreateProduct(ctx context.Context, p models.Product, idemKey string) (*models.Product, error) {
	return &p, nil
}

func (r *countingRemote) UpdateProduct(ctx context.Context, id string, p models.Product, idemKey string) (*models.Product, error) {
	return &p, nil
}

func (r *countingRemote) DeleteProduct(ctx context.Context, id string, idemKey string) error {
	return nil
}

func (r *countingRemote) ListSales(ctx context.Context) ([]models.Sale, error) {
	return nil, nil
}

func (r *countingRemote) CreateSale(ctx context.Context, s models.SaleRequest, idemKey string) (*models.Sale, error) {
	return &models.Sale{}, nil
}

func newTestScheduler(t *testing.T, cfg *Config) (*Scheduler, *connectivity.Monitor, *countingRemote) {
	t.Helper()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	monitor := connectivity.NewMonitor(nil, time.Hour)
	remote := &countingRemote{}
	engine := syncpkg.NewEngine(st, remote, monitor.IsOnline)

	return New(engine, monitor, cfg), monitor, remote
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// TestReconnectTriggersDebouncedSync verifies an offline->online edge
// schedules one sync after the debounce delay.
func TestReconnectTriggersDebouncedSync(t *testing.T) {
	sched, monitor, remote := newTestScheduler(t, &Config{
		SyncInterval:   time.Hour,
		ReconnectDelay: 20 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)
	defer sched.Stop()

	monitor.SetOnline(true)

	if !waitFor(t, time.Second, func() bool { return remote.listCalls.Load() >= 1 }) {
		t.Fatal("no sync ran after reconnect debounce")
	}
	if got := remote.listCalls.Load(); got != 1 {
		t.Errorf("sync ran %d times, want 1", got)
	}
}

// TestOfflineEdgeCancelsScheduledSync verifies an offline edge inside the
// debounce window cancels the pending sync.
func TestOfflineEdgeCancelsScheduledSync(t *testing.T) {
	sched, monitor, remote := newTestScheduler(t, &Config{
		SyncInterval:   time.Hour,
		ReconnectDelay: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)
	defer sched.Stop()

	monitor.SetOnline(true)
	time.Sleep(20 * time.Millisecond) // inside the debounce window
	monitor.SetOnline(false)

	time.Sleep(200 * time.Millisecond)

	if got := remote.listCalls.Load(); got != 0 {
		t.Errorf("cancelled reconnect still ran %d syncs, want 0", got)
	}
}

// TestFlappingConnectionSyncsOnce verifies rapid flaps collapse into a
// single sync: last schedule wins.
func TestFlappingConnectionSyncsOnce(t *testing.T) {
	sched, monitor, remote := newTestScheduler(t, &Config{
		SyncInterval:   time.Hour,
		ReconnectDelay: 50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)
	defer sched.Stop()

	for i := 0; i < 3; i++ {
		monitor.SetOnline(true)
		time.Sleep(10 * time.Millisecond)
		monitor.SetOnline(false)
		time.Sleep(10 * time.Millisecond)
	}
	monitor.SetOnline(true)

	if !waitFor(t, time.Second, func() bool { return remote.listCalls.Load() >= 1 }) {
		t.Fatal("no sync after final reconnect")
	}

	time.Sleep(100 * time.Millisecond)
	if got := remote.listCalls.Load(); got != 1 {
		t.Errorf("flapping produced %d syncs, want 1", got)
	}
}

// blockingRemote stalls the first sync cycle until release is closed.
type blockingRemote struct {
	*countingRemote
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingRemote) ListProducts(ctx context.Context) ([]models.Product, error) {
	r.once.Do(func() { close(r.started) })
	<-r.release
	return r.countingRemote.ListProducts(ctx)
}

// TestStopWaitsForReconnectSync verifies Stop blocks until a reconnect
// sync already in flight has finished.
func TestStopWaitsForReconnectSync(t *testing.T) {
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	monitor := connectivity.NewMonitor(nil, time.Hour)
	remote := &blockingRemote{
		countingRemote: &countingRemote{},
		started:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	engine := syncpkg.NewEngine(st, remote, monitor.IsOnline)
	sched := New(engine, monitor, &Config{
		SyncInterval:   time.Hour,
		ReconnectDelay: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched.Start(ctx)
	monitor.SetOnline(true)

	select {
	case <-remote.started:
	case <-time.After(time.Second):
		t.Fatal("reconnect sync never started")
	}

	stopDone := make(chan struct{})
	go func() {
		sched.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		t.Fatal("Stop returned while a sync was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(remote.release)

	select {
	case <-stopDone:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the sync finished")
	}

	if sched.LastResult() == nil {
		t.Error("the in-flight sync should have recorded a result")
	}
}

// TestSyncNow verifies the synchronous trigger records a result.
func TestSyncNow(t *testing.T) {
	sched, monitor, remote := newTestScheduler(t, nil)

	monitor.SetOnline(true)

	result := sched.SyncNow(context.Background())
	if !result.Success {
		t.Fatalf("SyncNow failed: %+v", result.Errors)
	}
	if remote.listCalls.Load() != 1 {
		t.Errorf("SyncNow ran %d cycles, want 1", remote.listCalls.Load())
	}
	if sched.LastResult() == nil {
		t.Error("LastResult should be recorded")
	}
}
