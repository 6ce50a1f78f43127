package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/service"
)

// MockReconciler counts ticks.
type MockReconciler struct {
	TickFunc func(ctx context.Context, now time.Time) (service.TickStats, error)
	calls    int32
}

func (m *MockReconciler) RunReconciliationTick(ctx context.Context, now time.Time) (service.TickStats, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.TickFunc != nil {
		return m.TickFunc(ctx, now)
	}
	return service.TickStats{}, nil
}

func TestRunOncePassesNow(t *testing.T) {
	want := time.Date(2026, 6, 1, 10, 20, 0, 0, time.UTC)
	var got time.Time
	m := &MockReconciler{TickFunc: func(ctx context.Context, now time.Time) (service.TickStats, error) {
		got = now
		return service.TickStats{Scanned: 2, Changed: 1}, nil
	}}
	s := New(m, "", nil)

	stats, err := s.RunOnce(context.Background(), want)
	if err != nil || stats.Changed != 1 {
		t.Fatalf("RunOnce = %+v, %v", stats, err)
	}
	if !got.Equal(want) {
		t.Fatalf("now = %v, want %v", got, want)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := New(&MockReconciler{}, "not a schedule", nil)
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for bad schedule")
	}
}

func TestStartTicksUntilStopped(t *testing.T) {
	m := &MockReconciler{}
	s := New(m, "@every 1s", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}

	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt32(&m.calls) == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	s.Stop()
	n := atomic.LoadInt32(&m.calls)
	if n == 0 {
		t.Fatal("no tick ran")
	}
	time.Sleep(1500 * time.Millisecond)
	if atomic.LoadInt32(&m.calls) != n {
		t.Fatal("ticked after Stop")
	}
	s.Stop()
}

func TestTickLogsErrors(t *testing.T) {
	m := &MockReconciler{TickFunc: func(ctx context.Context, now time.Time) (service.TickStats, error) {
		return service.TickStats{}, errors.New("db down")
	}}
	s := New(m, "", nil)
	s.tick(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.tick(ctx)
	if atomic.LoadInt32(&m.calls) != 1 {
		t.Fatalf("calls = %d, want 1", m.calls)
	}
}
