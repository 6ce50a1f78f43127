package lock_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/parking-slot-reservation/internal/lock"
)

func TestTableMutualExclusion(t *testing.T) {
	tbl := lock.NewTable()
	var inside, maxInside, total int32

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tbl.WithExclusiveAccess(context.Background(), "lot:1", 5*time.Second, func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&total, 1)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("max concurrent holders = %d, want 1", maxInside)
	}
	if total != 50 {
		t.Fatalf("ran %d sections, want 50", total)
	}
	if n := tbl.Len(); n != 0 {
		t.Fatalf("arena holds %d handles after release, want 0", n)
	}
}

func TestTableTimeout(t *testing.T) {
	tbl := lock.NewTable()
	held := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = tbl.WithExclusiveAccess(context.Background(), "lot:1", time.Second, func(ctx context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	ran := false
	err := tbl.WithExclusiveAccess(context.Background(), "lot:1", 20*time.Millisecond, func(ctx context.Context) error {
		ran = true
		return nil
	})
	close(done)

	if !errors.Is(err, lock.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if ran {
		t.Fatalf("protected function ran after timeout")
	}
}

func TestTableIndependentKeys(t *testing.T) {
	tbl := lock.NewTable()
	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = tbl.WithExclusiveAccess(context.Background(), "lot:1", time.Second, func(ctx context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	defer close(done)

	err := tbl.WithExclusiveAccess(context.Background(), "lot:2", 50*time.Millisecond, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("other key blocked: %v", err)
	}
}

func TestTableReleasesOnError(t *testing.T) {
	tbl := lock.NewTable()
	boom := errors.New("boom")
	if err := tbl.WithExclusiveAccess(context.Background(), "k", time.Second, func(ctx context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if err := tbl.WithExclusiveAccess(context.Background(), "k", 50*time.Millisecond, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("lock not released after error: %v", err)
	}
}

func TestTableReleasesOnPanic(t *testing.T) {
	tbl := lock.NewTable()
	func() {
		defer func() { _ = recover() }()
		_ = tbl.WithExclusiveAccess(context.Background(), "k", time.Second, func(ctx context.Context) error {
			panic("boom")
		})
	}()
	if err := tbl.WithExclusiveAccess(context.Background(), "k", 50*time.Millisecond, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("lock not released after panic: %v", err)
	}
	if n := tbl.Len(); n != 0 {
		t.Fatalf("arena holds %d handles, want 0", n)
	}
}

func TestTableContextCancel(t *testing.T) {
	tbl := lock.NewTable()
	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = tbl.WithExclusiveAccess(context.Background(), "k", time.Second, func(ctx context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tbl.WithExclusiveAccess(ctx, "k", time.Second, func(ctx context.Context) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestLotKey(t *testing.T) {
	if got := lock.LotKey(42); got != "lot:42" {
		t.Fatalf("LotKey = %q", got)
	}
}
