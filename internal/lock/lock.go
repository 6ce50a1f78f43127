// Package lock serializes capacity decisions per key.  Table keeps an arena
// of one-slot semaphores inside the process; RedisLocker offers the same
// contract across processes sharing a Redis instance.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTimeout is returned when the lock could not be acquired within the
// timeout.  The protected function has not run.  Callers may retry.
var ErrTimeout = errors.New("lock wait timed out")

// Locker runs fn while holding the exclusive lock for key.  The lock is
// released on every exit path of fn, panics included.  Locks are not
// re-entrant: acquiring a key already held by the same call chain waits
// until timeout.
type Locker interface {
	WithExclusiveAccess(ctx context.Context, key string, timeout time.Duration, fn func(ctx context.Context) error) error
}

// slot is one lock handle.  refs counts holders and waiters so the slot
// can be dropped from the arena once nobody references it.
type slot struct {
	sem  chan struct{}
	refs int
}

// Table is an in-process Locker.  The zero value is ready to use.
type Table struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// NewTable returns an empty lock table.
func NewTable() *Table { return &Table{slots: make(map[string]*slot)} }

func (t *Table) acquireSlot(key string) *slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.slots == nil {
		t.slots = make(map[string]*slot)
	}
	s, ok := t.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		t.slots[key] = s
	}
	s.refs++
	return s
}

func (t *Table) releaseSlot(key string, s *slot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(t.slots, key)
	}
}

// WithExclusiveAccess implements Locker.
func (t *Table) WithExclusiveAccess(ctx context.Context, key string, timeout time.Duration, fn func(ctx context.Context) error) error {
	s := t.acquireSlot(key)
	defer t.releaseSlot(key, s)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s.sem <- struct{}{}:
	case <-timer.C:
		return fmt.Errorf("%w: %s", ErrTimeout, key)
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.sem }()

	return fn(ctx)
}

// Len reports how many keys currently have a live handle.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}

// LotKey is the lock key guarding capacity decisions for a lot.
func LotKey(lotID uint64) string { return fmt.Sprintf("lot:%d", lotID) }
