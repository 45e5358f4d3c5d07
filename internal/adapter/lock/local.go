// Package lock provides in-process resource locking for the ledger guard.
package lock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// DefaultTimeout bounds how long WithLocks waits for all keys.
const DefaultTimeout = 5 * time.Second

// Normalize de-duplicates keys and sorts them into the global acquisition order.
func Normalize(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

type slot struct {
	ch   chan struct{}
	refs int
}

// LocalLockManager implements usecase.LockManager with one-slot channel
// semaphores per key. Slots are reference counted and dropped when idle.
type LocalLockManager struct {
	mu      sync.Mutex
	slots   map[string]*slot
	timeout time.Duration
	metrics *metrics.Metrics
}

// NewLocalLockManager creates a lock manager that waits at most timeout.
func NewLocalLockManager(timeout time.Duration, m *metrics.Metrics) *LocalLockManager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LocalLockManager{
		slots:   make(map[string]*slot),
		timeout: timeout,
		metrics: m,
	}
}

// WithLocks acquires keys in sorted order, runs fn and releases them in
// reverse order on every exit path.
func (m *LocalLockManager) WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	keys = Normalize(keys)
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	held := make([]string, 0, len(keys))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			m.release(held[i])
		}
	}()

	for _, key := range keys {
		if err := m.acquire(waitCtx, key); err != nil {
			m.metrics.ObserveLockWait("local", start, true)
			return &domain.Error{
				Op:   "lock",
				Kind: domain.ErrBusy,
				Err:  fmt.Errorf("waiting for %s: %w", key, err),
			}
		}
		held = append(held, key)
	}

	m.metrics.ObserveLockWait("local", start, false)

	return fn(ctx)
}

func (m *LocalLockManager) acquire(ctx context.Context, key string) error {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.unref(key, s)
		return ctx.Err()
	}
}

func (m *LocalLockManager) release(key string) {
	m.mu.Lock()
	s := m.slots[key]
	m.mu.Unlock()

	<-s.ch
	m.unref(key, s)
}

func (m *LocalLockManager) unref(key string, s *slot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}

// size reports how many keys currently have a slot.
func (m *LocalLockManager) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.slots)
}
