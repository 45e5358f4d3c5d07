package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]string{"account:2", "loan:1", "account:2", "account:1"})
	assert.Equal(t, []string{"account:1", "account:2", "loan:1"}, got)
	assert.Empty(t, Normalize(nil))
}

func TestWithLocksRunsAndReleases(t *testing.T) {
	m := NewLocalLockManager(time.Second, nil)

	ran := false
	err := m.WithLocks(context.Background(), []string{"account:1", "account:2"}, func(ctx context.Context) error {
		ran = true
		assert.Equal(t, 2, m.size())
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Zero(t, m.size(), "idle slots must be reclaimed")
}

func TestWithLocksReleasesOnError(t *testing.T) {
	m := NewLocalLockManager(time.Second, nil)
	boom := errors.New("boom")

	err := m.WithLocks(context.Background(), []string{"account:1"}, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = m.WithLocks(context.Background(), []string{"account:1"}, func(ctx context.Context) error { return nil })
	assert.NoError(t, err, "lock must be free after a failing callback")
}

func TestWithLocksReleasesOnPanic(t *testing.T) {
	m := NewLocalLockManager(time.Second, nil)

	func() {
		defer func() { _ = recover() }()
		_ = m.WithLocks(context.Background(), []string{"account:1"}, func(ctx context.Context) error {
			panic("boom")
		})
	}()

	assert.Zero(t, m.size())
}

func TestWithLocksTimesOutAsBusy(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLocalLockManager(30*time.Millisecond, metrics.New(reg))

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = m.WithLocks(context.Background(), []string{"account:1"}, func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding

	start := time.Now()
	err := m.WithLocks(context.Background(), []string{"account:1"}, func(ctx context.Context) error {
		t.Fatal("callback must not run while the key is held")
		return nil
	})

	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.Equal(t, domain.KindBusy, domain.KindOf(err))
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	<-done
	assert.Zero(t, m.size())
}

func TestWithLocksSerializesOverlappingKeys(t *testing.T) {
	m := NewLocalLockManager(5*time.Second, nil)

	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		keys := []string{"account:1", "account:2"}
		if i%2 == 1 {
			keys = []string{"account:2", "account:1"}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.WithLocks(context.Background(), keys, func(ctx context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside)
	assert.Zero(t, m.size())
}

func TestWithLocksDisjointKeysRunConcurrently(t *testing.T) {
	m := NewLocalLockManager(time.Second, nil)

	entered := make(chan struct{}, 2)
	proceed := make(chan struct{})
	var wg sync.WaitGroup

	for _, key := range []string{"account:1", "account:2"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_ = m.WithLocks(context.Background(), []string{key}, func(ctx context.Context) error {
				entered <- struct{}{}
				<-proceed
				return nil
			})
		}(key)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-entered:
		case <-time.After(time.Second):
			t.Fatal("disjoint keys should not block each other")
		}
	}
	close(proceed)
	wg.Wait()
}

func TestWithLocksHonoursCallerCancellation(t *testing.T) {
	m := NewLocalLockManager(time.Minute, nil)

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = m.WithLocks(context.Background(), []string{"loan:1"}, func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.WithLocks(ctx, []string{"loan:1"}, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
