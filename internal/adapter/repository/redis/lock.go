package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/adapter/lock"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// LockOptions configures distributed lock acquisition.
type LockOptions struct {
	// Expiry is how long a held key survives a crashed holder.
	Expiry time.Duration
	// Timeout bounds the total wait for all keys.
	Timeout time.Duration
	// RetryDelay is the pause between acquisition attempts.
	RetryDelay time.Duration
	// DriftFactor accounts for clock drift between nodes.
	DriftFactor float64
}

// DefaultLockOptions returns defaults sized for sub-second ledger mutations.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Expiry:      15 * time.Second,
		Timeout:     lock.DefaultTimeout,
		RetryDelay:  50 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// LockManager implements usecase.LockManager across processes with redsync.
type LockManager struct {
	redsync *redsync.Redsync
	opts    LockOptions
	prefix  string
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewLockManager creates a distributed lock manager on client.
func NewLockManager(client *redis.Client, opts LockOptions, log zerolog.Logger, m *metrics.Metrics) *LockManager {
	defaults := DefaultLockOptions()
	if opts.Expiry <= 0 {
		opts.Expiry = defaults.Expiry
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaults.RetryDelay
	}
	if opts.DriftFactor <= 0 {
		opts.DriftFactor = defaults.DriftFactor
	}

	pool := goredis.NewPool(client)

	return &LockManager{
		redsync: redsync.New(pool),
		opts:    opts,
		prefix:  "bankledger:lock:",
		logger:  log,
		metrics: m,
	}
}

// WithLocks acquires keys in sorted order, runs fn and releases them in
// reverse order. Failing to acquire any key within the timeout yields domain.ErrBusy.
func (lm *LockManager) WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	keys = lock.Normalize(keys)
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, lm.opts.Timeout)
	defer cancel()

	held := make([]*redsync.Mutex, 0, len(keys))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			// The caller's context may already be done; release regardless.
			if ok, err := held[i].UnlockContext(context.Background()); !ok || err != nil {
				lm.logger.Warn().Err(err).Str("key", held[i].Name()).Msg("failed to release lock")
			}
		}
	}()

	tries := int(lm.opts.Timeout/lm.opts.RetryDelay) + 1

	for _, key := range keys {
		mutex := lm.redsync.NewMutex(
			lm.prefix+key,
			redsync.WithExpiry(lm.opts.Expiry),
			redsync.WithTries(tries),
			redsync.WithRetryDelay(lm.opts.RetryDelay),
			redsync.WithDriftFactor(lm.opts.DriftFactor),
		)

		if err := mutex.LockContext(waitCtx); err != nil {
			lm.metrics.ObserveLockWait("redis", start, true)
			lm.logger.Debug().Err(err).Str("key", key).Msg("lock busy")
			return &domain.Error{
				Op:   "lock",
				Kind: domain.ErrBusy,
				Err:  fmt.Errorf("waiting for %s: %w", key, err),
			}
		}
		held = append(held, mutex)
	}

	lm.metrics.ObserveLockWait("redis", start, false)

	return fn(ctx)
}
