package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// PostgreSQL error codes for retryable errors.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
)

// Retrier implements usecase.Retrier with exponential backoff.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	logger          zerolog.Logger
	metrics         *metrics.Metrics
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithMaxRetries sets how many retries follow the first attempt.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) { r.maxRetries = n }
}

// WithIntervals sets the backoff bounds.
func WithIntervals(initial, maxInterval, maxElapsed time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = initial
		r.maxInterval = maxInterval
		r.maxElapsedTime = maxElapsed
	}
}

// WithMetrics counts retries.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Retrier) { r.metrics = m }
}

// NewRetrier creates a new retrier with default settings.
func NewRetrier(logger zerolog.Logger, opts ...Option) *Retrier {
	r := &Retrier{
		maxRetries:      5,
		initialInterval: 10 * time.Millisecond,
		maxInterval:     500 * time.Millisecond,
		maxElapsedTime:  5 * time.Second,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retry executes an operation with exponential backoff on retryable errors.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	retryCount := 0

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}

		retryCount++
		if retryCount > r.maxRetries {
			return backoff.Permanent(err)
		}

		r.metrics.IncRetry()
		r.logger.Warn().
			Err(err).
			Int("retry", retryCount).
			Msg("transient storage conflict, retrying")

		return err
	}, backoff.WithContext(b, ctx))
}

// IsRetryable reports whether err is a transient storage conflict.
// Business failures are never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, domain.ErrConcurrentUpdate) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure:
			return true
		}
	}
	return false
}
