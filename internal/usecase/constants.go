package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a ledger mutation,
	// lock wait included.
	DefaultTransactionTimeout = 10 * time.Second

	// MaxAccountNumberAttempts bounds retries on account number collisions.
	MaxAccountNumberAttempts = 16

	// LoanPageSize is the page size used when streaming loans.
	LoanPageSize = 100

	// MaxBulkDecisions caps a single bulk loan decision request.
	MaxBulkDecisions = 500

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyProcessing is stored under a key while its first request is in flight.
	IdempotencyProcessing = "processing"
)
