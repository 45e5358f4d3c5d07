package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	// Create inserts a new account. It returns domain.ErrAccountNumberTaken when
	// the number is in use and domain.ErrDuplicateAccount when the owner already
	// has an account.
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	// Update persists balance and loan fields. account.Version must be the
	// version read plus one, otherwise domain.ErrConcurrentUpdate is returned.
	Update(ctx context.Context, tx Transaction, account *domain.Account) error
}

// LoanRepository defines data access for loans.
type LoanRepository interface {
	Create(ctx context.Context, tx Transaction, loan *domain.Loan) error
	GetByID(ctx context.Context, id string) (*domain.Loan, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Loan, error)
	// UpdateStatus persists a decision. Only pending rows are updated; a row
	// that is no longer pending yields domain.ErrAlreadyDecided.
	UpdateStatus(ctx context.Context, tx Transaction, loan *domain.Loan) error
	// List returns up to limit loans ordered by ID with ID greater than afterID.
	List(ctx context.Context, filter LoanFilter, afterID string, limit int) ([]*domain.Loan, error)
}

// LoanFilter narrows a loan listing. Empty fields match everything.
type LoanFilter struct {
	OwnerID string
	Status  domain.LoanStatus
}

// EntryRepository defines data access for journal entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
}

// LedgerTotals are the aggregates used by the consistency check.
type LedgerTotals struct {
	TotalBalance     decimal.Decimal
	TotalEntryAmount decimal.Decimal
	NegativeAccounts int64
	Accounts         int64
}

// LedgerRepository defines data access for ledger-wide operations.
type LedgerRepository interface {
	Totals(ctx context.Context) (LedgerTotals, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Transaction represents a storage transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// AccountNumberGenerator draws candidate account numbers. Uniqueness is
// enforced by AccountRepository.Create, not by the generator.
type AccountNumberGenerator interface {
	Generate() string
}

// LockManager serializes work on overlapping resource keys.
type LockManager interface {
	// WithLocks acquires every key in ascending order, runs fn and releases
	// the keys. It returns domain.ErrBusy when a key cannot be acquired in time.
	WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// Retrier re-runs operations that failed with a transient storage conflict.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// EventPublisher delivers outbox events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key so a failed request can be retried.
	Release(ctx context.Context, key string) error
}
