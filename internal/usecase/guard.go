package usecase

import (
	"context"
	"errors"

	"github.com/iho/bankledger/internal/domain"
)

// Lock key namespaces.
const (
	accountLockPrefix = "account:"
	loanLockPrefix    = "loan:"
	ownerLockPrefix   = "owner:"
)

// AccountLockKey is the guard key protecting an account balance.
func AccountLockKey(id string) string { return accountLockPrefix + id }

// LoanLockKey is the guard key protecting a loan's status.
func LoanLockKey(id string) string { return loanLockPrefix + id }

// OwnerLockKey serializes account opening per owner.
func OwnerLockKey(ownerID string) string { return ownerLockPrefix + ownerID }

// Guard runs storage work under resource locks inside one transaction.
type Guard struct {
	txManager TransactionManager
	locks     LockManager
	retrier   Retrier
}

// NewGuard creates a new Guard.
func NewGuard(txManager TransactionManager, locks LockManager, retrier Retrier) *Guard {
	return &Guard{
		txManager: txManager,
		locks:     locks,
		retrier:   retrier,
	}
}

// Run acquires keys, then runs fn in a fresh transaction and commits it.
// Transient storage conflicts re-run the transaction while the locks are held.
// The whole call is bounded by DefaultTransactionTimeout.
func (g *Guard) Run(ctx context.Context, keys []string, fn func(ctx context.Context, tx Transaction) error) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	err := g.locks.WithLocks(ctx, keys, func(ctx context.Context) error {
		return g.retrier.Retry(ctx, func() error {
			return g.InTx(ctx, fn)
		})
	})

	if err != nil && errors.Is(err, context.DeadlineExceeded) && domain.KindOf(err) == domain.KindUnknown {
		return errors.Join(domain.ErrBusy, err)
	}
	return err
}

// InTx runs fn in a transaction without taking locks.
func (g *Guard) InTx(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error {
	tx, err := g.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
