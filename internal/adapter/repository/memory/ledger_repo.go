package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

// Totals aggregates balances and journal amounts from one consistent snapshot.
func (r *LedgerRepository) Totals(ctx context.Context) (usecase.LedgerTotals, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	totals := usecase.LedgerTotals{
		TotalBalance:     decimal.Zero,
		TotalEntryAmount: decimal.Zero,
	}

	for _, account := range r.store.accounts {
		totals.Accounts++
		totals.TotalBalance = totals.TotalBalance.Add(account.Balance)
		if account.Balance.IsNegative() {
			totals.NegativeAccounts++
		}
	}

	for _, entries := range r.store.entries {
		for _, e := range entries {
			totals.TotalEntryAmount = totals.TotalEntryAmount.Add(e.Amount)
		}
	}

	return totals, nil
}
