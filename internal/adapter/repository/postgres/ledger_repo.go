package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	queries *generated.Queries
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return newLedgerRepository(pool)
}

func newLedgerRepository(db generated.DBTX) *LedgerRepository {
	return &LedgerRepository{queries: generated.New(db)}
}

// Totals sums balances and journal amounts across the ledger.
func (r *LedgerRepository) Totals(ctx context.Context) (usecase.LedgerTotals, error) {
	row, err := r.queries.LedgerTotals(ctx)
	if err != nil {
		return usecase.LedgerTotals{}, err
	}

	totalBalance, err := toDecimal(row.TotalBalance)
	if err != nil {
		return usecase.LedgerTotals{}, err
	}

	totalAmount, err := toDecimal(row.TotalEntryAmount)
	if err != nil {
		return usecase.LedgerTotals{}, err
	}

	return usecase.LedgerTotals{
		TotalBalance:     totalBalance,
		TotalEntryAmount: totalAmount,
		NegativeAccounts: row.NegativeAccounts,
		Accounts:         row.AccountCount,
	}, nil
}
