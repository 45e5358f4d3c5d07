package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInconsistentLedger is returned when balances disagree with the journal.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: balances do not match journal")
)

// ConsistencyReport summarizes a ledger consistency check.
type ConsistencyReport struct {
	TotalBalance     decimal.Decimal
	TotalEntryAmount decimal.Decimal
	NegativeAccounts int64
	Accounts         int64
	Consistent       bool
}

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
	}
}

// CheckConsistency verifies that the sum of balances equals the sum of all
// journal entries and that no balance is negative. An inconsistent ledger
// returns the report together with ErrInconsistentLedger.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	totals, err := uc.ledgerRepo.Totals(ctx)
	if err != nil {
		return nil, annotate("check_consistency", err, "", "", decimal.Zero)
	}

	report := &ConsistencyReport{
		TotalBalance:     totals.TotalBalance,
		TotalEntryAmount: totals.TotalEntryAmount,
		NegativeAccounts: totals.NegativeAccounts,
		Accounts:         totals.Accounts,
	}

	// Deposits and disbursements enter from outside the ledger, so the
	// balance total is not zero. It must equal the journal total instead.
	report.Consistent = totals.TotalBalance.Equal(totals.TotalEntryAmount) && totals.NegativeAccounts == 0
	if !report.Consistent {
		return report, ErrInconsistentLedger
	}

	return report, nil
}
