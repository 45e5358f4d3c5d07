package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

func TestLedgerUseCase_CheckConsistency(t *testing.T) {
	tests := []struct {
		name        string
		totals      usecase.LedgerTotals
		repoErr     error
		want        bool
		expectedErr error
	}{
		{
			name: "empty ledger",
			want: true,
		},
		{
			name: "balances match journal",
			totals: usecase.LedgerTotals{
				TotalBalance:     decimal.RequireFromString("1250.75"),
				TotalEntryAmount: decimal.RequireFromString("1250.75"),
				Accounts:         3,
			},
			want: true,
		},
		{
			name:        "repo error surfaces",
			repoErr:     errors.New("db down"),
			expectedErr: domain.ErrStorageFailure,
		},
		{
			name: "balance drift",
			totals: usecase.LedgerTotals{
				TotalBalance:     decimal.NewFromInt(10),
				TotalEntryAmount: decimal.Zero,
			},
			expectedErr: usecase.ErrInconsistentLedger,
		},
		{
			name: "negative account",
			totals: usecase.LedgerTotals{
				TotalBalance:     decimal.Zero,
				TotalEntryAmount: decimal.Zero,
				NegativeAccounts: 1,
			},
			expectedErr: usecase.ErrInconsistentLedger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockLedgerRepository()
			repo.TotalsFunc = func(ctx context.Context) (usecase.LedgerTotals, error) {
				return tt.totals, tt.repoErr
			}

			report, err := usecase.NewLedgerUseCase(repo).CheckConsistency(context.Background())
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected %v, got %v", tt.expectedErr, err)
				}
				if report != nil && report.Consistent {
					t.Fatalf("report must not be consistent")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.Consistent != tt.want {
				t.Fatalf("consistent = %v, want %v", report.Consistent, tt.want)
			}
		})
	}
}
