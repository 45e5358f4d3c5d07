package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/lock"
	"github.com/iho/bankledger/internal/adapter/repository/memory"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/retry"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

// testLedger wires the use cases over the memory driver and local locks.
type testLedger struct {
	store    *memory.Store
	outbox   *memory.OutboxRepository
	loanRepo *memory.LoanRepository
	numbers  *mocks.MockAccountNumberGenerator

	accounts     *usecase.AccountUseCase
	transactions *usecase.TransactionUseCase
	loans        *usecase.LoanUseCase
	ledger       *usecase.LedgerUseCase
}

func newTestLedger(t *testing.T, numbers ...string) *testLedger {
	t.Helper()

	store := memory.NewStore()
	accountRepo := memory.NewAccountRepository(store)
	entryRepo := memory.NewEntryRepository(store)
	loanRepo := memory.NewLoanRepository(store)
	outboxRepo := memory.NewOutboxRepository(store)
	idGen := mocks.NewMockIDGenerator()
	numberGen := mocks.NewMockAccountNumberGenerator(numbers...)

	guard := usecase.NewGuard(
		memory.NewTxManager(store),
		lock.NewLocalLockManager(lock.DefaultTimeout, nil),
		retry.NewRetrier(zerolog.Nop(),
			retry.WithMaxRetries(50),
			retry.WithIntervals(time.Millisecond, 10*time.Millisecond, 5*time.Second),
		),
	)

	accounts := usecase.NewAccountUseCase(guard, accountRepo, entryRepo, outboxRepo, numberGen, idGen, zerolog.Nop(), nil)

	return &testLedger{
		store:        store,
		outbox:       outboxRepo,
		loanRepo:     loanRepo,
		numbers:      numberGen,
		accounts:     accounts,
		transactions: usecase.NewTransactionUseCase(guard, accounts, accountRepo, outboxRepo, idGen, zerolog.Nop(), nil),
		loans:        usecase.NewLoanUseCase(guard, accounts, accountRepo, loanRepo, outboxRepo, idGen, domain.DefaultInterestRate, zerolog.Nop(), nil),
		ledger:       usecase.NewLedgerUseCase(memory.NewLedgerRepository(store)),
	}
}

func (l *testLedger) open(t *testing.T, owner string, balance string) *domain.Account {
	t.Helper()
	ctx := context.Background()

	acc, err := l.accounts.OpenAccount(ctx, owner)
	if err != nil {
		t.Fatalf("open account for %s: %v", owner, err)
	}

	if balance != "" && balance != "0" {
		if _, err := l.transactions.Deposit(ctx, acc.ID, dec(balance)); err != nil {
			t.Fatalf("seed deposit for %s: %v", owner, err)
		}
	}

	return acc
}

func (l *testLedger) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	acc, err := l.accounts.GetAccount(context.Background(), id)
	if err != nil {
		t.Fatalf("get account %s: %v", id, err)
	}
	return acc.Balance
}

func (l *testLedger) assertConsistent(t *testing.T) {
	t.Helper()
	report, err := l.ledger.CheckConsistency(context.Background())
	if err != nil {
		t.Fatalf("ledger inconsistent: %v (%+v)", err, report)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertKind(t *testing.T, err error, want domain.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := domain.KindOf(err); got != want {
		t.Fatalf("expected kind %s, got %s (%v)", want, got, err)
	}
}
