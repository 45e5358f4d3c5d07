package postgres

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

var accountColumns = []string{"id", "owner_id", "balance", "has_loan", "loan_principal", "version", "created_at", "updated_at"}

func beginTx(t *testing.T, pool pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()
	pool.ExpectBegin()
	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	return tx
}

// anyArgs matches n query arguments of any value.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func testAccount() *domain.Account {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.Account{
		ID:            "12345678",
		OwnerID:       "alice",
		Balance:       decimal.Zero,
		LoanPrincipal: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestAccountCreateMapsUniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{constraintAccountsPkey, domain.ErrAccountNumberTaken},
		{constraintAccountsOwner, domain.ErrDuplicateAccount},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			pool := newMockPool(t)
			tx := beginTx(t, pool)
			pool.ExpectExec("INSERT INTO accounts").
				WithArgs(anyArgs(8)...).
				WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: tt.constraint})

			err := newAccountRepository(pool).Create(context.Background(), tx, testAccount())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			assertExpectations(t, pool)
		})
	}
}

func TestAccountCreateSuccess(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	acc := testAccount()
	pool.ExpectExec("INSERT INTO accounts").
		WithArgs(acc.ID, acc.OwnerID, pgxmock.AnyArg(), false, pgxmock.AnyArg(), int64(0), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := newAccountRepository(pool).Create(context.Background(), tx, acc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, pool)
}

func TestAccountGetByIDScansRow(t *testing.T) {
	pool := newMockPool(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pool.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("12345678").
		WillReturnRows(pgxmock.NewRows(accountColumns).
			AddRow("12345678", "alice", "150.25", true, "100.00", int64(3), now, now))

	acc, err := newAccountRepository(pool).GetByID(context.Background(), "12345678")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !acc.Balance.Equal(decimal.RequireFromString("150.25")) {
		t.Errorf("balance = %s, want 150.25", acc.Balance)
	}
	if !acc.HasLoan || !acc.LoanPrincipal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected loan fields: %+v", acc)
	}
	if acc.Version != 3 || acc.OwnerID != "alice" {
		t.Errorf("unexpected account: %+v", acc)
	}
	assertExpectations(t, pool)
}

func TestAccountGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("87654321").
		WillReturnError(pgx.ErrNoRows)

	_, err := newAccountRepository(pool).GetByID(context.Background(), "87654321")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccountGetByOwnerNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("SELECT (.+) FROM accounts WHERE owner_id").
		WithArgs("bob").
		WillReturnError(pgx.ErrNoRows)

	_, err := newAccountRepository(pool).GetByOwner(context.Background(), "bob")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestAccountUpdateVersionMismatch(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	acc := testAccount()
	acc.Version = 2
	pool.ExpectExec("UPDATE accounts").
		WithArgs(acc.ID, pgxmock.AnyArg(), false, pgxmock.AnyArg(), int64(2), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := newAccountRepository(pool).Update(context.Background(), tx, acc)
	if !errors.Is(err, domain.ErrConcurrentUpdate) {
		t.Fatalf("expected concurrent update, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestAccountUpdateCheckViolation(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec("UPDATE accounts").
		WithArgs(anyArgs(6)...).
		WillReturnError(&pgconn.PgError{Code: pgErrCheckViolation})

	err := newAccountRepository(pool).Update(context.Background(), tx, testAccount())
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestAccountGetByIDsForUpdate(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	now := time.Now().UTC()
	pool.ExpectQuery("FOR UPDATE").
		WithArgs([]string{"11111111", "22222222"}).
		WillReturnRows(pgxmock.NewRows(accountColumns).
			AddRow("11111111", "a", "10.00", false, "0", int64(1), now, now).
			AddRow("22222222", "b", "20.00", false, "0", int64(1), now, now))

	accounts, err := newAccountRepository(pool).GetByIDsForUpdate(context.Background(), tx, []string{"11111111", "22222222"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(accounts) != 2 || accounts[0].ID != "11111111" || accounts[1].ID != "22222222" {
		t.Fatalf("unexpected accounts: %+v", accounts)
	}
}

type foreignTx struct{}

func (foreignTx) Commit(context.Context) error   { return nil }
func (foreignTx) Rollback(context.Context) error { return nil }

func TestRepositoriesRejectForeignTx(t *testing.T) {
	pool := newMockPool(t)
	ctx := context.Background()

	if err := newAccountRepository(pool).Create(ctx, foreignTx{}, testAccount()); !errors.Is(err, ErrForeignTx) {
		t.Errorf("account create: expected ErrForeignTx, got %v", err)
	}
	if err := newLoanRepository(pool).Create(ctx, foreignTx{}, &domain.Loan{}); !errors.Is(err, ErrForeignTx) {
		t.Errorf("loan create: expected ErrForeignTx, got %v", err)
	}
	if err := newEntryRepository(pool).Create(ctx, foreignTx{}, &domain.Entry{}); !errors.Is(err, ErrForeignTx) {
		t.Errorf("entry create: expected ErrForeignTx, got %v", err)
	}
	if err := newOutboxRepository(pool).Create(ctx, foreignTx{}, &domain.OutboxEvent{}); !errors.Is(err, ErrForeignTx) {
		t.Errorf("outbox create: expected ErrForeignTx, got %v", err)
	}
}

func TestLoanUpdateStatusAlreadyDecided(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	now := time.Now().UTC()
	loan := &domain.Loan{
		ID:         "loan-1",
		Status:     domain.LoanStatusApproved,
		ApprovedAt: &now,
		DecidedAt:  &now,
		UpdatedAt:  now,
	}
	pool.ExpectExec("UPDATE loans").
		WithArgs("loan-1", "approved", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := newLoanRepository(pool).UpdateStatus(context.Background(), tx, loan)
	if !errors.Is(err, domain.ErrAlreadyDecided) {
		t.Fatalf("expected already decided, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestLoanGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM loans WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := newLoanRepository(pool).GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrLoanNotFound) {
		t.Fatalf("expected loan not found, got %v", err)
	}
}

func TestLoanListScansPage(t *testing.T) {
	pool := newMockPool(t)
	now := time.Now().UTC()
	cols := []string{"id", "owner_id", "principal", "interest_rate", "total_repayable", "status", "requested_at", "approved_at", "decided_at", "updated_at"}
	pool.ExpectQuery("FROM loans").
		WithArgs("alice", "pending", "a", int32(2)).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("b", "alice", "1000.00", "5", "1050.00", "pending", now, nil, nil, now).
			AddRow("c", "alice", "10.00", "5", "10.50", "pending", now, nil, nil, now))

	loans, err := newLoanRepository(pool).List(context.Background(), usecase.LoanFilter{
		OwnerID: "alice",
		Status:  domain.LoanStatusPending,
	}, "a", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loans) != 2 {
		t.Fatalf("expected 2 loans, got %d", len(loans))
	}
	if !loans[0].TotalRepayable.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("total repayable = %s", loans[0].TotalRepayable)
	}
	if loans[0].ApprovedAt != nil || loans[0].DecidedAt != nil {
		t.Errorf("pending loan should have no decision times")
	}
}

func TestLedgerTotals(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("total_balance").
		WillReturnRows(pgxmock.NewRows([]string{"total_balance", "total_entry_amount", "negative_accounts", "account_count"}).
			AddRow("300.50", "300.50", int64(0), int64(4)))

	totals, err := newLedgerRepository(pool).Totals(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := decimal.RequireFromString("300.50")
	if !totals.TotalBalance.Equal(want) || !totals.TotalEntryAmount.Equal(want) {
		t.Errorf("unexpected totals: %+v", totals)
	}
	if totals.Accounts != 4 || totals.NegativeAccounts != 0 {
		t.Errorf("unexpected counts: %+v", totals)
	}
}

func TestOutboxCreateMarshalsPayload(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	event := domain.NewOutboxEvent("evt-1", domain.AggregateTypeAccount, "12345678", domain.EventTypeAccountOpened,
		map[string]any{"owner_id": "alice"}, time.Now().UTC())
	pool.ExpectExec("INSERT INTO outbox_events").
		WithArgs("evt-1", "account", "12345678", "account.opened", []byte(`{"owner_id":"alice"}`), pgxmock.AnyArg(), false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := newOutboxRepository(pool).Create(context.Background(), tx, event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, pool)
}

func TestAccountNumberGeneratorRange(t *testing.T) {
	gen := NewAccountNumberGenerator()
	for i := 0; i < 1000; i++ {
		id := gen.Generate()
		n, err := strconv.Atoi(id)
		if err != nil {
			t.Fatalf("non-numeric id %q", id)
		}
		if n < domain.AccountNumberMin || n > domain.AccountNumberMax || !domain.ValidAccountNumber(id) {
			t.Fatalf("id %q out of range", id)
		}
	}
}

func TestULIDGeneratorUnique(t *testing.T) {
	gen := NewULIDGenerator()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := gen.Generate()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}
