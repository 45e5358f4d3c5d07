package usecase_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
	"github.com/iho/bankledger/internal/usecase/mocks"
)

func TestLoanUseCase_RequestLoan(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	loan, err := l.loans.RequestLoan(ctx, "alice", dec("1000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loan.Status != domain.LoanStatusPending {
		t.Errorf("status = %s, want pending", loan.Status)
	}
	if !loan.TotalRepayable.Equal(dec("1050.00")) {
		t.Errorf("total repayable = %s, want 1050.00", loan.TotalRepayable)
	}
	if loan.ApprovedAt != nil || loan.DecidedAt != nil {
		t.Errorf("pending loan must have no decision times")
	}

	stored, err := l.loans.GetLoan(ctx, loan.ID)
	if err != nil || stored.Status != domain.LoanStatusPending {
		t.Fatalf("stored loan: %v %+v", err, stored)
	}
}

func TestLoanUseCase_RequestLoanValidation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.loans.RequestLoan(ctx, "alice", dec("0"))
	assertKind(t, err, domain.KindInvalidAmount)

	_, err = l.loans.RequestLoan(ctx, "alice", dec("10.001"))
	assertKind(t, err, domain.KindInvalidAmount)

	_, err = l.loans.RequestLoan(ctx, " ", dec("10"))
	assertKind(t, err, domain.KindInvalidOperation)
}

func TestLoanUseCase_ApproveDisburses(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	acc := l.open(t, "alice", "10")

	loan, err := l.loans.RequestLoan(ctx, "alice", dec("500"))
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	decided, err := l.loans.DecideLoan(ctx, loan.ID, domain.LoanDecisionApprove)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decided.Status != domain.LoanStatusApproved || decided.ApprovedAt == nil || decided.DecidedAt == nil {
		t.Fatalf("unexpected decided loan: %+v", decided)
	}

	account, _ := l.accounts.GetAccount(ctx, acc.ID)
	if !account.Balance.Equal(dec("510")) {
		t.Errorf("balance = %s, want 510", account.Balance)
	}
	if !account.HasLoan || !account.LoanPrincipal.Equal(dec("500")) {
		t.Errorf("loan not recorded on account: %+v", account)
	}

	entries, _ := l.accounts.ListEntries(ctx, acc.ID, 1, 0)
	if entries[0].Kind != domain.EntryKindLoanDisbursement || entries[0].Reference != loan.ID {
		t.Errorf("unexpected disbursement entry: %+v", entries[0])
	}

	l.assertConsistent(t)
}

func TestLoanUseCase_Reject(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	acc := l.open(t, "alice", "10")
	loan, _ := l.loans.RequestLoan(ctx, "alice", dec("500"))

	decided, err := l.loans.DecideLoan(ctx, loan.ID, domain.LoanDecisionReject)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if decided.Status != domain.LoanStatusRejected || decided.ApprovedAt != nil || decided.DecidedAt == nil {
		t.Fatalf("unexpected rejected loan: %+v", decided)
	}
	if !l.balance(t, acc.ID).Equal(dec("10")) {
		t.Fatalf("rejection must not move funds")
	}

	_, err = l.loans.DecideLoan(ctx, loan.ID, domain.LoanDecisionApprove)
	assertKind(t, err, domain.KindAlreadyDecided)
}

func TestLoanUseCase_DecideLoanFailures(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	loan, _ := l.loans.RequestLoan(ctx, "no-account", dec("100"))

	_, err := l.loans.DecideLoan(ctx, loan.ID, domain.LoanDecision("maybe"))
	assertKind(t, err, domain.KindInvalidOperation)

	_, err = l.loans.DecideLoan(ctx, "missing", domain.LoanDecisionApprove)
	assertKind(t, err, domain.KindNotFound)

	_, err = l.loans.DecideLoan(ctx, loan.ID, domain.LoanDecisionApprove)
	assertKind(t, err, domain.KindNotFound)

	stored, _ := l.loans.GetLoan(ctx, loan.ID)
	if stored.Status != domain.LoanStatusPending {
		t.Fatalf("failed approval must leave the loan pending, got %s", stored.Status)
	}

	if _, err := l.loans.DecideLoan(ctx, loan.ID, domain.LoanDecisionReject); err != nil {
		t.Fatalf("rejecting without an account should succeed: %v", err)
	}
}

func TestLoanUseCase_ConcurrentApprovalDisbursesOnce(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	acc := l.open(t, "alice", "")
	loan, _ := l.loans.RequestLoan(ctx, "alice", dec("1000"))

	const n = 25
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		won int
	)
	wg.Add(n)
	for i := range n {
		decision := domain.LoanDecisionApprove
		if i%5 == 4 {
			decision = domain.LoanDecisionReject
		}
		go func() {
			defer wg.Done()
			_, err := l.loans.DecideLoan(ctx, loan.ID, decision)
			if err == nil {
				mu.Lock()
				won++
				mu.Unlock()
				return
			}
			if domain.KindOf(err) != domain.KindAlreadyDecided {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Fatalf("expected exactly one decision to win, got %d", won)
	}

	stored, _ := l.loans.GetLoan(ctx, loan.ID)
	balance := l.balance(t, acc.ID)
	switch stored.Status {
	case domain.LoanStatusApproved:
		if !balance.Equal(dec("1000")) {
			t.Fatalf("approved loan disbursed %s, want 1000", balance)
		}
	case domain.LoanStatusRejected:
		if !balance.IsZero() {
			t.Fatalf("rejected loan disbursed %s", balance)
		}
	default:
		t.Fatalf("loan still %s", stored.Status)
	}
	l.assertConsistent(t)
}

func TestLoanUseCase_DecideLoans(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	l.open(t, "alice", "")
	first, _ := l.loans.RequestLoan(ctx, "alice", dec("100"))
	second, _ := l.loans.RequestLoan(ctx, "alice", dec("200"))

	results, err := l.loans.DecideLoans(ctx, []string{first.ID, "missing", second.ID, first.ID}, domain.LoanDecisionApprove)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("expected both loans approved: %v / %v", results[0].Err, results[2].Err)
	}
	if domain.KindOf(results[1].Err) != domain.KindNotFound {
		t.Errorf("expected not found for missing loan, got %v", results[1].Err)
	}
	if domain.KindOf(results[3].Err) != domain.KindAlreadyDecided {
		t.Errorf("expected already decided on repeat, got %v", results[3].Err)
	}

	acc, _ := l.accounts.GetAccountByOwner(ctx, "alice")
	if !acc.Balance.Equal(dec("300")) || !acc.LoanPrincipal.Equal(dec("300")) {
		t.Fatalf("unexpected account after bulk approval: %+v", acc)
	}
}

func TestLoanUseCase_DecideLoansLimits(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	_, err := l.loans.DecideLoans(ctx, []string{"a"}, domain.LoanDecision(""))
	assertKind(t, err, domain.KindInvalidOperation)

	ids := make([]string, usecase.MaxBulkDecisions+1)
	_, err = l.loans.DecideLoans(ctx, ids, domain.LoanDecisionReject)
	assertKind(t, err, domain.KindInvalidOperation)
}

func TestLoanUseCase_ListLoansPages(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	const total = usecase.LoanPageSize*2 + 17
	var want []string
	for i := range total {
		owner := "alice"
		if i%3 == 0 {
			owner = "bob"
		}
		loan, err := l.loans.RequestLoan(ctx, owner, dec("10"))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		want = append(want, loan.ID)
	}
	slices.Sort(want)

	var got []string
	for loan, err := range l.loans.ListLoans(ctx, usecase.LoanFilter{}) {
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		got = append(got, loan.ID)
	}
	if !slices.Equal(got, want) {
		t.Fatalf("listing mismatch: got %d loans, want %d", len(got), len(want))
	}

	bobs := 0
	for loan, err := range l.loans.ListLoans(ctx, usecase.LoanFilter{OwnerID: "bob"}) {
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if loan.OwnerID != "bob" {
			t.Fatalf("filter leaked loan of %s", loan.OwnerID)
		}
		bobs++
	}
	if bobs != (total+2)/3 {
		t.Fatalf("expected %d loans for bob, got %d", (total+2)/3, bobs)
	}

	seen := 0
	for range l.loans.ListLoans(ctx, usecase.LoanFilter{Status: domain.LoanStatusPending}) {
		seen++
		if seen == 3 {
			break
		}
	}
	if seen != 3 {
		t.Fatalf("early break not honored")
	}
}

func TestLoanUseCase_ListLoansInvalidStatus(t *testing.T) {
	l := newTestLedger(t)

	for _, err := range l.loans.ListLoans(context.Background(), usecase.LoanFilter{Status: "paid"}) {
		assertKind(t, err, domain.KindInvalidOperation)
		return
	}
	t.Fatal("expected an error from the listing")
}

func TestLoanUseCase_ListLoansStorageError(t *testing.T) {
	loans := mocks.NewMockLoanRepository()
	loans.ListFunc = func(ctx context.Context, filter usecase.LoanFilter, afterID string, limit int) ([]*domain.Loan, error) {
		return nil, errors.New("timeout")
	}
	guard := usecase.NewGuard(mocks.NewMockTransactionManager(), mocks.PassthroughLockManager{}, mocks.PassthroughRetrier{})
	uc := usecase.NewLoanUseCase(guard, nil, mocks.NewMockAccountRepository(), loans, mocks.NewMockOutboxRepository(),
		mocks.NewMockIDGenerator(), domain.DefaultInterestRate, zerolog.Nop(), nil)

	for _, err := range uc.ListLoans(context.Background(), usecase.LoanFilter{}) {
		assertKind(t, err, domain.KindStorageFailure)
		return
	}
	t.Fatal("expected an error from the listing")
}
