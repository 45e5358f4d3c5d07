package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

type loanServiceStub struct {
	requestFn    func(ctx context.Context, ownerID string, amount decimal.Decimal) (*domain.Loan, error)
	decideFn     func(ctx context.Context, loanID string, decision domain.LoanDecision) (*domain.Loan, error)
	decideBulkFn func(ctx context.Context, loanIDs []string, decision domain.LoanDecision) ([]usecase.DecisionResult, error)
	getFn        func(ctx context.Context, id string) (*domain.Loan, error)
	listFn       func(ctx context.Context, filter usecase.LoanFilter) iter.Seq2[*domain.Loan, error]
}

func (s *loanServiceStub) RequestLoan(ctx context.Context, ownerID string, amount decimal.Decimal) (*domain.Loan, error) {
	return s.requestFn(ctx, ownerID, amount)
}

func (s *loanServiceStub) DecideLoan(ctx context.Context, loanID string, decision domain.LoanDecision) (*domain.Loan, error) {
	return s.decideFn(ctx, loanID, decision)
}

func (s *loanServiceStub) DecideLoans(ctx context.Context, loanIDs []string, decision domain.LoanDecision) ([]usecase.DecisionResult, error) {
	return s.decideBulkFn(ctx, loanIDs, decision)
}

func (s *loanServiceStub) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	return s.getFn(ctx, id)
}

func (s *loanServiceStub) ListLoans(ctx context.Context, filter usecase.LoanFilter) iter.Seq2[*domain.Loan, error] {
	return s.listFn(ctx, filter)
}

func pendingLoan(t *testing.T, id string) *domain.Loan {
	t.Helper()
	loan, err := domain.NewLoan(id, "alice", decimal.NewFromInt(1000), decimal.NewFromInt(5), time.Now())
	if err != nil {
		t.Fatalf("NewLoan: %v", err)
	}
	return loan
}

func TestLoanHandler_Request(t *testing.T) {
	handler := NewLoanHandler(&loanServiceStub{
		requestFn: func(ctx context.Context, ownerID string, amount decimal.Decimal) (*domain.Loan, error) {
			if ownerID != "alice" || !amount.Equal(decimal.NewFromInt(1000)) {
				t.Fatalf("unexpected request args %s %s", ownerID, amount)
			}
			return pendingLoan(t, "loan-1"), nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/loans", bytes.NewBufferString(`{"owner_id":"alice","amount":1000}`))
	rec := httptest.NewRecorder()

	handler.Request(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.LoanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalRepayable != "1050.00" || resp.Status != "pending" {
		t.Fatalf("unexpected loan response: %+v", resp)
	}
}

func TestLoanHandler_Decide_AlreadyDecided(t *testing.T) {
	handler := NewLoanHandler(&loanServiceStub{
		decideFn: func(ctx context.Context, loanID string, decision domain.LoanDecision) (*domain.Loan, error) {
			if decision != domain.LoanDecisionApprove {
				t.Fatalf("expected approve, got %s", decision)
			}
			return nil, &domain.Error{Op: "decide_loan", Kind: domain.ErrAlreadyDecided, LoanID: loanID}
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/loans/loan-1/decision", bytes.NewBufferString(`{"decision":"approve"}`))
	req = setChiURLParam(req, "id", "loan-1")
	rec := httptest.NewRecorder()

	handler.Decide(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.LoanID != "loan-1" || resp.Kind != "already_decided" {
		t.Fatalf("unexpected error body: %+v", resp)
	}
}

func TestLoanHandler_DecideBulk(t *testing.T) {
	approved := pendingLoan(t, "loan-1")
	if err := approved.Decide(domain.LoanDecisionApprove, time.Now()); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	handler := NewLoanHandler(&loanServiceStub{
		decideBulkFn: func(ctx context.Context, loanIDs []string, decision domain.LoanDecision) ([]usecase.DecisionResult, error) {
			return []usecase.DecisionResult{
				{LoanID: "loan-1", Loan: approved},
				{LoanID: "loan-2", Err: &domain.Error{Kind: domain.ErrLoanNotFound, LoanID: "loan-2"}},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/loans/decisions",
		bytes.NewBufferString(`{"loan_ids":["loan-1","loan-2"],"decision":"approve"}`))
	rec := httptest.NewRecorder()

	handler.DecideBulk(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.DecideLoansResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Succeeded != 1 || resp.Failed != 1 || len(resp.Results) != 2 {
		t.Fatalf("unexpected bulk response: %+v", resp)
	}
	if resp.Results[0].Loan == nil || resp.Results[0].Loan.Status != "approved" {
		t.Fatalf("expected first loan approved, got %+v", resp.Results[0])
	}
	if resp.Results[1].Error == nil || resp.Results[1].Error.Kind != "not_found" {
		t.Fatalf("expected second loan not found, got %+v", resp.Results[1])
	}
}

func TestLoanHandler_DecideBulk_Rejected(t *testing.T) {
	handler := NewLoanHandler(&loanServiceStub{
		decideBulkFn: func(ctx context.Context, loanIDs []string, decision domain.LoanDecision) ([]usecase.DecisionResult, error) {
			return nil, &domain.Error{Op: "decide_loans", Kind: domain.ErrInvalidDecision}
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/loans/decisions",
		bytes.NewBufferString(`{"loan_ids":["loan-1"],"decision":"maybe"}`))
	rec := httptest.NewRecorder()

	handler.DecideBulk(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestLoanHandler_List(t *testing.T) {
	handler := NewLoanHandler(&loanServiceStub{
		listFn: func(ctx context.Context, filter usecase.LoanFilter) iter.Seq2[*domain.Loan, error] {
			if filter.OwnerID != "alice" || filter.Status != domain.LoanStatusPending {
				t.Fatalf("unexpected filter %+v", filter)
			}
			return func(yield func(*domain.Loan, error) bool) {
				for _, id := range []string{"loan-1", "loan-2"} {
					if !yield(pendingLoan(t, id), nil) {
						return
					}
				}
			}
		},
	})

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/loans?owner_id=alice&status=pending", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp dto.ListLoansResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Loans) != 2 {
		t.Fatalf("expected 2 loans, got %+v", resp)
	}
}

func TestLoanHandler_List_Error(t *testing.T) {
	handler := NewLoanHandler(&loanServiceStub{
		listFn: func(ctx context.Context, filter usecase.LoanFilter) iter.Seq2[*domain.Loan, error] {
			return func(yield func(*domain.Loan, error) bool) {
				yield(nil, domain.Wrap("list_loans", errors.New("connection reset")))
			}
		},
	})

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/loans", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
