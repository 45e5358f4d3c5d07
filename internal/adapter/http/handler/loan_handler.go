package handler

import (
	"context"
	"iter"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/adapter/http/dto"
	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// LoanService defines the behavior needed by LoanHandler.
type LoanService interface {
	RequestLoan(ctx context.Context, ownerID string, amount decimal.Decimal) (*domain.Loan, error)
	DecideLoan(ctx context.Context, loanID string, decision domain.LoanDecision) (*domain.Loan, error)
	DecideLoans(ctx context.Context, loanIDs []string, decision domain.LoanDecision) ([]usecase.DecisionResult, error)
	GetLoan(ctx context.Context, id string) (*domain.Loan, error)
	ListLoans(ctx context.Context, filter usecase.LoanFilter) iter.Seq2[*domain.Loan, error]
}

// LoanHandler handles loan requests and administrative decisions.
type LoanHandler struct {
	loanUC LoanService
}

// NewLoanHandler creates a new LoanHandler.
func NewLoanHandler(loanUC LoanService) *LoanHandler {
	return &LoanHandler{loanUC: loanUC}
}

// Request records a pending loan.
func (h *LoanHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req dto.RequestLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	loan, err := h.loanUC.RequestLoan(r.Context(), req.OwnerID, req.Amount)
	if err != nil {
		writeDomainError(w, "failed to request loan", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.LoanFromDomain(loan))
}

// Get retrieves a loan by ID.
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	loan, err := h.loanUC.GetLoan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// List lists loans, optionally filtered by owner_id and status.
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := usecase.LoanFilter{
		OwnerID: r.URL.Query().Get("owner_id"),
		Status:  domain.LoanStatus(r.URL.Query().Get("status")),
	}

	loans := make([]*dto.LoanResponse, 0)
	for loan, err := range h.loanUC.ListLoans(r.Context(), filter) {
		if err != nil {
			writeDomainError(w, "failed to list loans", err)
			return
		}
		loans = append(loans, dto.LoanFromDomain(loan))
	}

	writeJSON(w, http.StatusOK, dto.ListLoansResponse{
		Loans: loans,
		Total: len(loans),
	})
}

// Decide approves or rejects one pending loan.
func (h *LoanHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req dto.DecideLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	loan, err := h.loanUC.DecideLoan(r.Context(), chi.URLParam(r, "id"), req.LoanDecision())
	if err != nil {
		writeDomainError(w, "failed to decide loan", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.LoanFromDomain(loan))
}

// DecideBulk applies one verdict to several loans. Each loan succeeds or
// fails on its own; the response lists every outcome in request order.
func (h *LoanHandler) DecideBulk(w http.ResponseWriter, r *http.Request) {
	var req dto.DecideLoansRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if len(req.LoanIDs) == 0 {
		writeError(w, http.StatusBadRequest, "loan_ids is required", "")
		return
	}

	results, err := h.loanUC.DecideLoans(r.Context(), req.LoanIDs, req.LoanDecision())
	if err != nil && len(results) == 0 {
		writeDomainError(w, "failed to decide loans", err)
		return
	}

	resp := dto.DecideLoansResponse{Results: make([]*dto.DecisionResultResponse, 0, len(results))}
	for _, res := range results {
		line := &dto.DecisionResultResponse{LoanID: res.LoanID}
		if res.Err != nil {
			line.Error = dto.ErrorFromDomain("decision failed", res.Err)
			resp.Failed++
		} else {
			line.Loan = dto.LoanFromDomain(res.Loan)
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, line)
	}

	writeJSON(w, http.StatusOK, resp)
}
