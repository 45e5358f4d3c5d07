package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
)

// OpenAccountRequest represents a request to open an account.
type OpenAccountRequest struct {
	OwnerID string `json:"owner_id"`
}

// AmountRequest is the body of a deposit or withdrawal.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateTransferRequest represents a request to create a transfer.
type CreateTransferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// RequestLoanRequest represents a loan application.
type RequestLoanRequest struct {
	OwnerID string          `json:"owner_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// DecideLoanRequest carries an administrative verdict on one loan.
type DecideLoanRequest struct {
	Decision string `json:"decision"`
}

// LoanDecision converts the verdict to its domain form.
func (r *DecideLoanRequest) LoanDecision() domain.LoanDecision {
	return domain.LoanDecision(r.Decision)
}

// DecideLoansRequest applies one verdict to several loans.
type DecideLoansRequest struct {
	LoanIDs  []string `json:"loan_ids"`
	Decision string   `json:"decision"`
}

// LoanDecision converts the verdict to its domain form.
func (r *DecideLoansRequest) LoanDecision() domain.LoanDecision {
	return domain.LoanDecision(r.Decision)
}
