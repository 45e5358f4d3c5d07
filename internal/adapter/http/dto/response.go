package dto

import (
	"errors"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Balance       string    `json:"balance"`
	HasLoan       bool      `json:"has_loan"`
	LoanPrincipal string    `json:"loan_principal"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:            a.ID,
		OwnerID:       a.OwnerID,
		Balance:       a.Balance.StringFixed(domain.AmountScale),
		HasLoan:       a.HasLoan,
		LoanPrincipal: a.LoanPrincipal.StringFixed(domain.AmountScale),
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// BalanceResponse is the outcome of a deposit or withdrawal.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// TransferResponse represents a committed transfer and both resulting balances.
type TransferResponse struct {
	ID            string    `json:"id"`
	FromAccountID string    `json:"from_account_id"`
	ToAccountID   string    `json:"to_account_id"`
	Amount        string    `json:"amount"`
	FromBalance   string    `json:"from_balance"`
	ToBalance     string    `json:"to_balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// TransferFromResult converts a transfer result to response.
func TransferFromResult(r *usecase.TransferResult) *TransferResponse {
	return &TransferResponse{
		ID:            r.Transfer.ID,
		FromAccountID: r.Transfer.FromAccountID,
		ToAccountID:   r.Transfer.ToAccountID,
		Amount:        r.Transfer.Amount.StringFixed(domain.AmountScale),
		FromBalance:   r.FromBalance.StringFixed(domain.AmountScale),
		ToBalance:     r.ToBalance.StringFixed(domain.AmountScale),
		CreatedAt:     r.Transfer.CreatedAt,
	}
}

// EntryResponse represents a journal entry in API responses.
type EntryResponse struct {
	ID              string    `json:"id"`
	AccountID       string    `json:"account_id"`
	Kind            string    `json:"kind"`
	Reference       string    `json:"reference,omitempty"`
	Amount          string    `json:"amount"`
	PreviousBalance string    `json:"previous_balance"`
	CurrentBalance  string    `json:"current_balance"`
	AccountVersion  int64     `json:"account_version"`
	CreatedAt       time.Time `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:              e.ID,
		AccountID:       e.AccountID,
		Kind:            string(e.Kind),
		Reference:       e.Reference,
		Amount:          e.Amount.StringFixed(domain.AmountScale),
		PreviousBalance: e.PreviousBalance.StringFixed(domain.AmountScale),
		CurrentBalance:  e.CurrentBalance.StringFixed(domain.AmountScale),
		AccountVersion:  e.AccountVersion,
		CreatedAt:       e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ListEntriesResponse is a page of an account journal.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// LoanResponse represents a loan in API responses.
type LoanResponse struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	Principal      string     `json:"principal"`
	InterestRate   string     `json:"interest_rate"`
	TotalRepayable string     `json:"total_repayable"`
	Status         string     `json:"status"`
	RequestedAt    time.Time  `json:"requested_at"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
}

// LoanFromDomain converts domain loan to response.
func LoanFromDomain(l *domain.Loan) *LoanResponse {
	return &LoanResponse{
		ID:             l.ID,
		OwnerID:        l.OwnerID,
		Principal:      l.Principal.StringFixed(domain.AmountScale),
		InterestRate:   l.InterestRate.String(),
		TotalRepayable: l.TotalRepayable.StringFixed(domain.AmountScale),
		Status:         string(l.Status),
		RequestedAt:    l.RequestedAt,
		ApprovedAt:     l.ApprovedAt,
		DecidedAt:      l.DecidedAt,
	}
}

// ListLoansResponse is a loan listing.
type ListLoansResponse struct {
	Loans []*LoanResponse `json:"loans"`
	Total int             `json:"total"`
}

// DecisionResultResponse is one line of a bulk decision.
type DecisionResultResponse struct {
	LoanID string         `json:"loan_id"`
	Loan   *LoanResponse  `json:"loan,omitempty"`
	Error  *ErrorResponse `json:"error,omitempty"`
}

// DecideLoansResponse lists bulk decision outcomes in request order.
type DecideLoansResponse struct {
	Results   []*DecisionResultResponse `json:"results"`
	Succeeded int                       `json:"succeeded"`
	Failed    int                       `json:"failed"`
}

// ConsistencyResponse is a ledger consistency report.
type ConsistencyResponse struct {
	Consistent       bool   `json:"consistent"`
	TotalBalance     string `json:"total_balance"`
	TotalEntryAmount string `json:"total_entry_amount"`
	NegativeAccounts int64  `json:"negative_accounts"`
	Accounts         int64  `json:"accounts"`
}

// ConsistencyFromReport converts a consistency report to response.
func ConsistencyFromReport(r *usecase.ConsistencyReport) *ConsistencyResponse {
	return &ConsistencyResponse{
		Consistent:       r.Consistent,
		TotalBalance:     r.TotalBalance.StringFixed(domain.AmountScale),
		TotalEntryAmount: r.TotalEntryAmount.StringFixed(domain.AmountScale),
		NegativeAccounts: r.NegativeAccounts,
		Accounts:         r.Accounts,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Kind      string `json:"kind,omitempty"`
	AccountID string `json:"account_id,omitempty"`
	LoanID    string `json:"loan_id,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

// ErrorFromDomain describes err with the kind and identifiers it carries.
func ErrorFromDomain(message string, err error) *ErrorResponse {
	resp := &ErrorResponse{
		Error:   message,
		Message: err.Error(),
		Kind:    string(domain.KindOf(err)),
	}

	var de *domain.Error
	if errors.As(err, &de) {
		resp.AccountID = de.AccountID
		resp.LoanID = de.LoanID
		if !de.Amount.IsZero() {
			resp.Amount = de.Amount.StringFixed(domain.AmountScale)
		}
	}

	return resp
}
