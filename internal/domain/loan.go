package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan. Approved and rejected are terminal.
type LoanStatus string

const (
	LoanStatusPending  LoanStatus = "pending"
	LoanStatusApproved LoanStatus = "approved"
	LoanStatusRejected LoanStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusRejected:
		return true
	}
	return false
}

// LoanDecision is an administrative verdict on a pending loan.
type LoanDecision string

const (
	LoanDecisionApprove LoanDecision = "approve"
	LoanDecisionReject  LoanDecision = "reject"
)

// Valid reports whether d is approve or reject.
func (d LoanDecision) Valid() bool {
	return d == LoanDecisionApprove || d == LoanDecisionReject
}

// DefaultInterestRate is the percentage applied to new loans unless configured otherwise.
var DefaultInterestRate = decimal.NewFromInt(5)

var hundred = decimal.NewFromInt(100)

// Loan is a borrower's request for funds and its decision history.
type Loan struct {
	ID             string
	OwnerID        string
	Principal      decimal.Decimal
	InterestRate   decimal.Decimal
	TotalRepayable decimal.Decimal
	Status         LoanStatus
	RequestedAt    time.Time
	ApprovedAt     *time.Time
	DecidedAt      *time.Time
	UpdatedAt      time.Time
}

// NewLoan builds a pending loan with its total repayable fixed from principal and rate.
func NewLoan(id, ownerID string, principal, rate decimal.Decimal, now time.Time) (*Loan, error) {
	if err := ValidateAmount(principal); err != nil {
		return nil, err
	}
	if err := ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}
	if rate.IsNegative() {
		return nil, ErrInvalidInterestRate
	}

	return &Loan{
		ID:             id,
		OwnerID:        ownerID,
		Principal:      principal,
		InterestRate:   rate,
		TotalRepayable: TotalRepayable(principal, rate),
		Status:         LoanStatusPending,
		RequestedAt:    now,
		UpdatedAt:      now,
	}, nil
}

// TotalRepayable computes principal × (1 + rate/100) with banker's rounding to cents.
func TotalRepayable(principal, rate decimal.Decimal) decimal.Decimal {
	return principal.Mul(hundred.Add(rate)).Div(hundred).RoundBank(2)
}

// Decide moves a pending loan to its terminal state.
func (l *Loan) Decide(decision LoanDecision, at time.Time) error {
	if !decision.Valid() {
		return ErrInvalidDecision
	}
	if l.Status != LoanStatusPending {
		return ErrAlreadyDecided
	}

	switch decision {
	case LoanDecisionApprove:
		l.Status = LoanStatusApproved
		l.ApprovedAt = &at
	case LoanDecisionReject:
		l.Status = LoanStatusRejected
	}

	l.DecidedAt = &at
	l.UpdatedAt = at

	return nil
}

// Snapshot returns a copy that callers may keep without aliasing store state.
func (l *Loan) Snapshot() *Loan {
	if l == nil {
		return nil
	}
	cp := *l
	if l.ApprovedAt != nil {
		t := *l.ApprovedAt
		cp.ApprovedAt = &t
	}
	if l.DecidedAt != nil {
		t := *l.DecidedAt
		cp.DecidedAt = &t
	}
	return &cp
}
