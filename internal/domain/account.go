package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account numbers are drawn from the fixed 8-digit space.
const (
	AccountNumberMin    = 10000000
	AccountNumberMax    = 99999999
	AccountNumberDigits = 8
)

// Account represents a customer account that holds a balance.
type Account struct {
	ID            string
	OwnerID       string
	Balance       decimal.Decimal
	HasLoan       bool
	LoanPrincipal decimal.Decimal
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateDelta checks that the account can absorb a signed balance change.
func (a *Account) ValidateDelta(delta decimal.Decimal) error {
	if a.Balance.Add(delta).IsNegative() {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDelta returns the balance after a signed change.
func (a *Account) ApplyDelta(delta decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(delta)
}

// Snapshot returns a copy that callers may keep without aliasing store state.
func (a *Account) Snapshot() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
