package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer represents a money movement between two accounts.
// It is applied as a debit leg and a credit leg in one atomic unit.
type Transfer struct {
	ID            string
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	CreatedAt     time.Time
}

// Validate validates transfer request. Amount is checked before the accounts.
func (t *Transfer) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}

	if t.FromAccountID == t.ToAccountID {
		return ErrSameAccount
	}

	return nil
}
