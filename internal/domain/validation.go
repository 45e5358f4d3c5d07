package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxOwnerIDLength = 255
	AmountScale      = 2
	DefaultPageSize  = 20
	MaxPageSize      = 100
)

// MaxAmount bounds a single deposit, withdrawal, transfer or loan.
var MaxAmount = decimal.RequireFromString("1000000000000")

// Representation limits checked before any arithmetic. Rescaling a value
// such as 1e-20000000 costs time and memory proportional to its exponent.
const (
	minAmountExponent = -18
	maxAmountDigits   = 13
)

// ValidateAmount requires a positive amount with at most two decimal places
// that does not exceed MaxAmount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	if amount.Exponent() < minAmountExponent {
		return fmt.Errorf("%w: at most %d decimal places allowed", ErrInvalidAmount, AmountScale)
	}

	if int64(amount.NumDigits())+int64(amount.Exponent()) > maxAmountDigits {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxAmount.String())
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places allowed", ErrInvalidAmount, AmountScale)
	}

	if amount.GreaterThan(MaxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxAmount.String())
	}

	return nil
}

// ValidateOwnerID validates an owner reference.
func ValidateOwnerID(ownerID string) error {
	ownerID = strings.TrimSpace(ownerID)

	if ownerID == "" {
		return ErrEmptyOwner
	}

	if len(ownerID) > MaxOwnerIDLength {
		return fmt.Errorf("%w: owner exceeds %d characters", ErrInvalidOperation, MaxOwnerIDLength)
	}

	return nil
}

// ValidAccountNumber reports whether id is an 8-digit account number.
func ValidAccountNumber(id string) bool {
	if len(id) != AccountNumberDigits || id[0] == '0' {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
