package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind sentinels. Every error returned by a ledger operation matches exactly one
// of these through errors.Is.
var (
	ErrDuplicateAccount  = errors.New("owner already has an account")
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidOperation  = errors.New("invalid operation")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyDecided    = errors.New("loan already decided")
	ErrBusy              = errors.New("resource busy, retry later")
	ErrStorageFailure    = errors.New("storage failure")
)

var (
	// Account errors
	ErrAccountNotFound = fmt.Errorf("account %w", ErrNotFound)
	ErrEmptyOwner      = fmt.Errorf("%w: owner is required", ErrInvalidOperation)

	// Transfer errors
	ErrSameAccount = fmt.Errorf("%w: cannot transfer to same account", ErrInvalidOperation)

	// Loan errors
	ErrLoanNotFound        = fmt.Errorf("loan %w", ErrNotFound)
	ErrInvalidDecision     = fmt.Errorf("%w: decision must be approve or reject", ErrInvalidOperation)
	ErrInvalidInterestRate = fmt.Errorf("%w: interest rate must not be negative", ErrInvalidOperation)
	ErrInvalidLoanStatus   = fmt.Errorf("%w: unknown loan status", ErrInvalidOperation)
)

// Storage-level conflicts. These never reach callers unwrapped: the retrier
// absorbs them or they surface as ErrStorageFailure.
var (
	ErrConcurrentUpdate   = errors.New("concurrent update detected")
	ErrAccountNumberTaken = errors.New("account number already taken")
)

// Kind classifies a failure for transports and metrics.
type Kind string

const (
	KindDuplicateAccount  Kind = "duplicate_account"
	KindNotFound          Kind = "not_found"
	KindInvalidAmount     Kind = "invalid_amount"
	KindInvalidOperation  Kind = "invalid_operation"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindAlreadyDecided    Kind = "already_decided"
	KindBusy              Kind = "busy"
	KindStorageFailure    Kind = "storage_failure"
	KindUnknown           Kind = "unknown"
)

var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrDuplicateAccount, KindDuplicateAccount},
	{ErrNotFound, KindNotFound},
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrInvalidOperation, KindInvalidOperation},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrAlreadyDecided, KindAlreadyDecided},
	{ErrBusy, KindBusy},
	{ErrStorageFailure, KindStorageFailure},
}

// KindOf returns the kind of err, or KindUnknown when err carries no kind sentinel.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindUnknown
}

// Error is a failed ledger operation together with the account, loan and
// amount involved. Kind is one of the kind sentinels (or an error wrapping one).
type Error struct {
	Op        string
	Kind      error
	AccountID string
	LoanID    string
	Amount    decimal.Decimal
	Err       error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.AccountID != "" {
		b.WriteString(" account=")
		b.WriteString(e.AccountID)
	}
	if e.LoanID != "" {
		b.WriteString(" loan=")
		b.WriteString(e.LoanID)
	}
	if !e.Amount.IsZero() {
		b.WriteString(" amount=")
		b.WriteString(e.Amount.StringFixed(2))
	}
	if e.Err != nil && e.Err != e.Kind {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil && e.Err != e.Kind {
		errs = append(errs, e.Err)
	}
	return errs
}

// Wrap attaches op context to err. Errors that already carry a kind keep it;
// anything else is classified as a storage failure.
func Wrap(op string, err error) *Error {
	if err == nil {
		return nil
	}

	var de *Error
	if errors.As(err, &de) {
		cp := *de
		if cp.Op == "" {
			cp.Op = op
		}
		return &cp
	}

	if KindOf(err) != KindUnknown {
		return &Error{Op: op, Kind: err}
	}

	return &Error{Op: op, Kind: ErrStorageFailure, Err: err}
}
