package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies what caused a balance change.
type EntryKind string

const (
	EntryKindDeposit          EntryKind = "deposit"
	EntryKindWithdrawal       EntryKind = "withdrawal"
	EntryKindTransferOut      EntryKind = "transfer_out"
	EntryKindTransferIn       EntryKind = "transfer_in"
	EntryKindLoanDisbursement EntryKind = "loan_disbursement"
)

// Entry is one journal line: a single signed balance change on one account.
type Entry struct {
	CreatedAt       time.Time
	ID              string
	AccountID       string
	Kind            EntryKind
	Reference       string
	Amount          decimal.Decimal
	PreviousBalance decimal.Decimal
	CurrentBalance  decimal.Decimal
	AccountVersion  int64
}
