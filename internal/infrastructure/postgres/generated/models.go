package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Account struct {
	ID            string             `json:"id"`
	OwnerID       string             `json:"owner_id"`
	Balance       pgtype.Numeric     `json:"balance"`
	HasLoan       bool               `json:"has_loan"`
	LoanPrincipal pgtype.Numeric     `json:"loan_principal"`
	Version       int64              `json:"version"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

type Entry struct {
	ID              string             `json:"id"`
	AccountID       string             `json:"account_id"`
	Kind            string             `json:"kind"`
	Reference       string             `json:"reference"`
	Amount          pgtype.Numeric     `json:"amount"`
	PreviousBalance pgtype.Numeric     `json:"previous_balance"`
	CurrentBalance  pgtype.Numeric     `json:"current_balance"`
	AccountVersion  int64              `json:"account_version"`
	CreatedAt       pgtype.Timestamptz `json:"created_at"`
}

type Loan struct {
	ID             string             `json:"id"`
	OwnerID        string             `json:"owner_id"`
	Principal      pgtype.Numeric     `json:"principal"`
	InterestRate   pgtype.Numeric     `json:"interest_rate"`
	TotalRepayable pgtype.Numeric     `json:"total_repayable"`
	Status         string             `json:"status"`
	RequestedAt    pgtype.Timestamptz `json:"requested_at"`
	ApprovedAt     pgtype.Timestamptz `json:"approved_at"`
	DecidedAt      pgtype.Timestamptz `json:"decided_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateType string             `json:"aggregate_type"`
	AggregateID   string             `json:"aggregate_id"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
	Published     bool               `json:"published"`
}
