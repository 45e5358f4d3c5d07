package domain

import "time"

// Event types
const (
	EventTypeAccountOpened     = "account.opened"
	EventTypeFundsDeposited    = "funds.deposited"
	EventTypeFundsWithdrawn    = "funds.withdrawn"
	EventTypeTransferCompleted = "transfer.completed"
	EventTypeLoanRequested     = "loan.requested"
	EventTypeLoanApproved      = "loan.approved"
	EventTypeLoanRejected      = "loan.rejected"
)

// Aggregate types
const (
	AggregateTypeAccount  = "account"
	AggregateTypeLoan     = "loan"
	AggregateTypeTransfer = "transfer"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// NewOutboxEvent builds an unpublished event.
func NewOutboxEvent(id, aggregateType, aggregateID, eventType string, payload map[string]any, now time.Time) *OutboxEvent {
	return &OutboxEvent{
		ID:            id,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
	}
}
