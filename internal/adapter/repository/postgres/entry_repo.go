package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return newEntryRepository(pool)
}

func newEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{queries: generated.New(db)}
}

// Create appends a journal entry inside tx.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	return queries.CreateEntry(ctx, generated.CreateEntryParams{
		ID:              entry.ID,
		AccountID:       entry.AccountID,
		Kind:            string(entry.Kind),
		Reference:       entry.Reference,
		Amount:          decimalToNumeric(entry.Amount),
		PreviousBalance: decimalToNumeric(entry.PreviousBalance),
		CurrentBalance:  decimalToNumeric(entry.CurrentBalance),
		AccountVersion:  entry.AccountVersion,
		CreatedAt:       timeToPgTimestamptz(entry.CreatedAt),
	})
}

// ListByAccount lists the entries of an account, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.queries.ListEntriesByAccount(ctx, generated.ListEntriesByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}

	return entries, nil
}

func rowToEntry(row generated.Entry) *domain.Entry {
	return &domain.Entry{
		ID:              row.ID,
		AccountID:       row.AccountID,
		Kind:            domain.EntryKind(row.Kind),
		Reference:       row.Reference,
		Amount:          numericToDecimal(row.Amount),
		PreviousBalance: numericToDecimal(row.PreviousBalance),
		CurrentBalance:  numericToDecimal(row.CurrentBalance),
		AccountVersion:  row.AccountVersion,
		CreatedAt:       row.CreatedAt.Time,
	}
}
