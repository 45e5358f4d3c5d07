package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createEntry = `-- name: CreateEntry :exec
INSERT INTO entries (id, account_id, kind, reference, amount, previous_balance, current_balance, account_version, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

type CreateEntryParams struct {
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

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) error {
	_, err := q.db.Exec(ctx, createEntry,
		arg.ID,
		arg.AccountID,
		arg.Kind,
		arg.Reference,
		arg.Amount,
		arg.PreviousBalance,
		arg.CurrentBalance,
		arg.AccountVersion,
		arg.CreatedAt,
	)
	return err
}

const listEntriesByAccount = `-- name: ListEntriesByAccount :many
SELECT id, account_id, kind, reference, amount, previous_balance, current_balance, account_version, created_at FROM entries
WHERE account_id = $1
ORDER BY account_version DESC
LIMIT $2 OFFSET $3
`

type ListEntriesByAccountParams struct {
	AccountID string `json:"account_id"`
	Limit     int32  `json:"limit"`
	Offset    int32  `json:"offset"`
}

func (q *Queries) ListEntriesByAccount(ctx context.Context, arg ListEntriesByAccountParams) ([]Entry, error) {
	rows, err := q.db.Query(ctx, listEntriesByAccount, arg.AccountID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Entry{}
	for rows.Next() {
		var i Entry
		if err := rows.Scan(
			&i.ID,
			&i.AccountID,
			&i.Kind,
			&i.Reference,
			&i.Amount,
			&i.PreviousBalance,
			&i.CurrentBalance,
			&i.AccountVersion,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
