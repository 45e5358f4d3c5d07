package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const ledgerTotals = `-- name: LedgerTotals :one
SELECT
    (SELECT COALESCE(SUM(balance), 0) FROM accounts)::numeric AS total_balance,
    (SELECT COALESCE(SUM(amount), 0) FROM entries)::numeric AS total_entry_amount,
    (SELECT COUNT(*) FROM accounts WHERE balance < 0) AS negative_accounts,
    (SELECT COUNT(*) FROM accounts) AS account_count
`

type LedgerTotalsRow struct {
	TotalBalance     pgtype.Numeric `json:"total_balance"`
	TotalEntryAmount pgtype.Numeric `json:"total_entry_amount"`
	NegativeAccounts int64          `json:"negative_accounts"`
	AccountCount     int64          `json:"account_count"`
}

func (q *Queries) LedgerTotals(ctx context.Context) (LedgerTotalsRow, error) {
	row := q.db.QueryRow(ctx, ledgerTotals)
	var i LedgerTotalsRow
	err := row.Scan(
		&i.TotalBalance,
		&i.TotalEntryAmount,
		&i.NegativeAccounts,
		&i.AccountCount,
	)
	return i, err
}
