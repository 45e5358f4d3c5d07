package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createLoan = `-- name: CreateLoan :exec
INSERT INTO loans (id, owner_id, principal, interest_rate, total_repayable, status, requested_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type CreateLoanParams struct {
	ID             string             `json:"id"`
	OwnerID        string             `json:"owner_id"`
	Principal      pgtype.Numeric     `json:"principal"`
	InterestRate   pgtype.Numeric     `json:"interest_rate"`
	TotalRepayable pgtype.Numeric     `json:"total_repayable"`
	Status         string             `json:"status"`
	RequestedAt    pgtype.Timestamptz `json:"requested_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateLoan(ctx context.Context, arg CreateLoanParams) error {
	_, err := q.db.Exec(ctx, createLoan,
		arg.ID,
		arg.OwnerID,
		arg.Principal,
		arg.InterestRate,
		arg.TotalRepayable,
		arg.Status,
		arg.RequestedAt,
		arg.UpdatedAt,
	)
	return err
}

const getLoanByID = `-- name: GetLoanByID :one
SELECT id, owner_id, principal, interest_rate, total_repayable, status, requested_at, approved_at, decided_at, updated_at FROM loans WHERE id = $1
`

func (q *Queries) GetLoanByID(ctx context.Context, id string) (Loan, error) {
	row := q.db.QueryRow(ctx, getLoanByID, id)
	var i Loan
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Principal,
		&i.InterestRate,
		&i.TotalRepayable,
		&i.Status,
		&i.RequestedAt,
		&i.ApprovedAt,
		&i.DecidedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getLoanByIDForUpdate = `-- name: GetLoanByIDForUpdate :one
SELECT id, owner_id, principal, interest_rate, total_repayable, status, requested_at, approved_at, decided_at, updated_at FROM loans WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetLoanByIDForUpdate(ctx context.Context, id string) (Loan, error) {
	row := q.db.QueryRow(ctx, getLoanByIDForUpdate, id)
	var i Loan
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Principal,
		&i.InterestRate,
		&i.TotalRepayable,
		&i.Status,
		&i.RequestedAt,
		&i.ApprovedAt,
		&i.DecidedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listLoans = `-- name: ListLoans :many
SELECT id, owner_id, principal, interest_rate, total_repayable, status, requested_at, approved_at, decided_at, updated_at FROM loans
WHERE ($1::text = '' OR owner_id = $1)
  AND ($2::text = '' OR status = $2)
  AND id > $3::text
ORDER BY id
LIMIT $4
`

type ListLoansParams struct {
	OwnerID  string `json:"owner_id"`
	Status   string `json:"status"`
	AfterID  string `json:"after_id"`
	RowLimit int32  `json:"row_limit"`
}

func (q *Queries) ListLoans(ctx context.Context, arg ListLoansParams) ([]Loan, error) {
	rows, err := q.db.Query(ctx, listLoans,
		arg.OwnerID,
		arg.Status,
		arg.AfterID,
		arg.RowLimit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Loan{}
	for rows.Next() {
		var i Loan
		if err := rows.Scan(
			&i.ID,
			&i.OwnerID,
			&i.Principal,
			&i.InterestRate,
			&i.TotalRepayable,
			&i.Status,
			&i.RequestedAt,
			&i.ApprovedAt,
			&i.DecidedAt,
			&i.UpdatedAt,
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

const updateLoanStatus = `-- name: UpdateLoanStatus :execrows
UPDATE loans
SET status = $2, approved_at = $3, decided_at = $4, updated_at = $5
WHERE id = $1 AND status = 'pending'
`

type UpdateLoanStatusParams struct {
	ID         string             `json:"id"`
	Status     string             `json:"status"`
	ApprovedAt pgtype.Timestamptz `json:"approved_at"`
	DecidedAt  pgtype.Timestamptz `json:"decided_at"`
	UpdatedAt  pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateLoanStatus(ctx context.Context, arg UpdateLoanStatusParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateLoanStatus,
		arg.ID,
		arg.Status,
		arg.ApprovedAt,
		arg.DecidedAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
