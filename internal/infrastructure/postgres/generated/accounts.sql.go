package generated

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createAccount = `-- name: CreateAccount :exec
INSERT INTO accounts (id, owner_id, balance, has_loan, loan_principal, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type CreateAccountParams struct {
	ID            string             `json:"id"`
	OwnerID       string             `json:"owner_id"`
	Balance       pgtype.Numeric     `json:"balance"`
	HasLoan       bool               `json:"has_loan"`
	LoanPrincipal pgtype.Numeric     `json:"loan_principal"`
	Version       int64              `json:"version"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) CreateAccount(ctx context.Context, arg CreateAccountParams) error {
	_, err := q.db.Exec(ctx, createAccount,
		arg.ID,
		arg.OwnerID,
		arg.Balance,
		arg.HasLoan,
		arg.LoanPrincipal,
		arg.Version,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const getAccountByID = `-- name: GetAccountByID :one
SELECT id, owner_id, balance, has_loan, loan_principal, version, created_at, updated_at FROM accounts WHERE id = $1
`

func (q *Queries) GetAccountByID(ctx context.Context, id string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByID, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Balance,
		&i.HasLoan,
		&i.LoanPrincipal,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountByIDForUpdate = `-- name: GetAccountByIDForUpdate :one
SELECT id, owner_id, balance, has_loan, loan_principal, version, created_at, updated_at FROM accounts WHERE id = $1 FOR UPDATE
`

func (q *Queries) GetAccountByIDForUpdate(ctx context.Context, id string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByIDForUpdate, id)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Balance,
		&i.HasLoan,
		&i.LoanPrincipal,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountByOwner = `-- name: GetAccountByOwner :one
SELECT id, owner_id, balance, has_loan, loan_principal, version, created_at, updated_at FROM accounts WHERE owner_id = $1
`

func (q *Queries) GetAccountByOwner(ctx context.Context, ownerID string) (Account, error) {
	row := q.db.QueryRow(ctx, getAccountByOwner, ownerID)
	var i Account
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Balance,
		&i.HasLoan,
		&i.LoanPrincipal,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getAccountsByIDsForUpdate = `-- name: GetAccountsByIDsForUpdate :many
SELECT id, owner_id, balance, has_loan, loan_principal, version, created_at, updated_at FROM accounts WHERE id = ANY($1::text[]) ORDER BY id FOR UPDATE
`

func (q *Queries) GetAccountsByIDsForUpdate(ctx context.Context, dollar_1 []string) ([]Account, error) {
	rows, err := q.db.Query(ctx, getAccountsByIDsForUpdate, dollar_1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Account{}
	for rows.Next() {
		var i Account
		if err := rows.Scan(
			&i.ID,
			&i.OwnerID,
			&i.Balance,
			&i.HasLoan,
			&i.LoanPrincipal,
			&i.Version,
			&i.CreatedAt,
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

const updateAccount = `-- name: UpdateAccount :execrows
UPDATE accounts
SET balance = $2, has_loan = $3, loan_principal = $4, version = $5, updated_at = $6
WHERE id = $1 AND version = $5 - 1
`

type UpdateAccountParams struct {
	ID            string             `json:"id"`
	Balance       pgtype.Numeric     `json:"balance"`
	HasLoan       bool               `json:"has_loan"`
	LoanPrincipal pgtype.Numeric     `json:"loan_principal"`
	Version       int64              `json:"version"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

func (q *Queries) UpdateAccount(ctx context.Context, arg UpdateAccountParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateAccount,
		arg.ID,
		arg.Balance,
		arg.HasLoan,
		arg.LoanPrincipal,
		arg.Version,
		arg.UpdatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
