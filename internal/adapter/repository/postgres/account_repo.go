package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/postgres/generated"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return newAccountRepository(pool)
}

func newAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{queries: generated.New(db)}
}

// Create inserts a new account inside tx.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	err = queries.CreateAccount(ctx, generated.CreateAccountParams{
		ID:            account.ID,
		OwnerID:       account.OwnerID,
		Balance:       decimalToNumeric(account.Balance),
		HasLoan:       account.HasLoan,
		LoanPrincipal: decimalToNumeric(account.LoanPrincipal),
		Version:       account.Version,
		CreatedAt:     timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:     timeToPgTimestamptz(account.UpdatedAt),
	})
	if pgErr := pgError(err); pgErr != nil && pgErr.Code == pgErrUniqueViolation {
		switch pgErr.ConstraintName {
		case constraintAccountsPkey:
			return domain.ErrAccountNumberTaken
		case constraintAccountsOwner:
			return domain.ErrDuplicateAccount
		}
	}

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByOwner retrieves the account held by ownerID.
func (r *AccountRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByIDForUpdate retrieves an account by ID with a FOR UPDATE lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	queries, err := txQueries(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetAccountByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return rowToAccount(row), nil
}

// GetByIDsForUpdate locks the existing accounts among ids in ID order.
// Missing IDs are simply absent from the result.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	queries, err := txQueries(tx)
	if err != nil {
		return nil, err
	}

	rows, err := queries.GetAccountsByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts, nil
}

// Update persists balance and loan fields if the stored version is account.Version-1.
func (r *AccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	n, err := queries.UpdateAccount(ctx, generated.UpdateAccountParams{
		ID:            account.ID,
		Balance:       decimalToNumeric(account.Balance),
		HasLoan:       account.HasLoan,
		LoanPrincipal: decimalToNumeric(account.LoanPrincipal),
		Version:       account.Version,
		UpdatedAt:     timeToPgTimestamptz(account.UpdatedAt),
	})
	if err != nil {
		if pgErr := pgError(err); pgErr != nil && pgErr.Code == pgErrCheckViolation {
			return domain.ErrInsufficientFunds
		}
		return err
	}
	if n == 0 {
		return domain.ErrConcurrentUpdate
	}

	return nil
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:            row.ID,
		OwnerID:       row.OwnerID,
		Balance:       numericToDecimal(row.Balance),
		HasLoan:       row.HasLoan,
		LoanPrincipal: numericToDecimal(row.LoanPrincipal),
		Version:       row.Version,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}
