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

// LoanRepository implements usecase.LoanRepository.
type LoanRepository struct {
	queries *generated.Queries
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return newLoanRepository(pool)
}

func newLoanRepository(db generated.DBTX) *LoanRepository {
	return &LoanRepository{queries: generated.New(db)}
}

// Create inserts a pending loan inside tx.
func (r *LoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	return queries.CreateLoan(ctx, generated.CreateLoanParams{
		ID:             loan.ID,
		OwnerID:        loan.OwnerID,
		Principal:      decimalToNumeric(loan.Principal),
		InterestRate:   decimalToNumeric(loan.InterestRate),
		TotalRepayable: decimalToNumeric(loan.TotalRepayable),
		Status:         string(loan.Status),
		RequestedAt:    timeToPgTimestamptz(loan.RequestedAt),
		UpdatedAt:      timeToPgTimestamptz(loan.UpdatedAt),
	})
}

// GetByID retrieves a loan by ID.
func (r *LoanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	row, err := r.queries.GetLoanByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}

		return nil, err
	}

	return rowToLoan(row), nil
}

// GetByIDForUpdate retrieves a loan by ID with a FOR UPDATE lock.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Loan, error) {
	queries, err := txQueries(tx)
	if err != nil {
		return nil, err
	}

	row, err := queries.GetLoanByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}

		return nil, err
	}

	return rowToLoan(row), nil
}

// UpdateStatus records a decision on a pending loan.
func (r *LoanRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	n, err := queries.UpdateLoanStatus(ctx, generated.UpdateLoanStatusParams{
		ID:         loan.ID,
		Status:     string(loan.Status),
		ApprovedAt: optionalTimestamptz(loan.ApprovedAt),
		DecidedAt:  optionalTimestamptz(loan.DecidedAt),
		UpdatedAt:  timeToPgTimestamptz(loan.UpdatedAt),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrAlreadyDecided
	}

	return nil
}

// List returns one keyset page of loans ordered by ID.
func (r *LoanRepository) List(ctx context.Context, filter usecase.LoanFilter, afterID string, limit int) ([]*domain.Loan, error) {
	rows, err := r.queries.ListLoans(ctx, generated.ListLoansParams{
		OwnerID:  filter.OwnerID,
		Status:   string(filter.Status),
		AfterID:  afterID,
		RowLimit: int32(limit),
	})
	if err != nil {
		return nil, err
	}

	loans := make([]*domain.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, rowToLoan(row))
	}

	return loans, nil
}

func rowToLoan(row generated.Loan) *domain.Loan {
	return &domain.Loan{
		ID:             row.ID,
		OwnerID:        row.OwnerID,
		Principal:      numericToDecimal(row.Principal),
		InterestRate:   numericToDecimal(row.InterestRate),
		TotalRepayable: numericToDecimal(row.TotalRepayable),
		Status:         domain.LoanStatus(row.Status),
		RequestedAt:    row.RequestedAt.Time,
		ApprovedAt:     timestamptzPtr(row.ApprovedAt),
		DecidedAt:      timestamptzPtr(row.DecidedAt),
		UpdatedAt:      row.UpdatedAt.Time,
	}
}
