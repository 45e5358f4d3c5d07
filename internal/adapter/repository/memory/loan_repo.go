package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// LoanRepository implements usecase.LoanRepository.
type LoanRepository struct {
	store *Store
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(store *Store) *LoanRepository {
	return &LoanRepository{store: store}
}

// Create stages a new loan.
func (r *LoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.loans[loan.ID] = &stagedLoan{loan: loan.Snapshot(), created: true}

	return nil
}

// GetByID retrieves a committed loan by ID.
func (r *LoanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	loan, ok := r.store.loans[id]
	if !ok {
		return nil, domain.ErrLoanNotFound
	}

	return loan.Snapshot(), nil
}

// GetByIDForUpdate reads a loan into tx, recording its status.
func (r *LoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Loan, error) {
	mt, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	return mt.readLoan(id)
}

// UpdateStatus stages a decision on a loan that tx saw as pending.
func (r *LoanRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}

	if _, err := mt.readLoan(loan.ID); err != nil {
		return err
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	st := mt.loans[loan.ID]
	if st.loan.Status != domain.LoanStatusPending {
		return domain.ErrAlreadyDecided
	}

	st.loan = loan.Snapshot()
	if !st.created {
		st.dirty = true
	}

	return nil
}

// List returns committed loans ordered by ID after afterID.
func (r *LoanRepository) List(ctx context.Context, filter usecase.LoanFilter, afterID string, limit int) ([]*domain.Loan, error) {
	r.store.mu.RLock()
	matched := make([]*domain.Loan, 0)
	for _, loan := range r.store.loans {
		if loan.ID <= afterID {
			continue
		}
		if filter.OwnerID != "" && loan.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && loan.Status != filter.Status {
			continue
		}
		matched = append(matched, loan.Snapshot())
	}
	r.store.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *domain.Loan) int {
		return strings.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	return matched, nil
}
