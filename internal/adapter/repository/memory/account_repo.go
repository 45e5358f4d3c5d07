package memory

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create stages a new account. Uniqueness is checked now and again at commit.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}

	r.store.mu.RLock()
	_, ownerTaken := r.store.owners[account.OwnerID]
	_, idTaken := r.store.accounts[account.ID]
	r.store.mu.RUnlock()

	if ownerTaken {
		return domain.ErrDuplicateAccount
	}
	if idTaken {
		return domain.ErrAccountNumberTaken
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	if _, staged := mt.accounts[account.ID]; staged {
		return domain.ErrAccountNumberTaken
	}
	mt.accounts[account.ID] = &stagedAccount{account: account.Snapshot(), created: true}

	return nil
}

// GetByID retrieves a committed account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	account, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return account.Snapshot(), nil
}

// GetByOwner retrieves the committed account of an owner.
func (r *AccountRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.owners[ownerID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return r.store.accounts[id].Snapshot(), nil
}

// GetByIDForUpdate reads an account into tx, recording its version.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	mt, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	return mt.readAccount(id)
}

// GetByIDsForUpdate reads several accounts into tx. Missing IDs are skipped.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	mt, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		account, err := mt.readAccount(id)
		if err == domain.ErrAccountNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

// Update stages new balance and loan fields.
func (r *AccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}

	if _, err := mt.readAccount(account.ID); err != nil {
		return err
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	st := mt.accounts[account.ID]
	if account.Version != st.account.Version+1 {
		return domain.ErrConcurrentUpdate
	}

	st.account = account.Snapshot()
	if !st.created {
		st.dirty = true
	}

	return nil
}
