package memory

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

// Create stages a journal entry.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	mt, err := asTx(tx)
	if err != nil {
		return err
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	cp := *entry
	mt.entries = append(mt.entries, &cp)

	return nil
}

// ListByAccount lists an account's committed entries, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	all := r.store.entries[accountID]
	entries := make([]*domain.Entry, 0, limit)
	for i := len(all) - 1 - offset; i >= 0 && len(entries) < limit; i-- {
		cp := *all[i]
		entries = append(entries, &cp)
	}

	return entries, nil
}
