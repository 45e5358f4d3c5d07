// Package memory is an in-process storage driver. Transactions stage their
// writes and validate the versions they read when committing, so concurrent
// writers to the same rows fail with domain.ErrConcurrentUpdate instead of
// overwriting each other.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

var (
	// ErrTxDone is returned when a finished transaction is used again.
	ErrTxDone = errors.New("memory: transaction already committed or rolled back")
	// ErrForeignTx is returned when a repository receives another driver's transaction.
	ErrForeignTx = errors.New("memory: transaction was not started by this store")
)

// Store holds committed ledger state.
type Store struct {
	mu sync.RWMutex

	accounts map[string]*domain.Account
	owners   map[string]string
	loans    map[string]*domain.Loan
	entries  map[string][]*domain.Entry
	outbox   []*domain.OutboxEvent
	outboxAt map[string]int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		owners:   make(map[string]string),
		loans:    make(map[string]*domain.Loan),
		entries:  make(map[string][]*domain.Entry),
		outboxAt: make(map[string]int),
	}
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Tx{
		store:    m.store,
		accounts: make(map[string]*stagedAccount),
		loans:    make(map[string]*stagedLoan),
	}, nil
}

type stagedAccount struct {
	account     *domain.Account
	readVersion int64
	created     bool
	dirty       bool
}

type stagedLoan struct {
	loan       *domain.Loan
	readStatus domain.LoanStatus
	created    bool
	dirty      bool
}

// Tx is a unit of work against a Store.
type Tx struct {
	store *Store

	mu       sync.Mutex
	accounts map[string]*stagedAccount
	loans    map[string]*stagedLoan
	entries  []*domain.Entry
	events   []*domain.OutboxEvent
	done     bool
}

// Commit validates every staged row against committed state and publishes
// the writes atomically.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxDone
	}
	t.done = true

	if err := ctx.Err(); err != nil {
		return err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := t.validate(); err != nil {
		return err
	}

	for _, st := range t.accounts {
		if !st.created && !st.dirty {
			continue
		}
		s.accounts[st.account.ID] = st.account.Snapshot()
		if st.created {
			s.owners[st.account.OwnerID] = st.account.ID
		}
	}

	for _, st := range t.loans {
		if st.created || st.dirty {
			s.loans[st.loan.ID] = st.loan.Snapshot()
		}
	}

	for _, e := range t.entries {
		cp := *e
		s.entries[e.AccountID] = append(s.entries[e.AccountID], &cp)
	}

	for _, ev := range t.events {
		cp := *ev
		s.outboxAt[ev.ID] = len(s.outbox)
		s.outbox = append(s.outbox, &cp)
	}

	return nil
}

// validate must run with the store lock held.
func (t *Tx) validate() error {
	s := t.store

	for _, st := range t.accounts {
		current, exists := s.accounts[st.account.ID]
		switch {
		case st.created:
			if _, taken := s.owners[st.account.OwnerID]; taken {
				return domain.ErrDuplicateAccount
			}
			if exists {
				return domain.ErrAccountNumberTaken
			}
		case st.dirty:
			if !exists || current.Version != st.readVersion {
				return domain.ErrConcurrentUpdate
			}
		}
	}

	for _, st := range t.loans {
		current, exists := s.loans[st.loan.ID]
		switch {
		case st.created:
			if exists {
				return domain.ErrConcurrentUpdate
			}
		case st.dirty:
			if !exists || current.Status != st.readStatus {
				return domain.ErrConcurrentUpdate
			}
		}
	}

	return nil
}

// Rollback discards staged writes. Rolling back a finished transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done = true
	t.accounts = nil
	t.loans = nil
	t.entries = nil
	t.events = nil

	return nil
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	mt, ok := tx.(*Tx)
	if !ok {
		return nil, ErrForeignTx
	}

	mt.mu.Lock()
	done := mt.done
	mt.mu.Unlock()

	if done {
		return nil, ErrTxDone
	}

	return mt, nil
}

// readAccount returns the transaction's view of an account, recording the
// version it was read at.
func (t *Tx) readAccount(id string) (*domain.Account, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.accounts[id]; ok {
		return st.account.Snapshot(), nil
	}

	t.store.mu.RLock()
	committed, ok := t.store.accounts[id]
	var snap *domain.Account
	if ok {
		snap = committed.Snapshot()
	}
	t.store.mu.RUnlock()

	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	t.accounts[id] = &stagedAccount{account: snap, readVersion: snap.Version}

	return snap.Snapshot(), nil
}

func (t *Tx) readLoan(id string) (*domain.Loan, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.loans[id]; ok {
		return st.loan.Snapshot(), nil
	}

	t.store.mu.RLock()
	committed, ok := t.store.loans[id]
	var snap *domain.Loan
	if ok {
		snap = committed.Snapshot()
	}
	t.store.mu.RUnlock()

	if !ok {
		return nil, domain.ErrLoanNotFound
	}

	t.loans[id] = &stagedLoan{loan: snap, readStatus: snap.Status}

	return snap.Snapshot(), nil
}
