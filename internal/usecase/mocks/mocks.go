package mocks

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
// Without a Func override it behaves like a non-transactional map.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc            func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Account, error)
	GetByOwnerFunc        func(ctx context.Context, ownerID string) (*domain.Account, error)
	GetByIDForUpdateFunc  func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error)
	UpdateFunc            func(ctx context.Context, tx usecase.Transaction, account *domain.Account) error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Put seeds an account.
func (m *MockAccountRepository) Put(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account.Snapshot()
}

func (m *MockAccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.OwnerID == account.OwnerID {
			return domain.ErrDuplicateAccount
		}
	}
	if _, ok := m.accounts[account.ID]; ok {
		return domain.ErrAccountNumberTaken
	}
	m.accounts[account.ID] = account.Snapshot()
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc.Snapshot(), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	if m.GetByOwnerFunc != nil {
		return m.GetByOwnerFunc(ctx, ownerID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if a.OwnerID == ownerID {
			return a.Snapshot(), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	var result []*domain.Account
	for _, id := range ids {
		if acc, err := m.GetByID(ctx, id); err == nil {
			result = append(result, acc)
		}
	}
	return result, nil
}

func (m *MockAccountRepository) Update(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, tx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.accounts[account.ID]
	if !ok || current.Version != account.Version-1 {
		return domain.ErrConcurrentUpdate
	}
	m.accounts[account.ID] = account.Snapshot()
	return nil
}

// MockLoanRepository is a mock implementation of LoanRepository.
type MockLoanRepository struct {
	mu    sync.RWMutex
	loans map[string]*domain.Loan

	CreateFunc           func(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Loan, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Loan, error)
	UpdateStatusFunc     func(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error
	ListFunc             func(ctx context.Context, filter usecase.LoanFilter, afterID string, limit int) ([]*domain.Loan, error)
}

func NewMockLoanRepository() *MockLoanRepository {
	return &MockLoanRepository{loans: make(map[string]*domain.Loan)}
}

// Put seeds a loan.
func (m *MockLoanRepository) Put(loan *domain.Loan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loans[loan.ID] = loan.Snapshot()
}

func (m *MockLoanRepository) Create(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, loan)
	}
	m.Put(loan)
	return nil
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id string) (*domain.Loan, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if loan, ok := m.loans[id]; ok {
		return loan.Snapshot(), nil
	}
	return nil, domain.ErrLoanNotFound
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Loan, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockLoanRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, loan *domain.Loan) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, loan)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.loans[loan.ID]
	if !ok {
		return domain.ErrLoanNotFound
	}
	if current.Status != domain.LoanStatusPending {
		return domain.ErrAlreadyDecided
	}
	m.loans[loan.ID] = loan.Snapshot()
	return nil
}

func (m *MockLoanRepository) List(ctx context.Context, filter usecase.LoanFilter, afterID string, limit int) ([]*domain.Loan, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter, afterID, limit)
	}
	return nil, nil
}

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mu      sync.Mutex
	Entries []*domain.Entry

	CreateFunc        func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	ListByAccountFunc func(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{}
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockEntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit, offset)
	}
	return nil, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.Mutex
	Events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.OutboxEvent
	for _, e := range m.Events {
		if !e.Published && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	TotalsFunc func(ctx context.Context) (usecase.LedgerTotals, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) Totals(ctx context.Context) (usecase.LedgerTotals, error) {
	if m.TotalsFunc != nil {
		return m.TotalsFunc(ctx)
	}
	return usecase.LedgerTotals{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	Committed  atomic.Bool
	RolledBack atomic.Bool

	CommitFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		if err := m.CommitFunc(ctx); err != nil {
			return err
		}
	}
	m.Committed.Store(true)
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if !m.Committed.Load() {
		m.RolledBack.Store(true)
	}
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	mu  sync.Mutex
	Txs []*MockTransaction

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	tx := &MockTransaction{}
	m.mu.Lock()
	m.Txs = append(m.Txs, tx)
	m.mu.Unlock()
	return tx, nil
}

// MockIDGenerator is a mock implementation of IDGenerator. By default it
// returns increasing numeric IDs prefixed with "id-".
type MockIDGenerator struct {
	n            atomic.Int64
	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	return "id-" + strconv.FormatInt(m.n.Add(1), 10)
}

// MockAccountNumberGenerator hands out Numbers in order, then sequential
// numbers starting at domain.AccountNumberMin.
type MockAccountNumberGenerator struct {
	mu      sync.Mutex
	Numbers []string
	next    int
}

func NewMockAccountNumberGenerator(numbers ...string) *MockAccountNumberGenerator {
	return &MockAccountNumberGenerator{Numbers: numbers, next: domain.AccountNumberMin}
}

func (m *MockAccountNumberGenerator) Generate() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Numbers) > 0 {
		n := m.Numbers[0]
		m.Numbers = m.Numbers[1:]
		return n
	}
	n := m.next
	m.next++
	return strconv.Itoa(n)
}

// PassthroughLockManager runs fn without locking.
type PassthroughLockManager struct{}

func (PassthroughLockManager) WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// PassthroughRetrier runs the operation once.
type PassthroughRetrier struct{}

func (PassthroughRetrier) Retry(ctx context.Context, operation func() error) error {
	return operation()
}
