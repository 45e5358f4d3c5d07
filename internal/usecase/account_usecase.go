package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// EntryRef describes why a balance changes.
type EntryRef struct {
	Kind      domain.EntryKind
	Reference string
}

// AccountUseCase is the Account Store: it owns account creation, reads and
// the only sanctioned balance mutation path.
type AccountUseCase struct {
	guard       *Guard
	accountRepo AccountRepository
	entryRepo   EntryRepository
	outboxRepo  OutboxRepository
	numberGen   AccountNumberGenerator
	idGen       IDGenerator
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	guard *Guard,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	numberGen AccountNumberGenerator,
	idGen IDGenerator,
	log zerolog.Logger,
	m *metrics.Metrics,
) *AccountUseCase {
	return &AccountUseCase{
		guard:       guard,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		outboxRepo:  outboxRepo,
		numberGen:   numberGen,
		idGen:       idGen,
		logger:      log,
		metrics:     m,
	}
}

// OpenAccount creates the single account of ownerID with a zero balance.
func (uc *AccountUseCase) OpenAccount(ctx context.Context, ownerID string) (account *domain.Account, err error) {
	const op = "open_account"
	start := time.Now()
	defer func() { uc.metrics.ObserveOperation(op, start, err) }()

	ownerID = strings.TrimSpace(ownerID)
	if err := domain.ValidateOwnerID(ownerID); err != nil {
		return nil, &domain.Error{Op: op, Kind: err}
	}

	log := logger.FromContext(ctx, uc.logger)

	for attempt := 1; attempt <= MaxAccountNumberAttempts; attempt++ {
		now := time.Now().UTC()
		candidate := &domain.Account{
			ID:            uc.numberGen.Generate(),
			OwnerID:       ownerID,
			Balance:       decimal.Zero,
			LoanPrincipal: decimal.Zero,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err := uc.guard.Run(ctx, []string{OwnerLockKey(ownerID)}, func(ctx context.Context, tx Transaction) error {
			if err := uc.accountRepo.Create(ctx, tx, candidate); err != nil {
				return err
			}

			return uc.outboxRepo.Create(ctx, tx, domain.NewOutboxEvent(
				uc.idGen.Generate(),
				domain.AggregateTypeAccount,
				candidate.ID,
				domain.EventTypeAccountOpened,
				map[string]any{
					"account_id": candidate.ID,
					"owner_id":   ownerID,
				},
				now,
			))
		})
		if errors.Is(err, domain.ErrAccountNumberTaken) {
			log.Debug().Str("account_id", candidate.ID).Int("attempt", attempt).Msg("account number collision")
			continue
		}
		if err != nil {
			return nil, annotate(op, err, "", "", decimal.Zero)
		}

		if uc.metrics != nil {
			uc.metrics.AccountsOpened.Inc()
		}
		log.Info().Str("account_id", candidate.ID).Str("owner_id", ownerID).Msg("account opened")

		return candidate, nil
	}

	log.Error().Int("attempts", MaxAccountNumberAttempts).Msg("account number space exhausted")

	return nil, &domain.Error{
		Op:   op,
		Kind: domain.ErrStorageFailure,
		Err:  fmt.Errorf("no free account number after %d attempts", MaxAccountNumberAttempts),
	}
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	const op = "get_account"

	if !domain.ValidAccountNumber(id) {
		return nil, &domain.Error{Op: op, Kind: domain.ErrAccountNotFound, AccountID: id}
	}

	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, annotate(op, err, id, "", decimal.Zero)
	}

	return account, nil
}

// GetAccountByOwner retrieves the account held by ownerID.
func (uc *AccountUseCase) GetAccountByOwner(ctx context.Context, ownerID string) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByOwner(ctx, strings.TrimSpace(ownerID))
	if err != nil {
		return nil, annotate("get_account_by_owner", err, "", "", decimal.Zero)
	}

	return account, nil
}

// ListEntries returns the journal of an account, newest first.
func (uc *AccountUseCase) ListEntries(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	const op = "list_entries"

	if _, err := uc.GetAccount(ctx, accountID); err != nil {
		return nil, annotate(op, err, accountID, "", decimal.Zero)
	}

	limit, offset = domain.ValidatePagination(limit, offset)

	entries, err := uc.entryRepo.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, annotate(op, err, accountID, "", decimal.Zero)
	}

	return entries, nil
}

// ApplyDelta re-reads the account for update inside tx and applies a signed
// balance change, writing exactly one journal entry. A result below zero
// fails with domain.ErrInsufficientFunds and leaves tx untouched.
func (uc *AccountUseCase) ApplyDelta(ctx context.Context, tx Transaction, accountID string, delta decimal.Decimal, ref EntryRef) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, annotate("apply_delta", err, accountID, "", delta.Abs())
	}

	return uc.applyTo(ctx, tx, account, delta, ref, nil)
}

// Disburse credits an approved loan's principal to accountID and records the
// outstanding loan on the account.
func (uc *AccountUseCase) Disburse(ctx context.Context, tx Transaction, accountID string, loan *domain.Loan) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, annotate("disburse", err, accountID, loan.ID, loan.Principal)
	}

	return uc.applyTo(ctx, tx, account, loan.Principal, EntryRef{
		Kind:      domain.EntryKindLoanDisbursement,
		Reference: loan.ID,
	}, func(a *domain.Account) {
		a.HasLoan = true
		a.LoanPrincipal = a.LoanPrincipal.Add(loan.Principal)
	})
}

// applyTo mutates an account row already locked by tx.
func (uc *AccountUseCase) applyTo(
	ctx context.Context,
	tx Transaction,
	account *domain.Account,
	delta decimal.Decimal,
	ref EntryRef,
	adjust func(a *domain.Account),
) (*domain.Account, error) {
	if err := account.ValidateDelta(delta); err != nil {
		return nil, &domain.Error{Kind: err, AccountID: account.ID, Amount: delta.Abs()}
	}

	now := time.Now().UTC()

	updated := account.Snapshot()
	updated.Balance = account.ApplyDelta(delta)
	updated.Version = account.Version + 1
	updated.UpdatedAt = now
	if adjust != nil {
		adjust(updated)
	}

	entry := &domain.Entry{
		ID:              uc.idGen.Generate(),
		AccountID:       account.ID,
		Kind:            ref.Kind,
		Reference:       ref.Reference,
		Amount:          delta,
		PreviousBalance: account.Balance,
		CurrentBalance:  updated.Balance,
		AccountVersion:  updated.Version,
		CreatedAt:       now,
	}

	if err := uc.accountRepo.Update(ctx, tx, updated); err != nil {
		return nil, err
	}

	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	return updated, nil
}

// annotate attaches op and the involved identifiers to err, classifying
// unknown errors as storage failures.
func annotate(op string, err error, accountID, loanID string, amount decimal.Decimal) error {
	if err == nil {
		return nil
	}

	e := domain.Wrap(op, err)
	if e.AccountID == "" {
		e.AccountID = accountID
	}
	if e.LoanID == "" {
		e.LoanID = loanID
	}
	if e.Amount.IsZero() {
		e.Amount = amount
	}

	return e
}
