package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// TransactionUseCase is the transaction engine for deposits, withdrawals and transfers.
type TransactionUseCase struct {
	guard       *Guard
	accounts    *AccountUseCase
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	guard *Guard,
	accounts *AccountUseCase,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	log zerolog.Logger,
	m *metrics.Metrics,
) *TransactionUseCase {
	return &TransactionUseCase{
		guard:       guard,
		accounts:    accounts,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		logger:      log,
		metrics:     m,
	}
}

// TransferResult is a committed transfer with both resulting balances.
type TransferResult struct {
	Transfer    *domain.Transfer
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
}

// Deposit credits amount to accountID and returns the new balance.
func (uc *TransactionUseCase) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	return uc.cashOperation(ctx, "deposit", accountID, amount, domain.EntryKindDeposit, domain.EventTypeFundsDeposited)
}

// Withdraw debits amount from accountID and returns the new balance.
func (uc *TransactionUseCase) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (balance decimal.Decimal, err error) {
	return uc.cashOperation(ctx, "withdraw", accountID, amount, domain.EntryKindWithdrawal, domain.EventTypeFundsWithdrawn)
}

func (uc *TransactionUseCase) cashOperation(
	ctx context.Context,
	op string,
	accountID string,
	amount decimal.Decimal,
	kind domain.EntryKind,
	eventType string,
) (balance decimal.Decimal, err error) {
	start := time.Now()
	defer func() { uc.metrics.ObserveOperation(op, start, err) }()

	if err := domain.ValidateAmount(amount); err != nil {
		return decimal.Zero, &domain.Error{Op: op, Kind: err, AccountID: accountID, Amount: amount}
	}

	delta := amount
	if kind == domain.EntryKindWithdrawal {
		delta = amount.Neg()
	}

	var updated *domain.Account
	err = uc.guard.Run(ctx, []string{AccountLockKey(accountID)}, func(ctx context.Context, tx Transaction) error {
		account, err := uc.accounts.ApplyDelta(ctx, tx, accountID, delta, EntryRef{Kind: kind})
		if err != nil {
			return err
		}

		if err := uc.outboxRepo.Create(ctx, tx, domain.NewOutboxEvent(
			uc.idGen.Generate(),
			domain.AggregateTypeAccount,
			accountID,
			eventType,
			map[string]any{
				"account_id": accountID,
				"amount":     amount.StringFixed(2),
				"balance":    account.Balance.StringFixed(2),
				"version":    account.Version,
			},
			account.UpdatedAt,
		)); err != nil {
			return err
		}

		updated = account
		return nil
	})
	if err != nil {
		err = annotate(op, err, accountID, "", amount)
		uc.logFailure(ctx, op, err)
		return decimal.Zero, err
	}

	uc.metrics.ObserveAmount(op, amount.InexactFloat64())

	return updated.Balance, nil
}

// Transfer moves amount from fromID to toID. Both legs and their journal
// entries commit together or not at all.
func (uc *TransactionUseCase) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (result *TransferResult, err error) {
	const op = "transfer"
	start := time.Now()
	defer func() { uc.metrics.ObserveOperation(op, start, err) }()

	transfer := &domain.Transfer{
		ID:            uc.idGen.Generate(),
		FromAccountID: fromID,
		ToAccountID:   toID,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}

	if err := transfer.Validate(); err != nil {
		return nil, &domain.Error{Op: op, Kind: err, AccountID: fromID, Amount: amount}
	}

	// Lock and read in one global order regardless of direction.
	ids := []string{fromID, toID}
	sort.Strings(ids)

	err = uc.guard.Run(ctx, []string{AccountLockKey(ids[0]), AccountLockKey(ids[1])}, func(ctx context.Context, tx Transaction) error {
		accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, ids)
		if err != nil {
			return err
		}

		byID := make(map[string]*domain.Account, len(accounts))
		for _, a := range accounts {
			byID[a.ID] = a
		}

		from, to := byID[fromID], byID[toID]
		if from == nil {
			return &domain.Error{Kind: domain.ErrAccountNotFound, AccountID: fromID}
		}
		if to == nil {
			return &domain.Error{Kind: domain.ErrAccountNotFound, AccountID: toID}
		}

		debited, err := uc.accounts.applyTo(ctx, tx, from, amount.Neg(), EntryRef{
			Kind:      domain.EntryKindTransferOut,
			Reference: transfer.ID,
		}, nil)
		if err != nil {
			return err
		}

		credited, err := uc.accounts.applyTo(ctx, tx, to, amount, EntryRef{
			Kind:      domain.EntryKindTransferIn,
			Reference: transfer.ID,
		}, nil)
		if err != nil {
			return err
		}

		if err := uc.outboxRepo.Create(ctx, tx, domain.NewOutboxEvent(
			uc.idGen.Generate(),
			domain.AggregateTypeTransfer,
			transfer.ID,
			domain.EventTypeTransferCompleted,
			map[string]any{
				"transfer_id":     transfer.ID,
				"from_account_id": fromID,
				"to_account_id":   toID,
				"amount":          amount.StringFixed(2),
			},
			transfer.CreatedAt,
		)); err != nil {
			return err
		}

		result = &TransferResult{
			Transfer:    transfer,
			FromBalance: debited.Balance,
			ToBalance:   credited.Balance,
		}
		return nil
	})
	if err != nil {
		err = annotate(op, err, fromID, "", amount)
		uc.logFailure(ctx, op, err)
		return nil, err
	}

	uc.metrics.ObserveAmount(op, amount.InexactFloat64())

	return result, nil
}

func (uc *TransactionUseCase) logFailure(ctx context.Context, op string, err error) {
	log := logger.FromContext(ctx, uc.logger)

	switch domain.KindOf(err) {
	case domain.KindStorageFailure, domain.KindUnknown:
		log.Error().Err(err).Str("operation", op).Msg("ledger operation failed")
	case domain.KindBusy:
		log.Warn().Err(err).Str("operation", op).Msg("ledger operation timed out waiting for locks")
	default:
		log.Debug().Err(err).Str("operation", op).Msg("ledger operation rejected")
	}
}
