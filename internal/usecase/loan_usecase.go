package usecase

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/infrastructure/logger"
	"github.com/iho/bankledger/internal/infrastructure/metrics"
)

// LoanUseCase is the loan ledger: requests, decisions and disbursement.
type LoanUseCase struct {
	guard        *Guard
	accounts     *AccountUseCase
	accountRepo  AccountRepository
	loanRepo     LoanRepository
	outboxRepo   OutboxRepository
	idGen        IDGenerator
	interestRate decimal.Decimal
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

// NewLoanUseCase creates a new LoanUseCase. New loans carry interestRate percent.
func NewLoanUseCase(
	guard *Guard,
	accounts *AccountUseCase,
	accountRepo AccountRepository,
	loanRepo LoanRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	interestRate decimal.Decimal,
	log zerolog.Logger,
	m *metrics.Metrics,
) *LoanUseCase {
	return &LoanUseCase{
		guard:        guard,
		accounts:     accounts,
		accountRepo:  accountRepo,
		loanRepo:     loanRepo,
		outboxRepo:   outboxRepo,
		idGen:        idGen,
		interestRate: interestRate,
		logger:       log,
		metrics:      m,
	}
}

// RequestLoan records a pending loan for ownerID.
func (uc *LoanUseCase) RequestLoan(ctx context.Context, ownerID string, amount decimal.Decimal) (loan *domain.Loan, err error) {
	const op = "request_loan"
	start := time.Now()
	defer func() { uc.metrics.ObserveOperation(op, start, err) }()

	loan, err = domain.NewLoan(uc.idGen.Generate(), strings.TrimSpace(ownerID), amount, uc.interestRate, time.Now().UTC())
	if err != nil {
		return nil, &domain.Error{Op: op, Kind: err, Amount: amount}
	}

	err = uc.guard.Run(ctx, nil, func(ctx context.Context, tx Transaction) error {
		if err := uc.loanRepo.Create(ctx, tx, loan); err != nil {
			return err
		}

		return uc.outboxRepo.Create(ctx, tx, domain.NewOutboxEvent(
			uc.idGen.Generate(),
			domain.AggregateTypeLoan,
			loan.ID,
			domain.EventTypeLoanRequested,
			map[string]any{
				"loan_id":         loan.ID,
				"owner_id":        loan.OwnerID,
				"principal":       loan.Principal.StringFixed(2),
				"interest_rate":   loan.InterestRate.String(),
				"total_repayable": loan.TotalRepayable.StringFixed(2),
			},
			loan.RequestedAt,
		))
	})
	if err != nil {
		return nil, annotate(op, err, "", loan.ID, amount)
	}

	if uc.metrics != nil {
		uc.metrics.LoansRequested.Inc()
	}
	log := logger.FromContext(ctx, uc.logger)
	log.Info().
		Str("loan_id", loan.ID).
		Str("owner_id", loan.OwnerID).
		Str("principal", loan.Principal.StringFixed(2)).
		Msg("loan requested")

	return loan, nil
}

// DecideLoan approves or rejects a pending loan. Approval disburses the
// principal to the owner's account in the same transaction as the status
// change, so a loan is disbursed at most once.
func (uc *LoanUseCase) DecideLoan(ctx context.Context, loanID string, decision domain.LoanDecision) (decided *domain.Loan, err error) {
	const op = "decide_loan"
	start := time.Now()
	defer func() {
		uc.metrics.ObserveOperation(op, start, err)
		uc.metrics.ObserveLoanDecision(string(decision), err)
	}()

	if !decision.Valid() {
		return nil, &domain.Error{Op: op, Kind: domain.ErrInvalidDecision, LoanID: loanID}
	}

	loan, err := uc.loanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, annotate(op, err, "", loanID, decimal.Zero)
	}
	if loan.Status != domain.LoanStatusPending {
		return nil, &domain.Error{Op: op, Kind: domain.ErrAlreadyDecided, LoanID: loanID}
	}

	keys := []string{LoanLockKey(loanID)}

	var accountID string
	if decision == domain.LoanDecisionApprove {
		// Owner to account is immutable, so resolving it before locking is safe.
		account, err := uc.accountRepo.GetByOwner(ctx, loan.OwnerID)
		if err != nil {
			return nil, annotate(op, err, "", loanID, loan.Principal)
		}
		accountID = account.ID
		keys = append(keys, AccountLockKey(accountID))
	}

	err = uc.guard.Run(ctx, keys, func(ctx context.Context, tx Transaction) error {
		locked, err := uc.loanRepo.GetByIDForUpdate(ctx, tx, loanID)
		if err != nil {
			return err
		}

		if err := locked.Decide(decision, time.Now().UTC()); err != nil {
			return err
		}

		if err := uc.loanRepo.UpdateStatus(ctx, tx, locked); err != nil {
			return err
		}

		payload := map[string]any{
			"loan_id":  locked.ID,
			"owner_id": locked.OwnerID,
			"status":   string(locked.Status),
		}
		eventType := domain.EventTypeLoanRejected

		if decision == domain.LoanDecisionApprove {
			account, err := uc.accounts.Disburse(ctx, tx, accountID, locked)
			if err != nil {
				return err
			}
			eventType = domain.EventTypeLoanApproved
			payload["account_id"] = account.ID
			payload["principal"] = locked.Principal.StringFixed(2)
			payload["balance"] = account.Balance.StringFixed(2)
		}

		if err := uc.outboxRepo.Create(ctx, tx, domain.NewOutboxEvent(
			uc.idGen.Generate(),
			domain.AggregateTypeLoan,
			locked.ID,
			eventType,
			payload,
			locked.UpdatedAt,
		)); err != nil {
			return err
		}

		decided = locked
		return nil
	})
	log := logger.FromContext(ctx, uc.logger)
	if err != nil {
		err = annotate(op, err, accountID, loanID, decimal.Zero)
		log.Debug().Err(err).Str("loan_id", loanID).Msg("loan decision rejected")
		return nil, err
	}

	log.Info().
		Str("loan_id", loanID).
		Str("status", string(decided.Status)).
		Msg("loan decided")

	return decided, nil
}

// DecisionResult is the outcome of one loan in a bulk decision.
type DecisionResult struct {
	LoanID string
	Loan   *domain.Loan
	Err    error
}

// DecideLoans applies the same decision to every loan in order, one
// independent DecideLoan per ID.
func (uc *LoanUseCase) DecideLoans(ctx context.Context, loanIDs []string, decision domain.LoanDecision) ([]DecisionResult, error) {
	if !decision.Valid() {
		return nil, &domain.Error{Op: "decide_loans", Kind: domain.ErrInvalidDecision}
	}
	if len(loanIDs) > MaxBulkDecisions {
		return nil, &domain.Error{
			Op:   "decide_loans",
			Kind: fmt.Errorf("%w: at most %d loans per request", domain.ErrInvalidOperation, MaxBulkDecisions),
		}
	}

	results := make([]DecisionResult, 0, len(loanIDs))
	for _, id := range loanIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		loan, err := uc.DecideLoan(ctx, id, decision)
		results = append(results, DecisionResult{LoanID: id, Loan: loan, Err: err})
	}

	return results, nil
}

// GetLoan retrieves a loan by ID.
func (uc *LoanUseCase) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	loan, err := uc.loanRepo.GetByID(ctx, id)
	if err != nil {
		return nil, annotate("get_loan", err, "", id, decimal.Zero)
	}

	return loan, nil
}

// ListLoans streams loans matching filter in ID order, fetching a page of
// LoanPageSize at a time. Each range over the sequence starts from the beginning.
func (uc *LoanUseCase) ListLoans(ctx context.Context, filter LoanFilter) iter.Seq2[*domain.Loan, error] {
	return func(yield func(*domain.Loan, error) bool) {
		if filter.Status != "" && !filter.Status.Valid() {
			yield(nil, &domain.Error{Op: "list_loans", Kind: domain.ErrInvalidLoanStatus})
			return
		}

		after := ""
		for {
			page, err := uc.loanRepo.List(ctx, filter, after, LoanPageSize)
			if err != nil {
				yield(nil, annotate("list_loans", err, "", "", decimal.Zero))
				return
			}

			for _, loan := range page {
				if !yield(loan, nil) {
					return
				}
			}

			if len(page) < LoanPageSize {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}
