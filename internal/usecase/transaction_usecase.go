package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/entryledger/internal/domain"
)

// TransactionUseCase handles withdrawals, transfers and transaction queries.
//
// Checks run in a fixed order: validation, id decoding, same-account,
// existence, idempotency, balance. A request that fails an earlier check
// never reaches a later one.
type TransactionUseCase struct {
	accountRepo AccountRepository
	txnRepo     TransactionRepository
	guard       *IdempotencyGuard
	calculator  *BalanceCalculator
	builder     *TransactionBuilder
	locker      AccountLocker
	publisher   EventPublisher
	metrics     MetricsRecorder
	logger      zerolog.Logger
	timeout     time.Duration
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	accountRepo AccountRepository,
	txnRepo TransactionRepository,
	idGen IDGenerator,
	locker AccountLocker,
	publisher EventPublisher,
	logger zerolog.Logger,
) *TransactionUseCase {
	if locker == nil {
		locker = NoopLocker{}
	}

	return &TransactionUseCase{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		guard:       NewIdempotencyGuard(txnRepo),
		calculator:  NewBalanceCalculator(txnRepo),
		builder:     NewTransactionBuilder(idGen),
		locker:      locker,
		publisher:   publisher,
		metrics:     NoopRecorder{},
		logger:      logger.With().Str("component", "transaction_usecase").Logger(),
		timeout:     DefaultOperationTimeout,
	}
}

// WithMetrics sets the recorder that receives operation outcomes.
func (uc *TransactionUseCase) WithMetrics(rec MetricsRecorder) *TransactionUseCase {
	uc.metrics = rec
	return uc
}

// Withdraw credits amount out of the source account.
func (uc *TransactionUseCase) Withdraw(ctx context.Context, req domain.WithdrawRequest) (ref *domain.TransactionRef, err error) {
	start := time.Now()
	defer func() {
		observe(uc.metrics, OperationWithdraw, start, refOutcome(ref, err))
		logFailure(uc.logger, OperationWithdraw, err)
	}()

	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	sourceID, err := domain.DecodeAs(req.SourceID, domain.KindAccount)
	if err != nil {
		return nil, err
	}

	source, err := uc.loadAccount(ctx, sourceID, domain.ErrAccountNotFound)
	if err != nil {
		return nil, err
	}

	return uc.execute(ctx, movement{
		operation:    OperationWithdraw,
		source:       source,
		amount:       req.Amount,
		key:          req.IdempotencyKey,
		participants: []string{source.ID},
		topics:       []string{domain.TopicWithdrawalCreated, domain.TopicTransactionCreated},
		build: func() (*domain.Transaction, error) {
			return uc.builder.Withdrawal(source, req.Amount, req.IdempotencyKey)
		},
	})
}

// Transfer moves amount from the source account to the destination account.
func (uc *TransactionUseCase) Transfer(ctx context.Context, req domain.TransferRequest) (ref *domain.TransactionRef, err error) {
	start := time.Now()
	defer func() {
		observe(uc.metrics, OperationTransfer, start, refOutcome(ref, err))
		logFailure(uc.logger, OperationTransfer, err)
	}()

	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	sourceID, err := domain.DecodeAs(req.SourceID, domain.KindAccount)
	if err != nil {
		return nil, err
	}

	destinationID, err := domain.DecodeAs(req.DestinationID, domain.KindAccount)
	if err != nil {
		return nil, err
	}

	if sourceID == destinationID {
		return nil, domain.ErrSameAccount
	}

	source, err := uc.loadAccount(ctx, sourceID, domain.ErrSourceNotFound)
	if err != nil {
		return nil, err
	}

	destination, err := uc.loadAccount(ctx, destinationID, domain.ErrDestinationNotFound)
	if err != nil {
		return nil, err
	}

	return uc.execute(ctx, movement{
		operation:    OperationTransfer,
		source:       source,
		amount:       req.Amount,
		key:          req.IdempotencyKey,
		participants: []string{source.ID, destination.ID},
		topics:       []string{domain.TopicDepositCreated, domain.TopicTransactionCreated},
		build: func() (*domain.Transaction, error) {
			return uc.builder.Transfer(source, destination, req.Amount, req.IdempotencyKey)
		},
	})
}

// movement is a debit of a source account guarded by an idempotency key.
type movement struct {
	operation    string
	source       *domain.Account
	amount       int64
	key          string
	participants []string
	topics       []string
	build        func() (*domain.Transaction, error)
}

func (uc *TransactionUseCase) execute(ctx context.Context, m movement) (*domain.TransactionRef, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	decision, err := uc.guard.Classify(ctx, m.key, m.participants)
	if err != nil {
		return nil, err
	}

	if decision.Kind != DecisionNew {
		return uc.resolve(m, decision)
	}

	var txn *domain.Transaction

	err = uc.locker.WithAccountLock(ctx, m.source.ID, func(ctx context.Context) error {
		balance, err := uc.calculator.ComputeBalance(ctx, m.source.ID)
		if err != nil {
			return err
		}

		if balance < m.amount {
			return domain.ErrInsufficientFunds
		}

		built, err := m.build()
		if err != nil {
			return err
		}

		if err := uc.txnRepo.Create(ctx, built); err != nil {
			return err
		}

		txn = built

		return nil
	})

	switch {
	case errors.Is(err, domain.ErrDuplicateIdempotencyKey):
		decision, err := uc.guard.Reconcile(ctx, m.key, m.participants)
		if err != nil {
			return nil, err
		}

		return uc.resolve(m, decision)

	case errors.Is(err, domain.ErrInsufficientFunds):
		// The funds may have been spent by a concurrent request carrying
		// the same key, in which case this request is a replay of it.
		if decision, cerr := uc.guard.Classify(ctx, m.key, m.participants); cerr == nil && decision.Kind != DecisionNew {
			return uc.resolve(m, decision)
		}

		return nil, err

	case err != nil:
		return nil, fmt.Errorf("%s: %w", m.operation, err)
	}

	for _, topic := range m.topics {
		publish(ctx, uc.publisher, uc.logger, topic, txn)
	}

	uc.logger.Info().
		Str("operation", m.operation).
		Str("transaction_id", txn.ID).
		Str("source_id", m.source.ID).
		Int64("amount", m.amount).
		Msg("transaction created")

	return &domain.TransactionRef{ID: txn.GlobalID()}, nil
}

func (uc *TransactionUseCase) resolve(m movement, decision IdempotencyDecision) (*domain.TransactionRef, error) {
	if decision.Kind != DecisionReplay {
		uc.logger.Warn().
			Str("operation", m.operation).
			Str("idempotency_key", m.key).
			Strs("participants", m.participants).
			Msg("idempotency key reused for different accounts")

		return nil, domain.ErrIdempotencyKeyReused
	}

	uc.logger.Info().
		Str("operation", m.operation).
		Str("idempotency_key", m.key).
		Str("transaction_id", decision.TransactionID).
		Msg("replaying prior transaction")

	return &domain.TransactionRef{
		ID:       domain.EncodeGlobalID(domain.KindTransaction, decision.TransactionID),
		Replayed: true,
	}, nil
}

func (uc *TransactionUseCase) loadAccount(ctx context.Context, id string, notFound error) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, notFound
	}

	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", id, err)
	}

	return account, nil
}

// GetTransaction retrieves a transaction by its global ID.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, globalID string) (*domain.Transaction, error) {
	localID, err := domain.DecodeAs(globalID, domain.KindTransaction)
	if err != nil {
		return nil, err
	}

	return uc.txnRepo.GetByID(ctx, localID)
}

// ListTransactionsByAccountInput represents input for listing the
// transactions of one account.
type ListTransactionsByAccountInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// ListTransactionsByAccount lists the transactions touching an account,
// newest first.
func (uc *TransactionUseCase) ListTransactionsByAccount(ctx context.Context, input ListTransactionsByAccountInput) ([]*domain.Transaction, error) {
	localID, err := domain.DecodeAs(input.AccountID, domain.KindAccount)
	if err != nil {
		return nil, err
	}

	account, err := uc.loadAccount(ctx, localID, domain.ErrAccountNotFound)
	if err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.txnRepo.ListByAccount(ctx, account.ID, limit, offset)
}

func refOutcome(ref *domain.TransactionRef, err error) string {
	if ref != nil && ref.Replayed {
		return OutcomeReplayed
	}

	return outcomeOf(err, OutcomeCreated)
}
