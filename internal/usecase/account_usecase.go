package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/entryledger/internal/domain"
)

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	accountRepo AccountRepository
	txnRepo     TransactionRepository
	idGen       IDGenerator
	builder     *TransactionBuilder
	calculator  *BalanceCalculator
	publisher   EventPublisher
	metrics     MetricsRecorder
	logger      zerolog.Logger
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	accountRepo AccountRepository,
	txnRepo TransactionRepository,
	idGen IDGenerator,
	publisher EventPublisher,
	logger zerolog.Logger,
) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		idGen:       idGen,
		builder:     NewTransactionBuilder(idGen),
		calculator:  NewBalanceCalculator(txnRepo),
		publisher:   publisher,
		metrics:     NoopRecorder{},
		logger:      logger.With().Str("component", "account_usecase").Logger(),
	}
}

// WithMetrics sets the recorder that receives operation outcomes.
func (uc *AccountUseCase) WithMetrics(rec MetricsRecorder) *AccountUseCase {
	uc.metrics = rec
	return uc
}

// CreateAccount persists a new account and, for a positive opening amount,
// the initial balance transaction that backs its cached balance.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (ref *domain.AccountRef, err error) {
	start := time.Now()
	defer func() {
		observe(uc.metrics, OperationCreateAccount, start, outcomeOf(err, OutcomeCreated))
		logFailure(uc.logger, OperationCreateAccount, err)
	}()

	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:              uc.idGen.Generate(),
		Name:            req.Name,
		ReadonlyBalance: req.InitialBalance,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var opening *domain.Transaction
	if req.InitialBalance > 0 {
		opening, err = uc.builder.InitialBalance(account, req.InitialBalance)
		if err != nil {
			return nil, err
		}
	}

	if err := uc.accountRepo.Create(ctx, account, opening); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	if opening != nil {
		publish(ctx, uc.publisher, uc.logger, domain.TopicTransactionCreated, opening)
	}

	publish(ctx, uc.publisher, uc.logger, domain.TopicAccountCreated, account)

	uc.logger.Info().
		Str("account_id", account.ID).
		Int64("initial_balance", req.InitialBalance).
		Msg("account created")

	return &domain.AccountRef{ID: account.GlobalID()}, nil
}

// RefreshAccountBalance overwrites the cached balance with the live one.
// Concurrent refreshes race; the last write wins.
func (uc *AccountUseCase) RefreshAccountBalance(ctx context.Context, req domain.RefreshBalanceRequest) (ref *domain.AccountRef, err error) {
	start := time.Now()
	defer func() {
		observe(uc.metrics, OperationRefreshBalance, start, outcomeOf(err, OutcomeRefreshed))
		logFailure(uc.logger, OperationRefreshBalance, err)
	}()

	if err := domain.Validate(req); err != nil {
		return nil, err
	}

	localID, err := domain.DecodeAs(req.SourceID, domain.KindAccount)
	if err != nil {
		return nil, err
	}

	account, err := uc.accountRepo.GetByID(ctx, localID)
	if err != nil {
		return nil, err
	}

	balance, err := uc.calculator.ComputeBalance(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	if err := uc.accountRepo.UpdateReadonlyBalance(ctx, account.ID, balance, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("update readonly balance: %w", err)
	}

	uc.logger.Debug().
		Str("account_id", account.ID).
		Int64("previous", account.ReadonlyBalance).
		Int64("balance", balance).
		Msg("account balance refreshed")

	return &domain.AccountRef{ID: account.GlobalID()}, nil
}

// GetAccount retrieves an account by its global ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, globalID string) (*domain.Account, error) {
	localID, err := domain.DecodeAs(globalID, domain.KindAccount)
	if err != nil {
		return nil, err
	}

	return uc.accountRepo.GetByID(ctx, localID)
}

// GetLiveBalance computes the authoritative balance of an account.
func (uc *AccountUseCase) GetLiveBalance(ctx context.Context, globalID string) (int64, error) {
	account, err := uc.GetAccount(ctx, globalID)
	if err != nil {
		return 0, err
	}

	return uc.calculator.ComputeBalance(ctx, account.ID)
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts lists accounts with pagination.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, error) {
	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.accountRepo.List(ctx, limit, offset)
}
