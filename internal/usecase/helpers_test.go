package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iho/entryledger/internal/adapter/repository/memory"
	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/usecase"
)

type sequentialIDs struct{ n atomic.Int64 }

func (g *sequentialIDs) Generate() string {
	return fmt.Sprintf("id-%05d", g.n.Add(1))
}

type publishedEvent struct {
	topic   string
	payload []byte
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, publishedEvent{topic: topic, payload: payload})

	return p.err
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.topic)
	}

	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type engine struct {
	store       *memory.Store
	accountRepo *memory.AccountRepository
	txnRepo     *memory.TransactionRepository
	ledgerRepo  *memory.LedgerRepository
	publisher   *recordingPublisher
	accounts    *usecase.AccountUseCase
	txns        *usecase.TransactionUseCase
	calculator  *usecase.BalanceCalculator
}

func newEngine(t *testing.T, locker usecase.AccountLocker) *engine {
	t.Helper()

	store := memory.NewStore()
	e := &engine{
		store:       store,
		accountRepo: memory.NewAccountRepository(store),
		txnRepo:     memory.NewTransactionRepository(store),
		ledgerRepo:  memory.NewLedgerRepository(store),
		publisher:   &recordingPublisher{},
	}

	idGen := &sequentialIDs{}
	logger := zerolog.Nop()

	e.accounts = usecase.NewAccountUseCase(e.accountRepo, e.txnRepo, idGen, e.publisher, logger)
	e.txns = usecase.NewTransactionUseCase(e.accountRepo, e.txnRepo, idGen, locker, e.publisher, logger)
	e.calculator = usecase.NewBalanceCalculator(e.txnRepo)

	return e
}

func (e *engine) createAccount(t *testing.T, name string, initial int64) string {
	t.Helper()

	ref, err := e.accounts.CreateAccount(context.Background(), domain.CreateAccountRequest{Name: name, InitialBalance: initial})
	require.NoError(t, err)

	return ref.ID
}

func (e *engine) balance(t *testing.T, globalID string) int64 {
	t.Helper()

	localID, err := domain.DecodeAs(globalID, domain.KindAccount)
	require.NoError(t, err)

	balance, err := e.calculator.ComputeBalance(context.Background(), localID)
	require.NoError(t, err)

	return balance
}

func (e *engine) transactionCount(t *testing.T) int64 {
	t.Helper()

	report, err := e.ledgerRepo.CheckConsistency(context.Background())
	require.NoError(t, err)

	return report.Transactions
}

func (e *engine) transaction(t *testing.T, globalID string) *domain.Transaction {
	t.Helper()

	txn, err := e.txns.GetTransaction(context.Background(), globalID)
	require.NoError(t, err)

	return txn
}

func newKey() string { return uuid.NewString() }

var errBrokerDown = errors.New("broker down")
