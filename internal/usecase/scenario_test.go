package usecase_test

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/entryledger/internal/adapter/repository/memory"
	"github.com/iho/entryledger/internal/domain"
	"github.com/iho/entryledger/internal/usecase"
)

func TestCreateAccount_WithInitialBalance(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	id := e.createAccount(t, "Main Account", 1000)

	account, err := e.accounts.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Main Account", account.Name)
	assert.Equal(t, int64(1000), account.ReadonlyBalance)

	txns, err := e.txns.ListTransactionsByAccount(ctx, usecase.ListTransactionsByAccountInput{AccountID: id})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	require.Len(t, txns[0].Entries, 1)
	assert.Equal(t, domain.Entry{AccountID: account.ID, Debit: 1000, Credit: 0, Description: "Initial balance"}, txns[0].Entries[0])
	assert.Equal(t, domain.TransactionKindInitialBalance, txns[0].Kind)

	assert.Equal(t, []string{domain.TopicTransactionCreated, domain.TopicAccountCreated}, e.publisher.topics())

	var published domain.Account
	require.NoError(t, json.Unmarshal(e.publisher.events[1].payload, &published))
	assert.Equal(t, account.ID, published.ID)
	assert.Equal(t, int64(1000), published.ReadonlyBalance)

	assert.Equal(t, int64(1000), e.balance(t, id))
}

func TestCreateAccount_ZeroBalanceCreatesNoTransaction(t *testing.T) {
	e := newEngine(t, nil)

	id := e.createAccount(t, "Empty", 0)

	assert.Equal(t, int64(0), e.transactionCount(t))
	assert.Equal(t, int64(0), e.balance(t, id))
	assert.Equal(t, []string{domain.TopicAccountCreated}, e.publisher.topics())
}

func TestCreateAccount_ReportsEveryViolation(t *testing.T) {
	e := newEngine(t, nil)

	_, err := e.accounts.CreateAccount(context.Background(), domain.CreateAccountRequest{InitialBalance: -5})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"name", "initialBalance"}, verr.Fields())
	assert.Empty(t, e.publisher.topics())
}

func TestWithdraw_Scenario(t *testing.T) {
	e := newEngine(t, memory.NewLocker())
	id := e.createAccount(t, "Wallet", 500)
	e.publisher.reset()

	ref, err := e.txns.Withdraw(context.Background(), domain.WithdrawRequest{SourceID: id, Amount: 100, IdempotencyKey: newKey()})
	require.NoError(t, err)
	assert.False(t, ref.Replayed)

	txn := e.transaction(t, ref.ID)
	require.Len(t, txn.Entries, 1)
	assert.Equal(t, int64(0), txn.Entries[0].Debit)
	assert.Equal(t, int64(100), txn.Entries[0].Credit)
	assert.Equal(t, "Withdrawal from Wallet", txn.Entries[0].Description)

	assert.Equal(t, int64(400), e.balance(t, id))
	assert.Equal(t, []string{domain.TopicWithdrawalCreated, domain.TopicTransactionCreated}, e.publisher.topics())
}

func TestTransfer_Scenario(t *testing.T) {
	e := newEngine(t, memory.NewLocker())
	a := e.createAccount(t, "A", 1000)
	b := e.createAccount(t, "B", 0)
	e.publisher.reset()

	ref, err := e.txns.Transfer(context.Background(), domain.TransferRequest{
		SourceID: a, DestinationID: b, Amount: 250, IdempotencyKey: newKey(),
	})
	require.NoError(t, err)

	txn := e.transaction(t, ref.ID)
	require.Len(t, txn.Entries, 2)

	aID, _ := domain.DecodeAs(a, domain.KindAccount)
	bID, _ := domain.DecodeAs(b, domain.KindAccount)

	assert.Equal(t, domain.Entry{AccountID: aID, Debit: 0, Credit: 250, Description: "Transfer to B"}, txn.Entries[0])
	assert.Equal(t, domain.Entry{AccountID: bID, Debit: 250, Credit: 0, Description: "Transfer from A"}, txn.Entries[1])

	assert.Equal(t, int64(750), e.balance(t, a))
	assert.Equal(t, int64(250), e.balance(t, b))
	assert.Equal(t, []string{domain.TopicDepositCreated, domain.TopicTransactionCreated}, e.publisher.topics())
}

func TestWithdraw_InsufficientFunds(t *testing.T) {
	e := newEngine(t, memory.NewLocker())
	id := e.createAccount(t, "Wallet", 500)
	before := e.transactionCount(t)
	e.publisher.reset()

	_, err := e.txns.Withdraw(context.Background(), domain.WithdrawRequest{SourceID: id, Amount: 2000, IdempotencyKey: newKey()})

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, before, e.transactionCount(t))
	assert.Empty(t, e.publisher.topics())
}

func TestTransfer_InsufficientFunds(t *testing.T) {
	e := newEngine(t, nil)
	a := e.createAccount(t, "A", 10)
	b := e.createAccount(t, "B", 0)

	_, err := e.txns.Transfer(context.Background(), domain.TransferRequest{
		SourceID: a, DestinationID: b, Amount: 11, IdempotencyKey: newKey(),
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, int64(0), e.balance(t, b))
}

func TestWithdraw_NegativeAmountRejectedBeforeMutation(t *testing.T) {
	e := newEngine(t, nil)
	id := e.createAccount(t, "Wallet", 500)
	before := e.transactionCount(t)

	for _, amount := range []int64{-1, -500, 0} {
		_, err := e.txns.Withdraw(context.Background(), domain.WithdrawRequest{SourceID: id, Amount: amount, IdempotencyKey: newKey()})
		assert.ErrorIs(t, err, domain.ErrValidation, "amount %d", amount)

		_, err = e.txns.Transfer(context.Background(), domain.TransferRequest{
			SourceID: id, DestinationID: id, Amount: amount, IdempotencyKey: newKey(),
		})
		assert.ErrorIs(t, err, domain.ErrValidation, "amount %d", amount)
	}

	assert.Equal(t, before, e.transactionCount(t))
}

func TestWithdraw_ReplayReturnsSameTransaction(t *testing.T) {
	e := newEngine(t, nil)
	id := e.createAccount(t, "Wallet", 500)
	key := newKey()

	first, err := e.txns.Withdraw(context.Background(), domain.WithdrawRequest{SourceID: id, Amount: 500, IdempotencyKey: key})
	require.NoError(t, err)
	e.publisher.reset()

	// The balance is now zero; the retry must still replay.
	second, err := e.txns.Withdraw(context.Background(), domain.WithdrawRequest{SourceID: id, Amount: 500, IdempotencyKey: key})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Replayed)
	assert.Equal(t, int64(2), e.transactionCount(t))
	assert.Empty(t, e.publisher.topics())
	assert.Equal(t, int64(0), e.balance(t, id))
}

func TestWithdraw_ConcurrentReplays(t *testing.T) {
	lockers := map[string]usecase.AccountLocker{
		"without lease": usecase.NoopLocker{},
		"with lease":    memory.NewLocker(),
	}

	for name, locker := range lockers {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t, locker)
			id := e.createAccount(t, "Wallet", 100)
			key := newKey()

			const workers = 16
			refs := make([]*domain.TransactionRef, workers)
			errs := make([]error, workers)

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					refs[i], errs[i] = e.txns.Withdraw(context.Background(), domain.WithdrawRequest{
						SourceID: id, Amount: 100, IdempotencyKey: key,
					})
				}(i)
			}
			wg.Wait()

			created := 0
			for i := 0; i < workers; i++ {
				require.NoError(t, errs[i])
				assert.Equal(t, refs[0].ID, refs[i].ID)
				if !refs[i].Replayed {
					created++
				}
			}

			assert.Equal(t, 1, created)
			assert.Equal(t, int64(2), e.transactionCount(t))
			assert.Equal(t, int64(0), e.balance(t, id))
		})
	}
}

func TestWithdraw_LeasePreventsOverdraft(t *testing.T) {
	e := newEngine(t, memory.NewLocker())
	id := e.createAccount(t, "Wallet", 500)

	const workers = 10
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.txns.Withdraw(context.Background(), domain.WithdrawRequest{
				SourceID: id, Amount: 100, IdempotencyKey: newKey(),
			})
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case assert.ErrorIs(t, err, domain.ErrInsufficientFunds):
			rejected++
		}
	}

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, rejected)
	assert.Equal(t, int64(0), e.balance(t, id))
}

func TestTransfer_KeyReuseWithDifferentDestination(t *testing.T) {
	e := newEngine(t, nil)
	a := e.createAccount(t, "A", 1000)
	b := e.createAccount(t, "B", 0)
	c := e.createAccount(t, "C", 0)
	key := newKey()

	_, err := e.txns.Transfer(context.Background(), domain.TransferRequest{SourceID: a, DestinationID: b, Amount: 100, IdempotencyKey: key})
	require.NoError(t, err)
	before := e.transactionCount(t)

	_, err = e.txns.Transfer(context.Background(), domain.TransferRequest{SourceID: a, DestinationID: c, Amount: 100, IdempotencyKey: key})

	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, before, e.transactionCount(t))
	assert.Equal(t, int64(0), e.balance(t, c))
}

func TestTransfer_ReplaySwappedDirectionIsReplay(t *testing.T) {
	e := newEngine(t, nil)
	a := e.createAccount(t, "A", 1000)
	b := e.createAccount(t, "B", 1000)
	key := newKey()

	first, err := e.txns.Transfer(context.Background(), domain.TransferRequest{SourceID: a, DestinationID: b, Amount: 100, IdempotencyKey: key})
	require.NoError(t, err)

	// Participant sets are compared, not roles.
	second, err := e.txns.Transfer(context.Background(), domain.TransferRequest{SourceID: b, DestinationID: a, Amount: 100, IdempotencyKey: key})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Replayed)
}

func TestIdempotency_ParticipantSetsMustMatchExactly(t *testing.T) {
	e := newEngine(t, nil)
	a := e.createAccount(t, "A", 1000)
	b := e.createAccount(t, "B", 0)

	transferKey := newKey()
	_, err := e.txns.Transfer(context.Background(), domain.TransferRequest{SourceID: a, DestinationID: b, Amount: 100, IdempotencyKey: transferKey})
	require.NoError(t, err)

	_, err = e.txns.Withdraw(context.Background(), domain.WithdrawRequest{SourceID: a, Amount: 100, IdempotencyKey: transferKey})
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)

	withdrawKey := newKey()
	_, err = e.txns.Withdraw(context.Background(), domain.WithdrawRequest{SourceID: a, Amount: 100, IdempotencyKey: withdrawKey})
	require.NoError(t, err)

	_, err = e.txns.Transfer(context.Background(), domain.TransferRequest{SourceID: a, DestinationID: b, Amount: 100, IdempotencyKey: withdrawKey})
	assert.ErrorIs(t, err, domain.ErrIdempotencyKeyReused)

	assert.Equal(t, int64(800), e.balance(t, a))
}

func TestTransfer_SameAccount(t *testing.T) {
	e := newEngine(t, nil)
	a := e.createAccount(t, "A", 1000)
	missing := domain.EncodeGlobalID(domain.KindAccount, "missing")

	for _, id := range []string{a, missing} {
		_, err := e.txns.Transfer(context.Background(), domain.TransferRequest{SourceID: id, DestinationID: id, Amount: 1, IdempotencyKey: newKey()})
		assert.ErrorIs(t, err, domain.ErrSameAccount)
	}
}

func TestTransfer_MissingAccounts(t *testing.T) {
	e := newEngine(t, nil)
	a := e.createAccount(t, "A", 1000)
	missing := domain.EncodeGlobalID(domain.KindAccount, "missing")

	_, err := e.txns.Transfer(context.Background(), domain.TransferRequest{SourceID: missing, DestinationID: a, Amount: 1, IdempotencyKey: newKey()})
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
	assert.EqualError(t, err, "source account not found")

	_, err = e.txns.Transfer(context.Background(), domain.TransferRequest{SourceID: a, DestinationID: missing, Amount: 1, IdempotencyKey: newKey()})
	assert.ErrorIs(t, err, domain.ErrDestinationNotFound)

	_, err = e.txns.Withdraw(context.Background(), domain.WithdrawRequest{SourceID: missing, Amount: 1, IdempotencyKey: newKey()})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.EqualError(t, err, "account not found")
}

func TestInvalidIDType(t *testing.T) {
	e := newEngine(t, nil)
	a := e.createAccount(t, "A", 1000)
	txnID := domain.EncodeGlobalID(domain.KindTransaction, "x")

	_, err := e.txns.Withdraw(context.Background(), domain.WithdrawRequest{SourceID: txnID, Amount: 1, IdempotencyKey: newKey()})
	assert.ErrorIs(t, err, domain.ErrInvalidIDType)

	_, err = e.txns.Transfer(context.Background(), domain.TransferRequest{SourceID: a, DestinationID: txnID, Amount: 1, IdempotencyKey: newKey()})
	assert.ErrorIs(t, err, domain.ErrInvalidIDType)

	_, err = e.accounts.RefreshAccountBalance(context.Background(), domain.RefreshBalanceRequest{SourceID: "not-a-global-id"})
	assert.ErrorIs(t, err, domain.ErrInvalidIDType)

	_, err = e.txns.GetTransaction(context.Background(), a)
	assert.ErrorIs(t, err, domain.ErrInvalidIDType)
}

func TestRefreshAccountBalance(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()
	a := e.createAccount(t, "A", 1000)
	b := e.createAccount(t, "B", 0)

	_, err := e.txns.Transfer(ctx, domain.TransferRequest{SourceID: a, DestinationID: b, Amount: 300, IdempotencyKey: newKey()})
	require.NoError(t, err)

	stale, err := e.accounts.GetAccount(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), stale.ReadonlyBalance, "cached balance is not updated by money movement")

	before := e.transactionCount(t)

	for _, id := range []string{a, b} {
		ref, err := e.accounts.RefreshAccountBalance(ctx, domain.RefreshBalanceRequest{SourceID: id})
		require.NoError(t, err)
		assert.Equal(t, id, ref.ID)

		account, err := e.accounts.GetAccount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, e.balance(t, id), account.ReadonlyBalance)
	}

	assert.Equal(t, before, e.transactionCount(t))

	_, err = e.accounts.RefreshAccountBalance(ctx, domain.RefreshBalanceRequest{SourceID: domain.EncodeGlobalID(domain.KindAccount, "missing")})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	e := newEngine(t, nil)
	e.publisher.err = errBrokerDown

	id := e.createAccount(t, "A", 100)

	ref, err := e.txns.Withdraw(context.Background(), domain.WithdrawRequest{SourceID: id, Amount: 40, IdempotencyKey: newKey()})
	require.NoError(t, err)
	assert.NotEmpty(t, ref.ID)
	assert.Equal(t, int64(60), e.balance(t, id))
}

func TestComputeBalance_IndependentOfInsertionOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ctx := context.Background()

	var txns []*domain.Transaction
	var want int64
	for i := 0; i < 200; i++ {
		amount := rng.Int63n(10_000) + 1
		entry := domain.Entry{AccountID: "acc", Debit: amount}
		if rng.Intn(2) == 0 {
			entry = domain.Entry{AccountID: "acc", Credit: amount}
		}
		want += entry.Debit - entry.Credit

		txns = append(txns, &domain.Transaction{
			ID: newKey(), Kind: domain.TransactionKindWithdrawal, IdempotencyKey: newKey(),
			Entries: []domain.Entry{entry, {AccountID: "noise", Debit: amount}},
		})
	}

	for trial := 0; trial < 3; trial++ {
		rng.Shuffle(len(txns), func(i, j int) { txns[i], txns[j] = txns[j], txns[i] })

		repo := memory.NewTransactionRepository(memory.NewStore())
		for _, txn := range txns {
			require.NoError(t, repo.Create(ctx, txn))
		}

		got, err := usecase.NewBalanceCalculator(repo).ComputeBalance(ctx, "acc")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestListAccounts(t *testing.T) {
	e := newEngine(t, nil)
	for _, name := range []string{"A", "B", "C"} {
		e.createAccount(t, name, 0)
	}

	accounts, err := e.accounts.ListAccounts(context.Background(), usecase.ListAccountsInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "A", accounts[0].Name)
}

func TestZeroAmountIsRejectedBeforeAnyWrite(t *testing.T) {
	e := newEngine(t, nil)
	ctx := context.Background()

	alice := e.createAccount(t, "Alice", 100)
	bob := e.createAccount(t, "Bob", 0)
	e.publisher.reset()
	before := e.transactionCount(t)

	_, err := e.txns.Withdraw(ctx, domain.WithdrawRequest{SourceID: alice, Amount: 0, IdempotencyKey: newKey()})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.txns.Transfer(ctx, domain.TransferRequest{SourceID: alice, DestinationID: bob, Amount: 0, IdempotencyKey: newKey()})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, before, e.transactionCount(t))
	assert.Empty(t, e.publisher.topics())
}
