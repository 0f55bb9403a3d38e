package lending

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finchwallet/finch/internal/common"
	"github.com/finchwallet/finch/internal/model"
	"github.com/finchwallet/finch/internal/storage"
)

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func newAccount(t *testing.T, store *storage.SQLiteStorage, name string, balance int64) *model.Account {
	t.Helper()
	account := &model.Account{
		UserID:  1,
		Name:    name,
		Balance: decimal.NewFromInt(balance),
	}
	require.NoError(t, store.CreateAccount(context.Background(), account))
	return account
}

func accountBalance(t *testing.T, store *storage.SQLiteStorage, id int64) decimal.Decimal {
	t.Helper()
	account, err := store.GetAccount(context.Background(), 1, id)
	require.NoError(t, err)
	return account.Balance
}

func paymentDate(day int) time.Time {
	return time.Date(2024, time.June, day, 0, 0, 0, 0, time.UTC)
}

func TestTracker_LendSettlementChain(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := newAccount(t, store, "Main", 1000)
	tracker := NewTracker(store)

	// Lending 100 sends money out.
	entry, err := tracker.CreateEntry(ctx, 1, EntryInput{
		Kind:         model.KindLend,
		Counterparty: "Alice",
		AccountID:    account.ID,
		Amount:       decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, model.LendDebtOpen, entry.Status)
	assert.True(t, accountBalance(t, store, account.ID).Equal(decimal.NewFromInt(900)))

	// A partial repayment brings some back and leaves the entry open.
	_, err = tracker.AddPayment(ctx, 1, entry.ID, PaymentInput{
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(60),
		Date:      paymentDate(1),
	})
	require.NoError(t, err)
	assert.True(t, accountBalance(t, store, account.ID).Equal(decimal.NewFromInt(960)))

	outstanding, status, err := tracker.Outstanding(ctx, 1, entry.ID)
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, model.LendDebtOpen, status)

	// Paying the rest settles it.
	final, err := tracker.AddPayment(ctx, 1, entry.ID, PaymentInput{
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(40),
		Date:      paymentDate(2),
	})
	require.NoError(t, err)
	assert.True(t, accountBalance(t, store, account.ID).Equal(decimal.NewFromInt(1000)))

	outstanding, status, err = tracker.Outstanding(ctx, 1, entry.ID)
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.Zero))
	assert.Equal(t, model.LendDebtSettled, status)

	got, err := store.GetLendDebt(ctx, 1, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LendDebtSettled, got.Status)

	// Deleting the settling payment reopens the entry and reverses its
	// balance effect.
	require.NoError(t, tracker.DeletePayment(ctx, 1, final.ID))
	assert.True(t, accountBalance(t, store, account.ID).Equal(decimal.NewFromInt(960)))

	outstanding, status, err = tracker.Outstanding(ctx, 1, entry.ID)
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, model.LendDebtOpen, status)
}

func TestTracker_DebtDirection(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := newAccount(t, store, "Main", 1000)
	tracker := NewTracker(store)

	// Borrowing 200 brings money in.
	entry, err := tracker.CreateEntry(ctx, 1, EntryInput{
		Kind:         model.KindDebt,
		Counterparty: "Bob",
		AccountID:    account.ID,
		Amount:       decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	assert.True(t, accountBalance(t, store, account.ID).Equal(decimal.NewFromInt(1200)))

	// Repaying a debt sends money out.
	_, err = tracker.AddPayment(ctx, 1, entry.ID, PaymentInput{
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(50),
		Date:      paymentDate(1),
	})
	require.NoError(t, err)
	assert.True(t, accountBalance(t, store, account.ID).Equal(decimal.NewFromInt(1150)))

	outstanding, status, err := tracker.Outstanding(ctx, 1, entry.ID)
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, model.LendDebtOpen, status)
}

func TestTracker_MarkSettled(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := newAccount(t, store, "Main", 1000)
	tracker := NewTracker(store)

	entry, err := tracker.CreateEntry(ctx, 1, EntryInput{
		Kind:         model.KindLend,
		Counterparty: "Alice",
		AccountID:    account.ID,
		Amount:       decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = tracker.AddPayment(ctx, 1, entry.ID, PaymentInput{
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(30),
		Date:      paymentDate(1),
	})
	require.NoError(t, err)

	payment, err := tracker.MarkSettled(ctx, 1, entry.ID, paymentDate(2))
	require.NoError(t, err)
	assert.True(t, payment.Amount.Equal(decimal.NewFromInt(70)),
		"settling pays exactly the outstanding amount")

	outstanding, status, err := tracker.Outstanding(ctx, 1, entry.ID)
	require.NoError(t, err)
	assert.True(t, outstanding.Equal(decimal.Zero))
	assert.Equal(t, model.LendDebtSettled, status)
	assert.True(t, accountBalance(t, store, account.ID).Equal(decimal.NewFromInt(1000)))

	// Settling twice is rejected.
	_, err = tracker.MarkSettled(ctx, 1, entry.ID, paymentDate(3))
	assert.True(t, errors.Is(err, common.ErrValidation), "err = %v", err)
}

func TestTracker_UpdateEntryReversesOldDelta(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	main := newAccount(t, store, "Main", 1000)
	savings := newAccount(t, store, "Savings", 500)
	tracker := NewTracker(store)

	entry, err := tracker.CreateEntry(ctx, 1, EntryInput{
		Kind:         model.KindLend,
		Counterparty: "Alice",
		AccountID:    main.ID,
		Amount:       decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.True(t, accountBalance(t, store, main.ID).Equal(decimal.NewFromInt(900)))

	// Moving the entry to another account and flipping its kind reverses the
	// old effect entirely before applying the new one.
	_, err = tracker.UpdateEntry(ctx, 1, entry.ID, EntryInput{
		Kind:         model.KindDebt,
		Counterparty: "Alice",
		AccountID:    savings.ID,
		Amount:       decimal.NewFromInt(250),
	})
	require.NoError(t, err)

	assert.True(t, accountBalance(t, store, main.ID).Equal(decimal.NewFromInt(1000)))
	assert.True(t, accountBalance(t, store, savings.ID).Equal(decimal.NewFromInt(750)))
}

func TestTracker_UpdateEntryRederivesStatus(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := newAccount(t, store, "Main", 1000)
	tracker := NewTracker(store)

	entry, err := tracker.CreateEntry(ctx, 1, EntryInput{
		Kind:         model.KindLend,
		Counterparty: "Alice",
		AccountID:    account.ID,
		Amount:       decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	_, err = tracker.AddPayment(ctx, 1, entry.ID, PaymentInput{
		AccountID: account.ID,
		Amount:    decimal.NewFromInt(80),
		Date:      paymentDate(1),
	})
	require.NoError(t, err)

	// Lowering the principal below what is already paid settles the entry.
	updated, err := tracker.UpdateEntry(ctx, 1, entry.ID, EntryInput{
		Kind:         model.KindLend,
		Counterparty: "Alice",
		AccountID:    account.ID,
		Amount:       decimal.NewFromInt(75),
	})
	require.NoError(t, err)
	assert.Equal(t, model.LendDebtSettled, updated.Status)

	// Raising it back reopens.
	updated, err = tracker.UpdateEntry(ctx, 1, entry.ID, EntryInput{
		Kind:         model.KindLend,
		Counterparty: "Alice",
		AccountID:    account.ID,
		Amount:       decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, model.LendDebtOpen, updated.Status)
}

func TestTracker_DeleteEntryReversesEverything(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := newAccount(t, store, "Main", 1000)
	tracker := NewTracker(store)

	entry, err := tracker.CreateEntry(ctx, 1, EntryInput{
		Kind:         model.KindLend,
		Counterparty: "Alice",
		AccountID:    account.ID,
		Amount:       decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	for day, amount := range map[int]int64{1: 60, 2: 40} {
		_, err = tracker.AddPayment(ctx, 1, entry.ID, PaymentInput{
			AccountID: account.ID,
			Amount:    decimal.NewFromInt(amount),
			Date:      paymentDate(day),
		})
		require.NoError(t, err)
	}

	require.NoError(t, tracker.DeleteEntry(ctx, 1, entry.ID))

	// The account is exactly back at its opening balance.
	assert.True(t, accountBalance(t, store, account.ID).Equal(decimal.NewFromInt(1000)))

	_, err = store.GetLendDebt(ctx, 1, entry.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound), "err = %v", err)
	payments, err := store.ListPayments(ctx, entry.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestTracker_InputValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := newAccount(t, store, "Main", 1000)
	tracker := NewTracker(store)

	tests := []struct {
		name  string
		input EntryInput
	}{
		{
			name: "unknown kind",
			input: EntryInput{
				Kind: "IOU", Counterparty: "Alice",
				AccountID: account.ID, Amount: decimal.NewFromInt(10),
			},
		},
		{
			name: "missing counterparty",
			input: EntryInput{
				Kind: model.KindLend, AccountID: account.ID, Amount: decimal.NewFromInt(10),
			},
		},
		{
			name: "non-positive amount",
			input: EntryInput{
				Kind: model.KindLend, Counterparty: "Alice",
				AccountID: account.ID, Amount: decimal.Zero,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tracker.CreateEntry(ctx, 1, tt.input)
			assert.True(t, errors.Is(err, common.ErrValidation), "err = %v", err)
		})
	}

	entry, err := tracker.CreateEntry(ctx, 1, EntryInput{
		Kind: model.KindLend, Counterparty: "Alice",
		AccountID: account.ID, Amount: decimal.NewFromInt(10),
	})
	require.NoError(t, err)

	_, err = tracker.AddPayment(ctx, 1, entry.ID, PaymentInput{
		AccountID: account.ID, Amount: decimal.NewFromInt(5),
	})
	assert.True(t, errors.Is(err, common.ErrValidation), "payment without date: err = %v", err)

	_, err = tracker.AddPayment(ctx, 1, entry.ID, PaymentInput{
		AccountID: account.ID, Amount: decimal.NewFromInt(-5), Date: paymentDate(1),
	})
	assert.True(t, errors.Is(err, common.ErrValidation), "negative payment: err = %v", err)
}

// Balance consistency survives arbitrary mutation sequences: after every
// operation, the account balance equals its opening balance plus the signed
// effects of the rows that currently exist.
func TestTracker_BalanceInvariantUnderMutation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	opening := decimal.NewFromInt(10000)
	account := newAccount(t, store, "Main", 10000)
	tracker := NewTracker(store)

	entry, err := tracker.CreateEntry(ctx, 1, EntryInput{
		Kind:         model.KindLend,
		Counterparty: "Alice",
		AccountID:    account.ID,
		Amount:       decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	checkInvariant := func(step int) {
		got, err := store.GetLendDebt(ctx, 1, entry.ID)
		require.NoError(t, err)
		payments, err := store.ListPayments(ctx, entry.ID)
		require.NoError(t, err)

		expected := opening.Add(got.Kind.EntryDelta(got.Amount))
		for _, p := range payments {
			expected = expected.Add(got.Kind.PaymentDelta(p.Amount))
		}
		balance := accountBalance(t, store, account.ID)
		require.True(t, balance.Equal(expected),
			"step %d: balance %s, want %s", step, balance, expected)

		require.Equal(t, model.StatusFor(got.Outstanding(payments)), got.Status,
			"step %d: stored status disagrees with derivation", step)
	}
	checkInvariant(0)

	rng := rand.New(rand.NewSource(42))
	var paymentIDs []int64

	for step := 1; step <= 60; step++ {
		switch op := rng.Intn(4); {
		case op == 0 || len(paymentIDs) == 0:
			amount := decimal.NewFromInt(int64(rng.Intn(100) + 1))
			payment, err := tracker.AddPayment(ctx, 1, entry.ID, PaymentInput{
				AccountID: account.ID,
				Amount:    amount,
				Date:      paymentDate(rng.Intn(28) + 1),
			})
			require.NoError(t, err)
			paymentIDs = append(paymentIDs, payment.ID)
		case op == 1:
			id := paymentIDs[rng.Intn(len(paymentIDs))]
			_, err := tracker.UpdatePayment(ctx, 1, id, PaymentInput{
				AccountID: account.ID,
				Amount:    decimal.NewFromInt(int64(rng.Intn(100) + 1)),
				Date:      paymentDate(rng.Intn(28) + 1),
			})
			require.NoError(t, err)
		case op == 2:
			i := rng.Intn(len(paymentIDs))
			require.NoError(t, tracker.DeletePayment(ctx, 1, paymentIDs[i]))
			paymentIDs = append(paymentIDs[:i], paymentIDs[i+1:]...)
		default:
			_, err := tracker.UpdateEntry(ctx, 1, entry.ID, EntryInput{
				Kind:         model.KindLend,
				Counterparty: "Alice",
				AccountID:    account.ID,
				Amount:       decimal.NewFromInt(int64(rng.Intn(500) + 100)),
			})
			require.NoError(t, err)
		}
		checkInvariant(step)
	}
}
