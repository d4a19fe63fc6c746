// Package storetest holds the behaviour every storage.UserStore must share.
// Adapter packages call Run from their own tests.
package storetest

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet/internal/core"
	"wallet/internal/storage"
)

// Factory returns an empty store. Reopen, when set, returns a second store
// over the same underlying data so persistence across restarts is checked.
type Factory struct {
	New    func(t *testing.T) storage.UserStore
	Reopen func(t *testing.T) storage.UserStore
}

// SampleUser builds a user with a few transactions and a budget.
func SampleUser(t *testing.T, name string) *core.User {
	t.Helper()
	u := core.NewUser(name, "$2a$10$hash-"+name)
	for _, step := range []struct {
		kind     core.Kind
		amount   string
		category string
	}{
		{core.Income, "100.10", "salary"},
		{core.Expense, "30.05", "food"},
		{core.Expense, "0.001", "food"},
		{core.Income, "7", "gift"},
	} {
		tx, err := core.NewTransaction(step.kind, decimal.RequireFromString(step.amount), step.category)
		require.NoError(t, err)
		require.NoError(t, u.Ledger.Append(tx))
	}
	require.NoError(t, u.Ledger.SetBudget("food", decimal.RequireFromString("40.5")))
	return u
}

// AssertSameUser compares two users field by field.
func AssertSameUser(t *testing.T, want, got *core.User) {
	t.Helper()
	require.NotNil(t, got)
	require.NotNil(t, got.Ledger)
	assert.Equal(t, want.Username, got.Username)
	assert.Equal(t, want.PasswordHash, got.PasswordHash)
	assert.True(t, want.Ledger.Balance().Equal(got.Ledger.Balance()),
		"balance: want %s got %s", want.Ledger.Balance(), got.Ledger.Balance())

	wantTx, gotTx := want.Ledger.Transactions(), got.Ledger.Transactions()
	require.Len(t, gotTx, len(wantTx))
	for i := range wantTx {
		assert.Equal(t, wantTx[i].ID, gotTx[i].ID)
		assert.Equal(t, wantTx[i].Kind, gotTx[i].Kind)
		assert.Equal(t, wantTx[i].Category, gotTx[i].Category)
		assert.True(t, wantTx[i].Amount.Equal(gotTx[i].Amount), "amount %d", i)
		assert.True(t, wantTx[i].Timestamp.Equal(gotTx[i].Timestamp), "timestamp %d", i)
	}

	wantB, gotB := want.Ledger.Budgets(), got.Ledger.Budgets()
	require.Len(t, gotB, len(wantB))
	for k, v := range wantB {
		assert.True(t, v.Equal(gotB[k]), "budget %s", k)
	}
}

// Run executes the shared store behaviour against f.
func Run(t *testing.T, f Factory) {
	ctx := context.Background()

	t.Run("get missing user", func(t *testing.T) {
		s := f.New(t)
		_, err := s.Get(ctx, "nobody")
		assert.ErrorIs(t, err, core.ErrUserNotFound)

		ok, err := s.Exists(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put and get", func(t *testing.T) {
		s := f.New(t)
		u := SampleUser(t, "alice")
		require.NoError(t, s.Put(ctx, u))

		ok, err := s.Exists(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.Get(ctx, "alice")
		require.NoError(t, err)
		AssertSameUser(t, u, got)
	})

	t.Run("put again appends new transactions", func(t *testing.T) {
		s := f.New(t)
		u := SampleUser(t, "alice")
		require.NoError(t, s.Put(ctx, u))

		tx, err := core.NewTransaction(core.Expense, decimal.RequireFromString("3"), "rent")
		require.NoError(t, err)
		require.NoError(t, u.Ledger.Append(tx))
		require.NoError(t, u.Ledger.SetBudget("food", decimal.RequireFromString("99")))
		require.NoError(t, s.Put(ctx, u))

		got, err := s.Get(ctx, "alice")
		require.NoError(t, err)
		AssertSameUser(t, u, got)
	})

	t.Run("remove", func(t *testing.T) {
		s := f.New(t)
		require.NoError(t, s.Put(ctx, SampleUser(t, "alice")))
		require.NoError(t, s.Put(ctx, SampleUser(t, "bob")))
		require.NoError(t, s.Remove(ctx, "alice"))

		_, err := s.Get(ctx, "alice")
		assert.ErrorIs(t, err, core.ErrUserNotFound)
		_, err = s.Get(ctx, "bob")
		assert.NoError(t, err)
	})

	t.Run("snapshot replaces contents", func(t *testing.T) {
		s := f.New(t)
		require.NoError(t, s.Put(ctx, SampleUser(t, "old")))

		bob := SampleUser(t, "bob")
		carol := core.NewUser("carol", "h")
		require.NoError(t, s.SaveSnapshot(ctx, map[string]*core.User{"bob": bob, "carol": carol}))

		snap, err := s.LoadSnapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snap, 2)
		AssertSameUser(t, bob, snap["bob"])
		AssertSameUser(t, carol, snap["carol"])
		_, ok := snap["old"]
		assert.False(t, ok)
	})

	if f.Reopen == nil {
		return
	}
	t.Run("survives reopen", func(t *testing.T) {
		s := f.New(t)
		u := SampleUser(t, "alice")
		require.NoError(t, s.Put(ctx, u))
		require.NoError(t, s.Close())

		again := f.Reopen(t)
		got, err := again.Get(ctx, "alice")
		require.NoError(t, err)
		AssertSameUser(t, u, got)
	})
}
