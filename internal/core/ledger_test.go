package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustTx(t *testing.T, kind Kind, amount, category string) Transaction {
	t.Helper()
	tx, err := NewTransaction(kind, dec(amount), category)
	require.NoError(t, err)
	return tx
}

func TestNewTransactionValidate(t *testing.T) {
	cases := []struct {
		name     string
		kind     Kind
		amount   string
		category string
		ok       bool
	}{
		{"income", Income, "10", "salary", true},
		{"expense", Expense, "0.01", "food", true},
		{"zero amount", Expense, "0", "food", false},
		{"negative amount", Income, "-1", "salary", false},
		{"blank category", Income, "1", "  ", false},
		{"unknown kind", Kind("transfer"), "1", "x", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx, err := NewTransaction(tc.kind, dec(tc.amount), tc.category)
			if !tc.ok {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, tx.ID)
			assert.False(t, tx.Timestamp.IsZero())
		})
	}
}

func TestNewTransactionTrimsCategory(t *testing.T) {
	tx := mustTx(t, Income, "5", "  salary ")
	assert.Equal(t, "salary", tx.Category)
}

func TestLedgerBalanceFollowsTransactions(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Append(mustTx(t, Income, "100", "salary")))
	require.NoError(t, l.Append(mustTx(t, Expense, "30.25", "food")))
	require.NoError(t, l.Append(mustTx(t, Income, "0.25", "gift")))

	assert.True(t, l.Balance().Equal(dec("70")))
	assert.True(t, l.Balance().Equal(l.Total(Income).Sub(l.Total(Expense))))
	assert.Equal(t, 3, l.Len())
}

func TestLedgerTransactionsIsACopy(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Append(mustTx(t, Income, "1", "a")))

	txs := l.Transactions()
	txs[0].Category = "changed"

	assert.Equal(t, "a", l.Transactions()[0].Category)
}

func TestLedgerSumByCategory(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Append(mustTx(t, Income, "100", "salary")))
	require.NoError(t, l.Append(mustTx(t, Expense, "10", "food")))
	require.NoError(t, l.Append(mustTx(t, Expense, "5.5", "food")))
	require.NoError(t, l.Append(mustTx(t, Expense, "20", "rent")))

	expenses := l.SumByCategory(Expense)
	assert.Len(t, expenses, 2)
	assert.True(t, expenses["food"].Equal(dec("15.5")))
	assert.True(t, expenses["rent"].Equal(dec("20")))

	sum := decimal.Zero
	for _, v := range expenses {
		sum = sum.Add(v)
	}
	assert.True(t, sum.Equal(l.Total(Expense)))

	_, ok := l.SumByCategory(Income)["food"]
	assert.False(t, ok)
}

func TestLedgerBudgets(t *testing.T) {
	l := NewLedger()

	_, ok := l.Budget("food")
	assert.False(t, ok)

	require.NoError(t, l.SetBudget("food", dec("40")))
	require.NoError(t, l.SetBudget("food", dec("50")))
	limit, ok := l.Budget("food")
	require.True(t, ok)
	assert.True(t, limit.Equal(dec("50")))

	assert.ErrorIs(t, l.SetBudget("", dec("1")), ErrValidation)
	assert.ErrorIs(t, l.SetBudget("rent", dec("0")), ErrValidation)

	copied := l.Budgets()
	copied["food"] = dec("1")
	limit, _ = l.Budget("food")
	assert.True(t, limit.Equal(dec("50")))
}

func TestLedgerOverBudget(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.SetBudget("food", dec("40")))
	require.NoError(t, l.Append(mustTx(t, Expense, "40", "food")))

	_, over := l.OverBudget("food")
	assert.False(t, over, "spending exactly the cap is allowed")

	require.NoError(t, l.Append(mustTx(t, Expense, "0.01", "food")))
	bErr, over := l.OverBudget("food")
	require.True(t, over)
	assert.Equal(t, "food", bErr.Category)
	assert.True(t, bErr.Spent.Equal(dec("40.01")))
	assert.ErrorIs(t, bErr, ErrBudgetExceeded)
	assert.Equal(t, "budget limit exceeded for category: food", bErr.Error())

	_, over = l.OverBudget("rent")
	assert.False(t, over)
}

func TestLedgerStatistics(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Append(mustTx(t, Income, "100", "salary")))
	require.NoError(t, l.Append(mustTx(t, Expense, "30", "food")))
	require.NoError(t, l.SetBudget("rent", dec("500")))
	require.NoError(t, l.SetBudget("food", dec("40")))

	s := l.Statistics()
	assert.True(t, s.Balance.Equal(dec("70")))
	require.Len(t, s.Budgets, 2)
	assert.Equal(t, "food", s.Budgets[0].Category)
	assert.True(t, s.Budgets[0].Remaining.Equal(dec("10")))
	assert.Equal(t, "rent", s.Budgets[1].Category)
	assert.True(t, s.Budgets[1].Spent.IsZero())
}

func TestLedgerJSONRoundTrip(t *testing.T) {
	u := NewUser("alice", "hash")
	require.NoError(t, u.Ledger.Append(mustTx(t, Income, "100.10", "salary")))
	require.NoError(t, u.Ledger.Append(mustTx(t, Expense, "0.1", "food")))
	require.NoError(t, u.Ledger.SetBudget("food", dec("12.345")))

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var got User
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, u.Username, got.Username)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)
	assert.True(t, got.Ledger.Balance().Equal(dec("100")))
	require.Equal(t, u.Ledger.Len(), got.Ledger.Len())
	for i, tx := range u.Ledger.Transactions() {
		other := got.Ledger.Transactions()[i]
		assert.Equal(t, tx.ID, other.ID)
		assert.True(t, tx.Amount.Equal(other.Amount))
		assert.True(t, tx.Timestamp.Equal(other.Timestamp))
		assert.Equal(t, tx.Kind, other.Kind)
	}
	limit, ok := got.Ledger.Budget("food")
	require.True(t, ok)
	assert.True(t, limit.Equal(dec("12.345")))
}

func TestRestoreLedgerDropsZeroBudgets(t *testing.T) {
	l, err := RestoreLedger(nil, map[string]decimal.Decimal{"food": decimal.Zero, "rent": dec("10")})
	require.NoError(t, err)

	_, ok := l.Budget("food")
	assert.False(t, ok)
	_, ok = l.Budget("rent")
	assert.True(t, ok)
}

func TestRestoreLedgerRejectsInvalidTransactions(t *testing.T) {
	_, err := RestoreLedger([]Transaction{{ID: "x", Amount: dec("-1"), Category: "a", Kind: Income}}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUserEqual(t *testing.T) {
	a := NewUser("alice", "h1")
	b := NewUser("alice", "h2")
	c := NewUser("bob", "h1")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}
