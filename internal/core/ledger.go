package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	// Kind tells whether a transaction adds to or subtracts from the balance.
	Kind string

	// Transaction is an immutable ledger entry. Amount is always positive;
	// the direction comes from Kind.
	Transaction struct {
		ID        string          `json:"id"`
		Amount    decimal.Decimal `json:"amount"`
		Category  string          `json:"category"`
		Timestamp time.Time       `json:"timestamp"`
		Kind      Kind            `json:"kind"`
	}

	// Ledger holds the balance, the ordered transaction history and the
	// per-category spending caps of one user.
	Ledger struct {
		balance      decimal.Decimal
		transactions []Transaction
		budgets      map[string]decimal.Decimal
	}

	// User owns exactly one Ledger. Identity is the username.
	User struct {
		Username     string  `json:"username"`
		PasswordHash string  `json:"password_hash"`
		Ledger       *Ledger `json:"wallet"`
	}
)

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

// NewTransaction validates the input and stamps a fresh id and UTC timestamp.
// Timestamps keep microsecond precision so every store can hold them exactly.
func NewTransaction(kind Kind, amount decimal.Decimal, category string) (Transaction, error) {
	t := Transaction{
		ID:        uuid.NewString(),
		Amount:    amount,
		Category:  strings.TrimSpace(category),
		Timestamp: time.Now().UTC().Truncate(time.Microsecond),
		Kind:      kind,
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (t Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if err := ValidateCategory(t.Category); err != nil {
		return err
	}
	return t.Kind.Validate()
}

// signed returns the amount with the sign it has on the balance.
func (t Transaction) signed() decimal.Decimal {
	if t.Kind == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// NewLedger returns an empty ledger with a zero balance.
func NewLedger() *Ledger {
	return &Ledger{
		balance: decimal.Zero,
		budgets: make(map[string]decimal.Decimal),
	}
}

// RestoreLedger rebuilds a ledger from persisted state. The balance is
// recomputed from the transactions; caps that are not positive are dropped,
// since older data used zero to mean "no budget".
func RestoreLedger(transactions []Transaction, budgets map[string]decimal.Decimal) (*Ledger, error) {
	l := NewLedger()
	for i, t := range transactions {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d (%s): %w", i, t.ID, err)
		}
		l.transactions = append(l.transactions, t)
		l.balance = l.balance.Add(t.signed())
	}
	for category, limit := range budgets {
		if !limit.IsPositive() {
			continue
		}
		l.budgets[category] = limit
	}
	return l, nil
}

// Append records a transaction and moves the balance. It does no funds or
// budget checks; those belong to the caller.
func (l *Ledger) Append(t Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	l.transactions = append(l.transactions, t)
	l.balance = l.balance.Add(t.signed())
	return nil
}

// Balance returns the maintained balance.
func (l *Ledger) Balance() decimal.Decimal {
	return l.balance
}

// Transactions returns a copy of the history in insertion order.
func (l *Ledger) Transactions() []Transaction {
	out := make([]Transaction, len(l.transactions))
	copy(out, l.transactions)
	return out
}

// Len returns the number of recorded transactions.
func (l *Ledger) Len() int {
	return len(l.transactions)
}

// SetBudget sets or replaces the cap of a category.
func (l *Ledger) SetBudget(category string, limit decimal.Decimal) error {
	if err := ValidateCategory(category); err != nil {
		return err
	}
	if err := ValidateAmount(limit); err != nil {
		return err
	}
	l.budgets[strings.TrimSpace(category)] = limit
	return nil
}

// Budget returns the cap of a category and whether one is set.
func (l *Ledger) Budget(category string) (decimal.Decimal, bool) {
	limit, ok := l.budgets[category]
	return limit, ok
}

// Budgets returns a copy of all caps.
func (l *Ledger) Budgets() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.budgets))
	for k, v := range l.budgets {
		out[k] = v
	}
	return out
}

// Total sums every transaction of the given kind.
func (l *Ledger) Total(kind Kind) decimal.Decimal {
	total := decimal.Zero
	for _, t := range l.transactions {
		if t.Kind == kind {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// SumByCategory groups the transactions of a kind by category. Categories
// without a matching transaction are absent from the result.
func (l *Ledger) SumByCategory(kind Kind) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, t := range l.transactions {
		if t.Kind != kind {
			continue
		}
		if cur, ok := out[t.Category]; ok {
			out[t.Category] = cur.Add(t.Amount)
		} else {
			out[t.Category] = t.Amount
		}
	}
	return out
}

// CategoryTotal sums the transactions of a kind in one category.
func (l *Ledger) CategoryTotal(kind Kind, category string) decimal.Decimal {
	total := decimal.Zero
	for _, t := range l.transactions {
		if t.Kind == kind && t.Category == category {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// OverBudget reports whether the expenses of a capped category exceed the
// cap. Uncapped categories are never over budget.
func (l *Ledger) OverBudget(category string) (*BudgetExceededError, bool) {
	limit, ok := l.Budget(category)
	if !ok {
		return nil, false
	}
	spent := l.CategoryTotal(Expense, category)
	if spent.GreaterThan(limit) {
		return &BudgetExceededError{Category: category, Cap: limit, Spent: spent}, true
	}
	return nil, false
}

type ledgerJSON struct {
	Transactions []Transaction             `json:"transactions"`
	Budgets      map[string]decimal.Decimal `json:"budgets"`
}

func (l *Ledger) MarshalJSON() ([]byte, error) {
	txs := l.transactions
	if txs == nil {
		txs = []Transaction{}
	}
	return json.Marshal(ledgerJSON{Transactions: txs, Budgets: l.budgets})
}

func (l *Ledger) UnmarshalJSON(data []byte) error {
	var raw ledgerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	restored, err := RestoreLedger(raw.Transactions, raw.Budgets)
	if err != nil {
		return err
	}
	*l = *restored
	return nil
}

// NewUser creates a user with an empty ledger.
func NewUser(username, passwordHash string) *User {
	return &User{
		Username:     strings.TrimSpace(username),
		PasswordHash: passwordHash,
		Ledger:       NewLedger(),
	}
}

// Equal compares users by username only.
func (u *User) Equal(other *User) bool {
	if u == nil || other == nil {
		return u == other
	}
	return u.Username == other.Username
}

// CategoryBudget is one row of the statistics view.
type CategoryBudget struct {
	Category  string
	Cap       decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
}

// Statistics is a read-only summary of a ledger.
type Statistics struct {
	Balance       decimal.Decimal
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	Incomes       map[string]decimal.Decimal
	Expenses      map[string]decimal.Decimal
	Budgets       []CategoryBudget
}

// Statistics computes the summary shown on the statistics screen. Budget rows
// are sorted by category.
func (l *Ledger) Statistics() Statistics {
	s := Statistics{
		Balance:       l.balance,
		TotalIncome:   l.Total(Income),
		TotalExpenses: l.Total(Expense),
		Incomes:       l.SumByCategory(Income),
		Expenses:      l.SumByCategory(Expense),
	}
	for category, limit := range l.budgets {
		spent := l.CategoryTotal(Expense, category)
		s.Budgets = append(s.Budgets, CategoryBudget{
			Category:  category,
			Cap:       limit,
			Spent:     spent,
			Remaining: limit.Sub(spent),
		})
	}
	sort.Slice(s.Budgets, func(i, j int) bool { return s.Budgets[i].Category < s.Budgets[j].Category })
	return s
}

// SortedCategories returns the keys of an amount map in lexical order.
func SortedCategories(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
