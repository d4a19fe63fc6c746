package console

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"wallet/internal/log"
	"wallet/internal/services"
	"wallet/internal/storage"
	"wallet/internal/storage/jsonfile"
	"wallet/internal/storage/memory"
)

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func run(t *testing.T, store storage.UserStore, input string, opts Options) string {
	t.Helper()
	auth := services.NewAuthService(store, log.Discard(), services.WithBcryptCost(bcrypt.MinCost))
	finance := services.NewFinanceService(auth, store, nil, log.Discard())

	var out bytes.Buffer
	c := New(strings.NewReader(input), &out, auth, finance, opts, log.Discard())
	require.NoError(t, c.Run(context.Background()))
	return out.String()
}

func TestConsole_FullSession(t *testing.T) {
	input := lines(
		"2", "alice", "pw1", // register
		"1", "alice", "pw1", // login
		"1", "100", "salary",
		"2", "30", "food",
		"3", "food", "40",
		"2", "15", "food",
		"4",
		"5",
		"6",
		"9",
	)
	out := run(t, memory.New(), input, Options{})

	assert.Contains(t, out, "=== Authentication Menu ===")
	assert.Contains(t, out, "Registration successful!")
	assert.Contains(t, out, "Login successful!")
	assert.Contains(t, out, "Income added successfully!")
	assert.Contains(t, out, "Expense added successfully!")
	assert.Contains(t, out, "Budget set successfully!")
	assert.Contains(t, out, "Expense added, but budget limit exceeded for category: food (spent 45.00 of 40.00)")
	assert.Contains(t, out, "Current balance: 55.00")
	assert.Contains(t, out, "Total income: 100.00")
	assert.Contains(t, out, "Total expenses: 45.00")
	assert.Contains(t, out, "  salary: 100.00")
	assert.Contains(t, out, "  food: Budget=40.00, Remaining=-5.00")
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "Data saved. Goodbye!")
	assert.NotContains(t, out, "\x1b[", "colours are off")
}

func TestConsole_BadInputIsReported(t *testing.T) {
	input := lines(
		"7",
		"1", "nobody", "pw",
		"2", "bob", "pw",
		"2", "bob", "pw",
		"1", "bob", "pw",
		"1", "abc",
		"2", "-5",
		"1", "1,5", "   ",
		"2", "10", "food",
		"42",
		"8",
		"3",
	)
	out := run(t, memory.New(), input, Options{})

	assert.Contains(t, out, "Invalid option")
	assert.Contains(t, out, "Login failed: invalid username or password")
	assert.Contains(t, out, "Registration failed: user already exists: bob")
	assert.Contains(t, out, "invalid amount format")
	assert.Contains(t, out, "amount must be positive")
	assert.Contains(t, out, "Failed to add income: category cannot be empty")
	assert.Contains(t, out, "Failed to add expense: insufficient funds")
	assert.Contains(t, out, "Logged out successfully")
	assert.Contains(t, out, "Goodbye!")
}

func TestConsole_EndOfInputSavesUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	store, err := jsonfile.Open(path, log.Discard())
	require.NoError(t, err)

	input := lines("2", "carol", "pw", "1", "carol", "pw", "1", "12.34", "gift")
	out := run(t, store, input, Options{})
	assert.Contains(t, out, "Data saved. Goodbye!")

	reopened, err := jsonfile.Open(path, log.Discard())
	require.NoError(t, err)
	u, err := reopened.Get(context.Background(), "carol")
	require.NoError(t, err)
	assert.Equal(t, "12.34", u.Ledger.Balance().String())
}

func TestConsole_ExportChart(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	input := lines(
		"2", "dave", "pw", "1", "dave", "pw",
		"7",
		"1", "50", "salary",
		"2", "20", "rent",
		"7",
		"9",
	)
	out := run(t, memory.New(), input, Options{ChartDir: dir})

	assert.Contains(t, out, "Failed to export chart: no expenses to chart")
	want := filepath.Join(dir, "dave-expenses.png")
	assert.Contains(t, out, "Chart saved to "+want)
	_, err := os.Stat(want)
	assert.NoError(t, err)
}

func TestConsole_Colors(t *testing.T) {
	out := run(t, memory.New(), lines("3"), Options{Color: true})
	assert.Contains(t, out, "\x1b[")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, false, [][2]string{{"Backend", "json"}})
	assert.Contains(t, buf.String(), "WALLET")
	assert.Contains(t, buf.String(), "Backend")
	assert.Contains(t, buf.String(), "json")
}
