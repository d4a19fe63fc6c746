// Package console is the interactive text front end: an authentication menu
// while nobody is logged in and the ledger menu afterwards.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/banner"

	"wallet/internal/core"
	"wallet/internal/log"
	"wallet/internal/report"
	"wallet/internal/services"
)

// Options tunes presentation.
type Options struct {
	// ChartDir receives exported expense charts.
	ChartDir string
	// Color enables ANSI colours for headings.
	Color bool
}

type Console struct {
	in      *bufio.Scanner
	out     io.Writer
	auth    *services.AuthService
	finance *services.FinanceService
	sess    *services.Session
	opts    Options
	logger  *log.Logger
}

func New(in io.Reader, out io.Writer, auth *services.AuthService, finance *services.FinanceService, opts Options, logger *log.Logger) *Console {
	if logger == nil {
		logger = log.Discard()
	}
	if opts.ChartDir == "" {
		opts.ChartDir = "."
	}
	return &Console{
		in:      bufio.NewScanner(in),
		out:     out,
		auth:    auth,
		finance: finance,
		sess:    services.NewSession(),
		opts:    opts,
		logger:  logger.WithComponent(log.ComponentConsole),
	}
}

// Run shows menus until the user exits, input ends or ctx is cancelled.
// The logged-in user is saved on the way out; a failed save is returned.
func (c *Console) Run(ctx context.Context) error {
	running := true
	for running && ctx.Err() == nil {
		if c.auth.IsAuthenticated(c.sess) {
			running = c.mainMenu(ctx)
		} else {
			running = c.authMenu(ctx)
		}
	}
	return c.saveAndExit(ctx)
}

func (c *Console) saveAndExit(ctx context.Context) error {
	if !c.auth.IsAuthenticated(c.sess) {
		c.println("Goodbye!")
		return nil
	}
	// ctx may already be cancelled by a signal; the save must still run
	if err := c.finance.Flush(context.WithoutCancel(ctx), c.sess); err != nil {
		c.println("Failed to save data: " + err.Error())
		return err
	}
	c.println("Data saved. Goodbye!")
	return nil
}

func (c *Console) authMenu(ctx context.Context) bool {
	c.heading("Authentication Menu")
	c.println("1. Login")
	c.println("2. Register")
	c.println("3. Exit")

	choice, ok := c.prompt("Choose option: ")
	if !ok {
		return false
	}
	switch choice {
	case "1":
		c.login(ctx)
	case "2":
		c.register(ctx)
	case "3":
		return false
	default:
		c.println("Invalid option")
	}
	return true
}

func (c *Console) mainMenu(ctx context.Context) bool {
	c.heading("Main Menu")
	c.println("1. Add Income")
	c.println("2. Add Expense")
	c.println("3. Set Budget")
	c.println("4. View Balance")
	c.println("5. View Statistics")
	c.println("6. View Transactions")
	c.println("7. Export Expense Chart")
	c.println("8. Logout")
	c.println("9. Exit")

	choice, ok := c.prompt("Choose option: ")
	if !ok {
		return false
	}
	switch choice {
	case "1":
		c.addIncome(ctx)
	case "2":
		c.addExpense(ctx)
	case "3":
		c.setBudget(ctx)
	case "4":
		c.viewBalance()
	case "5":
		c.viewStatistics()
	case "6":
		c.viewTransactions()
	case "7":
		c.exportChart()
	case "8":
		if err := c.finance.Flush(ctx, c.sess); err != nil {
			c.println("Failed to save data: " + err.Error())
		}
		c.auth.Logout(c.sess)
		c.println("Logged out successfully")
	case "9":
		return false
	default:
		c.println("Invalid option")
	}
	return true
}

func (c *Console) credentials() (string, string, bool) {
	username, ok := c.prompt("Enter username: ")
	if !ok {
		return "", "", false
	}
	password, ok := c.prompt("Enter password: ")
	return username, password, ok
}

func (c *Console) login(ctx context.Context) {
	username, password, ok := c.credentials()
	if !ok {
		return
	}
	if err := c.auth.Login(ctx, c.sess, username, password); err != nil {
		c.println("Login failed: " + err.Error())
		return
	}
	c.println("Login successful!")
}

func (c *Console) register(ctx context.Context) {
	username, password, ok := c.credentials()
	if !ok {
		return
	}
	if err := c.auth.Register(ctx, username, password); err != nil {
		c.println("Registration failed: " + err.Error())
		return
	}
	c.println("Registration successful!")
}

// readAmount prompts for an amount. Parse errors are printed and reported as
// not ok.
func (c *Console) readAmount(label string) (decimal.Decimal, bool) {
	raw, ok := c.prompt(label)
	if !ok {
		return decimal.Zero, false
	}
	amount, err := core.ParseAmount(raw)
	if err != nil {
		c.println(err.Error())
		return decimal.Zero, false
	}
	return amount, true
}

func (c *Console) addIncome(ctx context.Context) {
	amount, ok := c.readAmount("Enter amount: ")
	if !ok {
		return
	}
	category, ok := c.prompt("Enter category: ")
	if !ok {
		return
	}
	if _, err := c.finance.AddIncome(ctx, c.sess, amount, category); err != nil {
		c.println("Failed to add income: " + err.Error())
		return
	}
	c.println("Income added successfully!")
}

func (c *Console) addExpense(ctx context.Context) {
	amount, ok := c.readAmount("Enter amount: ")
	if !ok {
		return
	}
	category, ok := c.prompt("Enter category: ")
	if !ok {
		return
	}
	_, err := c.finance.AddExpense(ctx, c.sess, amount, category)
	var over *core.BudgetExceededError
	switch {
	case errors.As(err, &over):
		c.println(fmt.Sprintf("Expense added, but %s (spent %s of %s)",
			over.Error(), core.FormatAmount(over.Spent), core.FormatAmount(over.Cap)))
	case err != nil:
		c.println("Failed to add expense: " + err.Error())
	default:
		c.println("Expense added successfully!")
	}
}

func (c *Console) setBudget(ctx context.Context) {
	category, ok := c.prompt("Enter category: ")
	if !ok {
		return
	}
	amount, ok := c.readAmount("Enter budget amount: ")
	if !ok {
		return
	}
	if err := c.finance.SetBudget(ctx, c.sess, category, amount); err != nil {
		c.println("Failed to set budget: " + err.Error())
		return
	}
	c.println("Budget set successfully!")
}

func (c *Console) viewBalance() {
	stats, err := c.finance.Statistics(c.sess)
	if err != nil {
		c.println(err.Error())
		return
	}
	c.heading("Balance")
	c.println("Current balance: " + core.FormatAmount(stats.Balance))
	c.println("Total income: " + core.FormatAmount(stats.TotalIncome))
	c.println("Total expenses: " + core.FormatAmount(stats.TotalExpenses))
}

func (c *Console) viewStatistics() {
	stats, err := c.finance.Statistics(c.sess)
	if err != nil {
		c.println(err.Error())
		return
	}
	c.heading("Statistics")
	c.println("Income by category:")
	c.printAmounts(stats.Incomes)
	c.println("\nExpenses by category:")
	c.printAmounts(stats.Expenses)
	c.println("\nBudgets by category:")
	if len(stats.Budgets) == 0 {
		c.println("  (none)")
	}
	for _, b := range stats.Budgets {
		c.println(fmt.Sprintf("  %s: Budget=%s, Remaining=%s",
			b.Category, core.FormatAmount(b.Cap), core.FormatAmount(b.Remaining)))
	}
}

func (c *Console) printAmounts(m map[string]decimal.Decimal) {
	if len(m) == 0 {
		c.println("  (none)")
		return
	}
	for _, category := range core.SortedCategories(m) {
		c.println(fmt.Sprintf("  %s: %s", category, core.FormatAmount(m[category])))
	}
}

func (c *Console) viewTransactions() {
	txs, err := c.finance.Transactions(c.sess)
	if err != nil {
		c.println(err.Error())
		return
	}
	c.heading("Transactions")
	if len(txs) == 0 {
		c.println("No transactions yet")
		return
	}
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKIND\tCATEGORY\tAMOUNT")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			tx.Timestamp.Local().Format("2006-01-02 15:04"), tx.Kind, tx.Category, core.FormatAmount(tx.Amount))
	}
	tw.Flush()
}

func (c *Console) exportChart() {
	user, err := c.auth.CurrentUser(c.sess)
	if err != nil {
		c.println(err.Error())
		return
	}
	expenses, err := c.finance.ExpensesByCategory(c.sess)
	if err != nil {
		c.println(err.Error())
		return
	}
	path, err := report.WriteExpenseChart(c.opts.ChartDir, user.Username, expenses)
	if err != nil {
		c.println("Failed to export chart: " + err.Error())
		return
	}
	c.logger.Info("Expense chart written", log.FieldUser, user.Username, log.FieldPath, path, log.FieldOperation, log.OpRender)
	c.println("Chart saved to " + path)
}

// prompt prints label and reads one trimmed line. ok is false once input
// is exhausted.
func (c *Console) prompt(label string) (string, bool) {
	fmt.Fprint(c.out, label)
	if !c.in.Scan() {
		fmt.Fprintln(c.out)
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}

func (c *Console) heading(title string) {
	if c.opts.Color {
		fmt.Fprintf(c.out, "\n%s%s=== %s ===%s\n", banner.ColorBold, banner.ColorCyan, title, banner.ColorReset)
		return
	}
	fmt.Fprintf(c.out, "\n=== %s ===\n", title)
}
