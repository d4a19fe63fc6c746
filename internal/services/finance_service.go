package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"wallet/internal/amqp"
	"wallet/internal/core"
	"wallet/internal/log"
	"wallet/internal/storage"
)

// EventPublisher announces recorded transactions. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error
}

// FinanceService runs ledger operations for the user bound to a session.
// Every state change is saved to the store and then published; failures of
// either are logged and never change the operation's result.
type FinanceService struct {
	auth      *AuthService
	store     storage.UserStore
	publisher EventPublisher
	logger    *log.Logger
}

// NewFinanceService wires the service. publisher may be nil.
func NewFinanceService(auth *AuthService, store storage.UserStore, publisher EventPublisher, logger *log.Logger) *FinanceService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &FinanceService{
		auth:      auth,
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentLedger),
	}
}

func validateEntry(amount decimal.Decimal, category string) error {
	if err := core.ValidateAmount(amount); err != nil {
		return err
	}
	return core.ValidateCategory(category)
}

// AddIncome records an income and raises the balance.
func (s *FinanceService) AddIncome(ctx context.Context, sess *Session, amount decimal.Decimal, category string) (core.Transaction, error) {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := validateEntry(amount, category); err != nil {
		return core.Transaction{}, err
	}

	tx, err := core.NewTransaction(core.Income, amount, category)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := user.Ledger.Append(tx); err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Income recorded", s.txFields(user, tx, log.OpIncome).ToSlice()...)
	s.persist(ctx, user)
	s.publish(ctx, user, tx)
	return tx, nil
}

// AddExpense records an expense when the balance covers it. A balance of
// exactly zero afterwards is allowed.
//
// The budget check runs after the expense is recorded: when the category's
// spending now exceeds its cap the expense stays in the ledger and a
// *core.BudgetExceededError is returned alongside it.
func (s *FinanceService) AddExpense(ctx context.Context, sess *Session, amount decimal.Decimal, category string) (core.Transaction, error) {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := validateEntry(amount, category); err != nil {
		return core.Transaction{}, err
	}

	ledger := user.Ledger
	if ledger.Balance().Sub(amount).IsNegative() {
		s.logger.InfoContext(ctx, "Expense rejected",
			log.FieldUser, user.Username,
			log.FieldAmount, amount.String(),
			log.FieldBalance, ledger.Balance().String(),
			log.FieldErrorType, log.ErrorTypeFunds)
		return core.Transaction{}, core.NewInsufficientFundsError(ledger.Balance(), amount)
	}

	tx, err := core.NewTransaction(core.Expense, amount, category)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := ledger.Append(tx); err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Expense recorded", s.txFields(user, tx, log.OpExpense).ToSlice()...)
	s.persist(ctx, user)
	s.publish(ctx, user, tx)

	if over, ok := ledger.OverBudget(tx.Category); ok {
		s.logger.WarnContext(ctx, "Budget exceeded",
			log.FieldUser, user.Username,
			log.FieldCategory, over.Category,
			"cap", over.Cap.String(),
			"spent", over.Spent.String(),
			log.FieldErrorType, log.ErrorTypeBudget)
		return tx, over
	}
	return tx, nil
}

// SetBudget sets or replaces the spending cap of a category.
func (s *FinanceService) SetBudget(ctx context.Context, sess *Session, category string, amount decimal.Decimal) error {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return err
	}
	if err := validateEntry(amount, category); err != nil {
		return err
	}
	if err := user.Ledger.SetBudget(category, amount); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Budget set",
		log.FieldUser, user.Username,
		log.FieldCategory, category,
		log.FieldAmount, amount.String(),
		log.FieldOperation, log.OpBudget)
	s.persist(ctx, user)
	return nil
}

func (s *FinanceService) IncomesByCategory(sess *Session) (map[string]decimal.Decimal, error) {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return nil, err
	}
	return user.Ledger.SumByCategory(core.Income), nil
}

func (s *FinanceService) ExpensesByCategory(sess *Session) (map[string]decimal.Decimal, error) {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return nil, err
	}
	return user.Ledger.SumByCategory(core.Expense), nil
}

// BudgetsByCategory returns a copy of the caps.
func (s *FinanceService) BudgetsByCategory(sess *Session) (map[string]decimal.Decimal, error) {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return nil, err
	}
	return user.Ledger.Budgets(), nil
}

func (s *FinanceService) TotalIncome(sess *Session) (decimal.Decimal, error) {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Ledger.Total(core.Income), nil
}

func (s *FinanceService) TotalExpenses(sess *Session) (decimal.Decimal, error) {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Ledger.Total(core.Expense), nil
}

// CurrentBalance returns the maintained balance, not a recomputed one.
func (s *FinanceService) CurrentBalance(sess *Session) (decimal.Decimal, error) {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Ledger.Balance(), nil
}

func (s *FinanceService) Statistics(sess *Session) (core.Statistics, error) {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return core.Statistics{}, err
	}
	return user.Ledger.Statistics(), nil
}

// Transactions returns the history in the order it was recorded.
func (s *FinanceService) Transactions(sess *Session) ([]core.Transaction, error) {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return nil, err
	}
	return user.Ledger.Transactions(), nil
}

// Flush saves the session's user. Unlike the per-operation saves, its error
// is returned so callers can report it at session end.
func (s *FinanceService) Flush(ctx context.Context, sess *Session) error {
	user, err := s.auth.CurrentUser(sess)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, user); err != nil {
		return fmt.Errorf("flush user %s: %w", user.Username, err)
	}
	return nil
}

func (s *FinanceService) persist(ctx context.Context, user *core.User) {
	if err := s.store.Put(ctx, user); err != nil {
		s.logger.WarnContext(ctx, "Failed to persist user",
			log.FieldUser, user.Username,
			log.FieldOperation, log.OpPersist,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
	}
}

func (s *FinanceService) publish(ctx context.Context, user *core.User, tx core.Transaction) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "Event publisher not available, skipping ledger event")
		return
	}
	msg := amqp.NewLedgerEventMessage(user.Username, tx, user.Ledger.Balance().String())
	if err := s.publisher.PublishLedgerEvent(ctx, msg); err != nil {
		errType := log.ErrorTypeNetwork
		if errors.Is(err, amqp.ErrCircuitOpen) {
			errType = log.ErrorTypeInternal
		}
		s.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldUser, user.Username,
			log.FieldTransaction, tx.ID,
			log.FieldOperation, log.OpPublish,
			log.FieldErrorType, errType,
			log.FieldError, err)
	}
}

func (s *FinanceService) txFields(user *core.User, tx core.Transaction, op string) log.LogFields {
	return log.NewFields().
		WithUser(user.Username).
		WithOperation(op).
		WithTransaction(tx.ID, string(tx.Kind), tx.Amount, tx.Category).
		WithBalance(user.Ledger.Balance())
}
