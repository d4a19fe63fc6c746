// Package sqlite persists users in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/core"
	"wallet/internal/log"

	_ "modernc.org/sqlite"
)

type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open creates the database file if needed and applies migrations.
func Open(dbPath string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serialises anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", username, err)
	}
	return n > 0, nil
}

func (s *Store) Get(ctx context.Context, username string) (*core.User, error) {
	u := &core.User{Username: username}
	err := s.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE username = ?`, username).Scan(&u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}

	txs, err := s.listTransactions(ctx, username)
	if err != nil {
		return nil, err
	}
	budgets, err := s.listBudgets(ctx, username)
	if err != nil {
		return nil, err
	}
	ledger, err := core.RestoreLedger(txs, budgets)
	if err != nil {
		return nil, fmt.Errorf("restore ledger for %s: %w", username, err)
	}
	u.Ledger = ledger
	return u, nil
}

func (s *Store) listTransactions(ctx context.Context, username string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, amount, category, occurred_at
		FROM transactions WHERE username = ? ORDER BY seq`, username)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", username, err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t            core.Transaction
			kind, amount string
			occurredAt   string
		)
		if err := rows.Scan(&t.ID, &kind, &amount, &t.Category, &occurredAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.Kind(kind)
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse amount of %s: %w", t.ID, err)
		}
		if t.Timestamp, err = time.Parse(time.RFC3339Nano, occurredAt); err != nil {
			return nil, fmt.Errorf("parse timestamp of %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) listBudgets(ctx context.Context, username string) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, amount FROM budgets WHERE username = ?`, username)
	if err != nil {
		return nil, fmt.Errorf("list budgets for %s: %w", username, err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category, amount string
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse budget %s: %w", category, err)
		}
		out[category] = d
	}
	return out, rows.Err()
}

// Put upserts the user, inserts transactions not yet stored and replaces the
// budget caps, all in one transaction.
func (s *Store) Put(ctx context.Context, user *core.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := putUser(ctx, tx, user); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit user %s: %w", user.Username, err)
	}
	s.logger.DebugContext(ctx, "User saved",
		log.FieldUser, user.Username, log.FieldCount, user.Ledger.Len())
	return nil
}

func putUser(ctx context.Context, tx *sql.Tx, user *core.User) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, password_hash) VALUES (?, ?)
		ON CONFLICT(username) DO UPDATE SET password_hash = excluded.password_hash`,
		user.Username, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.Username, err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE username = ?`, user.Username).Scan(&stored); err != nil {
		return fmt.Errorf("count transactions for %s: %w", user.Username, err)
	}

	txs := user.Ledger.Transactions()
	for seq := stored; seq < len(txs); seq++ {
		t := txs[seq]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (id, username, seq, kind, amount, category, occurred_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			t.ID, user.Username, seq, string(t.Kind), t.Amount.String(), t.Category,
			t.Timestamp.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE username = ?`, user.Username); err != nil {
		return fmt.Errorf("clear budgets for %s: %w", user.Username, err)
	}
	for category, limit := range user.Ledger.Budgets() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO budgets (username, category, amount) VALUES (?, ?, ?)`,
			user.Username, category, limit.String())
		if err != nil {
			return fmt.Errorf("insert budget %s: %w", category, err)
		}
	}
	return nil
}

func deleteUser(ctx context.Context, tx *sql.Tx, username string) error {
	for _, q := range []string{
		`DELETE FROM budgets WHERE username = ?`,
		`DELETE FROM transactions WHERE username = ?`,
		`DELETE FROM users WHERE username = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, username); err != nil {
			return fmt.Errorf("delete user %s: %w", username, err)
		}
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, username string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteUser(ctx, tx, username); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) SaveSnapshot(ctx context.Context, users map[string]*core.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM budgets`, `DELETE FROM transactions`, `DELETE FROM users`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
	}
	for _, u := range users {
		if err := putUser(ctx, tx, u); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *Store) LoadSnapshot(ctx context.Context) (map[string]*core.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT username FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan username: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string]*core.User, len(names))
	for _, name := range names {
		u, err := s.Get(ctx, name)
		if err != nil {
			return nil, err
		}
		out[name] = u
	}
	return out, nil
}
