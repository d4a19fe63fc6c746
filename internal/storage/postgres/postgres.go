// Package postgres persists users in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"wallet/internal/core"
	"wallet/internal/log"
)

type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// Open migrates the schema and connects a pool to url.
func Open(ctx context.Context, url string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := RunMigrations(url); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool, logger: logger.WithComponent(log.ComponentStorage)}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Exists(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check user %s: %w", username, err)
	}
	return ok, nil
}

func (s *Store) Get(ctx context.Context, username string) (*core.User, error) {
	u := &core.User{Username: username}
	err := s.pool.QueryRow(ctx,
		`SELECT password_hash FROM users WHERE username = $1`, username).Scan(&u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, amount::text, category, occurred_at
		FROM transactions WHERE username = $1 ORDER BY seq`, username)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", username, err)
	}
	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Transaction, error) {
		var (
			t            core.Transaction
			kind, amount string
		)
		if err := row.Scan(&t.ID, &kind, &amount, &t.Category, &t.Timestamp); err != nil {
			return t, err
		}
		t.Kind = core.Kind(kind)
		t.Timestamp = t.Timestamp.UTC()
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return t, fmt.Errorf("parse amount of %s: %w", t.ID, err)
		}
		t.Amount = d
		return t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan transactions for %s: %w", username, err)
	}

	budgets := make(map[string]decimal.Decimal)
	rows, err = s.pool.Query(ctx,
		`SELECT category, amount::text FROM budgets WHERE username = $1`, username)
	if err != nil {
		return nil, fmt.Errorf("list budgets for %s: %w", username, err)
	}
	var category, amount string
	_, err = pgx.ForEachRow(rows, []any{&category, &amount}, func() error {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("parse budget %s: %w", category, err)
		}
		budgets[category] = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan budgets for %s: %w", username, err)
	}

	ledger, err := core.RestoreLedger(txs, budgets)
	if err != nil {
		return nil, fmt.Errorf("restore ledger for %s: %w", username, err)
	}
	u.Ledger = ledger
	return u, nil
}

func (s *Store) Put(ctx context.Context, user *core.User) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return putUser(ctx, tx, user)
	})
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "User saved",
		log.FieldUser, user.Username, log.FieldCount, user.Ledger.Len())
	return nil
}

func putUser(ctx context.Context, tx pgx.Tx, user *core.User) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (username, password_hash) VALUES ($1, $2)
		ON CONFLICT (username) DO UPDATE SET password_hash = EXCLUDED.password_hash`,
		user.Username, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.Username, err)
	}

	var stored int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(1) FROM transactions WHERE username = $1`, user.Username).Scan(&stored); err != nil {
		return fmt.Errorf("count transactions for %s: %w", user.Username, err)
	}

	txs := user.Ledger.Transactions()
	if stored < len(txs) {
		batch := &pgx.Batch{}
		for seq := stored; seq < len(txs); seq++ {
			t := txs[seq]
			batch.Queue(`
				INSERT INTO transactions (id, username, seq, kind, amount, category, occurred_at)
				VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)
				ON CONFLICT (id) DO NOTHING`,
				t.ID, user.Username, seq, string(t.Kind), t.Amount.String(), t.Category, t.Timestamp.UTC())
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert transactions for %s: %w", user.Username, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM budgets WHERE username = $1`, user.Username); err != nil {
		return fmt.Errorf("clear budgets for %s: %w", user.Username, err)
	}
	for category, limit := range user.Ledger.Budgets() {
		_, err := tx.Exec(ctx,
			`INSERT INTO budgets (username, category, amount) VALUES ($1, $2, $3::numeric)`,
			user.Username, category, limit.String())
		if err != nil {
			return fmt.Errorf("insert budget %s: %w", category, err)
		}
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, username string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", username, err)
	}
	return nil
}

func (s *Store) SaveSnapshot(ctx context.Context, users map[string]*core.User) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `TRUNCATE budgets, transactions, users`); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
		for _, u := range users {
			if err := putUser(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) LoadSnapshot(ctx context.Context) (map[string]*core.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT username FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan usernames: %w", err)
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
