// Package postgres implements the wallet store on PostgreSQL via pgx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver

	"github.com/reachly/wallet"
	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/id"
	"github.com/reachly/wallet/store"
	"github.com/reachly/wallet/txn"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL. Mutations take a
// row-level lock on the account (SELECT ... FOR UPDATE) inside a
// transaction, which serializes writers per user without any cross-user
// contention.
type Store struct {
	db *sql.DB
}

// Open opens a PostgreSQL store from a connection string.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("wallet/postgres: open: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range Migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("wallet/postgres: %w: %v", wallet.ErrMigrationFailed, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", wallet.ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account methods ====================

func (s *Store) GetOrCreateAccount(ctx context.Context, userID string, seed account.Seed) (*account.Account, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_accounts (id, user_id, plan, balance_cents, last_reset_at, next_reset_at)
		VALUES ($1, $2, $3, 0, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`, id.NewAccountID().String(), userID, seed.Plan, seed.LastResetAt.UTC(), seed.NextResetAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("wallet/postgres: create account: %w", err)
	}
	return s.GetAccount(ctx, userID)
}

func (s *Store) GetAccount(ctx context.Context, userID string) (*account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, plan, balance_cents, last_reset_at, next_reset_at, created_at, updated_at
		FROM wallet_accounts WHERE user_id = $1
	`, userID)
	return scanAccount(row)
}

func (s *Store) SetAccountPlan(ctx context.Context, userID, planID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE wallet_accounts SET plan = $1, updated_at = NOW() WHERE user_id = $2
	`, planID, userID)
	if err != nil {
		return fmt.Errorf("wallet/postgres: set plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wallet.ErrAccountNotFound
	}
	return nil
}

// ==================== Mutation primitives ====================

func (s *Store) Apply(ctx context.Context, in store.Apply) (*txn.Transaction, error) {
	var result *txn.Transaction
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var balance int64
		err := tx.QueryRowContext(ctx,
			`SELECT balance_cents FROM wallet_accounts WHERE user_id = $1 FOR UPDATE`, in.UserID,
		).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return wallet.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("wallet/postgres: lock account: %w", err)
		}

		newBalance := balance + in.Delta
		if newBalance < 0 {
			return wallet.ErrInsufficientFunds
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE wallet_accounts SET balance_cents = $1, updated_at = NOW() WHERE user_id = $2
		`, newBalance, in.UserID); err != nil {
			return fmt.Errorf("wallet/postgres: update balance: %w", err)
		}

		result, err = appendRow(ctx, tx, in.UserID, in.Delta, newBalance, in.Reason, in.ActionType)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ResetPeriod(ctx context.Context, in store.Reset) (*txn.Transaction, error) {
	var result *txn.Transaction
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var balance int64
		var nextReset time.Time
		err := tx.QueryRowContext(ctx,
			`SELECT balance_cents, next_reset_at FROM wallet_accounts WHERE user_id = $1 FOR UPDATE`, in.UserID,
		).Scan(&balance, &nextReset)
		if errors.Is(err, sql.ErrNoRows) {
			return wallet.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("wallet/postgres: lock account: %w", err)
		}

		// The reset belongs to whoever read the still current
		// next_reset_at; a racing resetter observes the mismatch here.
		if !nextReset.Equal(in.ExpectedNextReset) {
			return &wallet.ConflictError{UserID: in.UserID, Op: "reset"}
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE wallet_accounts
			SET balance_cents = $1, last_reset_at = $2, next_reset_at = $3, updated_at = NOW()
			WHERE user_id = $4
		`, in.NewBalance, in.LastResetAt.UTC(), in.NextResetAt.UTC(), in.UserID); err != nil {
			return fmt.Errorf("wallet/postgres: reset period: %w", err)
		}

		result, err = appendRow(ctx, tx, in.UserID, in.NewBalance-balance, in.NewBalance, txn.ReasonPeriodReset, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func appendRow(ctx context.Context, tx *sql.Tx, userID string, delta, balanceAfter int64, reason, actionType string) (*txn.Transaction, error) {
	kind, amount := txn.FromDelta(delta)
	row := &txn.Transaction{
		ID:           id.NewTransactionID(),
		UserID:       userID,
		Type:         kind,
		AmountCents:  amount,
		BalanceAfter: balanceAfter,
		Reason:       reason,
		ActionType:   actionType,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, user_id, type, amount_cents, balance_after, reason, action_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, row.ID.String(), row.UserID, string(row.Type), row.AmountCents,
		row.BalanceAfter, row.Reason, row.ActionType, row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("wallet/postgres: append transaction: %w", err)
	}
	return row, nil
}

// ==================== Transaction log methods ====================

func (s *Store) Transactions(ctx context.Context, userID string, limit int) ([]*txn.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount_cents, balance_after, reason, action_type, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("wallet/postgres: list transactions: %w", err)
	}
	defer rows.Close()

	var result []*txn.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) DebitsSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(amount_cents) FROM wallet_transactions
		WHERE user_id = $1 AND type = $2 AND reason = $3 AND created_at >= $4
	`, userID, string(txn.TypeDebit), string(txn.ReasonSpend), since.UTC()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("wallet/postgres: sum debits: %w", err)
	}
	return total.Int64, nil
}

// ==================== Helpers ====================

// inTx runs fn inside a transaction, rolling back on any error so a
// caller-imposed timeout never leaves a half-applied mutation.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("wallet/postgres: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // the original error is the one to report
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (*account.Account, error) {
	var a account.Account
	var accountID string
	err := r.Scan(&accountID, &a.UserID, &a.Plan, &a.BalanceCents,
		&a.LastResetAt, &a.NextResetAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wallet.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet/postgres: scan account: %w", err)
	}

	if a.ID, err = id.Parse(accountID); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanTransaction(r rowScanner) (*txn.Transaction, error) {
	var t txn.Transaction
	var txnID, kind string
	err := r.Scan(&txnID, &t.UserID, &kind, &t.AmountCents, &t.BalanceAfter,
		&t.Reason, &t.ActionType, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("wallet/postgres: scan transaction: %w", err)
	}

	if t.ID, err = id.Parse(txnID); err != nil {
		return nil, err
	}
	t.Type = txn.Type(kind)
	return &t, nil
}
