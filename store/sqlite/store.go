// Package sqlite implements the wallet store on SQLite via database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/reachly/wallet"
	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/id"
	"github.com/reachly/wallet/store"
	"github.com/reachly/wallet/txn"
	"github.com/reachly/wallet/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite. Every mutation runs in a
// single transaction with a conditional UPDATE, so a lost race is
// reported as wallet.ErrConflict rather than silently overwriting.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("wallet/sqlite: open %s: %w", path, err)
	}
	// modernc.org/sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY churn under concurrent mutation.
	db.SetMaxOpenConns(1)
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
			return fmt.Errorf("wallet/sqlite: %w: %v", wallet.ErrMigrationFailed, err)
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
	now := time.Now().UTC()
	// The primary key on user_id makes this race-safe: concurrent
	// creators all land on the same row.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_accounts (id, user_id, plan, balance_cents, last_reset_at, next_reset_at, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, id.NewAccountID().String(), userID, seed.Plan,
		fmtTime(seed.LastResetAt), fmtTime(seed.NextResetAt), fmtTime(now), fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("wallet/sqlite: create account: %w", err)
	}
	return s.GetAccount(ctx, userID)
}

func (s *Store) GetAccount(ctx context.Context, userID string) (*account.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, plan, balance_cents, last_reset_at, next_reset_at, created_at, updated_at
		FROM wallet_accounts WHERE user_id = ?
	`, userID)
	return scanAccount(row)
}

func (s *Store) SetAccountPlan(ctx context.Context, userID, planID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE wallet_accounts SET plan = ?, updated_at = ? WHERE user_id = ?
	`, planID, fmtTime(time.Now().UTC()), userID)
	if err != nil {
		return fmt.Errorf("wallet/sqlite: set plan: %w", err)
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
			`SELECT balance_cents FROM wallet_accounts WHERE user_id = ?`, in.UserID,
		).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			return wallet.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("wallet/sqlite: read balance: %w", err)
		}

		newBalance := balance + in.Delta
		if newBalance < 0 {
			return wallet.ErrInsufficientFunds
		}

		// Conditional on the balance just read. Inside a write
		// transaction SQLite already serializes us, but keeping the
		// guard means the invariant does not depend on the driver's
		// isolation level.
		res, err := tx.ExecContext(ctx, `
			UPDATE wallet_accounts SET balance_cents = ?, updated_at = ?
			WHERE user_id = ? AND balance_cents = ?
		`, newBalance, fmtTime(time.Now().UTC()), in.UserID, balance)
		if err != nil {
			return fmt.Errorf("wallet/sqlite: update balance: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return &wallet.ConflictError{UserID: in.UserID, Op: "apply"}
		}

		result, err = s.appendRow(ctx, tx, in.UserID, in.Delta, newBalance, in.Reason, in.ActionType)
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
		var nextReset string
		err := tx.QueryRowContext(ctx,
			`SELECT balance_cents, next_reset_at FROM wallet_accounts WHERE user_id = ?`, in.UserID,
		).Scan(&balance, &nextReset)
		if errors.Is(err, sql.ErrNoRows) {
			return wallet.ErrAccountNotFound
		}
		if err != nil {
			return fmt.Errorf("wallet/sqlite: read account: %w", err)
		}

		// Update only if next_reset_at still equals the value the caller
		// read; a racing resetter already advanced it and we must no-op.
		res, err := tx.ExecContext(ctx, `
			UPDATE wallet_accounts
			SET balance_cents = ?, last_reset_at = ?, next_reset_at = ?, updated_at = ?
			WHERE user_id = ? AND next_reset_at = ?
		`, in.NewBalance, fmtTime(in.LastResetAt), fmtTime(in.NextResetAt),
			fmtTime(time.Now().UTC()), in.UserID, fmtTime(in.ExpectedNextReset))
		if err != nil {
			return fmt.Errorf("wallet/sqlite: reset period: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return &wallet.ConflictError{UserID: in.UserID, Op: "reset"}
		}

		result, err = s.appendRow(ctx, tx, in.UserID, in.NewBalance-balance, in.NewBalance, txn.ReasonPeriodReset, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// appendRow inserts one transaction log row inside the mutation's tx.
func (s *Store) appendRow(ctx context.Context, tx *sql.Tx, userID string, delta, balanceAfter int64, reason, actionType string) (*txn.Transaction, error) {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, row.ID.String(), row.UserID, string(row.Type), row.AmountCents,
		row.BalanceAfter, row.Reason, row.ActionType, fmtTime(row.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("wallet/sqlite: append transaction: %w", err)
	}
	return row, nil
}

// ==================== Transaction log methods ====================

func (s *Store) Transactions(ctx context.Context, userID string, limit int) ([]*txn.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, amount_cents, balance_after, reason, action_type, created_at
		FROM wallet_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("wallet/sqlite: list transactions: %w", err)
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
		WHERE user_id = ? AND type = ? AND reason = ? AND created_at >= ?
	`, userID, string(txn.TypeDebit), string(txn.ReasonSpend), fmtTime(since)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("wallet/sqlite: sum debits: %w", err)
	}
	return total.Int64, nil
}

// ==================== Helpers ====================

// inTx runs fn inside a transaction, rolling back on any error so a
// caller-imposed timeout never leaves a half-applied mutation.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("wallet/sqlite: begin: %w", err)
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
	var accountID, lastReset, nextReset, createdAt, updatedAt string
	err := r.Scan(&accountID, &a.UserID, &a.Plan, &a.BalanceCents, &lastReset, &nextReset, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, wallet.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("wallet/sqlite: scan account: %w", err)
	}

	if a.ID, err = id.Parse(accountID); err != nil {
		return nil, err
	}
	if a.LastResetAt, err = parseTime(lastReset); err != nil {
		return nil, err
	}
	if a.NextResetAt, err = parseTime(nextReset); err != nil {
		return nil, err
	}
	if a.Entity, err = parseEntity(createdAt, updatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanTransaction(r rowScanner) (*txn.Transaction, error) {
	var t txn.Transaction
	var txnID, kind, createdAt string
	err := r.Scan(&txnID, &t.UserID, &kind, &t.AmountCents, &t.BalanceAfter, &t.Reason, &t.ActionType, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("wallet/sqlite: scan transaction: %w", err)
	}

	if t.ID, err = id.Parse(txnID); err != nil {
		return nil, err
	}
	t.Type = txn.Type(kind)
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func parseEntity(createdAt, updatedAt string) (types.Entity, error) {
	var e types.Entity
	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return e, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return e, err
	}
	return e, nil
}

// Timestamps are stored as fixed-width RFC 3339 text (nanoseconds always
// padded to nine digits) so that string comparison in SQL matches
// chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("wallet/sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
