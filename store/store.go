// Package store defines the unified storage interface for the wallet ledger.
package store

import (
	"context"
	"time"

	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/txn"
)

// Apply is the input to the sole balance-mutation primitive. Delta is a
// signed cent amount: negative debits, positive credits.
type Apply struct {
	UserID     string
	Delta      int64
	Reason     string
	ActionType string
}

// Reset is the input to the period-reset primitive. ExpectedNextReset is
// the NextResetAt value the caller read; the store accepts the reset only
// if the stored value still matches, which serializes racing resetters.
type Reset struct {
	UserID            string
	ExpectedNextReset time.Time
	NewBalance        int64 // post-reset balance, exactly the plan allocation
	LastResetAt       time.Time
	NextResetAt       time.Time
}

// Store is the unified storage interface for wallet accounts and the
// append-only transaction log. It is the only component permitted to
// mutate either. Every mutation is a single conditional write: it takes
// effect fully or not at all, and a write that lost a race reports
// ErrConflict for exactly one attempt — the engine owns the retry budget.
// Locking scope is strictly per user: operations on different users never
// contend.
type Store interface {
	// Account methods. GetOrCreateAccount uses seed only when the user has
	// no account yet; concurrent creators for the same user converge on a
	// single record via the uniqueness constraint on user_id.
	GetOrCreateAccount(ctx context.Context, userID string, seed account.Seed) (*account.Account, error)
	GetAccount(ctx context.Context, userID string) (*account.Account, error)
	SetAccountPlan(ctx context.Context, userID, planID string) error

	// Mutation primitives. Apply atomically re-checks the balance, rejects
	// debits that would drive it negative (ErrInsufficientFunds, no row
	// appended), writes the new balance and appends the transaction row.
	// ResetPeriod applies the reset delta and advances both period
	// timestamps, conditional on ExpectedNextReset.
	Apply(ctx context.Context, in Apply) (*txn.Transaction, error)
	ResetPeriod(ctx context.Context, in Reset) (*txn.Transaction, error)

	// Transaction log methods. DebitsSince sums only spend debits:
	// forfeiture rows written by a period reset carry their own reason
	// and are not usage.
	Transactions(ctx context.Context, userID string, limit int) ([]*txn.Transaction, error)
	DebitsSince(ctx context.Context, userID string, since time.Time) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
