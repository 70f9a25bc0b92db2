// Package hook provides an extensible hook system for the wallet engine.
// Hooks can observe lifecycle and ledger events to extend functionality.
package hook

import (
	"context"
	"time"

	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/txn"
)

// Hook is the base interface that all hooks must implement.
type Hook interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Hook
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Hook
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnSpend is called after a spend has been committed.
type OnSpend interface {
	Hook
	OnSpend(ctx context.Context, acct *account.Account, entry *txn.Transaction) error
}

// OnCredit is called after a manual credit has been committed.
type OnCredit interface {
	Hook
	OnCredit(ctx context.Context, acct *account.Account, entry *txn.Transaction) error
}

// OnPeriodReset is called after a billing period reset has been applied.
type OnPeriodReset interface {
	Hook
	OnPeriodReset(ctx context.Context, acct *account.Account, forfeited int64, entry *txn.Transaction) error
}

// OnPlanChanged is called after an account changes plans.
type OnPlanChanged interface {
	Hook
	OnPlanChanged(ctx context.Context, acct *account.Account, oldPlan, newPlan string) error
}

// OnInsufficientFunds is called when a spend is rejected for lack of balance.
type OnInsufficientFunds interface {
	Hook
	OnInsufficientFunds(ctx context.Context, userID, actionType string, requested, balance int64) error
}

// OnConflictRetry is called each time a mutation is retried after a
// concurrency conflict.
type OnConflictRetry interface {
	Hook
	OnConflictRetry(ctx context.Context, userID, op string, attempt int, wait time.Duration) error
}
