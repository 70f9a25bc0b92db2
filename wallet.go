package wallet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/hook"
	"github.com/reachly/wallet/plan"
	"github.com/reachly/wallet/store"
	"github.com/reachly/wallet/txn"
)

// Wallet is the credit ledger engine. It owns period resets, spend
// authorization and the retry budget for conflicted writes; the store
// underneath only ever sees single conditional attempts.
type Wallet struct {
	store   store.Store
	catalog *plan.Catalog
	hooks   *hook.Registry
	logger  *slog.Logger
	now     func() time.Time

	// Retry configuration for conflicted conditional writes
	maxAttempts   uint
	retryInterval time.Duration
	retryMaxWait  time.Duration
}

// New creates a new Wallet instance backed by the given store.
func New(s store.Store, opts ...Option) *Wallet {
	w := &Wallet{
		store:         s,
		catalog:       plan.Default(),
		hooks:         hook.NewRegistry(),
		logger:        slog.Default(),
		now:           func() time.Time { return time.Now().UTC() },
		maxAttempts:   5,
		retryInterval: 25 * time.Millisecond,
		retryMaxWait:  500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Option configures a Wallet instance.
type Option func(*Wallet)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Wallet) {
		w.logger = logger
		w.hooks.WithLogger(logger)
	}
}

// WithCatalog replaces the default plan catalog.
func WithCatalog(c *plan.Catalog) Option {
	return func(w *Wallet) {
		w.catalog = c
	}
}

// WithHook registers a hook.
func WithHook(h hook.Hook) Option {
	return func(w *Wallet) {
		_ = w.hooks.Register(h) //nolint:errcheck // best-effort hook registration during init
	}
}

// WithClock overrides the time source. Used by tests to cross period
// boundaries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(w *Wallet) {
		w.now = now
	}
}

// WithRetry configures the conflict retry budget: the total number of
// write attempts and the initial backoff interval.
func WithRetry(maxAttempts uint, initialInterval time.Duration) Option {
	return func(w *Wallet) {
		w.maxAttempts = maxAttempts
		w.retryInterval = initialInterval
	}
}

// Start migrates the store and initializes hooks.
func (w *Wallet) Start(ctx context.Context) error {
	if err := w.store.Migrate(ctx); err != nil {
		return err
	}

	w.hooks.EmitInit(ctx, w)

	w.logger.Info("wallet started",
		"plans", w.catalog.IDs(),
		"max_attempts", w.maxAttempts,
	)

	return nil
}

// Stop shuts down the Wallet.
func (w *Wallet) Stop() error {
	w.hooks.EmitShutdown(context.Background())
	return w.store.Close()
}

// Catalog returns the plan catalog the engine was configured with.
func (w *Wallet) Catalog() *plan.Catalog { return w.catalog }

// ──────────────────────────────────────────────────
// Account lifecycle
// ──────────────────────────────────────────────────

// GetOrCreate returns the user's account, creating it on first access
// with the free plan and a zero balance. The account returned is always
// current with respect to the billing period: an elapsed boundary is
// applied before returning.
func (w *Wallet) GetOrCreate(ctx context.Context, userID string) (*account.Account, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	cfg, err := w.catalog.Lookup(plan.FreePlanID)
	if err != nil {
		return nil, err
	}

	now := w.now()
	acct, err := w.store.GetOrCreateAccount(ctx, userID, account.Seed{
		Plan:        cfg.ID,
		LastResetAt: now,
		NextResetAt: cfg.Cadence.NextBoundary(now),
	})
	if err != nil {
		return nil, err
	}

	return w.maybeReset(ctx, acct)
}

// maybeReset applies an elapsed period boundary to the account. Resets
// are lazy: nothing runs on a timer, the first operation after the
// boundary performs the reset. If several whole periods elapsed since
// the last operation, the account catches up to the current one in a
// single reset — intermediate allocations are never stacked.
func (w *Wallet) maybeReset(ctx context.Context, acct *account.Account) (*account.Account, error) {
	now := w.now()
	if !acct.PeriodElapsed(now) {
		return acct, nil
	}

	cfg, err := w.catalog.Lookup(acct.Plan)
	if err != nil {
		return nil, err
	}

	// Walk boundaries forward until the next one is in the future.
	last := acct.NextResetAt
	next := cfg.Cadence.NextBoundary(last)
	for !now.Before(next) {
		last = next
		next = cfg.Cadence.NextBoundary(last)
	}

	allocation := cfg.TotalCredits().Amount
	entry, err := w.store.ResetPeriod(ctx, store.Reset{
		UserID:            acct.UserID,
		ExpectedNextReset: acct.NextResetAt,
		NewBalance:        allocation,
		LastResetAt:       last,
		NextResetAt:       next,
	})
	if errors.Is(err, ErrConflict) {
		// A concurrent operation won the reset. Re-read and use its result.
		return w.store.GetAccount(ctx, acct.UserID)
	}
	if err != nil {
		return nil, err
	}

	forfeited := acct.BalanceCents
	w.logger.Info("period reset",
		"user_id", acct.UserID,
		"plan", acct.Plan,
		"allocation_cents", allocation,
		"forfeited_cents", forfeited,
	)

	fresh, err := w.store.GetAccount(ctx, acct.UserID)
	if err != nil {
		return nil, err
	}

	w.hooks.EmitPeriodReset(ctx, fresh, forfeited, entry)
	return fresh, nil
}

// ──────────────────────────────────────────────────
// Spending
// ──────────────────────────────────────────────────

// TrySpend atomically authorizes and applies a spend of amountCents
// against the user's balance. It either debits the full amount and
// appends a ledger row, or changes nothing: ErrInsufficientFunds when
// the balance cannot cover the amount, ErrConflict when the retry
// budget is exhausted by concurrent writers. There is no partial spend.
func (w *Wallet) TrySpend(ctx context.Context, userID string, amountCents int64, actionType string) (*txn.Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}

	acct, err := w.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry, err := w.applyWithRetry(ctx, userID, "spend", store.Apply{
		UserID:     userID,
		Delta:      -amountCents,
		Reason:     txn.ReasonSpend,
		ActionType: actionType,
	})
	if errors.Is(err, ErrInsufficientFunds) {
		w.hooks.EmitInsufficientFunds(ctx, userID, actionType, amountCents, acct.BalanceCents)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	w.logger.Debug("spend committed",
		"user_id", userID,
		"action_type", actionType,
		"amount_cents", amountCents,
		"balance_after", entry.BalanceAfter,
	)

	acct.BalanceCents = entry.BalanceAfter
	w.hooks.EmitSpend(ctx, acct, entry)
	return entry, nil
}

// Credit adds amountCents to the user's balance outside the reset cycle,
// for support adjustments and promotional grants. The reason is recorded
// on the ledger row; empty defaults to manual_adjustment.
func (w *Wallet) Credit(ctx context.Context, userID string, amountCents int64, reason string) (*txn.Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if reason == "" {
		reason = txn.ReasonManualAdjustment
	}

	acct, err := w.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry, err := w.applyWithRetry(ctx, userID, "credit", store.Apply{
		UserID: userID,
		Delta:  amountCents,
		Reason: reason,
	})
	if err != nil {
		return nil, err
	}

	w.logger.Info("credit applied",
		"user_id", userID,
		"reason", reason,
		"amount_cents", amountCents,
		"balance_after", entry.BalanceAfter,
	)

	acct.BalanceCents = entry.BalanceAfter
	w.hooks.EmitCredit(ctx, acct, entry)
	return entry, nil
}

// applyWithRetry drives the store's single-attempt Apply through the
// engine's retry budget. Conflicts back off exponentially and retry;
// everything else is terminal on the first attempt.
func (w *Wallet) applyWithRetry(ctx context.Context, userID, op string, in store.Apply) (*txn.Transaction, error) {
	attempt := 0

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = w.retryInterval
	expo.MaxInterval = w.retryMaxWait

	entry, err := backoff.Retry(ctx, func() (*txn.Transaction, error) {
		attempt++
		entry, err := w.store.Apply(ctx, in)
		if err == nil {
			return entry, nil
		}
		if errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(w.maxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			w.hooks.EmitConflictRetry(ctx, userID, op, attempt, wait)
			w.logger.Debug("write conflict, retrying",
				"user_id", userID,
				"op", op,
				"attempt", attempt,
				"wait", wait,
			)
		}),
	)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			w.logger.Warn("retry budget exhausted",
				"user_id", userID,
				"op", op,
				"attempts", attempt,
			)
		}
		return nil, err
	}
	return entry, nil
}

// ──────────────────────────────────────────────────
// Plan management
// ──────────────────────────────────────────────────

// SetPlan changes the account's plan. Only the plan field changes: the
// current balance and period are untouched, and the new allocation takes
// effect at the next period boundary. Unknown plan ids are rejected
// before anything is written.
func (w *Wallet) SetPlan(ctx context.Context, userID, planID string) (*account.Account, error) {
	if _, err := w.catalog.Lookup(planID); err != nil {
		return nil, err
	}

	acct, err := w.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	oldPlan := acct.Plan
	if oldPlan == planID {
		return acct, nil
	}

	if err := w.store.SetAccountPlan(ctx, userID, planID); err != nil {
		return nil, err
	}

	acct, err = w.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	w.logger.Info("plan changed",
		"user_id", userID,
		"old_plan", oldPlan,
		"new_plan", planID,
	)

	w.hooks.EmitPlanChanged(ctx, acct, oldPlan, planID)
	return acct, nil
}
