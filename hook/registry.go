package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/txn"
)

// Registry manages all registered hooks and provides efficient dispatch.
// It uses type-cached discovery so emission never type-switches on the
// hot path.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger

	// Type-cached hook lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onSpend             []OnSpend
	onCredit            []OnCredit
	onPeriodReset       []OnPeriodReset
	onPlanChanged       []OnPlanChanged
	onInsufficientFunds []OnInsufficientFunds
	onConflictRetry     []OnConflictRetry
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a hook to the registry and caches its interfaces.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.hooks {
		if existing.Name() == h.Name() {
			return fmt.Errorf("hook: duplicate registration: %s", h.Name())
		}
	}

	r.hooks = append(r.hooks, h)

	// Type-switch to cache interfaces
	var interfaces []string
	if v, ok := h.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		interfaces = append(interfaces, "OnInit")
	}
	if v, ok := h.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		interfaces = append(interfaces, "OnShutdown")
	}
	if v, ok := h.(OnSpend); ok {
		r.onSpend = append(r.onSpend, v)
		interfaces = append(interfaces, "OnSpend")
	}
	if v, ok := h.(OnCredit); ok {
		r.onCredit = append(r.onCredit, v)
		interfaces = append(interfaces, "OnCredit")
	}
	if v, ok := h.(OnPeriodReset); ok {
		r.onPeriodReset = append(r.onPeriodReset, v)
		interfaces = append(interfaces, "OnPeriodReset")
	}
	if v, ok := h.(OnPlanChanged); ok {
		r.onPlanChanged = append(r.onPlanChanged, v)
		interfaces = append(interfaces, "OnPlanChanged")
	}
	if v, ok := h.(OnInsufficientFunds); ok {
		r.onInsufficientFunds = append(r.onInsufficientFunds, v)
		interfaces = append(interfaces, "OnInsufficientFunds")
	}
	if v, ok := h.(OnConflictRetry); ok {
		r.onConflictRetry = append(r.onConflictRetry, v)
		interfaces = append(interfaces, "OnConflictRetry")
	}

	r.logger.Info("hook registered",
		"name", h.Name(),
		"interfaces", interfaces,
	)

	return nil
}

// Get returns a hook by name.
func (r *Registry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.hooks {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// List returns all registered hooks.
func (r *Registry) List() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Hook, len(r.hooks))
	copy(result, r.hooks)
	return result
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all hooks that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("hook OnInit failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all hooks that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("hook OnShutdown failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitSpend emits a spend committed event.
func (r *Registry) EmitSpend(ctx context.Context, acct *account.Account, entry *txn.Transaction) {
	r.mu.RLock()
	hooks := r.onSpend
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnSpend(ctx, acct, entry)
		}); err != nil {
			r.logger.Warn("hook OnSpend failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitCredit emits a manual credit committed event.
func (r *Registry) EmitCredit(ctx context.Context, acct *account.Account, entry *txn.Transaction) {
	r.mu.RLock()
	hooks := r.onCredit
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnCredit(ctx, acct, entry)
		}); err != nil {
			r.logger.Warn("hook OnCredit failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitPeriodReset emits a period reset event.
func (r *Registry) EmitPeriodReset(ctx context.Context, acct *account.Account, forfeited int64, entry *txn.Transaction) {
	r.mu.RLock()
	hooks := r.onPeriodReset
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnPeriodReset(ctx, acct, forfeited, entry)
		}); err != nil {
			r.logger.Warn("hook OnPeriodReset failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitPlanChanged emits a plan changed event.
func (r *Registry) EmitPlanChanged(ctx context.Context, acct *account.Account, oldPlan, newPlan string) {
	r.mu.RLock()
	hooks := r.onPlanChanged
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnPlanChanged(ctx, acct, oldPlan, newPlan)
		}); err != nil {
			r.logger.Warn("hook OnPlanChanged failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitInsufficientFunds emits a rejected spend event.
func (r *Registry) EmitInsufficientFunds(ctx context.Context, userID, actionType string, requested, balance int64) {
	r.mu.RLock()
	hooks := r.onInsufficientFunds
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnInsufficientFunds(ctx, userID, actionType, requested, balance)
		}); err != nil {
			r.logger.Warn("hook OnInsufficientFunds failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// EmitConflictRetry emits a conflict retry event.
func (r *Registry) EmitConflictRetry(ctx context.Context, userID, op string, attempt int, wait time.Duration) {
	r.mu.RLock()
	hooks := r.onConflictRetry
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnConflictRetry(ctx, userID, op, attempt, wait)
		}); err != nil {
			r.logger.Warn("hook OnConflictRetry failed",
				"hook", h.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a hook function with a timeout.
// Hooks should never block the ledger pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, hookName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("hook timeout: %s", hookName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
