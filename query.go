package wallet

import (
	"context"
	"time"

	"github.com/reachly/wallet/txn"
	"github.com/reachly/wallet/types"
)

// History limits. Callers asking for nothing get the default page;
// callers asking for too much get the cap.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Status is the read-model snapshot of a wallet: current balance, the
// plan's allocation and limits, and derived period figures. It is a
// plain value with no reference back to store state.
type Status struct {
	UserID          string      `json:"user_id"`
	Plan            string      `json:"plan"`
	PlanName        string      `json:"plan_name"`
	Balance         types.Money `json:"balance"`
	Allocation      types.Money `json:"allocation"`
	SpentThisPeriod types.Money `json:"spent_this_period"`
	PercentUsed     float64     `json:"percent_used"`
	DaysRemaining   int         `json:"days_remaining"`
	LastResetAt     string      `json:"last_reset_at"`
	NextResetAt     string      `json:"next_reset_at"`

	// Per-post action limits from the plan
	ReactionsPerPost int `json:"reactions_per_post"`
	CommentsPerPost  int `json:"comments_per_post"`
}

// Status returns the wallet snapshot for a user, creating the account on
// first access and applying any elapsed period boundary first so the
// figures always describe the current period. SpentThisPeriod is derived
// from the ledger (the sum of debit rows since the last reset), not from
// the allocation-minus-balance difference, so manual credits do not show
// up as negative spend.
func (w *Wallet) Status(ctx context.Context, userID string) (*Status, error) {
	acct, err := w.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	cfg, err := w.catalog.Lookup(acct.Plan)
	if err != nil {
		return nil, err
	}

	spent, err := w.store.DebitsSince(ctx, userID, acct.LastResetAt)
	if err != nil {
		return nil, err
	}

	allocation := cfg.TotalCredits()
	var percentUsed float64
	if allocation.Amount > 0 {
		percentUsed = float64(spent) / float64(allocation.Amount) * 100
	}

	return &Status{
		UserID:           acct.UserID,
		Plan:             cfg.ID,
		PlanName:         cfg.Name,
		Balance:          acct.Balance(),
		Allocation:       allocation,
		SpentThisPeriod:  types.USD(spent),
		PercentUsed:      percentUsed,
		DaysRemaining:    acct.DaysRemaining(w.now()),
		LastResetAt:      acct.LastResetAt.UTC().Format(time.RFC3339),
		NextResetAt:      acct.NextResetAt.UTC().Format(time.RFC3339),
		ReactionsPerPost: cfg.ReactionsPerPost,
		CommentsPerPost:  cfg.CommentsPerPost,
	}, nil
}

// History returns the most recent ledger rows for a user, newest first.
// limit <= 0 selects DefaultHistoryLimit; anything above MaxHistoryLimit
// is clamped to it.
func (w *Wallet) History(ctx context.Context, userID string, limit int) ([]*txn.Transaction, error) {
	if _, err := w.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	return w.store.Transactions(ctx, userID, limit)
}
