// Package account defines the per-user wallet account record.
package account

import (
	"time"

	"github.com/reachly/wallet/id"
	"github.com/reachly/wallet/types"
)

// Account is the durable wallet record, one per user. The balance is the
// only mutable money field and is never negative. Mutation happens only
// through the store's conditional-write primitives; there is no raw setter.
type Account struct {
	types.Entity
	ID           id.AccountID `json:"id"`
	UserID       string       `json:"user_id"` // opaque verified identifier, unique
	Plan         string       `json:"plan"`    // plan catalog id
	BalanceCents int64        `json:"balance_cents"`
	LastResetAt  time.Time    `json:"last_reset_at"`
	NextResetAt  time.Time    `json:"next_reset_at"` // always > LastResetAt
}

// Seed is the initial state for an account created on first access:
// zero balance, the catalog's free plan, and the first billing period
// derived from that plan's cadence.
type Seed struct {
	Plan        string
	LastResetAt time.Time
	NextResetAt time.Time
}

// Balance returns the current balance as Money (USD cents).
func (a *Account) Balance() types.Money {
	return types.USD(a.BalanceCents)
}

// PeriodElapsed reports whether the billing period boundary has been
// reached at the given instant.
func (a *Account) PeriodElapsed(now time.Time) bool {
	return !now.Before(a.NextResetAt)
}

// DaysRemaining returns the whole days left until the next reset,
// never negative.
func (a *Account) DaysRemaining(now time.Time) int {
	if a.PeriodElapsed(now) {
		return 0
	}
	return int(a.NextResetAt.Sub(now).Hours() / 24)
}
