package plan

import (
	"time"

	"github.com/reachly/wallet/types"
)

// Cadence is the billing period length for a plan.
type Cadence string

const (
	CadenceMonthly Cadence = "monthly"
	CadenceYearly  Cadence = "yearly"
)

// NextBoundary returns the period boundary one cadence after from.
func (c Cadence) NextBoundary(from time.Time) time.Time {
	switch c {
	case CadenceYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Config is the immutable allocation configuration for a plan.
// TotalCredits is granted at every period reset; unspent balance from the
// prior period is forfeited, never accumulated.
type Config struct {
	ID               string      `json:"id"`   // plan slug: "free", "pro", "scale"
	Name             string      `json:"name"` // display name
	BaseCredits      types.Money `json:"base_credits"`
	BonusCredits     types.Money `json:"bonus_credits"`
	ReactionsPerPost int         `json:"reactions_per_post"`
	CommentsPerPost  int         `json:"comments_per_post"`
	Cadence          Cadence     `json:"cadence"`
}

// TotalCredits is the allocation granted at each period reset.
func (c Config) TotalCredits() types.Money {
	return c.BaseCredits.Add(c.BonusCredits)
}
