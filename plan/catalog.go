// Package plan holds the static plan catalog: the mapping from plan
// identifier to credit allocation and per-post action limits.
package plan

import (
	"errors"
	"fmt"
	"sort"

	"github.com/reachly/wallet/types"
)

// FreePlanID is the plan assigned to accounts created on first access.
const FreePlanID = "free"

// ErrUnknownPlan is returned by Lookup for a plan id not in the catalog.
var ErrUnknownPlan = errors.New("plan: unknown plan")

// Catalog is an immutable lookup table from plan id to Config.
// It is built once and never mutated, so any number of callers may
// read it concurrently.
type Catalog struct {
	configs map[string]Config
}

// NewCatalog builds a catalog from the given configs.
// Duplicate plan ids are a configuration defect and return an error.
func NewCatalog(configs ...Config) (*Catalog, error) {
	m := make(map[string]Config, len(configs))
	for _, c := range configs {
		if c.ID == "" {
			return nil, fmt.Errorf("plan: config %q has empty id", c.Name)
		}
		if _, dup := m[c.ID]; dup {
			return nil, fmt.Errorf("plan: duplicate plan id %q", c.ID)
		}
		m[c.ID] = c
	}
	return &Catalog{configs: m}, nil
}

// MustCatalog is like NewCatalog but panics on error. Use for
// hardcoded catalogs built at program init.
func MustCatalog(configs ...Config) *Catalog {
	c, err := NewCatalog(configs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the config for a plan id. An unknown id is a
// caller/configuration defect, reported as ErrUnknownPlan — callers
// must validate plan ids against the catalog before persisting them.
func (c *Catalog) Lookup(planID string) (Config, error) {
	cfg, ok := c.configs[planID]
	if !ok {
		return Config{}, fmt.Errorf("plan: %w: %q", ErrUnknownPlan, planID)
	}
	return cfg, nil
}

// Has reports whether planID exists in the catalog.
func (c *Catalog) Has(planID string) bool {
	_, ok := c.configs[planID]
	return ok
}

// IDs returns the plan ids in the catalog, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.configs))
	for planID := range c.configs {
		ids = append(ids, planID)
	}
	sort.Strings(ids)
	return ids
}

// Default returns the built-in catalog: a zero-allocation free tier and
// two paid tiers with monthly allocations.
func Default() *Catalog {
	return MustCatalog(
		Config{
			ID:               FreePlanID,
			Name:             "Free",
			BaseCredits:      types.USD(0),
			BonusCredits:     types.USD(0),
			ReactionsPerPost: 0,
			CommentsPerPost:  0,
			Cadence:          CadenceMonthly,
		},
		Config{
			ID:               "pro",
			Name:             "Pro",
			BaseCredits:      types.USD(10000), // $100.00/month
			BonusCredits:     types.USD(0),
			ReactionsPerPost: 25,
			CommentsPerPost:  5,
			Cadence:          CadenceMonthly,
		},
		Config{
			ID:               "scale",
			Name:             "Scale",
			BaseCredits:      types.USD(25000), // $250.00/month
			BonusCredits:     types.USD(5000),  // $50.00 loyalty bonus
			ReactionsPerPost: 100,
			CommentsPerPost:  20,
			Cadence:          CadenceMonthly,
		},
	)
}
