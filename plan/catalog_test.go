package plan

import (
	"errors"
	"testing"
	"time"

	"github.com/reachly/wallet/types"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := Default()

	tests := []struct {
		planID           string
		totalCents       int64
		reactionsPerPost int
		commentsPerPost  int
	}{
		{"free", 0, 0, 0},
		{"pro", 10000, 25, 5},
		{"scale", 30000, 100, 20}, // base $250 + bonus $50
	}

	for _, tt := range tests {
		t.Run(tt.planID, func(t *testing.T) {
			cfg, err := catalog.Lookup(tt.planID)
			if err != nil {
				t.Fatalf("Lookup(%q): %v", tt.planID, err)
			}
			if got := cfg.TotalCredits().Amount; got != tt.totalCents {
				t.Errorf("TotalCredits = %d, want %d", got, tt.totalCents)
			}
			if cfg.ReactionsPerPost != tt.reactionsPerPost {
				t.Errorf("ReactionsPerPost = %d, want %d", cfg.ReactionsPerPost, tt.reactionsPerPost)
			}
			if cfg.CommentsPerPost != tt.commentsPerPost {
				t.Errorf("CommentsPerPost = %d, want %d", cfg.CommentsPerPost, tt.commentsPerPost)
			}
		})
	}
}

func TestLookupUnknownPlan(t *testing.T) {
	catalog := Default()

	_, err := catalog.Lookup("enterprise")
	if !errors.Is(err, ErrUnknownPlan) {
		t.Errorf("Lookup(unknown) error = %v, want ErrUnknownPlan", err)
	}
}

func TestCatalogHas(t *testing.T) {
	catalog := Default()

	if !catalog.Has(FreePlanID) {
		t.Error("Has(free) = false")
	}
	if catalog.Has("enterprise") {
		t.Error("Has(enterprise) = true")
	}
}

func TestCatalogIDsSorted(t *testing.T) {
	catalog := Default()

	ids := catalog.IDs()
	want := []string{"free", "pro", "scale"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog(
		Config{ID: "pro", BaseCredits: types.USD(100)},
		Config{ID: "pro", BaseCredits: types.USD(200)},
	)
	if err == nil {
		t.Error("NewCatalog with duplicate ids succeeded")
	}
}

func TestNewCatalogRejectsEmptyID(t *testing.T) {
	_, err := NewCatalog(Config{Name: "No ID"})
	if err == nil {
		t.Error("NewCatalog with empty id succeeded")
	}
}

func TestCadenceNextBoundary(t *testing.T) {
	from := time.Date(2025, time.January, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		cadence Cadence
		want    time.Time
	}{
		{"monthly", CadenceMonthly, time.Date(2025, time.February, 15, 10, 30, 0, 0, time.UTC)},
		{"yearly", CadenceYearly, time.Date(2026, time.January, 15, 10, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cadence.NextBoundary(from)
			if !got.Equal(tt.want) {
				t.Errorf("NextBoundary = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthEndNormalization(t *testing.T) {
	// AddDate normalizes Jan 31 + 1 month to Mar 2/3; the boundary still
	// advances strictly forward, which is the property the ledger needs.
	from := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	next := CadenceMonthly.NextBoundary(from)
	if !next.After(from) {
		t.Errorf("NextBoundary(%v) = %v, not after", from, next)
	}
}
