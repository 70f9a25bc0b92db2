// Package observability provides a metrics hook for the wallet engine that
// records ledger event counts via Prometheus.
package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/hook"
	"github.com/reachly/wallet/txn"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ hook.Hook                = (*MetricsExtension)(nil)
	_ hook.OnSpend             = (*MetricsExtension)(nil)
	_ hook.OnCredit            = (*MetricsExtension)(nil)
	_ hook.OnPeriodReset       = (*MetricsExtension)(nil)
	_ hook.OnPlanChanged       = (*MetricsExtension)(nil)
	_ hook.OnInsufficientFunds = (*MetricsExtension)(nil)
	_ hook.OnConflictRetry     = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide ledger metrics.
// Register it as a wallet hook to automatically track wallet activity.
type MetricsExtension struct {
	// Spend metrics
	Spends            *prometheus.CounterVec
	SpendAmountCents  prometheus.Histogram
	InsufficientFunds *prometheus.CounterVec

	// Credit metrics
	Credits *prometheus.CounterVec

	// Period metrics
	PeriodResets   *prometheus.CounterVec
	ForfeitedCents prometheus.Counter

	// Plan metrics
	PlanChanges *prometheus.CounterVec

	// Concurrency metrics
	ConflictRetries *prometheus.CounterVec
}

// New creates a MetricsExtension registered on the given registerer.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func New(reg prometheus.Registerer) *MetricsExtension {
	factory := promauto.With(reg)

	return &MetricsExtension{
		Spends: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "spends_total",
			Help:      "Total committed spends by action type.",
		}, []string{"action_type"}),

		SpendAmountCents: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "spend_amount_cents",
			Help:      "Distribution of committed spend amounts in cents.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}),

		InsufficientFunds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "insufficient_funds_total",
			Help:      "Total spends rejected for insufficient balance, by action type.",
		}, []string{"action_type"}),

		Credits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "credits_total",
			Help:      "Total manual credits by reason.",
		}, []string{"reason"}),

		PeriodResets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "period_resets_total",
			Help:      "Total billing period resets by plan.",
		}, []string{"plan"}),

		ForfeitedCents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "forfeited_cents_total",
			Help:      "Total unspent cents forfeited at period resets.",
		}),

		PlanChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "plan_changes_total",
			Help:      "Total plan changes by target plan.",
		}, []string{"new_plan"}),

		ConflictRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "ledger",
			Name:      "conflict_retries_total",
			Help:      "Total write retries after concurrency conflicts, by operation.",
		}, []string{"op"}),
	}
}

// Name implements hook.Hook.
func (m *MetricsExtension) Name() string { return "prometheus-metrics" }

// OnSpend implements hook.OnSpend.
func (m *MetricsExtension) OnSpend(_ context.Context, _ *account.Account, entry *txn.Transaction) error {
	m.Spends.WithLabelValues(entry.ActionType).Inc()
	m.SpendAmountCents.Observe(float64(entry.AmountCents))
	return nil
}

// OnCredit implements hook.OnCredit.
func (m *MetricsExtension) OnCredit(_ context.Context, _ *account.Account, entry *txn.Transaction) error {
	m.Credits.WithLabelValues(entry.Reason).Inc()
	return nil
}

// OnPeriodReset implements hook.OnPeriodReset.
func (m *MetricsExtension) OnPeriodReset(_ context.Context, acct *account.Account, forfeited int64, _ *txn.Transaction) error {
	m.PeriodResets.WithLabelValues(acct.Plan).Inc()
	if forfeited > 0 {
		m.ForfeitedCents.Add(float64(forfeited))
	}
	return nil
}

// OnPlanChanged implements hook.OnPlanChanged.
func (m *MetricsExtension) OnPlanChanged(_ context.Context, _ *account.Account, _, newPlan string) error {
	m.PlanChanges.WithLabelValues(newPlan).Inc()
	return nil
}

// OnInsufficientFunds implements hook.OnInsufficientFunds.
func (m *MetricsExtension) OnInsufficientFunds(_ context.Context, _, actionType string, _, _ int64) error {
	m.InsufficientFunds.WithLabelValues(actionType).Inc()
	return nil
}

// OnConflictRetry implements hook.OnConflictRetry.
func (m *MetricsExtension) OnConflictRetry(_ context.Context, _, op string, _ int, _ time.Duration) error {
	m.ConflictRetries.WithLabelValues(op).Inc()
	return nil
}
