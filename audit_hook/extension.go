// Package audithook bridges wallet ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time; the default recorder writes
// structured slog records.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/hook"
	"github.com/reachly/wallet/txn"
)

// Compile-time interface checks.
var (
	_ hook.Hook                = (*Extension)(nil)
	_ hook.OnSpend             = (*Extension)(nil)
	_ hook.OnCredit            = (*Extension)(nil)
	_ hook.OnPeriodReset       = (*Extension)(nil)
	_ hook.OnPlanChanged       = (*Extension)(nil)
	_ hook.OnInsufficientFunds = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// SlogRecorder returns a Recorder that writes audit events as structured
// log records at Info level.
func SlogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, event *AuditEvent) error {
		logger.InfoContext(ctx, "audit",
			"action", event.Action,
			"resource", event.Resource,
			"resource_id", event.ResourceID,
			"outcome", event.Outcome,
			"severity", event.Severity,
			"metadata", event.Metadata,
		)
		return nil
	})
}

// Extension bridges wallet ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Hook.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnSpend implements hook.OnSpend.
func (e *Extension) OnSpend(ctx context.Context, acct *account.Account, entry *txn.Transaction) error {
	return e.record(ctx, ActionSpendCommitted, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, entry.ID.String(), CategoryLedger,
		"user_id", acct.UserID,
		"action_type", entry.ActionType,
		"amount_cents", entry.AmountCents,
		"balance_after", entry.BalanceAfter,
	)
}

// OnCredit implements hook.OnCredit.
func (e *Extension) OnCredit(ctx context.Context, acct *account.Account, entry *txn.Transaction) error {
	return e.record(ctx, ActionCreditApplied, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, entry.ID.String(), CategoryLedger,
		"user_id", acct.UserID,
		"reason", entry.Reason,
		"amount_cents", entry.AmountCents,
		"balance_after", entry.BalanceAfter,
	)
}

// OnPeriodReset implements hook.OnPeriodReset.
func (e *Extension) OnPeriodReset(ctx context.Context, acct *account.Account, forfeited int64, entry *txn.Transaction) error {
	return e.record(ctx, ActionPeriodReset, SeverityInfo, OutcomeSuccess,
		ResourceWallet, acct.UserID, CategoryBilling,
		"plan", acct.Plan,
		"balance_after", entry.BalanceAfter,
		"forfeited_cents", forfeited,
	)
}

// OnPlanChanged implements hook.OnPlanChanged.
func (e *Extension) OnPlanChanged(ctx context.Context, acct *account.Account, oldPlan, newPlan string) error {
	return e.record(ctx, ActionPlanChanged, SeverityInfo, OutcomeSuccess,
		ResourcePlan, acct.UserID, CategoryBilling,
		"old_plan", oldPlan,
		"new_plan", newPlan,
	)
}

// OnInsufficientFunds implements hook.OnInsufficientFunds.
func (e *Extension) OnInsufficientFunds(ctx context.Context, userID, actionType string, requested, balance int64) error {
	return e.record(ctx, ActionSpendRejected, SeverityWarning, OutcomeFailure,
		ResourceWallet, userID, CategoryLedger,
		"action_type", actionType,
		"requested_cents", requested,
		"balance_cents", balance,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
