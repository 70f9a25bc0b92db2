package audithook

// Action constants for audit events.
const (
	// Ledger actions
	ActionSpendCommitted = "wallet.spend.committed"
	ActionSpendRejected  = "wallet.spend.rejected"
	ActionCreditApplied  = "wallet.credit.applied"
	ActionPeriodReset    = "wallet.period.reset"

	// Plan actions
	ActionPlanChanged = "wallet.plan.changed"
)

// Resource constants for audit events.
const (
	ResourceWallet      = "wallet"
	ResourceTransaction = "transaction"
	ResourcePlan        = "plan"
)

// Category constants for audit events.
const (
	CategoryLedger  = "ledger"
	CategoryBilling = "billing"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
