package wallet

import (
	"errors"
	"fmt"

	"github.com/reachly/wallet/plan"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("wallet: not found")
	ErrInvalidInput = errors.New("wallet: invalid input")

	// Account errors
	ErrAccountNotFound = errors.New("wallet: account not found")

	// Plan errors. ErrPlanNotFound aliases the catalog sentinel so that
	// errors.Is works whether the failure originated in the catalog or
	// the engine.
	ErrPlanNotFound = plan.ErrUnknownPlan

	// Spend errors
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrInvalidAmount     = errors.New("wallet: amount must be positive")

	// Concurrency errors
	ErrConflict = errors.New("wallet: concurrent modification conflict")

	// Store errors
	ErrStoreUnavailable = errors.New("wallet: store unavailable")
	ErrStoreClosed      = errors.New("wallet: store is closed")
	ErrMigrationFailed  = errors.New("wallet: migration failed")
)

// ConflictError carries detail about a lost conditional write. It unwraps
// to ErrConflict so callers only ever match the sentinel.
type ConflictError struct {
	UserID string
	Op     string // "apply" or "reset"
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("wallet: %s conflict for user %s", e.Op, e.UserID)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrPlanNotFound)
}

// IsInsufficientFunds reports the expected, recoverable business condition:
// the caller lacks credits. Never a transient failure — retrying without a
// top-up cannot succeed.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsRetryable returns true if the error is temporary and the whole
// operation can be retried by the caller.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrStoreUnavailable)
}
