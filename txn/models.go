// Package txn defines the append-only ledger transaction row.
package txn

import (
	"time"

	"github.com/reachly/wallet/id"
	"github.com/reachly/wallet/types"
)

// Type is the accounting side of a transaction.
type Type string

const (
	TypeCredit Type = "credit"
	TypeDebit  Type = "debit"
)

// Well-known transaction reasons.
const (
	ReasonPeriodReset      = "period_reset"
	ReasonSpend            = "spend"
	ReasonManualAdjustment = "manual_adjustment"
)

// Transaction is one immutable row in the per-user ledger. AmountCents is
// always positive; Type disambiguates the sign. BalanceAfter snapshots the
// account balance immediately after the row was accepted, so history can be
// displayed without replaying the log.
type Transaction struct {
	ID           id.TransactionID `json:"id"`
	UserID       string           `json:"user_id"`
	Type         Type             `json:"type"`
	AmountCents  int64            `json:"amount_cents"`
	BalanceAfter int64            `json:"balance_after"`
	Reason       string           `json:"reason"`
	ActionType   string           `json:"action_type,omitempty"` // metered action for debits
	CreatedAt    time.Time        `json:"created_at"`
}

// Amount returns the transaction amount as Money.
func (t *Transaction) Amount() types.Money {
	return types.USD(t.AmountCents)
}

// SignedDelta returns the balance delta this row applied: negative for
// debits, positive for credits.
func (t *Transaction) SignedDelta() int64 {
	if t.Type == TypeDebit {
		return -t.AmountCents
	}
	return t.AmountCents
}

// FromDelta derives the transaction type and positive amount for a
// signed balance delta.
func FromDelta(delta int64) (Type, int64) {
	if delta < 0 {
		return TypeDebit, -delta
	}
	return TypeCredit, delta
}
