package mongo

import (
	"time"

	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/id"
	"github.com/reachly/wallet/txn"
	"github.com/reachly/wallet/types"
)

// accountDoc is the persisted shape of an account. The user id is the
// document key, which is the uniqueness constraint that makes concurrent
// first-access converge on a single document.
type accountDoc struct {
	UserID       string    `bson:"_id"`
	AccountID    string    `bson:"account_id"`
	Plan         string    `bson:"plan"`
	BalanceCents int64     `bson:"balance_cents"`
	LastResetAt  time.Time `bson:"last_reset_at"`
	NextResetAt  time.Time `bson:"next_reset_at"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func fromAccountDoc(d *accountDoc) (*account.Account, error) {
	accountID, err := id.Parse(d.AccountID)
	if err != nil {
		return nil, err
	}
	return &account.Account{
		Entity: types.Entity{
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
		ID:           accountID,
		UserID:       d.UserID,
		Plan:         d.Plan,
		BalanceCents: d.BalanceCents,
		LastResetAt:  d.LastResetAt,
		NextResetAt:  d.NextResetAt,
	}, nil
}

type txnDoc struct {
	ID           string    `bson:"_id"`
	UserID       string    `bson:"user_id"`
	Type         string    `bson:"type"`
	AmountCents  int64     `bson:"amount_cents"`
	BalanceAfter int64     `bson:"balance_after"`
	Reason       string    `bson:"reason"`
	ActionType   string    `bson:"action_type,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toTxnDoc(t *txn.Transaction) *txnDoc {
	return &txnDoc{
		ID:           t.ID.String(),
		UserID:       t.UserID,
		Type:         string(t.Type),
		AmountCents:  t.AmountCents,
		BalanceAfter: t.BalanceAfter,
		Reason:       t.Reason,
		ActionType:   t.ActionType,
		CreatedAt:    t.CreatedAt,
	}
}

func fromTxnDoc(d *txnDoc) (*txn.Transaction, error) {
	txnID, err := id.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &txn.Transaction{
		ID:           txnID,
		UserID:       d.UserID,
		Type:         txn.Type(d.Type),
		AmountCents:  d.AmountCents,
		BalanceAfter: d.BalanceAfter,
		Reason:       d.Reason,
		ActionType:   d.ActionType,
		CreatedAt:    d.CreatedAt,
	}, nil
}
