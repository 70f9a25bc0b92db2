// Package memory provides an in-process Store for tests and demos.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/reachly/wallet"
	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/id"
	"github.com/reachly/wallet/store"
	"github.com/reachly/wallet/txn"
	"github.com/reachly/wallet/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// userState is one user's account plus transaction log, guarded by its
// own mutex so that users never contend with each other.
type userState struct {
	mu   sync.Mutex
	acct *account.Account
	log  []*txn.Transaction // append order, oldest first
}

// Store implements store.Store with mutex-guarded maps. Mutations are
// serialized per user, which gives the same linearized-per-account
// semantics the durable backends get from conditional writes.
type Store struct {
	mu    sync.RWMutex
	users map[string]*userState
}

func New() *Store {
	return &Store{users: make(map[string]*userState)}
}

// user returns the state for userID, creating the slot if needed.
func (s *Store) user(userID string) *userState {
	s.mu.RLock()
	u, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		return u
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok = s.users[userID]; ok {
		return u
	}
	u = &userState{}
	s.users[userID] = u
	return u
}

// lookup returns the state for userID without creating the slot.
func (s *Store) lookup(userID string) (*userState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	return u, ok
}

func (s *Store) GetOrCreateAccount(_ context.Context, userID string, seed account.Seed) (*account.Account, error) {
	u := s.user(userID)
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.acct == nil {
		u.acct = &account.Account{
			Entity:      types.NewEntity(),
			ID:          id.NewAccountID(),
			UserID:      userID,
			Plan:        seed.Plan,
			LastResetAt: seed.LastResetAt,
			NextResetAt: seed.NextResetAt,
		}
	}
	return cloneAccount(u.acct), nil
}

func (s *Store) GetAccount(_ context.Context, userID string) (*account.Account, error) {
	u, ok := s.lookup(userID)
	if !ok {
		return nil, wallet.ErrAccountNotFound
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.acct == nil {
		return nil, wallet.ErrAccountNotFound
	}
	return cloneAccount(u.acct), nil
}

func (s *Store) SetAccountPlan(_ context.Context, userID, planID string) error {
	u, ok := s.lookup(userID)
	if !ok {
		return wallet.ErrAccountNotFound
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.acct == nil {
		return wallet.ErrAccountNotFound
	}
	u.acct.Plan = planID
	u.acct.Touch()
	return nil
}

func (s *Store) Apply(_ context.Context, in store.Apply) (*txn.Transaction, error) {
	u, ok := s.lookup(in.UserID)
	if !ok {
		return nil, wallet.ErrAccountNotFound
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.acct == nil {
		return nil, wallet.ErrAccountNotFound
	}

	newBalance := u.acct.BalanceCents + in.Delta
	if newBalance < 0 {
		return nil, wallet.ErrInsufficientFunds
	}

	kind, amount := txn.FromDelta(in.Delta)
	row := &txn.Transaction{
		ID:           id.NewTransactionID(),
		UserID:       in.UserID,
		Type:         kind,
		AmountCents:  amount,
		BalanceAfter: newBalance,
		Reason:       in.Reason,
		ActionType:   in.ActionType,
		CreatedAt:    time.Now().UTC(),
	}

	u.acct.BalanceCents = newBalance
	u.acct.Touch()
	u.log = append(u.log, row)
	return cloneTransaction(row), nil
}

func (s *Store) ResetPeriod(_ context.Context, in store.Reset) (*txn.Transaction, error) {
	u, ok := s.lookup(in.UserID)
	if !ok {
		return nil, wallet.ErrAccountNotFound
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.acct == nil {
		return nil, wallet.ErrAccountNotFound
	}

	// Conditional write: the reset belongs to whoever read the still
	// current NextResetAt. A racing resetter observes the mismatch here.
	if !u.acct.NextResetAt.Equal(in.ExpectedNextReset) {
		return nil, &wallet.ConflictError{UserID: in.UserID, Op: "reset"}
	}

	delta := in.NewBalance - u.acct.BalanceCents
	kind, amount := txn.FromDelta(delta)
	row := &txn.Transaction{
		ID:           id.NewTransactionID(),
		UserID:       in.UserID,
		Type:         kind,
		AmountCents:  amount,
		BalanceAfter: in.NewBalance,
		Reason:       txn.ReasonPeriodReset,
		CreatedAt:    time.Now().UTC(),
	}

	u.acct.BalanceCents = in.NewBalance
	u.acct.LastResetAt = in.LastResetAt
	u.acct.NextResetAt = in.NextResetAt
	u.acct.Touch()
	u.log = append(u.log, row)
	return cloneTransaction(row), nil
}

func (s *Store) Transactions(_ context.Context, userID string, limit int) ([]*txn.Transaction, error) {
	u, ok := s.lookup(userID)
	if !ok {
		return []*txn.Transaction{}, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	n := len(u.log)
	if limit > 0 && limit < n {
		n = limit
	}

	// Most recent first.
	result := make([]*txn.Transaction, 0, n)
	for i := len(u.log) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, cloneTransaction(u.log[i]))
	}
	return result, nil
}

func (s *Store) DebitsSince(_ context.Context, userID string, since time.Time) (int64, error) {
	u, ok := s.lookup(userID)
	if !ok {
		return 0, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	var total int64
	for _, row := range u.log {
		if row.Type == txn.TypeDebit && row.Reason == txn.ReasonSpend && !row.CreatedAt.Before(since) {
			total += row.AmountCents
		}
	}
	return total, nil
}

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// cloneAccount copies the record so callers never share mutable state
// with the store.
func cloneAccount(a *account.Account) *account.Account {
	c := *a
	return &c
}

func cloneTransaction(t *txn.Transaction) *txn.Transaction {
	c := *t
	return &c
}
