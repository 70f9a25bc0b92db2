package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reachly/wallet"
	"github.com/reachly/wallet/account"
	"github.com/reachly/wallet/store"
	"github.com/reachly/wallet/txn"
)

func testSeed(now time.Time) account.Seed {
	return account.Seed{
		Plan:        "free",
		LastResetAt: now,
		NextResetAt: now.AddDate(0, 1, 0),
	}
}

func newAccount(t *testing.T, s *Store, userID string) *account.Account {
	t.Helper()
	acct, err := s.GetOrCreateAccount(context.Background(), userID, testSeed(time.Now().UTC()))
	if err != nil {
		t.Fatal(err)
	}
	return acct
}

func TestGetOrCreateAccount(t *testing.T) {
	s := New()
	ctx := context.Background()

	acct := newAccount(t, s, "user-1")
	if acct.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", acct.UserID, "user-1")
	}
	if acct.BalanceCents != 0 {
		t.Errorf("BalanceCents = %d, want 0", acct.BalanceCents)
	}
	if acct.Plan != "free" {
		t.Errorf("Plan = %q, want free", acct.Plan)
	}

	// Second call returns the same account, not a fresh one.
	again, err := s.GetOrCreateAccount(ctx, "user-1", testSeed(time.Now().UTC()))
	if err != nil {
		t.Fatal(err)
	}
	if again.ID.String() != acct.ID.String() {
		t.Errorf("second GetOrCreate returned new account %s, want %s", again.ID, acct.ID)
	}
}

func TestGetAccountNotFound(t *testing.T) {
	s := New()

	_, err := s.GetAccount(context.Background(), "nobody")
	if !errors.Is(err, wallet.ErrAccountNotFound) {
		t.Errorf("GetAccount(nobody) error = %v, want ErrAccountNotFound", err)
	}
}

func TestApplyCreditAndDebit(t *testing.T) {
	s := New()
	ctx := context.Background()
	newAccount(t, s, "user-1")

	credit, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: 1000, Reason: "manual_adjustment"})
	if err != nil {
		t.Fatal(err)
	}
	if credit.Type != txn.TypeCredit || credit.AmountCents != 1000 {
		t.Errorf("credit row = %s/%d, want credit/1000", credit.Type, credit.AmountCents)
	}
	if credit.BalanceAfter != 1000 {
		t.Errorf("BalanceAfter = %d, want 1000", credit.BalanceAfter)
	}

	debit, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: -300, Reason: "spend", ActionType: "reaction"})
	if err != nil {
		t.Fatal(err)
	}
	if debit.Type != txn.TypeDebit || debit.AmountCents != 300 {
		t.Errorf("debit row = %s/%d, want debit/300", debit.Type, debit.AmountCents)
	}
	if debit.BalanceAfter != 700 {
		t.Errorf("BalanceAfter = %d, want 700", debit.BalanceAfter)
	}

	acct, err := s.GetAccount(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if acct.BalanceCents != 700 {
		t.Errorf("BalanceCents = %d, want 700", acct.BalanceCents)
	}
}

func TestApplyInsufficientFunds(t *testing.T) {
	s := New()
	ctx := context.Background()
	newAccount(t, s, "user-1")

	if _, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: 500}); err != nil {
		t.Fatal(err)
	}

	_, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: -600, Reason: "spend"})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("overdraw error = %v, want ErrInsufficientFunds", err)
	}

	// Rejection must leave no trace: balance and log untouched.
	acct, _ := s.GetAccount(ctx, "user-1")
	if acct.BalanceCents != 500 {
		t.Errorf("BalanceCents after rejection = %d, want 500", acct.BalanceCents)
	}
	rows, _ := s.Transactions(ctx, "user-1", 10)
	if len(rows) != 1 {
		t.Errorf("log has %d rows after rejection, want 1", len(rows))
	}
}

func TestResetPeriodConditional(t *testing.T) {
	s := New()
	ctx := context.Background()
	acct := newAccount(t, s, "user-1")

	in := store.Reset{
		UserID:            "user-1",
		ExpectedNextReset: acct.NextResetAt,
		NewBalance:        10000,
		LastResetAt:       acct.NextResetAt,
		NextResetAt:       acct.NextResetAt.AddDate(0, 1, 0),
	}

	row, err := s.ResetPeriod(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	if row.Reason != txn.ReasonPeriodReset {
		t.Errorf("Reason = %q, want %q", row.Reason, txn.ReasonPeriodReset)
	}
	if row.BalanceAfter != 10000 {
		t.Errorf("BalanceAfter = %d, want 10000", row.BalanceAfter)
	}

	// Replaying the same reset must conflict: NextResetAt moved on.
	_, err = s.ResetPeriod(ctx, in)
	if !errors.Is(err, wallet.ErrConflict) {
		t.Errorf("replayed reset error = %v, want ErrConflict", err)
	}

	fresh, _ := s.GetAccount(ctx, "user-1")
	if !fresh.NextResetAt.Equal(in.NextResetAt) {
		t.Errorf("NextResetAt = %v, want %v", fresh.NextResetAt, in.NextResetAt)
	}
}

func TestTransactionsOrderAndLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	newAccount(t, s, "user-1")

	for i := int64(1); i <= 5; i++ {
		if _, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: i * 100}); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := s.Transactions(ctx, "user-1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// Newest first: amounts 500, 400, 300.
	for i, want := range []int64{500, 400, 300} {
		if rows[i].AmountCents != want {
			t.Errorf("rows[%d].AmountCents = %d, want %d", i, rows[i].AmountCents, want)
		}
	}
}

func TestDebitsSince(t *testing.T) {
	s := New()
	ctx := context.Background()
	newAccount(t, s, "user-1")

	cutoff := time.Now().UTC().Add(-time.Minute)

	if _, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: 1000}); err != nil {
		t.Fatal(err)
	}
	for _, amount := range []int64{-100, -250} {
		if _, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: amount, Reason: "spend"}); err != nil {
			t.Fatal(err)
		}
	}

	total, err := s.DebitsSince(ctx, "user-1", cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if total != 350 {
		t.Errorf("DebitsSince = %d, want 350", total)
	}

	// Credits never count toward spend.
	future, err := s.DebitsSince(ctx, "user-1", time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if future != 0 {
		t.Errorf("DebitsSince(future) = %d, want 0", future)
	}
}

func TestDebitsSinceExcludesForfeiture(t *testing.T) {
	s := New()
	ctx := context.Background()
	acct := newAccount(t, s, "user-1")

	cutoff := time.Now().UTC().Add(-time.Minute)

	if _, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: 1000}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: -200, Reason: txn.ReasonSpend}); err != nil {
		t.Fatal(err)
	}

	// Reset below the current balance: the store records the 300-cent
	// forfeiture as a debit with reason period_reset.
	row, err := s.ResetPeriod(ctx, store.Reset{
		UserID:            "user-1",
		ExpectedNextReset: acct.NextResetAt,
		NewBalance:        500,
		LastResetAt:       acct.NextResetAt,
		NextResetAt:       acct.NextResetAt.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if row.Type != txn.TypeDebit || row.AmountCents != 300 {
		t.Fatalf("reset row = %s %d, want debit 300", row.Type, row.AmountCents)
	}

	total, err := s.DebitsSince(ctx, "user-1", cutoff)
	if err != nil {
		t.Fatal(err)
	}
	if total != 200 {
		t.Errorf("DebitsSince = %d, want 200 (forfeiture excluded)", total)
	}
}

func TestConcurrentApplyNeverOverdraws(t *testing.T) {
	s := New()
	ctx := context.Background()
	newAccount(t, s, "user-1")

	if _, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: 1000}); err != nil {
		t.Fatal(err)
	}

	// 50 goroutines each try to spend 100; only 10 can succeed.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Apply(ctx, store.Apply{UserID: "user-1", Delta: -100, Reason: "spend"}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("%d spends succeeded, want 10", succeeded)
	}

	acct, _ := s.GetAccount(ctx, "user-1")
	if acct.BalanceCents != 0 {
		t.Errorf("final balance = %d, want 0", acct.BalanceCents)
	}
}

func TestClonesDoNotShareState(t *testing.T) {
	s := New()
	ctx := context.Background()
	acct := newAccount(t, s, "user-1")

	acct.BalanceCents = 999999 // mutate the caller's copy

	fresh, _ := s.GetAccount(ctx, "user-1")
	if fresh.BalanceCents != 0 {
		t.Errorf("store state mutated through returned copy: balance = %d", fresh.BalanceCents)
	}
}
