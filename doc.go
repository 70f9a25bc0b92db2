// Package wallet provides an embeddable credit wallet ledger for Go applications.
//
// Wallet is designed as a library, not a service. Import it directly into your
// Go application and give it a store. It provides:
//
//   - Per-user credit balances in integer cents, never negative
//   - Atomic spend authorization: debit in full or reject, no partial spends
//   - Recurring billing-period resets with forfeiture (no rollover)
//   - An append-only transaction log with balance snapshots
//   - A static plan catalog with per-post action limits
//   - Pluggable storage (memory, SQLite, Postgres, MongoDB)
//   - Typed hooks for observability and auditing
//
// # Quick Start
//
// Create a wallet instance with your preferred store:
//
//	import (
//	    "github.com/reachly/wallet"
//	    "github.com/reachly/wallet/store/sqlite"
//	)
//
//	// Initialize store
//	st, err := sqlite.Open("wallet.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create the engine
//	w := wallet.New(st)
//
//	// Start it (runs migrations, initializes hooks)
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Core Concepts
//
// Accounts are created lazily on first access, on the free plan:
//
//	acct, err := w.GetOrCreate(ctx, userID)
//
// Spends are all-or-nothing:
//
//	entry, err := w.TrySpend(ctx, userID, 250, "reaction")
//	if wallet.IsInsufficientFunds(err) {
//	    // Reject the action; balance unchanged, nothing logged
//	}
//
// Period resets are lazy. No scheduler runs: the first operation after a
// billing-period boundary sets the balance to the plan's allocation and
// records a period_reset row. Unspent credits are forfeited, never
// accumulated.
//
// Plan changes take effect immediately for per-post limits, but the new
// credit allocation applies only at the next period boundary:
//
//	acct, err := w.SetPlan(ctx, userID, "pro")
//
// # Money
//
// All monetary amounts use integer arithmetic in the smallest currency
// unit (cents). The Money type formats with exactly two decimal places
// and parses its own output, so $125.00 round-trips to 12500 cents.
//
// # Concurrency
//
// Every balance mutation is a single conditional write in the store. A
// write that lost a race reports a conflict; the engine retries with
// exponential backoff up to a configurable attempt budget. Locking is
// strictly per user — operations on different users never contend.
//
// # TypeID
//
// Accounts and transactions use TypeID for globally unique, type-safe
// identifiers:
//
//	acct_01h2xcejqtf2nbrexx3vqjhp41  // Account ID
//	txn_01h455vb4pex5vsknk084sn02q   // Transaction ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package wallet
