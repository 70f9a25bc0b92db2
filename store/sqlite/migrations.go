package sqlite

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// One account per user; the primary key on user_id is the
		// uniqueness constraint that makes concurrent first-access
		// converge on a single record.
		`CREATE TABLE IF NOT EXISTS wallet_accounts (
			id            TEXT NOT NULL,
			user_id       TEXT PRIMARY KEY,
			plan          TEXT NOT NULL DEFAULT 'free',
			balance_cents INTEGER NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
			last_reset_at TEXT NOT NULL,
			next_reset_at TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,

		// Append-only transaction log. Rows are never updated or deleted.
		`CREATE TABLE IF NOT EXISTS wallet_transactions (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			type          TEXT NOT NULL,
			amount_cents  INTEGER NOT NULL CHECK (amount_cents >= 0),
			balance_after INTEGER NOT NULL,
			reason        TEXT NOT NULL,
			action_type   TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_txns_user_created
			ON wallet_transactions(user_id, created_at DESC)`,
	}
}
