package postgres

// Migrations returns the schema migration statements, applied in order.
// All statements are idempotent so Migrate can run at every startup.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS wallet_accounts (
    id            TEXT NOT NULL,
    user_id       TEXT PRIMARY KEY,
    plan          TEXT NOT NULL DEFAULT 'free',
    balance_cents BIGINT NOT NULL DEFAULT 0 CHECK (balance_cents >= 0),
    last_reset_at TIMESTAMPTZ NOT NULL,
    next_reset_at TIMESTAMPTZ NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,

		`CREATE TABLE IF NOT EXISTS wallet_transactions (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    type          TEXT NOT NULL,
    amount_cents  BIGINT NOT NULL CHECK (amount_cents >= 0),
    balance_after BIGINT NOT NULL,
    reason        TEXT NOT NULL,
    action_type   TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,

		`CREATE INDEX IF NOT EXISTS idx_wallet_txns_user_created
    ON wallet_transactions (user_id, created_at DESC)`,
	}
}
