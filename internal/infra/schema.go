package infra

// wallets.transactions is json rather than jsonb so client supplied lists are
// returned exactly as written. Every wallet belongs to a registered user.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        username      TEXT PRIMARY KEY,
        credential_id TEXT NOT NULL,
        public_key    TEXT NOT NULL DEFAULT '',
        registered_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE TABLE IF NOT EXISTS wallets (
        username     TEXT PRIMARY KEY REFERENCES users (username) ON DELETE CASCADE,
        balance      BIGINT NOT NULL CHECK (balance >= 0),
        address      TEXT NOT NULL,
        transactions JSON NOT NULL DEFAULT '[]',
        created_at   TIMESTAMPTZ NOT NULL,
        updated_at   TIMESTAMPTZ NOT NULL
    )`,
	`DO $$ BEGIN
        IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'wallets_username_fkey') THEN
            ALTER TABLE wallets ADD CONSTRAINT wallets_username_fkey
                FOREIGN KEY (username) REFERENCES users (username) ON DELETE CASCADE;
        END IF;
    END $$`,
	`CREATE TABLE IF NOT EXISTS transactions (
        id         UUID PRIMARY KEY,
        sender     TEXT NOT NULL,
        receiver   TEXT NOT NULL,
        amount     BIGINT NOT NULL CHECK (amount > 0),
        created_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS transactions_sender_idx ON transactions (sender, created_at)`,
	`CREATE INDEX IF NOT EXISTS transactions_receiver_idx ON transactions (receiver, created_at)`,
}
