package store

import (
	"context"

	"github.com/pkg/errors"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS transaction (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	date DATE NOT NULL,
	amount_cents BIGINT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	merchant_id TEXT NOT NULL DEFAULT '',
	merchant_name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transaction_user_date ON transaction (user_id, date DESC);

CREATE TABLE IF NOT EXISTS transaction_embedding (
	transaction_id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	period_key TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	amount_cents BIGINT NOT NULL,
	merchant_id TEXT NOT NULL DEFAULT '',
	merchant_name TEXT NOT NULL DEFAULT '',
	embedding vector,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transaction_embedding_user ON transaction_embedding (user_id, period_key);

CREATE TABLE IF NOT EXISTS audit_log (
	id SERIAL PRIMARY KEY,
	endpoint TEXT NOT NULL,
	user_id INTEGER NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	trace_id TEXT NOT NULL DEFAULT '',
	row_count INTEGER NOT NULL DEFAULT 0,
	token_estimate INTEGER NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL
);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS "transaction" (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	date TEXT NOT NULL,
	amount_cents INTEGER NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	merchant_id TEXT NOT NULL DEFAULT '',
	merchant_name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	created_ts INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transaction_user_date ON "transaction" (user_id, date DESC);

CREATE TABLE IF NOT EXISTS audit_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint TEXT NOT NULL,
	user_id INTEGER NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	trace_id TEXT NOT NULL DEFAULT '',
	row_count INTEGER NOT NULL DEFAULT 0,
	token_estimate INTEGER NOT NULL DEFAULT 0,
	created_ts INTEGER NOT NULL
);
`

// Migrate applies the schema for the configured driver. Statements are
// idempotent so Migrate is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	var schema string
	switch s.profile.Driver {
	case "postgres":
		schema = postgresSchema
	case "sqlite":
		schema = sqliteSchema
	default:
		return errors.Errorf("unknown driver %q", s.profile.Driver)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
