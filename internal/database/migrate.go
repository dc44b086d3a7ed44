package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The unique index on email is what makes signup's insert atomic:
// concurrent duplicate signups surface as a unique-violation instead
// of both passing a read-then-write existence check.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            text PRIMARY KEY,
    name          text NOT NULL,
    email         text NOT NULL,
    password_hash bytea NOT NULL,
    created_at    timestamptz NOT NULL DEFAULT NOW(),
    updated_at    timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_unique ON users (email);

CREATE TABLE IF NOT EXISTS login_audit (
    id         text PRIMARY KEY,
    user_id    text,
    email      text NOT NULL,
    event      text NOT NULL,
    success    boolean NOT NULL,
    ip_address text NOT NULL DEFAULT '',
    user_agent text NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS login_audit_user_id_idx ON login_audit (user_id);
CREATE INDEX IF NOT EXISTS login_audit_created_at_idx ON login_audit (created_at);
`

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("run migration: %w", err)
	}
	return nil
}
