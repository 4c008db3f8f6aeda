package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateUserSubscriptions, downCreateUserSubscriptions)
}

// No foreign key to events: deleting an event keeps its memberships.
func upCreateUserSubscriptions(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_subscriptions (
			user_id        UUID        NOT NULL,
			event_id       UUID        NOT NULL,
			subscribed_at  TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, event_id)
		);
		CREATE INDEX IF NOT EXISTS idx_user_subscriptions_event_id ON user_subscriptions (event_id);
	`)
	return err
}

func downCreateUserSubscriptions(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS user_subscriptions;`)
	return err
}
