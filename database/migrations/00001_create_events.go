package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateEvents, downCreateEvents)
}

func upCreateEvents(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id             UUID PRIMARY KEY,
			title          VARCHAR(255)  NOT NULL,
			description    VARCHAR(1000),
			start_at       TIMESTAMPTZ   NOT NULL,
			end_at         TIMESTAMPTZ,
			location       VARCHAR(255),
			all_day        BOOLEAN       NOT NULL DEFAULT FALSE,
			draggable      BOOLEAN       NOT NULL DEFAULT FALSE,
			color          VARCHAR(50),
			category       VARCHAR(50),
			organizer      VARCHAR(255),
			contact_email  VARCHAR(255),
			images         JSONB         NOT NULL DEFAULT '[]',
			thumbnail      VARCHAR(255),
			attendees      INTEGER       NOT NULL DEFAULT 0,
			max_attendees  INTEGER       NOT NULL DEFAULT 0,
			is_public      BOOLEAN       NOT NULL DEFAULT FALSE,
			tags           TEXT[]        NOT NULL DEFAULT '{}',
			created_at     TIMESTAMPTZ   NOT NULL,
			updated_at     TIMESTAMPTZ   NOT NULL,
			owner_user_id  UUID          NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_owner_user_id ON events (owner_user_id);
		CREATE INDEX IF NOT EXISTS idx_events_category ON events (LOWER(category));
		CREATE INDEX IF NOT EXISTS idx_events_start_at ON events (start_at);
		CREATE INDEX IF NOT EXISTS idx_events_is_public ON events (is_public);
		CREATE INDEX IF NOT EXISTS idx_events_tags ON events USING GIN (tags);
	`)
	return err
}

func downCreateEvents(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS events;`)
	return err
}
