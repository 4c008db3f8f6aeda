package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateAuditLogs, downCreateAuditLogs)
}

func upCreateAuditLogs(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_logs (
			id          BIGSERIAL PRIMARY KEY,
			user_id     UUID,
			event_id    UUID,
			action      VARCHAR(100) NOT NULL,
			details     JSONB,
			ip_address  VARCHAR(45),
			status      VARCHAR(20)  NOT NULL,
			created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_user_id ON audit_logs (user_id);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_event_id ON audit_logs (event_id);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs (action);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_status ON audit_logs (status);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at);
	`)
	return err
}

func downCreateAuditLogs(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS audit_logs;`)
	return err
}
