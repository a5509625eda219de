package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upDueIndex, downDueIndex)
}

// The scanner only ever reads unsent reminders ordered by schedule, and the
// inbox reads a recipient's notifications newest first.
func upDueIndex(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS idx_reminders_due
	ON reminders (scheduled_at)
	WHERE sent = false;
CREATE INDEX IF NOT EXISTS idx_notifications_inbox
	ON notifications (recipient_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_notifications_unread
	ON notifications (recipient_id)
	WHERE read = false;
`)
	return err
}

func downDueIndex(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
DROP INDEX IF EXISTS idx_notifications_unread;
DROP INDEX IF EXISTS idx_notifications_inbox;
DROP INDEX IF EXISTS idx_reminders_due;
`)
	return err
}
