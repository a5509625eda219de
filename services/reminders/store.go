package reminders

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists reminders. Missing records are reported with
// apperr.NotFoundError.
type Store interface {
	Create(ctx context.Context, r *Reminder) error
	Get(ctx context.Context, id uuid.UUID) (Reminder, error)
	// Rearm replaces the editable fields and resets the sent state.
	Rearm(ctx context.Context, r Reminder, now time.Time) (Reminder, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByUser returns the user's reminders by scheduled time; pendingOnly
	// keeps the unsent ones.
	ListByUser(ctx context.Context, userID uuid.UUID, pendingOnly bool) ([]Reminder, error)
	CountPending(ctx context.Context, userID uuid.UUID) (int, error)
	SetRead(ctx context.Context, id uuid.UUID, read bool) error
	// ListDue returns at most limit unsent reminders scheduled at or before now,
	// oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error)
	// Claim flips sent from false to true and stamps sentAt in one
	// conditional write that also requires the reminder to still be due at
	// now. It returns the claimed row as written, or false when another
	// caller won or the reminder was re-armed into the future.
	Claim(ctx context.Context, id uuid.UUID, now time.Time) (Reminder, bool, error)
	// PurgeSession deletes every reminder attached to the session.
	PurgeSession(ctx context.Context, sessionID uuid.UUID) (int, error)
}
