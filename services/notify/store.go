package notify

import (
	"context"

	"github.com/google/uuid"
)

// Store persists notifications per recipient.
type Store interface {
	// Create inserts n unless a notification with the same recipient and
	// event key exists; created is false in that case.
	Create(ctx context.Context, n Notification) (created bool, err error)
	Get(ctx context.Context, id uuid.UUID) (Notification, error)
	// List returns the recipient's notifications newest first.
	List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
	SetRead(ctx context.Context, id uuid.UUID, read bool) error
	// MarkAllRead flips every unread notification of the recipient and
	// returns how many changed.
	MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error)
}
