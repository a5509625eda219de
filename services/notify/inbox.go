package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"studyhub/pkg/apperr"
)

// Inbox exposes a recipient's notifications.
type Inbox struct {
	store Store
}

// NewInbox binds an Inbox to the store.
func NewInbox(store Store) (*Inbox, error) {
	if store == nil {
		return nil, errors.New("notification store is required")
	}
	return &Inbox{store: store}, nil
}

// ListAll returns every notification of the user, newest first.
func (i *Inbox) ListAll(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	return i.store.List(ctx, userID, false)
}

// ListUnread returns the user's unread notifications, newest first.
func (i *Inbox) ListUnread(ctx context.Context, userID uuid.UUID) ([]Notification, error) {
	return i.store.List(ctx, userID, true)
}

func (i *Inbox) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return i.store.CountUnread(ctx, userID)
}

func (i *Inbox) MarkRead(ctx context.Context, id, userID uuid.UUID) (Notification, error) {
	return i.setRead(ctx, id, userID, true)
}

func (i *Inbox) MarkUnread(ctx context.Context, id, userID uuid.UUID) (Notification, error) {
	return i.setRead(ctx, id, userID, false)
}

// MarkAllRead flips every unread notification of the user and returns how
// many changed.
func (i *Inbox) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return i.store.MarkAllRead(ctx, userID)
}

func (i *Inbox) setRead(ctx context.Context, id, userID uuid.UUID, read bool) (Notification, error) {
	n, err := i.store.Get(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.RecipientID != userID {
		return Notification{}, apperr.Forbidden(userID, "modify notification "+id.String())
	}
	if n.Read == read {
		return n, nil
	}
	if err := i.store.SetRead(ctx, id, read); err != nil {
		return Notification{}, err
	}
	n.Read = read
	return n, nil
}
