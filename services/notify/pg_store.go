package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub/pkg/apperr"
	"studyhub/pkg/db"
)

// PgStore stores notifications in PostgreSQL through a pgx pool.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore binds a store to the provided pool.
func NewPgStore(pool *pgxpool.Pool) (*PgStore, error) {
	if pool == nil {
		return nil, errors.New("database pool is required")
	}
	return &PgStore{pool: pool}, nil
}

const notificationColumns = `id, recipient_id, session_id, type, title, message, read, created_at, scheduled_at, event_key`

func (s *PgStore) Create(ctx context.Context, n Notification) (bool, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	tag, err := db.Exec(ctx, s.pool, `
INSERT INTO notifications (`+notificationColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (recipient_id, event_key) DO NOTHING
`, n.ID, n.RecipientID, n.SessionID, string(n.Type), n.Title, n.Message, n.Read, n.CreatedAt, n.ScheduledAt, n.EventKey)
	if err != nil {
		return false, fmt.Errorf("insert notification for %s: %w", n.RecipientID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (Notification, error) {
	var n Notification
	err := db.Get(ctx, s.pool, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	if err != nil {
		if db.IsNoRows(err) {
			return Notification{}, apperr.NotFound("notification", id)
		}
		return Notification{}, fmt.Errorf("get notification %s: %w", id, err)
	}
	return n, nil
}

func (s *PgStore) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND read = false`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	out := []Notification{}
	if err := db.Select(ctx, s.pool, &out, query, recipientID); err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", recipientID, err)
	}
	return out, nil
}

func (s *PgStore) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	err := db.Get(ctx, s.pool, &count, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = false`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("count unread for %s: %w", recipientID, err)
	}
	return count, nil
}

func (s *PgStore) SetRead(ctx context.Context, id uuid.UUID, read bool) error {
	tag, err := db.Exec(ctx, s.pool, `UPDATE notifications SET read = $2 WHERE id = $1`, id, read)
	if err != nil {
		return fmt.Errorf("set read on notification %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification", id)
	}
	return nil
}

func (s *PgStore) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	tag, err := db.Exec(ctx, s.pool, `UPDATE notifications SET read = true WHERE recipient_id = $1 AND read = false`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all read for %s: %w", recipientID, err)
	}
	return int(tag.RowsAffected()), nil
}
