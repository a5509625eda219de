// Package directory exposes the read side of the surrounding CRUD layer
// that the reminder engine depends on: users, sessions and participants.
package directory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"studyhub/services/sessions"
)

// User is the subset of an account the engine needs to address notifications.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Participant records a user's membership of a session.
type Participant struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Directory resolves users, sessions and participant sets. Lookups of
// missing records return an apperr.NotFoundError.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (User, error)
	GetSession(ctx context.Context, id uuid.UUID) (sessions.Session, error)
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]User, error)
}
