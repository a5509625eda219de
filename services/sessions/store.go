package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists sessions. Status writes are conditional so that a stored
// terminal override is never replaced.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id uuid.UUID) (Session, error)
	// SetOverride writes a terminal status. It returns apperr.ErrConflict
	// when the session already carries one.
	SetOverride(ctx context.Context, id uuid.UUID, status Status, at time.Time) error
	// Advance persists the time-derived status of every non-terminal
	// session at now and returns the number of rows changed.
	Advance(ctx context.Context, now time.Time) (int, error)
}
