package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studyhub/pkg/apperr"
	"studyhub/pkg/clock"
)

// ReminderPurger removes the reminders attached to a deleted session.
type ReminderPurger interface {
	PurgeSession(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// Service applies host-issued terminal overrides to sessions.
type Service struct {
	store  Store
	purger ReminderPurger
	clock  clock.Clock
	log    zerolog.Logger
}

// NewService wires a Service. purger may be nil when reminders live elsewhere.
func NewService(store Store, purger ReminderPurger, clk clock.Clock, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{store: store, purger: purger, clock: clk, log: log}, nil
}

// Get returns the session as it should be displayed now.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return View(sess, s.clock.Now()), nil
}

// Cancel marks the session CANCELLED.
func (s *Service) Cancel(ctx context.Context, sessionID, actorID uuid.UUID) (Session, error) {
	return s.override(ctx, sessionID, actorID, StatusCancelled)
}

// Trash moves the session to TRASH.
func (s *Service) Trash(ctx context.Context, sessionID, actorID uuid.UUID) (Session, error) {
	return s.override(ctx, sessionID, actorID, StatusTrash)
}

// Delete marks the session DELETED and purges its reminders. Deleting an
// already DELETED session skips the status write and runs the purge again,
// so a delete whose purge failed can be retried.
func (s *Service) Delete(ctx context.Context, sessionID, actorID uuid.UUID) (Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.Status == StatusDeleted {
		if sess.HostID != actorID {
			return Session{}, apperr.Forbidden(actorID, fmt.Sprintf("set session %s to %s", sessionID, StatusDeleted))
		}
	} else if sess, err = s.override(ctx, sessionID, actorID, StatusDeleted); err != nil {
		return Session{}, err
	}
	if s.purger != nil {
		n, err := s.purger.PurgeSession(ctx, sessionID)
		if err != nil {
			return sess, fmt.Errorf("purge reminders for session %s: %w", sessionID, err)
		}
		s.log.Info().Str("session_id", sessionID.String()).Int("reminders", n).Msg("purged reminders of deleted session")
	}
	return sess, nil
}

func (s *Service) override(ctx context.Context, sessionID, actorID uuid.UUID, status Status) (Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if sess.HostID != actorID {
		return Session{}, apperr.Forbidden(actorID, fmt.Sprintf("set session %s to %s", sessionID, status))
	}
	now := s.clock.Now()
	if err := s.store.SetOverride(ctx, sessionID, status, now); err != nil {
		return Session{}, err
	}
	sess.Status = status
	sess.UpdatedAt = now
	return sess, nil
}
