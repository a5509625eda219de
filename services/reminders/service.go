package reminders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studyhub/pkg/apperr"
	"studyhub/pkg/clock"
	"studyhub/services/directory"
)

// NewReminder is the input of CreateReminder.
type NewReminder struct {
	UserID      uuid.UUID `json:"user_id"`
	SessionID   uuid.UUID `json:"session_id"`
	Header      string    `json:"header"`
	Message     string    `json:"message"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// Service implements the reminder operations exposed to clients. Mutations
// are restricted to the reminder's owner.
type Service struct {
	store Store
	dir   directory.Directory
	clock clock.Clock
	log   zerolog.Logger
}

// NewService wires a Service.
func NewService(store Store, dir directory.Directory, clk clock.Clock, log zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("reminder store is required")
	}
	if dir == nil {
		return nil, errors.New("directory is required")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Service{store: store, dir: dir, clock: clk, log: log}, nil
}

// CreateReminder schedules a reminder for a future time.
func (s *Service) CreateReminder(ctx context.Context, in NewReminder) (Reminder, error) {
	now := s.clock.Now()
	r := Reminder{
		UserID:      in.UserID,
		SessionID:   in.SessionID,
		Header:      strings.TrimSpace(in.Header),
		Message:     in.Message,
		ScheduledAt: in.ScheduledAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validate(r, now); err != nil {
		return Reminder{}, err
	}
	if _, err := s.dir.GetUser(ctx, r.UserID); err != nil {
		return Reminder{}, err
	}
	if _, err := s.dir.GetSession(ctx, r.SessionID); err != nil {
		return Reminder{}, err
	}

	if err := s.store.Create(ctx, &r); err != nil {
		return Reminder{}, err
	}
	s.log.Debug().Str("reminder_id", r.ID.String()).Time("scheduled_at", r.ScheduledAt).Msg("reminder created")
	return r, nil
}

// UpdateReminderTime moves the reminder and resets its sent state.
func (s *Service) UpdateReminderTime(ctx context.Context, id, callerID uuid.UUID, at time.Time) (Reminder, error) {
	return s.UpdateReminder(ctx, id, callerID, Edit{ScheduledAt: &at})
}

// UpdateReminder applies edit and resets the sent state so the reminder
// fires again at its (possibly unchanged) scheduled time. The resulting time
// must be in the future: editing only the text of a reminder whose time has
// passed, including one that already fired, needs a new ScheduledAt.
func (s *Service) UpdateReminder(ctx context.Context, id, callerID uuid.UUID, edit Edit) (Reminder, error) {
	cur, err := s.owned(ctx, id, callerID, "update")
	if err != nil {
		return Reminder{}, err
	}
	next := edit.apply(cur)
	next.Header = strings.TrimSpace(next.Header)

	now := s.clock.Now()
	if edit.ScheduledAt == nil && !next.ScheduledAt.After(now) {
		return Reminder{}, apperr.Invalid("scheduled_at", "a new time is required to re-arm a reminder whose time has passed")
	}
	if err := validate(next, now); err != nil {
		return Reminder{}, err
	}
	return s.store.Rearm(ctx, next, now)
}

// DeleteReminder removes the reminder.
func (s *Service) DeleteReminder(ctx context.Context, id, callerID uuid.UUID) error {
	if _, err := s.owned(ctx, id, callerID, "delete"); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

// ListReminders returns every reminder of the user, by scheduled time.
func (s *Service) ListReminders(ctx context.Context, userID uuid.UUID) ([]Reminder, error) {
	return s.store.ListByUser(ctx, userID, false)
}

// ListPendingReminders returns the user's reminders that have not fired yet.
func (s *Service) ListPendingReminders(ctx context.Context, userID uuid.UUID) ([]Reminder, error) {
	return s.store.ListByUser(ctx, userID, true)
}

func (s *Service) CountPending(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.CountPending(ctx, userID)
}

// MarkReminderRead sets the read flag; it does not affect dispatch.
func (s *Service) MarkReminderRead(ctx context.Context, id, callerID uuid.UUID) (Reminder, error) {
	r, err := s.owned(ctx, id, callerID, "mark read")
	if err != nil {
		return Reminder{}, err
	}
	if r.Read {
		return r, nil
	}
	if err := s.store.SetRead(ctx, id, true); err != nil {
		return Reminder{}, err
	}
	r.Read = true
	return r, nil
}

// PurgeSession deletes the reminders of a removed session.
func (s *Service) PurgeSession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return s.store.PurgeSession(ctx, sessionID)
}

func (s *Service) owned(ctx context.Context, id, callerID uuid.UUID, action string) (Reminder, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return Reminder{}, err
	}
	if r.UserID != callerID {
		return Reminder{}, apperr.Forbidden(callerID, fmt.Sprintf("%s reminder %s", action, id))
	}
	return r, nil
}

func validate(r Reminder, now time.Time) error {
	switch {
	case r.UserID == uuid.Nil:
		return apperr.Invalid("user_id", "is required")
	case r.SessionID == uuid.Nil:
		return apperr.Invalid("session_id", "is required")
	case r.Header == "":
		return apperr.Invalid("header", "must not be blank")
	case r.ScheduledAt.IsZero():
		return apperr.Invalid("scheduled_at", "is required")
	case !r.ScheduledAt.After(now):
		return apperr.Invalid("scheduled_at", "must be in the future")
	}
	return nil
}
