package reminders

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is a user-owned, one-shot alert about a session. Sent flips to
// true exactly once per arming; editing the schedule or text re-arms it.
type Reminder struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	SessionID   uuid.UUID  `json:"session_id"`
	Header      string     `json:"header"`
	Message     string     `json:"message"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Sent        bool       `json:"sent"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	Read        bool       `json:"read"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Due reports whether the reminder should be dispatched at now.
func (r Reminder) Due(now time.Time) bool {
	return !r.Sent && !r.ScheduledAt.After(now)
}

// Edit carries the fields a reminder owner may change. Nil fields are kept.
type Edit struct {
	Header      *string    `json:"header,omitempty"`
	Message     *string    `json:"message,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

func (e Edit) apply(r Reminder) Reminder {
	if e.Header != nil {
		r.Header = *e.Header
	}
	if e.Message != nil {
		r.Message = *e.Message
	}
	if e.ScheduledAt != nil {
		r.ScheduledAt = e.ScheduledAt.UTC()
	}
	return r
}
