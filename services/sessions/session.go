package sessions

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a study session.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusDeleted   Status = "DELETED"
	StatusTrash     Status = "TRASH"
)

// Terminal reports whether s is an override that time-based recomputation
// must never replace.
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusDeleted, StatusTrash:
		return true
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusActive, StatusCompleted, StatusCancelled, StatusDeleted, StatusTrash:
		return true
	default:
		return false
	}
}

// Session is a scheduled study session hosted by a single user.
type Session struct {
	ID                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	HostID              uuid.UUID  `json:"host_id"`
	StartTime           *time.Time `json:"start_time"`
	EndTime             *time.Time `json:"end_time"`
	Status              Status     `json:"status"`
	MaxParticipants     int        `json:"max_participants"`
	CurrentParticipants int        `json:"current_participants"`
	Tags                []string   `json:"tags"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Resolve computes the status a session displays at now. Terminal overrides
// are returned unchanged; otherwise the status follows the session interval.
func Resolve(s Session, now time.Time) Status {
	if s.Status.Terminal() {
		return s.Status
	}
	if s.StartTime == nil || s.EndTime == nil {
		return StatusScheduled
	}
	switch {
	case now.Before(*s.StartTime):
		return StatusScheduled
	case now.Before(*s.EndTime):
		return StatusActive
	default:
		return StatusCompleted
	}
}

// View returns a copy of s carrying its displayed status at now.
func View(s Session, now time.Time) Session {
	s.Status = Resolve(s, now)
	return s
}
