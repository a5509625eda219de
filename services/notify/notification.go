package notify

import (
	"time"

	"github.com/google/uuid"
)

// Type classifies the event a notification reports.
type Type string

const (
	TypeJoinConfirmation  Type = "JOIN_CONFIRMATION"
	TypeParticipantJoined Type = "PARTICIPANT_JOINED"
	TypeSessionUpdated    Type = "SESSION_UPDATED"
	TypeSessionCanceled   Type = "SESSION_CANCELED"
	TypeCommentReply      Type = "COMMENT_REPLY"
	TypeCommentOnSession  Type = "COMMENT_ON_SESSION"
	TypeNotesUploaded     Type = "NOTES_UPLOADED"
	TypeReminderDue       Type = "REMINDER_DUE"
)

// Notification is one entry of a recipient's inbox.
type Notification struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	RecipientID uuid.UUID  `json:"recipient_id" db:"recipient_id"`
	SessionID   *uuid.UUID `json:"session_id,omitempty" db:"session_id"`
	Type        Type       `json:"type" db:"type"`
	Title       string     `json:"title" db:"title"`
	Message     string     `json:"message" db:"message"`
	Read        bool       `json:"read" db:"read"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	// ScheduledAt is set only on reminder-origin notifications.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	// EventKey names the triggering event; (RecipientID, EventKey) is unique.
	EventKey string `json:"-" db:"event_key"`
}

// Scheduled reports whether n originated from a scheduled reminder.
func (n Notification) Scheduled() bool { return n.ScheduledAt != nil }
