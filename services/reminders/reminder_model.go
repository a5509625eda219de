package reminders

import (
	"time"

	"github.com/google/uuid"
)

type reminderModel struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	SessionID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Header      string     `gorm:"type:text;not null"`
	Message     string     `gorm:"type:text;not null"`
	ScheduledAt time.Time  `gorm:"type:timestamptz;not null"`
	Sent        bool       `gorm:"not null;default:false"`
	SentAt      *time.Time `gorm:"type:timestamptz"`
	Read        bool       `gorm:"not null;default:false"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;not null;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"type:timestamptz;not null;autoUpdateTime"`
}

func (reminderModel) TableName() string { return "reminders" }

func (m reminderModel) toDomain() Reminder {
	return Reminder{
		ID:          m.ID,
		UserID:      m.UserID,
		SessionID:   m.SessionID,
		Header:      m.Header,
		Message:     m.Message,
		ScheduledAt: m.ScheduledAt,
		Sent:        m.Sent,
		SentAt:      m.SentAt,
		Read:        m.Read,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func fromDomain(r Reminder) reminderModel {
	return reminderModel{
		ID:          r.ID,
		UserID:      r.UserID,
		SessionID:   r.SessionID,
		Header:      r.Header,
		Message:     r.Message,
		ScheduledAt: r.ScheduledAt,
		Sent:        r.Sent,
		SentAt:      r.SentAt,
		Read:        r.Read,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
