package sessions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type sessionModel struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Title               string                      `gorm:"type:text;not null"`
	Description         string                      `gorm:"type:text"`
	HostID              uuid.UUID                   `gorm:"type:uuid;not null;index"`
	StartTime           *time.Time                  `gorm:"type:timestamptz"`
	EndTime             *time.Time                  `gorm:"type:timestamptz"`
	Status              string                      `gorm:"type:text;not null;index"`
	MaxParticipants     int                         `gorm:"not null;default:0"`
	CurrentParticipants int                         `gorm:"not null;default:0"`
	Tags                datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt           time.Time                   `gorm:"type:timestamptz;not null;autoCreateTime"`
	UpdatedAt           time.Time                   `gorm:"type:timestamptz;not null;autoUpdateTime"`
}

func (sessionModel) TableName() string { return "sessions" }

func (m sessionModel) toDomain() Session {
	tags := []string(m.Tags)
	if tags == nil {
		tags = []string{}
	}
	return Session{
		ID:                  m.ID,
		Title:               m.Title,
		Description:         m.Description,
		HostID:              m.HostID,
		StartTime:           m.StartTime,
		EndTime:             m.EndTime,
		Status:              Status(m.Status),
		MaxParticipants:     m.MaxParticipants,
		CurrentParticipants: m.CurrentParticipants,
		Tags:                tags,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func fromDomain(s Session) sessionModel {
	return sessionModel{
		ID:                  s.ID,
		Title:               s.Title,
		Description:         s.Description,
		HostID:              s.HostID,
		StartTime:           s.StartTime,
		EndTime:             s.EndTime,
		Status:              string(s.Status),
		MaxParticipants:     s.MaxParticipants,
		CurrentParticipants: s.CurrentParticipants,
		Tags:                datatypes.JSONSlice[string](s.Tags),
		CreatedAt:           s.CreatedAt,
		UpdatedAt:           s.UpdatedAt,
	}
}

var terminalStatuses = []string{
	string(StatusCancelled),
	string(StatusDeleted),
	string(StatusTrash),
}
