package directory

import (
	"time"

	"github.com/google/uuid"
)

type userModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	Email     string    `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime"`
}

func (userModel) TableName() string { return "users" }

func (m userModel) toDomain() User {
	return User{ID: m.ID, Name: m.Name, Email: m.Email}
}

type participantModel struct {
	SessionID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	JoinedAt  time.Time `gorm:"type:timestamptz;not null;autoCreateTime"`
}

func (participantModel) TableName() string { return "session_participants" }
