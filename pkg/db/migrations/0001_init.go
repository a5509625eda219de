package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	Email     string    `gorm:"type:text;uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

type Session struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Title               string                      `gorm:"type:text;not null"`
	Description         string                      `gorm:"type:text"`
	HostID              uuid.UUID                   `gorm:"type:uuid;not null;index"`
	StartTime           *time.Time                  `gorm:"type:timestamptz"`
	EndTime             *time.Time                  `gorm:"type:timestamptz"`
	Status              string                      `gorm:"type:text;not null;default:'SCHEDULED';index"`
	MaxParticipants     int                         `gorm:"not null;default:0"`
	CurrentParticipants int                         `gorm:"not null;default:0"`
	Tags                datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt           time.Time                   `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt           time.Time                   `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Host                User                        `gorm:"foreignKey:HostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type SessionParticipant struct {
	SessionID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	JoinedAt  time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	Session   Session   `gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	User      User      `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Reminder struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	SessionID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Header      string     `gorm:"type:text;not null"`
	Message     string     `gorm:"type:text;not null"`
	ScheduledAt time.Time  `gorm:"type:timestamptz;not null"`
	Sent        bool       `gorm:"not null;default:false"`
	SentAt      *time.Time `gorm:"type:timestamptz"`
	Read        bool       `gorm:"not null;default:false"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	Session     Session    `gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_notifications_recipient_event,priority:1"`
	SessionID   *uuid.UUID `gorm:"type:uuid;index"`
	Type        string     `gorm:"type:text;not null"`
	Title       string     `gorm:"type:text;not null;default:''"`
	Message     string     `gorm:"type:text;not null"`
	Read        bool       `gorm:"not null;default:false"`
	ScheduledAt *time.Time `gorm:"type:timestamptz"`
	EventKey    string     `gorm:"type:text;not null;uniqueIndex:idx_notifications_recipient_event,priority:2"`
	CreatedAt   time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

type DispatchFailure struct {
	ID         int64             `gorm:"type:bigserial;primaryKey"`
	ReminderID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Reason     string            `gorm:"type:text;not null"`
	Details    datatypes.JSONMap `gorm:"type:jsonb"`
	At         time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

func openTx(tx *sql.Tx) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).AutoMigrate(
		&User{},
		&Session{},
		&SessionParticipant{},
		&Reminder{},
		&Notification{},
		&DispatchFailure{},
	)
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&DispatchFailure{},
		&Notification{},
		&Reminder{},
		&SessionParticipant{},
		&Session{},
		&User{},
	)
}
