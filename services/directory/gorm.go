package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studyhub/pkg/apperr"
	"studyhub/services/sessions"
)

// GormDirectory reads users and participants from PostgreSQL and delegates
// session lookups to a session store.
type GormDirectory struct {
	orm      *gorm.DB
	sessions sessions.Store
}

// NewGormDirectory binds a directory to the ORM handle and session store.
func NewGormDirectory(orm *gorm.DB, store sessions.Store) (*GormDirectory, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	if store == nil {
		return nil, errors.New("session store is required")
	}
	return &GormDirectory{orm: orm, sessions: store}, nil
}

func (d *GormDirectory) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	var model userModel
	if err := d.orm.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, apperr.NotFound("user", id)
		}
		return User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return model.toDomain(), nil
}

func (d *GormDirectory) GetSession(ctx context.Context, id uuid.UUID) (sessions.Session, error) {
	return d.sessions.Get(ctx, id)
}

func (d *GormDirectory) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]User, error) {
	var models []userModel
	err := d.orm.WithContext(ctx).
		Joins("JOIN session_participants sp ON sp.user_id = users.id").
		Where("sp.session_id = ?", sessionID).
		Order("sp.joined_at").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list participants of %s: %w", sessionID, err)
	}
	users := make([]User, 0, len(models))
	for _, m := range models {
		users = append(users, m.toDomain())
	}
	return users, nil
}

// UpsertUser stores a user record; used by seeding and the CLI.
func (d *GormDirectory) UpsertUser(ctx context.Context, u User) error {
	model := userModel{ID: u.ID, Name: u.Name, Email: u.Email}
	return d.orm.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&model).Error
}

// AddParticipant records that userID joined sessionID.
func (d *GormDirectory) AddParticipant(ctx context.Context, sessionID, userID uuid.UUID) error {
	model := participantModel{SessionID: sessionID, UserID: userID}
	return d.orm.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model).Error
}
