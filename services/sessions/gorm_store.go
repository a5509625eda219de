package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"studyhub/pkg/apperr"
)

// GormStore is the PostgreSQL backed session store.
type GormStore struct {
	orm *gorm.DB
}

// NewGormStore binds a store to the provided ORM handle.
func NewGormStore(orm *gorm.DB) (*GormStore, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	return &GormStore{orm: orm}, nil
}

func (s *GormStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.Status == "" {
		sess.Status = StatusScheduled
	}
	model := fromDomain(*sess)
	if err := s.orm.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	*sess = model.toDomain()
	return nil
}

func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	var model sessionModel
	err := s.orm.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Session{}, apperr.NotFound("session", id)
		}
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return model.toDomain(), nil
}

func (s *GormStore) SetOverride(ctx context.Context, id uuid.UUID, status Status, at time.Time) error {
	if !status.Terminal() {
		return apperr.Invalid("status", "must be a terminal override")
	}
	res := s.orm.WithContext(ctx).
		Model(&sessionModel{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses).
		Updates(map[string]any{"status": string(status), "updated_at": at})
	if res.Error != nil {
		return fmt.Errorf("override session %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("session %s already terminal: %w", id, apperr.ErrConflict)
}

func (s *GormStore) Advance(ctx context.Context, now time.Time) (int, error) {
	var changed int64
	err := s.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		completed := tx.Model(&sessionModel{}).
			Where("status IN ? AND start_time IS NOT NULL AND end_time IS NOT NULL AND end_time <= ?",
				[]string{string(StatusScheduled), string(StatusActive)}, now).
			Updates(map[string]any{"status": string(StatusCompleted), "updated_at": now})
		if completed.Error != nil {
			return completed.Error
		}
		active := tx.Model(&sessionModel{}).
			Where("status = ? AND start_time IS NOT NULL AND end_time IS NOT NULL AND start_time <= ? AND end_time > ?",
				string(StatusScheduled), now, now).
			Updates(map[string]any{"status": string(StatusActive), "updated_at": now})
		if active.Error != nil {
			return active.Error
		}
		changed = completed.RowsAffected + active.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("advance session statuses: %w", err)
	}
	return int(changed), nil
}
