package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"studyhub/pkg/apperr"
)

// GormStore is the PostgreSQL backed reminder store.
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

func (s *GormStore) Create(ctx context.Context, r *Reminder) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	model := fromDomain(*r)
	if err := s.orm.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	*r = model.toDomain()
	return nil
}

func (s *GormStore) Get(ctx context.Context, id uuid.UUID) (Reminder, error) {
	var model reminderModel
	err := s.orm.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Reminder{}, apperr.NotFound("reminder", id)
		}
		return Reminder{}, fmt.Errorf("get reminder %s: %w", id, err)
	}
	return model.toDomain(), nil
}

func (s *GormStore) Rearm(ctx context.Context, r Reminder, now time.Time) (Reminder, error) {
	res := s.orm.WithContext(ctx).
		Model(&reminderModel{}).
		Where("id = ?", r.ID).
		Updates(map[string]any{
			"header":       r.Header,
			"message":      r.Message,
			"scheduled_at": r.ScheduledAt,
			"sent":         false,
			"sent_at":      nil,
			"updated_at":   now,
		})
	if res.Error != nil {
		return Reminder{}, fmt.Errorf("rearm reminder %s: %w", r.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return Reminder{}, apperr.NotFound("reminder", r.ID)
	}
	return s.Get(ctx, r.ID)
}

func (s *GormStore) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.orm.WithContext(ctx).Delete(&reminderModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete reminder %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("reminder", id)
	}
	return nil
}

func (s *GormStore) ListByUser(ctx context.Context, userID uuid.UUID, pendingOnly bool) ([]Reminder, error) {
	q := s.orm.WithContext(ctx).Where("user_id = ?", userID)
	if pendingOnly {
		q = q.Where("sent = ?", false)
	}
	var models []reminderModel
	if err := q.Order("scheduled_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list reminders for %s: %w", userID, err)
	}
	return toDomainList(models), nil
}

func (s *GormStore) CountPending(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int64
	err := s.orm.WithContext(ctx).
		Model(&reminderModel{}).
		Where("user_id = ? AND sent = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count pending reminders for %s: %w", userID, err)
	}
	return int(count), nil
}

func (s *GormStore) SetRead(ctx context.Context, id uuid.UUID, read bool) error {
	res := s.orm.WithContext(ctx).
		Model(&reminderModel{}).
		Where("id = ?", id).
		Update("read", read)
	if res.Error != nil {
		return fmt.Errorf("set read on reminder %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("reminder", id)
	}
	return nil
}

func (s *GormStore) ListDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	var models []reminderModel
	err := s.orm.WithContext(ctx).
		Where("sent = ? AND scheduled_at <= ?", false, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	return toDomainList(models), nil
}

func (s *GormStore) Claim(ctx context.Context, id uuid.UUID, now time.Time) (Reminder, bool, error) {
	var claimed []reminderModel
	res := s.orm.WithContext(ctx).
		Model(&claimed).
		Clauses(clause.Returning{}).
		Where("id = ? AND sent = ? AND scheduled_at <= ?", id, false, now).
		Updates(map[string]any{"sent": true, "sent_at": now, "updated_at": now})
	if res.Error != nil {
		return Reminder{}, false, fmt.Errorf("claim reminder %s: %w", id, res.Error)
	}
	if res.RowsAffected != 1 || len(claimed) != 1 {
		return Reminder{}, false, nil
	}
	return claimed[0].toDomain(), true, nil
}

func (s *GormStore) PurgeSession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	res := s.orm.WithContext(ctx).Delete(&reminderModel{}, "session_id = ?", sessionID)
	if res.Error != nil {
		return 0, fmt.Errorf("purge reminders of session %s: %w", sessionID, res.Error)
	}
	return int(res.RowsAffected), nil
}

func toDomainList(models []reminderModel) []Reminder {
	out := make([]Reminder, 0, len(models))
	for _, m := range models {
		out = append(out, m.toDomain())
	}
	return out
}
