package reminders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyhub/pkg/apperr"
)

// MemoryStore keeps reminders in process memory. Claim holds the store lock
// across the check and the write, which gives it the same compare-and-set
// semantics as the SQL conditional update.
type MemoryStore struct {
	mu        sync.Mutex
	reminders map[uuid.UUID]Reminder
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reminders: make(map[uuid.UUID]Reminder)}
}

func (m *MemoryStore) Create(_ context.Context, r *Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if _, exists := m.reminders[r.ID]; exists {
		return fmt.Errorf("reminder %s exists: %w", r.ID, apperr.ErrConflict)
	}
	m.reminders[r.ID] = *r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return Reminder{}, apperr.NotFound("reminder", id)
	}
	return r, nil
}

func (m *MemoryStore) Rearm(_ context.Context, r Reminder, now time.Time) (Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.reminders[r.ID]
	if !ok {
		return Reminder{}, apperr.NotFound("reminder", r.ID)
	}
	cur.Header = r.Header
	cur.Message = r.Message
	cur.ScheduledAt = r.ScheduledAt
	cur.Sent = false
	cur.SentAt = nil
	cur.UpdatedAt = now
	m.reminders[r.ID] = cur
	return cur, nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reminders[id]; !ok {
		return apperr.NotFound("reminder", id)
	}
	delete(m.reminders, id)
	return nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID uuid.UUID, pendingOnly bool) ([]Reminder, error) {
	return m.filter(func(r Reminder) bool {
		return r.UserID == userID && (!pendingOnly || !r.Sent)
	}, 0), nil
}

func (m *MemoryStore) CountPending(ctx context.Context, userID uuid.UUID) (int, error) {
	pending, _ := m.ListByUser(ctx, userID, true)
	return len(pending), nil
}

func (m *MemoryStore) SetRead(_ context.Context, id uuid.UUID, read bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok {
		return apperr.NotFound("reminder", id)
	}
	r.Read = read
	m.reminders[id] = r
	return nil
}

func (m *MemoryStore) ListDue(_ context.Context, now time.Time, limit int) ([]Reminder, error) {
	return m.filter(func(r Reminder) bool { return r.Due(now) }, limit), nil
}

func (m *MemoryStore) Claim(_ context.Context, id uuid.UUID, now time.Time) (Reminder, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reminders[id]
	if !ok || !r.Due(now) {
		return Reminder{}, false, nil
	}
	sentAt := now
	r.Sent = true
	r.SentAt = &sentAt
	r.UpdatedAt = now
	m.reminders[id] = r
	return r, true, nil
}

func (m *MemoryStore) PurgeSession(_ context.Context, sessionID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	purged := 0
	for id, r := range m.reminders {
		if r.SessionID == sessionID {
			delete(m.reminders, id)
			purged++
		}
	}
	return purged, nil
}

func (m *MemoryStore) filter(keep func(Reminder) bool, limit int) []Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Reminder{}
	for _, r := range m.reminders {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
