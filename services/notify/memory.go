package notify

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"studyhub/pkg/apperr"
)

type eventRef struct {
	recipient uuid.UUID
	key       string
}

// MemoryStore is an in-process Store enforcing the same uniqueness rule as
// the database index on (recipient_id, event_key).
type MemoryStore struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]Notification
	events map[eventRef]uuid.UUID
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[uuid.UUID]Notification),
		events: make(map[eventRef]uuid.UUID),
	}
}

func (m *MemoryStore) Create(_ context.Context, n Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	ref := eventRef{recipient: n.RecipientID, key: n.EventKey}
	if _, dup := m.events[ref]; dup {
		return false, nil
	}
	m.byID[n.ID] = n
	m.events[ref] = n.ID
	return true, nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	if !ok {
		return Notification{}, apperr.NotFound("notification", id)
	}
	return n, nil
}

func (m *MemoryStore) List(_ context.Context, recipientID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Notification{}
	for _, n := range m.byID {
		if n.RecipientID != recipientID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.byID {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) SetRead(_ context.Context, id uuid.UUID, read bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	if !ok {
		return apperr.NotFound("notification", id)
	}
	n.Read = read
	m.byID[id] = n
	return nil
}

func (m *MemoryStore) MarkAllRead(_ context.Context, recipientID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for id, n := range m.byID {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			m.byID[id] = n
			changed++
		}
	}
	return changed, nil
}

// All returns every stored notification; tests use it to assert fan-out.
func (m *MemoryStore) All() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, 0, len(m.byID))
	for _, n := range m.byID {
		out = append(out, n)
	}
	return out
}
