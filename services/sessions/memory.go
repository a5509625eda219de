package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyhub/pkg/apperr"
)

// MemoryStore keeps sessions in process memory with the same conditional
// write semantics as GormStore.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]Session)}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = StatusScheduled
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s exists: %w", s.ID, apperr.ErrConflict)
	}
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, apperr.NotFound("session", id)
	}
	return s, nil
}

func (m *MemoryStore) SetOverride(_ context.Context, id uuid.UUID, status Status, at time.Time) error {
	if !status.Terminal() {
		return apperr.Invalid("status", "must be a terminal override")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return apperr.NotFound("session", id)
	}
	if s.Status.Terminal() {
		return fmt.Errorf("session %s already terminal: %w", id, apperr.ErrConflict)
	}
	s.Status = status
	s.UpdatedAt = at
	m.sessions[id] = s
	return nil
}

func (m *MemoryStore) Advance(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	changed := 0
	for id, s := range m.sessions {
		if s.Status.Terminal() || s.Status == StatusCompleted {
			continue
		}
		next := Resolve(s, now)
		if next == s.Status || (s.Status == StatusActive && next == StatusScheduled) {
			continue
		}
		s.Status = next
		s.UpdatedAt = now
		m.sessions[id] = s
		changed++
	}
	return changed, nil
}
