package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"studyhub/pkg/apperr"
	"studyhub/pkg/clock"
	"studyhub/services/sessions"
)

// Memory is an in-process Directory backed by a session store.
type Memory struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]User
	participants map[uuid.UUID][]Participant
	sessions     sessions.Store
	clock        clock.Clock
}

// NewMemory returns an empty directory reading sessions from store. Join
// times are stamped with clk.
func NewMemory(store sessions.Store, clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Memory{
		users:        make(map[uuid.UUID]User),
		participants: make(map[uuid.UUID][]Participant),
		sessions:     store,
		clock:        clk,
	}
}

func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, apperr.NotFound("user", id)
	}
	return u, nil
}

func (m *Memory) GetSession(ctx context.Context, id uuid.UUID) (sessions.Session, error) {
	return m.sessions.Get(ctx, id)
}

func (m *Memory) ListParticipants(_ context.Context, sessionID uuid.UUID) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]User, 0, len(m.participants[sessionID]))
	for _, p := range m.participants[sessionID] {
		if u, ok := m.users[p.UserID]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (m *Memory) UpsertUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *Memory) AddParticipant(_ context.Context, sessionID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants[sessionID] {
		if p.UserID == userID {
			return nil
		}
	}
	m.participants[sessionID] = append(m.participants[sessionID], Participant{
		SessionID: sessionID,
		UserID:    userID,
		JoinedAt:  m.clock.Now(),
	})
	return nil
}

// RemoveUser deletes a user; participant rows pointing at it are ignored.
func (m *Memory) RemoveUser(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}
