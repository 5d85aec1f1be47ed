package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySessions keeps sessions in process memory.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessions creates a session store whose sessions live for ttl.
// A zero ttl never expires.
func NewMemorySessions(ttl time.Duration) *MemorySessions {
	return &MemorySessions{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessions) Create(ctx context.Context, actor Actor) (Session, error) {
	if !actor.Authenticated() {
		return Session{}, errors.New("cannot create session for anonymous actor")
	}

	now := m.now()
	s := Session{
		Token:     uuid.NewString(),
		Actor:     actor,
		CreatedAt: now,
	}
	if m.ttl > 0 {
		s.ExpiresAt = now.Add(m.ttl)
	}

	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()
	return s, nil
}

func (m *MemorySessions) Lookup(ctx context.Context, token string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if s.Expired(m.now()) {
		delete(m.sessions, token)
		return Session{}, ErrSessionExpired
	}
	return s, nil
}

func (m *MemorySessions) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, token)
	return nil
}
