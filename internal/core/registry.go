package core

import (
	"sync"
	"time"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/store"
)

// Registry holds one Manager per live session.
type Registry struct {
	store store.Store
	limit int
	now   func() time.Time

	mu       sync.RWMutex
	managers map[string]*Manager
}

// NewRegistry creates an empty registry whose managers keep limit datasets
// of history.
func NewRegistry(s store.Store, limit int) *Registry {
	return &Registry{
		store:    s,
		limit:    limit,
		now:      time.Now,
		managers: make(map[string]*Manager),
	}
}

// ForSession returns the session's manager, creating it on first use.
// created reports whether a new manager was made.
func (r *Registry) ForSession(sess auth.Session) (m *Manager, created bool) {
	r.mu.RLock()
	m, ok := r.managers[sess.Token]
	r.mu.RUnlock()
	if ok && m.Actor() == sess.Actor {
		return m, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another request may have created it while we waited for the lock.
	if m, ok := r.managers[sess.Token]; ok && m.Actor() == sess.Actor {
		return m, false
	}
	m = NewManager(r.store, sess.Actor, r.limit)
	r.managers[sess.Token] = m
	return m, true
}

// Drop discards the session's manager.
func (r *Registry) Drop(token string) {
	r.mu.Lock()
	delete(r.managers, token)
	r.mu.Unlock()
}

// Len returns the number of live managers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.managers)
}

// ReapIdle drops managers unused for longer than idle and returns how many
// were dropped.
func (r *Registry) ReapIdle(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for token, m := range r.managers {
		if m.LastUsed().Before(cutoff) {
			delete(r.managers, token)
			n++
		}
	}
	return n
}
