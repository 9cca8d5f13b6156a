package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry owns one Session per browser session id. Idle sessions are
// evicted lazily whenever the registry is accessed.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	backend     string
	location    string
	idleTimeout time.Duration
	now         func() time.Time
}

// NewRegistry creates a registry whose sessions start on the given backend
// and location. A zero idleTimeout disables eviction.
func NewRegistry(backend, location string, idleTimeout time.Duration) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		backend:     backend,
		location:    location,
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// Create starts a new session with a random id.
func (r *Registry) Create() *Session {
	now := r.now()
	sess := New(uuid.NewString(), r.backend, r.location)
	sess.StartTime = now
	sess.lastSeen = now

	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked(now)
	r.sessions[sess.ID] = sess
	return sess
}

// Get returns the live session for id and marks it as used.
func (r *Registry) Get(id string) (*Session, bool) {
	now := r.now()

	r.mu.Lock()
	r.evictLocked(now)
	sess, ok := r.sessions[id]
	r.mu.Unlock()

	if ok {
		sess.touch(now)
	}
	return sess, ok
}

// Remove ends a session.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) evictLocked(now time.Time) {
	if r.idleTimeout <= 0 {
		return
	}
	for id, sess := range r.sessions {
		if now.Sub(sess.idleSince()) >= r.idleTimeout {
			delete(r.sessions, id)
		}
	}
}
