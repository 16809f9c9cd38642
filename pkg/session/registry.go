package session

import (
	"errors"
	"sync"
)

var (
	// ErrNoActiveSession is returned when a session-dependent operation
	// runs with no registered portal session. Callers fail fast; they
	// never attempt recovery on the caller's behalf.
	ErrNoActiveSession = errors.New("session: no active portal session")

	// ErrSessionActive is returned by Set while a session is already
	// registered. The existing session must be cleared explicitly
	// first, so the previous browser handle is never orphaned.
	ErrSessionActive = errors.New("session: a portal session is already active")
)

// Registry is the process-wide holder of at most one active portal
// session. It is the single source of truth for "is there a usable
// session right now".
type Registry struct {
	mu     sync.Mutex
	active *PortalSession
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Get returns the active session, or ErrNoActiveSession.
func (r *Registry) Get() (*PortalSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active == nil {
		return nil, ErrNoActiveSession
	}
	return r.active, nil
}

// Set registers the session. Setting while one is already active is
// rejected with ErrSessionActive.
func (r *Registry) Set(s *PortalSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		return ErrSessionActive
	}
	r.active = s
	return nil
}

// Clear removes the active session and closes its browser handle.
// Clearing an empty registry is a no-op.
func (r *Registry) Clear() {
	r.mu.Lock()
	current := r.active
	r.active = nil
	r.mu.Unlock()

	if current != nil {
		current.close()
	}
}
