// Package session owns the single live portal session and the
// navigation state machine that drives it. All portal-facing mutations
// in the system flow through a Navigator, which validates the requested
// step against the current navigation state, delegates to the portal
// adapter, and commits the new state atomically.
package session

import (
	"io"
	"sync"
	"time"

	"github.com/entrhq/caseflow/pkg/portal"
	"github.com/google/uuid"
)

// PortalSession is the opaque handle to one external browser session.
// At most one instance exists process-wide; the Registry enforces that.
type PortalSession struct {
	// ID uniquely identifies the session for audit records and logs.
	ID string

	// CreatedAt is the login time.
	CreatedAt time.Time

	// LoggedIn reports whether the portal accepted the credentials.
	LoggedIn bool

	// Adapter is the only live handle to the browser behind this
	// session.
	Adapter portal.Adapter

	// closer tears down the browser when the session is cleared.
	closer io.Closer

	// opMu serializes every validate-delegate-commit sequence against
	// this session. Concurrent mutating operations queue here instead
	// of interleaving.
	opMu sync.Mutex

	// nav is the session's navigation state, guarded by opMu.
	nav NavigationState
}

// newPortalSession wraps a freshly logged-in adapter. The closer may be
// nil for adapters without browser resources (fakes in tests).
func newPortalSession(adapter portal.Adapter, closer io.Closer) *PortalSession {
	return &PortalSession{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Adapter:   adapter,
		closer:    closer,
		nav:       NavigationState{Step: StepLogin},
	}
}

// State returns a snapshot of the session's navigation state. The
// payload map is copied so callers cannot mutate committed state.
func (s *PortalSession) State() NavigationState {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.nav.clone()
}

func (s *PortalSession) close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}
