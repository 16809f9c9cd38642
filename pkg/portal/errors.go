package portal

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an adapter failure so callers can decide whether a
// retry with the same session makes sense.
type Kind int

const (
	// KindUnknown is the fallback for failures the adapter cannot
	// attribute to a specific cause.
	KindUnknown Kind = iota

	// KindNetwork covers connectivity and timeout failures. These are
	// transient and safe to retry with the same session.
	KindNetwork

	// KindSession covers authorization loss and expired portal logins.
	// Retrying with the same session is pointless; the registry entry
	// must be torn down and re-established.
	KindSession
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindSession:
		return "session"
	default:
		return "unknown"
	}
}

// Error is a tagged adapter failure. The kind is assigned by the
// producer at the point the underlying cause is still visible, so
// consumers never have to guess from message text.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("portal: %s failed (%s)", e.Op, e.Kind)
	}
	return fmt.Sprintf("portal: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapErr tags err with the kind inferred from its message. Playwright
// surfaces plain errors, so the heuristic lives here at the producer
// boundary rather than in every caller.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: classifyMessage(err.Error()), Op: op, Err: err}
}

var networkHints = []string{
	"timeout", "timed out", "net::", "connection refused", "connection reset",
	"no such host", "dns", "unreachable", "eof",
}

var sessionHints = []string{
	"unauthorized", "session expired", "not logged in", "login required",
	"forbidden", "authentication",
}

func classifyMessage(msg string) Kind {
	lower := strings.ToLower(msg)
	for _, hint := range sessionHints {
		if strings.Contains(lower, hint) {
			return KindSession
		}
	}
	for _, hint := range networkHints {
		if strings.Contains(lower, hint) {
			return KindNetwork
		}
	}
	return KindUnknown
}

// KindOf returns the tagged kind of err, or KindUnknown when err does
// not carry one.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether a failed adapter call is worth retrying
// with the same session. Session-kind failures are not: they signal the
// active session must be invalidated first.
func IsRetryable(err error) bool {
	return KindOf(err) != KindSession
}
