// Package audit provides the append-only trail of update attempts. The
// trail records every attempted portal mutation, successful or not, and
// outlives the session and run that produced it.
package audit

import "time"

// Attempt outcome values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Posting mode values.
const (
	ModeAutoConfirm   = "auto_confirm"
	ModeManualConfirm = "manual_confirm"
)

// Record is one immutable update attempt. Records are written exactly
// once and never mutated or deleted; their order is the chronological
// append order.
type Record struct {
	// ID is assigned by the store on append.
	ID string

	// CaseID is the case the update was posted against.
	CaseID string

	// Content is the update text as posted.
	Content string

	// AddressText is the display text of the address the update was
	// attached to.
	AddressText string

	// Mode records how the confirmation dialog was handled.
	Mode string

	// Status is StatusSuccess or StatusFailed.
	Status string

	// SessionID identifies the portal session that made the attempt.
	SessionID string

	// ErrorMessage carries the failure cause for failed attempts.
	ErrorMessage string

	// CreatedAt is the append timestamp.
	CreatedAt time.Time
}
