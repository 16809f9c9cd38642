// Package portal is the boundary between the automation core and the
// case-management web portal. The Adapter interface is what the rest of
// the system programs against; the Playwright implementation in this
// package is the only code that knows the portal is a real browser.
package portal

import "context"

// Credentials authenticate one back-office worker against the portal.
type Credentials struct {
	Username string
	Password string
}

// UpdateRequest describes one status/visibility mutation against a case.
type UpdateRequest struct {
	// CaseID identifies the case being mutated.
	CaseID string

	// AddressID selects the address entry the update is attached to.
	AddressID string

	// AddressText is the display text of the selected address, recorded
	// alongside the update for the audit trail.
	AddressText string

	// Content is the update text posted to the portal.
	Content string

	// AutoConfirm submits the portal's confirmation dialog without
	// waiting for a manual click.
	AutoConfirm bool
}

// UpdateResult is the portal's acknowledgement of a posted update.
type UpdateResult struct {
	Message string
}

// Adapter executes concrete browser actions against the portal and
// returns structured outcomes. Implementations must tag failures with a
// Kind (see Error) so callers can classify without inspecting message
// text.
type Adapter interface {
	// Login authenticates and leaves the browser on the case listing.
	Login(ctx context.Context, creds Credentials) error

	// NavigateToCase opens the detail view of the given case.
	NavigateToCase(ctx context.Context, caseID string) error

	// NavigateToPage selects a page of the case listing.
	NavigateToPage(ctx context.Context, pageNumber int) error

	// ContinueAfterPageSelection confirms the page selection and returns
	// the listing payload for the selected page.
	ContinueAfterPageSelection(ctx context.Context) (map[string]string, error)

	// PostUpdate posts a status update against a case. A non-nil error
	// means the portal rejected or never received the update.
	PostUpdate(ctx context.Context, req UpdateRequest) (*UpdateResult, error)
}
