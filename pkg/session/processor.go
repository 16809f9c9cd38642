package session

import (
	"context"
	"fmt"

	"github.com/entrhq/caseflow/pkg/portal"
	"github.com/entrhq/caseflow/pkg/queue"
)

// CaseProcessor applies the scheduler's per-case mutation through the
// navigator: open the case, post the update, return to the listing.
type CaseProcessor struct {
	nav         *Navigator
	autoConfirm bool
}

// NewCaseProcessor creates a processor. autoConfirm controls whether
// posted updates submit the portal's confirmation dialog automatically.
func NewCaseProcessor(nav *Navigator, autoConfirm bool) *CaseProcessor {
	return &CaseProcessor{nav: nav, autoConfirm: autoConfirm}
}

// Process handles one candidate. A failed post still navigates back to
// the listing so the session stays positioned for the next case.
func (p *CaseProcessor) Process(ctx context.Context, c queue.Candidate) error {
	if err := p.nav.OpenCase(ctx, c.CaseID); err != nil {
		return fmt.Errorf("open case: %w", err)
	}

	_, postErr := p.nav.PostUpdate(ctx, portal.UpdateRequest{
		CaseID:      c.CaseID,
		AddressID:   c.AddressID,
		AddressText: c.AddressText,
		Content:     c.Content,
		AutoConfirm: p.autoConfirm,
	})

	if err := p.nav.ReturnToListing(); err != nil && postErr == nil {
		return fmt.Errorf("return to listing: %w", err)
	}
	return postErr
}
