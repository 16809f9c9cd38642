package portal

import (
	"context"
	"fmt"
	"io"

	"github.com/playwright-community/playwright-go"
)

// Portal page selectors. The portal's markup is stable enough that a
// handful of attribute selectors covers every flow the core drives.
const (
	selUsername      = "input[name='username']"
	selPassword      = "input[name='password']"
	selLoginSubmit   = "button[type='submit']"
	selCaseListing   = "table.case-listing"
	selPageInput     = "input[name='page']"
	selPageGo        = "button.page-go"
	selPageContinue  = "button.page-continue"
	selCaseLink      = "a[data-case-id='%s']"
	selAddressOption = "option[value='%s']"
	selUpdateText    = "textarea[name='update']"
	selUpdateSubmit  = "button.update-submit"
	selUpdateConfirm = "button.update-confirm"
	selListingRoot   = "div.listing-root"
)

const defaultActionTimeout = 30_000 // milliseconds

// BrowserOptions configures the Playwright-backed adapter.
type BrowserOptions struct {
	// BaseURL is the root URL of the portal.
	BaseURL string

	// Headless controls whether the browser runs without a window.
	Headless bool

	// Timeout is the default per-action timeout in milliseconds.
	// Zero means defaultActionTimeout.
	Timeout float64
}

// Browser is the Playwright-backed Adapter implementation. It owns the
// full browser stack for one portal session: the Playwright driver, the
// launched browser, its context, and the single active page.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
	opts    BrowserOptions
}

// NewBrowser installs and starts the Playwright driver, launches a
// Chromium instance, and opens the page every adapter call operates on.
func NewBrowser(opts BrowserOptions) (*Browser, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("portal: base URL is required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = defaultActionTimeout
	}

	// Discard driver output so it cannot interleave with CLI output.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return nil, fmt.Errorf("portal: install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("portal: start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("portal: launch browser: %w", err)
	}

	browserCtx, err := browser.NewContext()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("portal: create browser context: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("portal: create page: %w", err)
	}
	page.SetDefaultTimeout(opts.Timeout)

	return &Browser{
		pw:      pw,
		browser: browser,
		context: browserCtx,
		page:    page,
		opts:    opts,
	}, nil
}

// Close tears down the page, context, browser, and driver. Errors from
// individual close calls are ignored so cleanup always runs to the end.
func (b *Browser) Close() error {
	_ = b.page.Close()
	_ = b.context.Close()
	_ = b.browser.Close()
	if err := b.pw.Stop(); err != nil {
		return fmt.Errorf("portal: stop playwright: %w", err)
	}
	return nil
}

// Login authenticates against the portal and waits for the case listing
// to confirm the portal accepted the credentials.
func (b *Browser) Login(ctx context.Context, creds Credentials) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := b.page.Goto(b.opts.BaseURL + "/login"); err != nil {
		return wrapErr("login", err)
	}
	if err := b.page.Fill(selUsername, creds.Username); err != nil {
		return wrapErr("login", err)
	}
	if err := b.page.Fill(selPassword, creds.Password); err != nil {
		return wrapErr("login", err)
	}
	if err := b.page.Click(selLoginSubmit); err != nil {
		return wrapErr("login", err)
	}
	if _, err := b.page.WaitForSelector(selCaseListing); err != nil {
		return wrapErr("login", err)
	}
	return nil
}

// NavigateToCase opens the detail view of the given case from the
// listing.
func (b *Browser) NavigateToCase(ctx context.Context, caseID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.page.Click(fmt.Sprintf(selCaseLink, caseID)); err != nil {
		return wrapErr("navigate to case", err)
	}
	return nil
}

// NavigateToPage fills and submits the listing's page selector.
func (b *Browser) NavigateToPage(ctx context.Context, pageNumber int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.page.Fill(selPageInput, fmt.Sprintf("%d", pageNumber)); err != nil {
		return wrapErr("navigate to page", err)
	}
	if err := b.page.Click(selPageGo); err != nil {
		return wrapErr("navigate to page", err)
	}
	return nil
}

// ContinueAfterPageSelection confirms the pending page selection and
// returns the refreshed listing payload.
func (b *Browser) ContinueAfterPageSelection(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := b.page.Click(selPageContinue); err != nil {
		return nil, wrapErr("continue after page selection", err)
	}

	root, err := b.page.WaitForSelector(selListingRoot)
	if err != nil {
		return nil, wrapErr("continue after page selection", err)
	}
	rawHTML, err := root.InnerHTML()
	if err != nil {
		return nil, wrapErr("continue after page selection", err)
	}

	listing, err := ParseListing(rawHTML)
	if err != nil {
		return nil, wrapErr("continue after page selection", err)
	}

	payload := map[string]string{
		"page":        fmt.Sprintf("%d", listing.Page),
		"total_pages": fmt.Sprintf("%d", listing.TotalPages),
		"case_count":  fmt.Sprintf("%d", len(listing.Cases)),
	}
	for i, row := range listing.Cases {
		payload[fmt.Sprintf("case_%d", i)] = row.CaseID
	}
	return payload, nil
}

// PostUpdate posts a status update against a case: select the address,
// fill the update text, submit, and optionally auto-confirm.
func (b *Browser) PostUpdate(ctx context.Context, req UpdateRequest) (*UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := b.page.Click(fmt.Sprintf(selAddressOption, req.AddressID)); err != nil {
		return nil, wrapErr("post update", err)
	}
	if err := b.page.Fill(selUpdateText, req.Content); err != nil {
		return nil, wrapErr("post update", err)
	}
	if err := b.page.Click(selUpdateSubmit); err != nil {
		return nil, wrapErr("post update", err)
	}
	if req.AutoConfirm {
		if err := b.page.Click(selUpdateConfirm); err != nil {
			return nil, wrapErr("post update", err)
		}
	}
	return &UpdateResult{Message: fmt.Sprintf("update posted for case %s", req.CaseID)}, nil
}
