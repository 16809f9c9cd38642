package session

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/entrhq/caseflow/pkg/audit"
	"github.com/entrhq/caseflow/pkg/logging"
	"github.com/entrhq/caseflow/pkg/portal"
	"github.com/entrhq/caseflow/pkg/retry"
)

// Step is a named stage in the portal's multi-step navigation flow.
type Step string

const (
	StepLogin         Step = "LOGIN"
	StepCaseListing   Step = "CASE_LISTING"
	StepPageSelection Step = "PAGE_SELECTION_PENDING"
	StepCaseDetail    Step = "CASE_DETAIL"
	StepExtraction    Step = "EXTRACTION"
	StepPostUpdate    Step = "POST_UPDATE"
	StepComplete      Step = "COMPLETE"
	StepError         Step = "ERROR"
)

// transitions lists the validated edges of the navigation state
// machine. StepError is reachable from every state on an unrecoverable
// adapter failure and is therefore not listed per-state. StepComplete
// and StepError are terminal; a new session starts over at StepLogin.
var transitions = map[Step][]Step{
	StepLogin:         {StepCaseListing},
	StepCaseListing:   {StepCaseListing, StepPageSelection, StepCaseDetail, StepComplete},
	StepPageSelection: {StepCaseListing},
	StepCaseDetail:    {StepExtraction, StepPostUpdate, StepCaseListing},
	StepExtraction:    {StepPostUpdate, StepCaseListing, StepComplete},
	StepPostUpdate:    {StepCaseListing, StepComplete},
	StepComplete:      {},
	StepError:         {},
}

// CanTransition reports whether the state machine permits moving from
// one step to another.
func CanTransition(from, to Step) bool {
	if to == StepError {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NavigationState is the position of a session inside the portal flow.
// It is mutated only by the Navigator, and only as an atomic unit: the
// step, selected page, and payload change together or not at all.
type NavigationState struct {
	// Step is the current navigation step.
	Step Step

	// SelectedPage is the listing page last navigated to, zero before
	// any page selection.
	SelectedPage int

	// Payload is the opaque data returned by the last successful step.
	Payload map[string]string
}

func (s NavigationState) clone() NavigationState {
	out := s
	if s.Payload != nil {
		out.Payload = make(map[string]string, len(s.Payload))
		for k, v := range s.Payload {
			out.Payload[k] = v
		}
	}
	return out
}

var (
	// ErrPageOutOfRange rejects a page selection outside [1, totalPages].
	ErrPageOutOfRange = errors.New("session: page number out of range")

	// ErrInvalidTransition rejects an operation the current step does
	// not permit.
	ErrInvalidTransition = errors.New("session: navigation step does not permit this operation")
)

// Navigator drives the portal through validated step transitions. Every
// operation resolves the registry first, serializes on the session's
// operation lock, delegates to the adapter under the retry policy, and
// commits the new navigation state only when every delegated call
// succeeded.
type Navigator struct {
	registry *Registry
	recorder *audit.Recorder
	policy   retry.Policy
	log      *logging.Logger
}

// NewNavigator creates a navigator over the given registry. The
// recorder receives one record per update attempt; the logger may be
// nil.
func NewNavigator(registry *Registry, recorder *audit.Recorder, policy retry.Policy, log *logging.Logger) *Navigator {
	policy.RetryIf = portal.IsRetryable
	return &Navigator{
		registry: registry,
		recorder: recorder,
		policy:   policy,
		log:      log,
	}
}

// Login authenticates the adapter against the portal and registers the
// resulting session. The adapter's close handle (may be nil) is invoked
// when the registry is cleared. Fails with ErrSessionActive when a
// session already exists: the caller must tear it down explicitly
// first.
func (n *Navigator) Login(ctx context.Context, adapter portal.Adapter, closer io.Closer, creds portal.Credentials) (*PortalSession, error) {
	if _, err := n.registry.Get(); err == nil {
		return nil, ErrSessionActive
	}

	err := retry.Do(ctx, n.policy, func() error {
		return adapter.Login(ctx, creds)
	})
	if err != nil {
		return nil, fmt.Errorf("session: login: %w", err)
	}

	sess := newPortalSession(adapter, closer)
	sess.LoggedIn = true
	sess.nav = NavigationState{Step: StepCaseListing}

	if err := n.registry.Set(sess); err != nil {
		// Lost a race for the registry slot; do not orphan the browser.
		sess.close()
		return nil, err
	}

	n.infof("logged in, session %s", sess.ID)
	return sess, nil
}

// SelectPage navigates the case listing to pageNumber. The bounds are
// validated before any adapter call; both adapter calls must succeed
// for the transition to commit, otherwise the navigation state is left
// exactly as it was.
func (n *Navigator) SelectPage(ctx context.Context, pageNumber, totalPages int) error {
	if pageNumber < 1 || pageNumber > totalPages {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, pageNumber, totalPages)
	}

	sess, err := n.registry.Get()
	if err != nil {
		return err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()

	if !CanTransition(sess.nav.Step, StepPageSelection) {
		return fmt.Errorf("%w: select page from %s", ErrInvalidTransition, sess.nav.Step)
	}

	if err := retry.Do(ctx, n.policy, func() error {
		return sess.Adapter.NavigateToPage(ctx, pageNumber)
	}); err != nil {
		return n.fail(sess, fmt.Errorf("session: navigate to page %d: %w", pageNumber, err))
	}

	var payload map[string]string
	if err := retry.Do(ctx, n.policy, func() error {
		var opErr error
		payload, opErr = sess.Adapter.ContinueAfterPageSelection(ctx)
		return opErr
	}); err != nil {
		return n.fail(sess, fmt.Errorf("session: continue after page selection: %w", err))
	}

	sess.nav = NavigationState{
		Step:         StepCaseListing,
		SelectedPage: pageNumber,
		Payload:      payload,
	}
	n.infof("listing on page %d", pageNumber)
	return nil
}

// OpenCase moves from the listing to the detail view of caseID.
func (n *Navigator) OpenCase(ctx context.Context, caseID string) error {
	sess, err := n.registry.Get()
	if err != nil {
		return err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()

	if !CanTransition(sess.nav.Step, StepCaseDetail) {
		return fmt.Errorf("%w: open case from %s", ErrInvalidTransition, sess.nav.Step)
	}

	if err := retry.Do(ctx, n.policy, func() error {
		return sess.Adapter.NavigateToCase(ctx, caseID)
	}); err != nil {
		return n.fail(sess, fmt.Errorf("session: open case %s: %w", caseID, err))
	}

	sess.nav = NavigationState{
		Step:         StepCaseDetail,
		SelectedPage: sess.nav.SelectedPage,
		Payload:      map[string]string{"case_id": caseID},
	}
	return nil
}

// PostUpdate posts one status update through the adapter. Exactly one
// audit record is written per call, no matter how the attempt ends. A
// posting failure is recoverable: the session and its navigation state
// stay usable.
func (n *Navigator) PostUpdate(ctx context.Context, req portal.UpdateRequest) (*portal.UpdateResult, error) {
	sess, err := n.registry.Get()
	if err != nil {
		return nil, err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()

	result, postErr := sess.Adapter.PostUpdate(ctx, req)

	record := &audit.Record{
		CaseID:      req.CaseID,
		Content:     req.Content,
		AddressText: req.AddressText,
		Mode:        audit.ModeManualConfirm,
		Status:      audit.StatusSuccess,
		SessionID:   sess.ID,
	}
	if req.AutoConfirm {
		record.Mode = audit.ModeAutoConfirm
	}
	if postErr != nil {
		record.Status = audit.StatusFailed
		record.ErrorMessage = postErr.Error()
	}
	n.recorder.Record(ctx, record)

	if postErr != nil {
		return nil, fmt.Errorf("session: post update for case %s: %w", req.CaseID, postErr)
	}

	if CanTransition(sess.nav.Step, StepPostUpdate) {
		sess.nav = NavigationState{
			Step:         StepPostUpdate,
			SelectedPage: sess.nav.SelectedPage,
			Payload:      sess.nav.Payload,
		}
	}
	return result, nil
}

// ReturnToListing commits the step back to the case listing after a
// case has been handled. The portal's own post-update flow lands on the
// listing, so no adapter call is needed.
func (n *Navigator) ReturnToListing() error {
	sess, err := n.registry.Get()
	if err != nil {
		return err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()

	if !CanTransition(sess.nav.Step, StepCaseListing) {
		return fmt.Errorf("%w: return to listing from %s", ErrInvalidTransition, sess.nav.Step)
	}

	sess.nav = NavigationState{
		Step:         StepCaseListing,
		SelectedPage: sess.nav.SelectedPage,
		Payload:      sess.nav.Payload,
	}
	return nil
}

// Complete marks the navigation flow finished for this session.
func (n *Navigator) Complete() error {
	sess, err := n.registry.Get()
	if err != nil {
		return err
	}

	sess.opMu.Lock()
	defer sess.opMu.Unlock()

	if !CanTransition(sess.nav.Step, StepComplete) {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, sess.nav.Step)
	}

	sess.nav = NavigationState{
		Step:         StepComplete,
		SelectedPage: sess.nav.SelectedPage,
		Payload:      sess.nav.Payload,
	}
	return nil
}

// Reset tears down the active session, if any, so a new Login can
// start the flow over at the beginning.
func (n *Navigator) Reset() {
	n.registry.Clear()
}

// State returns a snapshot of the active session's navigation state.
func (n *Navigator) State() (NavigationState, error) {
	sess, err := n.registry.Get()
	if err != nil {
		return NavigationState{}, err
	}
	return sess.State(), nil
}

// fail decides how an exhausted adapter failure affects the session.
// Session-kind failures invalidate the registry entry and park the
// state machine in StepError: retrying with the same browser login is
// pointless. Every other failure leaves the navigation state untouched
// so the caller can retry the operation later.
func (n *Navigator) fail(sess *PortalSession, err error) error {
	if portal.KindOf(err) == portal.KindSession {
		sess.nav = NavigationState{Step: StepError}
		n.registry.Clear()
		n.errorf("portal session lost, registry cleared: %v", err)
	}
	return err
}

func (n *Navigator) infof(format string, v ...interface{}) {
	if n.log != nil {
		n.log.Infof(format, v...)
	}
}

func (n *Navigator) errorf(format string, v ...interface{}) {
	if n.log != nil {
		n.log.Errorf(format, v...)
	}
}
