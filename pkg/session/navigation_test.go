package session

import (
	"context"
	"errors"
	"testing"

	"github.com/entrhq/caseflow/pkg/audit"
	"github.com/entrhq/caseflow/pkg/portal"
	"github.com/entrhq/caseflow/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter is a programmable portal adapter that counts every call.
type fakeAdapter struct {
	loginErr    error
	navPageErr  error
	continueErr error
	postErr     error

	loginCalls    int
	navPageCalls  int
	continueCalls int
	postCalls     int

	lastPage    int
	lastRequest portal.UpdateRequest
	payload     map[string]string
}

func (f *fakeAdapter) Login(ctx context.Context, creds portal.Credentials) error {
	f.loginCalls++
	return f.loginErr
}

func (f *fakeAdapter) NavigateToCase(ctx context.Context, caseID string) error {
	return nil
}

func (f *fakeAdapter) NavigateToPage(ctx context.Context, pageNumber int) error {
	f.navPageCalls++
	f.lastPage = pageNumber
	return f.navPageErr
}

func (f *fakeAdapter) ContinueAfterPageSelection(ctx context.Context) (map[string]string, error) {
	f.continueCalls++
	if f.continueErr != nil {
		return nil, f.continueErr
	}
	return f.payload, nil
}

func (f *fakeAdapter) PostUpdate(ctx context.Context, req portal.UpdateRequest) (*portal.UpdateResult, error) {
	f.postCalls++
	f.lastRequest = req
	if f.postErr != nil {
		return nil, f.postErr
	}
	return &portal.UpdateResult{Message: "ok"}, nil
}

// memStore collects audit records in memory.
type memStore struct {
	records []*audit.Record
}

func (m *memStore) Append(ctx context.Context, record *audit.Record) (string, error) {
	m.records = append(m.records, record)
	return "id", nil
}

func newTestNavigator(t *testing.T) (*Navigator, *Registry, *memStore) {
	t.Helper()
	reg := NewRegistry()
	store := &memStore{}
	nav := NewNavigator(reg, audit.NewRecorder(store, nil), retry.Policy{Attempts: 1}, nil)
	return nav, reg, store
}

func loggedIn(t *testing.T, nav *Navigator, adapter *fakeAdapter) *PortalSession {
	t.Helper()
	sess, err := nav.Login(context.Background(), adapter, nil, portal.Credentials{Username: "w", Password: "p"})
	require.NoError(t, err)
	return sess
}

func TestLogin(t *testing.T) {
	t.Run("creates one session on success", func(t *testing.T) {
		nav, reg, _ := newTestNavigator(t)
		adapter := &fakeAdapter{}

		sess := loggedIn(t, nav, adapter)

		assert.True(t, sess.LoggedIn)
		assert.Equal(t, StepCaseListing, sess.State().Step)

		got, err := reg.Get()
		require.NoError(t, err)
		assert.Same(t, sess, got)
	})

	t.Run("rejected while a session is active", func(t *testing.T) {
		nav, _, _ := newTestNavigator(t)
		loggedIn(t, nav, &fakeAdapter{})

		_, err := nav.Login(context.Background(), &fakeAdapter{}, nil, portal.Credentials{})
		assert.ErrorIs(t, err, ErrSessionActive)
	})

	t.Run("adapter failure leaves registry empty", func(t *testing.T) {
		nav, reg, _ := newTestNavigator(t)
		adapter := &fakeAdapter{loginErr: errors.New("bad credentials")}

		_, err := nav.Login(context.Background(), adapter, nil, portal.Credentials{})
		require.Error(t, err)

		_, err = reg.Get()
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})
}

func TestSelectPage(t *testing.T) {
	t.Run("out-of-range page rejected before any adapter call", func(t *testing.T) {
		nav, _, _ := newTestNavigator(t)
		adapter := &fakeAdapter{}
		sess := loggedIn(t, nav, adapter)
		before := sess.State()

		for _, page := range []int{0, -3, 11} {
			err := nav.SelectPage(context.Background(), page, 10)
			assert.ErrorIs(t, err, ErrPageOutOfRange)
		}

		assert.Equal(t, 0, adapter.navPageCalls)
		assert.Equal(t, 0, adapter.continueCalls)
		assert.Equal(t, before, sess.State())
	})

	t.Run("no active session fails fast", func(t *testing.T) {
		nav, _, _ := newTestNavigator(t)

		err := nav.SelectPage(context.Background(), 3, 10)
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("commits step, page, and payload on success", func(t *testing.T) {
		nav, _, _ := newTestNavigator(t)
		adapter := &fakeAdapter{payload: map[string]string{"total_pages": "10", "case_0": "C-1"}}
		sess := loggedIn(t, nav, adapter)

		require.NoError(t, nav.SelectPage(context.Background(), 5, 10))

		state := sess.State()
		assert.Equal(t, StepCaseListing, state.Step)
		assert.Equal(t, 5, state.SelectedPage)
		assert.Equal(t, map[string]string{"total_pages": "10", "case_0": "C-1"}, state.Payload)
		assert.Equal(t, 5, adapter.lastPage)
	})

	t.Run("state unchanged when continue fails after navigate succeeded", func(t *testing.T) {
		nav, _, _ := newTestNavigator(t)
		adapter := &fakeAdapter{continueErr: errors.New("listing did not load")}
		sess := loggedIn(t, nav, adapter)
		before := sess.State()

		err := nav.SelectPage(context.Background(), 2, 10)
		require.Error(t, err)

		assert.Equal(t, 1, adapter.navPageCalls)
		assert.Equal(t, before, sess.State())
	})

	t.Run("state unchanged when navigate fails", func(t *testing.T) {
		nav, _, _ := newTestNavigator(t)
		adapter := &fakeAdapter{navPageErr: errors.New("page input missing")}
		sess := loggedIn(t, nav, adapter)
		before := sess.State()

		err := nav.SelectPage(context.Background(), 2, 10)
		require.Error(t, err)

		assert.Equal(t, 0, adapter.continueCalls)
		assert.Equal(t, before, sess.State())
	})

	t.Run("session-kind failure clears the registry", func(t *testing.T) {
		nav, reg, _ := newTestNavigator(t)
		adapter := &fakeAdapter{navPageErr: &portal.Error{Kind: portal.KindSession, Op: "navigate to page", Err: errors.New("session expired")}}
		loggedIn(t, nav, adapter)

		err := nav.SelectPage(context.Background(), 2, 10)
		require.Error(t, err)

		_, err = reg.Get()
		assert.ErrorIs(t, err, ErrNoActiveSession)
	})

	t.Run("retries transient failures up to the budget", func(t *testing.T) {
		reg := NewRegistry()
		store := &memStore{}
		nav := NewNavigator(reg, audit.NewRecorder(store, nil), retry.Policy{Attempts: 3}, nil)
		adapter := &fakeAdapter{navPageErr: errors.New("connection reset")}
		loggedIn(t, nav, adapter)

		err := nav.SelectPage(context.Background(), 2, 10)
		require.Error(t, err)
		assert.Equal(t, 3, adapter.navPageCalls)
	})
}

func TestPostUpdate(t *testing.T) {
	req := portal.UpdateRequest{
		CaseID:      "C-77",
		AddressID:   "addr-9",
		AddressText: "Lindenweg 3",
		Content:     "work scheduled",
		AutoConfirm: true,
	}

	t.Run("success writes exactly one success record", func(t *testing.T) {
		nav, _, store := newTestNavigator(t)
		adapter := &fakeAdapter{}
		sess := loggedIn(t, nav, adapter)

		result, err := nav.PostUpdate(context.Background(), req)
		require.NoError(t, err)
		assert.NotNil(t, result)

		require.Len(t, store.records, 1)
		rec := store.records[0]
		assert.Equal(t, "C-77", rec.CaseID)
		assert.Equal(t, audit.StatusSuccess, rec.Status)
		assert.Equal(t, audit.ModeAutoConfirm, rec.Mode)
		assert.Equal(t, sess.ID, rec.SessionID)
	})

	t.Run("failure writes exactly one failed record and keeps session usable", func(t *testing.T) {
		nav, reg, store := newTestNavigator(t)
		adapter := &fakeAdapter{postErr: errors.New("portal rejected update")}
		loggedIn(t, nav, adapter)

		_, err := nav.PostUpdate(context.Background(), req)
		require.Error(t, err)

		require.Len(t, store.records, 1)
		assert.Equal(t, audit.StatusFailed, store.records[0].Status)
		assert.Equal(t, "portal rejected update", store.records[0].ErrorMessage)

		// Recoverable: the session is still registered and usable.
		_, err = reg.Get()
		assert.NoError(t, err)
	})

	t.Run("no session means no attempt and no record", func(t *testing.T) {
		nav, _, store := newTestNavigator(t)

		_, err := nav.PostUpdate(context.Background(), req)
		assert.ErrorIs(t, err, ErrNoActiveSession)
		assert.Empty(t, store.records)
	})

	t.Run("manual confirm recorded when auto flag is off", func(t *testing.T) {
		nav, _, store := newTestNavigator(t)
		loggedIn(t, nav, &fakeAdapter{})

		manual := req
		manual.AutoConfirm = false
		_, err := nav.PostUpdate(context.Background(), manual)
		require.NoError(t, err)

		require.Len(t, store.records, 1)
		assert.Equal(t, audit.ModeManualConfirm, store.records[0].Mode)
	})
}

func TestOpenCaseAndReturn(t *testing.T) {
	nav, _, _ := newTestNavigator(t)
	adapter := &fakeAdapter{}
	sess := loggedIn(t, nav, adapter)

	require.NoError(t, nav.OpenCase(context.Background(), "C-5"))
	assert.Equal(t, StepCaseDetail, sess.State().Step)
	assert.Equal(t, "C-5", sess.State().Payload["case_id"])

	// Opening a case from the detail view is not a validated edge.
	err := nav.OpenCase(context.Background(), "C-6")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, nav.ReturnToListing())
	assert.Equal(t, StepCaseListing, sess.State().Step)
}

func TestComplete(t *testing.T) {
	nav, _, _ := newTestNavigator(t)
	sess := loggedIn(t, nav, &fakeAdapter{})

	require.NoError(t, nav.Complete())
	assert.Equal(t, StepComplete, sess.State().Step)

	// Terminal: no further transitions.
	err := nav.ReturnToListing()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestReset(t *testing.T) {
	nav, reg, _ := newTestNavigator(t)
	loggedIn(t, nav, &fakeAdapter{})

	nav.Reset()

	_, err := reg.Get()
	assert.ErrorIs(t, err, ErrNoActiveSession)

	// A fresh login starts the flow over.
	sess, err := nav.Login(context.Background(), &fakeAdapter{}, nil, portal.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, StepCaseListing, sess.State().Step)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StepLogin, StepCaseListing))
	assert.True(t, CanTransition(StepCaseListing, StepPageSelection))
	assert.True(t, CanTransition(StepCaseDetail, StepPostUpdate))
	assert.True(t, CanTransition(StepPostUpdate, StepComplete))

	// Error is reachable from anywhere; nothing leaves it.
	assert.True(t, CanTransition(StepExtraction, StepError))
	assert.False(t, CanTransition(StepError, StepCaseListing))
	assert.False(t, CanTransition(StepComplete, StepCaseListing))

	// No silent regression to login.
	assert.False(t, CanTransition(StepCaseListing, StepLogin))
}
