package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemonpos/internal/backend"
	"lemonpos/internal/flow"
	"lemonpos/internal/session"
	"lemonpos/internal/shift"
	"lemonpos/internal/store"
	"lemonpos/pkg/contracts/domain"
)

type fakeAuthClient struct {
	employee *domain.Employee
	err      error
}

func (c *fakeAuthClient) LoginPIN(ctx context.Context, employeeID int64, pin string) (*domain.Employee, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.employee, nil
}

type fakeShiftClient struct {
	active    *domain.Shift
	activeErr error
	created   *domain.Shift
	createErr error
	createReq *backend.CreateShiftRequest
}

func (c *fakeShiftClient) ActiveShift(ctx context.Context, employeeID int64) (*domain.Shift, error) {
	return c.active, c.activeErr
}

func (c *fakeShiftClient) CreateShift(ctx context.Context, req backend.CreateShiftRequest) (*domain.Shift, error) {
	c.createReq = &req
	return c.created, c.createErr
}

type authFixture struct {
	gate     *flow.Gate
	sessions *session.Store
	shifts   *shift.Gate
	router   chi.Router
}

func newAuthFixture(t *testing.T, authClient *fakeAuthClient, shiftClient *fakeShiftClient) *authFixture {
	t.Helper()
	logger := slog.Default()

	kv, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)

	gate := flow.NewGate(logger)
	sessions := session.NewStore(kv, gate, logger)
	shifts := shift.NewGate(shiftClient, logger)

	// Licensed terminal waiting at the login screen.
	gate.Apply(flow.SlicesLoaded{IntroSeen: true})
	gate.Apply(flow.ValidityChanged{Validity: domain.Validity{State: domain.ValidityValid}})

	r := chi.NewRouter()
	r.Mount("/api/auth", NewAuthHandler(authClient, sessions, shifts, logger).Routes())
	r.Mount("/api/shift", NewShiftHandler(shifts, sessions, logger).Routes())

	return &authFixture{gate: gate, sessions: sessions, shifts: shifts, router: r}
}

func postJSON(t *testing.T, router chi.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginThroughShiftStart(t *testing.T) {
	// Employee 3 signs in with PIN 1234, has no open shift, is prompted and
	// declares 100.00 opening cash. The route ends at Main even though the
	// shift-create call fails.
	branch := int64(7)
	authClient := &fakeAuthClient{employee: &domain.Employee{
		ID:       3,
		Name:     "Dana",
		Role:     domain.RoleCashier,
		BranchID: &branch,
	}}
	shiftClient := &fakeShiftClient{createErr: errors.New("backend down")}
	f := newAuthFixture(t, authClient, shiftClient)

	require.Equal(t, flow.RouteLogin, f.gate.Route())

	rec := postJSON(t, f.router, "/api/auth/login", LoginRequest{EmployeeID: 3, PIN: "1234"})
	require.Equal(t, http.StatusOK, rec.Code)

	var login LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, int64(3), login.Employee.ID)
	assert.Equal(t, shift.PhasePrompt, login.ShiftPhase)
	assert.Equal(t, flow.RouteMain, f.gate.Route())

	rec = postJSON(t, f.router, "/api/shift/start", StartShiftRequest{OpeningCash: "100.00"})
	require.Equal(t, http.StatusOK, rec.Code)

	var status ShiftStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, shift.PhaseStarted, status.Phase)

	require.NotNil(t, shiftClient.createReq)
	assert.Equal(t, int64(3), shiftClient.createReq.EmployeeID)
	assert.Equal(t, "100.00", shiftClient.createReq.OpeningCash)
	require.NotNil(t, shiftClient.createReq.BranchID)
	assert.Equal(t, branch, *shiftClient.createReq.BranchID)

	assert.Equal(t, flow.RouteMain, f.gate.Route())
}

func TestLoginWithOpenShiftSkipsPrompt(t *testing.T) {
	authClient := &fakeAuthClient{employee: &domain.Employee{ID: 3, Role: domain.RoleCashier}}
	shiftClient := &fakeShiftClient{active: &domain.Shift{ID: 41, EmployeeID: 3}}
	f := newAuthFixture(t, authClient, shiftClient)

	rec := postJSON(t, f.router, "/api/auth/login", LoginRequest{EmployeeID: 3, PIN: "1234"})
	require.Equal(t, http.StatusOK, rec.Code)

	var login LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	assert.Equal(t, shift.PhaseHasShift, login.ShiftPhase)
	require.NotNil(t, login.Shift)
	assert.Equal(t, int64(41), login.Shift.ID)
}

func TestLoginRejectedPIN(t *testing.T) {
	authClient := &fakeAuthClient{err: backend.ErrPINRejected}
	f := newAuthFixture(t, authClient, &fakeShiftClient{})

	rec := postJSON(t, f.router, "/api/auth/login", LoginRequest{EmployeeID: 3, PIN: "9999"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, ok := f.sessions.Current()
	assert.False(t, ok)
	assert.Equal(t, flow.RouteLogin, f.gate.Route())
}

func TestLoginBackendUnreachable(t *testing.T) {
	authClient := &fakeAuthClient{err: errors.New("connection refused")}
	f := newAuthFixture(t, authClient, &fakeShiftClient{})

	rec := postJSON(t, f.router, "/api/auth/login", LoginRequest{EmployeeID: 3, PIN: "1234"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	f := newAuthFixture(t, &fakeAuthClient{}, &fakeShiftClient{})

	tests := []struct {
		name string
		req  LoginRequest
	}{
		{"missing employee", LoginRequest{PIN: "1234"}},
		{"short pin", LoginRequest{EmployeeID: 3, PIN: "12"}},
		{"non numeric pin", LoginRequest{EmployeeID: 3, PIN: "abcd"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, f.router, "/api/auth/login", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLogoutClearsSessionAndShift(t *testing.T) {
	authClient := &fakeAuthClient{employee: &domain.Employee{ID: 3, Role: domain.RoleManager}}
	f := newAuthFixture(t, authClient, &fakeShiftClient{})

	postJSON(t, f.router, "/api/auth/login", LoginRequest{EmployeeID: 3, PIN: "1234"})
	require.Equal(t, flow.RouteMain, f.gate.Route())

	rec := postJSON(t, f.router, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, ok := f.sessions.Current()
	assert.False(t, ok)
	phase, _ := f.shifts.Status()
	assert.Equal(t, shift.PhaseAwaitingCheck, phase)
	assert.Equal(t, flow.RouteLogin, f.gate.Route())
}

func TestShiftStartRequiresSession(t *testing.T) {
	f := newAuthFixture(t, &fakeAuthClient{}, &fakeShiftClient{})

	rec := postJSON(t, f.router, "/api/shift/start", StartShiftRequest{OpeningCash: "50.00"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
