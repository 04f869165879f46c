package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemonpos/internal/flow"
	"lemonpos/pkg/contracts/domain"
)

func newGuardedHandler(t *testing.T) (*flow.Gate, http.Handler) {
	t.Helper()
	gate := flow.NewGate(slog.Default())
	guard := NewFlowGuard(gate, slog.Default())
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return gate, guard.Handler(next)
}

func driveToMain(gate *flow.Gate) {
	gate.Apply(flow.SlicesLoaded{IntroSeen: true, SessionPresent: true})
	gate.Apply(flow.ValidityChanged{Validity: domain.Validity{State: domain.ValidityValid}})
}

func TestGuardBlocksBusinessPathsOutsideMain(t *testing.T) {
	_, handler := newGuardedHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			ErrorCode string            `json:"error_code"`
			Details   map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "FLOW_BLOCKED", body.Error.ErrorCode)
	assert.Equal(t, string(flow.RouteSuspend), body.Error.Details["route"])
}

func TestGuardAllowsBusinessPathsOnMain(t *testing.T) {
	gate, handler := newGuardedHandler(t)
	driveToMain(gate)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardExcludedPaths(t *testing.T) {
	_, handler := newGuardedHandler(t)

	// These must stay reachable while the terminal is still suspended; they
	// are the only way back to Main.
	paths := []string{
		"/",
		"/metrics",
		"/ws",
		"/api/health",
		"/api/flow/route",
		"/api/license/activate",
		"/api/auth/login",
		"/api/shift/status",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestGuardReblocksAfterEviction(t *testing.T) {
	gate, handler := newGuardedHandler(t)
	driveToMain(gate)

	gate.Apply(flow.ValidityChanged{Validity: domain.Invalid("License expired")})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
