package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"lemonpos/internal/backend"
	apierrors "lemonpos/internal/errors"
	"lemonpos/internal/session"
	"lemonpos/internal/shift"
	"lemonpos/pkg/contracts/domain"
)

// AuthClient is the slice of the backend client the auth handler needs.
type AuthClient interface {
	LoginPIN(ctx context.Context, employeeID int64, pin string) (*domain.Employee, error)
}

// AuthHandler handles employee PIN login and logout.
type AuthHandler struct {
	client   AuthClient
	sessions *session.Store
	shifts   *shift.Gate
	logger   *slog.Logger
	metrics  *Metrics
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(client AuthClient, sessions *session.Store, shifts *shift.Gate, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		client:   client,
		sessions: sessions,
		shifts:   shifts,
		logger:   logger.With(slog.String("handler", "auth")),
	}
}

// SetMetrics attaches login metrics.
func (h *AuthHandler) SetMetrics(m *Metrics) {
	h.metrics = m
}

func (h *AuthHandler) countLogin(ctx context.Context, outcome string) {
	if h.metrics != nil && h.metrics.LoginsTotal != nil {
		h.metrics.LoginsTotal.Add(ctx, 1,
			metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// LoginRequest is the PIN login payload. A rejected PIN clears the input on
// the UI; no lockout or throttling is applied here.
type LoginRequest struct {
	EmployeeID int64  `json:"employee_id" validate:"required"`
	PIN        string `json:"pin" validate:"required,numeric,min=4,max=8"`
}

// LoginResponse carries the signed-in employee and the immediate shift check
// outcome so the UI knows whether to show the shift-start prompt.
type LoginResponse struct {
	Employee   domain.Employee `json:"employee"`
	ShiftPhase shift.Phase     `json:"shift_phase"`
	Shift      *domain.Shift   `json:"shift,omitempty"`
}

// Routes returns a chi router for auth endpoints.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	return r
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidRequestWithError(err)))
		return
	}
	if err := validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrValidation("pin", err.Error())))
		return
	}

	employee, err := h.client.LoginPIN(ctx, req.EmployeeID, req.PIN)
	if err != nil {
		if errors.Is(err, backend.ErrPINRejected) {
			h.logger.InfoContext(ctx, "pin rejected",
				slog.Int64("employee_id", req.EmployeeID))
			h.countLogin(ctx, "pin_rejected")
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrPINRejected))
			return
		}
		h.logger.ErrorContext(ctx, "login request failed",
			slog.Int64("employee_id", req.EmployeeID),
			slog.String("error", err.Error()))
		h.countLogin(ctx, "backend_error")
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrBackendUnavailable))
		return
	}

	if err := h.sessions.Login(ctx, *employee); err != nil {
		h.logger.ErrorContext(ctx, "failed to persist session",
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInternalServer))
		return
	}

	h.countLogin(ctx, "success")

	// The shift side-flow runs once per login, immediately after it.
	h.shifts.Reset()
	phase := h.shifts.Check(ctx, employee.ID)
	_, activeShift := h.shifts.Status()

	render.JSON(w, r, LoginResponse{
		Employee:   *employee,
		ShiftPhase: phase,
		Shift:      activeShift,
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.sessions.Logout(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to clear session",
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInternalServer))
		return
	}
	h.shifts.Reset()

	render.JSON(w, r, map[string]any{"success": true})
}
