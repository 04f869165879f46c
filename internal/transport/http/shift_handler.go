package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "lemonpos/internal/errors"
	"lemonpos/internal/session"
	"lemonpos/internal/shift"
	"lemonpos/pkg/contracts/domain"
)

// ShiftHandler drives the shift-start prompt after login.
type ShiftHandler struct {
	shifts   *shift.Gate
	sessions *session.Store
	logger   *slog.Logger
}

// NewShiftHandler creates a new shift handler.
func NewShiftHandler(shifts *shift.Gate, sessions *session.Store, logger *slog.Logger) *ShiftHandler {
	return &ShiftHandler{
		shifts:   shifts,
		sessions: sessions,
		logger:   logger.With(slog.String("handler", "shift")),
	}
}

// StartShiftRequest declares the opening cash amount for a new shift.
type StartShiftRequest struct {
	OpeningCash string `json:"opening_cash" validate:"required"`
}

// ShiftStatusResponse reports the shift flow phase and observed shift.
type ShiftStatusResponse struct {
	Phase shift.Phase   `json:"phase"`
	Shift *domain.Shift `json:"shift,omitempty"`
}

// Routes returns a chi router for shift endpoints.
func (h *ShiftHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/status", h.GetStatus)
	r.Post("/start", h.Start)
	r.Post("/skip", h.Skip)
	return r
}

// GetStatus handles GET /api/shift/status.
func (h *ShiftHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	phase, activeShift := h.shifts.Status()
	render.JSON(w, r, ShiftStatusResponse{Phase: phase, Shift: activeShift})
}

// Start handles POST /api/shift/start. The flow proceeds to Main regardless
// of the create call's outcome.
func (h *ShiftHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	employee, ok := h.sessions.Current()
	if !ok {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrUnauthorized))
		return
	}

	var req StartShiftRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidRequestWithError(err)))
		return
	}
	if err := validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrValidation("opening_cash", err.Error())))
		return
	}

	phase := h.shifts.Start(ctx, employee.ID, employee.BranchID, req.OpeningCash)
	_, activeShift := h.shifts.Status()

	h.logger.InfoContext(ctx, "shift started",
		slog.Int64("employee_id", employee.ID),
		slog.String("opening_cash", req.OpeningCash))
	render.JSON(w, r, ShiftStatusResponse{Phase: phase, Shift: activeShift})
}

// Skip handles POST /api/shift/skip.
func (h *ShiftHandler) Skip(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sessions.Current(); !ok {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrUnauthorized))
		return
	}

	phase := h.shifts.Skip()
	render.JSON(w, r, ShiftStatusResponse{Phase: phase})
}
