// Package http contains the HTTP handlers the terminal UI consumes: flow
// routing, license activation, employee auth and the shift side-flow.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "lemonpos/internal/errors"
	"lemonpos/internal/flow"
	"lemonpos/internal/license"
	"lemonpos/internal/session"
	"lemonpos/internal/store"
	"lemonpos/pkg/contracts/domain"
)

// validate is the shared request validator for this package.
var validate = validator.New()

// FlowHandler exposes the routing gate and the intro/reset/language slices.
type FlowHandler struct {
	gate      *flow.Gate
	kv        *store.Store
	validator *license.Validator
	sessions  *session.Store
	logger    *slog.Logger
}

// NewFlowHandler creates a new flow handler.
func NewFlowHandler(gate *flow.Gate, kv *store.Store, v *license.Validator, sessions *session.Store, logger *slog.Logger) *FlowHandler {
	return &FlowHandler{
		gate:      gate,
		kv:        kv,
		validator: v,
		sessions:  sessions,
		logger:    logger.With(slog.String("handler", "flow")),
	}
}

// FlowStateResponse is the composite flow state the UI renders from.
type FlowStateResponse struct {
	Route          flow.Route      `json:"route"`
	IntroSeen      bool            `json:"intro_seen"`
	Validity       domain.Validity `json:"validity"`
	SessionPresent bool            `json:"session_present"`
	Language       string          `json:"language,omitempty"`
}

// LanguageRequest selects the terminal language.
type LanguageRequest struct {
	Language string `json:"language" validate:"required,bcp47_language_tag"`
}

// Routes returns a chi router for flow endpoints.
func (h *FlowHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/route", h.GetState)
	r.Post("/intro/complete", h.CompleteIntro)
	r.Post("/reset", h.Reset)
	r.Put("/language", h.SetLanguage)
	return r
}

// GetState handles GET /api/flow/route.
func (h *FlowHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state := h.gate.State()
	language, _ := h.kv.GetString(store.KeyLanguage)

	render.JSON(w, r, FlowStateResponse{
		Route:          state.Route,
		IntroSeen:      state.IntroSeen,
		Validity:       state.Validity,
		SessionPresent: state.SessionPresent,
		Language:       language,
	})
}

// CompleteIntro handles POST /api/flow/intro/complete. The flag is persisted
// before the gate sees the transition.
func (h *FlowHandler) CompleteIntro(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.kv.SetBool(store.KeyIntroSeen, true); err != nil {
		h.logger.ErrorContext(ctx, "failed to persist intro flag",
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInternalServer))
		return
	}

	route := h.gate.Apply(flow.IntroCompleted{})
	render.JSON(w, r, map[string]any{"success": true, "route": route})
}

// Reset handles POST /api/flow/reset: the explicit "reset app flow" operation
// that clears all persisted flow slices and returns the gate to a fresh
// install state. The device id survives; only a storage wipe regenerates it.
func (h *FlowHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.kv.Wipe(store.FlowKeys...); err != nil {
		h.logger.ErrorContext(ctx, "failed to wipe flow slices",
			slog.String("error", err.Error()))
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInternalServer))
		return
	}

	if h.sessions != nil {
		// Storage is already wiped; only the in-memory session remains. The
		// FlowReset below is the sole gate event, so subscribers see exactly
		// one route change.
		h.sessions.Clear()
	}
	if h.validator != nil {
		h.validator.Reset()
	}

	route := h.gate.Apply(flow.FlowReset{})
	h.logger.InfoContext(ctx, "app flow reset")
	render.JSON(w, r, map[string]any{"success": true, "route": route})
}

// SetLanguage handles PUT /api/flow/language.
func (h *FlowHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req LanguageRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidRequestWithError(err)))
		return
	}
	if err := validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrValidation("language", err.Error())))
		return
	}

	if err := h.kv.SetString(store.KeyLanguage, req.Language); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrInternalServer))
		return
	}
	render.JSON(w, r, map[string]any{"success": true, "language": req.Language})
}
