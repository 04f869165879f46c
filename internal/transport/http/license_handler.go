package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lemonpos/internal/device"
	apierrors "lemonpos/internal/errors"
	"lemonpos/internal/license"
	"lemonpos/pkg/contracts/domain"
)

// LicenseHandler handles license activation and status requests.
type LicenseHandler struct {
	validator *license.Validator
	devices   *device.Manager
	logger    *slog.Logger
}

// NewLicenseHandler creates a new license handler.
func NewLicenseHandler(v *license.Validator, devices *device.Manager, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		validator: v,
		devices:   devices,
		logger:    logger.With(slog.String("handler", "license")),
	}
}

// ActivationRequest is the license activation payload. Email and password are
// carried only on first-time activation flows.
type ActivationRequest struct {
	LicenseKey string `json:"license_key" validate:"required,min=5"`
	Email      string `json:"email" validate:"omitempty,email"`
	Password   string `json:"password" validate:"omitempty,min=6"`
}

// ActivationResponse reports the validation outcome plus the resulting record.
type ActivationResponse struct {
	Success bool                 `json:"success"`
	Record  domain.LicenseRecord `json:"record"`
}

// Routes returns a chi router for license endpoints.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Timeout(30 * time.Second))
	r.Get("/status", h.GetStatus)
	r.Post("/activate", h.Activate)
	return r
}

// GetStatus handles GET /api/license/status.
func (h *LicenseHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.validator.Record())
}

// Activate handles POST /api/license/activate: a manual validation attempt
// from the license gate screen.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("license-handler")

	ctx, span := tracer.Start(ctx, "license_handler.activate",
		trace.WithAttributes(
			attribute.String("http.route", "/api/license/activate"),
			attribute.String("component", "license_handler"),
		),
	)
	defer span.End()

	var req ActivationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.InvalidRequestWithError(err)))
		return
	}
	if err := validate.Struct(&req); err != nil {
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.ErrValidation("license_key", err.Error())))
		return
	}

	deviceID := h.devices.GetOrCreate(ctx)
	start := time.Now()
	ok, err := h.validator.Validate(ctx, req.LicenseKey, deviceID, req.Email, req.Password)
	span.SetAttributes(
		attribute.Bool("license.valid", ok),
		attribute.Int64("request.latency_ms", time.Since(start).Milliseconds()),
	)

	record := h.validator.Record()
	if !ok {
		if err != nil {
			span.RecordError(err)
			// Connectivity failure: the reason names the unreachable endpoint.
			render.Render(w, r, apierrors.NewErrorResponse(apierrors.NewWithDetails(
				http.StatusServiceUnavailable,
				domain.ErrCodeNetworkError,
				record.Validity.Reason,
				nil,
			)))
			return
		}
		render.Render(w, r, apierrors.NewErrorResponse(apierrors.NewWithDetails(
			http.StatusUnprocessableEntity,
			domain.ErrCodeInvalidLicense,
			record.Validity.Reason,
			nil,
		)))
		return
	}

	h.logger.InfoContext(ctx, "license activated",
		slog.String("device_id", deviceID))
	render.JSON(w, r, ActivationResponse{Success: true, Record: record})
}
