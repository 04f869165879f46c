// Package middleware contains the HTTP middleware guarding the business API
// surface behind the authorization gate.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "lemonpos/internal/errors"
	"lemonpos/internal/flow"
	"lemonpos/internal/infrastructure"
)

// FlowGuard rejects requests to protected paths unless the routing gate has
// resolved to Main. It is what keeps a business screen from loading behind a
// suspended, unlicensed or signed-out terminal.
type FlowGuard struct {
	gate            *flow.Gate
	logger          *slog.Logger
	excludePaths    map[string]bool
	excludePrefixes []string
}

// NewFlowGuard creates the guard. The flow, license, auth and shift endpoints
// themselves stay reachable; they are how the terminal gets back to Main.
func NewFlowGuard(gate *flow.Gate, logger *slog.Logger) *FlowGuard {
	return &FlowGuard{
		gate:   gate,
		logger: logger.With(slog.String("component", "flow_guard")),
		excludePaths: map[string]bool{
			"/":            true,
			"/metrics":     true,
			"/ws":          true,
			"/api/health":  true,
			"/favicon.ico": true,
		},
		excludePrefixes: []string{
			"/api/flow/",
			"/api/license/",
			"/api/auth/",
			"/api/shift/",
			"/static/",
		},
	}
}

// Handler returns the middleware handler function.
func (g *FlowGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.shouldExclude(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		route := g.gate.Route()
		if route == flow.RouteMain {
			next.ServeHTTP(w, r)
			return
		}

		ctx := infrastructure.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		g.logger.WarnContext(ctx, "blocked request outside main route",
			slog.String("path", r.URL.Path),
			slog.String("route", string(route)))

		apiErr := apierrors.NewWithDetails(
			http.StatusForbidden,
			"FLOW_BLOCKED",
			"Terminal is not authorized for this screen",
			map[string]string{"route": string(route)},
		)
		render.Render(w, r, apierrors.NewErrorResponse(apiErr))
	})
}

func (g *FlowGuard) shouldExclude(path string) bool {
	if g.excludePaths[path] {
		return true
	}
	for _, prefix := range g.excludePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
