// Package app assembles the terminal: configuration, observability, the
// persisted slices, the flow gate and the HTTP surface, with a race-free boot
// sequence.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"lemonpos/internal/backend"
	"lemonpos/internal/config"
	"lemonpos/internal/device"
	"lemonpos/internal/flow"
	"lemonpos/internal/infrastructure"
	"lemonpos/internal/license"
	custommiddleware "lemonpos/internal/middleware"
	"lemonpos/internal/session"
	"lemonpos/internal/shift"
	"lemonpos/internal/store"
	transport "lemonpos/internal/transport/http"
	ws "lemonpos/internal/websocket"
)

const AppName = "Lemon POS Terminal"

// Application is the main application container.
type Application struct {
	Config   *config.Config
	Logger   *slog.Logger
	Router   *chi.Mux
	Server   *http.Server
	OTel     *infrastructure.OTelProviders
	Store    *store.Store
	Devices  *device.Manager
	Backend  *backend.Client
	Gate     *flow.Gate
	License  *license.Validator
	Sessions *session.Store
	Shifts   *shift.Gate
	Hub      *ws.Hub
}

// New creates the application with all dependencies wired.
func New(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("name", AppName),
		slog.String("backend", cfg.Backend.BaseURL))

	otelProviders, err := infrastructure.InitializeOTel(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	kv, err := store.New(cfg.Paths.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	gate := flow.NewGate(logger)
	if metrics, err := flow.NewMetrics(otelProviders.Meter); err == nil {
		gate.SetMetrics(metrics)
	}

	client := backend.New(cfg.Backend, logger)
	devices := device.NewManager(kv, device.SourceFor(cfg.Device.Source), logger)

	validator := license.NewValidator(kv, client, gate, logger)
	if metrics, err := license.NewMetrics(otelProviders.Meter); err == nil {
		validator.SetMetrics(metrics)
	}

	app := &Application{
		Config:   cfg,
		Logger:   logger,
		OTel:     otelProviders,
		Store:    kv,
		Devices:  devices,
		Backend:  client,
		Gate:     gate,
		License:  validator,
		Sessions: session.NewStore(kv, gate, logger),
		Shifts:   shift.NewGate(client, logger),
		Hub:      ws.NewHub(gate, logger),
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// Bootstrap resolves the persisted slices and starts license revalidation.
//
// Ordering: the device id resolves before any validation that needs it; the
// intro flag and session restore complete before the gate leaves Suspend.
// Revalidation of a cached key runs in the background, so the first
// non-Suspend route may still be Suspend-by-validity until it resolves.
func (a *Application) Bootstrap(ctx context.Context) error {
	var (
		introSeen      bool
		sessionPresent bool
		deviceID       string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		introSeen = a.Store.GetBool(store.KeyIntroSeen)
		return nil
	})
	g.Go(func() error {
		sessionPresent = a.Sessions.Restore(gctx)
		return nil
	})
	g.Go(func() error {
		deviceID = a.Devices.GetOrCreate(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	a.Gate.Apply(flow.SlicesLoaded{
		IntroSeen:      introSeen,
		SessionPresent: sessionPresent,
	})

	// With a cached key this flips validity to Validating immediately, so
	// the gate suspends rather than flashing a stale screen while the
	// network round-trip is in flight.
	go a.License.Bootstrap(context.WithoutCancel(ctx), deviceID)

	return nil
}

// setupRouter builds the HTTP surface.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(custommiddleware.NewFlowGuard(a.Gate, a.Logger).Handler)

	flowHandler := transport.NewFlowHandler(a.Gate, a.Store, a.License, a.Sessions, a.Logger)
	licenseHandler := transport.NewLicenseHandler(a.License, a.Devices, a.Logger)
	authHandler := transport.NewAuthHandler(a.Backend, a.Sessions, a.Shifts, a.Logger)
	if metrics, err := transport.NewMetrics(a.OTel.Meter); err == nil {
		authHandler.SetMetrics(metrics)
	}
	shiftHandler := transport.NewShiftHandler(a.Shifts, a.Sessions, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			render.JSON(w, req, map[string]string{"status": "ok"})
		})
		r.Mount("/flow", flowHandler.Routes())
		r.Mount("/license", licenseHandler.Routes())
		r.Mount("/auth", authHandler.Routes())
		r.Mount("/shift", shiftHandler.Routes())
	})

	r.Handle("/metrics", a.OTel.PrometheusHTTP)
	r.Get("/ws", a.Hub.ServeHTTP)

	a.Router = r
}

// createServer creates the HTTP server.
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run boots the terminal and serves until interrupted.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	go a.Hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	if err := a.OTel.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("otel shutdown failed", slog.String("error", err.Error()))
	}
	infrastructure.CloseLogFile()

	return nil
}
