// Package shift implements the post-login check that a work shift is open
// before the employee starts transacting. It never blocks entry into the main
// app; it only offers a prompt.
package shift

import (
	"context"
	"log/slog"
	"sync"

	"lemonpos/internal/backend"
	"lemonpos/pkg/contracts/domain"
)

// Phase is the shift flow state:
//
//	AwaitingCheck -> {Prompt -> {Started, Skipped}, HasShift}
type Phase string

const (
	PhaseAwaitingCheck Phase = "awaiting_check"
	PhaseHasShift      Phase = "has_shift"
	PhasePrompt        Phase = "prompt"
	PhaseStarted       Phase = "started"
	PhaseSkipped       Phase = "skipped"
)

// BackendClient is the slice of the backend client the shift gate needs.
type BackendClient interface {
	ActiveShift(ctx context.Context, employeeID int64) (*domain.Shift, error)
	CreateShift(ctx context.Context, req backend.CreateShiftRequest) (*domain.Shift, error)
}

// Gate runs the shift side-flow for the signed-in employee.
type Gate struct {
	client BackendClient
	logger *slog.Logger

	mu    sync.Mutex
	phase Phase
	shift *domain.Shift
}

// NewGate constructs a Gate in the awaiting-check phase.
func NewGate(client BackendClient, logger *slog.Logger) *Gate {
	return &Gate{
		client: client,
		logger: logger.With(slog.String("component", "shift")),
		phase:  PhaseAwaitingCheck,
	}
}

// Check queries the backend for the employee's open shift.
//
// An open shift moves straight to HasShift; none moves to Prompt so the UI
// offers the shift-start dialog. A query failure is swallowed: the flow
// proceeds as if no shift existed but without forcing the prompt (fail-open).
func (g *Gate) Check(ctx context.Context, employeeID int64) Phase {
	shift, err := g.client.ActiveShift(ctx, employeeID)

	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case err != nil:
		g.logger.WarnContext(ctx, "shift query failed, proceeding without prompt",
			slog.Int64("employee_id", employeeID),
			slog.String("error", err.Error()))
		g.phase = PhaseSkipped
		g.shift = nil
	case shift != nil:
		g.logger.InfoContext(ctx, "open shift found",
			slog.Int64("employee_id", employeeID),
			slog.Int64("shift_id", shift.ID))
		g.phase = PhaseHasShift
		g.shift = shift
	default:
		g.phase = PhasePrompt
		g.shift = nil
	}
	return g.phase
}

// Start opens a shift with the declared opening cash amount and proceeds
// regardless of the call's outcome.
func (g *Gate) Start(ctx context.Context, employeeID int64, branchID *int64, openingCash string) Phase {
	shift, err := g.client.CreateShift(ctx, backend.CreateShiftRequest{
		EmployeeID:  employeeID,
		BranchID:    branchID,
		OpeningCash: openingCash,
	})
	if err != nil {
		g.logger.WarnContext(ctx, "shift creation failed, proceeding anyway",
			slog.Int64("employee_id", employeeID),
			slog.String("error", err.Error()))
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.phase = PhaseStarted
	g.shift = shift
	return g.phase
}

// Skip proceeds to the main app without creating a shift.
func (g *Gate) Skip() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.phase = PhaseSkipped
	g.shift = nil
	return g.phase
}

// Reset returns the gate to the awaiting-check phase. Called on login and
// logout so each session runs its own check.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.phase = PhaseAwaitingCheck
	g.shift = nil
}

// Status returns the current phase and the observed shift, if any.
func (g *Gate) Status() (Phase, *domain.Shift) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase, g.shift
}
