// Package session persists and restores the authenticated employee record.
// The persisted record is the single source of truth for "is an employee
// currently signed in"; role flags are projections on the Employee type and
// are recomputed on every read.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"lemonpos/internal/flow"
	"lemonpos/internal/store"
	"lemonpos/pkg/contracts/domain"
)

// Store owns the employee slice of the persisted store.
type Store struct {
	kv     *store.Store
	gate   *flow.Gate
	logger *slog.Logger

	mu      sync.RWMutex
	current *domain.Employee
}

// NewStore constructs a session Store.
func NewStore(kv *store.Store, gate *flow.Gate, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		gate:   gate,
		logger: logger.With(slog.String("component", "session")),
	}
}

// Restore loads a persisted employee record into memory. Corrupt or absent
// records mean "no session", never a fatal error. It does not publish a gate
// event; the boot sequence reports session presence through SlicesLoaded.
func (s *Store) Restore(ctx context.Context) bool {
	var employee domain.Employee
	if !s.kv.GetJSON(store.KeyEmployee, &employee) {
		return false
	}

	s.mu.Lock()
	s.current = &employee
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "employee session restored",
		slog.Int64("employee_id", employee.ID),
		slog.String("role", string(employee.Role)))
	return true
}

// Login persists the employee record, then exposes the session to the gate.
// The write precedes the in-memory transition so a crash between the two can
// never leave memory ahead of storage.
func (s *Store) Login(ctx context.Context, employee domain.Employee) error {
	if err := s.kv.SetJSON(store.KeyEmployee, employee); err != nil {
		return fmt.Errorf("failed to persist employee session: %w", err)
	}

	s.mu.Lock()
	s.current = &employee
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "employee signed in",
		slog.Int64("employee_id", employee.ID),
		slog.String("role", string(employee.Role)))

	if s.gate != nil {
		s.gate.Apply(flow.SessionChanged{Present: true})
	}
	return nil
}

// Logout clears the persisted record and the in-memory session.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.kv.Delete(store.KeyEmployee); err != nil {
		return fmt.Errorf("failed to clear employee session: %w", err)
	}

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "employee signed out")

	if s.gate != nil {
		s.gate.Apply(flow.SessionChanged{Present: false})
	}
	return nil
}

// Clear drops the in-memory session without touching storage or the gate.
// Used by the app-flow reset, where the slices are already wiped and a single
// FlowReset event follows; a SessionChanged here would broadcast a transient
// intermediate route.
func (s *Store) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns the signed-in employee, if any.
func (s *Store) Current() (domain.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Employee{}, false
	}
	return *s.current, true
}
