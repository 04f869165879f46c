package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemonpos/internal/flow"
	"lemonpos/internal/store"
	"lemonpos/pkg/contracts/domain"
)

func newTestStore(t *testing.T) (*Store, *store.Store, *flow.Gate) {
	t.Helper()
	kv, err := store.New(t.TempDir(), slog.Default())
	require.NoError(t, err)

	gate := flow.NewGate(slog.Default())
	gate.Apply(flow.SlicesLoaded{IntroSeen: true})
	gate.Apply(flow.ValidityChanged{Validity: domain.Validity{State: domain.ValidityValid}})

	return NewStore(kv, gate, slog.Default()), kv, gate
}

func branch(id int64) *int64 { return &id }

func TestLoginPersistsAndRoutesToMain(t *testing.T) {
	s, kv, gate := newTestStore(t)
	require.Equal(t, flow.RouteLogin, gate.Route())

	employee := domain.Employee{
		ID: 7, Name: "Nadia", Role: domain.RoleManager,
		BranchID: branch(2), Permissions: []string{"refunds"},
	}
	require.NoError(t, s.Login(context.Background(), employee))

	// Persisted record is the source of truth.
	var persisted domain.Employee
	require.True(t, kv.GetJSON(store.KeyEmployee, &persisted))
	assert.Equal(t, int64(7), persisted.ID)

	current, ok := s.Current()
	require.True(t, ok)
	assert.True(t, current.CanManage())
	assert.False(t, current.IsAdmin())
	assert.Equal(t, flow.RouteMain, gate.Route())
}

func TestLogoutClearsEverything(t *testing.T) {
	s, kv, gate := newTestStore(t)

	require.NoError(t, s.Login(context.Background(), domain.Employee{ID: 3, Role: domain.RoleCashier}))
	require.Equal(t, flow.RouteMain, gate.Route())

	require.NoError(t, s.Logout(context.Background()))

	var persisted domain.Employee
	assert.False(t, kv.GetJSON(store.KeyEmployee, &persisted), "no persisted record after logout")
	_, ok := s.Current()
	assert.False(t, ok)
	assert.Equal(t, flow.RouteLogin, gate.Route())
}

func TestRestore(t *testing.T) {
	s, kv, _ := newTestStore(t)
	require.NoError(t, kv.SetJSON(store.KeyEmployee, domain.Employee{ID: 4, Role: domain.RoleAdmin}))

	assert.True(t, s.Restore(context.Background()))
	current, ok := s.Current()
	require.True(t, ok)
	assert.True(t, current.IsAdmin())
	assert.True(t, current.CanManage())
}

func TestRestoreCorruptRecordMeansNoSession(t *testing.T) {
	kv, err := store.New(t.TempDir(), slog.Default())
	require.NoError(t, err)
	s := NewStore(kv, flow.NewGate(slog.Default()), slog.Default())

	dir := t.TempDir()
	kv2, err := store.New(dir, slog.Default())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.KeyEmployee+".dat"), []byte("garbage"), 0o644))
	s2 := NewStore(kv2, flow.NewGate(slog.Default()), slog.Default())

	assert.False(t, s.Restore(context.Background()))
	assert.False(t, s2.Restore(context.Background()))
	_, ok := s2.Current()
	assert.False(t, ok)
}

func TestRoleProjections(t *testing.T) {
	tests := []struct {
		role      domain.Role
		isAdmin   bool
		isManager bool
		isCashier bool
		canManage bool
	}{
		{domain.RoleOwner, true, false, false, true},
		{domain.RoleAdmin, true, false, false, true},
		{domain.RoleManager, false, true, false, true},
		{domain.RoleCashier, false, false, true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			e := domain.Employee{Role: tt.role}
			assert.Equal(t, tt.isAdmin, e.IsAdmin())
			assert.Equal(t, tt.isManager, e.IsManager())
			assert.Equal(t, tt.isCashier, e.IsCashier())
			assert.Equal(t, tt.canManage, e.CanManage())
		})
	}
}
