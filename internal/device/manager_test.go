package device

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemonpos/internal/store"
)

type stubSource struct {
	id  string
	err error
}

func (s stubSource) DeviceID() (string, error) { return s.id, s.err }

func newTestManager(t *testing.T, source Source) (*Manager, *store.Store) {
	t.Helper()
	kv, err := store.New(t.TempDir(), slog.Default())
	require.NoError(t, err)
	return NewManager(kv, source, slog.Default()), kv
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t, stubSource{id: "hw-fixed"})
	ctx := context.Background()

	first := m.GetOrCreate(ctx)
	second := m.GetOrCreate(ctx)

	assert.Equal(t, "hw-fixed", first)
	assert.Equal(t, first, second)
}

func TestGetOrCreatePersistedValueWins(t *testing.T) {
	m, kv := newTestManager(t, stubSource{id: "hw-new"})
	require.NoError(t, kv.SetString(store.KeyDeviceID, "hw-old"))

	assert.Equal(t, "hw-old", m.GetOrCreate(context.Background()))
}

func TestGetOrCreateFallsBackWhenSourceFails(t *testing.T) {
	m, _ := newTestManager(t, stubSource{err: errors.New("no platform identity")})

	id := m.GetOrCreate(context.Background())
	assert.True(t, strings.HasPrefix(id, "gen-"), "expected generated id, got %q", id)

	// And the fallback value is persisted, so it stays stable.
	assert.Equal(t, id, m.GetOrCreate(context.Background()))
}

func TestStorageWipeRegeneratesID(t *testing.T) {
	m, kv := newTestManager(t, GeneratedSource{})
	ctx := context.Background()

	first := m.GetOrCreate(ctx)
	require.NoError(t, kv.Delete(store.KeyDeviceID))
	second := m.GetOrCreate(ctx)

	assert.NotEqual(t, first, second)
}

func TestGeneratedSourceNeverFails(t *testing.T) {
	id, err := GeneratedSource{}.DeviceID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "gen-"))
}

func TestSourceFor(t *testing.T) {
	assert.IsType(t, HardwareSource{}, SourceFor("hardware"))
	assert.IsType(t, GeneratedSource{}, SourceFor("generated"))
	assert.IsType(t, autoSource{}, SourceFor("auto"))
	assert.IsType(t, autoSource{}, SourceFor(""))
}
