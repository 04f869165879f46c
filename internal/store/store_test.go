package store

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), slog.Default())
	require.NoError(t, err)
	return s
}

func TestStringRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, ok := s.GetString(KeyLicenseKey)
	assert.False(t, ok)

	require.NoError(t, s.SetString(KeyLicenseKey, "LEMON-ABC"))
	got, ok := s.GetString(KeyLicenseKey)
	require.True(t, ok)
	assert.Equal(t, "LEMON-ABC", got)

	require.NoError(t, s.Delete(KeyLicenseKey))
	_, ok = s.GetString(KeyLicenseKey)
	assert.False(t, ok)
}

func TestDeleteAbsentKeyIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Delete("never_written"))
}

func TestBoolSlice(t *testing.T) {
	s := newTestStore(t)

	assert.False(t, s.GetBool(KeyIntroSeen))
	require.NoError(t, s.SetBool(KeyIntroSeen, true))
	assert.True(t, s.GetBool(KeyIntroSeen))
	require.NoError(t, s.SetBool(KeyIntroSeen, false))
	assert.False(t, s.GetBool(KeyIntroSeen))
}

func TestJSONSlice(t *testing.T) {
	type record struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	s := newTestStore(t)

	var out record
	assert.False(t, s.GetJSON(KeyEmployee, &out))

	require.NoError(t, s.SetJSON(KeyEmployee, record{ID: 7, Name: "Nadia"}))
	require.True(t, s.GetJSON(KeyEmployee, &out))
	assert.Equal(t, int64(7), out.ID)
	assert.Equal(t, "Nadia", out.Name)
}

func TestCorruptJSONTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, slog.Default())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, KeyEmployee+".dat"), []byte("{not json"), 0o644))

	var out map[string]any
	assert.False(t, s.GetJSON(KeyEmployee, &out))
}

func TestWipeClearsFlowSlicesOnly(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SetBool(KeyIntroSeen, true))
	require.NoError(t, s.SetString(KeyLicenseKey, "LEMON-ABC"))
	require.NoError(t, s.SetString(KeyDeviceID, "hw-abc"))

	require.NoError(t, s.Wipe(FlowKeys...))

	assert.False(t, s.GetBool(KeyIntroSeen))
	_, ok := s.GetString(KeyLicenseKey)
	assert.False(t, ok)

	// The device id survives a flow reset; only a storage wipe regenerates it.
	id, ok := s.GetString(KeyDeviceID)
	require.True(t, ok)
	assert.Equal(t, "hw-abc", id)
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, slog.Default())
	require.NoError(t, err)

	require.NoError(t, s.SetString(KeyLanguage, "ar"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, KeyLanguage+".dat", entries[0].Name())
}
