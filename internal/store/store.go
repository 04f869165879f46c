// Package store persists the terminal's local state slices as an opaque
// key/value store. Each key is independently readable and writable; keys are
// not transactional with each other. Atomicity across slices is the
// responsibility of the components that own them.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Well-known keys. Each slice has exactly one writer component.
const (
	KeyIntroSeen  = "intro_seen"
	KeyDeviceID   = "device_id"
	KeyLicenseKey = "license_key"
	KeyOwnerEmail = "owner_email"
	KeyEmployee   = "employee"
	KeyLanguage   = "language"
)

// FlowKeys are the slices cleared by an explicit "reset app flow" operation.
var FlowKeys = []string{KeyIntroSeen, KeyLicenseKey, KeyOwnerEmail, KeyEmployee}

// Store is a file-per-key local store. Writes are durable before they return:
// the value is written to a temp file, synced, then renamed into place, so a
// crash never leaves a half-written slice behind.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// New creates the backing directory if needed and returns a Store.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With(slog.String("component", "store")),
	}, nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".dat")
}

// GetString returns the raw value for key, or ok=false when the key is absent
// or unreadable. Unreadable slices are treated as absence, never as a fatal
// error.
func (s *Store) GetString(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("unreadable slice treated as absent",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return "", false
	}
	return string(data), true
}

// SetString durably writes the value for key.
func (s *Store) SetString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(key, []byte(value))
}

// Delete removes the slice for key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// GetBool reads a boolean slice; absent or malformed values read as false.
func (s *Store) GetBool(key string) bool {
	v, ok := s.GetString(key)
	return ok && v == "true"
}

// SetBool durably writes a boolean slice.
func (s *Store) SetBool(key string, value bool) error {
	if value {
		return s.SetString(key, "true")
	}
	return s.SetString(key, "false")
}

// GetJSON unmarshals the slice for key into v. Corrupt records are logged and
// treated as absence.
func (s *Store) GetJSON(key string, v any) bool {
	raw, ok := s.GetString(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("corrupt slice treated as absent",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// SetJSON durably writes v as the slice for key.
func (s *Store) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal key %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(key, data)
}

// Wipe deletes the given keys. Used only by the explicit "reset app flow"
// operation; partial failure stops at the first error so the caller can
// surface it.
func (s *Store) Wipe(keys ...string) error {
	for _, key := range keys {
		if err := s.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeLocked(key string, data []byte) error {
	target := s.path(key)
	tmp, err := os.CreateTemp(s.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for key %s: %w", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync key %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for key %s: %w", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace key %s: %w", key, err)
	}
	return nil
}
