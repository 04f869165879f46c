package device

import (
	"context"
	"log/slog"

	"lemonpos/internal/store"
)

// Manager resolves and persists the installation's device identifier.
type Manager struct {
	store  *store.Store
	source Source
	logger *slog.Logger
}

// NewManager constructs a Manager over the given persisted store and source.
func NewManager(st *store.Store, source Source, logger *slog.Logger) *Manager {
	return &Manager{
		store:  st,
		source: source,
		logger: logger.With(slog.String("component", "device")),
	}
}

// GetOrCreate returns the persisted device id, creating and persisting one on
// first call. It is idempotent: repeated calls without an intervening storage
// wipe return the identical value. It never fails; if the platform source and
// even persistence fail, the generated identifier is still returned so license
// validation can proceed.
func (m *Manager) GetOrCreate(ctx context.Context) string {
	if id, ok := m.store.GetString(store.KeyDeviceID); ok && id != "" {
		return id
	}

	id, err := m.source.DeviceID()
	if err != nil {
		m.logger.WarnContext(ctx, "device source failed, using generated identity",
			slog.String("error", err.Error()))
		// GeneratedSource never fails.
		id, _ = GeneratedSource{}.DeviceID()
	}

	if err := m.store.SetString(store.KeyDeviceID, id); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist device id",
			slog.String("error", err.Error()))
	}

	m.logger.InfoContext(ctx, "device id created",
		slog.String("device_id", id))

	return id
}
