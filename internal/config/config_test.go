package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "https://api.lemonpos.cloud", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, "auto", cfg.Device.Source)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("POS_SERVER_PORT", "9100")
	t.Setenv("POS_BACKEND_BASE_URL", "https://staging.lemonpos.cloud")
	t.Setenv("POS_DEVICE_SOURCE", "generated")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "https://staging.lemonpos.cloud", cfg.Backend.BaseURL)
	assert.Equal(t, "generated", cfg.Device.Source)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"empty backend", func(c *Config) { c.Backend.BaseURL = "" }, "backend base URL"},
		{"bad timeout", func(c *Config) { c.Backend.Timeout = 0 }, "timeout must be positive"},
		{"bad device source", func(c *Config) { c.Device.Source = "cloud" }, "invalid device source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateNormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.FilePath = ""
	cfg.Paths.LogsDir = "/var/log/lemonpos"

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, filepath.Join("/var/log/lemonpos", "terminal.log"), cfg.Logging.FilePath)
}

func TestResolvePaths(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.resolvePaths())

	assert.True(t, filepath.IsAbs(cfg.Paths.DataDir))
	assert.True(t, filepath.IsAbs(cfg.Paths.LogsDir))
}
