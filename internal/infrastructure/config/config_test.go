package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "ws://localhost:9001/ws", cfg.Remote.URL)

	assert.Equal(t, 60*time.Second, cfg.Load.WatchdogTimeout)
	assert.Equal(t, time.Hour, cfg.Load.FailureWindow)
	assert.Equal(t, 2, cfg.Load.SoftBlockAfter)
	assert.Equal(t, 3, cfg.Load.HardBlockAfter)
	assert.Equal(t, 200*time.Millisecond, cfg.Load.ScrollThrottle)

	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, []string{"stdout"}, cfg.Logging.Outputs)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Load, cfg.Load)
	assert.Equal(t, def.Viewport, cfg.Viewport)
	assert.Equal(t, def.Remote, cfg.Remote)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                  "9000",
		"REMOTE_WS_URL":         "ws://splash:9001/ws",
		"PROJECT":               "p.1",
		"SPIDER":                "s.1",
		"LOAD_WATCHDOG_TIMEOUT": "5s",
		"REMOTE_REDIAL_MAX":     "2m",
		"STORAGE_DRIVER":        "memory",
		"LOG_LEVEL":             "debug",
		"RATE_LIMIT_ENABLED":    "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "ws://splash:9001/ws", cfg.Remote.URL)
	assert.Equal(t, "p.1", cfg.Identity.Project)
	assert.Equal(t, "s.1", cfg.Identity.Spider)
	assert.Equal(t, 5*time.Second, cfg.Load.WatchdogTimeout)
	assert.Equal(t, time.Second, cfg.Remote.RedialMin)
	assert.Equal(t, 2*time.Minute, cfg.Remote.RedialMax)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("LOAD_WATCHDOG_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browsersync.yaml")
	content := `
server:
  port: "7000"
identity:
  project: shop
  spider: products
load:
  watchdog_timeout: 15s
storage:
  driver: memory
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "shop", cfg.Identity.Project)
	assert.Equal(t, "products", cfg.Identity.Spider)
	assert.Equal(t, 15*time.Second, cfg.Load.WatchdogTimeout)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	// untouched sections keep their defaults
	assert.Equal(t, time.Hour, cfg.Load.FailureWindow)
	assert.Equal(t, 1280, cfg.Viewport.Width)
}

func TestLoadFileEnvironmentWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browsersync.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"7000\"\n"), 0o644))
	t.Setenv("PORT", "7100")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Server.Port)
}

func TestLoadFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "browsersync.toml")
	content := `
[identity]
project = "shop"
spider = "products"

[viewport]
width = 1024
height = 768
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.Identity.Project)
	assert.Equal(t, 1024, cfg.Viewport.Width)
	assert.Equal(t, 768, cfg.Viewport.Height)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "browsersync.ini")
	require.NoError(t, os.WriteFile(path, []byte("port=1"), 0o644))
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "unsupported config file extension")
}
