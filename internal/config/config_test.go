package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no citelink.yaml is found
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "citelink.db", cfg.Store.DatabaseURL)
	assert.False(t, cfg.Tokenizer.Enabled)
	assert.True(t, cfg.Lookup.Enabled)
	assert.InDelta(t, 5.0, cfg.Lookup.RatePerSecond, 0.001)
	assert.Equal(t, 3, cfg.Lookup.MaxInflight)
	assert.False(t, cfg.Assist.Enabled)
	assert.Equal(t, 0, cfg.Pipeline.AttributionWorkers)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 60, cfg.Server.RequestTimeout)
	assert.Equal(t, int64(16<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/citelink
log:
  level: debug
  format: console
lookup:
  max_inflight: 8
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "citelink.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/citelink", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 8, cfg.Lookup.MaxInflight)
	// Defaults still apply for unset values
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chtemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "citelink.yaml"), []byte(yaml), 0644))

	t.Setenv("CITELINK_STORE_DRIVER", "postgres")
	t.Setenv("CITELINK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)

	t.Setenv("CITELINK_SERVER_ADDR", ":3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "citelink.db"
	cfg.Lookup.Enabled = true
	cfg.Lookup.RatePerSecond = 5
	cfg.Lookup.MaxInflight = 3
	cfg.Server.Addr = ":8080"
	cfg.Server.RequestTimeout = 60
	cfg.Server.MaxBodyBytes = 16 << 20
	return cfg
}

func TestValidateExtract_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("extract"))
}

func TestValidateExtract_MissingDatabaseURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("extract")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateExtract_StoreNoneNeedsNoURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "none"
	cfg.Store.DatabaseURL = ""

	assert.NoError(t, cfg.Validate("extract"))
}

func TestValidateExtract_BadDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("extract")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestValidateLookupBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Lookup.RatePerSecond = 0
	err := cfg.Validate("extract")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "lookup.rate_per_second must be > 0")

	cfg.Lookup.RatePerSecond = 5
	cfg.Lookup.MaxInflight = 0
	err = cfg.Validate("extract")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "lookup.max_inflight must be between 1 and 32")

	cfg.Lookup.MaxInflight = 33
	err = cfg.Validate("extract")
	assert.Error(t, err)

	// Disabled lookup skips the bounds checks entirely.
	cfg.Lookup.Enabled = false
	assert.NoError(t, cfg.Validate("extract"))
}

func TestValidateAssistNeedsKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Assist.Enabled = true

	err := cfg.Validate("extract")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "assist.key is required")

	cfg.Assist.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate("extract"))
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Addr = ""
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.addr is required")

	cfg.Server.Addr = ":8080"
	cfg.Server.RequestTimeout = 0
	err = cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.request_timeout_seconds must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
