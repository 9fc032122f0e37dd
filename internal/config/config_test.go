package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planevent/geocoder/internal/cache"
	"github.com/planevent/geocoder/internal/config"
	"github.com/planevent/geocoder/internal/geocode"
	"github.com/planevent/geocoder/internal/logging"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvHome, dir)
	for _, key := range []string{
		config.EnvProviderURL, config.EnvUserAgent, config.EnvMinInterval,
		config.EnvCacheBackend, config.EnvCachePath, cache.EnvExpiry,
		config.EnvRedisAddr, config.EnvRedisDB, config.EnvLogLevel,
		config.EnvLogFormat, config.EnvLogFile, config.EnvServerAddr,
		config.EnvEventsURL, config.EnvEventsToken,
	} {
		t.Setenv(key, "")
	}
	return dir
}

// writeConfig is a test helper that writes YAML content to a temp file
// and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNew_Defaults(t *testing.T) {
	dir := isolate(t)
	cfg := config.New()

	assert.Equal(t, geocode.DefaultNominatimURL, cfg.Provider.BaseURL)
	assert.Equal(t, "France", cfg.Provider.RegionHint)
	assert.Equal(t, 1100*time.Millisecond, cfg.Provider.MinInterval)
	assert.Equal(t, config.BackendFile, cfg.Cache.Backend)
	assert.Equal(t, filepath.Join(dir, "cache.json"), cfg.Cache.Path)
	assert.Equal(t, "@daily", cfg.Cache.PurgeSchedule)
	assert.Equal(t, cache.DefaultRedisKey, cfg.Cache.Redis.Key)

	expiry, err := cfg.Cache.ExpiryDuration()
	require.NoError(t, err)
	assert.Equal(t, cache.DefaultExpiry, expiry)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	isolate(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.BackendFile, cfg.Cache.Backend)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
provider:
  region_hint: Belgique
  min_interval: 2s
cache:
  backend: redis
  expiry: 7d
  redis:
    addr: redis.internal:6379
    db: 2
logging:
  level: debug
  format: json
server:
  addr: 0.0.0.0:9090
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Belgique", cfg.Provider.RegionHint)
	assert.Equal(t, 2*time.Second, cfg.Provider.MinInterval)
	assert.Equal(t, geocode.DefaultNominatimURL, cfg.Provider.BaseURL, "absent keys keep defaults")
	assert.Equal(t, geocode.DefaultTimeout, cfg.Provider.Timeout)
	assert.Equal(t, config.BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, cache.DefaultRedisKey, cfg.Cache.Redis.Key)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr)

	expiry, err := cfg.Cache.ExpiryDuration()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, expiry)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
cache:
  backend: file
logging:
  level: warn
`)
	t.Setenv(config.EnvCacheBackend, "memory")
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(cache.EnvExpiry, "12h")
	t.Setenv(config.EnvMinInterval, "500ms")
	t.Setenv(config.EnvEventsURL, "https://planevent.example/api/events")
	t.Setenv(config.EnvEventsToken, "secret")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "12h", cfg.Cache.Expiry)
	assert.Equal(t, 500*time.Millisecond, cfg.Provider.MinInterval)
	assert.Equal(t, "https://planevent.example/api/events", cfg.Events.URL)
	assert.Equal(t, "secret", cfg.Events.Token)
}

func TestApplyEnv_RegionHintCanBeCleared(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvRegionHint, "")
	cfg := config.New()
	require.NoError(t, cfg.ApplyEnv())
	assert.Empty(t, cfg.Provider.RegionHint)
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{key: config.EnvMinInterval, value: "soon"},
		{key: config.EnvRedisDB, value: "two"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			err := config.New().ApplyEnv()
			assert.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{name: "bad backend", mutate: func(c *config.Config) { c.Cache.Backend = "sqlite" }},
		{name: "bad expiry", mutate: func(c *config.Config) { c.Cache.Expiry = "forever" }},
		{name: "expiry too short", mutate: func(c *config.Config) { c.Cache.Expiry = "1s" }},
		{name: "file backend without path", mutate: func(c *config.Config) { c.Cache.Path = "" }},
		{name: "redis without addr", mutate: func(c *config.Config) {
			c.Cache.Backend = config.BackendRedis
			c.Cache.Redis.Addr = ""
		}},
		{name: "provider url", mutate: func(c *config.Config) { c.Provider.BaseURL = "not a url" }},
		{name: "zero timeout", mutate: func(c *config.Config) { c.Provider.Timeout = 0 }},
		{name: "negative interval", mutate: func(c *config.Config) { c.Provider.MinInterval = -time.Second }},
		{name: "log level", mutate: func(c *config.Config) { c.Logging.Level = "loud" }},
		{name: "log format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }},
		{name: "server addr", mutate: func(c *config.Config) { c.Server.Addr = "localhost" }},
		{name: "events url", mutate: func(c *config.Config) { c.Events.URL = "not a url" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			cfg := config.New()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}

	t.Run("memory backend needs no path", func(t *testing.T) {
		isolate(t)
		cfg := config.New()
		cfg.Cache.Backend = config.BackendMemory
		cfg.Cache.Path = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("zero interval allowed", func(t *testing.T) {
		isolate(t)
		cfg := config.New()
		cfg.Provider.MinInterval = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	_, err := config.Load(writeConfig(t, "provider: [unclosed"))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestSave_RoundTrip(t *testing.T) {
	isolate(t)
	cfg := config.New()
	cfg.Provider.RegionHint = "Suisse"
	cfg.Cache.Expiry = "14d"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestToLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{Level: "debug", Format: "json"}
	got := lc.ToLoggingConfig()
	assert.Equal(t, logging.OutputStderr, got.Output)
	assert.Equal(t, "debug", got.Level)
	assert.Equal(t, "json", got.Format)

	lc.File = "/var/log/geocoder.log"
	got = lc.ToLoggingConfig()
	assert.Equal(t, logging.OutputFile, got.Output)
	assert.Equal(t, "/var/log/geocoder.log", got.File)
}

func TestPaths(t *testing.T) {
	dir := isolate(t)

	got, err := config.GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	path, err := config.DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), path)

	t.Setenv(config.EnvHome, filepath.Join(dir, "sub"))
	require.NoError(t, config.EnsureConfigDir())
	assert.DirExists(t, filepath.Join(dir, "sub"))

	cfg := config.New()
	cfg.Logging.File = filepath.Join(dir, "logs", "geocoder.log")
	require.NoError(t, cfg.EnsureLogDir())
	assert.DirExists(t, filepath.Join(dir, "logs"))
}
