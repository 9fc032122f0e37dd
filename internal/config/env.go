package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/planevent/geocoder/internal/cache"
)

// Environment variables read by ApplyEnv.
const (
	EnvProviderURL   = "GEOCODER_PROVIDER_URL"
	EnvUserAgent     = "GEOCODER_USER_AGENT"
	EnvRegionHint    = "GEOCODER_REGION_HINT"
	EnvMinInterval   = "GEOCODER_MIN_INTERVAL"
	EnvCacheBackend  = "GEOCODER_CACHE_BACKEND"
	EnvCachePath     = "GEOCODER_CACHE_PATH"
	EnvRedisAddr     = "GEOCODER_REDIS_ADDR"
	EnvRedisPassword = "GEOCODER_REDIS_PASSWORD"
	EnvRedisDB       = "GEOCODER_REDIS_DB"
	EnvLogLevel      = "GEOCODER_LOG_LEVEL"
	EnvLogFormat     = "GEOCODER_LOG_FORMAT"
	EnvLogFile       = "GEOCODER_LOG_FILE"
	EnvServerAddr    = "GEOCODER_SERVER_ADDR"
	EnvEventsURL     = "GEOCODER_EVENTS_URL"
	EnvEventsToken   = "GEOCODER_EVENTS_TOKEN"
)

// ApplyEnv overrides settings from GEOCODER_* environment variables. Unset
// variables leave the current value alone; GEOCODER_REGION_HINT may be set
// to an empty string to disable the hint.
func (c *Config) ApplyEnv() error {
	setString(&c.Provider.BaseURL, EnvProviderURL)
	setString(&c.Provider.UserAgent, EnvUserAgent)
	if hint, ok := os.LookupEnv(EnvRegionHint); ok {
		c.Provider.RegionHint = hint
	}
	if err := setDuration(&c.Provider.MinInterval, EnvMinInterval); err != nil {
		return err
	}

	setString(&c.Cache.Backend, EnvCacheBackend)
	setString(&c.Cache.Path, EnvCachePath)
	setString(&c.Cache.Expiry, cache.EnvExpiry)
	setString(&c.Cache.Redis.Addr, EnvRedisAddr)
	setString(&c.Cache.Redis.Password, EnvRedisPassword)
	if v := os.Getenv(EnvRedisDB); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, EnvRedisDB, v, err)
		}
		c.Cache.Redis.DB = db
	}

	setString(&c.Logging.Level, EnvLogLevel)
	setString(&c.Logging.Format, EnvLogFormat)
	setString(&c.Logging.File, EnvLogFile)

	setString(&c.Server.Addr, EnvServerAddr)

	setString(&c.Events.URL, EnvEventsURL)
	setString(&c.Events.Token, EnvEventsToken)
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, key, v, err)
	}
	*dst = d
	return nil
}
