// Package config loads geocoder settings: built-in defaults, then the YAML
// config file, then GEOCODER_* environment variables. Command-line flags are
// applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/planevent/geocoder/internal/cache"
	"github.com/planevent/geocoder/internal/geocode"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Cache backend names.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Defaults not owned by another package.
const (
	DefaultPurgeSchedule = "@daily"
	DefaultServerAddr    = "127.0.0.1:8080"
	DefaultServerTimeout = 30 * time.Second

	// Batch responses stream for up to one provider interval per item, so the
	// write deadline has to cover a whole batch.
	DefaultServerWriteTimeout = 10 * time.Minute
)

// Config is the complete geocoder configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
	Events   EventsConfig   `yaml:"events"`
}

// ProviderConfig configures the geocoding provider and rate limiting.
type ProviderConfig struct {
	BaseURL     string        `yaml:"base_url"     validate:"required,url"`
	UserAgent   string        `yaml:"user_agent,omitempty"`
	RegionHint  string        `yaml:"region_hint"`
	Timeout     time.Duration `yaml:"timeout"      validate:"gt=0s"`
	MinInterval time.Duration `yaml:"min_interval" validate:"gte=0s"`
}

// CacheConfig configures geocode cache persistence.
type CacheConfig struct {
	Backend       string      `yaml:"backend"        validate:"required,oneof=file redis memory"`
	Path          string      `yaml:"path,omitempty"`
	Expiry        string      `yaml:"expiry"         validate:"required"`
	PurgeSchedule string      `yaml:"purge_schedule"`
	Redis         RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"  validate:"gte=0"`
	Key      string `yaml:"key"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr         string        `yaml:"addr"          validate:"required,hostname_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"  validate:"gt=0s"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0s"`
}

// EventsConfig configures the upstream events API.
type EventsConfig struct {
	URL   string `yaml:"url,omitempty"   validate:"omitempty,url"`
	Token string `yaml:"token,omitempty"`
}

// New returns a configuration populated with defaults.
func New() *Config {
	return &Config{
		Provider: ProviderConfig{
			BaseURL:     geocode.DefaultNominatimURL,
			RegionHint:  geocode.DefaultRegionHint,
			Timeout:     geocode.DefaultTimeout,
			MinInterval: geocode.DefaultMinInterval,
		},
		Cache: CacheConfig{
			Backend:       BackendFile,
			Path:          DefaultCachePath(),
			Expiry:        "30d",
			PurgeSchedule: DefaultPurgeSchedule,
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  cache.DefaultRedisKey,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr:         DefaultServerAddr,
			ReadTimeout:  DefaultServerTimeout,
			WriteTimeout: DefaultServerWriteTimeout,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path, the
// config.local.yaml overlay beside it and the environment, then validates it. An empty path means the default location,
// which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := New()

	explicit := path != ""
	if !explicit {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("%w: parsing %s: %w", ErrInvalidConfig, path, unmarshalErr)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	overlay := LocalOverlayPath(path)
	if _, statErr := os.Stat(overlay); statErr == nil {
		if mergeErr := ShallowMergeYAML(cfg, overlay); mergeErr != nil {
			return nil, mergeErr
		}
	}

	if envErr := cfg.ApplyEnv(); envErr != nil {
		return nil, envErr
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, validateErr
	}
	return cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if _, err := c.Cache.ExpiryDuration(); err != nil {
		return fmt.Errorf("%w: cache.expiry: %w", ErrInvalidConfig, err)
	}

	switch c.Cache.Backend {
	case BackendFile:
		if c.Cache.Path == "" {
			return fmt.Errorf("%w: cache.path is required for the file backend", ErrInvalidConfig)
		}
	case BackendRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("%w: cache.redis.addr is required for the redis backend", ErrInvalidConfig)
		}
	}
	return nil
}

// ExpiryDuration parses Expiry with cache.ParseExpiry.
func (cc *CacheConfig) ExpiryDuration() (time.Duration, error) {
	return cache.ParseExpiry(cc.Expiry)
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if mkdirErr := os.MkdirAll(filepath.Dir(path), 0700); mkdirErr != nil {
		return fmt.Errorf("creating config directory: %w", mkdirErr)
	}
	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("writing config file %s: %w", path, writeErr)
	}
	return nil
}
