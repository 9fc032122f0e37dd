package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnvHome overrides the configuration directory.
const EnvHome = "GEOCODER_HOME"

// File names inside the configuration directory.
const (
	configFileName = "config.yaml"
	cacheFileName  = "cache.json"
)

// GetConfigDir returns the path to the geocoder configuration directory
// ($GEOCODER_HOME, or ~/.geocoder).
func GetConfigDir() (string, error) {
	if home := os.Getenv(EnvHome); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".geocoder"), nil
}

// DefaultConfigPath returns the path of config.yaml inside the configuration directory.
func DefaultConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// DefaultCachePath returns the path of the file-backed geocode cache. When the
// configuration directory cannot be determined it falls back to the temp dir.
func DefaultCachePath() string {
	dir, err := GetConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "geocoder-"+cacheFileName)
	}
	return filepath.Join(dir, cacheFileName)
}

// EnsureConfigDir ensures the geocoder configuration directory exists.
func EnsureConfigDir() error {
	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// EnsureLogDir ensures the directory for the configured log file exists.
// It does nothing when logging goes to stderr.
func (c *Config) EnsureLogDir() error {
	if c.Logging.File == "" {
		return nil
	}
	logDir := filepath.Dir(c.Logging.File)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}
	return nil
}
