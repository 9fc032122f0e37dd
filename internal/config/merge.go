package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalOverlayName is the machine-local file merged over config.yaml when it
// sits in the same directory.
const LocalOverlayName = "config.local.yaml"

// Top-level YAML config key names used for shallow merge.
const (
	keyProvider = "provider"
	keyCache    = "cache"
	keyLogging  = "logging"
	keyServer   = "server"
	keyEvents   = "events"
)

// LocalOverlayPath returns the overlay path that belongs to configPath.
func LocalOverlayPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), LocalOverlayName)
}

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// the target Config. A section present in the overlay replaces the whole
// section in the target; fields it omits take built-in defaults rather than
// the target's values. Unknown keys are ignored.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]yaml.Node
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("%w: parsing overlay %s: %w", ErrInvalidConfig, overlayPath, err)
	}

	for key, node := range overlay {
		if err = mergeSection(target, key, &node); err != nil {
			return fmt.Errorf("%w: applying overlay section %q: %w", ErrInvalidConfig, key, err)
		}
	}
	return nil
}

// mergeSection decodes node into a default-valued copy of the section named
// key and stores it on target.
func mergeSection(target *Config, key string, node *yaml.Node) error {
	defaults := New()
	switch key {
	case keyProvider:
		v := defaults.Provider
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Provider = v
	case keyCache:
		v := defaults.Cache
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Cache = v
	case keyLogging:
		v := defaults.Logging
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Logging = v
	case keyServer:
		v := defaults.Server
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Server = v
	case keyEvents:
		v := defaults.Events
		if err := node.Decode(&v); err != nil {
			return err
		}
		target.Events = v
	}
	return nil
}
