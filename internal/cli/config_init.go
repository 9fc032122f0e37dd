package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/planevent/geocoder/internal/config"
)

// NewConfigInitCmd creates the config init command for initializing configuration.
func NewConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file with default values",
		Long: `Creates a new configuration file with default values at
$GEOCODER_HOME/config.yaml (~/.geocoder/config.yaml by default).

Machine-local overrides such as Redis passwords or the events API token can
go in config.local.yaml beside it; each section there replaces the same
section of config.yaml.`,
		Example: `  # Create the default configuration
  geocoder config init

  # Write it somewhere else, overwriting an existing file
  geocoder config init --path ./geocoder.yaml --force`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration file")
	cmd.Flags().StringVar(&path, "path", "", "where to write the file (default $GEOCODER_HOME/config.yaml)")

	return cmd
}

// initConfig writes the default configuration to path.
func initConfig(cmd *cobra.Command, path string, force bool) error {
	if path == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = defaultPath
	}

	if !force {
		_, err := os.Stat(path)
		if err == nil {
			return errors.New("configuration file already exists, use --force to overwrite")
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access config path %s: %w", path, err)
		}
	}

	if err := config.New().Save(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	cmd.Printf("Configuration initialized at %s\n", path)
	return nil
}
