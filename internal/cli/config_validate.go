package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/planevent/geocoder/internal/config"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		Long: `Loads the configuration the way every other command does (defaults, then
config.yaml, then config.local.yaml, then GEOCODER_* variables) and checks it
for syntax and semantic correctness.`,
		Example: `  # Validate current configuration
  geocoder config validate

  # Validate and show the effective settings
  geocoder config validate --verbose`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show the effective configuration")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	cmd.Printf("Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}
	return nil
}

// printVerboseDetails prints the effective configuration, without secrets.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Provider URL: %s\n", cfg.Provider.BaseURL)
	cmd.Printf("  Region hint: %q\n", cfg.Provider.RegionHint)
	cmd.Printf("  Minimum interval: %s\n", cfg.Provider.MinInterval)
	cmd.Printf("  Cache backend: %s\n", cfg.Cache.Backend)
	printCacheLocation(cmd, cfg)
	cmd.Printf("  Cache expiry: %s\n", cfg.Cache.Expiry)
	cmd.Printf("  Purge schedule: %s\n", cfg.Cache.PurgeSchedule)
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	cmd.Printf("  Server address: %s\n", cfg.Server.Addr)
	if cfg.Events.URL != "" {
		cmd.Printf("  Events API: %s\n", cfg.Events.URL)
	}
}

func printCacheLocation(cmd *cobra.Command, cfg *config.Config) {
	switch cfg.Cache.Backend {
	case config.BackendFile:
		cmd.Printf("  Cache path: %s\n", cfg.Cache.Path)
	case config.BackendRedis:
		cmd.Printf("  Redis: %s db %d key %s\n", cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Key)
	}
}
