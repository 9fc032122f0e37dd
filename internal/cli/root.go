package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/planevent/geocoder/internal/app"
	"github.com/planevent/geocoder/internal/config"
	"github.com/planevent/geocoder/internal/logging"
)

// annotationSkipConfig marks commands that must run even when the config file
// is invalid; they get built-in defaults instead.
const annotationSkipConfig = "geocoder/skip-config"

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code   int
	Reason string
}

func (e *ExitError) Error() string {
	return e.Reason
}

// ExitCode extracts the exit code for err: 0 for nil, the ExitError code when
// one is wrapped, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// rootState is shared by every subcommand of one root command.
type rootState struct {
	appOpts   []app.Option
	cfg       *config.Config
	logResult *logging.LogPathResult
	app       *app.App
}

// App builds the application on first use.
func (s *rootState) App() (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	if s.cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	a, err := app.New(s.cfg, logger, s.appOpts...)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

func (s *rootState) close() error {
	var errs []error
	if s.app != nil {
		errs = append(errs, s.app.Close())
		s.app = nil
	}
	if s.logResult != nil {
		errs = append(errs, s.logResult.Close())
	}
	return errors.Join(errs...)
}

// NewRootCmd creates the root Cobra command for the geocoder CLI.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithOptions(ver)
}

// NewRootCmdWithOptions creates the root command with app options applied to
// every application it builds. Tests use it to inject storage and providers.
func NewRootCmdWithOptions(ver string, opts ...app.Option) *cobra.Command {
	state := &rootState{appOpts: opts}

	cmd := &cobra.Command{
		Use:           "geocoder",
		Short:         "PlanEvent address geocoder",
		Long:          "geocoder: resolve event addresses to coordinates through a rate-limited, cached Nominatim client",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			state.cfg = cfg

			result := setupLogging(cmd, cfg)
			state.logResult = &result
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return state.close()
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("config", "", "config file (default $GEOCODER_HOME/config.yaml)")
	cmd.PersistentFlags().String("cache-backend", "", "cache backend: file, redis or memory (overrides config)")
	cmd.PersistentFlags().String("cache-expiry", "", "cache expiry, e.g. 30d, 72h or seconds (overrides config)")

	cmd.AddCommand(
		newResolveCmd(state),
		newBatchCmd(state),
		newCacheCmd(state),
		newConfigCmd(),
		newServeCmd(state),
		NewSetupCmd(),
		newVersionCmd(ver),
	)
	return cmd
}

// loadConfig loads the configuration and applies flag overrides. Commands
// annotated with annotationSkipConfig start from defaults instead.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Annotations[annotationSkipConfig] != "" {
		return config.New(), nil
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	overridden := false
	if cmd.Flags().Changed("cache-backend") {
		cfg.Cache.Backend, _ = cmd.Flags().GetString("cache-backend")
		overridden = true
	}
	if cmd.Flags().Changed("cache-expiry") {
		cfg.Cache.Expiry, _ = cmd.Flags().GetString("cache-expiry")
		overridden = true
	}
	if overridden {
		if validateErr := cfg.Validate(); validateErr != nil {
			return nil, validateErr
		}
	}
	return cfg, nil
}

const rootCmdExample = `  # Resolve one address
  geocoder resolve "Place Bellecour, Lyon"

  # Resolve a file of addresses, one per line
  geocoder batch addresses.txt

  # Geocode the events published by the PlanEvent API
  geocoder batch --events --output json

  # Inspect and maintain the cache
  geocoder cache stats
  geocoder cache purge

  # Serve the HTTP API
  geocoder serve --addr :8080`

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigValidateCmd())
	return cmd
}

// newVersionCmd prints the build version.
func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the geocoder version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "geocoder %s\n", ver)
			return err
		},
	}
}
