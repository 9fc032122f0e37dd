package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/planevent/geocoder/internal/app"
	"github.com/planevent/geocoder/internal/cache"
	"github.com/planevent/geocoder/internal/config"
	"github.com/planevent/geocoder/internal/logging"
	"github.com/planevent/geocoder/pkg/version"
)

// StepStatus represents the outcome of a single setup step.
type StepStatus int

const (
	// StepSuccess indicates the step completed successfully.
	StepSuccess StepStatus = iota
	// StepWarning indicates the step completed with a non-fatal issue.
	StepWarning
	// StepSkipped indicates the step was intentionally skipped via flag.
	StepSkipped
	// StepError indicates the step failed.
	StepError
)

// StepResult describes the outcome of executing a single setup step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Message  string
	Critical bool
	Err      error
}

// SetupOptions holds the configuration for the setup command, derived from CLI flags.
type SetupOptions struct {
	SkipProviderCheck bool
	NonInteractive    bool
}

// SetupResult is the aggregate outcome of all setup steps.
type SetupResult struct {
	Steps       []StepResult
	HasErrors   bool
	HasWarnings bool
}

// dirPermBase is the permission mode for the geocoder directories.
const dirPermBase = 0o700

// providerCheckTimeout bounds the provider reachability probe.
const providerCheckTimeout = 10 * time.Second

// formatStatus returns a status marker appropriate for the output mode.
func formatStatus(status StepStatus, nonInteractive bool) string {
	if nonInteractive {
		switch status {
		case StepSuccess:
			return "[OK]"
		case StepWarning:
			return "[WARN]"
		case StepSkipped:
			return "[SKIP]"
		case StepError:
			return "[ERR]"
		default:
			return "[??]"
		}
	}

	switch status {
	case StepSuccess:
		return "\u2713" // ✓
	case StepWarning:
		return "!"
	case StepSkipped:
		return "-"
	case StepError:
		return "\u2717" // ✗
	default:
		return "?"
	}
}

// NewSetupCmd creates the top-level setup command that bootstraps the geocoder environment.
func NewSetupCmd() *cobra.Command {
	var opts SetupOptions

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Bootstrap the geocoder environment",
		Long: `Sets up the geocoder environment by creating directories, initializing
configuration, checking the cache backend and probing the geocoding provider.

This command is idempotent; it is safe to run multiple times. Existing
configuration files are preserved.`,
		Example: `  # Full setup
  geocoder setup

  # CI/CD setup (no TTY-dependent output)
  geocoder setup --non-interactive

  # Offline setup
  geocoder setup --skip-provider-check`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd, &opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false,
		"Disable TTY-dependent output (status symbols, color)")
	cmd.Flags().BoolVar(&opts.SkipProviderCheck, "skip-provider-check", false,
		"Skip the geocoding provider reachability probe")

	return cmd
}

// runSetup runs every setup step in order, continuing past failures, and
// returns an error only if a critical step failed.
func runSetup(cmd *cobra.Command, opts *SetupOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log := logging.FromContext(ctx)

	// Auto-detect non-interactive mode when stdin is not a TTY
	if !opts.NonInteractive && !readsFromTerminal(cmd) {
		opts.NonInteractive = true
	}

	result := &SetupResult{}
	record := func(steps ...StepResult) {
		for _, s := range steps {
			printStep(cmd, s, opts.NonInteractive)
			result.Steps = append(result.Steps, s)
		}
	}

	record(stepDisplayVersion())
	record(stepCreateDirectories()...)
	record(stepInitConfig())

	cfg, cfgStep := stepLoadConfig()
	record(cfgStep)

	if cfg != nil {
		record(stepCheckStorage(ctx, cfg))
	}

	switch {
	case opts.SkipProviderCheck:
		record(StepResult{
			Name:    "Provider check",
			Status:  StepSkipped,
			Message: "Skipped provider reachability check",
		})
	case cfg != nil:
		record(stepCheckProvider(ctx, cfg, http.DefaultClient))
	}

	for _, s := range result.Steps {
		if s.Status == StepError && s.Critical {
			result.HasErrors = true
		}
		if s.Status == StepWarning {
			result.HasWarnings = true
		}
	}

	printSummary(cmd, result)

	if result.HasErrors {
		log.Error().
			Ctx(ctx).
			Str("component", "setup").
			Msg("setup completed with critical errors")
		return errors.New("setup failed: one or more critical steps failed")
	}

	return nil
}

// printStep outputs a single step's status line.
func printStep(cmd *cobra.Command, step StepResult, nonInteractive bool) {
	marker := formatStatus(step.Status, nonInteractive)
	cmd.Printf("%s %s\n", marker, step.Message)
}

// printSummary outputs the final completion message.
func printSummary(cmd *cobra.Command, result *SetupResult) {
	cmd.Println()
	if result.HasErrors {
		cmd.Println("Setup completed with errors. Review the messages above for remediation steps.")
	} else {
		cmd.Println(`Setup complete! Run 'geocoder resolve "Place Bellecour, Lyon"' to get started.`)
	}
}

// stepDisplayVersion reports the geocoder version and Go runtime.
func stepDisplayVersion() StepResult {
	return StepResult{
		Name:    "Version display",
		Status:  StepSuccess,
		Message: fmt.Sprintf("geocoder v%s (%s)", version.GetVersion(), runtime.Version()),
	}
}

// stepCreateDirectories creates the configuration and log directories.
// Returns one StepResult per directory.
func stepCreateDirectories() []StepResult {
	baseDir, err := config.GetConfigDir()
	if err != nil {
		return []StepResult{{
			Name:     "Directory creation",
			Status:   StepError,
			Message:  fmt.Sprintf("Cannot determine configuration directory: %v\n  Try: export %s=/path/to/dir", err, config.EnvHome),
			Critical: true,
			Err:      err,
		}}
	}

	var results []StepResult
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "logs")} {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			results = append(results, StepResult{
				Name:     "Directory creation",
				Status:   StepSuccess,
				Message:  fmt.Sprintf("Directory exists: %s", dir),
				Critical: true,
			})
			continue
		}

		if mkErr := os.MkdirAll(dir, dirPermBase); mkErr != nil {
			results = append(results, StepResult{
				Name:   "Directory creation",
				Status: StepError,
				Message: fmt.Sprintf(
					"Failed to create %s: %v\n  Try: export %s=/path/to/writable/directory",
					dir, mkErr, config.EnvHome,
				),
				Critical: true,
				Err:      mkErr,
			})
			continue
		}

		results = append(results, StepResult{
			Name:     "Directory creation",
			Status:   StepSuccess,
			Message:  fmt.Sprintf("Created %s", dir),
			Critical: true,
		})
	}
	return results
}

// stepInitConfig writes the default config file if one does not exist.
func stepInitConfig() StepResult {
	configPath, err := config.DefaultConfigPath()
	if err != nil {
		return StepResult{
			Name:     "Config initialization",
			Status:   StepError,
			Message:  fmt.Sprintf("Failed to locate config: %v", err),
			Critical: true,
			Err:      err,
		}
	}

	if _, statErr := os.Stat(configPath); statErr == nil {
		return StepResult{
			Name:     "Config initialization",
			Status:   StepSuccess,
			Message:  fmt.Sprintf("Config already exists (%s)", configPath),
			Critical: true,
		}
	}

	if saveErr := config.New().Save(configPath); saveErr != nil {
		return StepResult{
			Name:     "Config initialization",
			Status:   StepError,
			Message:  fmt.Sprintf("Failed to initialize config: %v", saveErr),
			Critical: true,
			Err:      saveErr,
		}
	}

	return StepResult{
		Name:     "Config initialization",
		Status:   StepSuccess,
		Message:  fmt.Sprintf("Initialized config (%s)", configPath),
		Critical: true,
	}
}

// stepLoadConfig loads and validates the effective configuration.
func stepLoadConfig() (*config.Config, StepResult) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, StepResult{
			Name:     "Config validation",
			Status:   StepError,
			Message:  fmt.Sprintf("Configuration is invalid: %v\n  Try: geocoder config validate --verbose", err),
			Critical: true,
			Err:      err,
		}
	}
	return cfg, StepResult{
		Name:     "Config validation",
		Status:   StepSuccess,
		Message:  "Configuration is valid",
		Critical: true,
	}
}

// stepCheckStorage prepares the configured cache backend.
func stepCheckStorage(ctx context.Context, cfg *config.Config) StepResult {
	storage, err := app.NewStorage(cfg.Cache)
	if err != nil {
		return StepResult{
			Name:     "Cache storage",
			Status:   StepError,
			Message:  fmt.Sprintf("Cannot build cache backend %q: %v", cfg.Cache.Backend, err),
			Critical: true,
			Err:      err,
		}
	}
	if closer, ok := storage.(io.Closer); ok {
		defer closer.Close()
	}

	if initializer, ok := storage.(cache.Initializer); ok {
		if initErr := initializer.Init(ctx); initErr != nil {
			// The geocoder still works without persistence, so this is not critical.
			return StepResult{
				Name:    "Cache storage",
				Status:  StepWarning,
				Message: fmt.Sprintf("Cache backend %s unavailable: %v", storage.Location(), initErr),
				Err:     initErr,
			}
		}
	}

	return StepResult{
		Name:    "Cache storage",
		Status:  StepSuccess,
		Message: fmt.Sprintf("Cache backend ready (%s)", storage.Location()),
	}
}

// stepCheckProvider probes the provider's /status endpoint.
func stepCheckProvider(ctx context.Context, cfg *config.Config, client *http.Client) StepResult {
	ctx, cancel := context.WithTimeout(ctx, providerCheckTimeout)
	defer cancel()

	statusURL := strings.TrimRight(cfg.Provider.BaseURL, "/") + "/status"
	warn := func(err error) StepResult {
		return StepResult{
			Name:    "Provider check",
			Status:  StepWarning,
			Message: fmt.Sprintf("Provider %s unreachable: %v", cfg.Provider.BaseURL, err),
			Err:     err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return warn(err)
	}
	userAgent := cfg.Provider.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return warn(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return warn(fmt.Errorf("status %d", resp.StatusCode))
	}
	return StepResult{
		Name:    "Provider check",
		Status:  StepSuccess,
		Message: fmt.Sprintf("Provider reachable (%s)", cfg.Provider.BaseURL),
	}
}
