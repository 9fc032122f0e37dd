package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planevent/geocoder/internal/cache"
	"github.com/planevent/geocoder/internal/config"
	"github.com/planevent/geocoder/pkg/version"
)

// TestFormatStatus verifies TTY and non-TTY status markers.
func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name           string
		status         StepStatus
		nonInteractive bool
		expected       string
	}{
		{"success_tty", StepSuccess, false, "✓"},
		{"warning_tty", StepWarning, false, "!"},
		{"skipped_tty", StepSkipped, false, "-"},
		{"error_tty", StepError, false, "✗"},
		{"success_non_interactive", StepSuccess, true, "[OK]"},
		{"warning_non_interactive", StepWarning, true, "[WARN]"},
		{"skipped_non_interactive", StepSkipped, true, "[SKIP]"},
		{"error_non_interactive", StepError, true, "[ERR]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatStatus(tt.status, tt.nonInteractive))
		})
	}
}

func TestStepDisplayVersion(t *testing.T) {
	step := stepDisplayVersion()

	assert.Equal(t, StepSuccess, step.Status)
	assert.Contains(t, step.Message, version.GetVersion())
	assert.Contains(t, step.Message, runtime.Version())
}

func TestStepCreateDirectories(t *testing.T) {
	t.Run("fresh", func(t *testing.T) {
		home := filepath.Join(t.TempDir(), "geocoder")
		t.Setenv(config.EnvHome, home)

		results := stepCreateDirectories()
		require.Len(t, results, 2)
		for _, r := range results {
			assert.Equal(t, StepSuccess, r.Status, r.Message)
			assert.Contains(t, r.Message, "Created")
		}

		info, err := os.Stat(filepath.Join(home, "logs"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		if runtime.GOOS != "windows" {
			assert.Equal(t, os.FileMode(dirPermBase), info.Mode().Perm())
		}
	})

	t.Run("existing", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(config.EnvHome, home)
		require.NoError(t, os.MkdirAll(filepath.Join(home, "logs"), dirPermBase))

		results := stepCreateDirectories()
		require.Len(t, results, 2)
		for _, r := range results {
			assert.Equal(t, StepSuccess, r.Status)
			assert.Contains(t, r.Message, "Directory exists")
		}
	})

	t.Run("blocked by a file", func(t *testing.T) {
		base := t.TempDir()
		blocker := filepath.Join(base, "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
		t.Setenv(config.EnvHome, filepath.Join(blocker, "geocoder"))

		results := stepCreateDirectories()
		require.NotEmpty(t, results)
		assert.Equal(t, StepError, results[0].Status)
		assert.True(t, results[0].Critical)
		assert.Contains(t, results[0].Message, config.EnvHome)
	})
}

func TestStepInitConfig(t *testing.T) {
	t.Run("writes defaults", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(config.EnvHome, home)

		step := stepInitConfig()
		assert.Equal(t, StepSuccess, step.Status)
		assert.Contains(t, step.Message, "Initialized config")

		path, err := config.DefaultConfigPath()
		require.NoError(t, err)
		_, err = os.Stat(path)
		require.NoError(t, err)
	})

	t.Run("preserves an existing file", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv(config.EnvHome, home)
		path, err := config.DefaultConfigPath()
		require.NoError(t, err)
		custom := []byte("cache:\n  backend: memory\n")
		require.NoError(t, os.WriteFile(path, custom, 0o600))

		step := stepInitConfig()
		assert.Equal(t, StepSuccess, step.Status)
		assert.Contains(t, step.Message, "already exists")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, custom, data)
	})
}

func TestStepLoadConfig(t *testing.T) {
	isolateCLI(t)

	cfg, step := stepLoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, StepSuccess, step.Status)

	t.Setenv(config.EnvCacheBackend, "floppy")
	cfg, step = stepLoadConfig()
	assert.Nil(t, cfg)
	assert.Equal(t, StepError, step.Status)
	assert.True(t, step.Critical)
}

func TestStepCheckStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := config.New()
		cfg.Cache.Backend = config.BackendMemory

		step := stepCheckStorage(ctx, cfg)
		assert.Equal(t, StepSuccess, step.Status)
		assert.Contains(t, step.Message, "memory")
	})

	t.Run("file", func(t *testing.T) {
		cfg := config.New()
		cfg.Cache.Backend = config.BackendFile
		cfg.Cache.Path = filepath.Join(t.TempDir(), "nested", "cache.json")

		step := stepCheckStorage(ctx, cfg)
		assert.Equal(t, StepSuccess, step.Status)
		assert.DirExists(t, filepath.Dir(cfg.Cache.Path))
	})

	t.Run("unwritable file path is a warning", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

		cfg := config.New()
		cfg.Cache.Backend = config.BackendFile
		cfg.Cache.Path = filepath.Join(blocker, "sub", "cache.json")

		step := stepCheckStorage(ctx, cfg)
		assert.Equal(t, StepWarning, step.Status)
		assert.False(t, step.Critical)
		assert.Error(t, step.Err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := config.New()
		cfg.Cache.Backend = "floppy"

		step := stepCheckStorage(ctx, cfg)
		assert.Equal(t, StepError, step.Status)
		assert.ErrorIs(t, step.Err, config.ErrInvalidConfig)
	})
}

func TestStepCheckProvider(t *testing.T) {
	var gotAgent string
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		if r.URL.Path != "/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("OK"))
	}))
	defer healthy.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	t.Run("reachable", func(t *testing.T) {
		cfg := config.New()
		cfg.Provider.BaseURL = healthy.URL + "/"
		cfg.Provider.UserAgent = ""

		step := stepCheckProvider(context.Background(), cfg, healthy.Client())
		assert.Equal(t, StepSuccess, step.Status, step.Message)
		assert.Equal(t, version.UserAgent(), gotAgent)
	})

	t.Run("server error", func(t *testing.T) {
		cfg := config.New()
		cfg.Provider.BaseURL = broken.URL

		step := stepCheckProvider(context.Background(), cfg, broken.Client())
		assert.Equal(t, StepWarning, step.Status)
		assert.Contains(t, step.Message, "status 500")
		assert.False(t, step.Critical)
	})
}

func TestSetupCommand(t *testing.T) {
	home := isolateCLI(t)

	res := runCLI(t, cache.NewMemoryStorage(), newStubProvider(), "",
		"setup", "--non-interactive", "--skip-provider-check")
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "[OK] geocoder v")
	assert.Contains(t, res.stdout, "[SKIP] Skipped provider reachability check")
	assert.Contains(t, res.stdout, "Setup complete!")
	assert.FileExists(t, filepath.Join(home, "config.yaml"))

	// A second run keeps the existing configuration.
	res = runCLI(t, cache.NewMemoryStorage(), newStubProvider(), "",
		"setup", "--non-interactive", "--skip-provider-check")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Config already exists")
}
