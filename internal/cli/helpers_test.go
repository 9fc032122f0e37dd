package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/planevent/geocoder/internal/app"
	"github.com/planevent/geocoder/internal/cache"
	"github.com/planevent/geocoder/internal/config"
	"github.com/planevent/geocoder/internal/geocode"
)

// isolateCLI points the config directory at a temp dir, silences logging and
// disables rate-limit spacing so batch tests run instantly.
func isolateCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvHome, dir)
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvMinInterval, "0s")
	for _, key := range []string{
		config.EnvProviderURL, config.EnvCacheBackend, config.EnvCachePath,
		cache.EnvExpiry, config.EnvEventsURL, config.EnvEventsToken,
		config.EnvLogFile, config.EnvLogFormat,
	} {
		t.Setenv(key, "")
	}
	return dir
}

// stubProvider answers queries containing a known address.
type stubProvider struct {
	mu      sync.Mutex
	known   map[string]geocode.Candidate
	queries []string
}

func newStubProvider() *stubProvider {
	return &stubProvider{known: map[string]geocode.Candidate{
		"Place Bellecour": {Lat: "45.757814", Lon: "4.832011", DisplayName: "Place Bellecour, Lyon"},
		"Vieux Lyon":      {Lat: "45.762300", Lon: "4.827100", DisplayName: "Vieux Lyon, Lyon"},
	}}
}

func (p *stubProvider) Search(_ context.Context, query string) ([]geocode.Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, query)
	for address, candidate := range p.known {
		if strings.Contains(query, address) {
			return []geocode.Candidate{candidate}, nil
		}
	}
	return nil, nil
}

func (p *stubProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queries)
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the root command with args against the given storage and provider.
func runCLI(t *testing.T, storage cache.Storage, provider geocode.Provider, stdin string, args ...string) cliResult {
	t.Helper()

	cmd := NewRootCmdWithOptions("test", app.WithStorage(storage), app.WithProvider(provider))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}
