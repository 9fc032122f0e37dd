package cli

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/planevent/geocoder/internal/server"
)

func newServeCmd(state *rootState) *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the geocoding HTTP API",
		Long: `Starts the HTTP API and the scheduled cache purge. The server stops
gracefully on SIGINT or SIGTERM.

Single lookups are rate limited like batches unless the caller passes
skip_delay=true, which bypasses the provider spacing.

Endpoints:
  GET    /healthz
  GET    /v1/geocode?address=...[&skip_delay=true]
  POST   /v1/geocode/batch      (JSON array of items, NDJSON response)
  GET    /v1/cache/stats
  DELETE /v1/cache
  POST   /v1/cache/purge
  GET    /metrics`,
		Example: `  geocoder serve
  geocoder serve --addr :8080 --cache-backend redis`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				state.cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), state, !noMetrics)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")
	return cmd
}

func runServe(ctx context.Context, state *rootState, withMetrics bool) error {
	a, err := state.App()
	if err != nil {
		return err
	}
	if initErr := a.EnsureInitialized(ctx); initErr != nil {
		return initErr
	}

	var metricsHandler http.Handler
	if withMetrics {
		metricsHandler = a.Metrics().Handler()
	}
	srv := server.New(a, server.Config{
		Addr:         state.cfg.Server.Addr,
		ReadTimeout:  state.cfg.Server.ReadTimeout,
		WriteTimeout: state.cfg.Server.WriteTimeout,
	}, logger, server.WithMetricsHandler(metricsHandler))

	g, gctx := errgroup.WithContext(ctx)

	stopMaintenance, err := a.StartMaintenance(gctx)
	if err != nil {
		return err
	}

	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		stopMaintenance()
		return nil
	})

	logger.Info().Ctx(ctx).Str("addr", state.cfg.Server.Addr).Msg("geocoder serving")
	return g.Wait()
}
