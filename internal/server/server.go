// Package server exposes the geocoder over HTTP using fasthttp.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/planevent/geocoder/internal/cache"
	"github.com/planevent/geocoder/internal/geocode"
	"github.com/planevent/geocoder/internal/logging"
)

// RequestIDHeader carries the per-request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 5 * time.Second

// Service is the geocoding surface the HTTP handlers call. *app.App implements it.
type Service interface {
	GetCachedCoordinates(ctx context.Context, address string, skipDelay bool) (geocode.Coordinate, bool)
	GeocodeWithProgress(ctx context.Context, items []geocode.Item, onEach geocode.ProgressFunc) error
	ClearCache(ctx context.Context) error
	GetCacheStats(ctx context.Context) (cache.Stats, error)
	PurgeExpired(ctx context.Context) (int, error)
}

// Config holds listener settings.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server routes HTTP requests to a Service.
type Server struct {
	service Service
	cfg     Config
	logger  zerolog.Logger
	routes  map[string]map[string]fasthttp.RequestHandler
	baseCtx context.Context
}

// Option configures a Server.
type Option func(*Server)

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.handle(fasthttp.MethodGet, "/metrics", fasthttpadaptor.NewFastHTTPHandler(h))
		}
	}
}

// New creates a Server.
func New(service Service, cfg Config, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		logger:  logging.ComponentLogger(logger, "server"),
		routes:  make(map[string]map[string]fasthttp.RequestHandler),
		baseCtx: context.Background(),
	}

	s.handle(fasthttp.MethodGet, "/healthz", s.handleHealth)
	s.handle(fasthttp.MethodGet, "/v1/geocode", s.handleGeocode)
	s.handle(fasthttp.MethodPost, "/v1/geocode/batch", s.handleBatch)
	s.handle(fasthttp.MethodGet, "/v1/cache/stats", s.handleStats)
	s.handle(fasthttp.MethodDelete, "/v1/cache", s.handleClear)
	s.handle(fasthttp.MethodPost, "/v1/cache/purge", s.handlePurge)

	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) handle(method, path string, h fasthttp.RequestHandler) {
	if s.routes[path] == nil {
		s.routes[path] = make(map[string]fasthttp.RequestHandler)
	}
	s.routes[path][method] = h
}

// Handler returns the root request handler: request IDs, routing, recovery
// and access logging.
func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()

		requestID := string(ctx.Request.Header.Peek(RequestIDHeader))
		if requestID == "" {
			requestID = logging.NewTraceID()
		}
		ctx.Response.Header.Set(RequestIDHeader, requestID)
		logger := s.logger.With().Str("trace_id", requestID).Logger()
		ctx.SetUserValue(requestCtxKey, logger.WithContext(logging.ContextWithTraceID(s.baseCtx, requestID)))

		defer func() {
			if r := recover(); r != nil {
				logger.Error().Interface("panic", r).Msg("handler panicked")
				writeError(ctx, fasthttp.StatusInternalServerError, "internal error")
			}
			logger.Info().
				Str("method", string(ctx.Method())).
				Str("path", string(ctx.Path())).
				Int("status", ctx.Response.StatusCode()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()

		methods, ok := s.routes[string(ctx.Path())]
		if !ok {
			writeError(ctx, fasthttp.StatusNotFound, "not found")
			return
		}
		h, ok := methods[string(ctx.Method())]
		if !ok {
			writeError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(ctx)
	}
}

// ListenAndServe serves on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done. Requests inherit ctx, so in-flight
// batches stop when it is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.baseCtx = ctx

	srv := &fasthttp.Server{
		Handler:         s.Handler(),
		Name:            "geocoder",
		ReadTimeout:     s.cfg.ReadTimeout,
		WriteTimeout:    s.cfg.WriteTimeout,
		CloseOnShutdown: true,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}
