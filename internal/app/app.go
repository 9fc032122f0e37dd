// Package app wires configuration, logging, cache storage, the geocoding
// provider, the resolver and metrics into one application object and exposes
// the consumer-facing geocoding operations.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/planevent/geocoder/internal/cache"
	"github.com/planevent/geocoder/internal/config"
	"github.com/planevent/geocoder/internal/geocode"
	"github.com/planevent/geocoder/internal/logging"
	"github.com/planevent/geocoder/internal/metrics"
)

// App owns the geocoder's components. Operations initialize it on first use.
type App struct {
	cfg      *config.Config
	logger   zerolog.Logger
	storage  cache.Storage
	cache    *cache.Cache
	provider geocode.Provider
	resolver *geocode.Resolver
	metrics  *metrics.Collector

	initGroup    singleflight.Group
	initialized  atomic.Bool
	purgedAtInit atomic.Int64
}

// Option overrides a component New would otherwise build from config.
type Option func(*options)

type options struct {
	storage  cache.Storage
	provider geocode.Provider
	clock    geocode.Clock
	metrics  *metrics.Collector
}

// WithStorage replaces the configured cache backend.
func WithStorage(s cache.Storage) Option {
	return func(o *options) {
		o.storage = s
	}
}

// WithProvider replaces the Nominatim client.
func WithProvider(p geocode.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithClock replaces the wall clock used for rate limiting.
func WithClock(c geocode.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithMetrics uses an existing metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New builds an App from cfg. Nothing touches storage or the network until
// EnsureInitialized runs.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	expiry, err := cfg.Cache.ExpiryDuration()
	if err != nil {
		return nil, fmt.Errorf("%w: cache.expiry: %w", config.ErrInvalidConfig, err)
	}

	storage := o.storage
	if storage == nil {
		storage, err = NewStorage(cfg.Cache)
		if err != nil {
			return nil, err
		}
	}

	provider := o.provider
	if provider == nil {
		provider = geocode.NewNominatim(
			geocode.WithBaseURL(cfg.Provider.BaseURL),
			geocode.WithUserAgent(cfg.Provider.UserAgent),
			geocode.WithTimeout(cfg.Provider.Timeout),
		)
	}

	collector := o.metrics
	if collector == nil {
		collector = metrics.New(metrics.WithRuntimeMetrics(true))
	}

	c := cache.New(storage,
		cache.WithExpiry(expiry),
		cache.WithLogger(logging.ComponentLogger(logger, "cache")),
	)

	resolverOpts := []geocode.ResolverOption{
		geocode.WithRegionHint(cfg.Provider.RegionHint),
		geocode.WithMinInterval(cfg.Provider.MinInterval),
		geocode.WithRecorder(collector),
		geocode.WithLogger(logging.ComponentLogger(logger, "resolver")),
	}
	if o.clock != nil {
		resolverOpts = append(resolverOpts, geocode.WithClock(o.clock))
	}

	return &App{
		cfg:      cfg,
		logger:   logging.ComponentLogger(logger, "app"),
		storage:  storage,
		cache:    c,
		provider: provider,
		resolver: geocode.NewResolver(c, provider, resolverOpts...),
		metrics:  collector,
	}, nil
}

// NewStorage builds the cache storage backend named in cfg.
func NewStorage(cfg config.CacheConfig) (cache.Storage, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return cache.NewFileStorage(cfg.Path)
	case config.BackendRedis:
		return cache.NewRedisStorage(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		}), nil
	case config.BackendMemory:
		return cache.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
}

// Config returns the application configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Cache returns the geocode cache.
func (a *App) Cache() *cache.Cache { return a.cache }

// Resolver returns the rate-limited resolver.
func (a *App) Resolver() *geocode.Resolver { return a.resolver }

// Metrics returns the metrics collector.
func (a *App) Metrics() *metrics.Collector { return a.metrics }

// EnsureInitialized prepares storage (creating the cache directory or pinging
// Redis) and purges expired entries. Concurrent callers share one in-flight
// initialization. After a success it is a no-op; after a failure the next
// call tries again.
func (a *App) EnsureInitialized(ctx context.Context) error {
	if a.initialized.Load() {
		return nil
	}

	_, err, _ := a.initGroup.Do("init", func() (interface{}, error) {
		if a.initialized.Load() {
			return nil, nil
		}

		if initializer, ok := a.storage.(cache.Initializer); ok {
			if err := initializer.Init(ctx); err != nil {
				return nil, fmt.Errorf("initializing cache storage %s: %w", a.storage.Location(), err)
			}
		}

		removed := a.cache.Purge(ctx)
		a.purgedAtInit.Store(int64(removed))
		stats := a.cache.Stats(a.cache.Load(ctx))
		a.metrics.SetCacheEntries(stats.Size)

		a.initialized.Store(true)
		a.logger.Debug().
			Str("storage", a.storage.Location()).
			Int("entries", stats.Size).
			Int("purged", removed).
			Msg("geocoder initialized")
		return nil, nil
	})
	return err
}

// GetCachedCoordinates resolves a single address. skipDelay bypasses the
// rate-limit wait for isolated lookups. Any failure, initialization included,
// is reported as not found.
func (a *App) GetCachedCoordinates(ctx context.Context, address string, skipDelay bool) (geocode.Coordinate, bool) {
	if err := a.EnsureInitialized(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("geocoder unavailable")
		return geocode.Coordinate{}, false
	}
	return a.resolver.Resolve(ctx, address, skipDelay)
}

// GeocodeWithProgress resolves items in order, calling onEach per item. It
// returns an error only when initialization fails or ctx is cancelled.
func (a *App) GeocodeWithProgress(ctx context.Context, items []geocode.Item, onEach geocode.ProgressFunc) error {
	if err := a.EnsureInitialized(ctx); err != nil {
		return err
	}
	defer a.refreshEntries(ctx)

	return geocode.ResolveAll(ctx, a.resolver, items, onEach)
}

// ClearCache removes every cached coordinate.
func (a *App) ClearCache(ctx context.Context) error {
	if err := a.EnsureInitialized(ctx); err != nil {
		return err
	}
	a.cache.Clear(ctx)
	a.metrics.SetCacheEntries(0)
	return nil
}

// GetCacheStats reports the number of stored entries and the oldest one.
func (a *App) GetCacheStats(ctx context.Context) (cache.Stats, error) {
	if err := a.EnsureInitialized(ctx); err != nil {
		return cache.Stats{}, err
	}
	stats := a.cache.Stats(a.cache.Load(ctx))
	a.metrics.SetCacheEntries(stats.Size)
	return stats, nil
}

// PurgeExpired removes expired entries and returns how many were removed.
func (a *App) PurgeExpired(ctx context.Context) (int, error) {
	if err := a.EnsureInitialized(ctx); err != nil {
		return 0, err
	}
	removed := a.cache.Purge(ctx)
	a.refreshEntries(ctx)
	return removed, nil
}

// PurgedAtInit reports how many expired entries initialization removed.
func (a *App) PurgedAtInit() int {
	return int(a.purgedAtInit.Load())
}

// Close releases storage connections.
func (a *App) Close() error {
	if closer, ok := a.storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (a *App) refreshEntries(ctx context.Context) {
	a.metrics.SetCacheEntries(a.cache.Stats(a.cache.Load(ctx)).Size)
}
