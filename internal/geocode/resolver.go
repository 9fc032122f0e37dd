package geocode

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/planevent/geocoder/internal/cache"
	"github.com/planevent/geocoder/internal/logging"
)

// Provider call results, as reported to a Recorder.
const (
	ResultFound     = "found"
	ResultNotFound  = "not_found"
	ResultError     = "error"
	ResultMalformed = "malformed"
)

// Recorder receives resolver events for metrics.
type Recorder interface {
	CacheHit()
	CacheMiss()
	RateLimitWait(d time.Duration)
	ProviderRequest(result string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) CacheHit()                             {}
func (nopRecorder) CacheMiss()                            {}
func (nopRecorder) RateLimitWait(time.Duration)           {}
func (nopRecorder) ProviderRequest(string, time.Duration) {}

// AddressResolver resolves a single address. Resolver implements it.
type AddressResolver interface {
	Resolve(ctx context.Context, address string, skipDelay bool) (Coordinate, bool)
}

// Resolver answers address lookups from the cache and falls back to the
// provider on a miss, spacing provider calls through a Limiter.
type Resolver struct {
	cache      *cache.Cache
	provider   Provider
	limiter    *Limiter
	regionHint string
	recorder   Recorder
	logger     zerolog.Logger

	minInterval time.Duration
	clock       Clock
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRegionHint sets the region appended to provider queries. Empty disables it.
func WithRegionHint(hint string) ResolverOption {
	return func(r *Resolver) {
		r.regionHint = hint
	}
}

// WithMinInterval sets the minimum spacing between rate-limited provider calls.
func WithMinInterval(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.minInterval = d
	}
}

// WithClock replaces the wall clock used for rate limiting.
func WithClock(clock Clock) ResolverOption {
	return func(r *Resolver) {
		r.clock = clock
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec Recorder) ResolverOption {
	return func(r *Resolver) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(logger zerolog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver over the given cache and provider.
func NewResolver(c *cache.Cache, provider Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		cache:       c,
		provider:    provider,
		regionHint:  DefaultRegionHint,
		recorder:    nopRecorder{},
		logger:      zerolog.Nop(),
		minInterval: DefaultMinInterval,
		clock:       realClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.limiter = NewLimiter(r.minInterval, r.clock)
	return r
}

// Limiter returns the resolver's rate limiter.
func (r *Resolver) Limiter() *Limiter {
	return r.limiter
}

// Resolve returns the coordinate for address and whether one was found.
//
// A cache hit returns immediately. On a miss the provider is queried with the
// address plus region hint; unless skipDelay is set the call first waits for
// the next rate-limit slot. A successful result is written to the cache before
// returning. Every failure (no candidates, provider or network error,
// malformed candidate, cancellation) is reported as not found and nothing is
// cached, so a later call retries the provider.
func (r *Resolver) Resolve(ctx context.Context, address string, skipDelay bool) (Coordinate, bool) {
	if ValidateAddress(address) != nil {
		return Coordinate{}, false
	}

	key := NormalizeAddress(address)
	logger := r.loggerFor(ctx).With().Str("key", key).Logger()

	store := r.cache.Load(ctx)
	if entry, ok := r.cache.Get(store, key); ok {
		r.recorder.CacheHit()
		logger.Debug().Msg("geocode cache hit")
		return Coordinate{Lat: entry.Lat, Lng: entry.Lng}, true
	}
	r.recorder.CacheMiss()

	if skipDelay {
		r.limiter.Mark()
	} else {
		waited, err := r.limiter.Wait(ctx)
		r.recorder.RateLimitWait(waited)
		if err != nil {
			logger.Debug().Err(err).Msg("abandoned while waiting for rate limit slot")
			return Coordinate{}, false
		}
	}

	query := ApplyRegionHint(address, r.regionHint)
	start := time.Now()
	candidates, err := r.provider.Search(ctx, query)
	elapsed := time.Since(start)

	if err != nil {
		r.recorder.ProviderRequest(ResultError, elapsed)
		event := logger.Warn()
		if errors.Is(err, context.Canceled) {
			event = logger.Debug()
		}
		event.Err(err).Str("query", query).Msg("geocoding provider request failed")
		return Coordinate{}, false
	}
	if len(candidates) == 0 {
		r.recorder.ProviderRequest(ResultNotFound, elapsed)
		logger.Info().Str("query", query).Msg("address not found by provider")
		return Coordinate{}, false
	}

	coord, err := candidates[0].Coordinate()
	if err != nil {
		r.recorder.ProviderRequest(ResultMalformed, elapsed)
		logger.Warn().Err(err).Str("query", query).Msg("provider returned a malformed candidate")
		return Coordinate{}, false
	}
	r.recorder.ProviderRequest(ResultFound, elapsed)

	r.cache.Record(ctx, key, coord.Lat, coord.Lng)
	logger.Debug().
		Float64("lat", coord.Lat).
		Float64("lng", coord.Lng).
		Dur("provider_duration", elapsed).
		Msg("address geocoded")
	return coord, true
}

func (r *Resolver) loggerFor(ctx context.Context) zerolog.Logger {
	if traceID := logging.TraceIDFromContext(ctx); traceID != "" {
		return r.logger.With().Str("trace_id", traceID).Logger()
	}
	return r.logger
}
