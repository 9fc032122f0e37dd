package geocode

import (
	"context"
	"sync"
	"time"

	"github.com/planevent/geocoder/internal/cache"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept += d
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Slept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept
}

type providerCall struct {
	query string
	at    time.Time
}

// fakeProvider answers from fixed tables and records every call.
type fakeProvider struct {
	mu      sync.Mutex
	clock   *fakeClock
	results map[string][]Candidate
	errs    map[string]error
	calls   []providerCall
}

func newFakeProvider(clock *fakeClock) *fakeProvider {
	return &fakeProvider{
		clock:   clock,
		results: make(map[string][]Candidate),
		errs:    make(map[string]error),
	}
}

func (p *fakeProvider) Search(_ context.Context, query string) ([]Candidate, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, providerCall{query: query, at: p.clock.Now()})
	if err, ok := p.errs[query]; ok {
		return nil, err
	}
	return p.results[query], nil
}

func (p *fakeProvider) found(query, lat, lon string) {
	p.results[query] = []Candidate{{Lat: lat, Lon: lon, DisplayName: query}}
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *fakeProvider) queries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		out = append(out, c.query)
	}
	return out
}

type countingRecorder struct {
	mu       sync.Mutex
	hits     int
	misses   int
	waited   time.Duration
	requests map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{requests: make(map[string]int)}
}

func (r *countingRecorder) CacheHit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits++
}

func (r *countingRecorder) CacheMiss() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses++
}

func (r *countingRecorder) RateLimitWait(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waited += d
}

func (r *countingRecorder) ProviderRequest(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[result]++
}

type testEnv struct {
	clock    *fakeClock
	provider *fakeProvider
	storage  *cache.MemoryStorage
	cache    *cache.Cache
	resolver *Resolver
}

func newTestEnv(opts ...ResolverOption) *testEnv {
	clock := newFakeClock()
	provider := newFakeProvider(clock)
	storage := cache.NewMemoryStorage()
	c := cache.New(storage, cache.WithClock(clock.Now))
	opts = append([]ResolverOption{WithClock(clock)}, opts...)
	return &testEnv{
		clock:    clock,
		provider: provider,
		storage:  storage,
		cache:    c,
		resolver: NewResolver(c, provider, opts...),
	}
}
