package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SchemaVersion tags the persisted document. A document carrying any other
// tag is discarded on load.
const SchemaVersion = "v1"

// Store is the in-memory form of the persisted cache document.
type Store struct {
	Version string           `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// NewStore returns an empty store with the current schema version.
func NewStore() *Store {
	return &Store{
		Version: SchemaVersion,
		Entries: make(map[string]Entry),
	}
}

// Stats is a read-only summary of a store.
type Stats struct {
	// Size counts every stored entry, expired or not.
	Size int `json:"size"`

	// Expired counts stored entries that are already outside the expiry window.
	Expired int `json:"expired"`

	// OldestEntry is the resolution time of the oldest stored entry, nil when empty.
	OldestEntry *time.Time `json:"oldest_entry,omitempty"`
}

// Cache implements the cache operations on top of a Storage.
// Get, Put, PurgeExpired and Stats work on a loaded *Store; Load, Save, Clear
// and Record talk to the storage.
type Cache struct {
	storage Storage
	expiry  time.Duration
	now     func() time.Time
	logger  zerolog.Logger

	// mu serializes Record's load-modify-save cycle within the process.
	mu sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithExpiry sets the expiry window. Non-positive values are ignored.
func WithExpiry(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.expiry = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger used to report swallowed failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// New creates a Cache over storage.
func New(storage Storage, opts ...Option) *Cache {
	c := &Cache{
		storage: storage,
		expiry:  DefaultExpiry,
		now:     time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Expiry returns the configured expiry window.
func (c *Cache) Expiry() time.Duration {
	return c.expiry
}

// Storage returns the underlying storage.
func (c *Cache) Storage() Storage {
	return c.storage
}

// Load reads the persisted store. Missing data, read errors, corrupt JSON and
// schema version mismatches all produce a fresh empty store. A document with
// another schema version is also removed from storage.
func (c *Cache) Load(ctx context.Context) *Store {
	data, err := c.storage.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoData) {
			c.logger.Warn().Err(err).Str("storage", c.storage.Location()).
				Msg("failed to read geocode cache, starting empty")
		}
		return NewStore()
	}

	var store Store
	if unmarshalErr := json.Unmarshal(data, &store); unmarshalErr != nil {
		c.logger.Warn().Err(unmarshalErr).Str("storage", c.storage.Location()).
			Msg("geocode cache is corrupted, starting empty")
		return NewStore()
	}

	if store.Version != SchemaVersion {
		c.logger.Info().Str("found", store.Version).Str("expected", SchemaVersion).
			Msg("geocode cache schema changed, discarding stored entries")
		if err := c.storage.Clear(ctx); err != nil {
			c.logger.Warn().Err(err).Str("storage", c.storage.Location()).
				Msg("failed to remove stale geocode cache")
		}
		return NewStore()
	}

	if store.Entries == nil {
		store.Entries = make(map[string]Entry)
	}
	return &store
}

// Save persists the full store. Failures are logged and swallowed: a caching
// failure must never fail the resolution that triggered it.
func (c *Cache) Save(ctx context.Context, store *Store) {
	if store == nil {
		return
	}
	data, err := json.Marshal(store)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to encode geocode cache")
		return
	}
	if saveErr := c.storage.Save(ctx, data); saveErr != nil {
		c.logger.Warn().Err(saveErr).Str("storage", c.storage.Location()).
			Msg("failed to persist geocode cache")
	}
}

// Get returns the entry for key if it is present and not expired.
// Expired entries are reported exactly like missing ones.
func (c *Cache) Get(store *Store, key string) (Entry, bool) {
	if store == nil {
		return Entry{}, false
	}
	entry, ok := store.Entries[key]
	if !ok || entry.IsExpired(c.now(), c.expiry) {
		return Entry{}, false
	}
	return entry, true
}

// Put inserts or overwrites the entry for key and returns the same store.
// The caller persists it with Save.
func (c *Cache) Put(store *Store, key string, entry Entry) *Store {
	if store == nil {
		store = NewStore()
	}
	if store.Entries == nil {
		store.Entries = make(map[string]Entry)
	}
	store.Entries[key] = entry
	return store
}

// PurgeExpired removes expired entries from store and returns how many were
// removed. Valid entries are left untouched.
func (c *Cache) PurgeExpired(store *Store) int {
	if store == nil {
		return 0
	}
	now := c.now()
	removed := 0
	for key, entry := range store.Entries {
		if entry.IsExpired(now, c.expiry) {
			delete(store.Entries, key)
			removed++
		}
	}
	return removed
}

// Clear deletes the persisted store unconditionally.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.storage.Clear(ctx); err != nil {
		c.logger.Warn().Err(err).Str("storage", c.storage.Location()).
			Msg("failed to clear geocode cache")
	}
}

// Stats summarizes store.
func (c *Cache) Stats(store *Store) Stats {
	var stats Stats
	if store == nil {
		return stats
	}

	now := c.now()
	var oldest int64
	for _, entry := range store.Entries {
		stats.Size++
		if entry.IsExpired(now, c.expiry) {
			stats.Expired++
		}
		if stats.Size == 1 || entry.Timestamp < oldest {
			oldest = entry.Timestamp
		}
	}
	if stats.Size > 0 {
		t := time.UnixMilli(oldest)
		stats.OldestEntry = &t
	}
	return stats
}

// Record writes a freshly resolved coordinate through to storage: it loads the
// current store, puts the entry and saves. Concurrent Records in one process
// are serialized so they never drop each other's keys.
func (c *Cache) Record(ctx context.Context, key string, lat, lng float64) Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := NewEntry(lat, lng, c.now())
	store := c.Put(c.Load(ctx), key, entry)
	c.Save(ctx, store)
	return entry
}

// Purge loads the store, removes expired entries and saves it when anything
// was removed. It returns the number of removed entries.
func (c *Cache) Purge(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	store := c.Load(ctx)
	removed := c.PurgeExpired(store)
	if removed > 0 {
		c.Save(ctx, store)
	}
	return removed
}
