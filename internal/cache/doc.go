// Package cache persists resolved coordinates keyed by normalized address.
//
// The whole cache is one versioned JSON document stored under a single key of a
// Storage backend (a local file, a Redis key, or memory). Key features:
//   - Fixed expiry window (default 30 days); expired entries read as misses
//   - Schema version tag; a mismatched document is discarded, never migrated
//   - Write-through: every successful resolution is persisted immediately
//   - Fail-open: storage and parse failures are logged, never returned
//
// A failure to cache never prevents a coordinate from being returned.
package cache
