// Package geocode turns free-text addresses into coordinates.
//
// A Resolver sits in front of a Provider (OpenStreetMap Nominatim by default)
// and a cache.Cache: hits are answered from the cache without any delay,
// misses go to the provider no closer together than the configured minimum
// interval, and successful results are written through to the cache.
// Failures of any kind are reported to the caller as "not found" and are
// never cached.
//
// ResolveAll resolves a list of items strictly in order and reports every
// outcome as soon as it is known.
package geocode
