package cache

import "time"

// Entry is one resolved coordinate. Timestamp is the resolution time in epoch
// milliseconds, which keeps the persisted document readable from any language.
type Entry struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Timestamp int64   `json:"timestamp"`
}

// NewEntry creates an entry resolved at the given time.
func NewEntry(lat, lng float64, resolvedAt time.Time) Entry {
	return Entry{
		Lat:       lat,
		Lng:       lng,
		Timestamp: resolvedAt.UnixMilli(),
	}
}

// ResolvedAt returns the resolution time.
func (e Entry) ResolvedAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Age returns how long ago the entry was resolved.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.ResolvedAt())
}

// IsExpired reports whether the entry is outside the expiry window.
// An entry is valid only while now - resolvedAt < window.
func (e Entry) IsExpired(now time.Time, window time.Duration) bool {
	return e.Age(now) >= window
}

// TimeUntilExpiration returns the remaining validity, or 0 if already expired.
func (e Entry) TimeUntilExpiration(now time.Time, window time.Duration) time.Duration {
	remaining := window - e.Age(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
