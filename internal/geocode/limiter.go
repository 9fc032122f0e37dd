package geocode

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the minimum spacing between rate-limited provider calls.
const DefaultMinInterval = 1100 * time.Millisecond

// Clock abstracts time for the limiter so tests can run without sleeping.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in that case.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter spaces provider calls at least interval apart. It is a token bucket
// of size one refilled once per interval; callers reserve the next slot and
// then sleep on the Clock, so concurrent callers queue up one interval apart.
type Limiter struct {
	interval time.Duration
	clock    Clock

	mu     sync.Mutex
	bucket *rate.Limiter
}

// NewLimiter creates a limiter. A nil clock uses the wall clock.
func NewLimiter(interval time.Duration, clock Clock) *Limiter {
	if clock == nil {
		clock = realClock{}
	}
	return &Limiter{
		interval: interval,
		clock:    clock,
		bucket:   rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Interval returns the minimum spacing between calls.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait reserves the next slot and blocks until it arrives. It returns how long
// it waited. On cancellation the slot is released for the next caller and the
// context error is returned.
func (l *Limiter) Wait(ctx context.Context) (time.Duration, error) {
	if l.interval <= 0 {
		return 0, nil
	}

	l.mu.Lock()
	now := l.clock.Now()
	reservation := l.bucket.ReserveN(now, 1)
	l.mu.Unlock()

	delay := reservation.DelayFrom(now)
	if delay <= 0 {
		return 0, nil
	}
	if err := l.clock.Sleep(ctx, delay); err != nil {
		reservation.CancelAt(l.clock.Now())
		return delay, err
	}
	return delay, nil
}

// Mark records a call made now without waiting, so later rate-limited calls
// keep their spacing from it. A call inside a partly refilled interval is
// charged a whole slot. When no token is left the call is covered by the
// existing reservations and nothing is charged.
func (l *Limiter) Mark() {
	if l.interval <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if l.bucket.TokensAt(now) > 0 {
		l.bucket.ReserveN(now, 1)
	}
}
