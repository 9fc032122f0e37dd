package cache

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Expiry configuration constants and defaults.
const (
	// DefaultExpiry is how long a resolved coordinate stays valid (30 days).
	DefaultExpiry = 30 * hoursPerDay * time.Hour

	// MinExpiry is the shortest accepted expiry window.
	MinExpiry = time.Minute

	// MaxExpiry is the longest accepted expiry window (1 year).
	MaxExpiry = 365 * hoursPerDay * time.Hour

	// EnvExpiry overrides the expiry window, e.g. "30d" or "720h".
	EnvExpiry = "GEOCODER_CACHE_EXPIRY"

	hoursPerDay    = 24
	minutesPerHour = 60
)

// ErrInvalidExpiry is returned when an expiry window is out of range.
var ErrInvalidExpiry = errors.New("cache expiry must be between 1m and 365d")

// ParseExpiry parses an expiry window in one of these forms:
// - Integer seconds: "2592000".
// - Days: "30d".
// - Go duration: "720h", "90m".
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidExpiry)
	}

	var d time.Duration
	switch {
	case isDigits(s):
		seconds, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid expiry format: %w", err)
		}
		d = time.Duration(seconds) * time.Second
	case strings.HasSuffix(s, "d") && isDigits(strings.TrimSuffix(s, "d")):
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return 0, fmt.Errorf("invalid expiry format: %w", err)
		}
		d = time.Duration(days) * hoursPerDay * time.Hour
	default:
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid expiry format: %w", err)
		}
		d = parsed
	}

	if err := ValidateExpiry(d); err != nil {
		return 0, err
	}
	return d, nil
}

// ValidateExpiry checks that d is within [MinExpiry, MaxExpiry].
func ValidateExpiry(d time.Duration) error {
	if d < MinExpiry || d > MaxExpiry {
		return fmt.Errorf("%w: got %s", ErrInvalidExpiry, d)
	}
	return nil
}

// ExpiryFromEnv reads the expiry window from GEOCODER_CACHE_EXPIRY.
// Unset or invalid values yield DefaultExpiry.
func ExpiryFromEnv() time.Duration {
	envVal := os.Getenv(EnvExpiry)
	if envVal == "" {
		return DefaultExpiry
	}
	d, err := ParseExpiry(envVal)
	if err != nil {
		return DefaultExpiry
	}
	return d
}

// FormatDuration formats a duration in a human-readable way.
// Examples: "30s", "5m", "2h30m", "30d".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
	if d < hoursPerDay*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % minutesPerHour
		if minutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh%dm", hours, minutes)
	}
	days := int(d.Hours()) / hoursPerDay
	hours := int(d.Hours()) % hoursPerDay
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd%dh", days, hours)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
