package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"720h", 720 * time.Hour, false},
		{"3600", time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{" 7d ", 7 * 24 * time.Hour, false},
		{"30s", 0, true},
		{"400d", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExpiry(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpiryFromEnv(t *testing.T) {
	t.Setenv(EnvExpiry, "")
	assert.Equal(t, DefaultExpiry, ExpiryFromEnv())

	t.Setenv(EnvExpiry, "7d")
	assert.Equal(t, 7*24*time.Hour, ExpiryFromEnv())

	t.Setenv(EnvExpiry, "bogus")
	assert.Equal(t, DefaultExpiry, ExpiryFromEnv())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "30s", FormatDuration(30*time.Second))
	assert.Equal(t, "5m", FormatDuration(5*time.Minute))
	assert.Equal(t, "2h", FormatDuration(2*time.Hour))
	assert.Equal(t, "2h30m", FormatDuration(2*time.Hour+30*time.Minute))
	assert.Equal(t, "30d", FormatDuration(DefaultExpiry))
	assert.Equal(t, "3d2h", FormatDuration(74*time.Hour))
}
