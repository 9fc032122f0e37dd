package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoData)

	payload := []byte(`{"version":"v1"}`)
	require.NoError(t, s.Save(ctx, payload))
	payload[0] = 'X'

	data, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"version":"v1"}`, string(data), "storage keeps its own copy")

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, "memory", s.Location())
}

func TestFileStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("empty path", func(t *testing.T) {
		_, err := NewFileStorage("")
		assert.Error(t, err)
	})

	t.Run("save load clear", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "cache.json")
		s, err := NewFileStorage(path)
		require.NoError(t, err)
		assert.Equal(t, path, s.Location())

		_, err = s.Load(ctx)
		assert.ErrorIs(t, err, ErrNoData)

		require.NoError(t, s.Save(ctx, []byte(`{"version":"v1","entries":{}}`)))
		data, err := s.Load(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, `{"version":"v1","entries":{}}`, string(data))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
		require.NoError(t, err)
		assert.Empty(t, leftovers)

		require.NoError(t, s.Clear(ctx))
		require.NoError(t, s.Clear(ctx), "clearing twice is fine")
		_, err = s.Load(ctx)
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("init creates directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		s, err := NewFileStorage(filepath.Join(dir, "cache.json"))
		require.NoError(t, err)
		require.NoError(t, s.Init(ctx))
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("works as cache backend", func(t *testing.T) {
		s, err := NewFileStorage(filepath.Join(t.TempDir(), "cache.json"))
		require.NoError(t, err)
		c := New(s)
		c.Record(ctx, "lyon", 45.764, 4.835)

		entry, ok := c.Get(c.Load(ctx), "lyon")
		require.True(t, ok)
		assert.InDelta(t, 45.764, entry.Lat, 1e-9)
	})
}

func TestRedisStorage(t *testing.T) {
	addr := os.Getenv("GEOCODER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GEOCODER_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	s := NewRedisStorage(RedisConfig{Addr: addr, Key: "geocoder:test:" + t.Name()})
	defer s.Close()
	require.NoError(t, s.Init(ctx))
	require.NoError(t, s.Clear(ctx))

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoData)

	require.NoError(t, s.Save(ctx, []byte(`{"version":"v1","entries":{}}`)))
	data, err := s.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"v1","entries":{}}`, string(data))
	assert.Contains(t, s.Location(), addr)

	require.NoError(t, s.Clear(ctx))
}

func TestRedisStorage_Defaults(t *testing.T) {
	s := NewRedisStorage(RedisConfig{Addr: "localhost:6379"})
	defer s.Close()
	assert.Equal(t, "redis://localhost:6379/0#"+DefaultRedisKey, s.Location())
}
