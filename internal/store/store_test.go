package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/config"
)

func backends(t *testing.T) map[string]Buckets {
	t.Helper()

	lite, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { lite.Close() })

	return map[string]Buckets{
		"memory": NewMemory(),
		"sqlite": lite,
	}
}

func TestStoreBehaviour(t *testing.T) {
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := b.Bucket("failures")

			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "k", []byte("one")))
			require.NoError(t, s.Set(ctx, "k", []byte("two")))
			got, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "two", string(got))

			require.NoError(t, s.Set(ctx, "k", nil))
			_, err = s.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Delete(ctx, "never-set"))
		})
	}
}

func TestBucketsAreIsolated(t *testing.T) {
	ctx := context.Background()

	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Bucket(BucketCookies).Set(ctx, "k", []byte("c")))
			_, err := b.Bucket(BucketFailures).Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemory().Bucket("x")

	type record struct {
		Failed int      `json:"failed"`
		Reason []string `json:"reason"`
	}

	var out record
	found, err := GetJSON(ctx, s, "r", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, s, "r", record{Failed: 2, Reason: []string{"slow"}}))
	found, err = GetJSON(ctx, s, "r", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, record{Failed: 2, Reason: []string{"slow"}}, out)

	require.NoError(t, s.Set(ctx, "bad", []byte("{")))
	_, err = GetJSON(ctx, s, "bad", &out)
	assert.Error(t, err)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Bucket(BucketCookies).Set(ctx, "cookies:p/s", []byte("[]")))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	got, err := second.Bucket(BucketCookies).Get(ctx, "cookies:p/s")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestOpen(t *testing.T) {
	b, err := Open(config.StorageConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	b, err = Open(config.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, b)
	require.NoError(t, b.Close())

	_, err = Open(config.StorageConfig{Driver: "redis"})
	assert.Error(t, err)
}
