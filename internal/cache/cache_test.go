package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contracting-bridge/internal/config"
)

func TestNewSelectsBackend(t *testing.T) {
	store, err := New(config.CacheConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Describe().Backend)

	_, err = New(config.CacheConfig{Backend: "etcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported cache backend")
}

func TestNewRedisRejectsNonNumericDBName(t *testing.T) {
	_, err := New(config.CacheConfig{
		Backend: "redis",
		Host:    "localhost",
		Port:    6379,
		DBName:  "bridge",
	})
	require.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.Has(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := store.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	require.NoError(t, store.Put(ctx, "42", "true"))

	ok, err = store.Has(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)

	val, err = store.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "true", val)

	// Put overwrites.
	require.NoError(t, store.Put(ctx, "42", "2017-01-01"))
	val, err = store.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "2017-01-01", val)
}
