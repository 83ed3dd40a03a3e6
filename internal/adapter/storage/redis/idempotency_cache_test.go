package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyCache_SetAndGet(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	key := "transfer:8d1c:req-1"
	value := []byte(`{"id":"abc","amount":"10.00"}`)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
	assert.True(t, s.Exists("bank-cards:idempotency:"+key))
}

func TestIdempotencyCache_TTLExpiry(t *testing.T) {
	s, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "transfer:c:k", []byte(`{}`), time.Second))
	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, "transfer:c:k")
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestIdempotencyCache_FirstResultWins(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewIdempotencyCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "transfer:c:k", []byte("first"), time.Hour))
	require.NoError(t, cache.Set(ctx, "transfer:c:k", []byte("second"), time.Hour))

	result, err := cache.Get(ctx, "transfer:c:k")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), result)
}
