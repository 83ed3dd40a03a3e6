package redis

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"bank-cards/config"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

func TestNewClient(t *testing.T) {
	s := miniredis.RunT(t)
	host, portStr, _ := strings.Cut(s.Addr(), ":")
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := NewClient(context.Background(), config.RedisConfig{Host: host, Port: port}, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	hc := NewHealthCheck(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Ping(context.Background()))
}

func TestNewClient_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	host, portStr, _ := strings.Cut(s.Addr(), ":")
	port, _ := strconv.Atoi(portStr)
	s.Close()

	_, err := NewClient(context.Background(), config.RedisConfig{Host: host, Port: port}, zerolog.Nop())
	assert.Error(t, err)
}

func TestLease_TryAcquire(t *testing.T) {
	s, client := newTestClient(t)
	lease := NewLease(client)
	ctx := context.Background()

	ok, err := lease.TryAcquire(ctx, "expiry-sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lease.TryAcquire(ctx, "expiry-sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	s.FastForward(61 * time.Second)
	ok, err = lease.TryAcquire(ctx, "expiry-sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.True(t, s.Exists(keyPrefix+"lease:expiry-sweep"))
}
