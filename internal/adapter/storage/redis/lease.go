package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Lease implements ports.Lease with SET NX. A lease is never released early;
// it simply expires, which keeps one holder per period across instances.
type Lease struct {
	client *goredis.Client
	prefix string
}

// NewLease creates a Redis-backed lease.
func NewLease(client *goredis.Client) *Lease {
	return &Lease{
		client: client,
		prefix: keyPrefix + "lease:",
	}
}

// TryAcquire returns true if this caller now holds name for ttl.
func (l *Lease) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.prefix+name, time.Now().UTC().Format(time.RFC3339), goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis lease acquire: %w", err)
	}
	return result == "OK", nil
}
