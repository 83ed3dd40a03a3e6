package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-cards/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// IdempotencyStore implements ports.IdempotencyRepository on the
// idempotency_keys table.
type IdempotencyStore struct {
	pool Pool
	now  func() time.Time
}

// NewIdempotencyStore creates a new IdempotencyStore.
func NewIdempotencyStore(pool Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool, now: time.Now}
}

// Get returns the stored response for key, or nil when absent or expired.
func (s *IdempotencyStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT response_json FROM idempotency_keys WHERE key = $1 AND expires_at > $2`

	var data []byte
	err := s.pool.QueryRow(ctx, query, key, s.now().UTC()).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return data, nil
}

// Claim inserts key inside tx, taking over an expired row. A concurrent claim
// of the same key blocks on the primary key until the first transaction ends,
// then affects no row and reports ports.ErrDuplicate.
func (s *IdempotencyStore) Claim(ctx context.Context, tx pgx.Tx, key string, value []byte, ttl time.Duration) error {
	now := s.now().UTC()
	query := `INSERT INTO idempotency_keys (key, response_json, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET response_json = EXCLUDED.response_json, expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at
		WHERE idempotency_keys.expires_at <= EXCLUDED.created_at`

	tag, err := tx.Exec(ctx, query, key, value, now.Add(ttl), now)
	if err != nil {
		return fmt.Errorf("claim idempotency key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("idempotency key %q: %w", key, ports.ErrDuplicate)
	}
	return nil
}
