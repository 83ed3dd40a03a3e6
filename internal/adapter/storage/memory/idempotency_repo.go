package memory

import (
	"context"
	"fmt"
	"time"

	"bank-cards/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

type idempotencyEntry struct {
	value     []byte
	expiresAt time.Time
}

type stagedClaim struct {
	key   string
	entry idempotencyEntry
}

// IdempotencyRepo implements ports.IdempotencyRepository in memory.
type IdempotencyRepo struct {
	store *Store
}

// NewIdempotencyRepo creates a new IdempotencyRepo.
func NewIdempotencyRepo(store *Store) *IdempotencyRepo {
	return &IdempotencyRepo{store: store}
}

// Get returns the stored response for key, or nil when absent or expired.
func (r *IdempotencyRepo) Get(_ context.Context, key string) ([]byte, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveKeyLocked(key, s.now()) {
		return nil, nil
	}
	return append([]byte(nil), s.keys[key].value...), nil
}

// Claim stages key in tx. The key is checked now and again at commit, where
// the later of two racing transactions fails with ports.ErrDuplicate.
func (r *IdempotencyRepo) Claim(_ context.Context, tx pgx.Tx, key string, value []byte, ttl time.Duration) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.liveKeyLocked(key, now) {
		return fmt.Errorf("idempotency key %q: %w", key, ports.ErrDuplicate)
	}
	for _, c := range mtx.claims {
		if c.key == key {
			return fmt.Errorf("idempotency key %q: %w", key, ports.ErrDuplicate)
		}
	}
	mtx.claims = append(mtx.claims, stagedClaim{
		key:   key,
		entry: idempotencyEntry{value: append([]byte(nil), value...), expiresAt: now.Add(ttl)},
	})
	return nil
}

func (s *Store) liveKeyLocked(key string, now time.Time) bool {
	e, ok := s.keys[key]
	return ok && e.expiresAt.After(now)
}
