package memory

import (
	"context"
	"fmt"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type stagedUpdate struct {
	rec      domain.CardRecord
	expected int64
}

// Tx stages writes and applies them atomically on Commit after re-checking
// every expected version. Only Commit and Rollback are supported.
type Tx struct {
	pgx.Tx
	store         *Store
	updates       []stagedUpdate
	ownerDeletes  []uuid.UUID
	clientDeletes []uuid.UUID
	claims        []stagedClaim
	done          bool
}

// Commit applies the staged writes or fails with ports.ErrVersionConflict
// when any card moved since it was staged. Nothing is applied on failure.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, c := range t.claims {
		if s.liveKeyLocked(c.key, now) {
			return fmt.Errorf("idempotency key %q: %w", c.key, ports.ErrDuplicate)
		}
	}

	work := make(map[uuid.UUID]domain.CardRecord, len(t.updates))
	for _, u := range t.updates {
		cur, ok := work[u.rec.ID]
		if !ok {
			cur, ok = s.cards[u.rec.ID]
		}
		if !ok {
			return fmt.Errorf("card %s: %w", u.rec.ID, ports.ErrNotFound)
		}
		if cur.Version != u.expected {
			return fmt.Errorf("card %s at version %d, expected %d: %w", u.rec.ID, cur.Version, u.expected, ports.ErrVersionConflict)
		}
		work[u.rec.ID] = u.rec
	}

	for id, rec := range work {
		s.cards[id] = rec
	}
	for _, ownerID := range t.ownerDeletes {
		s.deleteOwnerCardsLocked(ownerID)
	}
	for _, id := range t.clientDeletes {
		s.deleteOwnerCardsLocked(id)
		delete(s.clients, id)
	}
	for _, c := range t.claims {
		s.keys[c.key] = c.entry
	}
	return nil
}

// Rollback discards the staged writes.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.updates = nil
	t.ownerDeletes = nil
	t.clientDeletes = nil
	t.claims = nil
	return nil
}

// stagedCard returns the latest version of id visible inside the transaction.
func (t *Tx) stagedCard(id uuid.UUID) (domain.CardRecord, bool) {
	for i := len(t.updates) - 1; i >= 0; i-- {
		if t.updates[i].rec.ID == id {
			return t.updates[i].rec, true
		}
	}
	rec, ok := t.store.cards[id]
	return rec, ok
}

// wrappedTx is a pgx.Tx decorator that exposes the transaction it delegates to.
type wrappedTx interface {
	Unwrap() pgx.Tx
}

func asTx(tx pgx.Tx) (*Tx, error) {
	for {
		w, ok := tx.(wrappedTx)
		if !ok {
			break
		}
		tx = w.Unwrap()
	}
	mtx, ok := tx.(*Tx)
	if !ok || mtx == nil {
		return nil, fmt.Errorf("memory storage requires a memory transaction, got %T", tx)
	}
	if mtx.done {
		return nil, pgx.ErrTxClosed
	}
	return mtx, nil
}

func (s *Store) deleteOwnerCardsLocked(ownerID uuid.UUID) int64 {
	var n int64
	for id, rec := range s.cards {
		if rec.OwnerID == ownerID {
			delete(s.cards, id)
			n++
		}
	}
	return n
}
