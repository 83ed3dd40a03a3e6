package memory

import (
	"context"
	"fmt"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CardRepo implements ports.CardRepository in memory.
type CardRepo struct {
	store *Store
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(store *Store) *CardRepo {
	return &CardRepo{store: store}
}

// Create inserts a new card. The number hash and owner must be valid.
func (r *CardRepo) Create(_ context.Context, card *domain.CardRecord) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[card.ID]; ok {
		return fmt.Errorf("card %s: %w", card.ID, ports.ErrDuplicate)
	}
	for _, existing := range s.cards {
		if existing.NumberHash == card.NumberHash {
			return fmt.Errorf("card number hash: %w", ports.ErrDuplicate)
		}
	}
	if _, ok := s.clients[card.OwnerID]; !ok {
		return fmt.Errorf("owner %s does not exist", card.OwnerID)
	}
	s.cards[card.ID] = *card
	return nil
}

// GetByID fetches a card by its UUID.
func (r *CardRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.CardRecord, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.cards[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// GetByNumberHash fetches ownerID's card with the given blind index.
func (r *CardRepo) GetByNumberHash(_ context.Context, ownerID uuid.UUID, numberHash string) (*domain.CardRecord, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.cards {
		if rec.OwnerID == ownerID && rec.NumberHash == numberHash {
			found := rec
			return &found, nil
		}
	}
	return nil, nil
}

// ListAll returns every card.
func (r *CardRepo) ListAll(_ context.Context) ([]domain.CardRecord, error) {
	return r.filter(func(domain.CardRecord) bool { return true }), nil
}

// ListByOwner returns all cards of ownerID.
func (r *CardRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]domain.CardRecord, error) {
	return r.filter(func(rec domain.CardRecord) bool { return rec.OwnerID == ownerID }), nil
}

// ListByOwnerPage returns one page of ownerID's cards and the total count.
func (r *CardRepo) ListByOwnerPage(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.CardRecord, int64, error) {
	all, _ := r.ListByOwner(ctx, ownerID)
	total := int64(len(all))
	if offset < 0 || limit <= 0 || offset >= len(all) {
		return []domain.CardRecord{}, total, nil
	}
	end := len(all)
	if limit < len(all)-offset {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

// ListOverdue returns non-expired cards valid only before the given date.
func (r *CardRepo) ListOverdue(_ context.Context, before time.Time) ([]domain.CardRecord, error) {
	return r.filter(func(rec domain.CardRecord) bool {
		return rec.Status != domain.CardStatusExpired && rec.ValidityDate.Before(before)
	}), nil
}

// UpdateCAS stages the mutable columns of card in tx. The version is checked
// now and again at commit.
func (r *CardRepo) UpdateCAS(_ context.Context, tx pgx.Tx, card *domain.CardRecord, expectedVersion int64) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := mtx.stagedCard(card.ID)
	if !ok {
		return fmt.Errorf("card %s: %w", card.ID, ports.ErrNotFound)
	}
	if cur.Version != expectedVersion {
		return fmt.Errorf("card %s at version %d, expected %d: %w", card.ID, cur.Version, expectedVersion, ports.ErrVersionConflict)
	}

	next := cur
	next.Balance = card.Balance
	next.Status = card.Status
	next.ValidityDate = card.ValidityDate
	next.Version = expectedVersion + 1
	next.UpdatedAt = card.UpdatedAt
	mtx.updates = append(mtx.updates, stagedUpdate{rec: next, expected: expectedVersion})
	return nil
}

// Delete removes a card by id.
func (r *CardRepo) Delete(_ context.Context, id uuid.UUID) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[id]; !ok {
		return fmt.Errorf("card %s: %w", id, ports.ErrNotFound)
	}
	delete(s.cards, id)
	return nil
}

// DeleteByOwner stages removal of every card of ownerID and returns how many exist now.
func (r *CardRepo) DeleteByOwner(_ context.Context, tx pgx.Tx, ownerID uuid.UUID) (int64, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return 0, err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, rec := range s.cards {
		if rec.OwnerID == ownerID {
			n++
		}
	}
	mtx.ownerDeletes = append(mtx.ownerDeletes, ownerID)
	return n, nil
}

func (r *CardRepo) filter(keep func(domain.CardRecord) bool) []domain.CardRecord {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CardRecord, 0)
	for _, rec := range s.cards {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sortCards(out)
	return out
}
