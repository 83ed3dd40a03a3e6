package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const cardColumns = `id, number_enc, number_hash, balance, status, validity_date, version, owner_id, created_at, updated_at`

// CardRepo implements ports.CardRepository.
type CardRepo struct {
	pool Pool
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(pool Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

// Create inserts a new card.
func (r *CardRepo) Create(ctx context.Context, c *domain.CardRecord) error {
	query := `INSERT INTO cards (` + cardColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.NumberEnc, c.NumberHash, c.Balance, string(c.Status),
		c.ValidityDate, c.Version, c.OwnerID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert card: %w", ports.ErrDuplicate)
		}
		return fmt.Errorf("insert card: %w", err)
	}
	return nil
}

// GetByID fetches a card by its UUID.
func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CardRecord, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1`

	c, err := scanCard(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get card by id: %w", err)
	}
	return c, nil
}

// GetByNumberHash fetches ownerID's card by the blind index of its number.
func (r *CardRepo) GetByNumberHash(ctx context.Context, ownerID uuid.UUID, numberHash string) (*domain.CardRecord, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1 AND number_hash = $2`

	c, err := scanCard(r.pool.QueryRow(ctx, query, ownerID, numberHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get card by number hash: %w", err)
	}
	return c, nil
}

// ListAll returns every card.
func (r *CardRepo) ListAll(ctx context.Context) ([]domain.CardRecord, error) {
	query := `SELECT ` + cardColumns + ` FROM cards ORDER BY created_at, id`
	return r.list(ctx, "list cards", query)
}

// ListByOwner returns every card of ownerID.
func (r *CardRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.CardRecord, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1 ORDER BY created_at, id`
	return r.list(ctx, "list owner cards", query, ownerID)
}

// ListByOwnerPage returns one page of ownerID's cards and the total count.
func (r *CardRepo) ListByOwnerPage(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.CardRecord, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cards WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count owner cards: %w", err)
	}

	query := `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = $1
		ORDER BY created_at, id LIMIT $2 OFFSET $3`
	cards, err := r.list(ctx, "list owner cards page", query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// ListOverdue returns non-expired cards whose validity date is before the given date.
func (r *CardRepo) ListOverdue(ctx context.Context, before time.Time) ([]domain.CardRecord, error) {
	query := `SELECT ` + cardColumns + ` FROM cards
		WHERE status <> 'EXPIRED' AND validity_date < $1 ORDER BY validity_date, id`
	return r.list(ctx, "list overdue cards", query, before)
}

// UpdateCAS writes the mutable columns of c inside tx when the stored
// version still equals expectedVersion, and bumps the version.
func (r *CardRepo) UpdateCAS(ctx context.Context, tx pgx.Tx, c *domain.CardRecord, expectedVersion int64) error {
	query := `UPDATE cards
		SET balance = $1, status = $2, validity_date = $3, version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6`

	tag, err := tx.Exec(ctx, query,
		c.Balance, string(c.Status), c.ValidityDate, c.UpdatedAt, c.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check card after failed update: %w", err)
	}
	if !exists {
		return fmt.Errorf("card %s: %w", c.ID, ports.ErrNotFound)
	}
	return fmt.Errorf("card %s expected version %d: %w", c.ID, expectedVersion, ports.ErrVersionConflict)
}

// Delete removes a card by id.
func (r *CardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("card %s: %w", id, ports.ErrNotFound)
	}
	return nil
}

// DeleteByOwner removes every card of ownerID inside tx.
func (r *CardRepo) DeleteByOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM cards WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("delete owner cards: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *CardRepo) list(ctx context.Context, op, query string, args ...any) ([]domain.CardRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	cards := make([]domain.CardRecord, 0)
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return cards, nil
}

func scanCard(row pgx.Row) (*domain.CardRecord, error) {
	c := &domain.CardRecord{}
	var status string
	err := row.Scan(
		&c.ID, &c.NumberEnc, &c.NumberHash, &c.Balance, &status,
		&c.ValidityDate, &c.Version, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = domain.CardStatus(status)
	return c, nil
}
