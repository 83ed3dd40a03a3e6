package ports

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

import (
	"context"
	"errors"
	"time"

	"bank-cards/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Sentinel errors returned by repositories. Services translate them into apperror codes.
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("record version conflict")
	ErrDuplicate       = errors.New("duplicate record")
)

// CardRepository defines persistence operations for cards.
// Getters return (nil, nil) when the row does not exist.
// Methods accepting pgx.Tx take part in the caller's transaction.
type CardRepository interface {
	Create(ctx context.Context, card *domain.CardRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CardRecord, error)
	GetByNumberHash(ctx context.Context, ownerID uuid.UUID, numberHash string) (*domain.CardRecord, error)
	ListAll(ctx context.Context) ([]domain.CardRecord, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.CardRecord, error)
	ListByOwnerPage(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]domain.CardRecord, int64, error)
	ListOverdue(ctx context.Context, before time.Time) ([]domain.CardRecord, error)
	// UpdateCAS writes the mutable columns of card if the stored version equals
	// expectedVersion and bumps the version. It returns ErrVersionConflict when the
	// version moved and ErrNotFound when the row is gone.
	UpdateCAS(ctx context.Context, tx pgx.Tx, card *domain.CardRecord, expectedVersion int64) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByOwner(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (int64, error)
}

// ClientRepository defines persistence operations for clients.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	GetByUsername(ctx context.Context, username string) (*domain.Client, error)
	List(ctx context.Context) ([]domain.Client, error)
	SetLocked(ctx context.Context, id uuid.UUID, locked bool) error
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// CardNumberSequence hands out strictly increasing card number seeds.
type CardNumberSequence interface {
	Next(ctx context.Context) (int64, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// IdempotencyRepository durably records transfer results per idempotency key.
// Get returns (nil, nil) when no unexpired entry exists. Claim writes the entry
// inside tx and returns ErrDuplicate when an unexpired entry for key already
// exists, so at most one transaction per key commits.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Claim(ctx context.Context, tx pgx.Tx, key string, value []byte, ttl time.Duration) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
