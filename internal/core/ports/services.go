package ports

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

import (
	"context"
	"time"

	"bank-cards/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardNumberCodec encrypts card numbers at rest (AES-256-GCM).
type CardNumberCodec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// BlindIndexer derives a deterministic keyed hash of a card number for exact lookups.
type BlindIndexer interface {
	Index(number string) string
}

// CardNumberGenerator produces unique 16-digit card numbers.
type CardNumberGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(client *domain.Client) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	ClientID uuid.UUID
	Username string
	Role     domain.Role
}

// IdempotencyCache is the Redis read-through layer in front of IdempotencyRepository.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EventPublisher emits card events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.CardEvent) error
}

// AuditService records audit entries without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// Lease grants one holder a named lease until ttl elapses.
type Lease interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
}

// --- Service Ports (Business Logic) ---

// CardService covers card issuance, lookup, listing and removal.
type CardService interface {
	CreateCard(ctx context.Context, p domain.Principal, req CreateCardRequest) (*domain.CardView, error)
	GetCard(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.CardView, error)
	ListCards(ctx context.Context, p domain.Principal) ([]domain.CardView, error)
	ListOwnerCards(ctx context.Context, p domain.Principal, params ListOwnerCardsParams) (*domain.Page[domain.CardView], error)
	DeleteCard(ctx context.Context, p domain.Principal, id uuid.UUID) error
}

// CreateCardRequest holds validated input for card issuance.
type CreateCardRequest struct {
	OwnerID        uuid.UUID
	InitialBalance *decimal.Decimal // nil = zero
}

// ListOwnerCardsParams holds filter + pagination for an owner's cards.
type ListOwnerCardsParams struct {
	OwnerID uuid.UUID
	Page    int
	Size    int
	Query   string // digits only; empty matches all
}

// TransferService moves funds between two cards.
type TransferService interface {
	Transfer(ctx context.Context, p domain.Principal, req TransferRequest) (*domain.Transfer, error)
}

// TransferRequest holds input for a transfer.
type TransferRequest struct {
	SourceCardID   uuid.UUID
	TargetCardID   uuid.UUID
	Amount         decimal.Decimal
	IdempotencyKey string
}

// LifecycleService changes card status.
type LifecycleService interface {
	BlockOwnCard(ctx context.Context, p domain.Principal, cardID uuid.UUID) (*domain.CardView, error)
	SetCardStatus(ctx context.Context, p domain.Principal, cardID uuid.UUID, status domain.CardStatus) (*domain.CardView, error)
	ExpireOverdue(ctx context.Context, p domain.Principal, now time.Time) (int, error)
}

// ClientService is the admin surface over clients.
type ClientService interface {
	ListClients(ctx context.Context, p domain.Principal) ([]domain.Client, error)
	GetClient(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Client, error)
	DeleteClient(ctx context.Context, p domain.Principal, id uuid.UUID) error
	SetClientLocked(ctx context.Context, p domain.Principal, id uuid.UUID, locked bool) (*domain.Client, error)
}

// AuthService defines authentication business logic.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*AuthResult, error)
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	Authenticate(ctx context.Context, token string) (domain.Principal, error)
	EnsureAdmin(ctx context.Context, username, password string) error
}

// AuthResult is returned after a successful register or login.
type AuthResult struct {
	ClientID  uuid.UUID
	Token     string
	ExpiresAt time.Time
}
