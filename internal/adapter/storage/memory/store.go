// Package memory is a process-local storage backend with the same
// optimistic-concurrency semantics as the PostgreSQL adapter.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"bank-cards/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store holds all tables behind one mutex.
type Store struct {
	mu      sync.Mutex
	cards   map[uuid.UUID]domain.CardRecord
	clients map[uuid.UUID]domain.Client
	audit   []domain.AuditLog
	seq     int64
	keys    map[string]idempotencyEntry
	now     func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		cards:   make(map[uuid.UUID]domain.CardRecord),
		clients: make(map[uuid.UUID]domain.Client),
		keys:    make(map[string]idempotencyEntry),
		now:     time.Now,
	}
}

// Transactor implements ports.DBTransactor for the in-memory store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a Transactor over store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin starts a staged transaction.
func (t *Transactor) Begin(_ context.Context) (pgx.Tx, error) {
	return &Tx{store: t.store}, nil
}

// HealthCheck implements ports.HealthChecker; memory storage is always reachable.
type HealthCheck struct{}

// Ping always succeeds.
func (HealthCheck) Ping(_ context.Context) error { return nil }

// Name returns the dependency name.
func (HealthCheck) Name() string { return "memory" }

// sortCards orders records by creation time then id, matching the SQL ORDER BY.
func sortCards(recs []domain.CardRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})
}
