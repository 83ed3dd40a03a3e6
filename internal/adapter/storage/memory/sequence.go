package memory

import (
	"context"

	"bank-cards/internal/core/domain"
)

// Sequence implements ports.CardNumberSequence with a counter starting at 1.
type Sequence struct {
	store *Store
}

// NewSequence creates a card number sequence over store.
func NewSequence(store *Store) *Sequence {
	return &Sequence{store: store}
}

// Next returns the next value.
func (q *Sequence) Next(_ context.Context) (int64, error) {
	s := q.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	return s.seq, nil
}

// AuditRepo implements ports.AuditRepository in memory.
type AuditRepo struct {
	store *Store
}

// NewAuditRepo creates an in-memory audit repository.
func NewAuditRepo(store *Store) *AuditRepo {
	return &AuditRepo{store: store}
}

// Create appends an audit entry.
func (r *AuditRepo) Create(_ context.Context, log *domain.AuditLog) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audit = append(s.audit, *log)
	return nil
}

// Entries returns a copy of the recorded audit entries.
func (r *AuditRepo) Entries() []domain.AuditLog {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.AuditLog(nil), s.audit...)
}
