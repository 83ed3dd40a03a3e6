package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClientRepo implements ports.ClientRepository in memory.
type ClientRepo struct {
	store *Store
}

// NewClientRepo creates a new ClientRepo.
func NewClientRepo(store *Store) *ClientRepo {
	return &ClientRepo{store: store}
}

// Create inserts a client; usernames are unique case-insensitively.
func (r *ClientRepo) Create(_ context.Context, c *domain.Client) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.clients {
		if strings.EqualFold(existing.Username, c.Username) {
			return fmt.Errorf("username %q: %w", c.Username, ports.ErrDuplicate)
		}
	}
	s.clients[c.ID] = *c
	return nil
}

// GetByID fetches a client by UUID.
func (r *ClientRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Client, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// GetByUsername fetches a client by username.
func (r *ClientRepo) GetByUsername(_ context.Context, username string) (*domain.Client, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if strings.EqualFold(c.Username, username) {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

// List returns all clients ordered by creation time.
func (r *ClientRepo) List(_ context.Context) ([]domain.Client, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Username < out[j].Username
	})
	return out, nil
}

// SetLocked updates the lock flag of a client.
func (r *ClientRepo) SetLocked(_ context.Context, id uuid.UUID, locked bool) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[id]
	if !ok {
		return fmt.Errorf("client %s: %w", id, ports.ErrNotFound)
	}
	c.Locked = locked
	c.UpdatedAt = time.Now().UTC()
	s.clients[id] = c
	return nil
}

// Delete stages removal of a client and its cards.
func (r *ClientRepo) Delete(_ context.Context, tx pgx.Tx, id uuid.UUID) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}

	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[id]; !ok {
		return fmt.Errorf("client %s: %w", id, ports.ErrNotFound)
	}
	mtx.clientDeletes = append(mtx.clientDeletes, id)
	return nil
}
