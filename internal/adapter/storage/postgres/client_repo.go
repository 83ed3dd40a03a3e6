package postgres

import (
	"context"
	"errors"
	"fmt"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const clientColumns = `id, username, password_hash, role, locked, created_at, updated_at`

// ClientRepo implements ports.ClientRepository.
type ClientRepo struct {
	pool Pool
}

// NewClientRepo creates a new ClientRepo.
func NewClientRepo(pool Pool) *ClientRepo {
	return &ClientRepo{pool: pool}
}

// Create inserts a new client.
func (r *ClientRepo) Create(ctx context.Context, c *domain.Client) error {
	query := `INSERT INTO clients (` + clientColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		c.ID, c.Username, c.PasswordHash, string(c.Role), c.Locked, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert client: %w", ports.ErrDuplicate)
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetByID fetches a client by UUID.
func (r *ClientRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	c, err := scanClient(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client by id: %w", err)
	}
	return c, nil
}

// GetByUsername fetches a client by username, ignoring case.
func (r *ClientRepo) GetByUsername(ctx context.Context, username string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE LOWER(username) = LOWER($1)`

	c, err := scanClient(r.pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client by username: %w", err)
	}
	return c, nil
}

// List returns every client ordered by creation time.
func (r *ClientRepo) List(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY created_at, username`)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// SetLocked updates the lock flag of a client.
func (r *ClientRepo) SetLocked(ctx context.Context, id uuid.UUID, locked bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE clients SET locked = $1, updated_at = NOW() WHERE id = $2`, locked, id)
	if err != nil {
		return fmt.Errorf("update client lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client %s: %w", id, ports.ErrNotFound)
	}
	return nil
}

// Delete removes a client inside tx.
func (r *ClientRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("client %s: %w", id, ports.ErrNotFound)
	}
	return nil
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	c := &domain.Client{}
	var role string
	if err := row.Scan(&c.ID, &c.Username, &c.PasswordHash, &role, &c.Locked, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Role = domain.Role(role)
	return c, nil
}
