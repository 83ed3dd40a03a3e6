package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role granted to a client.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// Client owns cards and authenticates against the service.
type Client struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose
	Role         Role      `json:"role"`
	Locked       bool      `json:"locked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the client holds the admin role.
func (c *Client) IsAdmin() bool {
	return c.Role == RoleAdmin
}
