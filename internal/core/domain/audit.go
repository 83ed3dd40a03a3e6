package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRegister      AuditAction = "REGISTER"
	AuditActionLogin         AuditAction = "LOGIN"
	AuditActionCreateCard    AuditAction = "CREATE_CARD"
	AuditActionTransfer      AuditAction = "TRANSFER"
	AuditActionBlockCard     AuditAction = "BLOCK_CARD"
	AuditActionSetCardStatus AuditAction = "SET_CARD_STATUS"
	AuditActionExpireCards   AuditAction = "EXPIRE_CARDS"
	AuditActionDeleteCard    AuditAction = "DELETE_CARD"
	AuditActionDeleteClient  AuditAction = "DELETE_CLIENT"
	AuditActionLockClient    AuditAction = "LOCK_CLIENT"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewAuditLog fills the identity and timestamp of an entry issued by p.
func NewAuditLog(p Principal, action AuditAction, resourceType, resourceID string) *AuditLog {
	entry := &AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now().UTC(),
	}
	if p.ClientID != uuid.Nil {
		id := p.ClientID
		entry.ActorID = &id
	}
	return entry
}
