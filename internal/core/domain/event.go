package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names a card event published to the message bus.
type EventType string

const (
	EventCardCreated       EventType = "card.created"
	EventCardStatusChanged EventType = "card.status_changed"
	EventCardDeleted       EventType = "card.deleted"
	EventTransferCompleted EventType = "transfer.completed"
)

// CardEvent is the message published after a committed change.
// It never carries the card number.
type CardEvent struct {
	ID           uuid.UUID        `json:"id"`
	Type         EventType        `json:"type"`
	CardID       uuid.UUID        `json:"card_id"`
	OwnerID      uuid.UUID        `json:"owner_id"`
	Status       CardStatus       `json:"status,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	TargetCardID *uuid.UUID       `json:"target_card_id,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}

// NewCardEvent stamps an event for card.
func NewCardEvent(t EventType, card *Card) CardEvent {
	return CardEvent{
		ID:         uuid.New(),
		Type:       t,
		CardID:     card.ID,
		OwnerID:    card.OwnerID,
		Status:     card.Status,
		OccurredAt: time.Now().UTC(),
	}
}
