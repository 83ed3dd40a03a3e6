package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer is the outcome of a committed movement of funds between two cards.
type Transfer struct {
	ID            uuid.UUID       `json:"id"`
	SourceCardID  uuid.UUID       `json:"source_card_id"`
	TargetCardID  uuid.UUID       `json:"target_card_id"`
	Amount        decimal.Decimal `json:"amount"`
	SourceBalance decimal.Decimal `json:"source_balance"`
	TargetBalance decimal.Decimal `json:"target_balance"`
	InitiatorID   uuid.UUID       `json:"initiator_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Page is one slice of a paginated listing. Page numbers start at 0.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

// NewPage builds a page and derives the page count.
func NewPage[T any](content []T, page, size int, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Page[T]{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    pages,
	}
}
