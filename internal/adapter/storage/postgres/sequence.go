package postgres

import (
	"context"
	"fmt"
)

// CardNumberSequence implements ports.CardNumberSequence with a database sequence.
type CardNumberSequence struct {
	pool Pool
}

// NewCardNumberSequence creates a sequence reader over card_number_seq.
func NewCardNumberSequence(pool Pool) *CardNumberSequence {
	return &CardNumberSequence{pool: pool}
}

// Next returns the next sequence value.
func (s *CardNumberSequence) Next(ctx context.Context) (int64, error) {
	var next int64
	if err := s.pool.QueryRow(ctx, `SELECT nextval('card_number_seq')`).Scan(&next); err != nil {
		return 0, fmt.Errorf("next card number: %w", err)
	}
	return next, nil
}
