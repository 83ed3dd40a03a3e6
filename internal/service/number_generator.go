package service

import (
	"context"
	"fmt"

	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"
)

// maxCardNumber is the exclusive upper bound of a 16-digit number.
const maxCardNumber = int64(10_000_000_000_000_000)

// SequenceCardNumberGenerator implements ports.CardNumberGenerator on top of a
// monotonic sequence. Uniqueness follows from the sequence, not from sampling.
type SequenceCardNumberGenerator struct {
	seq ports.CardNumberSequence
}

// NewSequenceCardNumberGenerator creates a generator backed by seq.
func NewSequenceCardNumberGenerator(seq ports.CardNumberSequence) *SequenceCardNumberGenerator {
	return &SequenceCardNumberGenerator{seq: seq}
}

// Generate returns the next value zero-padded to 16 digits.
func (g *SequenceCardNumberGenerator) Generate(ctx context.Context) (string, error) {
	next, err := g.seq.Next(ctx)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("next card number: %w", err))
	}
	if next < 1 || next >= maxCardNumber {
		return "", apperror.InternalError(fmt.Errorf("card number sequence out of range: %d", next))
	}
	return fmt.Sprintf("%016d", next), nil
}
