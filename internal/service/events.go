package service

import (
	"context"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/rs/zerolog"
)

// publish emits ev after commit. Failures are logged, never returned:
// the state change is already durable.
func publish(ctx context.Context, pub ports.EventPublisher, log zerolog.Logger, ev domain.CardEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).
			Str("event", string(ev.Type)).
			Str("card_id", ev.CardID.String()).
			Msg("failed to publish card event")
	}
}
