package service

import (
	"context"
	"fmt"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LifecycleServiceImpl implements ports.LifecycleService.
type LifecycleServiceImpl struct {
	store     *CardStore
	presenter CardPresenter
	events    ports.EventPublisher
	audit     ports.AuditService
	log       zerolog.Logger
}

// NewLifecycleService creates a new LifecycleServiceImpl.
func NewLifecycleService(
	store *CardStore,
	events ports.EventPublisher,
	audit ports.AuditService,
	log zerolog.Logger,
) *LifecycleServiceImpl {
	return &LifecycleServiceImpl{
		store:  store,
		events: events,
		audit:  audit,
		log:    log,
	}
}

// BlockOwnCard lets an owner block one of their ACTIVE cards.
// Blocking an already BLOCKED card is a no-op.
func (s *LifecycleServiceImpl) BlockOwnCard(ctx context.Context, p domain.Principal, cardID uuid.UUID) (*domain.CardView, error) {
	card, err := s.store.Load(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(p, card.OwnerID); err != nil {
		return nil, err
	}

	switch card.Status {
	case domain.CardStatusBlocked:
		view := s.presenter.Present(card)
		return &view, nil
	case domain.CardStatusExpired:
		return nil, apperror.ErrInvalidState("Expired card cannot be blocked")
	}

	return s.transition(ctx, p, card, domain.CardStatusBlocked, domain.AuditActionBlockCard)
}

// SetCardStatus lets an administrator move a card to any status.
func (s *LifecycleServiceImpl) SetCardStatus(ctx context.Context, p domain.Principal, cardID uuid.UUID, status domain.CardStatus) (*domain.CardView, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperror.ErrInvalidRequest(fmt.Sprintf("Unknown card status %q", status))
	}

	card, err := s.store.Load(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.Status == status {
		view := s.presenter.Present(card)
		return &view, nil
	}

	return s.transition(ctx, p, card, status, domain.AuditActionSetCardStatus)
}

// ExpireOverdue marks every card past its validity date as EXPIRED.
// Cards changed concurrently are skipped and picked up by the next run.
func (s *LifecycleServiceImpl) ExpireOverdue(ctx context.Context, p domain.Principal, now time.Time) (int, error) {
	if err := requireAdmin(p); err != nil {
		return 0, err
	}

	cards, err := s.store.LoadOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range cards {
		card := &cards[i]
		next := *card
		next.Status = domain.CardStatusExpired

		saved, err := s.store.Update(ctx, &next, card.Version)
		if err != nil {
			if apperror.HasCode(err, apperror.CodeConcurrencyConflict) || apperror.HasCode(err, apperror.CodeNotFound) {
				s.log.Warn().Err(err).Str("card_id", card.ID.String()).Msg("skipping card changed during expiry sweep")
				continue
			}
			return expired, err
		}
		expired++
		publish(ctx, s.events, s.log, domain.NewCardEvent(domain.EventCardStatusChanged, saved))
	}

	if expired > 0 {
		entry := domain.NewAuditLog(p, domain.AuditActionExpireCards, "card", "")
		entry.Details = fmt.Sprintf(`{"expired":%d}`, expired)
		s.audit.Log(ctx, entry)
	}

	s.log.Info().Int("expired", expired).Int("candidates", len(cards)).Msg("expiry sweep finished")
	return expired, nil
}

func (s *LifecycleServiceImpl) transition(
	ctx context.Context,
	p domain.Principal,
	card *domain.Card,
	status domain.CardStatus,
	action domain.AuditAction,
) (*domain.CardView, error) {
	next := *card
	next.Status = status

	saved, err := s.store.Update(ctx, &next, card.Version)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("card_id", saved.ID.String()).
		Str("from", string(card.Status)).
		Str("to", string(saved.Status)).
		Msg("card status changed")

	entry := domain.NewAuditLog(p, action, "card", saved.ID.String())
	entry.Details = fmt.Sprintf(`{"from":%q,"to":%q}`, card.Status, saved.Status)
	s.audit.Log(ctx, entry)
	publish(ctx, s.events, s.log, domain.NewCardEvent(domain.EventCardStatusChanged, saved))

	view := s.presenter.Present(saved)
	return &view, nil
}
