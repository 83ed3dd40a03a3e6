package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	cardNumberLen   = 16
)

// CardServiceImpl implements ports.CardService.
type CardServiceImpl struct {
	store     *CardStore
	clients   ports.ClientRepository
	generator ports.CardNumberGenerator
	presenter CardPresenter
	events    ports.EventPublisher
	audit     ports.AuditService
	log       zerolog.Logger
	now       func() time.Time
}

// NewCardService creates a new CardServiceImpl.
func NewCardService(
	store *CardStore,
	clients ports.ClientRepository,
	generator ports.CardNumberGenerator,
	events ports.EventPublisher,
	audit ports.AuditService,
	log zerolog.Logger,
) *CardServiceImpl {
	return &CardServiceImpl{
		store:     store,
		clients:   clients,
		generator: generator,
		events:    events,
		audit:     audit,
		log:       log,
		now:       time.Now,
	}
}

// CreateCard issues a new ACTIVE card to an existing client.
func (s *CardServiceImpl) CreateCard(ctx context.Context, p domain.Principal, req ports.CreateCardRequest) (*domain.CardView, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}

	balance := decimal.Zero
	if req.InitialBalance != nil {
		balance = *req.InitialBalance
	}
	if balance.IsNegative() {
		return nil, apperror.ErrInvalidRequest("Initial balance must not be negative")
	}
	if !domain.HasMoneyScale(balance) {
		return nil, apperror.ErrInvalidRequest("Initial balance must have at most 2 decimal places")
	}

	owner, err := s.clients.GetByID(ctx, req.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get owner: %w", err))
	}
	if owner == nil {
		return nil, apperror.ErrNotFound("Client")
	}

	number, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	card := &domain.Card{
		ID:           uuid.New(),
		Number:       number,
		Balance:      balance,
		Status:       domain.CardStatusActive,
		ValidityDate: domain.DateOf(now).AddDate(domain.CardValidityYears, 0, 0),
		OwnerID:      owner.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, card); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("card_id", card.ID.String()).
		Str("owner_id", owner.ID.String()).
		Str("masked_number", MaskNumber(card.Number)).
		Msg("card issued")

	s.audit.Log(ctx, domain.NewAuditLog(p, domain.AuditActionCreateCard, "card", card.ID.String()))
	publish(ctx, s.events, s.log, domain.NewCardEvent(domain.EventCardCreated, card))

	view := s.presenter.Present(card)
	return &view, nil
}

// GetCard returns a card to its owner or an administrator.
func (s *CardServiceImpl) GetCard(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.CardView, error) {
	card, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireOwnerOrAdmin(p, card.OwnerID); err != nil {
		return nil, err
	}
	view := s.presenter.Present(card)
	return &view, nil
}

// ListCards returns every card in the system.
func (s *CardServiceImpl) ListCards(ctx context.Context, p domain.Principal) ([]domain.CardView, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	cards, err := s.store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.presenter.PresentAll(cards), nil
}

// ListOwnerCards pages through one owner's cards, optionally filtered by a
// fragment of the card number. A full 16-digit query uses the blind index;
// shorter fragments decrypt and filter the owner's cards in memory.
func (s *CardServiceImpl) ListOwnerCards(ctx context.Context, p domain.Principal, params ports.ListOwnerCardsParams) (*domain.Page[domain.CardView], error) {
	ownerID := params.OwnerID
	if ownerID == uuid.Nil {
		ownerID = p.ClientID
	}
	if err := requireOwnerOrAdmin(p, ownerID); err != nil {
		return nil, err
	}

	page, size, err := normalizePaging(params.Page, params.Size)
	if err != nil {
		return nil, err
	}
	query := strings.TrimSpace(params.Query)
	if !isDigits(query) || len(query) > cardNumberLen {
		return nil, apperror.ErrInvalidRequest("Query must contain up to 16 digits")
	}

	switch {
	case query == "":
		cards, total, err := s.store.LoadOwnerPage(ctx, ownerID, page, size)
		if err != nil {
			return nil, err
		}
		result := domain.NewPage(s.presenter.PresentAll(cards), page, size, total)
		return &result, nil

	case len(query) == cardNumberLen:
		card, err := s.store.LoadByNumber(ctx, ownerID, query)
		if err != nil {
			return nil, err
		}
		var matches []domain.Card
		if card != nil {
			matches = append(matches, *card)
		}
		return s.pageOf(matches, page, size), nil

	default:
		cards, err := s.store.LoadByOwner(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		matches := make([]domain.Card, 0, len(cards))
		for _, c := range cards {
			if strings.Contains(c.Number, query) {
				matches = append(matches, c)
			}
		}
		return s.pageOf(matches, page, size), nil
	}
}

// DeleteCard removes a card permanently.
func (s *CardServiceImpl) DeleteCard(ctx context.Context, p domain.Principal, id uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}

	card, err := s.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().Str("card_id", id.String()).Msg("card deleted")
	s.audit.Log(ctx, domain.NewAuditLog(p, domain.AuditActionDeleteCard, "card", id.String()))
	publish(ctx, s.events, s.log, domain.NewCardEvent(domain.EventCardDeleted, card))
	return nil
}

func (s *CardServiceImpl) pageOf(cards []domain.Card, page, size int) *domain.Page[domain.CardView] {
	total := int64(len(cards))
	start := len(cards)
	if page <= len(cards)/size {
		start = page * size
	}
	end := start + size
	if end > len(cards) {
		end = len(cards)
	}
	result := domain.NewPage(s.presenter.PresentAll(cards[start:end]), page, size, total)
	return &result
}

func normalizePaging(page, size int) (int, int, error) {
	if page < 0 {
		return 0, 0, apperror.ErrInvalidRequest("Page must not be negative")
	}
	if size == 0 {
		size = defaultPageSize
	}
	if size < 0 || size > maxPageSize {
		return 0, 0, apperror.ErrInvalidRequest(fmt.Sprintf("Size must be between 1 and %d", maxPageSize))
	}
	// page*size is used as an offset and must not overflow.
	if page > (math.MaxInt-size)/size {
		return 0, 0, apperror.ErrInvalidRequest("Page is out of range")
	}
	return page, size, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
