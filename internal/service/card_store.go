package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CardStore is the account store used by every card operation. It encrypts
// and indexes numbers on the way in and decrypts them on the way out, so
// callers only ever deal with plaintext domain.Card values.
type CardStore struct {
	repo       ports.CardRepository
	codec      ports.CardNumberCodec
	indexer    ports.BlindIndexer
	transactor ports.DBTransactor
}

// NewCardStore creates a CardStore.
func NewCardStore(
	repo ports.CardRepository,
	codec ports.CardNumberCodec,
	indexer ports.BlindIndexer,
	transactor ports.DBTransactor,
) *CardStore {
	return &CardStore{
		repo:       repo,
		codec:      codec,
		indexer:    indexer,
		transactor: transactor,
	}
}

// Load returns the card with id or a NotFound error.
func (s *CardStore) Load(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrNotFound("Card")
	}
	return s.decode(rec)
}

// LoadByOwner returns every card of ownerID.
func (s *CardStore) LoadByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Card, error) {
	recs, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list owner cards: %w", err))
	}
	return s.decodeAll(recs)
}

// LoadOwnerPage returns one page of ownerID's cards and the owner's total card count.
func (s *CardStore) LoadOwnerPage(ctx context.Context, ownerID uuid.UUID, page, size int) ([]domain.Card, int64, error) {
	recs, total, err := s.repo.ListByOwnerPage(ctx, ownerID, size, page*size)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list owner cards page: %w", err))
	}
	cards, err := s.decodeAll(recs)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// LoadByNumber looks up ownerID's card with exactly number through the blind index.
// It returns (nil, nil) when there is no such card.
func (s *CardStore) LoadByNumber(ctx context.Context, ownerID uuid.UUID, number string) (*domain.Card, error) {
	rec, err := s.repo.GetByNumberHash(ctx, ownerID, s.indexer.Index(number))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card by number: %w", err))
	}
	if rec == nil {
		return nil, nil
	}
	return s.decode(rec)
}

// LoadAll returns every card.
func (s *CardStore) LoadAll(ctx context.Context) ([]domain.Card, error) {
	recs, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list cards: %w", err))
	}
	return s.decodeAll(recs)
}

// LoadOverdue returns non-expired cards whose validity date is before the day of now.
func (s *CardStore) LoadOverdue(ctx context.Context, now time.Time) ([]domain.Card, error) {
	recs, err := s.repo.ListOverdue(ctx, domain.DateOf(now))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list overdue cards: %w", err))
	}
	return s.decodeAll(recs)
}

// Insert persists a new card at version 0.
func (s *CardStore) Insert(ctx context.Context, card *domain.Card) error {
	enc, err := s.codec.Encrypt(card.Number)
	if err != nil {
		return err
	}

	card.Version = 0
	rec := toRecord(card)
	rec.NumberEnc = enc
	rec.NumberHash = s.indexer.Index(card.Number)

	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return apperror.InternalError(fmt.Errorf("card number collision: %w", err))
		}
		return apperror.InternalError(fmt.Errorf("create card: %w", err))
	}
	return nil
}

// Save writes card inside tx if the stored version still equals expectedVersion.
// On success the returned copy carries expectedVersion+1.
func (s *CardStore) Save(ctx context.Context, tx pgx.Tx, card *domain.Card, expectedVersion int64) (*domain.Card, error) {
	rec := toRecord(card)
	rec.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateCAS(ctx, tx, rec, expectedVersion); err != nil {
		return nil, translateWriteError(err)
	}

	saved := *card
	saved.Version = expectedVersion + 1
	saved.UpdatedAt = rec.UpdatedAt
	return &saved, nil
}

// Update saves a single card in its own transaction.
func (s *CardStore) Update(ctx context.Context, card *domain.Card, expectedVersion int64) (*domain.Card, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	saved, err := s.Save(ctx, dbTx, card, expectedVersion)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, translateWriteError(err)
	}
	return saved, nil
}

// Delete removes the card with id.
func (s *CardStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return apperror.ErrNotFound("Card")
		}
		return apperror.InternalError(fmt.Errorf("delete card: %w", err))
	}
	return nil
}

func (s *CardStore) decode(rec *domain.CardRecord) (*domain.Card, error) {
	number, err := s.codec.Decrypt(rec.NumberEnc)
	if err != nil {
		return nil, err
	}
	return &domain.Card{
		ID:           rec.ID,
		Number:       number,
		Balance:      rec.Balance,
		Status:       rec.Status,
		ValidityDate: rec.ValidityDate,
		Version:      rec.Version,
		OwnerID:      rec.OwnerID,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

func (s *CardStore) decodeAll(recs []domain.CardRecord) ([]domain.Card, error) {
	cards := make([]domain.Card, 0, len(recs))
	for i := range recs {
		card, err := s.decode(&recs[i])
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, nil
}

func toRecord(card *domain.Card) *domain.CardRecord {
	return &domain.CardRecord{
		ID:           card.ID,
		Balance:      card.Balance,
		Status:       card.Status,
		ValidityDate: card.ValidityDate,
		Version:      card.Version,
		OwnerID:      card.OwnerID,
		CreatedAt:    card.CreatedAt,
		UpdatedAt:    card.UpdatedAt,
	}
}

// translateWriteError maps repository write failures onto the error taxonomy.
func translateWriteError(err error) error {
	var appErr *apperror.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, ports.ErrVersionConflict):
		return apperror.ErrConcurrencyConflict(err)
	case errors.Is(err, ports.ErrNotFound):
		return apperror.ErrNotFound("Card")
	default:
		return apperror.InternalError(fmt.Errorf("save card: %w", err))
	}
}
