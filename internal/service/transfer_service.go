package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultIdempotencyTTL = 24 * time.Hour

// TransferOptions tunes the transfer engine.
type TransferOptions struct {
	MaxRetries     int           // extra attempts after a ConcurrencyConflict
	IdempotencyTTL time.Duration // how long results are kept per Idempotency-Key
}

// TransferServiceImpl implements ports.TransferService with optimistic
// concurrency: validation reads carry no locks and both balance writes are
// compare-and-swap saves in one transaction.
type TransferServiceImpl struct {
	store      *CardStore
	transactor ports.DBTransactor
	idempRepo  ports.IdempotencyRepository // nil = idempotency keys ignored
	idempCache ports.IdempotencyCache      // optional read-through layer over idempRepo
	events     ports.EventPublisher        // nil = no events
	audit      ports.AuditService
	opts       TransferOptions
	log        zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	store *CardStore,
	transactor ports.DBTransactor,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	events ports.EventPublisher,
	audit ports.AuditService,
	opts TransferOptions,
	log zerolog.Logger,
) *TransferServiceImpl {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = defaultIdempotencyTTL
	}
	return &TransferServiceImpl{
		store:      store,
		transactor: transactor,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		events:     events,
		audit:      audit,
		opts:       opts,
		log:        log,
	}
}

// Transfer moves req.Amount from the source card to the target card.
// The first failing check wins and nothing is written on any failure.
func (s *TransferServiceImpl) Transfer(ctx context.Context, p domain.Principal, req ports.TransferRequest) (*domain.Transfer, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidRequest("Amount must be greater than zero")
	}
	if !domain.HasMoneyScale(req.Amount) {
		return nil, apperror.ErrInvalidRequest("Amount must have at most 2 decimal places")
	}
	if req.SourceCardID == req.TargetCardID {
		return nil, apperror.ErrInvalidRequest("Source and target cards must differ")
	}

	idempKey := ""
	if req.IdempotencyKey != "" && s.idempRepo != nil {
		idempKey = domain.BuildTransferIdempotencyKey(p.ClientID, req.IdempotencyKey)
		prior, err := s.priorResult(ctx, idempKey, req)
		if err != nil || prior != nil {
			return prior, err
		}
	}

	var (
		result *domain.Transfer
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = s.attempt(ctx, p, req, idempKey)
		if idempKey != "" && apperror.HasCode(err, apperror.CodeConcurrencyConflict) {
			// A request with the same key may have committed first.
			prior, perr := s.priorResult(ctx, idempKey, req)
			if perr != nil || prior != nil {
				return prior, perr
			}
		}
		if err == nil || !apperror.HasCode(err, apperror.CodeConcurrencyConflict) || attempt >= s.opts.MaxRetries {
			break
		}
		s.log.Warn().
			Str("source_card_id", req.SourceCardID.String()).
			Str("target_card_id", req.TargetCardID.String()).
			Int("attempt", attempt+1).
			Msg("transfer hit a concurrent update, retrying")
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transfer_id", result.ID.String()).
		Str("source_card_id", result.SourceCardID.String()).
		Str("target_card_id", result.TargetCardID.String()).
		Str("amount", result.Amount.StringFixed(domain.MoneyScale)).
		Msg("transfer completed")

	if idempKey != "" {
		s.cacheResult(ctx, idempKey, result)
	}
	s.afterCommit(ctx, p, result)
	return result, nil
}

// attempt runs one optimistic transfer. With a non-empty idempKey the result
// is recorded under that key in the same transaction.
func (s *TransferServiceImpl) attempt(ctx context.Context, p domain.Principal, req ports.TransferRequest, idempKey string) (*domain.Transfer, error) {
	source, err := s.store.Load(ctx, req.SourceCardID)
	if err != nil {
		return nil, renameNotFound(err, "Source card")
	}
	target, err := s.store.Load(ctx, req.TargetCardID)
	if err != nil {
		return nil, renameNotFound(err, "Target card")
	}

	if err := requireOwner(p, source.OwnerID); err != nil {
		return nil, err
	}
	if err := requireOwner(p, target.OwnerID); err != nil {
		return nil, err
	}

	if !source.CanTransfer() {
		return nil, apperror.ErrInvalidState("Source card is not ACTIVE")
	}
	if !target.CanTransfer() {
		return nil, apperror.ErrInvalidState("Target card is not ACTIVE")
	}

	if source.Balance.LessThan(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	debited := *source
	debited.Balance = source.Balance.Sub(req.Amount)
	credited := *target
	credited.Balance = target.Balance.Add(req.Amount)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Row locks are always taken in ascending id order.
	first, second := &debited, &credited
	if bytes.Compare(credited.ID[:], debited.ID[:]) < 0 {
		first, second = second, first
	}
	if _, err := s.store.Save(ctx, dbTx, first, first.Version); err != nil {
		return nil, err
	}
	if _, err := s.store.Save(ctx, dbTx, second, second.Version); err != nil {
		return nil, err
	}

	result := &domain.Transfer{
		ID:            uuid.New(),
		SourceCardID:  debited.ID,
		TargetCardID:  credited.ID,
		Amount:        req.Amount,
		SourceBalance: debited.Balance,
		TargetBalance: credited.Balance,
		InitiatorID:   p.ClientID,
		CreatedAt:     time.Now().UTC(),
	}

	if idempKey != "" {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal transfer: %w", err))
		}
		if err := s.idempRepo.Claim(ctx, dbTx, idempKey, data, s.opts.IdempotencyTTL); err != nil {
			return nil, translateClaimError(err)
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, translateClaimError(err)
	}
	return result, nil
}

// translateClaimError maps a duplicate idempotency key onto a conflict so the
// caller replays the stored result.
func translateClaimError(err error) error {
	if errors.Is(err, ports.ErrDuplicate) {
		return apperror.ErrConcurrencyConflict(err)
	}
	return translateWriteError(err)
}

// priorResult returns the transfer already recorded under key, or nil. A
// recorded transfer that differs from req is an InvalidRequest.
func (s *TransferServiceImpl) priorResult(ctx context.Context, key string, req ports.TransferRequest) (*domain.Transfer, error) {
	prior := s.cachedResult(ctx, key)
	if prior == nil {
		data, err := s.idempRepo.Get(ctx, key)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("load idempotency key: %w", err))
		}
		if data == nil {
			return nil, nil
		}
		var t domain.Transfer
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("decode stored transfer: %w", err))
		}
		prior = &t
		s.cacheResult(ctx, key, prior)
	}

	if prior.SourceCardID != req.SourceCardID || prior.TargetCardID != req.TargetCardID || !prior.Amount.Equal(req.Amount) {
		return nil, apperror.ErrInvalidRequest("Idempotency-Key was already used for a different transfer")
	}
	return prior, nil
}

func (s *TransferServiceImpl) cachedResult(ctx context.Context, key string) *domain.Transfer {
	if s.idempCache == nil {
		return nil
	}
	cached, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency cache lookup failed, reading the store")
		return nil
	}
	if cached == nil {
		return nil
	}
	var t domain.Transfer
	if err := json.Unmarshal(cached, &t); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("discarding unreadable cached transfer")
		return nil
	}
	return &t
}

func (s *TransferServiceImpl) cacheResult(ctx context.Context, key string, t *domain.Transfer) {
	if s.idempCache == nil {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to marshal transfer for cache")
		return
	}
	if err := s.idempCache.Set(ctx, key, data, s.opts.IdempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache transfer result")
	}
}

func (s *TransferServiceImpl) afterCommit(ctx context.Context, p domain.Principal, t *domain.Transfer) {
	entry := domain.NewAuditLog(p, domain.AuditActionTransfer, "card", t.SourceCardID.String())
	entry.Details = fmt.Sprintf(`{"transfer_id":%q,"target_card_id":%q,"amount":%q}`,
		t.ID, t.TargetCardID, t.Amount.StringFixed(domain.MoneyScale))
	s.audit.Log(ctx, entry)

	amount := t.Amount
	target := t.TargetCardID
	publish(ctx, s.events, s.log, domain.CardEvent{
		ID:           t.ID,
		Type:         domain.EventTransferCompleted,
		CardID:       t.SourceCardID,
		OwnerID:      p.ClientID,
		Amount:       &amount,
		TargetCardID: &target,
		OccurredAt:   t.CreatedAt,
	})
}

// renameNotFound names the missing side of an operation.
func renameNotFound(err error, entity string) error {
	if apperror.HasCode(err, apperror.CodeNotFound) {
		return apperror.ErrNotFound(entity)
	}
	return err
}
