package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClientServiceImpl implements ports.ClientService.
type ClientServiceImpl struct {
	clients    ports.ClientRepository
	cards      ports.CardRepository
	transactor ports.DBTransactor
	audit      ports.AuditService
	log        zerolog.Logger
}

// NewClientService creates a new ClientServiceImpl.
func NewClientService(
	clients ports.ClientRepository,
	cards ports.CardRepository,
	transactor ports.DBTransactor,
	audit ports.AuditService,
	log zerolog.Logger,
) *ClientServiceImpl {
	return &ClientServiceImpl{
		clients:    clients,
		cards:      cards,
		transactor: transactor,
		audit:      audit,
		log:        log,
	}
}

// ListClients returns every registered client.
func (s *ClientServiceImpl) ListClients(ctx context.Context, p domain.Principal) ([]domain.Client, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list clients: %w", err))
	}
	return clients, nil
}

// GetClient returns one client.
func (s *ClientServiceImpl) GetClient(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Client, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// DeleteClient removes a client and, in the same transaction, all of its cards.
func (s *ClientServiceImpl) DeleteClient(ctx context.Context, p domain.Principal, id uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	if id == p.ClientID {
		return apperror.ErrInvalidRequest("Administrators cannot delete themselves")
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	removed, err := s.cards.DeleteByOwner(ctx, dbTx, id)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("delete client cards: %w", err))
	}
	if err := s.clients.Delete(ctx, dbTx, id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return apperror.ErrNotFound("Client")
		}
		return apperror.InternalError(fmt.Errorf("delete client: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("client_id", id.String()).
		Int64("cards_removed", removed).
		Msg("client deleted")

	entry := domain.NewAuditLog(p, domain.AuditActionDeleteClient, "client", id.String())
	entry.Details = `{"cards_removed":` + strconv.FormatInt(removed, 10) + `}`
	s.audit.Log(ctx, entry)
	return nil
}

// SetClientLocked locks or unlocks a client. Locked clients cannot log in
// and their existing tokens stop authenticating.
func (s *ClientServiceImpl) SetClientLocked(ctx context.Context, p domain.Principal, id uuid.UUID, locked bool) (*domain.Client, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if locked && id == p.ClientID {
		return nil, apperror.ErrInvalidRequest("Administrators cannot lock themselves")
	}

	if err := s.clients.SetLocked(ctx, id, locked); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, apperror.ErrNotFound("Client")
		}
		return nil, apperror.InternalError(fmt.Errorf("set client lock: %w", err))
	}

	entry := domain.NewAuditLog(p, domain.AuditActionLockClient, "client", id.String())
	entry.Details = `{"locked":` + strconv.FormatBool(locked) + `}`
	s.audit.Log(ctx, entry)

	return s.load(ctx, id)
}

func (s *ClientServiceImpl) load(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get client: %w", err))
	}
	if client == nil {
		return nil, apperror.ErrNotFound("Client")
	}
	return client, nil
}
