package service

import (
	"context"
	"testing"
	"time"

	"bank-cards/internal/adapter/storage/memory"
	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// mockTx implements pgx.Tx for gomock-driven tests.
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

// cardEnv wires every card service over the in-memory store.
type cardEnv struct {
	mem        *memory.Store
	cardRepo   *memory.CardRepo
	clientRepo *memory.ClientRepo
	auditRepo  *memory.AuditRepo
	idempRepo  *memory.IdempotencyRepo
	transactor ports.DBTransactor
	store      *CardStore
	audit      *AuditServiceImpl
	cards      *CardServiceImpl
	transfers  *TransferServiceImpl
	lifecycle  *LifecycleServiceImpl
	clients    *ClientServiceImpl
	admin      domain.Principal
}

func newCardEnv(t *testing.T) *cardEnv {
	return newCardEnvWith(t, nil, TransferOptions{})
}

// newCardEnvWith lets a test wrap the transactor used by the transfer engine.
func newCardEnvWith(t *testing.T, wrap func(ports.DBTransactor) ports.DBTransactor, opts TransferOptions) *cardEnv {
	t.Helper()

	codec := newTestCodec(t)
	indexer, err := NewHMACBlindIndexer(testAESKey)
	require.NoError(t, err)

	mem := memory.NewStore()
	e := &cardEnv{
		mem:        mem,
		cardRepo:   memory.NewCardRepo(mem),
		clientRepo: memory.NewClientRepo(mem),
		auditRepo:  memory.NewAuditRepo(mem),
		idempRepo:  memory.NewIdempotencyRepo(mem),
	}
	e.transactor = memory.NewTransactor(mem)
	if wrap != nil {
		e.transactor = wrap(e.transactor)
	}
	log := newTestLogger()

	e.audit = NewAuditService(e.auditRepo, log)
	e.store = NewCardStore(e.cardRepo, codec, indexer, e.transactor)
	e.cards = NewCardService(e.store, e.clientRepo, NewSequenceCardNumberGenerator(memory.NewSequence(mem)), nil, e.audit, log)
	e.transfers = NewTransferService(e.store, e.transactor, e.idempRepo, nil, nil, e.audit, opts, log)
	e.lifecycle = NewLifecycleService(e.store, nil, e.audit, log)
	e.clients = NewClientService(e.clientRepo, e.cardRepo, e.transactor, e.audit, log)

	adminClient := e.addClient(t, "admin", domain.RoleAdmin)
	e.admin = principalOf(adminClient)
	t.Cleanup(e.audit.Flush)
	return e
}

func (e *cardEnv) addClient(t *testing.T, username string, role domain.Role) *domain.Client {
	t.Helper()
	now := time.Now().UTC()
	c := &domain.Client{ID: uuid.New(), Username: username, PasswordHash: "x", Role: role, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, e.clientRepo.Create(context.Background(), c))
	return c
}

func (e *cardEnv) addUser(t *testing.T, username string) domain.Principal {
	t.Helper()
	return principalOf(e.addClient(t, username, domain.RoleUser))
}

// issue creates a card for owner with the given balance.
func (e *cardEnv) issue(t *testing.T, owner domain.Principal, balance string) uuid.UUID {
	t.Helper()
	amount := decimal.RequireFromString(balance)
	view, err := e.cards.CreateCard(context.Background(), e.admin, ports.CreateCardRequest{
		OwnerID:        owner.ClientID,
		InitialBalance: &amount,
	})
	require.NoError(t, err)
	return view.ID
}

func (e *cardEnv) card(t *testing.T, id uuid.UUID) *domain.Card {
	t.Helper()
	c, err := e.store.Load(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (e *cardEnv) setStatus(t *testing.T, id uuid.UUID, status domain.CardStatus) {
	t.Helper()
	_, err := e.lifecycle.SetCardStatus(context.Background(), e.admin, id, status)
	require.NoError(t, err)
}

func principalOf(c *domain.Client) domain.Principal {
	return domain.Principal{ClientID: c.ID, Username: c.Username, Role: c.Role}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
