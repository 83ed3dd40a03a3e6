package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardService_CreateCard_Defaults(t *testing.T) {
	e := newCardEnv(t)
	alice := e.addUser(t, "alice")
	fixed := time.Date(2026, 3, 15, 22, 30, 0, 0, time.UTC)
	e.cards.now = func() time.Time { return fixed }

	view, err := e.cards.CreateCard(context.Background(), e.admin, ports.CreateCardRequest{OwnerID: alice.ClientID})
	require.NoError(t, err)

	assert.Equal(t, "0.00", view.Balance)
	assert.Equal(t, domain.CardStatusActive, view.Status)
	assert.Equal(t, alice.ClientID, view.OwnerID)
	assert.Equal(t, "2029-03-15", view.ValidityDate)

	card := e.card(t, view.ID)
	require.Len(t, card.Number, 16)
	assert.True(t, isDigits(card.Number))
	assert.Equal(t, int64(0), card.Version)
	assert.True(t, strings.HasSuffix(view.MaskedNumber, card.Number[12:]))
	assert.NotContains(t, view.MaskedNumber, card.Number[:12])
}

func TestCardService_CreateCard_NumbersUnique(t *testing.T) {
	e := newCardEnv(t)
	alice := e.addUser(t, "alice")

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		id := e.issue(t, alice, "0")
		number := e.card(t, id).Number
		assert.False(t, seen[number], "duplicate number %s", number)
		seen[number] = true
	}
}

func TestCardService_CreateCard_Rejects(t *testing.T) {
	e := newCardEnv(t)
	alice := e.addUser(t, "alice")
	ctx := context.Background()

	negative := decimal.RequireFromString("-1.00")
	fine := decimal.RequireFromString("1.005")

	tests := []struct {
		name string
		p    domain.Principal
		req  ports.CreateCardRequest
		code string
	}{
		{"non admin", alice, ports.CreateCardRequest{OwnerID: alice.ClientID}, apperror.CodeForbidden},
		{"negative balance", e.admin, ports.CreateCardRequest{OwnerID: alice.ClientID, InitialBalance: &negative}, apperror.CodeInvalidRequest},
		{"too many decimals", e.admin, ports.CreateCardRequest{OwnerID: alice.ClientID, InitialBalance: &fine}, apperror.CodeInvalidRequest},
		{"unknown owner", e.admin, ports.CreateCardRequest{OwnerID: uuid.New()}, apperror.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.cards.CreateCard(ctx, tt.p, tt.req)
			assertAppError(t, err, tt.code)
		})
	}

	all, err := e.cards.ListCards(ctx, e.admin)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCardService_GetCard(t *testing.T) {
	e := newCardEnv(t)
	alice := e.addUser(t, "alice")
	bob := e.addUser(t, "bob")
	id := e.issue(t, alice, "12.50")
	ctx := context.Background()

	view, err := e.cards.GetCard(ctx, alice, id)
	require.NoError(t, err)
	assert.Equal(t, "12.50", view.Balance)

	_, err = e.cards.GetCard(ctx, e.admin, id)
	require.NoError(t, err)

	_, err = e.cards.GetCard(ctx, bob, id)
	assertAppError(t, err, apperror.CodeForbidden)

	_, err = e.cards.GetCard(ctx, alice, uuid.New())
	assertAppError(t, err, apperror.CodeNotFound)
}

func TestCardService_ListCards_AdminOnly(t *testing.T) {
	e := newCardEnv(t)
	alice := e.addUser(t, "alice")
	bob := e.addUser(t, "bob")
	e.issue(t, alice, "1.00")
	e.issue(t, bob, "2.00")
	ctx := context.Background()

	all, err := e.cards.ListCards(ctx, e.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = e.cards.ListCards(ctx, alice)
	assertAppError(t, err, apperror.CodeForbidden)
}

func TestCardService_ListOwnerCards(t *testing.T) {
	e := newCardEnv(t)
	alice := e.addUser(t, "alice")
	bob := e.addUser(t, "bob")
	for i := 0; i < 3; i++ {
		e.issue(t, alice, "1.00")
	}
	e.issue(t, bob, "1.00")
	ctx := context.Background()

	list := func(p domain.Principal, params ports.ListOwnerCardsParams) (*domain.Page[domain.CardView], error) {
		return e.cards.ListOwnerCards(ctx, p, params)
	}

	t.Run("defaults to own cards", func(t *testing.T) {
		page, err := list(alice, ports.ListOwnerCardsParams{})
		require.NoError(t, err)
		assert.Len(t, page.Content, 3)
		assert.Equal(t, 10, page.Size)
		assert.Equal(t, int64(3), page.TotalElements)
		for _, v := range page.Content {
			assert.Equal(t, alice.ClientID, v.OwnerID)
		}
	})

	t.Run("paging", func(t *testing.T) {
		first, err := list(alice, ports.ListOwnerCardsParams{Page: 0, Size: 2})
		require.NoError(t, err)
		second, err := list(alice, ports.ListOwnerCardsParams{Page: 1, Size: 2})
		require.NoError(t, err)

		assert.Len(t, first.Content, 2)
		assert.Len(t, second.Content, 1)
		assert.Equal(t, 2, first.TotalPages)
		assert.NotEqual(t, first.Content[0].ID, second.Content[0].ID)
		assert.NotEqual(t, first.Content[1].ID, second.Content[0].ID)
	})

	t.Run("full number uses exact match", func(t *testing.T) {
		page, err := list(alice, ports.ListOwnerCardsParams{Query: "0000000000000002"})
		require.NoError(t, err)
		require.Len(t, page.Content, 1)
		assert.Equal(t, "**** **** **** 0002", page.Content[0].MaskedNumber)
	})

	t.Run("full number of another owner", func(t *testing.T) {
		page, err := list(alice, ports.ListOwnerCardsParams{Query: "0000000000000005"})
		require.NoError(t, err)
		assert.Empty(t, page.Content)
		assert.Equal(t, int64(0), page.TotalElements)
	})

	t.Run("fragment filters", func(t *testing.T) {
		page, err := list(alice, ports.ListOwnerCardsParams{Query: "3"})
		require.NoError(t, err)
		require.Len(t, page.Content, 1)
		assert.Equal(t, "**** **** **** 0003", page.Content[0].MaskedNumber)
	})

	t.Run("admin lists another owner", func(t *testing.T) {
		page, err := list(e.admin, ports.ListOwnerCardsParams{OwnerID: bob.ClientID})
		require.NoError(t, err)
		assert.Len(t, page.Content, 1)
	})

	t.Run("user cannot list another owner", func(t *testing.T) {
		_, err := list(alice, ports.ListOwnerCardsParams{OwnerID: bob.ClientID})
		assertAppError(t, err, apperror.CodeForbidden)
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, params := range []ports.ListOwnerCardsParams{
			{Query: "12ab"},
			{Query: "00000000000000001"},
			{Page: -1},
			{Size: 101},
			{Size: -3},
		} {
			_, err := list(alice, params)
			assertAppError(t, err, apperror.CodeInvalidRequest)
		}
	})
}

func TestCardService_ListOwnerCards_PageOverflow(t *testing.T) {
	e := newCardEnv(t)
	alice := e.addUser(t, "alice")
	e.issue(t, alice, "1.00")

	for _, query := range []string{"", "1", "0000000000000001"} {
		t.Run("query="+query, func(t *testing.T) {
			var err error
			assert.NotPanics(t, func() {
				_, err = e.cards.ListOwnerCards(context.Background(), alice, ports.ListOwnerCardsParams{
					Page:  922337203685477581,
					Size:  10,
					Query: query,
				})
			})
			assertAppError(t, err, apperror.CodeInvalidRequest)
		})
	}
}

func TestCardService_ListOwnerCards_PageBeyondEnd(t *testing.T) {
	e := newCardEnv(t)
	alice := e.addUser(t, "alice")
	e.issue(t, alice, "1.00")

	for _, query := range []string{"", "1"} {
		page, err := e.cards.ListOwnerCards(context.Background(), alice, ports.ListOwnerCardsParams{Page: 1000, Size: 100, Query: query})
		require.NoError(t, err)
		assert.Empty(t, page.Content)
		assert.Equal(t, int64(1), page.TotalElements)
	}
}

func TestCardService_DeleteCard(t *testing.T) {
	e := newCardEnv(t)
	alice := e.addUser(t, "alice")
	id := e.issue(t, alice, "5.00")
	ctx := context.Background()

	assertAppError(t, e.cards.DeleteCard(ctx, alice, id), apperror.CodeForbidden)
	require.NoError(t, e.cards.DeleteCard(ctx, e.admin, id))

	_, err := e.cards.GetCard(ctx, e.admin, id)
	assertAppError(t, err, apperror.CodeNotFound)
	assertAppError(t, e.cards.DeleteCard(ctx, e.admin, id), apperror.CodeNotFound)
}

func TestCardService_AuditTrail(t *testing.T) {
	e := newCardEnv(t)
	alice := e.addUser(t, "alice")
	e.issue(t, alice, "5.00")
	e.audit.Flush()

	entries := e.auditRepo.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditActionCreateCard, entries[0].Action)
	require.NotNil(t, entries[0].ActorID)
	assert.Equal(t, e.admin.ClientID, *entries[0].ActorID)
}
