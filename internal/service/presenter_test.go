package service

import (
	"testing"
	"time"

	"bank-cards/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMaskNumber(t *testing.T) {
	assert.Equal(t, "**** **** **** 3456", MaskNumber("1234567890123456"))
	assert.Equal(t, "**** **** **** 0001", MaskNumber("0000000000000001"))
	assert.Equal(t, "****", MaskNumber("123"))
	assert.Equal(t, "****", MaskNumber(""))
}

func TestCardPresenter_Present(t *testing.T) {
	card := &domain.Card{
		ID:           uuid.New(),
		Number:       "4000123412341234",
		Balance:      decimal.RequireFromString("7.5"),
		Status:       domain.CardStatusBlocked,
		ValidityDate: time.Date(2029, 2, 28, 0, 0, 0, 0, time.UTC),
		OwnerID:      uuid.New(),
	}

	view := CardPresenter{}.Present(card)
	assert.Equal(t, card.ID, view.ID)
	assert.Equal(t, "**** **** **** 1234", view.MaskedNumber)
	assert.Equal(t, "7.50", view.Balance)
	assert.Equal(t, domain.CardStatusBlocked, view.Status)
	assert.Equal(t, "2029-02-28", view.ValidityDate)
	assert.Equal(t, card.OwnerID, view.OwnerID)
}

func TestCardPresenter_PresentAll_Empty(t *testing.T) {
	views := CardPresenter{}.PresentAll(nil)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}
