package service

import (
	"bank-cards/internal/core/domain"
)

const maskPrefix = "**** **** **** "

// CardPresenter renders cards for clients. Only the last four digits of
// the number ever leave the service.
type CardPresenter struct{}

// MaskNumber keeps the last four digits of number.
func MaskNumber(number string) string {
	if len(number) < 4 {
		return "****"
	}
	return maskPrefix + number[len(number)-4:]
}

// Present converts a card into its client view.
func (CardPresenter) Present(card *domain.Card) domain.CardView {
	return domain.CardView{
		ID:           card.ID,
		MaskedNumber: MaskNumber(card.Number),
		Balance:      card.Balance.StringFixed(domain.MoneyScale),
		Status:       card.Status,
		ValidityDate: card.ValidityDate.Format("2006-01-02"),
		OwnerID:      card.OwnerID,
	}
}

// PresentAll converts a slice of cards.
func (p CardPresenter) PresentAll(cards []domain.Card) []domain.CardView {
	views := make([]domain.CardView, 0, len(cards))
	for i := range cards {
		views = append(views, p.Present(&cards[i]))
	}
	return views
}
