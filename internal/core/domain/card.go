package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardStatus is the lifecycle state of a card.
type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
	CardStatusExpired CardStatus = "EXPIRED"
)

// MoneyScale is the number of fractional digits kept for balances and amounts.
const MoneyScale = 2

// CardValidityYears is how long a newly issued card stays valid.
const CardValidityYears = 3

// ParseCardStatus converts s into a known CardStatus.
func ParseCardStatus(s string) (CardStatus, bool) {
	st := CardStatus(s)
	return st, st.Valid()
}

// Valid reports whether st is one of the known statuses.
func (st CardStatus) Valid() bool {
	switch st {
	case CardStatusActive, CardStatusBlocked, CardStatusExpired:
		return true
	}
	return false
}

// Card is a stored-value account with a plaintext card number.
// The number only exists in memory; persistence goes through CardRecord.
type Card struct {
	ID           uuid.UUID       `json:"id"`
	Number       string          `json:"-"`
	Balance      decimal.Decimal `json:"balance"`
	Status       CardStatus      `json:"status"`
	ValidityDate time.Time       `json:"validity_date"`
	Version      int64           `json:"version"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CanTransfer reports whether the card may take part in a transfer.
func (c *Card) CanTransfer() bool {
	return c.Status == CardStatusActive
}

// IsOverdue reports whether the validity date lies strictly before the day of now.
func (c *Card) IsOverdue(now time.Time) bool {
	return c.ValidityDate.Before(DateOf(now))
}

// CardRecord is the persisted form of a Card: the number is stored
// encrypted together with a keyed hash used for exact lookups.
type CardRecord struct {
	ID           uuid.UUID
	NumberEnc    string
	NumberHash   string
	Balance      decimal.Decimal
	Status       CardStatus
	ValidityDate time.Time
	Version      int64
	OwnerID      uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CardView is the client-facing rendering of a card.
type CardView struct {
	ID           uuid.UUID  `json:"id"`
	MaskedNumber string     `json:"masked_number"`
	Balance      string     `json:"balance"`
	Status       CardStatus `json:"status"`
	ValidityDate string     `json:"validity_date"`
	OwnerID      uuid.UUID  `json:"owner_id"`
}

// DateOf truncates t to midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HasMoneyScale reports whether d has no more than MoneyScale fractional digits.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}
