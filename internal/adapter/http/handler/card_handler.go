package handler

import (
	"bank-cards/internal/adapter/http/dto"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HeaderIdempotencyKey lets clients retry a transfer without moving funds twice.
const HeaderIdempotencyKey = "Idempotency-Key"

// CardHandler serves the card owner's endpoints.
type CardHandler struct {
	cardSvc      ports.CardService
	transferSvc  ports.TransferService
	lifecycleSvc ports.LifecycleService
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(cardSvc ports.CardService, transferSvc ports.TransferService, lifecycleSvc ports.LifecycleService) *CardHandler {
	return &CardHandler{
		cardSvc:      cardSvc,
		transferSvc:  transferSvc,
		lifecycleSvc: lifecycleSvc,
	}
}

// List handles GET /api/v1/cards?page=&size=&query=.
func (h *CardHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var q dto.ListCardsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ownerID := p.ClientID
	if q.OwnerID != "" {
		ownerID = uuid.MustParse(q.OwnerID) // validated by binding
	}

	page, err := h.cardSvc.ListOwnerCards(c.Request.Context(), p, ports.ListOwnerCardsParams{
		OwnerID: ownerID,
		Page:    q.Page,
		Size:    q.Size,
		Query:   q.Query,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, page)
}

// Get handles GET /api/v1/cards/:id.
func (h *CardHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	card, err := h.cardSvc.GetCard(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, card)
}

// Block handles PATCH /api/v1/cards/:id/block.
func (h *CardHandler) Block(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	card, err := h.lifecycleSvc.BlockOwnCard(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, card)
}

// Transfer handles POST /api/v1/cards/transfer.
func (h *CardHandler) Transfer(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("amount must be a decimal number"))
		return
	}

	result, err := h.transferSvc.Transfer(c.Request.Context(), p, ports.TransferRequest{
		SourceCardID:   uuid.MustParse(req.SourceCardID),
		TargetCardID:   uuid.MustParse(req.TargetCardID),
		Amount:         amount,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toTransferResponse(result))
}
