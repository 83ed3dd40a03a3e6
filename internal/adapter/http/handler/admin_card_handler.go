package handler

import (
	"time"

	"bank-cards/internal/adapter/http/dto"
	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdminCardHandler serves card administration endpoints.
type AdminCardHandler struct {
	cardSvc      ports.CardService
	lifecycleSvc ports.LifecycleService
	now          func() time.Time
}

// NewAdminCardHandler creates a new AdminCardHandler.
func NewAdminCardHandler(cardSvc ports.CardService, lifecycleSvc ports.LifecycleService) *AdminCardHandler {
	return &AdminCardHandler{
		cardSvc:      cardSvc,
		lifecycleSvc: lifecycleSvc,
		now:          time.Now,
	}
}

// Create handles POST /api/v1/admin/cards.
func (h *AdminCardHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	in := ports.CreateCardRequest{OwnerID: uuid.MustParse(req.OwnerID)}
	if req.InitialBalance != nil {
		balance, err := decimal.NewFromString(*req.InitialBalance)
		if err != nil {
			response.Error(c, apperror.Validation("initial_balance must be a decimal number"))
			return
		}
		in.InitialBalance = &balance
	}

	card, err := h.cardSvc.CreateCard(c.Request.Context(), p, in)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, card)
}

// List handles GET /api/v1/admin/cards.
func (h *AdminCardHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	cards, err := h.cardSvc.ListCards(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	if cards == nil {
		cards = []domain.CardView{}
	}

	response.OK(c, cards)
}

// Get handles GET /api/v1/admin/cards/:id.
func (h *AdminCardHandler) Get(c *gin.Context) {
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

// SetStatus handles PATCH /api/v1/admin/cards/:id/status.
func (h *AdminCardHandler) SetStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	card, err := h.lifecycleSvc.SetCardStatus(c.Request.Context(), p, id, domain.CardStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, card)
}

// Delete handles DELETE /api/v1/admin/cards/:id.
func (h *AdminCardHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.cardSvc.DeleteCard(c.Request.Context(), p, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Expire handles POST /api/v1/admin/cards/expire.
func (h *AdminCardHandler) Expire(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	n, err := h.lifecycleSvc.ExpireOverdue(c.Request.Context(), p, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ExpireResponse{Expired: n})
}
