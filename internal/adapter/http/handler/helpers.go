package handler

import (
	"time"

	"bank-cards/internal/adapter/http/dto"
	"bank-cards/internal/adapter/http/middleware"
	"bank-cards/internal/core/domain"
	"bank-cards/pkg/apperror"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// principal returns the authenticated caller or writes a 401.
func principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
	}
	return p, ok
}

// pathID parses the :id path parameter or writes a 400.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func toTransferResponse(t *domain.Transfer) dto.TransferResponse {
	return dto.TransferResponse{
		ID:            t.ID.String(),
		SourceCardID:  t.SourceCardID.String(),
		TargetCardID:  t.TargetCardID.String(),
		Amount:        t.Amount.StringFixed(domain.MoneyScale),
		SourceBalance: t.SourceBalance.StringFixed(domain.MoneyScale),
		TargetBalance: t.TargetBalance.StringFixed(domain.MoneyScale),
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toClientResponse(cl *domain.Client) dto.ClientResponse {
	return dto.ClientResponse{
		ID:        cl.ID.String(),
		Username:  cl.Username,
		Role:      string(cl.Role),
		Locked:    cl.Locked,
		CreatedAt: cl.CreatedAt.UTC().Format(time.RFC3339),
	}
}
