package handler

import (
	"bank-cards/internal/adapter/http/dto"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
)

// AdminClientHandler serves client administration endpoints.
type AdminClientHandler struct {
	clientSvc ports.ClientService
}

// NewAdminClientHandler creates a new AdminClientHandler.
func NewAdminClientHandler(clientSvc ports.ClientService) *AdminClientHandler {
	return &AdminClientHandler{clientSvc: clientSvc}
}

// List handles GET /api/v1/admin/users.
func (h *AdminClientHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	clients, err := h.clientSvc.ListClients(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ClientResponse, 0, len(clients))
	for i := range clients {
		items = append(items, toClientResponse(&clients[i]))
	}
	response.OK(c, items)
}

// Get handles GET /api/v1/admin/users/:id.
func (h *AdminClientHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	client, err := h.clientSvc.GetClient(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toClientResponse(client))
}

// Delete handles DELETE /api/v1/admin/users/:id. The client's cards go with it.
func (h *AdminClientHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.clientSvc.DeleteClient(c.Request.Context(), p, id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// SetLocked handles PATCH /api/v1/admin/users/:id/lock.
func (h *AdminClientHandler) SetLocked(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.SetLockedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	client, err := h.clientSvc.SetClientLocked(c.Request.Context(), p, id, *req.Locked)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toClientResponse(client))
}
