package middleware

import (
	"encoding/json"
	"net/http"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful authentication calls. Card and client writes
// are audited by the services themselves.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}

		action, resourceType := mapPathToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var p domain.Principal
		if v, ok := c.Get(CtxClientID); ok {
			if id, ok := v.(uuid.UUID); ok {
				p.ClientID = id
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		entry := domain.NewAuditLog(p, action, resourceType, "")
		entry.IPAddress = c.ClientIP()
		entry.Details = string(details)
		auditSvc.Log(c.Request.Context(), entry)
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	if method != http.MethodPost {
		return "", ""
	}
	switch path {
	case "/api/v1/auth/register":
		return domain.AuditActionRegister, "client"
	case "/api/v1/auth/login":
		return domain.AuditActionLogin, "session"
	}
	return "", ""
}
