package middleware

import (
	"net/http"
	"strings"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"
	"bank-cards/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Context keys
	CtxPrincipal = "principal"
	CtxClientID  = "client_id"
	CtxRequestID = "request_id"

	HeaderRequestID = "X-Request-ID"
)

// JWTAuth validates the bearer token and stores the caller's principal in the context.
func JWTAuth(authSvc ports.AuthService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) == len("Bearer ") {
			response.AbortError(c, apperror.ErrInvalidToken())
			return
		}

		principal, err := authSvc.Authenticate(c.Request.Context(), authHeader[len("Bearer "):])
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("authentication rejected")
			response.AbortError(c, err)
			return
		}

		c.Set(CtxPrincipal, principal)
		c.Set(CtxClientID, principal.ClientID)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. Must run after JWTAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			response.AbortError(c, apperror.ErrInvalidToken())
			return
		}
		if !p.IsAdmin() {
			response.AbortError(c, apperror.ErrForbidden("Admin role required"))
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by JWTAuth.
func PrincipalFrom(c *gin.Context) (domain.Principal, bool) {
	v, exists := c.Get(CtxPrincipal)
	if !exists {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}

// RequestID propagates X-Request-ID or assigns a fresh one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(CtxRequestID)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error_code": apperror.CodeInternal,
					"message":    "Internal server error",
				})
			}
		}()
		c.Next()
	}
}
