package handler

import (
	"bank-cards/internal/adapter/http/middleware"
	"bank-cards/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	CardSvc        ports.CardService
	TransferSvc    ports.TransferService
	LifecycleSvc   ports.LifecycleService
	ClientSvc      ports.ClientService
	RateLimiter    ports.RateLimiter  // nil = rate limiting disabled
	AuditSvc       ports.AuditService // nil = audit logging disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	jwtAuth := middleware.JWTAuth(deps.AuthSvc, deps.Logger)

	// --- Card owner routes ---
	cardHandler := NewCardHandler(deps.CardSvc, deps.TransferSvc, deps.LifecycleSvc)
	cards := v1.Group("/cards", jwtAuth)
	{
		cards.GET("", rl("cards"), cardHandler.List)
		cards.POST("/transfer", rl("transfer"), cardHandler.Transfer)
		cards.GET("/:id", rl("cards"), cardHandler.Get)
		cards.PATCH("/:id/block", rl("cards"), cardHandler.Block)
	}

	// --- Admin routes ---
	admin := v1.Group("/admin", jwtAuth, middleware.RequireAdmin(), rl("admin"))

	adminCards := NewAdminCardHandler(deps.CardSvc, deps.LifecycleSvc)
	{
		admin.POST("/cards", adminCards.Create)
		admin.GET("/cards", adminCards.List)
		admin.POST("/cards/expire", adminCards.Expire)
		admin.GET("/cards/:id", adminCards.Get)
		admin.PATCH("/cards/:id/status", adminCards.SetStatus)
		admin.DELETE("/cards/:id", adminCards.Delete)
	}

	adminClients := NewAdminClientHandler(deps.ClientSvc)
	{
		admin.GET("/users", adminClients.List)
		admin.GET("/users/:id", adminClients.Get)
		admin.DELETE("/users/:id", adminClients.Delete)
		admin.PATCH("/users/:id/lock", adminClients.SetLocked)
	}

	return r
}
