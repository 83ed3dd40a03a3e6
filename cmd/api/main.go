package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bank-cards/config"
	httpHandler "bank-cards/internal/adapter/http/handler"
	kafkaMessaging "bank-cards/internal/adapter/messaging/kafka"
	memStorage "bank-cards/internal/adapter/storage/memory"
	pgStorage "bank-cards/internal/adapter/storage/postgres"
	redisStorage "bank-cards/internal/adapter/storage/redis"
	"bank-cards/internal/core/ports"
	"bank-cards/internal/service"
	"bank-cards/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// storage bundles the repositories of the configured driver.
type storage struct {
	cards       ports.CardRepository
	clients     ports.ClientRepository
	audit       ports.AuditRepository
	sequence    ports.CardNumberSequence
	transactor  ports.DBTransactor
	idempotency ports.IdempotencyRepository
	health      ports.HealthChecker
	close       func()
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting bank card service")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise storage")
	}
	defer store.close()

	healthCheckers := []ports.HealthChecker{store.health}

	// Optional Redis: idempotency cache, rate limiting, expiry lease.
	var (
		idempCache  ports.IdempotencyCache
		rateLimiter ports.RateLimiter
		lease       ports.Lease
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		idempCache = redisStorage.NewIdempotencyCache(rdb)
		rateLimiter = redisStorage.NewRateLimitStore(rdb)
		lease = redisStorage.NewLease(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	// Optional Kafka event stream.
	var events ports.EventPublisher
	if cfg.Kafka.Enabled {
		publisher := kafkaMessaging.NewPublisher(cfg.Kafka, logger.Component(log, "kafka"))
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close Kafka publisher")
			}
		}()
		events = publisher
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Kafka publisher enabled")
	}

	// Core services
	codec, err := service.NewAESCardNumberCodec(cfg.AES.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise card number encryption")
	}
	indexKey := cfg.AES.IndexKey
	if indexKey == "" {
		indexKey = cfg.AES.Key
	}
	indexer, err := service.NewHMACBlindIndexer(indexKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise card number blind index")
	}
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	// Business services
	auditSvc := service.NewAuditService(store.audit, logger.Component(log, "audit"))
	cardStore := service.NewCardStore(store.cards, codec, indexer, store.transactor)
	authSvc := service.NewAuthService(store.clients, hashSvc, tokenSvc, log)
	cardSvc := service.NewCardService(cardStore, store.clients, service.NewSequenceCardNumberGenerator(store.sequence), events, auditSvc, log)
	transferSvc := service.NewTransferService(cardStore, store.transactor, store.idempotency, idempCache, events, auditSvc, service.TransferOptions{
		MaxRetries:     cfg.Transfer.MaxRetries,
		IdempotencyTTL: cfg.Transfer.IdempotencyTTL,
	}, logger.Component(log, "transfer"))
	lifecycleSvc := service.NewLifecycleService(cardStore, events, auditSvc, log)
	clientSvc := service.NewClientService(store.clients, store.cards, store.transactor, auditSvc, log)

	if err := authSvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap admin")
	}

	// Scheduled expiry sweep
	var scheduler *service.ExpiryScheduler
	if cfg.Expiry.Enabled {
		scheduler, err = service.NewExpiryScheduler(lifecycleSvc, cfg.Expiry.Schedule, lease, logger.Component(log, "expiry"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create expiry scheduler")
		}
		scheduler.Start()
	}

	gin.SetMode(cfg.Server.Mode)
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		CardSvc:        cardSvc,
		TransferSvc:    transferSvc,
		LifecycleSvc:   lifecycleSvc,
		ClientSvc:      clientSvc,
		RateLimiter:    rateLimiter,
		AuditSvc:       auditSvc,
		HealthCheckers: healthCheckers,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	auditSvc.Flush()

	log.Info().Msg("Server exited")
}

// openStorage connects the configured storage driver, running migrations for postgres.
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		mem := memStorage.NewStore()
		return &storage{
			cards:       memStorage.NewCardRepo(mem),
			clients:     memStorage.NewClientRepo(mem),
			audit:       memStorage.NewAuditRepo(mem),
			sequence:    memStorage.NewSequence(mem),
			transactor:  memStorage.NewTransactor(mem),
			idempotency: memStorage.NewIdempotencyRepo(mem),
			health:      memStorage.HealthCheck{},
			close:       func() {},
		}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(cfg.Database, log); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	log.Info().Msg("PostgreSQL connected")

	return &storage{
		cards:       pgStorage.NewCardRepo(pool),
		clients:     pgStorage.NewClientRepo(pool),
		audit:       pgStorage.NewAuditRepo(pool),
		sequence:    pgStorage.NewCardNumberSequence(pool),
		transactor:  pgStorage.NewTransactor(pool),
		idempotency: pgStorage.NewIdempotencyStore(pool),
		health:      pgStorage.NewHealthCheck(pool),
		close:       pool.Close,
	}, nil
}
