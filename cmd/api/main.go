package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/application"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/application/webhook_handlers"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/config"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/airbyte"
	apiinfra "github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/api"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/cache"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/database"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/encryption"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/repository"
	shopifyinfra "github.com/hassanmuhammadyounas/growthhit-shopify/internal/infrastructure/shopify"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/logging"
	"github.com/hassanmuhammadyounas/growthhit-shopify/internal/ports"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.IsLocalDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	logger = logger.Level(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	client, err := database.Connect(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	db := client.Database(cfg.Database.Name)

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Warn().Err(err).Msg("Failed to ensure indexes")
	}

	encryptionService, err := encryption.NewService(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Metrics and category loggers
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	loggers := logging.NewRegistry(logging.Options{
		Console: logger,
		Sink:    repository.NewMongoLogRepository(db),
		Metrics: logging.NewMetrics(registry),
		Debug:   cfg.DebugLogging(),
	})

	// Initialize repositories
	connectionRepo := repository.NewMongoConnectionRepository(db)
	sessionRepo := repository.NewMongoSessionRepository(db, encryptionService)
	webhookEventRepo := repository.NewMongoWebhookEventRepository(db)

	var dedupe ports.WebhookDeduplicator
	if cfg.Redis.URL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.Redis.URL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, webhook duplicate detection disabled")
		} else {
			defer redisClient.Close()
			dedupe = cache.NewRedisWebhookDeduplicator(redisClient, cfg.Redis.WebhookTTL)
		}
	}

	// Shopify auth
	shopifyClient := shopifyinfra.NewClient(cfg.Shopify.APIKey, cfg.Shopify.APISecret)
	authGateway := shopifyinfra.NewAuthGateway(
		shopifyClient,
		shopifyinfra.NewSessionTokenVerifier(cfg.Shopify.APIKey, cfg.Shopify.APISecret),
		sessionRepo,
		loggers,
	)

	// Initialize application services
	connectionService := application.NewConnectionService(
		connectionRepo,
		sessionRepo,
		airbyte.NewClient(cfg.Airbyte.URL, cfg.Airbyte.Timeout),
		loggers,
	)

	webhookDispatcher := application.NewWebhookDispatcher()
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(sessionRepo, connectionRepo, loggers))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppScopesUpdateHandler(sessionRepo, loggers))

	webhookService := application.NewWebhookService(webhookEventRepo, webhookDispatcher, dedupe, loggers)

	handlers := apiinfra.NewHandlers(apiinfra.HandlersDeps{
		Admin:       authGateway,
		WebhookAuth: authGateway,
		Exchanger:   authGateway,
		Connections: connectionService,
		Webhooks:    webhookService,
		Loggers:     loggers,
		APIKey:      cfg.Shopify.APIKey,
	})

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: apiinfra.NewRouter(handlers, apiinfra.RouterConfig{
			Console:  logger,
			Gatherer: registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("environment", cfg.Environment).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost" + srv.Addr + "/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	loggers.Wait()
	database.Disconnect(client, logger)
}
