package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/genai"

	"github.com/aydinemre/menubot-backend/api/routes"
	"github.com/aydinemre/menubot-backend/internal/agentlock"
	"github.com/aydinemre/menubot-backend/internal/candidates"
	"github.com/aydinemre/menubot-backend/internal/catalog"
	"github.com/aydinemre/menubot-backend/internal/conversation"
	"github.com/aydinemre/menubot-backend/internal/draft"
	"github.com/aydinemre/menubot-backend/internal/extraction"
	"github.com/aydinemre/menubot-backend/internal/geo"
	"github.com/aydinemre/menubot-backend/internal/outbound"
	"github.com/aydinemre/menubot-backend/internal/payments"
	"github.com/aydinemre/menubot-backend/internal/tenants"
	"github.com/aydinemre/menubot-backend/pkg/config"
	"github.com/aydinemre/menubot-backend/pkg/db"
	"github.com/aydinemre/menubot-backend/pkg/logger"
	"github.com/aydinemre/menubot-backend/pkg/metrics"
	"github.com/aydinemre/menubot-backend/pkg/migrate"
	"github.com/aydinemre/menubot-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	// An unconfigured completion client is allowed: extraction degrades to
	// agent handoff instead of blocking startup.
	var genaiClient *genai.Client
	if cfg.Extraction.Configured() {
		genaiClient, err = genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: cfg.Extraction.APIKey,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create genai client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "extraction api key not set, inbound messages will hand off to agents")
	}

	menuProvider, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	var vectorProvider candidates.VectorProvider
	if cfg.FeatureFlags.VectorSearch && genaiClient != nil {
		provider, err := candidates.NewGenAIVectorProvider(genaiClient, cfg.Extraction.EmbeddingModel)
		if err != nil {
			logg.Error(context.Background(), "failed to create vector provider", err)
			os.Exit(1)
		}
		vectorProvider = provider
	}

	drafts, err := draft.NewService(dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create draft service", err)
		os.Exit(1)
	}

	geoChecker, err := geo.NewChecker(geo.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create geo checker", err)
		os.Exit(1)
	}

	outboundSvc, err := outbound.NewService(outbound.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create outbound service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	convMetrics := metrics.NewConversationMetrics(registry)

	conversationSvc, err := conversation.NewService(conversation.Deps{
		Client:       dbClient,
		Repo:         conversation.NewRepository(dbClient.DB()),
		Menu:         menuProvider,
		Retriever:    candidates.NewRetriever(vectorProvider, logg),
		Extractor:    extraction.NewGeminiClient(genaiClient, cfg.Extraction),
		Drafts:       drafts,
		Geo:          geoChecker,
		Payments:     payments.NewService(&payments.StaticLinkInitiator{BaseURL: cfg.Payments.LinkBaseURL}, cfg.Payments),
		Outbox:       outboundSvc,
		Locks:        redisClient,
		Extraction:   cfg.Extraction,
		Conversation: cfg.Conversation,
		Logger:       logg,
		Metrics:      convMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create conversation service", err)
		os.Exit(1)
	}

	locks, err := agentlock.NewService(redisClient, cfg.AgentLock)
	if err != nil {
		logg.Error(context.Background(), "failed to create agent lock service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			tenants.NewRepository(dbClient.DB()),
			conversationSvc,
			locks,
			registry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
