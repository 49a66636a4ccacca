package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopmesh/shopmesh/internal/agent"
	"github.com/shopmesh/shopmesh/internal/api"
	"github.com/shopmesh/shopmesh/internal/auth"
	"github.com/shopmesh/shopmesh/internal/cache"
	"github.com/shopmesh/shopmesh/internal/config"
	"github.com/shopmesh/shopmesh/internal/database"
	"github.com/shopmesh/shopmesh/internal/embedding"
	"github.com/shopmesh/shopmesh/internal/llm"
	"github.com/shopmesh/shopmesh/internal/observability"
	"github.com/shopmesh/shopmesh/internal/search"

	// Import PostgreSQL driver
	_ "github.com/lib/pq"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := observability.NewLogger("server").(*observability.StandardLogger).
		WithLevel(observability.ParseLevel(cfg.Logging.Level))

	db, err := database.NewDatabase(ctx, cfg.Database, logger.WithPrefix("database"))
	if err != nil {
		logger.Fatal("failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("error closing database", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	redisCache, err := cache.NewRedisCache(cfg.Cache)
	if err != nil {
		logger.Fatal("failed to connect to redis", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer func() {
		_ = redisCache.Close()
	}()

	sessions := cache.NewSessionStore(redisCache, cfg.Auth.SessionTTL)
	resolver := auth.NewResolver(sessions, cfg.Auth, logger.WithPrefix("auth"))

	provider, err := llm.NewOpenAIProvider(cfg.LLM)
	if err != nil {
		logger.Fatal("failed to initialize llm provider", map[string]interface{}{
			"error": err.Error(),
		})
	}

	var embedClient embedding.Client
	if c := embedding.NewOpenAIClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.EmbeddingModel, cfg.LLM.EmbeddingDims); c != nil {
		embedClient = c
	} else {
		logger.Warn("embedding credential absent, semantic search disabled", nil)
	}
	embedder := embedding.NewService(embedClient, cfg.LLM.EmbeddingDims, logger.WithPrefix("embedding"))

	products := database.NewProductRepository(db)
	orders := database.NewOrderRepository(db)
	returns := database.NewReturnRepository(db)
	alerts := database.NewAlertRepository(db)

	engine := search.NewEngine(products, provider, embedder, logger.WithPrefix("search"))
	registry := agent.NewRegistry(engine, products, orders, returns, alerts, logger.WithPrefix("tools"))
	orchestrator := agent.NewOrchestrator(provider, registry, cfg.Agent, logger.WithPrefix("agent"))

	server := api.NewServer(orchestrator, engine, resolver, cfg.API, logger.WithPrefix("api"))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("server error", map[string]interface{}{
			"error": err.Error(),
		})
	case sig := <-sigCh:
		logger.Info("shutting down", map[string]interface{}{
			"signal": sig.String(),
		})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
