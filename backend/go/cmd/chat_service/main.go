package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eegeren/cortexa-ai/backend/go/internal/auth"
	"github.com/eegeren/cortexa-ai/backend/go/internal/chat/api"
	chatservice "github.com/eegeren/cortexa-ai/backend/go/internal/chat/service"
	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/internal/database/redis"
	"github.com/eegeren/cortexa-ai/backend/go/internal/embedding"
	"github.com/eegeren/cortexa-ai/backend/go/internal/llm"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/queue"
	memoryservice "github.com/eegeren/cortexa-ai/backend/go/internal/memory/service"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/store"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/httpmiddleware"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/ratelimiter"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("chat_service", "", "")

	ctx := context.Background()
	cb := cfg.Middleware.CircuitBreaker

	// Model clients. 缺少凭证时服务照常启动，请求时返回配置错误。
	embedder, err := embedding.NewEmdModel(ctx, cfg.Embedding, cb, appLogger)
	if err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to create embedding client")
	}
	chatLLM, err := llm.NewClient(ctx, llm.OptionsFromConfig(cfg.LLM, cb, appLogger))
	if err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to create llm client")
	}

	// Memory store
	memStore, err := store.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to open memory store")
	}

	// Background memory pipeline
	var handler queue.Handler
	if cfg.Memory.Queue.Mode != "kafka" {
		factExtractor, err := memoryservice.BuildExtractor(ctx, cfg, appLogger)
		if err != nil {
			appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to create fact extractor")
		}
		guard, err := memoryservice.BuildGuard(cfg)
		if err != nil {
			appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to create dedupe guard")
		}
		memService := memoryservice.NewMemoryService(factExtractor, embedder, memStore, guard,
			memoryservice.OptionsFromConfig(cfg.Memory), appLogger)
		handler = memService.Handle
	}
	jobQueue, err := queue.New(cfg, handler, appLogger)
	if err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to create memory queue")
	}

	chatService := chatservice.NewChatService(embedder, memStore, chatLLM, jobQueue, chatservice.OptionsFromConfig(cfg), appLogger)

	// HTTP
	var limiter httpmiddleware.KeyedLimiter
	if rl := cfg.Middleware.RateLimiter; rl.Enabled {
		keyed, err := ratelimiter.NewKeyed(rl.Rate, rl.Capacity, rl.MaxKeys)
		if err != nil {
			appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to create rate limiter")
		}
		limiter = keyed
	}
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.NewHandler(chatService), auth.NewJWTResolver(cfg.Auth.JwtSecret), limiter, appLogger)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Starting HTTP server on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("HTTP server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Server forced to shutdown")
	}

	// 先排空队列，再关闭存储
	if err := jobQueue.Close(); err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing memory queue")
	}
	stats := jobQueue.Stats()
	appLogger.WithPayload(map[string]interface{}{
		"submitted": stats.Submitted,
		"succeeded": stats.Succeeded,
		"failed":    stats.Failed,
		"dropped":   stats.Dropped,
	}).Info("memory queue drained")

	if err := memStore.Close(); err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing memory store")
	}
	if err := redis.Close(); err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Redis")
	}

	appLogger.Info("Server gracefully stopped")
}

func configPath() string {
	if p := os.Getenv("CORTEXA_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
