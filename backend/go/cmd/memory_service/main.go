package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eegeren/cortexa-ai/backend/go/internal/config"
	"github.com/eegeren/cortexa-ai/backend/go/internal/database/kafka"
	"github.com/eegeren/cortexa-ai/backend/go/internal/database/redis"
	"github.com/eegeren/cortexa-ai/backend/go/internal/embedding"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/consumer"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/service"
	"github.com/eegeren/cortexa-ai/backend/go/internal/memory/store"
	"github.com/eegeren/cortexa-ai/backend/go/internal/models"
	"github.com/eegeren/cortexa-ai/backend/go/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("memory_service", "", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients
	kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
	if err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to connect to Kafka")
	}

	embedder, err := embedding.NewEmdModel(ctx, cfg.Embedding, cfg.Middleware.CircuitBreaker, appLogger)
	if err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to create embedding client")
	}

	memStore, err := store.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to open memory store")
	}

	factExtractor, err := service.BuildExtractor(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to create fact extractor")
	}
	guard, err := service.BuildGuard(cfg)
	if err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("failed to create dedupe guard")
	}

	// Initialize memory service
	memoryService := service.NewMemoryService(factExtractor, embedder, memStore, guard, service.OptionsFromConfig(cfg.Memory), appLogger)

	// Initialize and start Kafka consumer
	kafkaConsumer := consumer.NewKafkaConsumer(kafkaClient.Reader(), memoryService.Handle, appLogger)
	kafkaConsumer.Start(ctx)

	appLogger.WithPayload(map[string]interface{}{"topic": cfg.Databases.Kafka.MemoryTopic}).Info("Memory service started")

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	cancel()
	kafkaConsumer.Wait()

	if err := kafkaClient.Close(); err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Kafka client")
	}
	if err := memStore.Close(); err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing memory store")
	}
	if err := redis.Close(); err != nil {
		appLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error closing Redis")
	}

	appLogger.Info("Memory service stopped")
}

func configPath() string {
	if p := os.Getenv("CORTEXA_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}
