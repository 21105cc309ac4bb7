package main

import (
	"context"
	"database/sql"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"bridge/apps/bridge/internal/api"
	"bridge/apps/bridge/internal/atomiq"
	"bridge/apps/bridge/internal/config"
	"bridge/apps/bridge/internal/event_publisher"
	"bridge/apps/bridge/internal/repository"
	"bridge/apps/bridge/internal/service"
)

func main() {
	// Initialize zap logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg := config.NewConfig()

	logger.Info("Starting bridge service with configuration",
		zap.Int("api_port", cfg.APIPort),
		zap.String("network", cfg.Network),
		zap.String("engine_url", cfg.EngineURL),
		zap.String("kafka_broker", cfg.KafkaBroker),
		zap.String("kafka_topic", cfg.KafkaTopic),
		zap.Duration("recovery_interval", cfg.RecoveryInterval()),
	)

	// Connect to database
	db, err := sql.Open("postgres", cfg.DbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize database tables
	if err := repository.InitMigration(db); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	orderRepository := repository.NewOrderRepository(db, logger)
	outboxRepository := repository.NewEventOutboxRepository(db, logger)
	swapStorage := repository.NewSwapStorage(db, logger)

	engineClient := atomiq.NewHTTPClient(cfg.EngineURL, cfg.Network, swapStorage, logger)
	bridgeService := service.NewBridgeService(orderRepository, engineClient, logger)

	// Root context cancelled on SIGINT/SIGTERM; stops the poller and publisher
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create event publisher
	eventPublisher, err := event_publisher.NewEventPublisher(cfg.KafkaBroker, cfg.KafkaTopic, logger, outboxRepository)
	if err != nil {
		logger.Fatal("Failed to create event publisher", zap.Error(err))
	}
	defer eventPublisher.Close()

	go eventPublisher.StartPublishing(ctx, cfg.PublishInterval())

	// Start background reconciliation of active orders
	bridgeService.StartRecoveryPoller(ctx, cfg.RecoveryInterval())

	// Create and start API server
	apiServer := api.NewServer(cfg.APIPort, bridgeService, cfg.Network, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("Received shutdown signal, starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Failed to stop API server cleanly", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
