package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"olivetrace/infra/ledger"
	"olivetrace/infra/postgres"
	"olivetrace/infra/rabbitmq"
	"olivetrace/internal/platform"
	"olivetrace/pkg/config"
	"olivetrace/pkg/events"

	"go.uber.org/zap"
)

func main() {
	logger := platform.NewLogger()
	defer logger.Sync()

	zap.L().Info("Olivetrace Worker Service starting...")

	// Load application config
	appConfig := config.Read()
	zap.L().Info("Worker config loaded",
		zap.String("serviceName", appConfig.ServiceName),
		zap.String("rabbitMQURL", appConfig.RabbitMQURL),
		zap.String("schedule", appConfig.WatcherSchedule),
		zap.Uint64("confirmations", appConfig.LedgerConfirmations),
	)

	// Validate RabbitMQ URL
	if appConfig.RabbitMQURL == "" {
		zap.L().Fatal("RABBITMQ_URL is required for worker service")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledgerClient, err := ledger.Dial(ctx, platform.LedgerConfig(appConfig))
	if err != nil {
		zap.L().Fatal("Failed to connect to ledger", zap.Error(err))
	}
	defer ledgerClient.Close()

	pgRepository := postgres.NewPgRepository(appConfig.PostgresDSN())
	defer pgRepository.Close()
	if err := pgRepository.Migrate(ctx); err != nil {
		zap.L().Fatal("Failed to migrate database", zap.Error(err))
	}

	publisher, err := rabbitmq.NewPublisher(appConfig.RabbitMQURL, appConfig.ServiceName)
	if err != nil {
		zap.L().Fatal("Failed to create publisher", zap.Error(err))
	}
	defer publisher.Close()

	watcher := ledger.NewWatcher(ledgerClient, pgRepository, publisher, ledger.WatcherConfig{
		Schedule:      appConfig.WatcherSchedule,
		StartBlock:    appConfig.LedgerStartBlock,
		Confirmations: appConfig.LedgerConfirmations,
		Service:       appConfig.ServiceName,
	})
	if err := watcher.Start(); err != nil {
		zap.L().Fatal("Failed to start ledger watcher", zap.Error(err))
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start connection pool and broker monitoring
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := pgRepository.GetPoolStats()
				zap.L().Info("Connection pool stats",
					zap.Int("max_open", stats["max_open_connections"].(int)),
					zap.Int("open", stats["open_connections"].(int)),
					zap.Int("in_use", stats["in_use"].(int)),
					zap.Int("idle", stats["idle"].(int)),
					zap.Int64("wait_count", stats["wait_count"].(int64)),
					zap.Int64("wait_duration_ms", stats["wait_duration_ms"].(int64)),
				)
				if !publisher.IsHealthy() {
					zap.L().Warn("RabbitMQ publisher connection is closed")
				}
			}
		}
	}()

	zap.L().Info("Worker service started successfully. Watching ledger...",
		zap.String("exchange", events.LedgerExchange),
		zap.String("contract", ledgerClient.Address().Hex()),
	)
	zap.L().Info("Press Ctrl+C to stop...")

	// Wait for shutdown signal
	<-sigChan
	zap.L().Info("Shutdown signal received, stopping worker service...")
	watcher.Stop()
	cancel()

	zap.L().Info("Worker service stopped gracefully")
}
