package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"olivetrace/app"
	"olivetrace/infra/grpc"
	"olivetrace/infra/postgres"
	"olivetrace/internal/platform"
	"olivetrace/pkg/config"

	"go.uber.org/zap"
)

func main() {
	logger := platform.NewLogger()
	defer logger.Sync()

	zap.L().Info("Olivetrace gRPC Service starting...")

	appConfig := config.Read()

	grpcServer, err := grpc.NewServer(appConfig.GRPCPort)
	if err != nil {
		zap.L().Error("failed to create grpc server", zap.Error(err))
		os.Exit(1)
	}

	_, loader, closeLedger, err := platform.Dashboard(context.Background(), appConfig)
	if err != nil {
		zap.L().Error("failed to set up ledger", zap.Error(err))
		os.Exit(1)
	}
	defer closeLedger()

	pgRepository := postgres.NewPgRepository(appConfig.PostgresDSN())
	defer pgRepository.Close()

	dashboardService := grpc.NewDashboardService(
		app.NewGetDashboardHandler(pgRepository, loader, nil),
		app.NewGetTransfersHandler(pgRepository, loader),
	)
	grpcServer.RegisterDashboardService(dashboardService)

	zap.L().Info("starting gRPC server...", zap.String("port", appConfig.GRPCPort))
	go func() {
		if err := grpcServer.Start(); err != nil {
			zap.L().Error("failed to start grpc server", zap.Error(err))
			os.Exit(1)
		}
	}()

	gracefulShutdown(grpcServer)
}

func gracefulShutdown(grpcServer *grpc.Server) {
	// Create channel for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	zap.L().Info("Shutting down server...")

	if err := grpcServer.GracefulStop(); err != nil {
		zap.L().Error("Error during server shutdown", zap.Error(err))
	}

	zap.L().Info("Server gracefully stopped")
}
