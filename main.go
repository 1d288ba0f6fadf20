package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"olivetrace/app/dashboard"
	"olivetrace/infra/postgres"
	"olivetrace/infra/rabbitmq"
	"olivetrace/internal/consumers"
	"olivetrace/internal/platform"
	"olivetrace/pkg/aws"
	"olivetrace/pkg/config"
	"olivetrace/pkg/events"
	"olivetrace/pkg/httperror"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Request any
type Response any

type HandlerInterface[R Request, Res Response] interface {
	Handle(ctx context.Context, req *R) (*Res, error)
}

func handle[R Request, Res Response](handler HandlerInterface[R, Res]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req R

		if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
			return writeError(c, httperror.BadRequest(
				"request.invalid_body",
				"Invalid body",
				fiber.Map{"error": err.Error()},
			))
		}

		if err := c.ParamsParser(&req); err != nil {
			return writeError(c, httperror.BadRequest(
				"request.invalid_path_params",
				"Invalid path params",
				fiber.Map{"error": err.Error()},
			))
		}

		if err := c.QueryParser(&req); err != nil {
			return writeError(c, httperror.BadRequest(
				"request.invalid_query_params",
				"Invalid query params",
				fiber.Map{"error": err.Error()},
			))
		}

		if err := c.ReqHeaderParser(&req); err != nil {
			return writeError(c, httperror.BadRequest(
				"request.invalid_headers",
				"Invalid headers",
				fiber.Map{"error": err.Error()},
			))
		}

		ctx := c.UserContext()

		res, err := handler.Handle(ctx, &req)
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(res)
	}
}

func main() {
	logger := platform.NewLogger()
	defer logger.Sync()

	appConfig := config.Read()
	zap.L().Info("app starting...",
		zap.String("serviceName", appConfig.ServiceName),
		zap.String("ledgerRPC", appConfig.LedgerRPCURL),
		zap.String("contract", appConfig.LedgerContractAddress),
		zap.Bool("readOnly", appConfig.LedgerReadOnly()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledgerClient, loader, closeLedger, err := platform.Dashboard(ctx, appConfig)
	if err != nil {
		zap.L().Fatal("Failed to set up ledger", zap.Error(err))
	}
	defer closeLedger()

	sessions := dashboard.NewSessions(loader, 1024)

	pgRepository := postgres.NewPgRepository(appConfig.PostgresDSN())
	defer pgRepository.Close()
	if err := pgRepository.Migrate(ctx); err != nil {
		zap.L().Fatal("Failed to migrate database", zap.Error(err))
	}

	reports := aws.NewS3Bucket(aws.S3Config{
		Endpoint:  appConfig.AWSEndpoint,
		Bucket:    appConfig.AWSBucket,
		Region:    appConfig.AWSDefaultRegion,
		AccessKey: appConfig.AWSAccessKey,
		SecretKey: appConfig.AWSSecretKey,
	})
	defer reports.Close()

	if appConfig.RabbitMQURL != "" {
		startLiveUpdates(ctx, appConfig, loader, sessions)
	} else {
		zap.L().Warn("RABBITMQ_URL is empty, live dashboard updates are disabled")
	}

	// Writes wait for the transaction to be mined, so responses can take a
	// few block times.
	server := fiber.New(fiber.Config{
		IdleTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		Concurrency:  256 * 1024,
	})

	registerRoutes(server, newRouteHandlers(pgRepository, ledgerClient, loader, sessions, reports))

	go func() {
		if err := server.Listen(fmt.Sprintf("0.0.0.0:%s", appConfig.Port)); err != nil {
			zap.L().Error("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	zap.L().Info("Server started on port", zap.String("port", appConfig.Port))

	gracefulShutdown(server)
}

// startLiveUpdates subscribes this instance to ledger events so its cached
// snapshots and live sessions follow the chain.
func startLiveUpdates(ctx context.Context, appConfig *config.AppConfig, loader *dashboard.Loader, sessions *dashboard.Sessions) {
	consumer, err := rabbitmq.NewConsumer(appConfig.RabbitMQURL, rabbitmq.ConsumerConfig{
		Exchange:       events.LedgerExchange,
		RoutingKeys:    []string{"ledger.item.*." + events.EventVersionV1},
		ServiceName:    appConfig.ServiceName,
		PrefetchCount:  10,
		Broadcast:      true,
		HandlerTimeout: 30 * time.Second,
	})
	if err != nil {
		zap.L().Fatal("Failed to create ledger event consumer", zap.Error(err))
	}

	handler := consumers.NewLedgerEventHandler(loader, sessions)
	go func() {
		defer consumer.Close()
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			zap.L().Error("Ledger event consumer stopped", zap.Error(err))
		}
	}()
}

func gracefulShutdown(server *fiber.App) {
	// Create channel for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for shutdown signal
	<-sigChan
	zap.L().Info("Shutting down server...")

	if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
		zap.L().Error("Error during server shutdown", zap.Error(err))
	}

	zap.L().Info("Server gracefully stopped")
}

func writeError(c *fiber.Ctx, err error) error {
	var httpErr *httperror.Error
	if errors.As(err, &httpErr) {
		payload := fiber.Map{
			"code":    httpErr.Code,
			"message": httpErr.Message,
		}

		if httpErr.Details != nil {
			payload["details"] = httpErr.Details
		}

		if httpErr.Status >= fiber.StatusInternalServerError {
			zap.L().Error("Handler returned server error", zap.String("code", httpErr.Code), zap.Error(httpErr))
		} else {
			zap.L().Warn("Handler returned client error", zap.String("code", httpErr.Code), zap.Error(httpErr))
		}

		return c.Status(httpErr.Status).JSON(payload)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		zap.L().Warn("Fiber validation error", zap.String("message", fiberErr.Message), zap.Error(err))
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"code":    "request.invalid",
			"message": fiberErr.Message,
		})
	}

	zap.L().Error("Unhandled error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":    "internal_server_error",
		"message": "Internal server error.",
	})
}
