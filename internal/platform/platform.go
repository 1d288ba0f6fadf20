// Package platform builds the pieces every olivetrace binary shares: the
// logger, the ledger client and the dashboard loader.
package platform

import (
	"context"

	"olivetrace/app/dashboard"
	"olivetrace/infra/ledger"
	"olivetrace/infra/rediscache"
	"olivetrace/pkg/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger installs the global development logger.
func NewLogger() *zap.Logger {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	return logger
}

func LedgerConfig(cfg *config.AppConfig) ledger.Config {
	return ledger.Config{
		RPCURL:          cfg.LedgerRPCURL,
		ContractAddress: cfg.LedgerContractAddress,
		ChainID:         cfg.LedgerChainID,
		PrivateKey:      cfg.LedgerPrivateKey,
		Retry: ledger.RetryPolicy{
			MaxAttempts:    cfg.LedgerMaxAttempts,
			InitialBackoff: cfg.LedgerInitialBackoff,
			CallTimeout:    cfg.LedgerCallTimeout,
		},
		LogChunkSize: cfg.LedgerLogChunkSize,
	}
}

func BlockWindow(cfg *config.AppConfig) dashboard.BlockWindow {
	return dashboard.BlockWindow{
		StartBlock: cfg.LedgerStartBlock,
		Lookback:   cfg.LedgerLookbackBlocks,
	}
}

// OpenSnapshotCache returns the Redis cache when REDIS_URL is set and an
// in-process cache otherwise. The returned func releases the connection.
func OpenSnapshotCache(ctx context.Context, cfg *config.AppConfig) (dashboard.SnapshotCache, func() error, error) {
	if cfg.RedisURL == "" {
		zap.L().Info("Using in-memory snapshot cache",
			zap.Duration("ttl", cfg.SnapshotTTL),
			zap.Int("size", cfg.SnapshotCacheSize),
		)
		return dashboard.NewMemoryCache(cfg.SnapshotTTL, cfg.SnapshotCacheSize), func() error { return nil }, nil
	}

	client, err := rediscache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	zap.L().Info("Using Redis snapshot cache", zap.Duration("ttl", cfg.SnapshotTTL))
	return rediscache.NewSnapshotCache(client, "", cfg.SnapshotTTL), client.Close, nil
}

// Dashboard dials the ledger and assembles the loader on top of it.
func Dashboard(ctx context.Context, cfg *config.AppConfig) (*ledger.Client, *dashboard.Loader, func(), error) {
	client, err := ledger.Dial(ctx, LedgerConfig(cfg))
	if err != nil {
		return nil, nil, nil, err
	}

	cache, closeCache, err := OpenSnapshotCache(ctx, cfg)
	if err != nil {
		client.Close()
		return nil, nil, nil, err
	}

	loader := dashboard.NewLoader(client, BlockWindow(cfg), cfg.LedgerFetchConcurrency, cache)

	zap.L().Info("Ledger connected",
		zap.String("contract", client.Address().Hex()),
		zap.Bool("readOnly", client.ReadOnly()),
	)

	cleanup := func() {
		if err := closeCache(); err != nil {
			zap.L().Warn("Failed to close snapshot cache", zap.Error(err))
		}
		client.Close()
	}
	return client, loader, cleanup, nil
}
