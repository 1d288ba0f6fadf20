package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRead_DefaultsAndEnvironment(t *testing.T) {
	t.Setenv("LEDGER_CONTRACT_ADDRESS", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	t.Setenv("LEDGER_LOOKBACK_BLOCKS", "1000")
	t.Setenv("SNAPSHOT_TTL", "1m")

	cfg := Read()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "olivetrace", cfg.ServiceName)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", cfg.LedgerContractAddress)
	assert.Equal(t, int64(1337), cfg.LedgerChainID)
	assert.Equal(t, uint64(1000), cfg.LedgerLookbackBlocks)
	assert.Equal(t, uint64(5000), cfg.LedgerLogChunkSize)
	assert.Equal(t, 3, cfg.LedgerMaxAttempts)
	assert.Equal(t, time.Second, cfg.LedgerInitialBackoff)
	assert.Equal(t, 10*time.Second, cfg.LedgerCallTimeout)
	assert.Equal(t, time.Minute, cfg.SnapshotTTL)
	assert.Equal(t, 4096, cfg.SnapshotCacheSize)
	assert.Equal(t, "@every 15s", cfg.WatcherSchedule)
	assert.True(t, cfg.LedgerReadOnly())
}

func TestPostgresDSN(t *testing.T) {
	cfg := &AppConfig{
		PostgresHost:     "db",
		PostgresPort:     "5432",
		PostgresUsername: "olive",
		PostgresPassword: "secret",
		PostgresDatabase: "olivetrace",
		PostgresSSLMode:  "disable",
	}

	assert.Equal(t, "host=db port=5432 user=olive password=secret dbname=olivetrace sslmode=disable", cfg.PostgresDSN())
}
