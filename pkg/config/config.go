package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Port        string `mapstructure:"PORT"`
	GRPCPort    string `mapstructure:"GRPC_PORT"`
	ServiceName string `mapstructure:"SERVICE_NAME"`

	LedgerRPCURL           string        `mapstructure:"LEDGER_RPC_URL"`
	LedgerContractAddress  string        `mapstructure:"LEDGER_CONTRACT_ADDRESS"`
	LedgerChainID          int64         `mapstructure:"LEDGER_CHAIN_ID"`
	LedgerPrivateKey       string        `mapstructure:"LEDGER_PRIVATE_KEY"`
	LedgerStartBlock       uint64        `mapstructure:"LEDGER_START_BLOCK"`
	LedgerLookbackBlocks   uint64        `mapstructure:"LEDGER_LOOKBACK_BLOCKS"`
	LedgerLogChunkSize     uint64        `mapstructure:"LEDGER_LOG_CHUNK_SIZE"`
	LedgerCallTimeout      time.Duration `mapstructure:"LEDGER_CALL_TIMEOUT"`
	LedgerMaxAttempts      int           `mapstructure:"LEDGER_MAX_ATTEMPTS"`
	LedgerInitialBackoff   time.Duration `mapstructure:"LEDGER_INITIAL_BACKOFF"`
	LedgerConfirmations    uint64        `mapstructure:"LEDGER_CONFIRMATIONS"`
	LedgerFetchConcurrency int           `mapstructure:"LEDGER_FETCH_CONCURRENCY"`
	WatcherSchedule        string        `mapstructure:"WATCHER_SCHEDULE"`

	PostgresUsername string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDatabase string `mapstructure:"POSTGRES_DATABASE"`
	PostgresSSLMode  string `mapstructure:"POSTGRES_SSLMODE"`
	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     string `mapstructure:"POSTGRES_PORT"`

	RabbitMQURL       string        `mapstructure:"RABBITMQ_URL"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	SnapshotTTL       time.Duration `mapstructure:"SNAPSHOT_TTL"`
	SnapshotCacheSize int           `mapstructure:"SNAPSHOT_CACHE_SIZE"`

	AWSEndpoint      string `mapstructure:"AWS_ENDPOINT"`
	AWSBucket        string `mapstructure:"AWS_BUCKET"`
	AWSDefaultRegion string `mapstructure:"AWS_DEFAULT_REGION"`
	AWSAccessKey     string `mapstructure:"AWS_ACCESS_KEY"`
	AWSSecretKey     string `mapstructure:"AWS_SECRET_KEY"`
}

func Read() *AppConfig {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	var appConfig AppConfig
	err := viper.Unmarshal(&appConfig)
	if err != nil {
		panic(fmt.Errorf("fatal error unmarshalling config: %w", err))
	}

	return &appConfig
}

// PostgresDSN returns the lib/pq connection string.
func (c *AppConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUsername, c.PostgresPassword, c.PostgresDatabase, c.PostgresSSLMode)
}

// LedgerReadOnly reports whether writes are disabled for lack of a key.
func (c *AppConfig) LedgerReadOnly() bool {
	return c.LedgerPrivateKey == ""
}

func bindEnvVariables() {
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("GRPC_PORT")
	_ = viper.BindEnv("SERVICE_NAME")
	_ = viper.BindEnv("LEDGER_RPC_URL")
	_ = viper.BindEnv("LEDGER_CONTRACT_ADDRESS")
	_ = viper.BindEnv("LEDGER_CHAIN_ID")
	_ = viper.BindEnv("LEDGER_PRIVATE_KEY")
	_ = viper.BindEnv("LEDGER_START_BLOCK")
	_ = viper.BindEnv("LEDGER_LOOKBACK_BLOCKS")
	_ = viper.BindEnv("LEDGER_LOG_CHUNK_SIZE")
	_ = viper.BindEnv("LEDGER_CALL_TIMEOUT")
	_ = viper.BindEnv("LEDGER_MAX_ATTEMPTS")
	_ = viper.BindEnv("LEDGER_INITIAL_BACKOFF")
	_ = viper.BindEnv("LEDGER_CONFIRMATIONS")
	_ = viper.BindEnv("LEDGER_FETCH_CONCURRENCY")
	_ = viper.BindEnv("WATCHER_SCHEDULE")
	_ = viper.BindEnv("POSTGRES_USERNAME")
	_ = viper.BindEnv("POSTGRES_PASSWORD")
	_ = viper.BindEnv("POSTGRES_DATABASE")
	_ = viper.BindEnv("POSTGRES_SSLMODE")
	_ = viper.BindEnv("POSTGRES_HOST")
	_ = viper.BindEnv("POSTGRES_PORT")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("SNAPSHOT_TTL")
	_ = viper.BindEnv("SNAPSHOT_CACHE_SIZE")
	_ = viper.BindEnv("AWS_ENDPOINT")
	_ = viper.BindEnv("AWS_BUCKET")
	_ = viper.BindEnv("AWS_DEFAULT_REGION")
	_ = viper.BindEnv("AWS_ACCESS_KEY")
	_ = viper.BindEnv("AWS_SECRET_KEY")
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GRPC_PORT", "9090")
	viper.SetDefault("SERVICE_NAME", "olivetrace")
	viper.SetDefault("LEDGER_RPC_URL", "http://localhost:8545")
	viper.SetDefault("LEDGER_CHAIN_ID", 1337)
	viper.SetDefault("LEDGER_START_BLOCK", 0)
	viper.SetDefault("LEDGER_LOOKBACK_BLOCKS", 0)
	viper.SetDefault("LEDGER_LOG_CHUNK_SIZE", 5000)
	viper.SetDefault("LEDGER_CALL_TIMEOUT", "10s")
	viper.SetDefault("LEDGER_MAX_ATTEMPTS", 3)
	viper.SetDefault("LEDGER_INITIAL_BACKOFF", "1s")
	viper.SetDefault("LEDGER_CONFIRMATIONS", 0)
	viper.SetDefault("LEDGER_FETCH_CONCURRENCY", 8)
	viper.SetDefault("WATCHER_SCHEDULE", "@every 15s")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", "5432")
	viper.SetDefault("SNAPSHOT_TTL", "30s")
	viper.SetDefault("SNAPSHOT_CACHE_SIZE", 4096)
}
