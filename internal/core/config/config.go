package config

import (
	"time"

	redisclient "github.com/defiscope/holderwatch/internal/infra/redis"
	"github.com/defiscope/holderwatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Etherscan EtherscanConfig    `yaml:"etherscan"`
	Coingecko CoingeckoConfig    `yaml:"coingecko"`
	Token     TokenConfig        `yaml:"token"`
	Sync      SyncConfig         `yaml:"sync"`
	Cache     CacheConfig        `yaml:"cache"`
	Retry     RetryConfig        `yaml:"retry"`
	Redis     redisclient.Config `yaml:"redis"`
	Database  postgres.Config    `yaml:"database"`
	Logging   LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// EtherscanConfig holds chain data provider settings.
type EtherscanConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// CoingeckoConfig holds price provider settings.
type CoingeckoConfig struct {
	BaseURL string        `yaml:"base_url"`
	TokenID string        `yaml:"token_id"`
	Timeout time.Duration `yaml:"timeout"`
}

// TokenConfig identifies the tracked token.
type TokenConfig struct {
	ContractAddress string `yaml:"contract_address"`
	MinHolding      int64  `yaml:"min_holding"`
	Decimals        int32  `yaml:"decimals"`
}

// SyncConfig holds reconciliation run settings.
type SyncConfig struct {
	BatchSize         int           `yaml:"batch_size"`
	BatchDelay        time.Duration `yaml:"batch_delay"`
	CandidatePageSize int           `yaml:"candidate_page_size"`
	HistoryPageSize   int           `yaml:"history_page_size"`
	LockTTL           time.Duration `yaml:"lock_ttl"`
}

// CacheConfig holds price cache settings.
type CacheConfig struct {
	PriceTTL time.Duration `yaml:"price_ttl"`
}

// RetryConfig holds external call retry settings.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
