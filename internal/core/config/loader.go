package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if cfg.Etherscan.BaseURL == "" {
		return nil, fmt.Errorf("etherscan.base_url is required")
	}
	if cfg.Coingecko.BaseURL == "" {
		return nil, fmt.Errorf("coingecko.base_url is required")
	}
	if cfg.Token.ContractAddress == "" {
		return nil, fmt.Errorf("token.contract_address is required")
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Coingecko.TokenID == "" {
		cfg.Coingecko.TokenID = "aave"
	}
	if cfg.Etherscan.Timeout == 0 {
		cfg.Etherscan.Timeout = 30 * time.Second
	}
	if cfg.Coingecko.Timeout == 0 {
		cfg.Coingecko.Timeout = 30 * time.Second
	}
	if cfg.Token.MinHolding == 0 {
		cfg.Token.MinHolding = 3000
	}
	if cfg.Token.Decimals == 0 {
		cfg.Token.Decimals = 18
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 50
	}
	if cfg.Sync.BatchDelay == 0 {
		cfg.Sync.BatchDelay = time.Second
	}
	if cfg.Sync.CandidatePageSize == 0 {
		cfg.Sync.CandidatePageSize = 1000
	}
	if cfg.Sync.HistoryPageSize == 0 {
		cfg.Sync.HistoryPageSize = 100
	}
	if cfg.Sync.LockTTL == 0 {
		cfg.Sync.LockTTL = 10 * time.Minute
	}
	if cfg.Cache.PriceTTL == 0 {
		cfg.Cache.PriceTTL = 5 * time.Minute
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.Delay == 0 {
		cfg.Retry.Delay = time.Second
	}
}
