// Package config provides configuration loading and validation for oracle-watch.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	// Validate and sanitize path
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.ChainID == "" {
		cfg.ChainID = "columbus-5"
	}

	if cfg.LCD.Timeout == 0 {
		cfg.LCD.Timeout = Duration(10 * time.Second)
	}

	if cfg.Staking.PollInterval == 0 {
		cfg.Staking.PollInterval = Duration(10 * time.Minute)
	}

	if cfg.API.Addr == "" {
		cfg.API.Addr = ":8080"
	}

	if cfg.Sinks.NATS.SubjectPrefix == "" {
		cfg.Sinks.NATS.SubjectPrefix = "oracle.events"
	}
	if cfg.Sinks.NATS.Name == "" {
		cfg.Sinks.NATS.Name = "oracle-watch"
	}
	if cfg.Sinks.Redis.KeyPrefix == "" {
		cfg.Sinks.Redis.KeyPrefix = "oracle-watch"
	}
	if cfg.Sinks.Redis.History == 0 {
		cfg.Sinks.Redis.History = 100
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// NeedsChainParams reports whether oracle params must be fetched from the LCD.
func (c *OracleConfig) NeedsChainParams() bool {
	return c.VotePeriod == 0 || c.RewardBand == ""
}

// RewardBandDecimal parses reward_band. An empty value yields zero.
func (c *OracleConfig) RewardBandDecimal() (decimal.Decimal, error) {
	return parseOptionalDecimal(c.RewardBand)
}

// AbstainThresholdDecimal parses abstain_threshold. An empty value yields zero.
func (c *OracleConfig) AbstainThresholdDecimal() (decimal.Decimal, error) {
	return parseOptionalDecimal(c.AbstainThreshold)
}

func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
