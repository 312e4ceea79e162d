package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if cfg.ChainID == "" {
		return ErrChainIDRequired
	}

	if err := validateObserverConfig(&cfg.Observer); err != nil {
		return fmt.Errorf("observer config: %w", err)
	}

	if err := validateOracleConfig(&cfg.Oracle); err != nil {
		return fmt.Errorf("oracle config: %w", err)
	}

	// LCD is needed for chain params and the staking poller
	if (cfg.Oracle.NeedsChainParams() || cfg.Staking.Enabled) && len(cfg.LCD.Endpoints) == 0 {
		return fmt.Errorf("lcd config: %w", ErrLCDAddressRequired)
	}

	if cfg.Staking.Enabled && cfg.Staking.PollInterval.ToDuration() <= 0 {
		return fmt.Errorf("staking config: %w", ErrInvalidPollInterval)
	}

	if cfg.API.Enabled && cfg.API.Addr == "" {
		return fmt.Errorf("api config: %w", ErrAPIAddrRequired)
	}

	if err := validateSinksConfig(&cfg.Sinks); err != nil {
		return fmt.Errorf("sinks config: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateObserverConfig(cfg *ObserverConfig) error {
	if cfg.URL == "" {
		return ErrObserverURLRequired
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidObserverURL, cfg.URL)
	}
	return nil
}

func validateOracleConfig(cfg *OracleConfig) error {
	band, err := cfg.RewardBandDecimal()
	if err != nil || band.IsNegative() {
		return fmt.Errorf("%w: %q", ErrInvalidRewardBand, cfg.RewardBand)
	}
	threshold, err := cfg.AbstainThresholdDecimal()
	if err != nil || threshold.IsNegative() {
		return fmt.Errorf("%w: %q", ErrInvalidAbstainThreshold, cfg.AbstainThreshold)
	}
	return nil
}

func validateSinksConfig(cfg *SinksConfig) error {
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return ErrNATSURLRequired
	}
	if cfg.Redis.Enabled {
		if cfg.Redis.Addr == "" {
			return ErrRedisAddrRequired
		}
		if cfg.Redis.History < 0 {
			return ErrInvalidRedisHistory
		}
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	// Validate level
	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if strings.ToLower(cfg.Level) == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	// Validate format
	formatValid := strings.ToLower(cfg.Format) == "json" || strings.ToLower(cfg.Format) == "text"
	if !formatValid {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
