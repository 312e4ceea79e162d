package config

import "errors"

var (
	// ErrChainIDRequired indicates that chain_id must be specified.
	ErrChainIDRequired = errors.New("chain_id must be specified")
	// ErrObserverURLRequired indicates that observer.url must be specified.
	ErrObserverURLRequired = errors.New("observer.url must be specified")
	// ErrInvalidObserverURL indicates that observer.url is not a ws:// or wss:// URL.
	ErrInvalidObserverURL = errors.New("observer.url must be a ws:// or wss:// URL")
	// ErrInvalidRewardBand indicates that oracle.reward_band is not a non-negative decimal.
	ErrInvalidRewardBand = errors.New("invalid oracle.reward_band")
	// ErrInvalidAbstainThreshold indicates that oracle.abstain_threshold is not a non-negative decimal.
	ErrInvalidAbstainThreshold = errors.New("invalid oracle.abstain_threshold")
	// ErrLCDAddressRequired indicates that at least one LCD address is required.
	ErrLCDAddressRequired = errors.New("at least one LCD address is required")
	// ErrInvalidPollInterval indicates that staking.poll_interval is not positive.
	ErrInvalidPollInterval = errors.New("staking.poll_interval must be positive")
	// ErrAPIAddrRequired indicates that api.addr must be specified.
	ErrAPIAddrRequired = errors.New("api.addr must be specified")
	// ErrNATSURLRequired indicates that sinks.nats.url must be specified.
	ErrNATSURLRequired = errors.New("sinks.nats.url must be specified")
	// ErrRedisAddrRequired indicates that sinks.redis.addr must be specified.
	ErrRedisAddrRequired = errors.New("sinks.redis.addr must be specified")
	// ErrInvalidRedisHistory indicates that sinks.redis.history is negative.
	ErrInvalidRedisHistory = errors.New("sinks.redis.history must be >= 0")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
