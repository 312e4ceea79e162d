package config

import "time"

// Config is the root configuration structure
type Config struct {
	ChainID  string         `yaml:"chain_id"`
	Observer ObserverConfig `yaml:"observer"`
	Oracle   OracleConfig   `yaml:"oracle"`
	LCD      LCDConfig      `yaml:"lcd"`
	Staking  StakingConfig  `yaml:"staking"`
	API      APIConfig      `yaml:"api"`
	Sinks    SinksConfig    `yaml:"sinks"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ObserverConfig configures the websocket connection to the block observer
type ObserverConfig struct {
	URL              string   `yaml:"url"`
	ReconnectDelay   Duration `yaml:"reconnect_delay"`
	PingInterval     Duration `yaml:"ping_interval"`
	PongTimeout      Duration `yaml:"pong_timeout"`
	HandshakeTimeout Duration `yaml:"handshake_timeout"`
}

// OracleConfig configures the aggregation engine. Zero vote_period or empty
// reward_band means the value is fetched from the chain at startup.
type OracleConfig struct {
	VotePeriod       uint64 `yaml:"vote_period"`
	RewardBand       string `yaml:"reward_band"`       // decimal, e.g. "0.02"
	AbstainThreshold string `yaml:"abstain_threshold"` // decimal, rates at or below count as abstain
	StaleHorizon     uint64 `yaml:"stale_horizon"`     // blocks
	TxType           string `yaml:"tx_type"`
	VoteMsgType      string `yaml:"vote_msg_type"`
}

// LCDConfig configures the REST endpoints used for chain params and validators
type LCDConfig struct {
	Endpoints []string `yaml:"endpoints"`
	Timeout   Duration `yaml:"timeout"`
}

// StakingConfig configures the bonded validator poller
type StakingConfig struct {
	Enabled      bool     `yaml:"enabled"`
	PollInterval Duration `yaml:"poll_interval"`
}

// APIConfig configures the HTTP API and the websocket event feed
type APIConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	WebSocket      bool     `yaml:"websocket"`
}

// SinksConfig groups the downstream event sinks
type SinksConfig struct {
	NATS  NATSConfig  `yaml:"nats"`
	Redis RedisConfig `yaml:"redis"`
}

// NATSConfig configures the NATS sink
type NATSConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Name          string `yaml:"name"`
}

// RedisConfig configures the Redis read-model sink
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	History   int    `yaml:"history"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
