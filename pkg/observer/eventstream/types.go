package eventstream

import (
	"context"
	"time"

	"github.com/StrathCole/oracle-watch/pkg/events"
)

const (
	// DefaultReconnectDelay is the fixed wait between connection attempts.
	DefaultReconnectDelay = 2 * time.Second
	// DefaultPingInterval is how often to send ping messages.
	DefaultPingInterval = 30 * time.Second
	// DefaultPongTimeout is how long the connection may stay silent.
	DefaultPongTimeout = 60 * time.Second
	// DefaultHandshakeTimeout bounds the websocket handshake.
	DefaultHandshakeTimeout = 10 * time.Second
)

// State is the connection state of the ingestion loop.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Config configures the observer connection.
type Config struct {
	URL            string
	ChainID        string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	// PongTimeout is the read deadline, refreshed on every frame and pong. Zero disables it.
	PongTimeout      time.Duration
	HandshakeTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
}

// SubscribeRequest is sent once after every successful connect.
type SubscribeRequest struct {
	Subscribe string `json:"subscribe"`
	ChainID   string `json:"chain_id"`
}

// FrameHandler processes one text frame. A returned error drops the connection.
type FrameHandler interface {
	HandleFrame(ctx context.Context, data []byte) error
}

// Publisher receives the events derived from each block.
type Publisher interface {
	Publish(ev events.Event)
}
