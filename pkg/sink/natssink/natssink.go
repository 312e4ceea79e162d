// Package natssink publishes bus events to NATS subjects.
package natssink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/StrathCole/oracle-watch/pkg/events"
)

// ErrNotConnected indicates the sink has been closed.
var ErrNotConnected = errors.New("NATS connection is closed")

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "oracle.events"

// MsgPublisher is the subset of *nats.Conn the sink needs.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// Config configures the NATS sink.
type Config struct {
	URL           string
	SubjectPrefix string
	Name          string
}

// Sink publishes JSON envelopes to <prefix>.<kind>.
type Sink struct {
	publisher MsgPublisher
	conn      *nats.Conn
	prefix    string
	logger    zerolog.Logger
}

// Connect dials NATS and returns a sink bound to the connection.
func Connect(cfg Config, logger zerolog.Logger) (*Sink, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	name := cfg.Name
	if name == "" {
		name = "oracle-watch"
	}

	log := logger.With().Str("component", "natssink").Logger()
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	s := New(conn, cfg.SubjectPrefix, logger)
	s.conn = conn
	return s, nil
}

// New creates a sink over an existing publisher.
func New(publisher MsgPublisher, prefix string, logger zerolog.Logger) *Sink {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Sink{
		publisher: publisher,
		prefix:    prefix,
		logger:    logger.With().Str("component", "natssink").Logger(),
	}
}

// Name implements sink.Handler.
func (s *Sink) Name() string {
	return "nats"
}

// Subject returns the subject events of kind k are published on.
func (s *Sink) Subject(k events.Kind) string {
	return s.prefix + "." + string(k)
}

// Handle implements sink.Handler.
func (s *Sink) Handle(_ context.Context, ev events.Event) error {
	if s.publisher == nil {
		return ErrNotConnected
	}

	env := events.NewEnvelope(ev)
	data, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", ev.Kind(), err)
	}

	msg := nats.NewMsg(s.Subject(ev.Kind()))
	msg.Header.Set(nats.MsgIdHdr, env.ID)
	msg.Header.Set("Content-Type", "application/json")
	msg.Data = data

	if err := s.publisher.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

// Close drains the connection if the sink owns one.
func (s *Sink) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Drain()
	s.conn = nil
	s.publisher = nil
	return err
}
