package eventstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/StrathCole/oracle-watch/pkg/metrics"
	"github.com/StrathCole/oracle-watch/pkg/version"
)

// controlWriteWait bounds control frame writes.
const controlWriteWait = 5 * time.Second

// Websocket manages the connection to the observer with fixed-delay reconnects.
type Websocket struct {
	cfg     Config
	handler FrameHandler
	logger  zerolog.Logger
	dialer  *websocket.Dialer

	conn  *websocket.Conn
	mu    sync.RWMutex
	state atomic.Int32
}

type frame struct {
	kind int
	data []byte
}

// NewWebsocket creates a new WebSocket client that feeds text frames to handler.
func NewWebsocket(cfg Config, handler FrameHandler, logger zerolog.Logger) *Websocket {
	cfg.applyDefaults()
	return &Websocket{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With().Str("component", "websocket").Logger(),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// State returns the current connection state.
func (w *Websocket) State() State {
	return State(w.state.Load())
}

func (w *Websocket) setState(s State) {
	w.state.Store(int32(s))
	metrics.RecordConnectionState(int(s))
}

// Run maintains the connection until ctx is cancelled. Every failure leads to
// a fixed delay and a fresh connection; it returns nil on cancellation.
func (w *Websocket) Run(ctx context.Context) error {
	if w.cfg.URL == "" {
		return ErrNoURL
	}
	w.logger.Info().Str("url", w.cfg.URL).Msg("starting websocket client")

	for {
		err := w.session(ctx)
		w.setState(StateDisconnected)
		w.closeConn()

		if ctx.Err() != nil {
			w.logger.Info().Msg("context cancelled, stopping websocket")
			return nil
		}
		if err != nil {
			w.logger.Error().Err(err).Msg("observer session ended")
		}
		w.logger.Warn().Dur("backoff", w.cfg.ReconnectDelay).Msg("observer exited, retrying")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.cfg.ReconnectDelay):
			metrics.RecordReconnect()
		}
	}
}

// session runs one connect, subscribe and read cycle.
func (w *Websocket) session(ctx context.Context) error {
	w.setState(StateConnecting)
	if err := w.connect(ctx); err != nil {
		return err
	}
	w.setState(StateConnected)
	return w.readLoop(ctx)
}

// connect establishes the WebSocket connection and sends the subscribe request.
func (w *Websocket) connect(ctx context.Context) error {
	w.logger.Info().Str("url", w.cfg.URL).Msg("connecting to observer")

	header := http.Header{}
	header.Set("User-Agent", version.AgentString())

	conn, _, err := w.dialer.DialContext(ctx, w.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	req := SubscribeRequest{Subscribe: "new_block", ChainID: w.cfg.ChainID}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("failed to send subscribe message: %w", err)
	}

	w.logger.Info().Str("chain_id", w.cfg.ChainID).Msg("connected and subscribed")
	return nil
}

// readLoop reads frames until the connection fails. Frames are handled one at a
// time on this goroutine.
func (w *Websocket) readLoop(ctx context.Context) error {
	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("%w", ErrNoConnection)
	}

	conn.SetPongHandler(func(_ string) error {
		metrics.RecordFrame("pong")
		w.refreshDeadline(conn)
		return nil
	})
	conn.SetPingHandler(func(payload string) error {
		metrics.RecordFrame("ping")
		w.refreshDeadline(conn)
		err := conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(controlWriteWait))
		if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			return fmt.Errorf("pong failed: %w", err)
		}
		return nil
	})

	pingTicker := time.NewTicker(w.cfg.PingInterval)
	defer pingTicker.Stop()

	frameCh := make(chan frame)
	errorCh := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			w.refreshDeadline(conn)
			kind, data, err := conn.ReadMessage()
			if err != nil {
				errorCh <- err
				return
			}
			select {
			case frameCh <- frame{kind: kind, data: data}:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(controlWriteWait))
			return ctx.Err()
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(controlWriteWait)); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		case err := <-errorCh:
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				metrics.RecordFrame("close")
				w.logger.Warn().Int("code", closeErr.Code).Str("reason", closeErr.Text).Msg("socket closing")
				return fmt.Errorf("%w: %w", ErrSocketClosed, err)
			}
			return fmt.Errorf("read failed: %w", err)
		case f := <-frameCh:
			switch f.kind {
			case websocket.TextMessage:
				metrics.RecordFrame("text")
				if err := w.handler.HandleFrame(ctx, f.data); err != nil {
					return err
				}
			case websocket.BinaryMessage:
				metrics.RecordFrame("binary")
				return fmt.Errorf("%w (%d bytes)", ErrBinaryFrame, len(f.data))
			}
		}
	}
}

func (w *Websocket) refreshDeadline(conn *websocket.Conn) {
	if w.cfg.PongTimeout <= 0 {
		_ = conn.SetReadDeadline(time.Time{})
		return
	}
	_ = conn.SetReadDeadline(time.Now().Add(w.cfg.PongTimeout))
}

func (w *Websocket) closeConn() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
}
