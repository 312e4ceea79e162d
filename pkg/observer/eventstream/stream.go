package eventstream

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/StrathCole/oracle-watch/pkg/chain"
	"github.com/StrathCole/oracle-watch/pkg/events"
	"github.com/StrathCole/oracle-watch/pkg/metrics"
	"github.com/StrathCole/oracle-watch/pkg/observer/classifier"
)

// Stream turns observer block notifications into bus events.
type Stream struct {
	logger     zerolog.Logger
	websocket  *Websocket
	publisher  Publisher
	classifier *classifier.Classifier
	lastHeight atomic.Uint64
}

// NewStream creates an ingestion stream publishing to publisher.
func NewStream(cfg Config, publisher Publisher, logger zerolog.Logger) *Stream {
	s := &Stream{
		logger:     logger.With().Str("component", "eventstream").Logger(),
		publisher:  publisher,
		classifier: classifier.New(logger),
	}
	s.websocket = NewWebsocket(cfg, s, logger)
	return s
}

// Run blocks until ctx is cancelled, reconnecting as needed.
func (s *Stream) Run(ctx context.Context) error {
	return s.websocket.Run(ctx)
}

// State returns the connection state.
func (s *Stream) State() State {
	return s.websocket.State()
}

// LastHeight returns the height of the last processed block, 0 before the first.
func (s *Stream) LastHeight() uint64 {
	return s.lastHeight.Load()
}

// HandleFrame decodes one text frame and publishes everything derived from it.
// Transactions go first, then begin-block events, then end-block events.
func (s *Stream) HandleFrame(_ context.Context, data []byte) error {
	block, err := chain.DecodeNewBlock(data)
	if err != nil {
		metrics.RecordDecodeError()
		s.logger.Error().Err(err).Str("frame", string(data)).Msg("Error parsing block")
		return fmt.Errorf("decode frame: %w", err)
	}

	height := block.Height()
	s.logger.Info().Str("chain_id", block.ChainID).Uint64("height", height).Msg("Block")

	for _, tx := range block.Data.Txs {
		s.publisher.Publish(events.TransactionObserved{Tx: tx})
	}
	for _, ev := range block.Data.ResultBeginBlock.Events {
		s.classify(height, true, ev)
	}
	for _, ev := range block.Data.ResultEndBlock.Events {
		s.classify(height, false, ev)
	}
	for _, upd := range block.Data.ResultEndBlock.ValidatorUpdates {
		s.logger.Info().
			Uint64("height", height).
			RawJSON("pub_key", nonEmptyJSON(upd.PubKey)).
			Int64("power", int64(upd.Power)).
			Msg("Validator update")
	}

	s.lastHeight.Store(height)
	metrics.RecordBlock(height)
	return nil
}

func (s *Stream) classify(height uint64, isBegin bool, ev chain.Event) {
	if out := s.classifier.Classify(height, isBegin, ev.Type, ev.AttributeMap()); out != nil {
		s.publisher.Publish(out)
	}
}

func nonEmptyJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
