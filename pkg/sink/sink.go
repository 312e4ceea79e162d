// Package sink forwards bus events to downstream stores.
package sink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/StrathCole/oracle-watch/pkg/events"
	"github.com/StrathCole/oracle-watch/pkg/metrics"
)

// Handler writes one event downstream.
type Handler interface {
	Name() string
	Handle(ctx context.Context, ev events.Event) error
}

// Filter is implemented by handlers that only consume some kinds.
type Filter interface {
	Kinds() []events.Kind
}

// KindsOf returns the kinds h consumes. Nil means every kind.
func KindsOf(h Handler) []events.Kind {
	if f, ok := h.(Filter); ok {
		return f.Kinds()
	}
	return nil
}

// Run feeds every event from in to h until in closes or ctx is done. Write
// errors are logged and counted; they never stop the loop.
func Run(ctx context.Context, in <-chan events.Event, h Handler, logger zerolog.Logger) error {
	log := logger.With().Str("component", "sink").Str("sink", h.Name()).Logger()
	log.Info().Msg("sink started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sink stopped")
			return nil
		case ev, ok := <-in:
			if !ok {
				log.Info().Msg("sink input closed")
				return nil
			}
			if ev.Kind() == events.KindStop {
				continue
			}
			err := h.Handle(ctx, ev)
			metrics.RecordSinkPublish(h.Name(), err)
			if err != nil {
				log.Error().Err(err).Str("kind", string(ev.Kind())).Uint64("height", ev.BlockHeight()).Msg("sink write failed")
			}
		}
	}
}
