// Package staking polls bonded validator stake and publishes it as engine weights.
package staking

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/StrathCole/oracle-watch/pkg/events"
	"github.com/StrathCole/oracle-watch/pkg/observer/lcd"
)

// DefaultPollInterval is used when no interval is configured.
const DefaultPollInterval = 5 * time.Minute

// ValidatorSource lists bonded validators.
type ValidatorSource interface {
	Validators(ctx context.Context) ([]lcd.Validator, error)
}

// HeightSource reports the last observed block height.
type HeightSource interface {
	LastHeight() uint64
}

// Publisher receives stake events.
type Publisher interface {
	Publish(ev events.Event)
}

// Poller periodically publishes ValidatorStakedTotal for every bonded validator.
type Poller struct {
	source    ValidatorSource
	heights   HeightSource
	publisher Publisher
	interval  time.Duration
	logger    zerolog.Logger

	tokens map[string]uint64
}

// NewPoller creates a poller. heights may be nil.
func NewPoller(source ValidatorSource, heights HeightSource, publisher Publisher, interval time.Duration, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		source:    source,
		heights:   heights,
		publisher: publisher,
		interval:  interval,
		logger:    logger.With().Str("component", "staking").Logger(),
		tokens:    make(map[string]uint64),
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().Dur("interval", p.interval).Msg("starting staking poller")

	if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error().Err(err).Msg("failed to fetch initial validator set")
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("staking poller stopped")
			return nil
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error().Err(err).Msg("failed to update validator set")
			}
		}
	}
}

// Poll fetches the validator set once and publishes every stake.
func (p *Poller) Poll(ctx context.Context) error {
	validators, err := p.source.Validators(ctx)
	if err != nil {
		return err
	}

	var height uint64
	if p.heights != nil {
		height = p.heights.LastHeight()
	}

	for _, v := range validators {
		tokens := uint64(v.Tokens)
		if prev, ok := p.tokens[v.OperatorAddress]; ok && prev != tokens {
			p.logger.Info().
				Str("validator", v.OperatorAddress).
				Str("moniker", v.Moniker()).
				Uint64("previous", prev).
				Uint64("tokens", tokens).
				Int64("delta", int64(tokens)-int64(prev)).
				Msg("Validator stake changed")
		}
		p.tokens[v.OperatorAddress] = tokens

		p.publisher.Publish(events.ValidatorStakedTotal{
			Height:          height,
			OperatorAddress: v.OperatorAddress,
			Tokens:          tokens,
		})
	}

	p.logger.Debug().Int("validators", len(validators)).Uint64("height", height).Msg("Validator stakes published")
	return nil
}
