// Package classifier maps raw block events onto domain events.
package classifier

import (
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-watch/pkg/chain"
	"github.com/StrathCole/oracle-watch/pkg/coins"
	"github.com/StrathCole/oracle-watch/pkg/events"
)

// Event type tags understood by the classifier.
const (
	TagRewards              = "rewards"
	TagProposerReward       = "proposer_reward"
	TagCommission           = "commission"
	TagLiveness             = "liveness"
	TagExchangeRateUpdate   = "exchange_rate_update"
	TagTransfer             = "transfer"
	TagMessage              = "message"
	TagMint                 = "mint"
	TagCompleteUnbonding    = "complete_unbonding"
	TagCompleteRedelegation = "complete_redelegation"
	TagCoinSpent            = "coin_spent"
	TagCoinReceived         = "coin_received"
)

// Classifier turns a tagged attribute set into at most one domain event.
// It holds no state besides its logger.
type Classifier struct {
	logger zerolog.Logger
}

// New creates a classifier.
func New(logger zerolog.Logger) *Classifier {
	return &Classifier{logger: logger.With().Str("component", "classifier").Logger()}
}

// Classify returns the domain event for one block event, or nil when the event
// is informational only or malformed.
func (c *Classifier) Classify(height uint64, isBegin bool, tag string, attrs chain.Attributes) events.Event {
	switch tag {
	case TagRewards, TagProposerReward:
		return c.reward(height, isBegin, tag == TagProposerReward, attrs)
	case TagCommission:
		return c.commission(height, isBegin, attrs)
	case TagLiveness:
		return c.liveness(height, isBegin, attrs)
	case TagExchangeRateUpdate:
		return c.exchangeRate(height, attrs)
	case TagTransfer:
		c.logger.Debug().
			Uint64("height", height).
			Str("sender", attrs.GetOrEmpty("sender")).
			Str("recipient", attrs.GetOrEmpty("recipient")).
			Str("amount", attrs.GetOrEmpty("amount")).
			Msg("Transfer")
	case TagMessage:
		c.logger.Debug().Uint64("height", height).Str("sender", attrs.GetOrEmpty("sender")).Msg("Message")
	case TagMint:
		c.logger.Debug().
			Uint64("height", height).
			Str("bonded_ratio", attrs.GetOrEmpty("bonded_ratio")).
			Str("amount", attrs.GetOrEmpty("amount")).
			Str("inflation", attrs.GetOrEmpty("inflation")).
			Str("annual_provisions", attrs.GetOrEmpty("annual_provisions")).
			Msg("Mint")
	case TagCompleteUnbonding, TagCompleteRedelegation:
		c.logger.Info().
			Uint64("height", height).
			Str("tag", tag).
			Str("validator", attrs.GetOrEmpty("validator")).
			Str("delegator", attrs.GetOrEmpty("delegator")).
			Str("amount", attrs.GetOrEmpty("amount")).
			Msg("Delegation completed")
	case TagCoinSpent, TagCoinReceived:
	default:
		c.logger.Info().Uint64("height", height).Str("tag", tag).Interface("attributes", attrs).Msg("Unrecognized event")
	}
	return nil
}

func (c *Classifier) reward(height uint64, isBegin, isProposer bool, attrs chain.Attributes) events.Event {
	validator, ok := attrs.Get("validator")
	if !ok {
		c.logger.Warn().Uint64("height", height).Interface("attributes", attrs).Msg("Expecting validator key for rewards event")
		return nil
	}

	amount, ok := attrs.Get("amount")
	if !ok {
		c.logger.Debug().Uint64("height", height).Str("validator", validator).Bool("proposer", isProposer).Msg("Rewards zero?")
		return events.BlockReward{Height: height, IsBegin: isBegin, IsProposer: isProposer, Validator: validator, Amount: coins.Coins{}}
	}

	parsed, err := coins.Parse(amount)
	if err != nil {
		c.logger.Error().Err(err).Uint64("height", height).Str("validator", validator).Str("amount", amount).Msg("Bad coin string")
		return nil
	}
	return events.BlockReward{Height: height, IsBegin: isBegin, IsProposer: isProposer, Validator: validator, Amount: parsed}
}

func (c *Classifier) commission(height uint64, isBegin bool, attrs chain.Attributes) events.Event {
	validator, ok := attrs.Get("validator")
	if !ok {
		c.logger.Warn().Uint64("height", height).Interface("attributes", attrs).Msg("Expecting validator key for commission event")
		return nil
	}

	amount, ok := attrs.Get("amount")
	if !ok {
		return events.Commission{Height: height, IsBegin: isBegin, Validator: validator, Amount: coins.Coins{}}
	}

	parsed, err := coins.Parse(amount)
	if err != nil {
		c.logger.Error().Err(err).Uint64("height", height).Str("amount", amount).Msg("Bad coin string")
		return nil
	}
	return events.Commission{Height: height, IsBegin: isBegin, Validator: validator, Amount: parsed}
}

func (c *Classifier) liveness(height uint64, isBegin bool, attrs chain.Attributes) events.Event {
	address, ok := attrs.Get("address")
	if !ok {
		c.logger.Warn().
			Uint64("height", height).
			Str("event_height", attrs.GetOrEmpty("height")).
			Str("address", attrs.GetOrEmpty("address")).
			Str("missed", attrs.GetOrEmpty("missed_blocks")).
			Msg("Bad liveness event")
		return nil
	}

	var missed uint64
	if raw, ok := attrs.Get("missed_blocks"); ok {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			missed = v
		}
	}
	return events.Liveness{Height: height, IsBegin: isBegin, TendermintAddress: address, Missed: missed}
}

func (c *Classifier) exchangeRate(height uint64, attrs chain.Attributes) events.Event {
	denom, ok := attrs.Get("denom")
	if !ok {
		c.logger.Warn().Uint64("height", height).Str("exchange_rate", attrs.GetOrEmpty("exchange_rate")).Msg("exchange_rate_update missing denom")
		return nil
	}
	rate, ok := attrs.Get("exchange_rate")
	if !ok {
		c.logger.Warn().Uint64("height", height).Str("denom", denom).Msg("exchange_rate_update missing rate")
		return nil
	}

	level := zerolog.DebugLevel
	if denom == "uusd" {
		level = zerolog.InfoLevel
	}
	c.logger.WithLevel(level).Uint64("height", height).Str("denom", denom).Str("rate", rate).Msg("exchange_rate_update")

	parsed, err := decimal.NewFromString(rate)
	if err != nil {
		return nil
	}
	return events.ExchangeRateUpdate{Height: height, Denom: denom, ExchangeRate: parsed}
}
