package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-watch/pkg/chain"
	"github.com/StrathCole/oracle-watch/pkg/coins"
	"github.com/StrathCole/oracle-watch/pkg/events"
	"github.com/StrathCole/oracle-watch/pkg/metrics"
)

// Engine is the windowed vote accumulator. It is not safe for concurrent use;
// Run owns it on a single goroutine.
type Engine struct {
	cfg       Config
	publisher Publisher
	logger    zerolog.Logger

	lastAvgAtHeight uint64
	weights         map[string]uint64
	lastSeen        map[string]uint64
	votes           map[string]coins.Coins
	hashes          map[string]string
}

// NewEngine creates an engine from chain params.
func NewEngine(cfg Config, publisher Publisher, logger zerolog.Logger) (*Engine, error) {
	cfg.applyDefaults()
	if cfg.Params.VotePeriod == 0 {
		return nil, ErrInvalidVotePeriod
	}
	if cfg.Params.RewardBand.IsNegative() {
		return nil, ErrInvalidRewardBand
	}

	e := &Engine{
		cfg:       cfg,
		publisher: publisher,
		logger:    logger.With().Str("component", "oracle").Logger(),
		weights:   make(map[string]uint64),
		lastSeen:  make(map[string]uint64),
		votes:     make(map[string]coins.Coins),
		hashes:    make(map[string]string),
	}
	e.logger.Info().
		Uint64("vote_period", cfg.Params.VotePeriod).
		Str("reward_band", cfg.Params.RewardBand.String()).
		Str("abstain_threshold", cfg.AbstainThreshold.String()).
		Uint64("stale_horizon", cfg.StaleHorizon).
		Msg("Oracle engine initialized")
	return e, nil
}

// Run consumes events until a Stop event arrives, the channel closes or ctx is done.
func (e *Engine) Run(ctx context.Context, in <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("Oracle engine stopped")
			return nil
		case ev, ok := <-in:
			if !ok {
				e.logger.Info().Msg("Oracle engine input closed")
				return nil
			}
			if !e.Handle(ev) {
				e.logger.Info().Msg("Oracle engine stopping")
				return nil
			}
		}
	}
}

// Handle applies one event. It returns false once the engine must stop.
func (e *Engine) Handle(ev events.Event) bool {
	switch ev := ev.(type) {
	case events.TransactionObserved:
		e.HandleTx(ev.Tx)
	case events.ValidatorStakedTotal:
		e.SetWeight(ev.OperatorAddress, ev.Tokens)
	case events.Stop:
		return false
	default:
		e.logger.Debug().Str("kind", string(ev.Kind())).Msg("Ignoring event")
	}
	return true
}

// SetWeight records a validator's stake weight. Last write wins.
func (e *Engine) SetWeight(operator string, tokens uint64) {
	e.weights[operator] = tokens
}

// HandleTx extracts votes from tx and runs an aggregation pass when the window is due.
func (e *Engine) HandleTx(tx chain.TxResult) {
	height := uint64(tx.Height)

	if tx.Tx.Type == e.cfg.TxType {
		for _, msg := range tx.Tx.Body.Messages {
			msgType, ok := MessageTypeOf(msg)
			if !ok {
				continue
			}
			if msgType != e.cfg.VoteMsgType {
				e.logger.Debug().Uint64("height", height).Str("type", msgType).Msg("Skipping message")
				continue
			}
			vote, rates, err := DecodeVote(msg)
			if err != nil {
				metrics.RecordVote("rejected")
				e.logger.Error().Err(err).Uint64("height", height).RawJSON("message", msg).Msg("Expected vote")
				continue
			}
			metrics.RecordVote("accepted")
			e.recordVote(vote.Validator, rates, tx.TxHash, height)
		}
	} else {
		e.logger.Info().Uint64("height", height).Str("type", tx.Tx.Type).Msg("Unexpected transaction type")
	}

	if height >= e.lastAvgAtHeight+e.cfg.Params.VotePeriod {
		e.Aggregate(height)
	}
}

func (e *Engine) recordVote(validator string, rates coins.Coins, txHash string, height uint64) {
	e.votes[validator] = rates
	e.hashes[validator] = txHash
	e.lastSeen[validator] = height
}

// MessageTypeOf returns the "@type" of an opaque tx message.
func MessageTypeOf(msg json.RawMessage) (string, bool) {
	return chain.MessageType(msg)
}

// DecodeVote decodes an aggregate vote message and parses its exchange rates.
func DecodeVote(msg json.RawMessage) (chain.MsgAggregateExchangeRateVote, coins.Coins, error) {
	var vote chain.MsgAggregateExchangeRateVote
	if err := json.Unmarshal(msg, &vote); err != nil {
		return vote, nil, fmt.Errorf("%w: %w", ErrMalformedVote, err)
	}
	if vote.Validator == "" {
		return vote, nil, fmt.Errorf("%w: missing validator", ErrMalformedVote)
	}
	if vote.ExchangeRates == "" {
		return vote, nil, fmt.Errorf("%w: missing exchange_rates", ErrMalformedVote)
	}
	rates, err := coins.Parse(vote.ExchangeRates)
	if err != nil {
		return vote, nil, fmt.Errorf("%w: bad rates from %s: %w", ErrMalformedVote, vote.Validator, err)
	}
	return vote, rates, nil
}

// Aggregate runs one pass at height: averages, abstain, drift, missed votes,
// stale pruning, then resets the window.
func (e *Engine) Aggregate(height uint64) {
	start := time.Now()
	defer func() { metrics.RecordAggregation(time.Since(start)) }()

	if len(e.votes) > 0 {
		averages := e.priceAverages(height)
		e.detectDrift(height, averages)
	}
	e.logger.Info().Uint64("height", height).Int("votes", len(e.votes)).Msg("Seen price votes")

	e.detectMissedVotes(height)
	e.pruneStale(height)

	e.votes = make(map[string]coins.Coins)
	e.hashes = make(map[string]string)
	e.lastAvgAtHeight = height
	metrics.RecordTrackedValidators(len(e.lastSeen))
}

// priceAverages accumulates the window's votes, emits abstain and average events
// and returns the averages sorted by denom.
func (e *Engine) priceAverages(height uint64) []Average {
	acc := make(map[string]*accumulator)

	for _, operator := range sortedKeys(e.votes) {
		weight, ok := e.weights[operator]
		if !ok {
			e.logger.Info().Str("validator", operator).Msg("Validator has no weight, skipping")
			continue
		}

		var abstained []string
		w := decimal.NewFromUint64(weight)
		for _, coin := range e.votes[operator] {
			if !coin.Amount.GreaterThan(e.cfg.AbstainThreshold) {
				abstained = append(abstained, coin.Denom)
				continue
			}
			a, ok := acc[coin.Denom]
			if !ok {
				a = &accumulator{}
				acc[coin.Denom] = a
			}
			a.count++
			a.totalWeight += weight
			a.rawSum = a.rawSum.Add(coin.Amount)
			a.weightedSum = a.weightedSum.Add(coin.Amount.Mul(w))
			a.samples = append(a.samples, sample{rate: coin.Amount, weight: weight})
		}

		if len(abstained) > 0 {
			metrics.RecordAbstain()
			e.publisher.Publish(events.PriceAbstain{
				Height:          height,
				OperatorAddress: operator,
				Denoms:          abstained,
				TxHash:          e.hashOf(operator),
			})
		}
	}

	denoms := make([]string, 0, len(acc))
	for denom := range acc {
		denoms = append(denoms, denom)
	}
	sort.Strings(denoms)

	averages := make([]Average, 0, len(denoms))
	for _, denom := range denoms {
		a := acc[denom]
		simple := a.rawSum.Div(decimal.NewFromInt(int64(a.count)))
		weighted := simple
		if a.totalWeight > 0 {
			weighted = a.weightedSum.Div(decimal.NewFromUint64(a.totalWeight))
		}
		median := weightedMedian(a.samples)
		avg := Average{Denom: denom, Simple: simple, Weighted: weighted, Median: median, Count: a.count, TotalWeight: a.totalWeight}
		averages = append(averages, avg)

		level := zerolog.DebugLevel
		if denom == "uusd" {
			level = zerolog.InfoLevel
		}
		e.logger.WithLevel(level).
			Str("denom", denom).
			Str("avg", simple.StringFixed(4)).
			Str("weighted", weighted.StringFixed(4)).
			Str("median", median.StringFixed(4)).
			Msg("Price average")

		e.publisher.Publish(events.PriceAverage{
			Height:          height,
			Denom:           denom,
			Average:         simple,
			WeightedAverage: weighted,
			WeightedMedian:  median,
			Count:           a.count,
			TotalWeight:     a.totalWeight,
		})
	}
	return averages
}

// detectDrift flags every non-abstained submission further than the band from
// the simple average.
func (e *Engine) detectDrift(height uint64, averages []Average) {
	band := e.cfg.Params.RewardBand
	operators := sortedKeys(e.votes)

	for _, avg := range averages {
		maxDrift := avg.Simple.Mul(band).Abs()
		weightedMax := avg.Weighted.Mul(band).Abs()

		for _, operator := range operators {
			coin, ok := e.votes[operator].Find(avg.Denom)
			if !ok {
				e.logger.Warn().Str("validator", operator).Str("denom", avg.Denom).Msg("Validator missing denom")
				continue
			}
			if !coin.Amount.GreaterThan(e.cfg.AbstainThreshold) {
				continue
			}
			drift := coin.Amount.Sub(avg.Simple)
			if !drift.Abs().GreaterThan(maxDrift) {
				continue
			}

			hash := e.hashOf(operator)
			e.logger.Debug().
				Str("validator", operator).
				Str("denom", avg.Denom).
				Str("submitted", coin.Amount.String()).
				Str("avg", avg.Simple.StringFixed(4)).
				Str("weighted", avg.Weighted.StringFixed(4)).
				Str("drift", drift.String()).
				Str("max", maxDrift.String()).
				Str("weighted_max", weightedMax.String()).
				Str("txhash", hash).
				Msg("Drift detected")

			metrics.RecordDrift(avg.Denom)
			e.publisher.Publish(events.PriceDrift{
				Height:          height,
				OperatorAddress: operator,
				Denom:           avg.Denom,
				Average:         avg.Simple,
				WeightedAverage: avg.Weighted,
				Submitted:       coin.Amount,
				MaxDeviation:    maxDrift,
				TxHash:          hash,
			})
		}
	}
}

// detectMissedVotes warns about validators not seen since before the previous window.
func (e *Engine) detectMissedVotes(height uint64) {
	var laggy uint64
	if e.cfg.Params.VotePeriod < e.lastAvgAtHeight {
		laggy = e.lastAvgAtHeight - e.cfg.Params.VotePeriod
	}

	for _, operator := range sortedKeys(e.lastSeen) {
		seen := e.lastSeen[operator]
		if seen >= laggy {
			continue
		}
		e.logger.Info().Str("validator", operator).Uint64("last_seen", seen).Msg("Laggy validator")
		metrics.RecordMissedVote()
		e.publisher.Publish(events.ValidatorEvent{
			Height:          height,
			OperatorAddress: operator,
			Severity:        events.SeverityWarn,
			Message:         fmt.Sprintf("Operator missed a vote? Last Seen:%d", seen),
		})
	}
}

// pruneStale drops validators silent for more than the stale horizon.
func (e *Engine) pruneStale(height uint64) {
	if height < e.cfg.StaleHorizon {
		return
	}
	cutoff := height - e.cfg.StaleHorizon
	for operator, seen := range e.lastSeen {
		if seen < cutoff {
			e.logger.Info().Str("validator", operator).Uint64("last_seen", seen).Msg("Validator is too old")
			delete(e.lastSeen, operator)
		}
	}
}

func (e *Engine) hashOf(operator string) string {
	if h, ok := e.hashes[operator]; ok && h != "" {
		return h
	}
	return MissingHash
}

// LastAverageHeight returns the height of the last aggregation pass.
func (e *Engine) LastAverageHeight() uint64 {
	return e.lastAvgAtHeight
}

// Tracked returns the validators with a last-seen height, sorted.
func (e *Engine) Tracked() []string {
	return sortedKeys(e.lastSeen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
