package oracle

import (
	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-watch/pkg/events"
)

const (
	// DefaultTxType is the outer transaction type carrying oracle votes.
	DefaultTxType = "/cosmos.tx.v1beta1.Tx"
	// DefaultVoteMsgType is the aggregate vote message type.
	DefaultVoteMsgType = "/terra.oracle.v1beta1.MsgAggregateExchangeRateVote"
	// DefaultStaleHorizon is how many blocks a silent validator stays tracked.
	DefaultStaleHorizon uint64 = 100
	// MissingHash replaces the tx hash when none was recorded.
	MissingHash = "-missing hash-"
)

// DefaultAbstainThreshold is the amount at or below which a rate counts as an abstain.
var DefaultAbstainThreshold = decimal.New(1, -3)

// Params are the chain oracle parameters the engine works with.
type Params struct {
	VotePeriod               uint64
	VoteThreshold            decimal.Decimal
	RewardBand               decimal.Decimal
	RewardDistributionWindow uint64
	SlashFraction            decimal.Decimal
	SlashWindow              uint64
	MinValidPerWindow        decimal.Decimal
}

// Config configures an Engine.
type Config struct {
	Params           Params
	AbstainThreshold decimal.Decimal
	StaleHorizon     uint64
	TxType           string
	VoteMsgType      string
}

func (c *Config) applyDefaults() {
	if c.AbstainThreshold.IsZero() {
		c.AbstainThreshold = DefaultAbstainThreshold
	}
	if c.StaleHorizon == 0 {
		c.StaleHorizon = DefaultStaleHorizon
	}
	if c.TxType == "" {
		c.TxType = DefaultTxType
	}
	if c.VoteMsgType == "" {
		c.VoteMsgType = DefaultVoteMsgType
	}
}

// Publisher receives the events produced by aggregation passes.
type Publisher interface {
	Publish(ev events.Event)
}

// accumulator sums one denom over a pass.
type accumulator struct {
	count       int
	totalWeight uint64
	rawSum      decimal.Decimal
	weightedSum decimal.Decimal
	samples     []sample
}

// Average is the per denom outcome of a pass.
type Average struct {
	Denom       string
	Simple      decimal.Decimal
	Weighted    decimal.Decimal
	Median      decimal.Decimal
	Count       int
	TotalWeight uint64
}
