// Package events defines the domain events exchanged over the bus.
package events

import (
	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-watch/pkg/chain"
	"github.com/StrathCole/oracle-watch/pkg/coins"
)

// Kind identifies an event type on the bus.
type Kind string

const (
	KindTransactionObserved  Kind = "transaction_observed"
	KindBlockReward          Kind = "block_reward"
	KindCommission           Kind = "commission"
	KindLiveness             Kind = "liveness"
	KindExchangeRateUpdate   Kind = "exchange_rate_update"
	KindPriceDrift           Kind = "price_drift"
	KindPriceAbstain         Kind = "price_abstain"
	KindPriceAverage         Kind = "price_average"
	KindValidatorStakedTotal Kind = "validator_staked_total"
	KindValidatorEvent       Kind = "validator_event"
	KindStop                 Kind = "stop"
)

// AllKinds lists every event kind in a stable order.
var AllKinds = []Kind{
	KindTransactionObserved,
	KindBlockReward,
	KindCommission,
	KindLiveness,
	KindExchangeRateUpdate,
	KindPriceDrift,
	KindPriceAbstain,
	KindPriceAverage,
	KindValidatorStakedTotal,
	KindValidatorEvent,
	KindStop,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Event is implemented by every bus message.
type Event interface {
	Kind() Kind
	BlockHeight() uint64
}

// TransactionObserved carries one included transaction with its result.
type TransactionObserved struct {
	Tx chain.TxResult `json:"tx"`
}

func (TransactionObserved) Kind() Kind            { return KindTransactionObserved }
func (e TransactionObserved) BlockHeight() uint64 { return uint64(e.Tx.Height) }

// BlockReward is a begin/end block reward attributed to a validator.
type BlockReward struct {
	Height     uint64      `json:"height"`
	IsBegin    bool        `json:"is_begin"`
	IsProposer bool        `json:"is_proposer"`
	Validator  string      `json:"validator"`
	Amount     coins.Coins `json:"amount"`
}

func (BlockReward) Kind() Kind            { return KindBlockReward }
func (e BlockReward) BlockHeight() uint64 { return e.Height }

// Commission is a validator commission event.
type Commission struct {
	Height    uint64      `json:"height"`
	IsBegin   bool        `json:"is_begin"`
	Validator string      `json:"validator"`
	Amount    coins.Coins `json:"amount"`
}

func (Commission) Kind() Kind            { return KindCommission }
func (e Commission) BlockHeight() uint64 { return e.Height }

// Liveness reports the missed block counter of a consensus address.
type Liveness struct {
	Height            uint64 `json:"height"`
	IsBegin           bool   `json:"is_begin"`
	TendermintAddress string `json:"tendermint_address"`
	Missed            uint64 `json:"missed"`
}

func (Liveness) Kind() Kind            { return KindLiveness }
func (e Liveness) BlockHeight() uint64 { return e.Height }

// ExchangeRateUpdate is an on-chain exchange rate set at the end of a vote period.
type ExchangeRateUpdate struct {
	Height       uint64          `json:"height"`
	Denom        string          `json:"denom"`
	ExchangeRate decimal.Decimal `json:"exchange_rate"`
}

func (ExchangeRateUpdate) Kind() Kind            { return KindExchangeRateUpdate }
func (e ExchangeRateUpdate) BlockHeight() uint64 { return e.Height }

// PriceDrift is emitted when a submitted price deviates from the window average by more than the band.
type PriceDrift struct {
	Height          uint64          `json:"height"`
	OperatorAddress string          `json:"operator_address"`
	Denom           string          `json:"denom"`
	Average         decimal.Decimal `json:"average"`
	WeightedAverage decimal.Decimal `json:"weighted_average"`
	Submitted       decimal.Decimal `json:"submitted"`
	MaxDeviation    decimal.Decimal `json:"max_deviation"`
	TxHash          string          `json:"txhash"`
}

func (PriceDrift) Kind() Kind            { return KindPriceDrift }
func (e PriceDrift) BlockHeight() uint64 { return e.Height }

// PriceAbstain lists the denoms a validator abstained on within a window.
type PriceAbstain struct {
	Height          uint64   `json:"height"`
	OperatorAddress string   `json:"operator_address"`
	Denoms          []string `json:"denoms"`
	TxHash          string   `json:"txhash"`
}

func (PriceAbstain) Kind() Kind            { return KindPriceAbstain }
func (e PriceAbstain) BlockHeight() uint64 { return e.Height }

// PriceAverage is the per denom result of an aggregation pass.
type PriceAverage struct {
	Height          uint64          `json:"height"`
	Denom           string          `json:"denom"`
	Average         decimal.Decimal `json:"average"`
	WeightedAverage decimal.Decimal `json:"weighted_average"`
	WeightedMedian  decimal.Decimal `json:"weighted_median"`
	Count           int             `json:"count"`
	TotalWeight     uint64          `json:"total_weight"`
}

func (PriceAverage) Kind() Kind            { return KindPriceAverage }
func (e PriceAverage) BlockHeight() uint64 { return e.Height }

// ValidatorStakedTotal sets a validator's stake weight.
type ValidatorStakedTotal struct {
	Height          uint64 `json:"height"`
	OperatorAddress string `json:"operator_address"`
	Tokens          uint64 `json:"tokens"`
}

func (ValidatorStakedTotal) Kind() Kind            { return KindValidatorStakedTotal }
func (e ValidatorStakedTotal) BlockHeight() uint64 { return e.Height }

// ValidatorEvent is a free text notice about a validator.
type ValidatorEvent struct {
	Height          uint64   `json:"height"`
	OperatorAddress string   `json:"operator_address"`
	Moniker         *string  `json:"moniker,omitempty"`
	Severity        Severity `json:"severity"`
	Message         string   `json:"message"`
	Hash            *string  `json:"hash,omitempty"`
}

func (ValidatorEvent) Kind() Kind            { return KindValidatorEvent }
func (e ValidatorEvent) BlockHeight() uint64 { return e.Height }

// Stop asks consumers to finish.
type Stop struct{}

func (Stop) Kind() Kind          { return KindStop }
func (Stop) BlockHeight() uint64 { return 0 }
