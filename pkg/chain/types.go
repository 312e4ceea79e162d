package chain

import (
	"encoding/json"
	"fmt"
	"time"
)

// NewBlock is a "new_block" notification from the observer.
type NewBlock struct {
	ChainID string       `json:"chain_id"`
	Type    string       `json:"type"`
	Data    NewBlockData `json:"data"`
}

// NewBlockData is the payload of a block notification.
type NewBlockData struct {
	Block            Block            `json:"block"`
	ResultBeginBlock BeginBlockResult `json:"result_begin_block"`
	ResultEndBlock   EndBlockResult   `json:"result_end_block"`
	Txs              []TxResult       `json:"txs,omitempty"`
	Supply           []RawCoin        `json:"supply,omitempty"`
}

// Block carries the block header. Block data (raw txs, evidence) is not consumed.
type Block struct {
	Header Header `json:"header"`
}

// Header is the subset of the tendermint header the observer needs.
type Header struct {
	ChainID         string    `json:"chain_id"`
	Height          Uint64    `json:"height"`
	Time            time.Time `json:"time"`
	ProposerAddress string    `json:"proposer_address"`
}

// BeginBlockResult holds the ordered begin-block events.
type BeginBlockResult struct {
	Events []Event `json:"events"`
}

// EndBlockResult holds the ordered end-block events and validator updates.
// Events is nil when the field is absent.
type EndBlockResult struct {
	ValidatorUpdates []ValidatorUpdate `json:"validator_updates"`
	Events           []Event           `json:"events,omitempty"`
}

// ValidatorUpdate is an end-block voting power change.
type ValidatorUpdate struct {
	PubKey json.RawMessage `json:"pub_key"`
	Power  Int64           `json:"power"`
}

// Event is a typed ABCI event with base64 encoded attributes.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

// Attribute is a single event key/value pair. Value may be absent.
type Attribute struct {
	Key   B64String    `json:"key"`
	Value OptB64String `json:"value"`
	Index bool         `json:"index"`
}

// Attributes maps attribute keys to optional values. Later duplicates win.
type Attributes map[string]*string

// AttributeMap collapses the ordered attribute list into a lookup map.
func (e Event) AttributeMap() Attributes {
	attrs := make(Attributes, len(e.Attributes))
	for _, a := range e.Attributes {
		if a.Value.Valid {
			v := a.Value.Value
			attrs[string(a.Key)] = &v
		} else {
			attrs[string(a.Key)] = nil
		}
	}
	return attrs
}

// Get returns the attribute value; ok is false when the key is missing or has no value.
func (a Attributes) Get(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// GetOrEmpty returns the value or "" for diagnostics.
func (a Attributes) GetOrEmpty(key string) string {
	v, _ := a.Get(key)
	return v
}

// TxResult is an included transaction together with its execution result.
type TxResult struct {
	Height    Uint64          `json:"height"`
	TxHash    string          `json:"txhash"`
	RawLog    string          `json:"raw_log"`
	Logs      json.RawMessage `json:"logs,omitempty"`
	GasWanted Uint64          `json:"gas_wanted"`
	GasUsed   Uint64          `json:"gas_used"`
	Tx        TxEnvelope      `json:"tx"`
	Timestamp time.Time       `json:"timestamp"`
}

// TxEnvelope is the decoded outer transaction.
type TxEnvelope struct {
	Type string `json:"@type"`
	Body TxBody `json:"body"`
}

// TxBody holds the opaque messages and memo.
type TxBody struct {
	Messages []json.RawMessage `json:"messages"`
	Memo     string            `json:"memo"`
}

// MessageType returns the "@type" discriminator of an opaque message.
func MessageType(msg json.RawMessage) (string, bool) {
	var probe struct {
		Type *string `json:"@type"`
	}
	if err := json.Unmarshal(msg, &probe); err != nil || probe.Type == nil {
		return "", false
	}
	return *probe.Type, true
}

// RawCoin is a coin as delivered in the supply list.
type RawCoin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// MsgAggregateExchangeRateVote is the oracle aggregate vote message.
type MsgAggregateExchangeRateVote struct {
	Type          string `json:"@type"`
	ExchangeRates string `json:"exchange_rates"`
	Feeder        string `json:"feeder"`
	Salt          string `json:"salt"`
	Validator     string `json:"validator"`
}

// DecodeNewBlock decodes a text frame into a block notification.
func DecodeNewBlock(data []byte) (*NewBlock, error) {
	var block NewBlock
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeBlock, err)
	}
	if block.Data.Block.Header.Height == 0 {
		return nil, fmt.Errorf("%w: %w", ErrDecodeBlock, ErrMissingBlock)
	}
	return &block, nil
}

// Height returns the block height.
func (b *NewBlock) Height() uint64 {
	return uint64(b.Data.Block.Header.Height)
}
