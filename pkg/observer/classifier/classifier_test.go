package classifier

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-watch/pkg/chain"
	"github.com/StrathCole/oracle-watch/pkg/coins"
	"github.com/StrathCole/oracle-watch/pkg/events"
)

func attrs(kv ...string) chain.Attributes {
	a := chain.Attributes{}
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		a[kv[i]] = &v
	}
	return a
}

func TestClassifyRewards(t *testing.T) {
	c := New(zerolog.Nop())

	tests := []struct {
		name  string
		tag   string
		attrs chain.Attributes
		want  events.Event
	}{
		{
			name:  "reward with amount",
			tag:   TagRewards,
			attrs: attrs("validator", "terravaloper1a", "amount", "1.5uluna,20ukrw"),
			want: events.BlockReward{Height: 10, IsBegin: true, Validator: "terravaloper1a",
				Amount: coins.MustParse("1.5uluna,20ukrw")},
		},
		{
			name:  "proposer reward",
			tag:   TagProposerReward,
			attrs: attrs("validator", "terravaloper1a", "amount", "3uluna"),
			want: events.BlockReward{Height: 10, IsBegin: true, IsProposer: true, Validator: "terravaloper1a",
				Amount: coins.MustParse("3uluna")},
		},
		{
			name:  "reward without amount",
			tag:   TagRewards,
			attrs: attrs("validator", "terravaloper1a"),
			want:  events.BlockReward{Height: 10, IsBegin: true, Validator: "terravaloper1a", Amount: coins.Coins{}},
		},
		{
			name:  "reward without validator",
			tag:   TagRewards,
			attrs: attrs("amount", "3uluna"),
		},
		{
			name:  "reward with malformed amount",
			tag:   TagRewards,
			attrs: attrs("validator", "terravaloper1a", "amount", "lots"),
		},
		{
			name:  "commission",
			tag:   TagCommission,
			attrs: attrs("validator", "terravaloper1b", "amount", "0.25uusd"),
			want: events.Commission{Height: 10, IsBegin: true, Validator: "terravaloper1b",
				Amount: coins.MustParse("0.25uusd")},
		},
		{
			name:  "commission without amount",
			tag:   TagCommission,
			attrs: attrs("validator", "terravaloper1b"),
			want:  events.Commission{Height: 10, IsBegin: true, Validator: "terravaloper1b", Amount: coins.Coins{}},
		},
		{
			name:  "commission without validator",
			tag:   TagCommission,
			attrs: attrs("amount", "0.25uusd"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(10, true, tt.tag, tt.attrs)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyLiveness(t *testing.T) {
	c := New(zerolog.Nop())

	got := c.Classify(20, false, TagLiveness, attrs("address", "terravalcons1x", "missed_blocks", "12"))
	assert.Equal(t, events.Liveness{Height: 20, TendermintAddress: "terravalcons1x", Missed: 12}, got)

	got = c.Classify(20, false, TagLiveness, attrs("address", "terravalcons1x", "missed_blocks", "many"))
	assert.Equal(t, events.Liveness{Height: 20, TendermintAddress: "terravalcons1x"}, got)

	got = c.Classify(20, false, TagLiveness, attrs("address", "terravalcons1x"))
	assert.Equal(t, events.Liveness{Height: 20, TendermintAddress: "terravalcons1x"}, got)

	assert.Nil(t, c.Classify(20, false, TagLiveness, attrs("missed_blocks", "1")))
	assert.Nil(t, c.Classify(20, false, TagLiveness, chain.Attributes{"address": nil}))
}

func TestClassifyExchangeRate(t *testing.T) {
	c := New(zerolog.Nop())

	got := c.Classify(30, false, TagExchangeRateUpdate, attrs("denom", "ukrw", "exchange_rate", "123.456"))
	require.NotNil(t, got)
	upd := got.(events.ExchangeRateUpdate)
	assert.Equal(t, "ukrw", upd.Denom)
	assert.True(t, decimal.RequireFromString("123.456").Equal(upd.ExchangeRate))

	assert.Nil(t, c.Classify(30, false, TagExchangeRateUpdate, attrs("exchange_rate", "1")))
	assert.Nil(t, c.Classify(30, false, TagExchangeRateUpdate, attrs("denom", "uusd")))
	assert.Nil(t, c.Classify(30, false, TagExchangeRateUpdate, attrs("denom", "uusd", "exchange_rate", "abc")))
}

func TestClassifyInformational(t *testing.T) {
	var buf bytes.Buffer
	c := New(zerolog.New(&buf).Level(zerolog.InfoLevel))

	for _, tag := range []string{TagTransfer, TagMessage, TagMint, TagCompleteUnbonding,
		TagCompleteRedelegation, TagCoinSpent, TagCoinReceived, "wasm"} {
		assert.Nil(t, c.Classify(40, true, tag, attrs("sender", "terra1x")), tag)
	}
	assert.Contains(t, buf.String(), "Unrecognized event")
	assert.Contains(t, buf.String(), "Delegation completed")
}
