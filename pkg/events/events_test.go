package events

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityNames(t *testing.T) {
	assert.Equal(t, "WARN", SeverityWarn.String())
	assert.Equal(t, "ANNOUNCE", SeverityAnnounce.String())
	assert.Equal(t, "Severity(42)", Severity(42).String())

	s, err := ParseSeverity("critical")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, s)

	_, err = ParseSeverity("loud")
	assert.ErrorIs(t, err, ErrUnknownSeverity)
}

func TestSeverityJSON(t *testing.T) {
	out, err := json.Marshal(SeverityWarn)
	require.NoError(t, err)
	assert.Equal(t, `"WARN"`, string(out))

	var s Severity
	require.NoError(t, json.Unmarshal([]byte(`"INFO"`), &s))
	assert.Equal(t, SeverityInfo, s)
	require.Error(t, json.Unmarshal([]byte(`"NOPE"`), &s))
}

func TestKinds(t *testing.T) {
	for _, k := range AllKinds {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("bogus").Valid())

	kinds, err := ParseKinds([]string{"price_drift", "stop"})
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindPriceDrift, KindStop}, kinds)

	_, err = ParseKinds([]string{"price_drift", "nope"})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestEnvelope(t *testing.T) {
	ev := PriceDrift{
		Height:          120,
		OperatorAddress: "terravaloper1a",
		Denom:           "uusd",
		Average:         decimal.RequireFromString("10.2"),
		WeightedAverage: decimal.RequireFromString("10.3"),
		Submitted:       decimal.RequireFromString("10.0"),
		MaxDeviation:    decimal.RequireFromString("0.102"),
		TxHash:          "AB",
	}

	env := NewEnvelope(ev)
	_, err := uuid.Parse(env.ID)
	require.NoError(t, err)
	assert.Equal(t, KindPriceDrift, env.Kind)
	assert.Equal(t, uint64(120), env.Height)
	assert.False(t, env.Time.IsZero())

	raw, err := env.Marshal()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "price_drift", decoded["kind"])
	inner := decoded["event"].(map[string]interface{})
	assert.Equal(t, "10.2", inner["average"])
	assert.Equal(t, "terravaloper1a", inner["operator_address"])
}

func TestStopHeight(t *testing.T) {
	assert.Equal(t, KindStop, Stop{}.Kind())
	assert.Zero(t, Stop{}.BlockHeight())
}
