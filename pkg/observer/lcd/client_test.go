package lcd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paramsBody = `{"params":{
	"vote_period":"5",
	"vote_threshold":"0.500000000000000000",
	"reward_band":"0.020000000000000000",
	"reward_distribution_window":"9437400",
	"whitelist":[{"name":"uusd","tobin_tax":"0.0035"},{"name":"ukrw","tobin_tax":"0.0035"}],
	"slash_fraction":"0.000100000000000000",
	"slash_window":"604800",
	"min_valid_per_window":"0.050000000000000000"
}}`

func TestOracleParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, oracleParamsPath, r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "oracle-watch/")
		_, _ = w.Write([]byte(paramsBody))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoints: []string{srv.URL + "/"}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	params, err := c.OracleParams(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, params.VotePeriod)
	assert.True(t, decimal.RequireFromString("0.02").Equal(params.RewardBand))
	assert.True(t, decimal.RequireFromString("0.05").Equal(params.MinValidPerWindow))
	assert.EqualValues(t, 604800, params.SlashWindow)
	require.Len(t, params.Whitelist, 2)
	assert.Equal(t, "ukrw", params.Whitelist[1].Name)
}

func TestFailoverToSecondEndpoint(t *testing.T) {
	var badHits atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		badHits.Add(1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(paramsBody))
	}))
	defer good.Close()

	c, err := NewClient(Config{Endpoints: []string{bad.URL, good.URL}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	params, err := c.OracleParams(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 5, params.VotePeriod)
	assert.Equal(t, good.URL, c.CurrentEndpoint())
	assert.EqualValues(t, 1, badHits.Load())
}

func TestAllEndpointsFail(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	c, err := NewClient(Config{Endpoints: []string{bad.URL}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = c.OracleParams(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllAttemptsFailed)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestValidatorsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, validatorsPath, r.URL.Path)
		assert.Equal(t, bondedStatus, r.URL.Query().Get("status"))
		switch r.URL.Query().Get("pagination.key") {
		case "":
			_, _ = w.Write([]byte(`{"validators":[
				{"operator_address":"terravaloper1a","tokens":"1000","status":"BOND_STATUS_BONDED","description":{"moniker":"alpha"}}
			],"pagination":{"next_key":"a2V5Lw==","total":"2"}}`))
		case "a2V5Lw==":
			_, _ = w.Write([]byte(`{"validators":[
				{"operator_address":"terravaloper1b","tokens":"250","status":"BOND_STATUS_BONDED","description":{"moniker":"beta"}}
			],"pagination":{"next_key":null,"total":"0"}}`))
		default:
			t.Errorf("unexpected key %q", r.URL.Query().Get("pagination.key"))
		}
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoints: []string{srv.URL}, Logger: zerolog.Nop()})
	require.NoError(t, err)

	vals, err := c.Validators(context.Background())
	require.NoError(t, err)
	require.Len(t, vals, 2)
	assert.Equal(t, "terravaloper1a", vals[0].OperatorAddress)
	assert.Equal(t, "alpha", vals[0].Moniker())
	assert.EqualValues(t, 1000, vals[0].Tokens)
	assert.EqualValues(t, 250, vals[1].Tokens)
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrNoEndpointsRequired)
}
