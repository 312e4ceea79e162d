package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/oracle-watch/pkg/events"
)

func TestPriceAverage(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(db, "terra", 0, zerolog.Nop())

	mock.ExpectHSet("terra:price:uusd",
		"height", "120",
		"average", "10.2",
		"weighted_average", "10.3",
		"weighted_median", "10.4",
		"count", "2",
		"total_weight", "4",
	).SetVal(5)

	err := s.Handle(context.Background(), events.PriceAverage{
		Height:          120,
		Denom:           "uusd",
		Average:         decimal.RequireFromString("10.2"),
		WeightedAverage: decimal.RequireFromString("10.3"),
		WeightedMedian:  decimal.RequireFromString("10.4"),
		Count:           2,
		TotalWeight:     4,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriftAndAbstainCounters(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(db, "", 0, zerolog.Nop())

	mock.ExpectHIncrBy("oracle:drift:terravaloper1a", "uusd", 1).SetVal(1)
	mock.ExpectHIncrBy("oracle:abstain:terravaloper1a", "ukrw", 1).SetVal(3)
	mock.ExpectHIncrBy("oracle:abstain:terravaloper1a", "umnt", 1).SetVal(1)

	ctx := context.Background()
	require.NoError(t, s.Handle(ctx, events.PriceDrift{OperatorAddress: "terravaloper1a", Denom: "uusd"}))
	require.NoError(t, s.Handle(ctx, events.PriceAbstain{OperatorAddress: "terravaloper1a", Denoms: []string{"ukrw", "umnt"}}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidatorEventHistory(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(db, "oracle", 10, zerolog.Nop())

	ev := events.ValidatorEvent{
		Height:          300,
		OperatorAddress: "terravaloper1b",
		Severity:        events.SeverityWarn,
		Message:         "Operator missed a vote? Last Seen:200",
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	mock.ExpectLPush("oracle:events:terravaloper1b", string(data)).SetVal(1)
	mock.ExpectLTrim("oracle:events:terravaloper1b", 0, 9).SetVal("OK")

	require.NoError(t, s.Handle(context.Background(), ev))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorsPropagate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(db, "oracle", 0, zerolog.Nop())

	mock.ExpectHIncrBy("oracle:drift:v", "uusd", 1).SetErr(errors.New("READONLY"))
	err := s.Handle(context.Background(), events.PriceDrift{OperatorAddress: "v", Denom: "uusd"})
	assert.ErrorContains(t, err, "READONLY")
}

func TestIgnoredKinds(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(db, "oracle", 0, zerolog.Nop())

	require.NoError(t, s.Handle(context.Background(), events.Liveness{Height: 1}))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, s.Close())
}

func TestLatestPrice(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := New(db, "oracle", 0, zerolog.Nop())

	mock.ExpectHGetAll("oracle:price:uusd").SetVal(map[string]string{"average": "10.2"})
	mock.ExpectHGetAll("oracle:price:ukrw").SetVal(map[string]string{})

	vals, ok, err := s.LatestPrice(context.Background(), "uusd")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10.2", vals["average"])

	_, ok, err = s.LatestPrice(context.Background(), "ukrw")
	require.NoError(t, err)
	assert.False(t, ok)
}
