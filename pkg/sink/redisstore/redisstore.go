// Package redisstore keeps a Redis read model of oracle results for dashboards.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/StrathCole/oracle-watch/pkg/events"
)

const (
	// DefaultKeyPrefix is used when no prefix is configured.
	DefaultKeyPrefix = "oracle"
	// DefaultHistory bounds the per validator event list.
	DefaultHistory = 100
)

// Config configures the Redis store.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	History   int
}

// Store writes derived events into Redis hashes and lists.
//
//	<prefix>:price:<denom>          HSET latest average
//	<prefix>:drift:<validator>      HINCRBY per denom
//	<prefix>:abstain:<validator>    HINCRBY per denom
//	<prefix>:events:<validator>     LPUSH + LTRIM validator events
type Store struct {
	client  redis.Cmdable
	closer  func() error
	prefix  string
	history int64
	logger  zerolog.Logger
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	s := New(client, cfg.KeyPrefix, cfg.History, logger)
	s.closer = client.Close
	return s, nil
}

// New creates a store over an existing client.
func New(client redis.Cmdable, prefix string, history int, logger zerolog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if history <= 0 {
		history = DefaultHistory
	}
	return &Store{
		client:  client,
		prefix:  prefix,
		history: int64(history),
		logger:  logger.With().Str("component", "redisstore").Logger(),
	}
}

// Name implements sink.Handler.
func (s *Store) Name() string {
	return "redis"
}

// Kinds implements sink.Filter.
func (s *Store) Kinds() []events.Kind {
	return []events.Kind{
		events.KindPriceAverage,
		events.KindPriceDrift,
		events.KindPriceAbstain,
		events.KindValidatorEvent,
	}
}

func (s *Store) key(parts ...string) string {
	k := s.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// Handle implements sink.Handler. Kinds without a read model are ignored.
func (s *Store) Handle(ctx context.Context, ev events.Event) error {
	switch ev := ev.(type) {
	case events.PriceAverage:
		return s.client.HSet(ctx, s.key("price", ev.Denom),
			"height", strconv.FormatUint(ev.Height, 10),
			"average", ev.Average.String(),
			"weighted_average", ev.WeightedAverage.String(),
			"weighted_median", ev.WeightedMedian.String(),
			"count", strconv.Itoa(ev.Count),
			"total_weight", strconv.FormatUint(ev.TotalWeight, 10),
		).Err()
	case events.PriceDrift:
		return s.client.HIncrBy(ctx, s.key("drift", ev.OperatorAddress), ev.Denom, 1).Err()
	case events.PriceAbstain:
		key := s.key("abstain", ev.OperatorAddress)
		for _, denom := range ev.Denoms {
			if err := s.client.HIncrBy(ctx, key, denom, 1).Err(); err != nil {
				return err
			}
		}
		return nil
	case events.ValidatorEvent:
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal validator event: %w", err)
		}
		key := s.key("events", ev.OperatorAddress)
		if err := s.client.LPush(ctx, key, string(data)).Err(); err != nil {
			return err
		}
		return s.client.LTrim(ctx, key, 0, s.history-1).Err()
	default:
		return nil
	}
}

// LatestPrice reads the stored average for denom. ok is false when none is stored.
func (s *Store) LatestPrice(ctx context.Context, denom string) (map[string]string, bool, error) {
	vals, err := s.client.HGetAll(ctx, s.key("price", denom)).Result()
	if err != nil {
		return nil, false, err
	}
	return vals, len(vals) > 0, nil
}

// Close closes the client if the store owns it.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
