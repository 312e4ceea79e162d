package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/StrathCole/oracle-watch/pkg/bus"
	"github.com/StrathCole/oracle-watch/pkg/config"
	"github.com/StrathCole/oracle-watch/pkg/events"
	"github.com/StrathCole/oracle-watch/pkg/logging"
	"github.com/StrathCole/oracle-watch/pkg/metrics"
	"github.com/StrathCole/oracle-watch/pkg/observer/eventstream"
	"github.com/StrathCole/oracle-watch/pkg/observer/lcd"
	"github.com/StrathCole/oracle-watch/pkg/observer/oracle"
	"github.com/StrathCole/oracle-watch/pkg/observer/staking"
	"github.com/StrathCole/oracle-watch/pkg/server/api"
	"github.com/StrathCole/oracle-watch/pkg/sink"
	"github.com/StrathCole/oracle-watch/pkg/sink/natssink"
	"github.com/StrathCole/oracle-watch/pkg/sink/redisstore"
)

const (
	paramsTimeout = 30 * time.Second
	drainTimeout  = 10 * time.Second
)

// paramsSource fetches oracle params from the chain.
type paramsSource interface {
	OracleParams(ctx context.Context) (*lcd.OracleParams, error)
}

// run wires every component onto one bus. Producers stop with ctx; consumers
// drain their subscriptions after a Stop event and the bus closes.
func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	zl := logger.ZerologLogger()
	metrics.Init()

	var lcdClient *lcd.Client
	if len(cfg.LCD.Endpoints) > 0 {
		var err error
		lcdClient, err = lcd.NewClient(lcd.Config{
			Endpoints: cfg.LCD.Endpoints,
			Timeout:   cfg.LCD.Timeout.ToDuration(),
			Logger:    zl,
		})
		if err != nil {
			return fmt.Errorf("failed to create LCD client: %w", err)
		}
	}

	var params oracle.Params
	{
		var src paramsSource
		if lcdClient != nil {
			src = lcdClient
		}
		pctx, cancel := context.WithTimeout(ctx, paramsTimeout)
		var err error
		params, err = resolveParams(pctx, &cfg.Oracle, src)
		cancel()
		if err != nil {
			return err
		}
	}
	logger.Info("Oracle params resolved", "vote_period", params.VotePeriod, "reward_band", params.RewardBand.String())

	threshold, err := cfg.Oracle.AbstainThresholdDecimal()
	if err != nil {
		return err
	}

	b := bus.New(zl)

	engine, err := oracle.NewEngine(oracle.Config{
		Params:           params,
		AbstainThreshold: threshold,
		StaleHorizon:     cfg.Oracle.StaleHorizon,
		TxType:           cfg.Oracle.TxType,
		VoteMsgType:      cfg.Oracle.VoteMsgType,
	}, b, zl)
	if err != nil {
		return fmt.Errorf("failed to create oracle engine: %w", err)
	}

	var handlers []sink.Handler
	var closers []func() error
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("Failed to close sink", "error", err)
			}
		}
	}()

	if cfg.Sinks.NATS.Enabled {
		ns, err := natssink.Connect(natssink.Config{
			URL:           cfg.Sinks.NATS.URL,
			SubjectPrefix: cfg.Sinks.NATS.SubjectPrefix,
			Name:          cfg.Sinks.NATS.Name,
		}, zl)
		if err != nil {
			return err
		}
		handlers = append(handlers, ns)
		closers = append(closers, ns.Close)
	}

	if cfg.Sinks.Redis.Enabled {
		rs, err := redisstore.Open(ctx, redisstore.Config{
			Addr:      cfg.Sinks.Redis.Addr,
			Password:  cfg.Sinks.Redis.Password,
			DB:        cfg.Sinks.Redis.DB,
			KeyPrefix: cfg.Sinks.Redis.KeyPrefix,
			History:   cfg.Sinks.Redis.History,
		}, zl)
		if err != nil {
			return err
		}
		handlers = append(handlers, rs)
		closers = append(closers, rs.Close)
	}

	stream := eventstream.NewStream(eventstream.Config{
		URL:              cfg.Observer.URL,
		ChainID:          cfg.ChainID,
		ReconnectDelay:   cfg.Observer.ReconnectDelay.ToDuration(),
		PingInterval:     cfg.Observer.PingInterval.ToDuration(),
		PongTimeout:      cfg.Observer.PongTimeout.ToDuration(),
		HandshakeTimeout: cfg.Observer.HandshakeTimeout.ToDuration(),
	}, b, zl)

	// Subscribe every consumer before any producer starts.
	var consumers errgroup.Group
	drainCtx := context.Background()

	engineSub := b.Subscribe("oracle", events.KindTransactionObserved, events.KindValidatorStakedTotal, events.KindStop)
	consumers.Go(func() error { return engine.Run(drainCtx, engineSub.C()) })

	for _, h := range handlers {
		h := h
		sub :=b.Subscribe(h.Name(), sink.KindsOf(h)...)
		consumers.Go(func() error { return sink.Run(drainCtx, sub.C(), h, zl) })
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		model := api.NewReadModel()
		modelSub := b.Subscribe("api-prices", events.KindPriceAverage)
		consumers.Go(func() error { return model.Run(drainCtx, modelSub.C()) })

		var ws *api.WebSocketServer
		if cfg.API.WebSocket {
			ws = api.NewWebSocketServer(cfg.API.AllowedOrigins, logger)
			feedSub := b.Subscribe("api-feed")
			consumers.Go(func() error { return ws.Run(drainCtx, feedSub.C()) })
		}

		apiServer = api.NewServer(api.Config{
			Addr:           cfg.API.Addr,
			AllowedOrigins: cfg.API.AllowedOrigins,
		}, model, stream, ws, logger)
	}

	producers, pctx := errgroup.WithContext(ctx)

	producers.Go(func() error { return stream.Run(pctx) })

	if cfg.Staking.Enabled {
		poller := staking.NewPoller(lcdClient, stream, b, cfg.Staking.PollInterval.ToDuration(), zl)
		producers.Go(func() error { return poller.Run(pctx) })
	}

	if apiServer != nil {
		producers.Go(apiServer.Start)
		producers.Go(func() error {
			<-pctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			return apiServer.Stop(sctx)
		})
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path)
		producers.Go(func() error {
			logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		producers.Go(func() error {
			<-pctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	runErr := producers.Wait()
	if runErr != nil {
		logger.Error("Component failed", "error", runErr)
	}

	logger.Info("Shutting down gracefully...")
	b.Publish(events.Stop{})
	b.Close()

	done := make(chan error, 1)
	go func() { done <- consumers.Wait() }()
	select {
	case err := <-done:
		if runErr == nil {
			runErr = err
		}
	case <-time.After(drainTimeout):
		logger.Warn("Timed out draining consumers", "timeout", drainTimeout.String())
	}

	return runErr
}

// resolveParams fills oracle params from config, fetching whatever is unset from the chain.
func resolveParams(ctx context.Context, cfg *config.OracleConfig, src paramsSource) (oracle.Params, error) {
	band, err := cfg.RewardBandDecimal()
	if err != nil {
		return oracle.Params{}, fmt.Errorf("invalid reward band: %w", err)
	}
	params := oracle.Params{VotePeriod: cfg.VotePeriod, RewardBand: band}
	if !cfg.NeedsChainParams() {
		return params, nil
	}
	if src == nil {
		return params, lcd.ErrNoEndpointsRequired
	}

	chainParams, err := src.OracleParams(ctx)
	if err != nil {
		return params, fmt.Errorf("failed to fetch oracle params: %w", err)
	}

	if params.VotePeriod == 0 {
		params.VotePeriod = uint64(chainParams.VotePeriod)
	}
	if cfg.RewardBand == "" {
		params.RewardBand = chainParams.RewardBand
	}
	params.VoteThreshold = chainParams.VoteThreshold
	params.RewardDistributionWindow = uint64(chainParams.RewardDistributionWindow)
	params.SlashFraction = chainParams.SlashFraction
	params.SlashWindow = uint64(chainParams.SlashWindow)
	params.MinValidPerWindow = chainParams.MinValidPerWindow
	return params, nil
}
