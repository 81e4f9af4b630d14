// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

// Package main runs the Pulsefeed server.
//
// The server hosts two supervised layers:
//
//   - pipeline: a durable JetStream consumer that resolves intention
//     events, maintains per-user affinity counters, and fans resolved
//     notifications out to downstream services
//   - api: the HTTP feed read path, health endpoints, and Prometheus
//     metrics
//
// Configuration is loaded via Koanf with layered sources (highest
// priority wins): environment variables prefixed PULSEFEED_, an
// optional YAML file, built-in defaults.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/pulsefeed/internal/api"
	"github.com/tomtom215/pulsefeed/internal/config"
	"github.com/tomtom215/pulsefeed/internal/feed"
	"github.com/tomtom215/pulsefeed/internal/logging"
	"github.com/tomtom215/pulsefeed/internal/pipeline"
	"github.com/tomtom215/pulsefeed/internal/store"
	"github.com/tomtom215/pulsefeed/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})
	logging.Info().Msg("starting pulsefeed server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The stream must exist before publishers or subscribers connect.
	if err := pipeline.EnsureStream(pipeline.StreamConfig{
		URL:           cfg.NATS.URL,
		StreamName:    cfg.NATS.StreamName,
		Subjects:      []string{"feed.>"},
		RetentionDays: cfg.NATS.StreamRetentionDays,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
	}); err != nil {
		return err
	}

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	st, err := store.Open(openCtx, store.Config{
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.EnsureSchema(openCtx); err != nil {
		return err
	}

	wmLogger := logging.NewWatermillAdapter()

	publisher, err := pipeline.NewPublisher(
		pipeline.DefaultPublisherConfig(cfg.NATS.URL), wmLogger)
	if err != nil {
		return err
	}
	defer publisher.Close()
	publisher.SetCircuitBreaker(gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        "nats-publisher",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
	}))

	subscriber, err := pipeline.NewSubscriber(pipeline.SubscriberConfig{
		URL:              cfg.NATS.URL,
		StreamName:       cfg.NATS.StreamName,
		DurableName:      cfg.NATS.DurableName,
		QueueGroup:       cfg.NATS.QueueGroup,
		MaxAckPending:    cfg.NATS.MaxAckPending,
		MaxDeliver:       cfg.NATS.MaxDeliver,
		SubscribersCount: cfg.NATS.SubscribersCount,
		AckWaitTimeout:   cfg.NATS.AckWait,
		CloseTimeout:     cfg.NATS.CloseTimeout,
		MaxReconnects:    cfg.NATS.MaxReconnects,
		ReconnectWait:    cfg.NATS.ReconnectWait,
	}, wmLogger)
	if err != nil {
		return err
	}
	defer subscriber.Close()

	relay := pipeline.NewRelay(st, publisher, cfg.Topics.Inner, cfg.Topics.Outer)
	aggregator := pipeline.NewAggregator(st)
	dispatcher := pipeline.NewDispatcher(relay, aggregator, publisher, cfg.Topics.Poison)

	router, err := pipeline.NewRouter(pipeline.RouterConfig{
		CloseTimeout:         cfg.Router.CloseTimeout,
		RetryMaxRetries:      cfg.Router.RetryMaxRetries,
		RetryInitialInterval: cfg.Router.RetryInitialInterval,
		RetryMaxInterval:     cfg.Router.RetryMaxInterval,
		RetryMultiplier:      cfg.Router.RetryMultiplier,
		PoisonTopic:          cfg.Topics.Poison,
	}, publisher, wmLogger)
	if err != nil {
		return err
	}
	router.AddConsumerHandler("feed-events", cfg.Topics.Inner, subscriber.Unwrap(), dispatcher.Handle)

	composer := feed.NewComposer(st, cfg.Feed)
	server := api.NewServer(cfg.Server, composer, st)

	tree := supervisor.NewTree(
		slog.New(logging.NewSlogHandler()),
		supervisor.DefaultTreeConfig(),
	)
	tree.AddPipelineService(supervisor.NewRunnerService("message-router", router))
	tree.AddAPIService(supervisor.NewHTTPService("http-server", server))

	logging.Info().Msg("pulsefeed server started")
	err = tree.Serve(ctx)
	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop in time")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logging.Info().Msg("pulsefeed server stopped")
	return nil
}
