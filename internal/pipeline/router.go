// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

// Package pipeline wires the message broker to the event handlers:
// durable JetStream consumption with bounded prefetch, bounded retry
// with exponential backoff, and dead-lettering of poison messages.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
)

// RouterConfig controls middleware behavior.
type RouterConfig struct {
	CloseTimeout time.Duration

	// Retry settings for transient handler failures. A message that
	// exhausts MaxRetries is handed to the poison queue.
	RetryMaxRetries      int
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMultiplier      float64

	// PoisonTopic receives messages whose handler kept failing.
	PoisonTopic string
}

// Router hosts message handlers behind the shared middleware chain.
type Router struct {
	router *message.Router
	logger watermill.LoggerAdapter
}

// NewRouter builds a Watermill router with recovery, bounded retry and
// poison queue middleware. poisonPublisher receives messages that
// exhaust their retries; it is typically the same NATS publisher the
// relay uses.
func NewRouter(cfg RouterConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	router.AddPlugin(plugin.SignalsHandler)

	// First-added middleware wraps outermost. PoisonQueue must sit
	// outside Retry: it dead-letters only errors that survived retry
	// exhaustion, otherwise every first failure would skip retry and
	// go straight to the dead letter topic.
	if cfg.PoisonTopic != "" && poisonPublisher != nil {
		poison, err := middleware.PoisonQueue(poisonPublisher, cfg.PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue: %w", err)
		}
		router.AddMiddleware(poison)
	}

	router.AddMiddleware(middleware.Recoverer)

	router.AddMiddleware(middleware.Retry{
		MaxRetries:      cfg.RetryMaxRetries,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     cfg.RetryMaxInterval,
		Multiplier:      cfg.RetryMultiplier,
		Logger:          logger,
	}.Middleware)

	return &Router{router: router, logger: logger}, nil
}

// AddConsumerHandler registers a no-publisher handler for a topic.
func (r *Router) AddConsumerHandler(name, topic string, subscriber message.Subscriber, fn message.NoPublishHandlerFunc) {
	r.router.AddNoPublisherHandler(name, topic, subscriber, fn)
}

// Run starts the router and blocks until the context is canceled or the
// router shuts down.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel closed once all handlers are started.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// Close stops the router gracefully.
func (r *Router) Close() error {
	return r.router.Close()
}
