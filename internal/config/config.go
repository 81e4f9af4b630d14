// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

// Package config loads and validates Pulsefeed configuration from
// struct defaults, an optional YAML file, and environment variables,
// in increasing order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the Pulsefeed service.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	NATS     NATSConfig     `koanf:"nats"`
	Router   RouterConfig   `koanf:"router"`
	Topics   TopicsConfig   `koanf:"topics"`
	Feed     FeedConfig     `koanf:"feed"`
	Bonus    BonusConfig    `koanf:"bonus"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ServerConfig controls the HTTP surface (feed query, health, metrics).
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig controls the Postgres connection pool.
type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"gt=0,lte=65535"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gt=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gt=0"`
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// NATSConfig controls the JetStream connection and consumer behavior.
type NATSConfig struct {
	URL         string `koanf:"url" validate:"required"`
	StreamName  string `koanf:"stream_name" validate:"required"`
	DurableName string `koanf:"durable_name" validate:"required"`
	QueueGroup  string `koanf:"queue_group" validate:"required"`

	// MaxAckPending is the bounded prefetch count: the maximum number
	// of unacknowledged messages in flight per consumer, providing
	// backpressure against a slow aggregator or saturated store.
	MaxAckPending int `koanf:"max_ack_pending" validate:"gt=0"`

	// MaxDeliver bounds broker-level redelivery of unacked messages.
	MaxDeliver int `koanf:"max_deliver" validate:"gt=0"`

	// SubscribersCount is the number of parallel consumer workers.
	SubscribersCount int `koanf:"subscribers_count" validate:"gt=0"`

	AckWait             time.Duration `koanf:"ack_wait" validate:"gt=0"`
	ReconnectWait       time.Duration `koanf:"reconnect_wait" validate:"gt=0"`
	MaxReconnects       int           `koanf:"max_reconnects"`
	CloseTimeout        time.Duration `koanf:"close_timeout" validate:"gt=0"`
	StreamRetentionDays int           `koanf:"stream_retention_days" validate:"gt=0"`
}

// RouterConfig controls Watermill router middleware.
type RouterConfig struct {
	CloseTimeout         time.Duration `koanf:"close_timeout" validate:"gt=0"`
	RetryMaxRetries      int           `koanf:"retry_max_retries" validate:"gte=0"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval" validate:"gt=0"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval" validate:"gt=0"`
	RetryMultiplier      float64       `koanf:"retry_multiplier" validate:"gte=1"`
}

// TopicsConfig names the logical channels.
//
// Inner carries pre-event to resolved-event round trips local to this
// service; Outer carries fully-resolved events consumed by other
// services; Poison is the dead-letter topic for unprocessable messages.
type TopicsConfig struct {
	Inner  string `koanf:"inner" validate:"required"`
	Outer  string `koanf:"outer" validate:"required"`
	Poison string `koanf:"poison" validate:"required"`
}

// FeedConfig controls personalized feed ranking.
type FeedConfig struct {
	// MinHashtagWeight gates personalization: ranking by weights kicks
	// in only once the user has at least one hashtag weight at or above
	// this value. Below it, the feed is reverse-chronological.
	MinHashtagWeight int `koanf:"min_hashtag_weight" validate:"gte=0"`

	// MinAuthorWeight and MinHashtagSum select candidate posts in the
	// personalized query (author weight OR hashtag weight sum must
	// clear its threshold).
	MinAuthorWeight int `koanf:"min_author_weight" validate:"gte=0"`
	MinHashtagSum   int `koanf:"min_hashtag_sum" validate:"gte=0"`

	DefaultLimit int `koanf:"default_limit" validate:"gt=0"`
	MaxLimit     int `koanf:"max_limit" validate:"gt=0"`
}

// BonusConfig holds the signed magnitudes attached to user actions.
// The same magnitude used to add must be used to subtract so that a
// like+dislike or subscribe+unsubscribe cycle settles a counter back
// at its pre-cycle value.
type BonusConfig struct {
	Like      int `koanf:"like" validate:"gt=0"`
	Hashtag   int `koanf:"hashtag" validate:"gt=0"`
	Subscribe int `koanf:"subscribe" validate:"gt=0"`
}

// defaultConfig returns a Config with production defaults. The feed
// thresholds and bonuses carry the values the original deployment used.
func defaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "127.0.0.1",
			Port:            5432,
			User:            "pulsefeed",
			Password:        "",
			Name:            "pulsefeed",
			SSLMode:         "disable",
			MaxOpenConns:    16,
			MaxIdleConns:    8,
			ConnMaxLifetime: 30 * time.Minute,
		},
		NATS: NATSConfig{
			URL:                 "nats://127.0.0.1:4222",
			StreamName:          "FEED",
			DurableName:         "feed-processor",
			QueueGroup:          "processors",
			MaxAckPending:       64,
			MaxDeliver:          5,
			SubscribersCount:    4,
			AckWait:             30 * time.Second,
			ReconnectWait:       2 * time.Second,
			MaxReconnects:       -1, // reconnect forever
			CloseTimeout:        30 * time.Second,
			StreamRetentionDays: 7,
		},
		Router: RouterConfig{
			CloseTimeout:         30 * time.Second,
			RetryMaxRetries:      5,
			RetryInitialInterval: time.Second,
			RetryMaxInterval:     time.Minute,
			RetryMultiplier:      2.0,
		},
		Topics: TopicsConfig{
			Inner:  "feed.inner",
			Outer:  "feed.outer",
			Poison: "feed.dlq",
		},
		Feed: FeedConfig{
			MinHashtagWeight: 30,
			MinAuthorWeight:  5,
			MinHashtagSum:    15,
			DefaultLimit:     10,
			MaxLimit:         100,
		},
		Bonus: BonusConfig{
			Like:      1,
			Hashtag:   1,
			Subscribe: 100,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Feed.DefaultLimit > c.Feed.MaxLimit {
		return fmt.Errorf("invalid configuration: feed.default_limit %d exceeds feed.max_limit %d",
			c.Feed.DefaultLimit, c.Feed.MaxLimit)
	}
	return nil
}
