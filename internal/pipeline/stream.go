// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package pipeline

import (
	"errors"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/pulsefeed/internal/logging"
)

// StreamConfig describes the JetStream stream backing the pipeline.
type StreamConfig struct {
	URL           string
	StreamName    string
	Subjects      []string
	RetentionDays int
	MaxReconnects int
	ReconnectWait time.Duration
}

// EnsureStream creates or updates the JetStream stream so subscribers
// can bind to it. Publishers and subscribers both assume the stream
// exists; this runs once at startup before either connects.
func EnsureStream(cfg StreamConfig) error {
	logger := logging.With().Str("component", "stream").Logger()

	nc, err := natsgo.Connect(cfg.URL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream context: %w", err)
	}

	streamCfg := &natsgo.StreamConfig{
		Name:      cfg.StreamName,
		Subjects:  cfg.Subjects,
		Storage:   natsgo.FileStorage,
		Retention: natsgo.LimitsPolicy,
		MaxAge:    time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		// Dedup window for Nats-Msg-Id based publish deduplication.
		Duplicates: 2 * time.Minute,
	}

	info, err := js.StreamInfo(cfg.StreamName)
	switch {
	case err == nil:
		if streamNeedsUpdate(info, streamCfg, logger) {
			if _, err := js.UpdateStream(streamCfg); err != nil {
				return fmt.Errorf("update stream %s: %w", cfg.StreamName, err)
			}
			logger.Info().Str("stream", cfg.StreamName).Msg("stream updated")
		}
	case errors.Is(err, natsgo.ErrStreamNotFound):
		if _, err := js.AddStream(streamCfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.StreamName, err)
		}
		logger.Info().
			Str("stream", cfg.StreamName).
			Strs("subjects", cfg.Subjects).
			Msg("stream created")
	default:
		return fmt.Errorf("stream info %s: %w", cfg.StreamName, err)
	}

	return nil
}

// streamNeedsUpdate reports whether the live stream diverges from the
// desired configuration in any field we manage.
func streamNeedsUpdate(info *natsgo.StreamInfo, want *natsgo.StreamConfig, logger zerolog.Logger) bool {
	if info.Config.MaxAge != want.MaxAge {
		logger.Debug().
			Dur("have", info.Config.MaxAge).
			Dur("want", want.MaxAge).
			Msg("stream max age differs")
		return true
	}
	if len(info.Config.Subjects) != len(want.Subjects) {
		return true
	}
	for i, s := range info.Config.Subjects {
		if s != want.Subjects[i] {
			return true
		}
	}
	return false
}
