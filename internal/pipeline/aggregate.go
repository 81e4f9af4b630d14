// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/pulsefeed/internal/event"
	"github.com/tomtom215/pulsefeed/internal/logging"
	"github.com/tomtom215/pulsefeed/internal/metrics"
)

// WeightStore is the write surface the aggregator needs.
type WeightStore interface {
	ApplyAuthorDelta(ctx context.Context, userID, authorID uuid.UUID, delta int) error
	ApplyHashtagDelta(ctx context.Context, userID uuid.UUID, hashtagID int64, delta int) error
}

// Aggregator applies resolved weight events to the affinity counters.
type Aggregator struct {
	weights WeightStore
	logger  zerolog.Logger
}

// NewAggregator creates an aggregator backed by the given store.
func NewAggregator(weights WeightStore) *Aggregator {
	return &Aggregator{
		weights: weights,
		logger:  logging.With().Str("component", "aggregator").Logger(),
	}
}

// Apply dispatches a resolved weight event to its counter update.
func (a *Aggregator) Apply(ctx context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case event.AuthorWeight:
		return a.applyAuthorWeight(ctx, e)
	case event.HashtagsWeight:
		return a.applyHashtagsWeight(ctx, e)
	default:
		return fmt.Errorf("aggregator: unexpected event type %s", ev.EventType())
	}
}

func (a *Aggregator) applyAuthorWeight(ctx context.Context, e event.AuthorWeight) error {
	if err := a.weights.ApplyAuthorDelta(ctx, e.UserID, e.AuthorID, e.Weight); err != nil {
		return fmt.Errorf("apply author weight: %w", err)
	}
	metrics.WeightUpdates.WithLabelValues("author", direction(e.Weight)).Inc()

	a.logger.Debug().
		Str("user_id", e.UserID.String()).
		Str("author_id", e.AuthorID.String()).
		Int("delta", e.Weight).
		Msg("author weight applied")
	return nil
}

// applyHashtagsWeight applies the delta to every hashtag in the event.
// A failure partway through returns an error and the message is
// redelivered; re-applying the already-updated hashtags shifts counters
// but the updates are individually clamped, so the store stays valid.
func (a *Aggregator) applyHashtagsWeight(ctx context.Context, e event.HashtagsWeight) error {
	for _, hashtagID := range e.HashtagIDs {
		if err := a.weights.ApplyHashtagDelta(ctx, e.UserID, hashtagID, e.Weight); err != nil {
			return fmt.Errorf("apply hashtag weight (hashtag %d): %w", hashtagID, err)
		}
		metrics.WeightUpdates.WithLabelValues("hashtag", direction(e.Weight)).Inc()
	}

	a.logger.Debug().
		Str("user_id", e.UserID.String()).
		Int("hashtags", len(e.HashtagIDs)).
		Int("delta", e.Weight).
		Msg("hashtag weights applied")
	return nil
}

func direction(delta int) string {
	if delta < 0 {
		return "decrease"
	}
	return "increase"
}
