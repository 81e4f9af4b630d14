// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

// Package feed composes the ranked, paginated feed for a requesting
// user. Ranking consults the affinity counters maintained by the event
// pipeline; a user without sufficient personalization data falls back
// to reverse-chronological ordering (cold start).
package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/pulsefeed/internal/config"
	"github.com/tomtom215/pulsefeed/internal/logging"
	"github.com/tomtom215/pulsefeed/internal/metrics"
	"github.com/tomtom215/pulsefeed/internal/store"
)

// Store is the read surface the composer needs from the persistence layer.
type Store interface {
	HasHashtagSignal(ctx context.Context, userID uuid.UUID, minWeight int) (bool, error)
	CountPosts(ctx context.Context) (int, error)
	FetchChronological(ctx context.Context, limit, offset int) ([]store.Post, error)
	CountPersonalized(ctx context.Context, userID uuid.UUID, minAuthorWeight, minHashtagSum int) (int, error)
	FetchPersonalized(ctx context.Context, userID uuid.UUID, minAuthorWeight, minHashtagSum, limit, offset int) ([]store.Post, error)
}

// Page is one page of the composed feed.
type Page struct {
	Posts      []store.Post `json:"posts"`
	CountPages int          `json:"count_pages"`
}

// Composer builds feed pages.
type Composer struct {
	store  Store
	cfg    config.FeedConfig
	logger zerolog.Logger
}

// NewComposer creates a feed composer with the given thresholds.
func NewComposer(st Store, cfg config.FeedConfig) *Composer {
	return &Composer{
		store:  st,
		cfg:    cfg,
		logger: logging.With().Str("component", "feed").Logger(),
	}
}

// Personalized returns one page of the user's feed.
//
// Personalization requires the user to have at least one hashtag weight
// clearing cfg.MinHashtagWeight; below that gate (or for an anonymous
// request) the feed is the full candidate set in reverse-chronological
// order. A page past the end yields an empty page with the correct
// total page count, not an error.
func (c *Composer) Personalized(ctx context.Context, userID uuid.UUID, page, limit int) (Page, error) {
	if page < 1 {
		page = 1
	}
	limit = c.clampLimit(limit)

	personalized := false
	if userID != uuid.Nil {
		var err error
		personalized, err = c.store.HasHashtagSignal(ctx, userID, c.cfg.MinHashtagWeight)
		if err != nil {
			return Page{}, fmt.Errorf("personalization gate: %w", err)
		}
	}

	start := time.Now()
	if !personalized {
		p, err := c.chronological(ctx, page, limit)
		metrics.FeedQueryDuration.WithLabelValues("chronological").Observe(time.Since(start).Seconds())
		return p, err
	}

	p, err := c.ranked(ctx, userID, page, limit)
	metrics.FeedQueryDuration.WithLabelValues("personalized").Observe(time.Since(start).Seconds())
	return p, err
}

// chronological is the cold-start path: strict reverse-chronological
// order over all candidates.
func (c *Composer) chronological(ctx context.Context, page, limit int) (Page, error) {
	total, err := c.store.CountPosts(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("compose chronological feed: %w", err)
	}

	countPages := pageCount(total, limit)
	offset := (page - 1) * limit
	if offset >= total {
		return Page{Posts: []store.Post{}, CountPages: countPages}, nil
	}

	posts, err := c.store.FetchChronological(ctx, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("compose chronological feed: %w", err)
	}
	return Page{Posts: posts, CountPages: countPages}, nil
}

// ranked is the personalized path: candidates clearing the author or
// hashtag thresholds, ordered by descending composite score with
// recency as tie-break.
func (c *Composer) ranked(ctx context.Context, userID uuid.UUID, page, limit int) (Page, error) {
	total, err := c.store.CountPersonalized(ctx, userID, c.cfg.MinAuthorWeight, c.cfg.MinHashtagSum)
	if err != nil {
		return Page{}, fmt.Errorf("compose personalized feed: %w", err)
	}

	countPages := pageCount(total, limit)
	offset := (page - 1) * limit
	if offset >= total {
		return Page{Posts: []store.Post{}, CountPages: countPages}, nil
	}

	posts, err := c.store.FetchPersonalized(ctx, userID, c.cfg.MinAuthorWeight, c.cfg.MinHashtagSum, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("compose personalized feed: %w", err)
	}

	c.logger.Debug().
		Str("user_id", userID.String()).
		Int("page", page).
		Int("count_pages", countPages).
		Msg("personalized feed composed")

	return Page{Posts: posts, CountPages: countPages}, nil
}

// clampLimit applies the default and maximum page sizes.
func (c *Composer) clampLimit(limit int) int {
	if limit <= 0 {
		return c.cfg.DefaultLimit
	}
	if limit > c.cfg.MaxLimit {
		return c.cfg.MaxLimit
	}
	return limit
}

// pageCount is ceil(total/limit); zero candidates yield zero pages.
func pageCount(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
