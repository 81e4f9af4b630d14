// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

// Package ingest emits interaction events into the pipeline on behalf
// of the CRUD surfaces. It owns the bonus magnitudes: a like and its
// matching dislike carry the same magnitude with opposite signs, so a
// like/dislike or subscribe/unsubscribe cycle settles the affected
// counters back where they started.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/pulsefeed/internal/config"
	"github.com/tomtom215/pulsefeed/internal/event"
	"github.com/tomtom215/pulsefeed/internal/logging"
)

// Publisher is the publish surface the emitter needs.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, ev event.Event) error
}

// Emitter translates user actions into pipeline events.
type Emitter struct {
	publisher  Publisher
	innerTopic string
	outerTopic string
	bonus      config.BonusConfig
	logger     zerolog.Logger
}

// NewEmitter creates an emitter with the configured bonus magnitudes.
func NewEmitter(publisher Publisher, innerTopic, outerTopic string, bonus config.BonusConfig) *Emitter {
	return &Emitter{
		publisher:  publisher,
		innerTopic: innerTopic,
		outerTopic: outerTopic,
		bonus:      bonus,
		logger:     logging.With().Str("component", "ingest").Logger(),
	}
}

// LikePost records a like on a post: author and hashtag affinities go
// up and a like notification is queued for resolution.
func (e *Emitter) LikePost(ctx context.Context, userID uuid.UUID, postID int64) error {
	if err := e.publishWeights(ctx, userID, postID, e.bonus.Like, e.bonus.Hashtag); err != nil {
		return err
	}
	return e.inner(ctx, event.PreNewLike{
		UserID:     userID,
		TypeObject: event.ObjectPost,
		PostID:     &postID,
	})
}

// DislikePost withdraws a like on a post, reversing its weight deltas.
func (e *Emitter) DislikePost(ctx context.Context, userID uuid.UUID, postID int64) error {
	return e.publishWeights(ctx, userID, postID, -e.bonus.Like, -e.bonus.Hashtag)
}

// LikeComment records a like on a comment.
func (e *Emitter) LikeComment(ctx context.Context, userID uuid.UUID, commentID int64) error {
	return e.inner(ctx, event.PreNewLike{
		UserID:     userID,
		TypeObject: event.ObjectComment,
		CommentID:  &commentID,
	})
}

// CommentCreated records a new comment: the post's author gains author
// affinity from the commenter, and downstream services are notified
// once the author resolves.
func (e *Emitter) CommentCreated(ctx context.Context, userID uuid.UUID, postID, commentID int64) error {
	if err := e.inner(ctx, event.PreAuthorWeight{
		UserID: userID,
		PostID: postID,
		Weight: e.bonus.Like,
	}); err != nil {
		return err
	}
	return e.inner(ctx, event.PreNewComment{
		UserID:    userID,
		PostID:    postID,
		CommentID: commentID,
	})
}

// PostCreated queues subscriber fan-out for a freshly published post.
func (e *Emitter) PostCreated(ctx context.Context, postID int64, authorID uuid.UUID) error {
	return e.inner(ctx, event.PreNewPost{
		PostID:   postID,
		AuthorID: authorID,
	})
}

// Subscribe records a subscription. The author is already known, so the
// weight event skips resolution and goes straight to aggregation.
func (e *Emitter) Subscribe(ctx context.Context, subscriberID, authorID uuid.UUID) error {
	if err := e.inner(ctx, event.AuthorWeight{
		UserID:   subscriberID,
		AuthorID: authorID,
		Weight:   e.bonus.Subscribe,
	}); err != nil {
		return err
	}
	return e.outer(ctx, event.NewSubscriber{
		AuthorID:     authorID,
		SubscriberID: subscriberID,
	})
}

// Unsubscribe withdraws a subscription's weight bonus.
func (e *Emitter) Unsubscribe(ctx context.Context, subscriberID, authorID uuid.UUID) error {
	return e.inner(ctx, event.AuthorWeight{
		UserID:   subscriberID,
		AuthorID: authorID,
		Weight:   -e.bonus.Subscribe,
	})
}

// publishWeights emits the author and hashtag intention events for a
// post interaction.
func (e *Emitter) publishWeights(ctx context.Context, userID uuid.UUID, postID int64, authorDelta, hashtagDelta int) error {
	if err := e.inner(ctx, event.PreAuthorWeight{
		UserID: userID,
		PostID: postID,
		Weight: authorDelta,
	}); err != nil {
		return err
	}
	return e.inner(ctx, event.PreHashtagsWeight{
		UserID: userID,
		PostID: postID,
		Weight: hashtagDelta,
	})
}

func (e *Emitter) inner(ctx context.Context, ev event.Event) error {
	if err := e.publisher.PublishEvent(ctx, e.innerTopic, ev); err != nil {
		return fmt.Errorf("emit %s: %w", ev.EventType(), err)
	}
	return nil
}

func (e *Emitter) outer(ctx context.Context, ev event.Event) error {
	if err := e.publisher.PublishEvent(ctx, e.outerTopic, ev); err != nil {
		return fmt.Errorf("emit %s: %w", ev.EventType(), err)
	}
	return nil
}
