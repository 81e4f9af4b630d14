// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/pulsefeed/internal/event"
	"github.com/tomtom215/pulsefeed/internal/logging"
	"github.com/tomtom215/pulsefeed/internal/metrics"
	"github.com/tomtom215/pulsefeed/internal/store"
)

// Lookup is the read surface the relay needs for foreign key resolution.
type Lookup interface {
	PostAuthor(ctx context.Context, postID int64) (uuid.UUID, error)
	PostHashtagIDs(ctx context.Context, postID int64) ([]int64, error)
	Comment(ctx context.Context, commentID int64) (store.CommentRef, error)
	SubscriberIDs(ctx context.Context, authorID uuid.UUID) ([]uuid.UUID, error)
}

// Relay resolves intention ("pre_") events into fully-resolved events.
//
// Weight events go back to the inner topic for aggregation; notification
// events go to the outer topic for downstream services. A resolution
// miss (the referenced post or comment was deleted) terminates the
// message without an error: there is nothing left to weight or notify.
type Relay struct {
	lookup     Lookup
	publisher  EventPublisher
	innerTopic string
	outerTopic string
	logger     zerolog.Logger
}

// NewRelay creates a relay publishing to the given topics.
func NewRelay(lookup Lookup, publisher EventPublisher, innerTopic, outerTopic string) *Relay {
	return &Relay{
		lookup:     lookup,
		publisher:  publisher,
		innerTopic: innerTopic,
		outerTopic: outerTopic,
		logger:     logging.With().Str("component", "relay").Logger(),
	}
}

// Resolve dispatches a pre-event to its resolution handler.
func (r *Relay) Resolve(ctx context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case event.PreAuthorWeight:
		return r.resolveAuthorWeight(ctx, e)
	case event.PreHashtagsWeight:
		return r.resolveHashtagsWeight(ctx, e)
	case event.PreNewComment:
		return r.resolveNewComment(ctx, e)
	case event.PreNewPost:
		return r.resolveNewPost(ctx, e)
	case event.PreNewLike:
		return r.resolveNewLike(ctx, e)
	default:
		return fmt.Errorf("relay: unexpected event type %s", ev.EventType())
	}
}

func (r *Relay) resolveAuthorWeight(ctx context.Context, e event.PreAuthorWeight) error {
	authorID, err := r.lookup.PostAuthor(ctx, e.PostID)
	if err != nil {
		return r.missOrFail(e.EventType(), err)
	}

	resolved := event.AuthorWeight{
		UserID:   e.UserID,
		AuthorID: authorID,
		Weight:   e.Weight,
	}
	return r.publish(ctx, r.innerTopic, "inner", resolved)
}

func (r *Relay) resolveHashtagsWeight(ctx context.Context, e event.PreHashtagsWeight) error {
	ids, err := r.lookup.PostHashtagIDs(ctx, e.PostID)
	if err != nil {
		return r.missOrFail(e.EventType(), err)
	}
	if len(ids) == 0 {
		r.logger.Warn().
			Int64("post_id", e.PostID).
			Msg("post has no hashtags, dropping event")
		metrics.EventsDropped.WithLabelValues("unresolved").Inc()
		return nil
	}

	resolved := event.HashtagsWeight{
		UserID:     e.UserID,
		HashtagIDs: ids,
		Weight:     e.Weight,
	}
	return r.publish(ctx, r.innerTopic, "inner", resolved)
}

func (r *Relay) resolveNewComment(ctx context.Context, e event.PreNewComment) error {
	authorID, err := r.lookup.PostAuthor(ctx, e.PostID)
	if err != nil {
		return r.missOrFail(e.EventType(), err)
	}

	resolved := event.NewComment{
		AuthorID:  authorID,
		PostID:    e.PostID,
		CommentID: e.CommentID,
		UserID:    e.UserID,
	}
	return r.publish(ctx, r.outerTopic, "outer", resolved)
}

func (r *Relay) resolveNewPost(ctx context.Context, e event.PreNewPost) error {
	subscribers, err := r.lookup.SubscriberIDs(ctx, e.AuthorID)
	if err != nil {
		return r.missOrFail(e.EventType(), err)
	}
	if len(subscribers) == 0 {
		r.logger.Warn().
			Str("author_id", e.AuthorID.String()).
			Msg("author has no subscribers, dropping event")
		metrics.EventsDropped.WithLabelValues("unresolved").Inc()
		return nil
	}

	resolved := event.NewPost{
		PostID:         e.PostID,
		AuthorID:       e.AuthorID,
		SubscribersIDs: subscribers,
	}
	return r.publish(ctx, r.outerTopic, "outer", resolved)
}

func (r *Relay) resolveNewLike(ctx context.Context, e event.PreNewLike) error {
	var (
		postID   int64
		authorID uuid.UUID
	)

	switch e.TypeObject {
	case event.ObjectPost:
		postID = *e.PostID
		var err error
		authorID, err = r.lookup.PostAuthor(ctx, postID)
		if err != nil {
			return r.missOrFail(e.EventType(), err)
		}
	case event.ObjectComment:
		ref, err := r.lookup.Comment(ctx, *e.CommentID)
		if err != nil {
			return r.missOrFail(e.EventType(), err)
		}
		postID = ref.PostID
		authorID = ref.AuthorID
	}

	resolved := event.NewLike{
		TypeObject: e.TypeObject,
		UserID:     e.UserID,
		PostID:     postID,
		AuthorID:   authorID,
		CommentID:  e.CommentID,
	}
	return r.publish(ctx, r.outerTopic, "outer", resolved)
}

// missOrFail terminates the message on a resolution miss and propagates
// everything else for retry.
func (r *Relay) missOrFail(t event.Type, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		r.logger.Warn().
			Str("type", string(t)).
			Err(err).
			Msg("referenced entity gone, dropping event")
		metrics.EventsDropped.WithLabelValues("unresolved").Inc()
		return nil
	}
	return fmt.Errorf("resolve %s: %w", t, err)
}

func (r *Relay) publish(ctx context.Context, topic, channel string, ev event.Event) error {
	if err := r.publisher.PublishEvent(ctx, topic, ev); err != nil {
		return err
	}
	metrics.EventsPublished.WithLabelValues(channel, string(ev.EventType())).Inc()
	return nil
}
