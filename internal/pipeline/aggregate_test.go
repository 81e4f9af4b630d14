// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/pulsefeed/internal/event"
)

type authorKey struct {
	user, author uuid.UUID
}

type hashtagKey struct {
	user    uuid.UUID
	hashtag int64
}

// fakeWeights clamps counters at zero like the real store.
type fakeWeights struct {
	authors  map[authorKey]int
	hashtags map[hashtagKey]int
	failAt   int64 // hashtag id that errors, 0 for none
}

func newFakeWeights() *fakeWeights {
	return &fakeWeights{
		authors:  make(map[authorKey]int),
		hashtags: make(map[hashtagKey]int),
	}
}

func (f *fakeWeights) ApplyAuthorDelta(_ context.Context, userID, authorID uuid.UUID, delta int) error {
	k := authorKey{userID, authorID}
	w := f.authors[k] + delta
	if w < 0 {
		w = 0
	}
	if _, exists := f.authors[k]; !exists && delta <= 0 {
		return nil
	}
	f.authors[k] = w
	return nil
}

func (f *fakeWeights) ApplyHashtagDelta(_ context.Context, userID uuid.UUID, hashtagID int64, delta int) error {
	if f.failAt != 0 && hashtagID == f.failAt {
		return errors.New("deadlock detected")
	}
	k := hashtagKey{userID, hashtagID}
	w := f.hashtags[k] + delta
	if w < 0 {
		w = 0
	}
	if _, exists := f.hashtags[k]; !exists && delta <= 0 {
		return nil
	}
	f.hashtags[k] = w
	return nil
}

func TestAggregatorAppliesAuthorWeight(t *testing.T) {
	user, author := uuid.New(), uuid.New()
	weights := newFakeWeights()
	agg := NewAggregator(weights)

	for i := 0; i < 3; i++ {
		err := agg.Apply(context.Background(), event.AuthorWeight{
			UserID:   user,
			AuthorID: author,
			Weight:   100,
		})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
	}

	if got := weights.authors[authorKey{user, author}]; got != 300 {
		t.Errorf("author weight = %d, want 300", got)
	}
}

func TestAggregatorClampsAtZero(t *testing.T) {
	user, author := uuid.New(), uuid.New()
	weights := newFakeWeights()
	weights.authors[authorKey{user, author}] = 1
	agg := NewAggregator(weights)

	err := agg.Apply(context.Background(), event.AuthorWeight{
		UserID:   user,
		AuthorID: author,
		Weight:   -100,
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if got := weights.authors[authorKey{user, author}]; got != 0 {
		t.Errorf("author weight = %d, want 0 after clamp", got)
	}
}

func TestAggregatorAppliesEachHashtag(t *testing.T) {
	user := uuid.New()
	weights := newFakeWeights()
	agg := NewAggregator(weights)

	err := agg.Apply(context.Background(), event.HashtagsWeight{
		UserID:     user,
		HashtagIDs: []int64{1, 2, 3},
		Weight:     1,
	})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	for _, id := range []int64{1, 2, 3} {
		if got := weights.hashtags[hashtagKey{user, id}]; got != 1 {
			t.Errorf("hashtag %d weight = %d, want 1", id, got)
		}
	}
}

func TestAggregatorHashtagFailureStopsAndErrors(t *testing.T) {
	user := uuid.New()
	weights := newFakeWeights()
	weights.failAt = 2
	agg := NewAggregator(weights)

	err := agg.Apply(context.Background(), event.HashtagsWeight{
		UserID:     user,
		HashtagIDs: []int64{1, 2, 3},
		Weight:     1,
	})
	if err == nil {
		t.Fatal("Apply() error = nil, want failure")
	}

	// The first hashtag was applied before the failure, the last never.
	if got := weights.hashtags[hashtagKey{user, 1}]; got != 1 {
		t.Errorf("hashtag 1 weight = %d, want 1", got)
	}
	if got := weights.hashtags[hashtagKey{user, 3}]; got != 0 {
		t.Errorf("hashtag 3 weight = %d, want 0", got)
	}
}

func TestAggregatorLikeDislikeCycleSettles(t *testing.T) {
	user, author := uuid.New(), uuid.New()
	weights := newFakeWeights()
	weights.authors[authorKey{user, author}] = 10
	agg := NewAggregator(weights)

	ctx := context.Background()
	if err := agg.Apply(ctx, event.AuthorWeight{UserID: user, AuthorID: author, Weight: 1}); err != nil {
		t.Fatal(err)
	}
	if err := agg.Apply(ctx, event.AuthorWeight{UserID: user, AuthorID: author, Weight: -1}); err != nil {
		t.Fatal(err)
	}

	if got := weights.authors[authorKey{user, author}]; got != 10 {
		t.Errorf("author weight = %d, want 10 after like+dislike", got)
	}
}

func TestAggregatorRejectsUnexpectedEvent(t *testing.T) {
	agg := NewAggregator(newFakeWeights())

	err := agg.Apply(context.Background(), event.NewSubscriber{
		AuthorID:     uuid.New(),
		SubscriberID: uuid.New(),
	})
	if err == nil {
		t.Error("Apply() error = nil, want error for non-weight event")
	}
}
