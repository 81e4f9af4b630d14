// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package feed

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/pulsefeed/internal/config"
	"github.com/tomtom215/pulsefeed/internal/store"
)

// fakeStore serves feed queries from an in-memory post set.
type fakeStore struct {
	posts     []store.Post // personalized candidates, pre-ranked
	allPosts  []store.Post // chronological candidates
	hasSignal bool
	err       error

	chronoCalls int
	rankedCalls int
}

func (f *fakeStore) HasHashtagSignal(_ context.Context, _ uuid.UUID, _ int) (bool, error) {
	return f.hasSignal, f.err
}

func (f *fakeStore) CountPosts(_ context.Context) (int, error) {
	return len(f.allPosts), f.err
}

func (f *fakeStore) FetchChronological(_ context.Context, limit, offset int) ([]store.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.chronoCalls++
	sorted := make([]store.Post, len(f.allPosts))
	copy(sorted, f.allPosts)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	return slicePage(sorted, limit, offset), nil
}

func (f *fakeStore) CountPersonalized(_ context.Context, _ uuid.UUID, _, _ int) (int, error) {
	return len(f.posts), f.err
}

func (f *fakeStore) FetchPersonalized(_ context.Context, _ uuid.UUID, _, _, limit, offset int) ([]store.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.rankedCalls++
	return slicePage(f.posts, limit, offset), nil
}

func slicePage(posts []store.Post, limit, offset int) []store.Post {
	if offset >= len(posts) {
		return []store.Post{}
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}

func feedConfig() config.FeedConfig {
	return config.FeedConfig{
		MinHashtagWeight: 30,
		MinAuthorWeight:  5,
		MinHashtagSum:    15,
		DefaultLimit:     10,
		MaxLimit:         100,
	}
}

func makePosts(n int) []store.Post {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	posts := make([]store.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, store.Post{
			ID:        int64(i + 1),
			AuthorID:  uuid.New(),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return posts
}

func TestColdStartFallsBackToChronological(t *testing.T) {
	fs := &fakeStore{allPosts: makePosts(5), hasSignal: false}
	c := NewComposer(fs, feedConfig())

	page, err := c.Personalized(context.Background(), uuid.New(), 1, 10)
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}

	if fs.rankedCalls != 0 {
		t.Error("expected no personalized query for cold-start user")
	}
	if fs.chronoCalls != 1 {
		t.Error("expected chronological query for cold-start user")
	}

	// Strictly descending creation time.
	for i := 1; i < len(page.Posts); i++ {
		if page.Posts[i].CreatedAt.After(page.Posts[i-1].CreatedAt) {
			t.Errorf("posts out of order at %d: %v after %v",
				i, page.Posts[i].CreatedAt, page.Posts[i-1].CreatedAt)
		}
	}
}

func TestAnonymousUserGetsChronological(t *testing.T) {
	fs := &fakeStore{allPosts: makePosts(3), hasSignal: true}
	c := NewComposer(fs, feedConfig())

	_, err := c.Personalized(context.Background(), uuid.Nil, 1, 10)
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}
	if fs.rankedCalls != 0 {
		t.Error("anonymous request must not hit the personalized path")
	}
}

func TestPersonalizedPathUsedAboveGate(t *testing.T) {
	fs := &fakeStore{posts: makePosts(4), hasSignal: true}
	c := NewComposer(fs, feedConfig())

	page, err := c.Personalized(context.Background(), uuid.New(), 1, 10)
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}
	if fs.rankedCalls != 1 {
		t.Error("expected personalized query")
	}
	if len(page.Posts) != 4 {
		t.Errorf("len(Posts) = %d, want 4", len(page.Posts))
	}
}

func TestPaginationTwentyOnePostsPageSizeTen(t *testing.T) {
	fs := &fakeStore{posts: makePosts(21), hasSignal: true}
	c := NewComposer(fs, feedConfig())
	user := uuid.New()

	wantSizes := map[int]int{1: 10, 2: 10, 3: 1}
	for page, want := range wantSizes {
		got, err := c.Personalized(context.Background(), user, page, 10)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(got.Posts) != want {
			t.Errorf("page %d: len = %d, want %d", page, len(got.Posts), want)
		}
		if got.CountPages != 3 {
			t.Errorf("page %d: CountPages = %d, want 3", page, got.CountPages)
		}
	}
}

func TestPaginationCoversEachPostExactlyOnce(t *testing.T) {
	fs := &fakeStore{posts: makePosts(21), hasSignal: true}
	c := NewComposer(fs, feedConfig())
	user := uuid.New()

	seen := make(map[int64]int)
	for page := 1; page <= 3; page++ {
		got, err := c.Personalized(context.Background(), user, page, 10)
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		for _, p := range got.Posts {
			seen[p.ID]++
		}
	}

	if len(seen) != 21 {
		t.Fatalf("saw %d distinct posts, want 21", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("post %d appeared %d times", id, n)
		}
	}
}

func TestPageBeyondEndReturnsEmptyWithCount(t *testing.T) {
	fs := &fakeStore{posts: makePosts(21), hasSignal: true}
	c := NewComposer(fs, feedConfig())

	page, err := c.Personalized(context.Background(), uuid.New(), 9, 10)
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}
	if len(page.Posts) != 0 {
		t.Errorf("len(Posts) = %d, want 0", len(page.Posts))
	}
	if page.CountPages != 3 {
		t.Errorf("CountPages = %d, want 3", page.CountPages)
	}
	if fs.rankedCalls != 0 {
		t.Error("expected no fetch for a page past the end")
	}
}

func TestEmptyCandidateSet(t *testing.T) {
	fs := &fakeStore{hasSignal: false}
	c := NewComposer(fs, feedConfig())

	page, err := c.Personalized(context.Background(), uuid.New(), 1, 10)
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}
	if len(page.Posts) != 0 || page.CountPages != 0 {
		t.Errorf("got %d posts, %d pages, want 0 and 0", len(page.Posts), page.CountPages)
	}
}

func TestStoreErrorPropagates(t *testing.T) {
	wantErr := errors.New("connection refused")
	fs := &fakeStore{err: wantErr}
	c := NewComposer(fs, feedConfig())

	_, err := c.Personalized(context.Background(), uuid.New(), 1, 10)
	if !errors.Is(err, wantErr) {
		t.Errorf("Personalized() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestLimitClamping(t *testing.T) {
	c := NewComposer(&fakeStore{}, feedConfig())

	tests := []struct {
		limit int
		want  int
	}{
		{0, 10},
		{-5, 10},
		{25, 25},
		{1000, 100},
	}
	for _, tt := range tests {
		if got := c.clampLimit(tt.limit); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{21, 10, 3},
		{100, 10, 10},
	}
	for _, tt := range tests {
		if got := pageCount(tt.total, tt.limit); got != tt.want {
			t.Errorf("pageCount(%d, %d) = %d, want %d", tt.total, tt.limit, got, tt.want)
		}
	}
}
