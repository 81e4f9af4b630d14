// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Post is a feed candidate row.
type Post struct {
	ID        int64     `db:"id" json:"id"`
	AuthorID  uuid.UUID `db:"user_id" json:"author_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// Ranking terms, zero for chronological reads.
	AuthorWeight     int `db:"author_weight" json:"-"`
	HashtagWeightSum int `db:"hashtag_weight_sum" json:"-"`
}

// CountPosts returns the total number of feed candidates.
func (s *Store) CountPosts(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

// FetchChronological returns a page of posts in reverse-chronological
// order. The id tie-break keeps pagination stable for posts created in
// the same instant.
func (s *Store) FetchChronological(ctx context.Context, limit, offset int) ([]Post, error) {
	var posts []Post
	err := s.db.SelectContext(ctx, &posts, `
		SELECT id, user_id, title, content, created_at,
		       0 AS author_weight, 0 AS hashtag_weight_sum
		FROM posts
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch chronological feed: %w", err)
	}
	return posts, nil
}

// personalizedFilter selects posts where the requesting user's author
// weight or summed hashtag weight clears its threshold. GROUP BY p.id
// is sufficient in Postgres (primary key functional dependency); aw.weight
// is included for the HAVING clause.
const personalizedFilter = `
	FROM posts p
	LEFT JOIN author_weights aw
		ON aw.user_id = $1 AND aw.author_id = p.user_id
	LEFT JOIN post_hashtags ph
		ON ph.post_id = p.id
	LEFT JOIN hashtag_weights hw
		ON hw.user_id = $1 AND hw.hashtag_id = ph.hashtag_id
	GROUP BY p.id, aw.weight
	HAVING COALESCE(aw.weight, 0) >= $2
	    OR COALESCE(SUM(hw.weight), 0) >= $3`

// CountPersonalized returns the number of posts passing the
// personalization thresholds for the user.
func (s *Store) CountPersonalized(ctx context.Context, userID uuid.UUID, minAuthorWeight, minHashtagSum int) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM (SELECT p.id`+personalizedFilter+`) AS candidates`,
		userID, minAuthorWeight, minHashtagSum,
	)
	if err != nil {
		return 0, fmt.Errorf("count personalized feed: %w", err)
	}
	return count, nil
}

// FetchPersonalized returns a page of posts ranked by descending
// composite score (author weight plus summed hashtag weight), with
// recency and id as tie-breaks for stable pagination.
func (s *Store) FetchPersonalized(ctx context.Context, userID uuid.UUID, minAuthorWeight, minHashtagSum, limit, offset int) ([]Post, error) {
	var posts []Post
	err := s.db.SelectContext(ctx, &posts, `
	SELECT p.id, p.user_id, p.title, p.content, p.created_at,
	       COALESCE(aw.weight, 0) AS author_weight,
	       COALESCE(SUM(hw.weight), 0) AS hashtag_weight_sum`+
		personalizedFilter+`
	ORDER BY COALESCE(aw.weight, 0) + COALESCE(SUM(hw.weight), 0) DESC,
	         p.created_at DESC,
	         p.id DESC
	LIMIT $4 OFFSET $5`,
		userID, minAuthorWeight, minHashtagSum, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch personalized feed: %w", err)
	}
	return posts, nil
}
