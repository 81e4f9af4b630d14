// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound marks a resolution miss: the referenced entity no longer
// exists. The relay treats this as terminal for the message, never as
// a reason to retry.
var ErrNotFound = errors.New("not found")

// CommentRef identifies a comment's parent post and author.
type CommentRef struct {
	PostID   int64     `db:"post_id"`
	AuthorID uuid.UUID `db:"user_id"`
}

// PostAuthor returns the author of a post, or ErrNotFound when the post
// has been deleted.
func (s *Store) PostAuthor(ctx context.Context, postID int64) (uuid.UUID, error) {
	var authorID uuid.UUID
	err := s.db.GetContext(ctx, &authorID, `
		SELECT user_id FROM posts WHERE id = $1`,
		postID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("select post author: %w", err)
	}
	return authorID, nil
}

// PostHashtagIDs returns the hashtag ids attached to a post. An empty
// slice means the post exists but carries no hashtags, or was deleted;
// either way there is nothing to weight.
func (s *Store) PostHashtagIDs(ctx context.Context, postID int64) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, `
		SELECT hashtag_id FROM post_hashtags WHERE post_id = $1`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("select post hashtags: %w", err)
	}
	return ids, nil
}

// Comment returns the parent post and author of a comment, or
// ErrNotFound when the comment has been deleted.
func (s *Store) Comment(ctx context.Context, commentID int64) (CommentRef, error) {
	var ref CommentRef
	err := s.db.GetContext(ctx, &ref, `
		SELECT post_id, user_id FROM comments WHERE id = $1`,
		commentID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return CommentRef{}, fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
	}
	if err != nil {
		return CommentRef{}, fmt.Errorf("select comment: %w", err)
	}
	return ref, nil
}

// SubscriberIDs returns the ids of users subscribed to an author.
func (s *Store) SubscriberIDs(ctx context.Context, authorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.SelectContext(ctx, &ids, `
		SELECT user_id FROM subscriptions WHERE author_id = $1`,
		authorID,
	)
	if err != nil {
		return nil, fmt.Errorf("select subscribers: %w", err)
	}
	return ids, nil
}
