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

// ApplyAuthorDelta adjusts the (user, author) affinity counter by delta,
// clamped so the stored weight never goes negative.
//
// The row is created lazily on the first positive delta; a negative or
// zero delta against a missing row creates nothing (the counter clamps
// at zero implicitly). Concurrent updates to the same pair serialize on
// the row lock taken by UPDATE, and the insert race between two first
// writers resolves through ON CONFLICT.
func (s *Store) ApplyAuthorDelta(ctx context.Context, userID, authorID uuid.UUID, delta int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE author_weights
		SET weight = GREATEST(0, weight + $3)
		WHERE user_id = $1 AND author_id = $2`,
		userID, authorID, delta,
	)
	if err != nil {
		return fmt.Errorf("update author weight: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("author weight rows affected: %w", err)
	}
	if rows > 0 || delta <= 0 {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO author_weights (user_id, author_id, weight)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, author_id)
		DO UPDATE SET weight = GREATEST(0, author_weights.weight + $3)`,
		userID, authorID, delta,
	); err != nil {
		return fmt.Errorf("insert author weight: %w", err)
	}
	return nil
}

// ApplyHashtagDelta adjusts the (user, hashtag) affinity counter by
// delta with the same clamp and creation semantics as ApplyAuthorDelta.
func (s *Store) ApplyHashtagDelta(ctx context.Context, userID uuid.UUID, hashtagID int64, delta int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE hashtag_weights
		SET weight = GREATEST(0, weight + $3)
		WHERE user_id = $1 AND hashtag_id = $2`,
		userID, hashtagID, delta,
	)
	if err != nil {
		return fmt.Errorf("update hashtag weight: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("hashtag weight rows affected: %w", err)
	}
	if rows > 0 || delta <= 0 {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO hashtag_weights (user_id, hashtag_id, weight)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, hashtag_id)
		DO UPDATE SET weight = GREATEST(0, hashtag_weights.weight + $3)`,
		userID, hashtagID, delta,
	); err != nil {
		return fmt.Errorf("insert hashtag weight: %w", err)
	}
	return nil
}

// AuthorWeight returns the stored weight for a (user, author) pair,
// or zero when no row exists.
func (s *Store) AuthorWeight(ctx context.Context, userID, authorID uuid.UUID) (int, error) {
	var weight int
	err := s.db.GetContext(ctx, &weight, `
		SELECT weight FROM author_weights
		WHERE user_id = $1 AND author_id = $2`,
		userID, authorID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select author weight: %w", err)
	}
	return weight, nil
}

// HashtagWeight returns the stored weight for a (user, hashtag) pair,
// or zero when no row exists.
func (s *Store) HashtagWeight(ctx context.Context, userID uuid.UUID, hashtagID int64) (int, error) {
	var weight int
	err := s.db.GetContext(ctx, &weight, `
		SELECT weight FROM hashtag_weights
		WHERE user_id = $1 AND hashtag_id = $2`,
		userID, hashtagID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select hashtag weight: %w", err)
	}
	return weight, nil
}

// HasHashtagSignal reports whether the user has at least one hashtag
// weight at or above minWeight. This gates feed personalization.
func (s *Store) HasHashtagSignal(ctx context.Context, userID uuid.UUID, minWeight int) (bool, error) {
	var found bool
	err := s.db.GetContext(ctx, &found, `
		SELECT EXISTS (
			SELECT 1 FROM hashtag_weights
			WHERE user_id = $1 AND weight >= $2
		)`,
		userID, minWeight,
	)
	if err != nil {
		return false, fmt.Errorf("check hashtag signal: %w", err)
	}
	return found, nil
}
