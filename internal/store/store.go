// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

// Package store is the relational persistence layer: the per-user
// affinity counters (author and hashtag weights), the read-only lookups
// used by the enrichment relay, and the ranked feed queries.
//
// The weight tables are owned by this service; posts, comments,
// hashtags and subscriptions are owned by the CRUD services and only
// read here.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

// Config holds connection pool settings.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store wraps the Postgres connection pool.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing connection. Useful for tests.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// weight table DDL. The remaining tables (posts, post_hashtags,
// comments, subscriptions) are created by the CRUD services' migrations.
const schema = `
CREATE TABLE IF NOT EXISTS author_weights (
	user_id   UUID    NOT NULL,
	author_id UUID    NOT NULL,
	weight    INTEGER NOT NULL DEFAULT 0 CHECK (weight >= 0),
	PRIMARY KEY (user_id, author_id)
);

CREATE TABLE IF NOT EXISTS hashtag_weights (
	user_id    UUID    NOT NULL,
	hashtag_id BIGINT  NOT NULL,
	weight     INTEGER NOT NULL DEFAULT 0 CHECK (weight >= 0),
	PRIMARY KEY (user_id, hashtag_id)
);
`

// EnsureSchema creates the weight tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure weight schema: %w", err)
	}
	return nil
}
