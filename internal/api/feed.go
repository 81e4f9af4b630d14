// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/tomtom215/pulsefeed/internal/feed"
)

// FeedComposer is the feed query surface the API needs.
type FeedComposer interface {
	Personalized(ctx context.Context, userID uuid.UUID, page, limit int) (feed.Page, error)
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// handleFeed serves GET /api/v1/feed.
//
// Query parameters: user_id (UUID, optional; anonymous requests get the
// chronological feed), page (1-based, default 1), limit (default and cap
// are configured on the composer). Out-of-range pages return an empty
// page, not an error.
func handleFeed(feeds FeedComposer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		userID := uuid.Nil
		if raw := q.Get("user_id"); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{
					Error: "user_id must be a valid UUID",
				})
				return
			}
			userID = parsed
		}

		page, ok := intParam(q.Get("page"), 1)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "page must be a positive integer",
			})
			return
		}
		limit, ok := intParam(q.Get("limit"), 0)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Error: "limit must be a positive integer",
			})
			return
		}

		result, err := feeds.Personalized(r.Context(), userID, page, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error: "failed to compose feed",
			})
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// intParam parses a positive integer query parameter, returning def
// when absent and ok=false when present but invalid.
func intParam(raw string, def int) (int, bool) {
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
