// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

// Package metrics provides Prometheus instrumentation for the event
// pipeline and the feed read path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsProcessed counts messages handled to completion, by event type.
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_events_processed_total",
			Help: "Total number of events processed successfully",
		},
		[]string{"type"},
	)

	// EventsDropped counts messages acked without effect, by reason:
	// unknown_type, malformed, unresolved.
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_events_dropped_total",
			Help: "Total number of events dropped without aggregation",
		},
		[]string{"reason"},
	)

	// EventsFailed counts handler errors surfaced to the router for
	// retry or poison routing, by event type.
	EventsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_events_failed_total",
			Help: "Total number of handler failures (retried or poisoned)",
		},
		[]string{"type"},
	)

	// WeightUpdates counts applied weight deltas, by counter kind
	// (author, hashtag) and sign (increase, decrease).
	WeightUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_weight_updates_total",
			Help: "Total number of affinity counter updates applied",
		},
		[]string{"kind", "direction"},
	)

	// EventsPublished counts resolved events emitted by the relay,
	// by destination topic class (inner, outer).
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_events_published_total",
			Help: "Total number of resolved events published",
		},
		[]string{"channel", "type"},
	)

	// FeedQueryDuration observes feed composition latency by mode
	// (personalized, chronological).
	FeedQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsefeed_feed_query_duration_seconds",
			Help:    "Duration of feed composition queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	// HTTPRequestDuration observes API latency by route and status.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsefeed_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "status"},
	)
)
