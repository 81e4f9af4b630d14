// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInitJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: false, Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("key", "value").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"key":"value"`) {
		t.Errorf("expected structured field in output, got %q", out)
	}
	if !strings.Contains(out, `"message":"hello"`) {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestWithAddsComponentField(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Timestamp: false, Output: &buf})
	defer Init(DefaultConfig())

	child := With().Str("component", "feed").Logger()
	child.Info().Msg("ranked")

	if !strings.Contains(buf.String(), `"component":"feed"`) {
		t.Errorf("expected component field, got %q", buf.String())
	}
}

func TestWatermillAdapterFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	adapter := NewWatermillAdapterWithLogger(logger)
	adapter.Info("consumed", map[string]interface{}{"topic": "feed.inner"})

	out := buf.String()
	if !strings.Contains(out, `"topic":"feed.inner"`) {
		t.Errorf("expected watermill field in output, got %q", out)
	}
	if !strings.Contains(out, "consumed") {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestWatermillAdapterWith(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	adapter := NewWatermillAdapterWithLogger(logger).With(map[string]interface{}{"handler": "aggregator"})
	adapter.Error("failed", nil, nil)

	if !strings.Contains(buf.String(), `"handler":"aggregator"`) {
		t.Errorf("expected inherited field, got %q", buf.String())
	}
}

func TestSlogHandlerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	slogger := slog.New(NewSlogHandlerWithLogger(logger))
	slogger.Info("service started", slog.String("service", "router"))

	out := buf.String()
	if !strings.Contains(out, `"service":"router"`) {
		t.Errorf("expected slog attr as zerolog field, got %q", out)
	}
	if !strings.Contains(out, "service started") {
		t.Errorf("expected message, got %q", out)
	}
}

func TestSlogHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	slogger := slog.New(NewSlogHandlerWithLogger(logger)).WithGroup("supervisor")
	slogger.Warn("restarting", slog.String("service", "dispatcher"))

	if !strings.Contains(buf.String(), `"supervisor.service":"dispatcher"`) {
		t.Errorf("expected group-prefixed field, got %q", buf.String())
	}
}
