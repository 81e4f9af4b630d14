// Pulsefeed - Personalized News Feed Event Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pulsefeed

package supervisor

import (
	"context"
	"errors"
	"net/http"
)

// Runner is a blocking service that honors context cancellation.
// The Watermill router satisfies this directly.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerService adapts a Runner to suture.Service.
type RunnerService struct {
	name   string
	runner Runner
}

// NewRunnerService wraps a Runner for supervision.
func NewRunnerService(name string, runner Runner) *RunnerService {
	return &RunnerService{name: name, runner: runner}
}

// Serve runs the wrapped service until the context is canceled.
func (s *RunnerService) Serve(ctx context.Context) error {
	if err := s.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *RunnerService) String() string { return s.name }

// HTTPServer is the serving surface of the API server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService adapts the HTTP server to suture.Service with graceful
// drain on cancellation.
type HTTPService struct {
	name   string
	server HTTPServer
}

// NewHTTPService wraps an HTTP server for supervision.
func NewHTTPService(name string, server HTTPServer) *HTTPService {
	return &HTTPService{name: name, server: server}
}

// Serve runs the server, draining it when the context is canceled.
// http.ErrServerClosed after a deliberate shutdown is not a failure.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		if err := s.server.Shutdown(context.Background()); err != nil {
			return err
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *HTTPService) String() string { return s.name }
