// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/elmerbot/internal/logging"
)

// Refresher loads the review dataset.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// WarmUpService loads the review data once at startup so the first command
// does not pay for the download. Failed loads are retried by the
// supervisor; success retires the service.
type WarmUpService struct {
	store   Refresher
	timeout time.Duration
}

// NewWarmUpService bounds each attempt by timeout; zero means no bound.
func NewWarmUpService(store Refresher, timeout time.Duration) *WarmUpService {
	return &WarmUpService{store: store, timeout: timeout}
}

func (s *WarmUpService) Serve(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.store.Refresh(ctx); err != nil {
		return fmt.Errorf("review warm-up: %w", err)
	}
	logging.Info().Dur("took", time.Since(start)).Msg("Review data warmed up")
	return suture.ErrDoNotRestart
}

func (s *WarmUpService) String() string { return "review-warmup" }
