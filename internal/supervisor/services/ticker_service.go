// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package services

import (
	"context"
	"time"
)

// TickerService supervises a blocking maintenance loop such as a cache
// sweeper or a value-log GC. The loop must return when ctx is canceled.
type TickerService struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context, interval time.Duration)
}

func NewTickerService(name string, interval time.Duration, run func(context.Context, time.Duration)) *TickerService {
	return &TickerService{name: name, interval: interval, run: run}
}

func (s *TickerService) Serve(ctx context.Context) error {
	s.run(ctx, s.interval)
	return ctx.Err()
}

func (s *TickerService) String() string { return s.name }
