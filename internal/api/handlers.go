// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/elmerbot/internal/reviews"
)

// ReviewService is the part of the review store the API exposes.
type ReviewService interface {
	Populated() bool
	Status() reviews.Status
	Search(ctx context.Context, pattern string, limit int) []reviews.Match
	Find(ctx context.Context, id int) []reviews.Record
	Stats(ctx context.Context) (reviews.Stats, error)
	ForceRefresh(ctx context.Context) error
}

// ReadinessCheck reports whether one component can serve traffic.
type ReadinessCheck func() bool

// Handler contains dependencies for API handlers.
type Handler struct {
	store          ReviewService
	startTime      time.Time
	refreshTimeout time.Duration

	mu     sync.RWMutex
	checks map[string]ReadinessCheck
}

// NewHandler creates a handler. The review store is always a readiness
// check; more can be added with AddReadinessCheck.
func NewHandler(store ReviewService, refreshTimeout time.Duration) *Handler {
	if refreshTimeout <= 0 {
		refreshTimeout = time.Minute
	}
	h := &Handler{
		store:          store,
		startTime:      time.Now(),
		refreshTimeout: refreshTimeout,
		checks:         make(map[string]ReadinessCheck),
	}
	h.AddReadinessCheck("reviews", store.Populated)
	return h
}

// AddReadinessCheck registers check under name, replacing any previous one.
func (h *Handler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// readiness runs every check and reports all results.
func (h *Handler) readiness() (map[string]bool, bool) {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	checks := make([]ReadinessCheck, len(names))
	for i, name := range names {
		checks[i] = h.checks[name]
	}
	h.mu.RUnlock()

	results := make(map[string]bool, len(names))
	ready := true
	for i, name := range names {
		ok := checks[i]()
		results[name] = ok
		ready = ready && ok
	}
	return results, ready
}
