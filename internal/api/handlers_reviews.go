// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/tomtom215/elmerbot/internal/reviews"
	"github.com/tomtom215/elmerbot/internal/validation"
)

// SearchResponse is the data of /reviews/search.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []reviews.Match `json:"results"`
}

// ProductResponse is the data of /reviews/{id}.
type ProductResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	// Average is the mean over rated reviews, null when none is rated.
	Average *float64         `json:"average"`
	Rated   int              `json:"rated"`
	Reviews []reviews.Record `json:"reviews"`
}

// ReviewSearch handles GET /api/v1/reviews/search?q=&limit=.
func (h *Handler) ReviewSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit, err := intQuery(r, "limit", reviews.DefaultSearchLimit)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	req := SearchRequest{Q: r.URL.Query().Get("q"), Limit: limit}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	results := h.store.Search(r.Context(), req.Q, req.Limit)
	if results == nil {
		results = []reviews.Match{}
	}
	respondSuccess(w, r, http.StatusOK, SearchResponse{Query: req.Q, Results: results}, start)
}

// ReviewProduct handles GET /api/v1/reviews/{id}.
func (h *Handler) ReviewProduct(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	records := h.store.Find(r.Context(), id)
	if len(records) == 0 {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "No whisky with that id", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, summarize(id, records), start)
}

// ReviewRecent handles GET /api/v1/reviews/{id}/recent?limit=.
func (h *Handler) ReviewRecent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, err := idParam(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	limit, err := intQuery(r, "limit", 5)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	req := RecentRequest{ID: id, Limit: limit}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, r, verr)
		return
	}

	records := h.store.Find(r.Context(), req.ID)
	if len(records) == 0 {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "No whisky with that id", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, reviews.Newest(records, req.Limit), start)
}

// ReviewStats handles GET /api/v1/reviews/stats.
func (h *Handler) ReviewStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	stats, err := h.store.Stats(r.Context())
	if errors.Is(err, reviews.ErrEmptyStatistics) {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "No rated reviews are loaded", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, ErrCodeInternalError, "Failed to compute statistics", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, stats, start)
}

// ReviewStatus handles GET /api/v1/reviews/status. It never triggers a load.
func (h *Handler) ReviewStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.store.Status(), time.Time{})
}

// ReviewRefresh handles POST /api/v1/reviews/refresh, bypassing the
// snapshot and the unchanged-content check.
func (h *Handler) ReviewRefresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), h.refreshTimeout)
	defer cancel()

	err := h.store.ForceRefresh(ctx)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, ErrCodeTimeout, "Refresh is still running", err)
		return
	case err != nil:
		respondError(w, r, http.StatusBadGateway, ErrCodeUpstreamFailed, "Failed to refresh review data", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, h.store.Status(), start)
}

func summarize(id int, records []reviews.Record) ProductResponse {
	resp := ProductResponse{ID: id, Name: records[0].Name, Reviews: records}
	sum := 0
	for _, rec := range records {
		if rec.HasRating() {
			sum += *rec.Rating
			resp.Rated++
		}
	}
	if resp.Rated > 0 {
		avg := math.Round(float64(sum)/float64(resp.Rated)*100) / 100
		resp.Average = &avg
	}
	return resp
}
