// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package api

import (
	"net/http"
	"time"
)

// HealthLive answers liveness probes. It never touches dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Time{})
}

// HealthReady answers readiness probes: 503 until the review data is loaded
// and every other registered check passes.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	checks, ready := h.readiness()
	data := map[string]any{
		"ready":  ready,
		"checks": checks,
	}
	if !ready {
		respondJSON(w, http.StatusServiceUnavailable, &APIResponse{
			Status:   "error",
			Data:     data,
			Metadata: metadata(r, time.Time{}),
			Error:    &APIError{Code: ErrCodeServiceUnavailable, Message: "Service is not ready"},
		})
		return
	}
	respondSuccess(w, r, http.StatusOK, data, time.Time{})
}
