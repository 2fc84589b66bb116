// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

// Package api serves the operations HTTP API: health probes, Prometheus
// metrics and a read-only JSON view of the review data.
//
// Routes:
//
//	GET  /healthz                       liveness
//	GET  /readyz                        readiness, 503 until reviews are loaded
//	GET  /metrics                       Prometheus exposition
//	GET  /api/v1/reviews/search?q=&limit=
//	GET  /api/v1/reviews/stats
//	GET  /api/v1/reviews/status
//	POST /api/v1/reviews/refresh        forced reload
//	GET  /api/v1/reviews/{id}
//	GET  /api/v1/reviews/{id}/recent?limit=
//
// Every JSON response uses the envelope {status, data, metadata, error}.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/elmerbot/internal/middleware"
)

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router; a nil mw uses the default middleware config.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/healthz", router.handler.HealthLive)
	r.Get("/readyz", router.handler.HealthReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/search", router.handler.ReviewSearch)
		r.Get("/stats", router.handler.ReviewStats)
		r.Get("/status", router.handler.ReviewStatus)
		r.With(router.chiMiddleware.RateLimitRefresh()).Post("/refresh", router.handler.ReviewRefresh)
		r.Get("/{id}", router.handler.ReviewProduct)
		r.Get("/{id}/recent", router.handler.ReviewRecent)
	})

	return r
}
