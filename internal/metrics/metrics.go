// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - review data refreshes and dataset size
// - chat command and parser activity
// - anti-spam bans
// - Reddit feed announcements
// - Discord gateway and REST traffic
// - circuit breakers guarding upstream HTTP services
// - the ops HTTP API

var (
	// Review store
	ReviewRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_review_refresh_total",
			Help: "Review data refresh attempts by result",
		},
		[]string{"result"}, // "fetched", "unchanged", "snapshot", "failed"
	)

	ReviewRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "elmer_review_refresh_duration_seconds",
			Help:    "Duration of review data refreshes in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ReviewProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "elmer_review_products",
			Help: "Distinct products in the current review dataset",
		},
	)

	ReviewRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "elmer_review_records",
			Help: "Review records in the current review dataset",
		},
	)

	ReviewParseWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_review_parse_warnings_total",
			Help: "Malformed review fields replaced during ingestion",
		},
		[]string{"field"}, // "date", "rating"
	)

	ReviewSnapshotErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_review_snapshot_errors_total",
			Help: "Snapshot file read/write failures",
		},
		[]string{"op"}, // "load", "save"
	)

	// Commands and parsers
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_commands_total",
			Help: "Chat commands handled by command and result",
		},
		[]string{"command", "result"},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "elmer_command_duration_seconds",
			Help:    "Chat command handling time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	ParserMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_parser_matches_total",
			Help: "Messages answered by passive parsers",
		},
		[]string{"parser"},
	)

	// Anti-spam
	AntispamBans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_antispam_bans_total",
			Help: "Members banned by name pattern",
		},
		[]string{"pattern"},
	)

	// Reddit feed
	FeedAnnounced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_feed_announced_total",
			Help: "Reddit reviews announced to Discord",
		},
		[]string{"subreddit"},
	)

	FeedPollErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_feed_poll_errors_total",
			Help: "Failed subreddit polls",
		},
		[]string{"subreddit"},
	)

	// Discord
	GatewayReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "elmer_gateway_reconnects_total",
			Help: "Discord gateway reconnect attempts",
		},
	)

	GatewayEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_gateway_events_total",
			Help: "Discord gateway dispatch events received",
		},
		[]string{"type"},
	)

	RESTRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_discord_rest_requests_total",
			Help: "Discord REST calls by route and status",
		},
		[]string{"route", "status"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "elmer_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_circuit_breaker_requests_total",
			Help: "Requests through circuit breakers",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "elmer_circuit_breaker_consecutive_failures",
			Help: "Current run of failed requests",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Ops API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "elmer_api_requests_total",
			Help: "Ops API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "elmer_api_request_duration_seconds",
			Help:    "Ops API latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRefresh records one refresh attempt.
func RecordRefresh(result string, duration time.Duration) {
	ReviewRefreshTotal.WithLabelValues(result).Inc()
	ReviewRefreshDuration.Observe(duration.Seconds())
}

// SetDatasetSize updates the product and record gauges.
func SetDatasetSize(products, records int) {
	ReviewProducts.Set(float64(products))
	ReviewRecords.Set(float64(records))
}

// RecordCommand records a handled command; err == nil counts as success.
func RecordCommand(command string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	CommandsTotal.WithLabelValues(command, result).Inc()
	CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordRESTRequest records a Discord REST call.
func RecordRESTRequest(route string, status int) {
	RESTRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// RecordAPIRequest records an ops API request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
