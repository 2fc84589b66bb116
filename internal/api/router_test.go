// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/elmerbot/internal/reviews"
)

const testCSV = "Whisky Name,Reviewer's Reddit Username,Link To Reddit Review,Full Bottle Price Paid,Date of Review,Reviewer Rating\n" +
	"George T. Stagg 2014,alice,https://redd.it/1,$80,01/01/20,90\n" +
	"Macallan 12,bob,https://redd.it/2,$60,06/01/21,80\n" +
	"George T. Stagg 2015,carol,https://redd.it/3,$90,03/01/19,\n" +
	"George T. Stagg 2014,dave,https://redd.it/4,$85,06/01/21,94\n"

// switchSource serves testCSV until fail is set.
type switchSource struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (s *switchSource) Fetch(context.Context) ([]byte, error) {
	s.calls.Add(1)
	if s.fail.Load() {
		return nil, errors.New("spreadsheet unavailable")
	}
	return []byte(testCSV), nil
}

func (s *switchSource) Name() string { return "switch" }

type envelope struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data"`
	Metadata Metadata        `json:"metadata"`
	Error    *APIError       `json:"error"`
}

type testServer struct {
	handler http.Handler
	api     *Handler
	store   *reviews.Store
	source  *switchSource
}

func newTestServer(t *testing.T, load bool, cfg *ChiMiddlewareConfig) *testServer {
	t.Helper()
	source := &switchSource{}
	store := reviews.New(reviews.Config{Source: source})
	if load {
		if err := store.Refresh(context.Background()); err != nil {
			t.Fatalf("Refresh: %v", err)
		}
	}
	h := NewHandler(store, 5*time.Second)
	return &testServer{
		handler: NewRouter(h, NewChiMiddleware(cfg)).SetupChi(),
		api:     h,
		store:   store,
		source:  source,
	}
}

func (s *testServer) do(t *testing.T, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	req.RemoteAddr = "192.0.2.1:1234"
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v\n%s", method, target, err, rec.Body.String())
		}
	}
	return rec, env
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, false, nil)

	rec, env := s.do(t, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || env.Status != "success" {
		t.Fatalf("healthz = %d %s", rec.Code, env.Status)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("no X-Request-ID header")
	}
	if env.Metadata.RequestID != rec.Header().Get("X-Request-ID") {
		t.Errorf("metadata request id %q", env.Metadata.RequestID)
	}
}

func TestReadyzWaitsForData(t *testing.T) {
	s := newTestServer(t, false, nil)

	rec, env := s.do(t, http.MethodGet, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load = %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
		t.Errorf("error = %+v", env.Error)
	}
	if s.source.calls.Load() != 0 {
		t.Error("readiness probe triggered a load")
	}

	if err := s.store.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rec, _ := s.do(t, http.MethodGet, "/readyz"); rec.Code != http.StatusOK {
		t.Errorf("readyz after load = %d", rec.Code)
	}

	s.api.AddReadinessCheck("gateway", func() bool { return false })
	rec, env = s.do(t, http.MethodGet, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with failing check = %d", rec.Code)
	}
	var data struct {
		Checks map[string]bool `json:"checks"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if !data.Checks["reviews"] || data.Checks["gateway"] {
		t.Errorf("checks = %v", data.Checks)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, true, nil)
	s.do(t, http.MethodGet, "/api/v1/reviews/status")

	rec, _ := s.do(t, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "elmer_api_requests_total") {
		t.Error("API request counter missing from /metrics")
	}
}

func TestReviewSearch(t *testing.T) {
	s := newTestServer(t, true, nil)

	rec, env := s.do(t, http.MethodGet, "/api/v1/reviews/search?q=stagg+2014&limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("search = %d %s", rec.Code, rec.Body.String())
	}
	var data SearchResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Results) == 0 || len(data.Results) > 2 {
		t.Fatalf("results = %+v", data.Results)
	}
	if data.Results[0].Name != "George T. Stagg 2014" {
		t.Errorf("best match = %+v", data.Results[0])
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestReviewSearchValidation(t *testing.T) {
	s := newTestServer(t, true, nil)

	tests := []struct {
		target string
		code   string
	}{
		{"/api/v1/reviews/search", "VALIDATION_ERROR"},
		{"/api/v1/reviews/search?q=stagg&limit=0", "VALIDATION_ERROR"},
		{"/api/v1/reviews/search?q=stagg&limit=26", "VALIDATION_ERROR"},
		{"/api/v1/reviews/search?q=stagg&limit=ten", ErrCodeBadRequest},
	}
	for _, tt := range tests {
		rec, env := s.do(t, http.MethodGet, tt.target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", tt.target, rec.Code)
			continue
		}
		if env.Error == nil || env.Error.Code != tt.code {
			t.Errorf("%s error = %+v, want %s", tt.target, env.Error, tt.code)
		}
	}
}

func TestReviewProduct(t *testing.T) {
	s := newTestServer(t, true, nil)
	stagg := s.store.Search(context.Background(), "George T. Stagg 2014", 1)[0].ID

	rec, env := s.do(t, http.MethodGet, "/api/v1/reviews/"+strconv.Itoa(stagg))
	if rec.Code != http.StatusOK {
		t.Fatalf("product = %d", rec.Code)
	}
	var data ProductResponse
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Name != "George T. Stagg 2014" || data.Rated != 2 || len(data.Reviews) != 2 {
		t.Errorf("product = %+v", data)
	}
	if data.Average == nil || *data.Average != 92 {
		t.Errorf("average = %v", data.Average)
	}
}

func TestReviewProductUnrated(t *testing.T) {
	s := newTestServer(t, true, nil)
	id := s.store.Search(context.Background(), "George T. Stagg 2015", 1)[0].ID

	_, env := s.do(t, http.MethodGet, "/api/v1/reviews/"+strconv.Itoa(id))
	if !strings.Contains(string(env.Data), `"average":null`) {
		t.Errorf("data = %s", env.Data)
	}
}

func TestReviewProductErrors(t *testing.T) {
	s := newTestServer(t, true, nil)

	if rec, env := s.do(t, http.MethodGet, "/api/v1/reviews/999"); rec.Code != http.StatusNotFound || env.Error.Code != ErrCodeNotFound {
		t.Errorf("unknown id = %d %+v", rec.Code, env.Error)
	}
	if rec, _ := s.do(t, http.MethodGet, "/api/v1/reviews/abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id = %d", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodGet, "/api/v1/reviews/999/recent"); rec.Code != http.StatusNotFound {
		t.Errorf("recent for unknown id = %d", rec.Code)
	}
}

func TestReviewRecent(t *testing.T) {
	s := newTestServer(t, true, nil)
	stagg := s.store.Search(context.Background(), "George T. Stagg 2014", 1)[0].ID

	rec, env := s.do(t, http.MethodGet, "/api/v1/reviews/"+strconv.Itoa(stagg)+"/recent?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("recent = %d", rec.Code)
	}
	var records []reviews.Record
	if err := json.Unmarshal(env.Data, &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].Username != "dave" {
		t.Errorf("recent = %+v", records)
	}

	if rec, _ := s.do(t, http.MethodGet, "/api/v1/reviews/"+strconv.Itoa(stagg)+"/recent?limit=51"); rec.Code != http.StatusBadRequest {
		t.Errorf("limit 51 = %d", rec.Code)
	}
}

func TestReviewStatsAndStatus(t *testing.T) {
	s := newTestServer(t, true, nil)

	rec, env := s.do(t, http.MethodGet, "/api/v1/reviews/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats = %d", rec.Code)
	}
	var stats reviews.Stats
	if err := json.Unmarshal(env.Data, &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Rated != 3 || stats.Average < 87.99 || stats.Average > 88.01 {
		t.Errorf("stats = %+v", stats)
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/reviews/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status reviews.Status
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Products != 3 || status.Records != 4 {
		t.Errorf("status = %+v", status)
	}
}

func TestReviewRefresh(t *testing.T) {
	s := newTestServer(t, true, nil)
	before := s.source.calls.Load()

	if rec, _ := s.do(t, http.MethodPost, "/api/v1/reviews/refresh"); rec.Code != http.StatusOK {
		t.Fatalf("refresh = %d", rec.Code)
	}
	if s.source.calls.Load() != before+1 {
		t.Error("forced refresh did not fetch")
	}

	s.source.fail.Store(true)
	rec, env := s.do(t, http.MethodPost, "/api/v1/reviews/refresh")
	if rec.Code != http.StatusBadGateway || env.Error.Code != ErrCodeUpstreamFailed {
		t.Errorf("failed refresh = %d %+v", rec.Code, env.Error)
	}
	if strings.Contains(rec.Body.String(), "spreadsheet unavailable") {
		t.Error("upstream error leaked to client")
	}

	calls := s.source.calls.Load()
	if rec, _ := s.do(t, http.MethodGet, "/api/v1/reviews/refresh"); rec.Code < 400 || rec.Code >= 500 {
		t.Errorf("GET refresh = %d, want a client error", rec.Code)
	}
	if s.source.calls.Load() != calls {
		t.Error("GET refresh triggered a fetch")
	}
}

func TestRefreshRateLimit(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RefreshLimit = 1
	s := newTestServer(t, true, cfg)

	if rec, _ := s.do(t, http.MethodPost, "/api/v1/reviews/refresh"); rec.Code != http.StatusOK {
		t.Fatalf("first refresh = %d", rec.Code)
	}
	rec, env := s.do(t, http.MethodPost, "/api/v1/reviews/refresh")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second refresh = %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != ErrCodeTooManyRequests {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, false, nil)
	rec, env := s.do(t, http.MethodGet, "/nope")
	if rec.Code != http.StatusNotFound || env.Error == nil {
		t.Errorf("unknown route = %d %+v", rec.Code, env.Error)
	}
}
