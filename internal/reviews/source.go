// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package reviews

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/elmerbot/internal/breaker"
)

// DefaultSourceURL is the CSV export of the community review spreadsheet.
const DefaultSourceURL = "https://docs.google.com/spreadsheets/export?format=csv&id=1X1HTxkI6SqsdpNSkSSivMzpxNT-oeTbjFFDdEkXD30o"

// Source returns the raw CSV document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Name() string
}

// HTTPSourceConfig configures an HTTPSource.
type HTTPSourceConfig struct {
	URL          string
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// HTTPSource downloads the spreadsheet export through a circuit breaker.
type HTTPSource struct {
	url       string
	userAgent string
	maxBody   int64
	client    *http.Client
	breaker   *breaker.Breaker[[]byte]
}

// NewHTTPSource creates a source; zero config values get defaults.
func NewHTTPSource(cfg HTTPSourceConfig) *HTTPSource {
	if cfg.URL == "" {
		cfg.URL = DefaultSourceURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ElmerBot/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 50 * 1024 * 1024
	}

	return &HTTPSource{
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		client:    &http.Client{Timeout: cfg.Timeout},
		breaker:   breaker.New[[]byte]("review-spreadsheet"),
	}
}

// Name identifies the source in logs.
func (s *HTTPSource) Name() string { return s.url }

// Fetch returns the CSV body. Every failure, including a breaker rejection,
// is a *FetchError.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	body, err := s.breaker.Execute(func() ([]byte, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			return nil, err
		}
		return nil, &FetchError{Source: s.url, Err: err}
	}
	return body, nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, &FetchError{Source: s.url, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{Source: s.url, Err: fmt.Errorf("HTTP request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Source: s.url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBody+1))
	if err != nil {
		return nil, &FetchError{Source: s.url, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if int64(len(data)) > s.maxBody {
		return nil, &FetchError{Source: s.url, Err: fmt.Errorf("response exceeds %d bytes", s.maxBody)}
	}
	return data, nil
}
