// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package parsers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/tomtom215/elmerbot/internal/breaker"
	"github.com/tomtom215/elmerbot/internal/cache"
	"github.com/tomtom215/elmerbot/internal/logging"
)

// DefaultRatesURL is a Frankfurter-compatible exchange rate API.
const DefaultRatesURL = "https://api.frankfurter.app"

const maxRatesBody = 64 * 1024

// Rates maps a currency code to units of that currency per one base unit.
type Rates map[string]decimal.Decimal

// RatesClientConfig configures a RatesClient.
type RatesClientConfig struct {
	BaseURL    string
	Currencies []string
	CacheTTL   time.Duration
	Timeout    time.Duration
}

// RatesClient fetches exchange rates per base currency and caches them.
type RatesClient struct {
	baseURL    string
	currencies []string
	client     *http.Client
	cache      *cache.Cache[Rates]
	breaker    *breaker.Breaker[Rates]
}

type latestResponse struct {
	Base  string `json:"base"`
	Date  string `json:"date"`
	Rates Rates  `json:"rates"`
}

// NewRatesClient creates a client; zero config values get defaults.
func NewRatesClient(cfg RatesClientConfig) *RatesClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRatesURL
	}
	if len(cfg.Currencies) == 0 {
		cfg.Currencies = DefaultCurrencies
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	currencies := make([]string, len(cfg.Currencies))
	for i, c := range cfg.Currencies {
		currencies[i] = strings.ToUpper(c)
	}

	return &RatesClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		currencies: currencies,
		client:     &http.Client{Timeout: cfg.Timeout},
		cache:      cache.New[Rates](cfg.CacheTTL),
		breaker:    breaker.New[Rates]("exchange-rates"),
	}
}

// Currencies returns the configured currency codes in display order.
func (c *RatesClient) Currencies() []string {
	return c.currencies
}

// Rates returns the rates for base, including base itself at 1.
func (c *RatesClient) Rates(ctx context.Context, base string) (Rates, error) {
	base = strings.ToUpper(base)
	if rates, ok := c.cache.Get(base); ok {
		return rates, nil
	}

	rates, err := c.breaker.Execute(func() (Rates, error) {
		return c.fetch(ctx, base)
	})
	if err != nil {
		return nil, fmt.Errorf("exchange rates for %s: %w", base, err)
	}
	rates[base] = decimal.NewFromInt(1)

	c.cache.Set(base, rates)
	logging.Ctx(ctx).Debug().Str("base", base).Int("rates", len(rates)).Msg("Fetched exchange rates")
	return rates, nil
}

// Cache exposes the rate cache so the supervisor can sweep it.
func (c *RatesClient) Cache() *cache.Cache[Rates] {
	return c.cache
}

func (c *RatesClient) fetch(ctx context.Context, base string) (Rates, error) {
	targets := make([]string, 0, len(c.currencies))
	for _, cur := range c.currencies {
		if cur != base {
			targets = append(targets, cur)
		}
	}

	q := url.Values{}
	q.Set("from", base)
	q.Set("to", strings.Join(targets, ","))
	endpoint := c.baseURL + "/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRatesBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var latest latestResponse
	if err := json.Unmarshal(body, &latest); err != nil {
		return nil, fmt.Errorf("failed to decode rates: %w", err)
	}
	if latest.Rates == nil {
		latest.Rates = make(Rates, 1)
	}
	return latest.Rates, nil
}
