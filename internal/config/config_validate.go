// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package config

import (
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/tomtom215/elmerbot/internal/validation"
)

// Validate checks struct tags first, then rules spanning several fields.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateDurations(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateAntispam(); err != nil {
		return err
	}
	return c.validateURLs()
}

func (c *Config) validateDurations() error {
	positive := []struct {
		name  string
		value time.Duration
	}{
		{"reviews.ttl", c.Reviews.TTL},
		{"reviews.timeout", c.Reviews.Timeout},
		{"feed.poll_interval", c.Feed.PollInterval},
		{"feed.seen_ttl", c.Feed.SeenTTL},
		{"currency.cache_ttl", c.Currency.CacheTTL},
		{"server.rate_limit_window", c.Server.RateLimitWindow},
	}
	for _, d := range positive {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", d.name, d.value)
		}
	}

	if c.Feed.AnnounceDelay < 0 {
		return fmt.Errorf("feed.announce_delay must not be negative, got %v", c.Feed.AnnounceDelay)
	}
	return nil
}

func (c *Config) validateFeed() error {
	if !c.RunsFeed() {
		return nil
	}
	if len(c.Feed.Subreddits) == 0 {
		return fmt.Errorf("feed.subreddits must not be empty in %s mode", c.Mode)
	}
	if len(c.Discord.ReviewChannelIDs) == 0 {
		return fmt.Errorf("discord.review_channel_ids must not be empty in %s mode", c.Mode)
	}
	return nil
}

func (c *Config) validateAntispam() error {
	if !c.Antispam.Enabled {
		return nil
	}
	for i, pattern := range c.Antispam.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("antispam.patterns[%d] %q: %w", i, pattern, err)
		}
	}
	return nil
}

// validateURLs requires http(s) for the upstream APIs and ws(s) for the
// gateway.
func (c *Config) validateURLs() error {
	checks := []struct {
		name    string
		value   string
		schemes []string
	}{
		{"discord.api_url", c.Discord.APIURL, []string{"http", "https"}},
		{"discord.gateway_url", c.Discord.GatewayURL, []string{"ws", "wss"}},
		{"reviews.source_url", c.Reviews.SourceURL, []string{"http", "https"}},
		{"feed.base_url", c.Feed.BaseURL, []string{"http", "https"}},
		{"currency.rates_url", c.Currency.RatesURL, []string{"http", "https"}},
	}
	for _, check := range checks {
		if err := validateURLScheme(check.value, check.name, check.schemes...); err != nil {
			return err
		}
	}
	return nil
}

func validateURLScheme(rawURL, fieldName string, schemes ...string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	for _, s := range schemes {
		if parsedURL.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s scheme must be one of %v, got: %s", fieldName, schemes, parsedURL.Scheme)
}
