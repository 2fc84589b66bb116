// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"settings.yaml",
	"/etc/elmerbot/config.yaml",
}

const (
	// ConfigPathEnvVar overrides the config file location.
	ConfigPathEnvVar = "CONFIG_PATH"

	// EnvironmentEnvVar selects the config file section.
	EnvironmentEnvVar = "ELMER_ENV"

	// DefaultEnvironment is used when ELMER_ENV is unset.
	DefaultEnvironment = "development"
)

// DefaultReviewSourceURL is the CSV export of the community review archive.
const DefaultReviewSourceURL = "https://docs.google.com/spreadsheets/export?format=csv&id=1X1HTxkI6SqsdpNSkSSivMzpxNT-oeTbjFFDdEkXD30o"

func defaultConfig() *Config {
	return &Config{
		Mode:        ModeBot,
		Environment: DefaultEnvironment,
		Discord: DiscordConfig{
			APIURL:            "https://discord.com/api/v10",
			GatewayURL:        "wss://gateway.discord.gg/?v=10&encoding=json",
			Prefix:            "!",
			RequestsPerSecond: 5,
			Burst:             5,
			RequestTimeout:    15 * time.Second,
			ReviewChannelIDs:  []string{},
		},
		Reviews: ReviewsConfig{
			SourceURL:    DefaultReviewSourceURL,
			SnapshotPath: "/tmp/review_cache.json",
			TTL:          time.Hour,
			Timeout:      30 * time.Second,
			MaxBodyBytes: 50 << 20,
			UserAgent:    "ElmerBot/1.0",
			WarmUp:       true,
		},
		Feed: FeedConfig{
			BaseURL:       "https://www.reddit.com",
			Subreddits:    []string{"bourbon", "scotch", "worldwhisky"},
			PollInterval:  30 * time.Second,
			Limit:         20,
			AnnounceDelay: 5 * time.Minute,
			BlurbLength:   400,
			Keyword:       "review",
			UserAgent:     "go:elmerdiscord:v1.0.0",
			Workers:       3,
			StateDir:      "/data/feed",
			SeenTTL:       7 * 24 * time.Hour,
		},
		Currency: CurrencyConfig{
			Enabled:    true,
			RatesURL:   "https://api.frankfurter.app",
			Currencies: []string{"USD", "EUR", "GBP", "SGD", "CAD", "AUD", "DKK", "HKD", "NZD"},
			CacheTTL:   10 * time.Minute,
			Timeout:    10 * time.Second,
		},
		Antispam: AntispamConfig{
			Enabled: true,
			Patterns: []string{
				`discord\.gg/\w{3}`,
				`add.*tag.*\d{4}`,
				`elmerbot_spam_name_debugging`,
			},
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads defaults, the optional config file and environment
// variables, then validates the result.
func LoadWithKoanf() (*Config, error) {
	environment := os.Getenv(EnvironmentEnvVar)
	if environment == "" {
		environment = DefaultEnvironment
	}
	return load(findConfigFile(), environment)
}

func load(configPath, environment string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		fileLayer, err := loadFile(configPath, environment)
		if err != nil {
			return nil, err
		}
		if err := k.Merge(fileLayer); err != nil {
			return nil, fmt.Errorf("failed to merge config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}
	if err := k.Set("environment", environment); err != nil {
		return nil, fmt.Errorf("failed to set environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile reads a YAML file. When the file has a top-level section named
// after the environment, only that section is returned.
func loadFile(path, environment string) (*koanf.Koanf, error) {
	fk := koanf.New(".")
	if err := fk.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	if fk.Exists(environment) {
		if _, ok := fk.Get(environment).(map[string]any); ok {
			return fk.Cut(environment), nil
		}
	}
	return fk, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings.
var sliceConfigPaths = []string{
	"discord.review_channel_ids",
	"feed.subreddits",
	"currency.currencies",
	"antispam.patterns",
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		trimmed := []string{}
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variables (lower-cased) to config paths.
var envMappings = map[string]string{
	"elmer_mode": "mode",

	"discord_token":               "discord.token",
	"discord_api_url":             "discord.api_url",
	"discord_gateway_url":         "discord.gateway_url",
	"discord_intents":             "discord.intents",
	"discord_prefix":              "discord.prefix",
	"discord_greeting_channel_id": "discord.greeting_channel_id",
	"greeting_room_id":            "discord.greeting_channel_id",
	"discord_appeal_server_id":    "discord.appeal_server_id",
	"appeal_server_id":            "discord.appeal_server_id",
	"discord_review_channel_ids":  "discord.review_channel_ids",
	"discord_requests_per_second": "discord.requests_per_second",
	"discord_burst":               "discord.burst",
	"discord_request_timeout":     "discord.request_timeout",

	"reviews_source_url":     "reviews.source_url",
	"reviews_snapshot_path":  "reviews.snapshot_path",
	"reviews_ttl":            "reviews.ttl",
	"reviews_timeout":        "reviews.timeout",
	"reviews_max_body_bytes": "reviews.max_body_bytes",
	"reviews_user_agent":     "reviews.user_agent",
	"reviews_warm_up":        "reviews.warm_up",

	"feed_base_url":       "feed.base_url",
	"feed_subreddits":     "feed.subreddits",
	"feed_poll_interval":  "feed.poll_interval",
	"feed_limit":          "feed.limit",
	"feed_announce_delay": "feed.announce_delay",
	"feed_blurb_length":   "feed.blurb_length",
	"feed_keyword":        "feed.keyword",
	"feed_user_agent":     "feed.user_agent",
	"feed_workers":        "feed.workers",
	"feed_state_dir":      "feed.state_dir",
	"feed_seen_ttl":       "feed.seen_ttl",

	"currency_enabled":   "currency.enabled",
	"currency_rates_url": "currency.rates_url",
	"currency_list":      "currency.currencies",
	"currency_cache_ttl": "currency.cache_ttl",
	"currency_timeout":   "currency.timeout",

	"antispam_enabled":  "antispam.enabled",
	"antispam_patterns": "antispam.patterns",

	"http_enabled":          "server.enabled",
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_reqs",
	"rate_limit_window":     "server.rate_limit_window",
	"cors_origins":          "server.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a config path, or ""
// to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
