// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

// Package config loads the bot configuration.
//
// Configuration is layered (later layers win):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config file: optional YAML (CONFIG_PATH, or config.yaml / settings.yaml
//     in the working directory, or /etc/elmerbot/config.yaml). A file may hold
//     one section per environment (development:, production:); the section
//     named by ELMER_ENV (default development) is used.
//  3. Environment variables from an explicit mapping table (DISCORD_TOKEN,
//     ELMER_MODE, REVIEWS_TTL, ...). Unknown variables are ignored.
//
// Example:
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Run modes.
const (
	ModeBot    = "bot"
	ModeReddit = "reddit"
	ModeAll    = "all"
)

// Config is the complete bot configuration.
type Config struct {
	// Mode selects which services run: bot (commands, parsers, anti-spam),
	// reddit (review feed) or all.
	Mode string `koanf:"mode" validate:"oneof=bot reddit all"`

	// Environment is the config file section that was applied.
	Environment string `koanf:"environment"`

	Discord  DiscordConfig  `koanf:"discord"`
	Reviews  ReviewsConfig  `koanf:"reviews"`
	Feed     FeedConfig     `koanf:"feed"`
	Currency CurrencyConfig `koanf:"currency"`
	Antispam AntispamConfig `koanf:"antispam"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DiscordConfig configures the Discord REST and gateway clients and the
// bot's channel wiring.
type DiscordConfig struct {
	Token      string `koanf:"token" validate:"required"`
	APIURL     string `koanf:"api_url" validate:"required,url"`
	GatewayURL string `koanf:"gateway_url" validate:"required,url"`
	Intents    int    `koanf:"intents" validate:"min=0"`

	// Prefix starts every command ("!search ...").
	Prefix string `koanf:"prefix" validate:"required,max=8"`

	// GreetingChannelID receives the welcome line for new members. Empty
	// disables greetings.
	GreetingChannelID string `koanf:"greeting_channel_id" validate:"omitempty,snowflake"`

	// AppealServerID is the invite code of the ban appeal server, included in
	// the ban notice when set.
	AppealServerID string `koanf:"appeal_server_id" validate:"omitempty,alphanum"`

	// ReviewChannelIDs receive Reddit review announcements.
	ReviewChannelIDs []string `koanf:"review_channel_ids" validate:"dive,snowflake"`

	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"min=1"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
}

// ReviewsConfig configures the review spreadsheet mirror.
type ReviewsConfig struct {
	SourceURL    string        `koanf:"source_url" validate:"required,url"`
	SnapshotPath string        `koanf:"snapshot_path" validate:"required"`
	TTL          time.Duration `koanf:"ttl"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxBodyBytes int64         `koanf:"max_body_bytes" validate:"min=1024"`
	UserAgent    string        `koanf:"user_agent"`
	// WarmUp loads the data at startup instead of on the first command.
	WarmUp bool `koanf:"warm_up"`
}

// FeedConfig configures the Reddit review feed.
type FeedConfig struct {
	BaseURL       string        `koanf:"base_url" validate:"required,url"`
	Subreddits    []string      `koanf:"subreddits" validate:"dive,subreddit"`
	PollInterval  time.Duration `koanf:"poll_interval"`
	Limit         int           `koanf:"limit" validate:"min=1,max=100"`
	AnnounceDelay time.Duration `koanf:"announce_delay"`
	BlurbLength   int           `koanf:"blurb_length" validate:"min=1"`
	Keyword       string        `koanf:"keyword" validate:"required"`
	UserAgent     string        `koanf:"user_agent" validate:"required"`
	Workers       int           `koanf:"workers" validate:"min=1,max=16"`

	// StateDir holds the badger database with the poll cursor and seen
	// posts. Empty keeps state in memory only.
	StateDir string        `koanf:"state_dir"`
	SeenTTL  time.Duration `koanf:"seen_ttl"`
}

// CurrencyConfig configures the currency conversion parser.
type CurrencyConfig struct {
	Enabled    bool          `koanf:"enabled"`
	RatesURL   string        `koanf:"rates_url" validate:"required,url"`
	Currencies []string      `koanf:"currencies" validate:"min=1,dive,currency"`
	CacheTTL   time.Duration `koanf:"cache_ttl"`
	Timeout    time.Duration `koanf:"timeout"`
}

// AntispamConfig configures the member name filter.
type AntispamConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Patterns []string `koanf:"patterns"`
}

// ServerConfig configures the operations HTTP API.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled off"`

	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes file and line in every entry.
	Caller bool `koanf:"caller"`
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RunsBot reports whether the command bot should run.
func (c *Config) RunsBot() bool {
	return c.Mode == ModeBot || c.Mode == ModeAll
}

// RunsFeed reports whether the Reddit feed should run.
func (c *Config) RunsFeed() bool {
	return c.Mode == ModeReddit || c.Mode == ModeAll
}

// String summarizes the configuration without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("mode=%s env=%s subreddits=%v review_channels=%d server=%t",
		c.Mode, c.Environment, c.Feed.Subreddits, len(c.Discord.ReviewChannelIDs), c.Server.Enabled)
}
