// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/elmerbot/internal/antispam"
	"github.com/tomtom215/elmerbot/internal/api"
	"github.com/tomtom215/elmerbot/internal/bot"
	"github.com/tomtom215/elmerbot/internal/commands"
	"github.com/tomtom215/elmerbot/internal/config"
	"github.com/tomtom215/elmerbot/internal/discord"
	"github.com/tomtom215/elmerbot/internal/feed"
	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/parsers"
	"github.com/tomtom215/elmerbot/internal/reviews"
	"github.com/tomtom215/elmerbot/internal/supervisor"
	"github.com/tomtom215/elmerbot/internal/supervisor/services"
)

const (
	rateCacheSweep = 5 * time.Minute
	feedGCInterval = 10 * time.Minute
)

// application owns the resources that outlive the supervisor tree.
type application struct {
	state *feed.State
}

func (a *application) Close() {
	if a.state == nil {
		return
	}
	if err := a.state.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing feed state")
	}
}

// wire builds every component for cfg.Mode and adds its services to tree.
func wire(cfg *config.Config, tree *supervisor.SupervisorTree) (*application, error) {
	app := &application{}

	var snapshot *reviews.SnapshotFile
	if cfg.Reviews.SnapshotPath != "" {
		snapshot = reviews.NewSnapshotFile(cfg.Reviews.SnapshotPath)
	}
	store := reviews.New(reviews.Config{
		Source: reviews.NewHTTPSource(reviews.HTTPSourceConfig{
			URL:          cfg.Reviews.SourceURL,
			UserAgent:    cfg.Reviews.UserAgent,
			Timeout:      cfg.Reviews.Timeout,
			MaxBodyBytes: cfg.Reviews.MaxBodyBytes,
		}),
		Snapshot: snapshot,
		TTL:      cfg.Reviews.TTL,
	})
	if cfg.Reviews.WarmUp {
		tree.AddDataService(services.NewWarmUpService(store, 2*cfg.Reviews.Timeout))
	}

	client := discord.NewClient(discord.ClientConfig{
		Token:             cfg.Discord.Token,
		BaseURL:           cfg.Discord.APIURL,
		RequestsPerSecond: cfg.Discord.RequestsPerSecond,
		Burst:             cfg.Discord.Burst,
		Timeout:           cfg.Discord.RequestTimeout,
	})

	var gateway *discord.Gateway
	if cfg.RunsBot() {
		var err error
		gateway, err = wireBot(cfg, tree, store, client)
		if err != nil {
			return nil, err
		}
	}

	if cfg.RunsFeed() {
		state, err := wireFeed(cfg, tree, client)
		if err != nil {
			return nil, err
		}
		app.state = state
	}

	if cfg.Server.Enabled {
		wireServer(cfg, tree, store, gateway)
	}
	return app, nil
}

func wireBot(cfg *config.Config, tree *supervisor.SupervisorTree, store *reviews.Store, client *discord.Client) (*discord.Gateway, error) {
	registry := commands.Default(store)

	messageParsers := parsers.NewRegistry()
	if cfg.Currency.Enabled {
		rates := parsers.NewRatesClient(parsers.RatesClientConfig{
			BaseURL:    cfg.Currency.RatesURL,
			Currencies: cfg.Currency.Currencies,
			CacheTTL:   cfg.Currency.CacheTTL,
			Timeout:    cfg.Currency.Timeout,
		})
		messageParsers.Register(parsers.NewCurrencyParser(rates))
		tree.AddDataService(services.NewTickerService("rate-cache-sweeper", rateCacheSweep, rates.Cache().Run))
	}

	var filter *antispam.Filter
	if cfg.Antispam.Enabled {
		var err error
		filter, err = antispam.New(cfg.Antispam.Patterns, cfg.Discord.AppealServerID, client)
		if err != nil {
			return nil, fmt.Errorf("antispam: %w", err)
		}
	}

	b := bot.New(bot.Config{
		Prefix:            cfg.Discord.Prefix,
		GreetingChannelID: cfg.Discord.GreetingChannelID,
	}, client, registry, messageParsers, filter)

	gateway := discord.NewGateway(discord.GatewayConfig{
		Token:   cfg.Discord.Token,
		URL:     cfg.Discord.GatewayURL,
		Intents: cfg.Discord.Intents,
	})
	gateway.SetCallbacks(b.Handlers())
	tree.AddBotService(services.NewGatewayService(gateway))

	logging.Info().
		Int("commands", len(registry.All())).
		Int("parsers", messageParsers.Len()).
		Bool("antispam", filter != nil).
		Msg("Bot configured")
	return gateway, nil
}

func wireFeed(cfg *config.Config, tree *supervisor.SupervisorTree, client *discord.Client) (*feed.State, error) {
	state, err := feed.OpenState(cfg.Feed.StateDir, cfg.Feed.SeenTTL)
	if err != nil {
		return nil, fmt.Errorf("feed state: %w", err)
	}

	reddit := feed.NewReddit(feed.RedditConfig{
		BaseURL:   cfg.Feed.BaseURL,
		UserAgent: cfg.Feed.UserAgent,
	})
	poller := feed.NewPoller(feed.Config{
		Subreddits:    cfg.Feed.Subreddits,
		Limit:         cfg.Feed.Limit,
		PollInterval:  cfg.Feed.PollInterval,
		AnnounceDelay: cfg.Feed.AnnounceDelay,
		BlurbLength:   cfg.Feed.BlurbLength,
		Keyword:       cfg.Feed.Keyword,
		Workers:       cfg.Feed.Workers,
		ChannelIDs:    cfg.Discord.ReviewChannelIDs,
	}, reddit, state, client)

	tree.AddBotService(poller)
	tree.AddDataService(services.NewTickerService("feed-state-gc", feedGCInterval, state.RunGC))

	logging.Info().
		Strs("subreddits", cfg.Feed.Subreddits).
		Int("channels", len(cfg.Discord.ReviewChannelIDs)).
		Str("state_dir", cfg.Feed.StateDir).
		Msg("Review feed configured")
	return state, nil
}

func wireServer(cfg *config.Config, tree *supervisor.SupervisorTree, store *reviews.Store, gateway *discord.Gateway) {
	handler := api.NewHandler(store, cfg.Reviews.Timeout)
	if gateway != nil {
		handler.AddReadinessCheck("gateway", gateway.IsConnected)
	}

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Server.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow
	router := api.NewRouter(handler, api.NewChiMiddleware(mwConfig))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")
}
