// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

// Package main is the entry point for Elmer, the whisky review Discord bot.
//
// Elmer answers review lookups (!search, !info, !help) from a mirror of the
// community review spreadsheet, converts currency amounts mentioned in chat,
// bans members whose names match spam patterns and announces new review posts
// from a set of subreddits.
//
// # Run Modes
//
// ELMER_MODE selects which halves of the bot run in this process:
//
//	bot     gateway, commands, parsers and anti-spam (default)
//	reddit  subreddit review feed only
//	all     both
//
// The operations API (/healthz, /readyz, /metrics, /api/v1/reviews) runs in
// every mode unless SERVER_ENABLED=false.
//
// # Configuration
//
// Configuration is layered with Koanf v2 (highest priority wins):
//   - Environment variables (DISCORD_TOKEN, FEED_SUBREDDITS, ...)
//   - config.yaml, or the file named by CONFIG_PATH
//   - Built-in defaults
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains open
// requests, the gateway closes its session and the feed finishes announcing
// posts that were already scheduled.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/elmerbot/internal/config"
	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	logging.Info().
		Str("mode", cfg.Mode).
		Str("environment", cfg.Environment).
		Bool("api", cfg.Server.Enabled).
		Msg("Starting Elmer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Error().Err(err).Msg("Failed to create supervisor tree")
		return 1
	}

	app, err := wire(cfg, tree)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to initialize")
		return 1
	}
	defer app.Close()

	logging.Info().Msg("Starting supervisor tree")
	err = tree.Serve(ctx)

	code := 0
	switch {
	case errors.Is(err, suture.ErrTerminateSupervisorTree):
		logging.Error().Msg("Supervisor tree terminated")
		code = 1
	case err != nil && !errors.Is(err, context.Canceled):
		logging.Error().Err(err).Msg("Supervisor tree error")
		code = 1
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Int("exit_code", code).Msg("Elmer stopped")
	return code
}
