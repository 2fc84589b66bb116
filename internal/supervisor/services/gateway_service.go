// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package services

import (
	"context"
	"errors"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/elmerbot/internal/discord"
	"github.com/tomtom215/elmerbot/internal/logging"
)

// GatewayRunner is the reconnect loop of *discord.Gateway.
type GatewayRunner interface {
	Run(ctx context.Context) error
}

// GatewayService supervises the Discord gateway. The gateway already
// reconnects on its own; the supervisor only sees errors it gave up on.
type GatewayService struct {
	gateway GatewayRunner
}

func NewGatewayService(gateway GatewayRunner) *GatewayService {
	return &GatewayService{gateway: gateway}
}

// Serve implements suture.Service. A rejected token can never succeed on
// retry, so it terminates the supervisor tree.
func (s *GatewayService) Serve(ctx context.Context) error {
	err := s.gateway.Run(ctx)
	if errors.Is(err, discord.ErrAuthenticationFailed) {
		logging.Error().Err(err).Msg("Discord rejected the bot token, shutting down")
		return suture.ErrTerminateSupervisorTree
	}
	return err
}

func (s *GatewayService) String() string { return "discord-gateway" }
