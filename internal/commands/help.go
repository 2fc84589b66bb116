// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/elmerbot/internal/discord"
	"github.com/tomtom215/elmerbot/internal/logging"
)

// HelpCommand DMs the command list to the author.
type HelpCommand struct {
	registry *Registry
}

func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{registry: registry}
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Send this help message." }

func (c *HelpCommand) Handle(ctx context.Context, req *Request) error {
	lines := []string{
		fmt.Sprintf("**Usage**: `%s <command> <arguments>`\n", req.Prefix),
		"**Commands**\n",
	}
	for _, cmd := range c.registry.All() {
		lines = append(lines, fmt.Sprintf("**%s**\n%s\n", cmd.Name(), cmd.Description()))
	}

	embed := discord.Embed{
		Title:       "ElmerBot Help",
		Description: strings.Join(lines, "\n"),
		Color:       discord.ColorGreen,
	}
	if _, err := req.Reply.SendDM(ctx, req.Message.Author.ID, discord.MessageSend{Embeds: []discord.Embed{embed}}); err != nil {
		return err
	}

	if err := req.Reply.DeleteMessage(ctx, req.Message.ChannelID, req.Message.ID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to delete help request")
	}
	return nil
}
