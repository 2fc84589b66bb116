// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

// Package bot routes Discord gateway events to the command registry, the
// passive parsers and the anti-spam filter.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/tomtom215/elmerbot/internal/antispam"
	"github.com/tomtom215/elmerbot/internal/commands"
	"github.com/tomtom215/elmerbot/internal/discord"
	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/parsers"
)

const (
	greeting     = "Slàinte Mhath"
	legacyPrefix = "elmer"
	legacyReply  = "I've been tweaked to use **%s** instead of **%selmer** now."
)

// Config holds the per-guild settings the event handlers need.
type Config struct {
	// Prefix starts commands. Matching is case-insensitive.
	Prefix string
	// GreetingChannelID receives the welcome line. Empty disables it.
	GreetingChannelID string
}

// Bot handles gateway events. All handlers are safe for concurrent use.
type Bot struct {
	cfg      Config
	client   commands.Responder
	commands *commands.Registry
	parsers  *parsers.Registry
	antispam *antispam.Filter
	selfID   atomic.Pointer[string]
}

// New creates a Bot. parsers and filter may be nil.
func New(cfg Config, client commands.Responder, registry *commands.Registry,
	parsers *parsers.Registry, filter *antispam.Filter) *Bot {
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	return &Bot{
		cfg:      cfg,
		client:   client,
		commands: registry,
		parsers:  parsers,
		antispam: filter,
	}
}

// Handlers returns the gateway callbacks.
func (b *Bot) Handlers() discord.Handlers {
	return discord.Handlers{
		Ready:         b.OnReady,
		MessageCreate: b.OnMessageCreate,
		MemberAdd:     b.OnMemberAdd,
		MemberUpdate:  b.OnMemberUpdate,
	}
}

// SelfID returns the bot's user id once READY has been seen.
func (b *Bot) SelfID() string {
	if id := b.selfID.Load(); id != nil {
		return *id
	}
	return ""
}

func (b *Bot) OnReady(ctx context.Context, r *discord.Ready) {
	id := r.User.ID
	b.selfID.Store(&id)
	logging.Ctx(ctx).Info().
		Str("user", r.User.Username).
		Str("user_id", id).
		Str("greeting_channel", b.cfg.GreetingChannelID).
		Msg("Logged in")
}

// OnMessageCreate runs parsers, then dispatches prefixed commands. Direct
// messages and messages from bots are ignored.
func (b *Bot) OnMessageCreate(ctx context.Context, m *discord.Message) {
	if m.GuildID == "" || m.ChannelID == "" {
		return
	}
	if m.Author.Bot || m.Author.ID == b.SelfID() {
		return
	}

	ctx = logging.ContextWithLogger(ctx, logging.LoggerFromContext(ctx).With().
		Str("channel_id", m.ChannelID).
		Str("author_id", m.Author.ID).
		Logger())

	if b.parsers != nil {
		b.parsers.Run(ctx, m, b.client)
	}

	content := m.Content
	if len(content) < len(b.cfg.Prefix) || !strings.EqualFold(content[:len(b.cfg.Prefix)], b.cfg.Prefix) {
		return
	}
	rest := content[len(b.cfg.Prefix):]

	if strings.HasPrefix(rest, legacyPrefix) {
		if _, err := b.client.SendText(ctx, m.ChannelID, fmt.Sprintf(legacyReply, b.cfg.Prefix, b.cfg.Prefix)); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to answer legacy prefix")
		}
		return
	}

	name, args, _ := strings.Cut(strings.TrimSpace(rest), " ")
	if name == "" {
		return
	}
	req := &commands.Request{
		Message: m,
		Args:    strings.TrimSpace(args),
		Prefix:  b.cfg.Prefix,
		Reply:   b.client,
	}
	if _, err := b.commands.Dispatch(ctx, name, req); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Command failed")
	}
}

// OnMemberAdd bans spam names and greets everyone else.
func (b *Bot) OnMemberAdd(ctx context.Context, m *discord.Member) {
	if b.checkName(ctx, m) {
		return
	}
	if b.cfg.GreetingChannelID == "" || m.User == nil {
		return
	}
	text := fmt.Sprintf("%s, %s!", greeting, m.User.Mention())
	if _, err := b.client.SendText(ctx, b.cfg.GreetingChannelID, text); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", m.User.ID).Msg("Failed to greet member")
	}
}

// OnMemberUpdate re-checks names after a member renames themselves.
func (b *Bot) OnMemberUpdate(ctx context.Context, m *discord.Member) {
	b.checkName(ctx, m)
}

func (b *Bot) checkName(ctx context.Context, m *discord.Member) bool {
	if b.antispam == nil {
		return false
	}
	banned, err := b.antispam.Check(ctx, m)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Anti-spam ban failed")
	}
	return banned
}
