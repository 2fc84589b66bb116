// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

// Package parsers holds passive message parsers. Unlike commands they need
// no prefix: every guild message from a human is offered to each parser and
// those that match answer in the same channel.
package parsers

import (
	"context"

	"github.com/tomtom215/elmerbot/internal/discord"
	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/metrics"
)

// Responder is the part of the Discord REST client parsers reply with.
type Responder interface {
	SendEmbed(ctx context.Context, channelID string, embed discord.Embed) (*discord.Message, error)
}

// Parser reacts to message content.
type Parser interface {
	Name() string
	// Match reports whether content is for this parser. It must be cheap.
	Match(content string) bool
	Handle(ctx context.Context, msg *discord.Message, reply Responder) error
}

// Registry runs parsers in registration order.
type Registry struct {
	parsers []Parser
}

func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Len returns the number of registered parsers.
func (r *Registry) Len() int { return len(r.parsers) }

// Run offers msg to every parser and returns how many answered. A failing
// parser is logged and does not stop the others.
func (r *Registry) Run(ctx context.Context, msg *discord.Message, reply Responder) int {
	handled := 0
	for _, p := range r.parsers {
		if !p.Match(msg.Content) {
			continue
		}
		metrics.ParserMatches.WithLabelValues(p.Name()).Inc()
		if err := p.Handle(ctx, msg, reply); err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("parser", p.Name()).Msg("Parser failed")
			continue
		}
		handled++
	}
	return handled
}
