// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

// Package commands implements the prefix commands (!search, !info, !help)
// and the registry that dispatches them.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/elmerbot/internal/discord"
	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/metrics"
	"github.com/tomtom215/elmerbot/internal/reviews"
)

// ErrDuplicateCommand is returned when two commands share a name.
var ErrDuplicateCommand = errors.New("command already registered")

// Responder is the subset of the Discord REST client commands use.
type Responder interface {
	CreateMessage(ctx context.Context, channelID string, msg discord.MessageSend) (*discord.Message, error)
	SendText(ctx context.Context, channelID, text string) (*discord.Message, error)
	SendEmbed(ctx context.Context, channelID string, embed discord.Embed) (*discord.Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	TriggerTyping(ctx context.Context, channelID string) error
	SendDM(ctx context.Context, userID string, msg discord.MessageSend) (*discord.Message, error)
}

// ReviewQuerier is the read API of the review store.
type ReviewQuerier interface {
	IsStale() bool
	Search(ctx context.Context, pattern string, limit int) []reviews.Match
	Find(ctx context.Context, id int) []reviews.Record
	FindByName(ctx context.Context, name string) (int, []reviews.Record)
	Stats(ctx context.Context) (reviews.Stats, error)
}

// Request is one invocation of a command.
type Request struct {
	Message *discord.Message
	// Args is everything after the command name, trimmed.
	Args   string
	Prefix string
	Reply  Responder
}

// Command is a named handler.
type Command interface {
	Name() string
	Description() string
	Handle(ctx context.Context, req *Request) error
}

// Registry maps command names to handlers. It is filled once at startup and
// read-only afterwards.
type Registry struct {
	commands []Command
	index    map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]Command)}
}

// Register adds cmd. Names are case-insensitive.
func (r *Registry) Register(cmd Command) error {
	name := strings.ToLower(cmd.Name())
	if _, exists := r.index[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	r.index[name] = cmd
	r.commands = append(r.commands, cmd)
	logging.Info().Str("command", name).Msg("Registered command")
	return nil
}

// Find returns the command registered under name.
func (r *Registry) Find(name string) (Command, bool) {
	cmd, ok := r.index[strings.ToLower(name)]
	return cmd, ok
}

// All returns commands in registration order.
func (r *Registry) All() []Command {
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Dispatch runs the named command. It reports false when no command has
// that name.
func (r *Registry) Dispatch(ctx context.Context, name string, req *Request) (bool, error) {
	cmd, ok := r.Find(name)
	if !ok {
		return false, nil
	}

	start := time.Now()
	logging.Ctx(ctx).Info().Str("command", cmd.Name()).Str("args", req.Args).Msg("Handling command")
	err := cmd.Handle(ctx, req)
	metrics.RecordCommand(cmd.Name(), time.Since(start), err)
	if err != nil {
		return true, fmt.Errorf("command %s: %w", cmd.Name(), err)
	}
	return true, nil
}

// Default builds the registry with every bot command.
func Default(store ReviewQuerier) *Registry {
	r := NewRegistry()
	for _, cmd := range []Command{
		NewSearchCommand(store),
		NewInfoCommand(store),
		NewHelpCommand(r),
	} {
		// Names are distinct constants.
		_ = r.Register(cmd)
	}
	return r
}
