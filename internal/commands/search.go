// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/elmerbot/internal/discord"
	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/reviews"
)

const (
	reloadingNotice = "One moment, reloading review data..."

	// MaxSearchResults bounds the optional count argument of !search.
	MaxSearchResults = 25

	// confidenceDrop ends a result list at the first score falling more than
	// this below its predecessor.
	confidenceDrop = 3
)

// patternWhitelist keeps user text from injecting Markdown into embeds.
const patternWhitelist = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789'()-., "

// Sanitize drops every rune outside the search whitelist.
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(patternWhitelist, r) {
			return r
		}
		return -1
	}, s)
}

// isNumeric matches Python-style str.isnumeric for ASCII digits.
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SearchCommand lists products whose names match a pattern.
type SearchCommand struct {
	store ReviewQuerier
}

func NewSearchCommand(store ReviewQuerier) *SearchCommand {
	return &SearchCommand{store: store}
}

func (c *SearchCommand) Name() string { return "search" }

func (c *SearchCommand) Description() string {
	return "Search for a whisky by name. Optionally put a number of results to limit it to in front of " +
		"your query.\nExamples: `!search stagg 2014` or `!search 10 stagg`"
}

func (c *SearchCommand) Handle(ctx context.Context, req *Request) error {
	channel := req.Message.ChannelID
	if c.store.IsStale() {
		if _, err := req.Reply.SendText(ctx, channel, reloadingNotice); err != nil {
			return err
		}
	}
	typing(ctx, req)

	limit := reviews.DefaultSearchLimit
	pattern := req.Args
	if first, rest, _ := strings.Cut(req.Args, " "); isNumeric(first) {
		n, err := strconv.Atoi(first)
		if err != nil || n < 1 || n > MaxSearchResults {
			_, err := req.Reply.SendEmbed(ctx, channel, discord.Embed{
				Title: fmt.Sprintf("Result count must be between 1 and %d.", MaxSearchResults),
				Color: discord.ColorRed,
			})
			return err
		}
		limit = n
		pattern = rest
	}
	pattern = Sanitize(pattern)

	results := c.store.Search(ctx, pattern, limit)
	if len(results) == 0 {
		_, err := req.Reply.SendEmbed(ctx, channel, discord.Embed{
			Title: fmt.Sprintf("No results found for %q.", pattern),
			Color: discord.ColorRed,
		})
		return err
	}

	lines := make([]string, 0, len(results)+2)
	last := results[0].Score
	for _, m := range results {
		if last-m.Score > confidenceDrop {
			break
		}
		last = m.Score
		lines = append(lines, fmt.Sprintf("**%s** [#%d]", m.Name, m.ID))
	}
	hits := len(lines)
	lines = append(lines, "", fmt.Sprintf(
		"Use **%sinfo <id>** to get review information. The <id> is the number in brackets from search results.",
		req.Prefix))

	_, err := req.Reply.SendEmbed(ctx, channel, discord.Embed{
		Title:       fmt.Sprintf("%d Results for %q:", hits, pattern),
		Description: strings.Join(lines, "\n"),
		Color:       discord.ColorGreen,
	})
	return err
}

// typing shows the typing indicator; failure only costs the indicator.
func typing(ctx context.Context, req *Request) {
	if err := req.Reply.TriggerTyping(ctx, req.Message.ChannelID); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Failed to trigger typing")
	}
}
