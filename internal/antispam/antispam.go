// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

// Package antispam bans members whose names look like spam, such as invite
// links or "add my tag" bait.
package antispam

import (
	"context"
	"fmt"
	"regexp"

	"github.com/tomtom215/elmerbot/internal/discord"
	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/metrics"
)

// DefaultPatterns catch invite links, tag bait and a name reserved for
// testing the filter.
var DefaultPatterns = []string{
	`discord\.gg/\w{3}`,
	`add.*tag.*\d{4}`,
	`elmerbot_spam_name_debugging`,
}

const (
	banNoticeAppeal = "You are being banned because your name matched a spam filter. If this was done in error " +
		"and you would like to request to be unbanned, please join our ban appeal server at https://discord.gg/%s"
	banNoticeRejoin = "You are being banned because your name matched a spam filter. If this was done in error, " +
		"please rejoin from another IP with a username not containing any promotional information and speak " +
		"with a moderator."
	auditReason = "Name matched spam filter %q"
)

// Moderator is the part of the Discord REST client the filter needs.
type Moderator interface {
	SendDM(ctx context.Context, userID string, msg discord.MessageSend) (*discord.Message, error)
	BanMember(ctx context.Context, guildID, userID, reason string) error
}

// Filter checks member names and bans matches.
type Filter struct {
	patterns []*regexp.Regexp
	notice   string
	mod      Moderator
}

// New compiles patterns. An empty appealServerID selects the notice that
// asks the member to rejoin instead.
func New(patterns []string, appealServerID string, mod Moderator) (*Filter, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("antispam pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	notice := banNoticeRejoin
	if appealServerID != "" {
		notice = fmt.Sprintf(banNoticeAppeal, appealServerID)
	}
	return &Filter{patterns: compiled, notice: notice, mod: mod}, nil
}

// Match returns the first pattern matching any of the member's names.
func (f *Filter) Match(m *discord.Member) (string, bool) {
	if m == nil || m.User == nil {
		return "", false
	}
	for _, re := range f.patterns {
		for _, name := range []string{m.User.Username, m.User.GlobalName, m.Nick} {
			if name != "" && re.MatchString(name) {
				return re.String(), true
			}
		}
	}
	return "", false
}

// Check bans m when a name matches and reports whether it did. The ban
// notice is sent first since a banned member can no longer be messaged;
// a failed notice is logged and the ban goes ahead.
func (f *Filter) Check(ctx context.Context, m *discord.Member) (bool, error) {
	pattern, ok := f.Match(m)
	if !ok {
		return false, nil
	}

	log := logging.Ctx(ctx).With().
		Str("user_id", m.User.ID).
		Str("username", m.User.Username).
		Str("pattern", pattern).
		Logger()
	log.Warn().Msg("Member name matched spam filter")

	if _, err := f.mod.SendDM(ctx, m.User.ID, discord.MessageSend{Content: f.notice}); err != nil {
		log.Warn().Err(err).Msg("Failed to send ban notice")
	}

	if err := f.mod.BanMember(ctx, m.GuildID, m.User.ID, fmt.Sprintf(auditReason, pattern)); err != nil {
		return false, fmt.Errorf("ban %s: %w", m.User.ID, err)
	}

	metrics.AntispamBans.WithLabelValues(pattern).Inc()
	log.Info().Msg("Banned member")
	return true, nil
}
