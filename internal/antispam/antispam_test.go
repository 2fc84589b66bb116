// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package antispam

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/elmerbot/internal/discord"
)

type fakeModerator struct {
	dms    []string
	bans   []string
	reason string
	dmErr  error
	banErr error
}

func (f *fakeModerator) SendDM(_ context.Context, userID string, msg discord.MessageSend) (*discord.Message, error) {
	if f.dmErr != nil {
		return nil, f.dmErr
	}
	f.dms = append(f.dms, userID+": "+msg.Content)
	return &discord.Message{ID: "dm"}, nil
}

func (f *fakeModerator) BanMember(_ context.Context, guildID, userID, reason string) error {
	if f.banErr != nil {
		return f.banErr
	}
	f.bans = append(f.bans, guildID+"/"+userID)
	f.reason = reason
	return nil
}

func member(username, globalName, nick string) *discord.Member {
	return &discord.Member{
		GuildID: "g1",
		User:    &discord.User{ID: "u1", Username: username, GlobalName: globalName},
		Nick:    nick,
	}
}

func TestMatch(t *testing.T) {
	f, err := New(DefaultPatterns, "", &fakeModerator{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name    string
		member  *discord.Member
		pattern string
	}{
		{"invite in username", member("join discord.gg/abcdef", "", ""), `discord\.gg/\w{3}`},
		{"tag bait in global name", member("bob", "pls add my tag 1234", ""), `add.*tag.*\d{4}`},
		{"debug name in nick", member("bob", "", "elmerbot_spam_name_debugging"), "elmerbot_spam_name_debugging"},
		{"short invite", member("discord.gg/ab", "", ""), ""},
		{"clean", member("whisky_fan", "Whisky Fan", "wf"), ""},
		{"nil user", &discord.Member{GuildID: "g1"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := f.Match(tt.member)
			if ok != (tt.pattern != "") || got != tt.pattern {
				t.Errorf("Match = %q, %v; want %q", got, ok, tt.pattern)
			}
		})
	}
}

func TestCheckBansWithAppealNotice(t *testing.T) {
	mod := &fakeModerator{}
	f, err := New(DefaultPatterns, "appeal123", mod)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	banned, err := f.Check(context.Background(), member("discord.gg/spammy", "", ""))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !banned {
		t.Fatal("expected ban")
	}
	if len(mod.dms) != 1 || !strings.HasSuffix(mod.dms[0], "https://discord.gg/appeal123") {
		t.Errorf("dms = %q", mod.dms)
	}
	if len(mod.bans) != 1 || mod.bans[0] != "g1/u1" {
		t.Errorf("bans = %q", mod.bans)
	}
	if !strings.Contains(mod.reason, `discord\\.gg`) {
		t.Errorf("reason = %q", mod.reason)
	}
}

func TestCheckRejoinNoticeWithoutAppealServer(t *testing.T) {
	mod := &fakeModerator{}
	f, _ := New(DefaultPatterns, "", mod)

	if _, err := f.Check(context.Background(), member("add tag 9999", "", "")); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(mod.dms) != 1 || !strings.Contains(mod.dms[0], "rejoin from another IP") {
		t.Errorf("dms = %q", mod.dms)
	}
}

func TestCheckBansWhenNoticeFails(t *testing.T) {
	mod := &fakeModerator{dmErr: errors.New("cannot send messages to this user")}
	f, _ := New(DefaultPatterns, "", mod)

	banned, err := f.Check(context.Background(), member("discord.gg/spammy", "", ""))
	if err != nil || !banned {
		t.Fatalf("Check = %v, %v; want ban", banned, err)
	}
	if len(mod.bans) != 1 {
		t.Errorf("bans = %q", mod.bans)
	}
}

func TestCheckBanFailure(t *testing.T) {
	mod := &fakeModerator{banErr: errors.New("missing permissions")}
	f, _ := New(DefaultPatterns, "", mod)

	banned, err := f.Check(context.Background(), member("discord.gg/spammy", "", ""))
	if err == nil || banned {
		t.Fatalf("Check = %v, %v; want error", banned, err)
	}
}

func TestCheckIgnoresCleanMember(t *testing.T) {
	mod := &fakeModerator{}
	f, _ := New(DefaultPatterns, "", mod)

	banned, err := f.Check(context.Background(), member("glencairn", "", ""))
	if err != nil || banned {
		t.Fatalf("Check = %v, %v", banned, err)
	}
	if len(mod.dms)+len(mod.bans) != 0 {
		t.Error("clean member was contacted")
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New([]string{"("}, "", &fakeModerator{}); err == nil {
		t.Fatal("expected compile error")
	}
}
