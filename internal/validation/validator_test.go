// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same instance")
	}
}

type searchQuery struct {
	Q     string `json:"q" validate:"required,max=100"`
	Limit int    `json:"limit" validate:"min=1,max=25"`
}

func TestValidateStruct_Valid(t *testing.T) {
	if err := ValidateStruct(&searchQuery{Q: "stagg", Limit: 5}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     searchQuery
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{"missing query", searchQuery{Limit: 5}, "q", "required", "q is required"},
		{"limit too small", searchQuery{Q: "x", Limit: 0}, "limit", "min", "limit must be at least 1"},
		{"limit too large", searchQuery{Q: "x", Limit: 26}, "limit", "max", "limit must be at most 25"},
		{"query too long", searchQuery{Q: strings.Repeat("a", 101), Limit: 5}, "q", "max", "q must be at most 100 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			first := err.Errors()[0]
			if first.Field() != tt.wantField || first.Tag() != tt.wantTag {
				t.Errorf("expected %s/%s, got %s/%s", tt.wantField, tt.wantTag, first.Field(), first.Tag())
			}
			if first.Error() != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, first.Error())
			}
		})
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	err := ValidateStruct(&searchQuery{Limit: 5})
	apiErr := err.ToAPIError()

	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR, got %s", apiErr.Code)
	}
	if apiErr.Message != "q is required" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "q" {
		t.Errorf("unexpected details %v", apiErr.Details)
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	err := ValidateStruct(&searchQuery{Limit: 100})
	apiErr := err.ToAPIError()

	fields, ok := apiErr.Details["fields"].([]map[string]any)
	if !ok || len(fields) != 2 {
		t.Fatalf("expected 2 field details, got %v", apiErr.Details)
	}
	if !strings.Contains(apiErr.Message, "q is required") || !strings.Contains(apiErr.Message, "limit must be at most 25") {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

type nested struct {
	Discord struct {
		GuildID string `koanf:"guild_id" validate:"omitempty,snowflake"`
	} `koanf:"discord"`
	Feed struct {
		Subreddits []string `koanf:"subreddits" validate:"dive,subreddit"`
	} `koanf:"feed"`
	Currency struct {
		Codes []string `koanf:"currencies" validate:"dive,currency"`
	} `koanf:"currency"`
}

func TestCustomTags(t *testing.T) {
	var ok nested
	ok.Discord.GuildID = "123456789012345678"
	ok.Feed.Subreddits = []string{"bourbon", "worldwhisky", "Scotch_2"}
	ok.Currency.Codes = []string{"USD", "EUR"}
	if err := ValidateStruct(&ok); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*nested)
		wantMsg string
	}{
		{"short snowflake", func(n *nested) { n.Discord.GuildID = "1234" }, "discord.guild_id must be a Discord id"},
		{"prefixed subreddit", func(n *nested) { n.Feed.Subreddits = []string{"r/bourbon"} }, "feed.subreddits[0] must be a subreddit name"},
		{"lower-case currency", func(n *nested) { n.Currency.Codes = []string{"usd"} }, "currency.currencies[0] must be a three-letter currency code"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := ok
			tt.mutate(&n)
			err := ValidateStruct(&n)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestOneofMessage(t *testing.T) {
	type modeConfig struct {
		Mode string `koanf:"mode" validate:"oneof=bot reddit all"`
	}
	err := ValidateStruct(&modeConfig{Mode: "chat"})
	if err == nil || err.Error() != "mode must be one of: bot reddit all" {
		t.Errorf("unexpected result %v", err)
	}
}
