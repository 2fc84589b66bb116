// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package discord

import "fmt"

// Embed colors used by the bot.
const (
	ColorGreen = 0x00DD00
	ColorRed   = 0xDD0000
	ColorBlue  = 0x3498DB
)

// Gateway intents.
const (
	IntentGuilds         = 1 << 0
	IntentGuildMembers   = 1 << 1
	IntentGuildMessages  = 1 << 9
	IntentDirectMessages = 1 << 12
	IntentMessageContent = 1 << 15

	// DefaultIntents covers messages, member joins and member updates.
	DefaultIntents = IntentGuilds | IntentGuildMembers | IntentGuildMessages |
		IntentDirectMessages | IntentMessageContent
)

// User is a Discord account.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
	Bot        bool   `json:"bot,omitempty"`
}

// Mention returns the <@id> form.
func (u User) Mention() string {
	return fmt.Sprintf("<@%s>", u.ID)
}

// Member is a user in the context of a guild.
type Member struct {
	GuildID string `json:"guild_id,omitempty"`
	User    *User  `json:"user,omitempty"`
	Nick    string `json:"nick,omitempty"`
}

// Message is a received or created channel message.
type Message struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id,omitempty"`
	Author    User   `json:"author"`
	Content   string `json:"content"`
}

// Channel is the subset of channel fields the bot needs (DM creation).
type Channel struct {
	ID   string `json:"id"`
	Type int    `json:"type"`
}

// Ready is the READY dispatch payload.
type Ready struct {
	User      User   `json:"user"`
	SessionID string `json:"session_id"`
}

// Embed is a rich message body.
type Embed struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	URL         string          `json:"url,omitempty"`
	Color       int             `json:"color,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
	Fields      []EmbedField    `json:"fields,omitempty"`
	Thumbnail   *EmbedThumbnail `json:"thumbnail,omitempty"`
	Footer      *EmbedFooter    `json:"footer,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedThumbnail struct {
	URL string `json:"url"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// MessageSend is the create-message request body.
type MessageSend struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// APIError is a non-success REST response.
type APIError struct {
	Status  int    `json:"-"`
	Route   string `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("discord %s: status %d: %s (code %d)", e.Route, e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("discord %s: status %d", e.Route, e.Status)
}
