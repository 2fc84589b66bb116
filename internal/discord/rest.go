// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/metrics"
)

const (
	// DefaultAPIURL is the versioned REST base.
	DefaultAPIURL = "https://discord.com/api/v10"

	// maxRetryAfter bounds how long a 429 may stall a caller.
	maxRetryAfter = 30 * time.Second
)

// ClientConfig configures the REST client.
type ClientConfig struct {
	Token     string
	BaseURL   string
	UserAgent string
	// RequestsPerSecond and Burst shape the client-side limiter.
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// Client is a minimal Discord REST client covering what the bot sends.
type Client struct {
	token     string
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a REST client; zero config values get defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "DiscordBot (https://github.com/tomtom215/elmerbot, 1.0)"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		token:     cfg.Token,
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// CreateMessage posts msg to a channel.
func (c *Client) CreateMessage(ctx context.Context, channelID string, msg MessageSend) (*Message, error) {
	var out Message
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	if err := c.do(ctx, http.MethodPost, path, "create_message", msg, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendText posts plain text to a channel.
func (c *Client) SendText(ctx context.Context, channelID, text string) (*Message, error) {
	return c.CreateMessage(ctx, channelID, MessageSend{Content: text})
}

// SendEmbed posts a single embed to a channel.
func (c *Client) SendEmbed(ctx context.Context, channelID string, embed Embed) (*Message, error) {
	return c.CreateMessage(ctx, channelID, MessageSend{Embeds: []Embed{embed}})
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	path := "/channels/" + url.PathEscape(channelID) + "/messages/" + url.PathEscape(messageID)
	return c.do(ctx, http.MethodDelete, path, "delete_message", nil, nil, nil)
}

// TriggerTyping shows the typing indicator in a channel for a few seconds.
func (c *Client) TriggerTyping(ctx context.Context, channelID string) error {
	path := "/channels/" + url.PathEscape(channelID) + "/typing"
	return c.do(ctx, http.MethodPost, path, "typing", nil, nil, nil)
}

// CreateDM opens (or returns) the DM channel with a user.
func (c *Client) CreateDM(ctx context.Context, userID string) (*Channel, error) {
	var out Channel
	body := map[string]string{"recipient_id": userID}
	if err := c.do(ctx, http.MethodPost, "/users/@me/channels", "create_dm", body, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendDM opens a DM channel with a user and posts msg to it.
func (c *Client) SendDM(ctx context.Context, userID string, msg MessageSend) (*Message, error) {
	channel, err := c.CreateDM(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.CreateMessage(ctx, channel.ID, msg)
}

// BanMember bans a user from a guild, recording reason in the audit log and
// deleting their last day of messages.
func (c *Client) BanMember(ctx context.Context, guildID, userID, reason string) error {
	path := "/guilds/" + url.PathEscape(guildID) + "/bans/" + url.PathEscape(userID)
	body := map[string]int{"delete_message_seconds": 86400}
	headers := http.Header{}
	if reason != "" {
		headers.Set("X-Audit-Log-Reason", url.PathEscape(reason))
	}
	return c.do(ctx, http.MethodPut, path, "ban_member", body, nil, headers)
}

// do sends one request, retrying once after a 429.
func (c *Client) do(ctx context.Context, method, path, route string, body, out any, headers http.Header) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", route, err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := c.send(ctx, method, path, payload, headers)
		if err != nil {
			return fmt.Errorf("discord %s: %w", route, err)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		metrics.RecordRESTRequest(route, resp.StatusCode)
		if err != nil {
			return fmt.Errorf("discord %s: failed to read response: %w", route, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt == 0 {
			wait := retryAfter(resp.Header, data)
			logging.Ctx(ctx).Warn().Str("route", route).Dur("retry_after", wait).Msg("Discord rate limited, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			continue
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{Status: resp.StatusCode, Route: route}
			_ = json.Unmarshal(data, apiErr)
			return apiErr
		}

		if out != nil && resp.StatusCode != http.StatusNoContent && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("discord %s: failed to decode response: %w", route, err)
			}
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, headers http.Header) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header[k] = v
	}

	return c.http.Do(req)
}

// retryAfter reads the 429 wait from the JSON body, falling back to the
// Retry-After header, capped at maxRetryAfter.
func retryAfter(header http.Header, body []byte) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	wait := time.Second
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		wait = time.Duration(payload.RetryAfter * float64(time.Second))
	} else if secs, err := strconv.ParseFloat(header.Get("Retry-After"), 64); err == nil && secs > 0 {
		wait = time.Duration(secs * float64(time.Second))
	}
	return min(wait, maxRetryAfter)
}
