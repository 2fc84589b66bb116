// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package discord

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{Token: "test-token", BaseURL: server.URL, RequestsPerSecond: 1000, Burst: 100})
}

func TestClientSendEmbed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/channels/123/messages" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bot test-token" {
			t.Errorf("Authorization = %q", got)
		}
		var body MessageSend
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if len(body.Embeds) != 1 || body.Embeds[0].Title != "Search Results" || body.Embeds[0].Color != ColorGreen {
			t.Errorf("unexpected embed %+v", body.Embeds)
		}
		_, _ = w.Write([]byte(`{"id":"999","channel_id":"123","content":""}`))
	})

	msg, err := client.SendEmbed(context.Background(), "123", Embed{Title: "Search Results", Color: ColorGreen})
	if err != nil {
		t.Fatalf("SendEmbed: %v", err)
	}
	if msg.ID != "999" {
		t.Errorf("message id = %q", msg.ID)
	}
}

func TestClientAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":50013,"message":"Missing Permissions"}`))
	})

	err := client.DeleteMessage(context.Background(), "1", "2")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Code != 50013 || apiErr.Route != "delete_message" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClientRetriesOnceOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"You are being rate limited.","retry_after":0.01}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.TriggerTyping(context.Background(), "1"); err != nil {
		t.Fatalf("TriggerTyping: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestClientRateLimitGivesUpAfterRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"retry_after":0.01}`))
	})

	err := client.TriggerTyping(context.Background(), "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 APIError, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestClientBanMember(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/guilds/g1/bans/u1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		reason, err := url.PathUnescape(r.Header.Get("X-Audit-Log-Reason"))
		if err != nil || reason != "spam: crypto scam" {
			t.Errorf("audit reason = %q (%v)", reason, err)
		}
		data, _ := io.ReadAll(r.Body)
		var body map[string]int
		if err := json.Unmarshal(data, &body); err != nil || body["delete_message_seconds"] != 86400 {
			t.Errorf("unexpected ban body %s", data)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.BanMember(context.Background(), "g1", "u1", "spam: crypto scam"); err != nil {
		t.Fatalf("BanMember: %v", err)
	}
}

func TestClientSendDM(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users/@me/channels":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["recipient_id"] != "u1" {
				t.Errorf("recipient = %q", body["recipient_id"])
			}
			_, _ = w.Write([]byte(`{"id":"dm1","type":1}`))
		case "/channels/dm1/messages":
			_, _ = w.Write([]byte(`{"id":"m1","channel_id":"dm1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	msg, err := client.SendDM(context.Background(), "u1", MessageSend{Content: "hi"})
	if err != nil {
		t.Fatalf("SendDM: %v", err)
	}
	if msg.ChannelID != "dm1" {
		t.Errorf("channel = %q", msg.ChannelID)
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		body   string
		want   time.Duration
	}{
		{"body", "", `{"retry_after":1.5}`, 1500 * time.Millisecond},
		{"header", "2", `not json`, 2 * time.Second},
		{"default", "", ``, time.Second},
		{"capped", "", `{"retry_after":600}`, maxRetryAfter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Retry-After", tt.header)
			}
			if got := retryAfter(h, []byte(tt.body)); got != tt.want {
				t.Errorf("retryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}
