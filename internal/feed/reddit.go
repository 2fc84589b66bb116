// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/elmerbot/internal/breaker"
)

// DefaultRedditURL serves the public JSON listings.
const DefaultRedditURL = "https://www.reddit.com"

const maxListingBody = 8 << 20

// Post is a Reddit submission.
type Post struct {
	ID         string  `json:"id"`
	Subreddit  string  `json:"subreddit"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Permalink  string  `json:"permalink"`
	URL        string  `json:"url"`
	CreatedUTC float64 `json:"created_utc"`
}

// Created returns the submission time.
func (p Post) Created() time.Time {
	sec, frac := math.Modf(p.CreatedUTC)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Comment is one comment of a thread, flattened out of the reply tree.
type Comment struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	CreatedUTC float64 `json:"created_utc"`
}

type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type commentData struct {
	Comment
	// Replies is a listing, or "" when there are none.
	Replies json.RawMessage `json:"replies"`
}

// RedditConfig configures a Reddit client.
type RedditConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Reddit reads subreddit listings and comment threads anonymously.
type Reddit struct {
	baseURL   string
	userAgent string
	client    *http.Client
	breaker   *breaker.Breaker[[]byte]
}

// NewReddit creates a client; zero config values get defaults.
func NewReddit(cfg RedditConfig) *Reddit {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultRedditURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "go:elmerdiscord:v1.0.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Reddit{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		breaker:   breaker.New[[]byte]("reddit"),
	}
}

// NewPosts returns the newest submissions of subreddit, newest first.
func (r *Reddit) NewPosts(ctx context.Context, subreddit string, limit int) ([]Post, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")

	body, err := r.get(ctx, "/r/"+url.PathEscape(subreddit)+"/new.json", q)
	if err != nil {
		return nil, err
	}

	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("decode r/%s listing: %w", subreddit, err)
	}

	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p Post
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return nil, fmt.Errorf("decode r/%s post: %w", subreddit, err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// Comments returns every loaded comment of the thread at permalink.
// Collapsed "load more" stubs are skipped.
func (r *Reddit) Comments(ctx context.Context, permalink string) ([]Comment, error) {
	q := url.Values{}
	q.Set("raw_json", "1")
	q.Set("sort", "old")

	body, err := r.get(ctx, strings.TrimSuffix(permalink, "/")+".json", q)
	if err != nil {
		return nil, err
	}

	// The thread is [post listing, comment listing].
	var listings []listing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", permalink, err)
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var out []Comment
	if err := flatten(listings[1].Data.Children, &out); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", permalink, err)
	}
	return out, nil
}

func flatten(children []thing, out *[]Comment) error {
	for _, child := range children {
		if child.Kind != "t1" {
			continue
		}
		var c commentData
		if err := json.Unmarshal(child.Data, &c); err != nil {
			return err
		}
		*out = append(*out, c.Comment)

		replies := bytes.TrimSpace(c.Replies)
		if len(replies) == 0 || replies[0] != '{' {
			continue
		}
		var l listing
		if err := json.Unmarshal(replies, &l); err != nil {
			return err
		}
		if err := flatten(l.Data.Children, out); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reddit) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	endpoint := r.baseURL + path + "?" + q.Encode()
	return r.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", r.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBody))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		return body, nil
	})
}
