// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

// Package feed announces new whisky reviews posted on Reddit.
//
// Every poll interval the newest submissions of each configured subreddit are
// fetched concurrently. A submission is picked up when it was created after
// the subreddit's cursor, its title contains the keyword and it was not seen
// before. After the announce delay, which gives the author time to post the
// review text as a comment, the author's oldest comment is used as a blurb
// and an embed is posted to every review channel.
//
// The cursor and the seen markers live in BadgerDB so restarts neither skip
// nor repeat reviews.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"

	"github.com/tomtom215/elmerbot/internal/discord"
	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/metrics"
)

const (
	permalinkBase  = "https://www.reddit.com"
	maxEmbedTitle  = 256
	deletedAuthor  = "[deleted]"
	defaultKeyword = "review"
)

// Announcer posts embeds to Discord channels.
type Announcer interface {
	SendEmbed(ctx context.Context, channelID string, embed discord.Embed) (*discord.Message, error)
}

// Config configures a Poller.
type Config struct {
	Subreddits    []string
	Limit         int
	PollInterval  time.Duration
	AnnounceDelay time.Duration
	BlurbLength   int
	Keyword       string
	Workers       int
	ChannelIDs    []string
}

// Poller watches subreddits and announces matching submissions. It
// implements suture.Service.
type Poller struct {
	cfg     Config
	reddit  *Reddit
	state   *State
	out     Announcer
	now     func() time.Time
	started time.Time
	pending conc.WaitGroup
}

// NewPoller creates a poller; zero config values get defaults.
func NewPoller(cfg Config, reddit *Reddit, state *State, out Announcer) *Poller {
	if cfg.Limit <= 0 {
		cfg.Limit = 20
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.AnnounceDelay < 0 {
		cfg.AnnounceDelay = 0
	}
	if cfg.BlurbLength <= 0 {
		cfg.BlurbLength = 400
	}
	if cfg.Keyword == "" {
		cfg.Keyword = defaultKeyword
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	return &Poller{
		cfg:     cfg,
		reddit:  reddit,
		state:   state,
		out:     out,
		now:     time.Now,
		started: time.Now(),
	}
}

// Serve polls until ctx is cancelled, then waits for scheduled
// announcements to give up.
func (p *Poller) Serve(ctx context.Context) error {
	log := logging.Ctx(ctx).With().Str("component", "feed").Logger()
	log.Info().
		Strs("subreddits", p.cfg.Subreddits).
		Dur("interval", p.cfg.PollInterval).
		Msg("Feed poller started")

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		p.Poll(ctx)
		select {
		case <-ctx.Done():
			p.Wait()
			log.Info().Msg("Feed poller stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) String() string { return "feed-poller" }

// Poll checks every subreddit once and returns how many submissions were
// scheduled for announcement.
func (p *Poller) Poll(ctx context.Context) int {
	scheduled := make([]int, len(p.cfg.Subreddits))
	workers := pool.New().WithMaxGoroutines(p.cfg.Workers)
	for i, sub := range p.cfg.Subreddits {
		workers.Go(func() {
			n, err := p.pollSubreddit(ctx, sub)
			if err != nil {
				metrics.FeedPollErrors.WithLabelValues(sub).Inc()
				logging.Ctx(ctx).Warn().Err(err).Str("subreddit", sub).Msg("Subreddit poll failed")
				return
			}
			scheduled[i] = n
		})
	}
	workers.Wait()

	total := 0
	for _, n := range scheduled {
		total += n
	}
	return total
}

// Wait blocks until every scheduled announcement has finished or given up.
func (p *Poller) Wait() {
	if r := p.pending.WaitAndRecover(); r != nil {
		logging.Error().Str("panic", r.String()).Msg("Feed announcement panicked")
	}
}

func (p *Poller) pollSubreddit(ctx context.Context, sub string) (int, error) {
	start := p.now()

	cursor, ok, err := p.state.Cursor(sub)
	if err != nil {
		return 0, err
	}
	if !ok {
		cursor = p.started
	}

	posts, err := p.reddit.NewPosts(ctx, sub, p.cfg.Limit)
	if err != nil {
		return 0, err
	}

	keyword := strings.ToLower(p.cfg.Keyword)
	n := 0
	for _, post := range posts {
		if !post.Created().After(cursor) || !strings.Contains(strings.ToLower(post.Title), keyword) {
			continue
		}
		fresh, err := p.state.MarkSeen(post.ID)
		if err != nil {
			return n, err
		}
		if !fresh {
			continue
		}
		logging.Ctx(ctx).Info().
			Str("subreddit", sub).
			Str("post_id", post.ID).
			Str("title", post.Title).
			Msg("Scheduling review announcement")
		p.schedule(ctx, post)
		n++
	}

	return n, p.state.SetCursor(sub, start)
}

func (p *Poller) schedule(ctx context.Context, post Post) {
	p.pending.Go(func() {
		if p.cfg.AnnounceDelay > 0 {
			timer := time.NewTimer(p.cfg.AnnounceDelay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		p.announce(ctx, post)
	})
}

func (p *Poller) announce(ctx context.Context, post Post) {
	log := logging.Ctx(ctx).With().Str("subreddit", post.Subreddit).Str("post_id", post.ID).Logger()

	comments, err := p.reddit.Comments(ctx, post.Permalink)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load comments, announcing without blurb")
	}
	embed := Announcement(post, Blurb(post, comments, p.cfg.BlurbLength))

	sent := 0
	for _, channel := range p.cfg.ChannelIDs {
		if _, err := p.out.SendEmbed(ctx, channel, embed); err != nil {
			log.Error().Err(err).Str("channel_id", channel).Msg("Failed to announce review")
			continue
		}
		sent++
	}
	if sent > 0 {
		metrics.FeedAnnounced.WithLabelValues(post.Subreddit).Inc()
		log.Info().Int("channels", sent).Msg("Announced review")
	}
}

// Blurb returns the author's oldest comment cut to limit runes, or "" when
// the author has not commented.
func Blurb(post Post, comments []Comment, limit int) string {
	if post.Author == "" || post.Author == deletedAuthor {
		return ""
	}
	var oldest *Comment
	for i := range comments {
		c := &comments[i]
		if c.Author != post.Author {
			continue
		}
		if oldest == nil || c.CreatedUTC < oldest.CreatedUTC {
			oldest = c
		}
	}
	if oldest == nil {
		return ""
	}
	return truncate(oldest.Body, limit, "...")
}

// Announcement builds the embed for a review submission.
func Announcement(post Post, blurb string) discord.Embed {
	lines := []string{permalinkBase + post.Permalink + "\n"}
	if blurb != "" {
		lines = append(lines, blurb)
	}

	embed := discord.Embed{
		Title:       truncate(fmt.Sprintf("**New Review from u/%s: %s**", post.Author, post.Title), maxEmbedTitle, ""),
		Description: strings.Join(lines, "\n"),
		Color:       discord.ColorGreen,
	}
	if strings.HasPrefix(post.URL, "https://") || strings.HasPrefix(post.URL, "http://") {
		embed.Thumbnail = &discord.EmbedThumbnail{URL: post.URL}
	}
	return embed
}

func truncate(s string, limit int, suffix string) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + suffix
}
