// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tomtom215/elmerbot/internal/discord"
	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/reviews"
)

// recentReviews is how many reviews !info lists.
const recentReviews = 5

// InfoCommand shows rating statistics and recent reviews for one product.
type InfoCommand struct {
	store ReviewQuerier
}

func NewInfoCommand(store ReviewQuerier) *InfoCommand {
	return &InfoCommand{store: store}
}

func (c *InfoCommand) Name() string { return "info" }

func (c *InfoCommand) Description() string {
	return "Show review statistics for a whisky, by the id from search results or by name.\n" +
		"Examples: `!info 42` or `!info stagg 2014`"
}

func (c *InfoCommand) Handle(ctx context.Context, req *Request) error {
	channel := req.Message.ChannelID

	var pending *discord.Message
	if c.store.IsStale() {
		msg, err := req.Reply.SendText(ctx, channel, reloadingNotice)
		if err != nil {
			return err
		}
		pending = msg
	}
	defer func() {
		if pending == nil {
			return
		}
		if err := req.Reply.DeleteMessage(ctx, channel, pending.ID); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to delete reloading notice")
		}
	}()
	typing(ctx, req)

	var records []reviews.Record
	if isNumeric(req.Args) {
		// Out-of-range ids simply find nothing.
		id, _ := strconv.Atoi(req.Args)
		records = c.store.Find(ctx, id)
		if len(records) == 0 {
			_, err := req.Reply.SendEmbed(ctx, channel, discord.Embed{
				Title:       fmt.Sprintf("No whisky with id #%d.", id),
				Description: fmt.Sprintf("Ids can change when the review data reloads. Try using **%ssearch** again.", req.Prefix),
				Color:       discord.ColorRed,
			})
			return err
		}
	} else {
		pattern := Sanitize(req.Args)
		if best := c.store.Search(ctx, pattern, 1); len(best) > 0 {
			_, records = c.store.FindByName(ctx, best[0].Name)
		}
		if len(records) == 0 {
			_, err := req.Reply.SendEmbed(ctx, channel, discord.Embed{
				Title:       fmt.Sprintf("Could not find %q", pattern),
				Description: fmt.Sprintf("Try using **%ssearch** first.", req.Prefix),
				Color:       discord.ColorRed,
			})
			return err
		}
	}

	_, err := req.Reply.SendEmbed(ctx, channel, discord.Embed{
		Title:       records[0].Name,
		Description: strings.Join(c.describe(ctx, records), "\n"),
		Color:       discord.ColorGreen,
	})
	return err
}

// describe builds the embed body. Only the global statistics are read from
// the store; everything about the product comes from records.
func (c *InfoCommand) describe(ctx context.Context, records []reviews.Record) []string {
	sum, rated := 0, 0
	for _, r := range records {
		if r.HasRating() {
			sum += *r.Rating
			rated++
		}
	}
	if rated == 0 {
		return []string{"**Average rating:** No reviews with scores."}
	}

	avg := round2(float64(sum) / float64(rated))
	lines := []string{fmt.Sprintf("**Average rating:** %.2f based on %d reviews with scores.", avg, rated)}

	global, err := c.store.Stats(ctx)
	switch {
	case err == nil:
		lines = append(lines, fmt.Sprintf("It is %+.2f from the global average of %.2f with standard deviation %.2f",
			round2(avg-global.Average), global.Average, global.StdDev))
	case !errors.Is(err, reviews.ErrEmptyStatistics):
		logging.Ctx(ctx).Warn().Err(err).Msg("Global review statistics unavailable")
	}

	lines = append(lines, "**Most recent reviews:**")
	for i, r := range reviews.Newest(records, recentReviews) {
		rating := "no rating"
		if r.HasRating() {
			rating = strconv.Itoa(*r.Rating)
		}
		lines = append(lines, fmt.Sprintf("%d. %s gave it %s. [Link](%s)", i+1, r.Username, rating, r.Link))
	}
	return lines
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
