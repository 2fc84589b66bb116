// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

// Package fuzzy ranks product names against a search pattern.
//
// Scoring is fuzzywuzzy's weighted ratio (go-fuzzywuzzy's WRatio) on a 0-100
// scale. This package adds what the bot needs on top: choice indexes so
// results can be mapped back to ids, a stable order for equal scores and a
// result cap.
//
//	score := fuzzy.Score("stagg", "George T. Stagg 2014") // 90
//	matches := fuzzy.Extract("stagg", names, 5, 70)
package fuzzy

import (
	"sort"
	"strings"

	fz "github.com/paul-mannino/go-fuzzywuzzy"
)

// Match is a scored choice returned by Extract.
type Match struct {
	Choice string
	Index  int
	Score  int
}

// Process normalizes s the way the scorer sees it: letters lower-cased and
// every other non-alphanumeric rune replaced by a space.
func Process(s string) string {
	return strings.TrimSpace(fz.Cleanse(s, false))
}

// Score returns the weighted similarity of query and choice (0-100). Input
// that is empty after normalization scores 0.
func Score(query, choice string) int {
	if Process(query) == "" || Process(choice) == "" {
		return 0
	}
	return fz.WRatio(query, choice)
}

// Extract scores query against every choice and returns the matches scoring
// at least cutoff, best first. Equal scores keep the order of choices.
// A limit of zero or less returns every match.
func Extract(query string, choices []string, limit, cutoff int) []Match {
	if Process(query) == "" {
		return nil
	}

	pairs, err := fz.ExtractWithoutOrder(query, choices, cutoff)
	if err != nil {
		// Only malformed optional arguments fail.
		return nil
	}

	// Pairs come back in choice order, so a forward scan recovers indexes
	// even when two choices are equal.
	matches := make([]Match, 0, len(pairs))
	next := 0
	for _, p := range pairs {
		for next < len(choices) && choices[next] != p.Match {
			next++
		}
		if next == len(choices) {
			break
		}
		matches = append(matches, Match{Choice: p.Match, Index: next, Score: p.Score})
		next++
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
