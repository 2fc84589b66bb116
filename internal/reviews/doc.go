// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

/*
Package reviews mirrors the community whisky review spreadsheet in memory and
answers the bot's lookups against it.

# Data Flow

A refresh takes the first of these that works:

 1. an unexpired snapshot file from a previous run (warm start)
 2. the spreadsheet CSV export fetched over HTTP

Fetched CSV is hashed; an identical body only extends the expiration. A new
body is parsed row by row. Bad dates become 2000-01-01 and bad ratings become
"no rating", each logged with its row index and raw value. Records are grouped
by product name in arrival order and products get ids 1..n by first
appearance. Rating mean and sample standard deviation are computed over rated
records only. The new dataset is swapped in whole and written back to the
snapshot file.

# Refresh Policy

Data expires one hour after a refresh. Expiry is checked lazily by each query:

  - never loaded: the query waits for the refresh (shared by all waiters)
  - loaded but stale: the query gets the old data; the refresh runs in the
    background

Only one refresh runs at a time. A failed fetch leaves the old data and its
expiration in place, so the next query tries again.

# Usage

	store := reviews.New(reviews.Config{
	    Source:   reviews.NewHTTPSource(reviews.HTTPSourceConfig{URL: url}),
	    Snapshot: reviews.NewSnapshotFile(reviews.DefaultSnapshotPath),
	})

	for _, m := range store.Search(ctx, "stagg", 5) {
	    fmt.Printf("%s [#%d] %d\n", m.Name, m.ID, m.Score)
	}
	latest := store.MostRecent(ctx, id, 5)
	avg, err := store.AverageRating(ctx) // ErrEmptyStatistics when nothing is rated

Product ids are reassigned on every refresh; resolve an id again right before
using it in a later conversation turn.
*/
package reviews
