// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package reviews

// Record is one community review. Records are never modified after ingestion.
type Record struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Link     string `json:"link"`
	Price    string `json:"price"`
	// Date is normalized to YYYY-MM-DD, so string order is date order.
	Date   string `json:"date"`
	Rating *int   `json:"rating"`
	// Seq is the zero-based row position in the source at ingestion.
	Seq int `json:"id"`
}

// HasRating reports whether the source row carried a usable rating.
func (r Record) HasRating() bool { return r.Rating != nil }

// cloneRecords copies records for callers, including the rating each one
// points at. The result is never nil.
func cloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, rec := range records {
		if rec.Rating != nil {
			rec.Rating = intPtr(*rec.Rating)
		}
		out[i] = rec
	}
	return out
}

// Match is one fuzzy search result.
type Match struct {
	Name  string `json:"name"`
	ID    int    `json:"id"`
	Score int    `json:"score"`
}

// Stats are the aggregate rating figures of the whole dataset.
type Stats struct {
	Average  float64 `json:"average"`
	StdDev   float64 `json:"stddev"`
	Rated    int     `json:"rated"`
	Reviews  int     `json:"reviews"`
	Products int     `json:"products"`
}

func intPtr(v int) *int { return &v }
