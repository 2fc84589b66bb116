// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package reviews

import (
	"math"
	"sort"
	"time"
)

// dataset is one immutable generation of review data. A refresh builds a new
// dataset and swaps it in whole; nothing mutates a published dataset.
type dataset struct {
	groups map[string][]Record
	// names and ids are the two directions of the id binding:
	// names[id-1] is the product bound to id and ids[name] is its id.
	names []string
	ids   map[string]int

	stats    Stats
	statsErr error

	expiration time.Time
	hash       string
	populated  bool
}

// newDataset groups records by product in arrival order and assigns ids by
// first appearance, starting at 1.
func newDataset(records []Record, expiration time.Time, hash string) *dataset {
	ds := &dataset{
		groups:     make(map[string][]Record),
		ids:        make(map[string]int),
		expiration: expiration,
		hash:       hash,
		populated:  true,
	}

	for _, rec := range records {
		if _, ok := ds.ids[rec.Name]; !ok {
			ds.names = append(ds.names, rec.Name)
			ds.ids[rec.Name] = len(ds.names)
		}
		ds.groups[rec.Name] = append(ds.groups[rec.Name], rec)
	}

	ds.stats, ds.statsErr = computeStats(records, len(ds.names))
	return ds
}

// datasetFromGroups rebuilds a dataset from snapshot groups. Map order is
// lost in JSON, so arrival order is recovered from record sequence numbers.
func datasetFromGroups(groups map[string][]Record, expiration time.Time) *dataset {
	var records []Record
	for name, group := range groups {
		for _, rec := range group {
			rec.Name = name
			records = append(records, rec)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Seq != records[j].Seq {
			return records[i].Seq < records[j].Seq
		}
		return records[i].Name < records[j].Name
	})
	return newDataset(records, expiration, "")
}

// withExpiration returns a shallow copy expiring at t. The copy shares the
// read-only groups and indexes.
func (ds *dataset) withExpiration(t time.Time) *dataset {
	next := *ds
	next.expiration = t
	return &next
}

// computeStats returns the mean and sample standard deviation of the present
// ratings, rounded to two decimals.
func computeStats(records []Record, products int) (Stats, error) {
	stats := Stats{Reviews: len(records), Products: products}

	var sum float64
	for _, rec := range records {
		if rec.Rating != nil {
			sum += float64(*rec.Rating)
			stats.Rated++
		}
	}
	if stats.Rated == 0 {
		return stats, ErrEmptyStatistics
	}

	mean := sum / float64(stats.Rated)

	var variance float64
	if stats.Rated > 1 {
		for _, rec := range records {
			if rec.Rating != nil {
				d := float64(*rec.Rating) - mean
				variance += d * d
			}
		}
		variance /= float64(stats.Rated - 1)
	}

	stats.Average = round2(mean)
	stats.StdDev = round2(math.Sqrt(variance))
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
