// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package reviews

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/elmerbot/internal/fuzzy"
	"github.com/tomtom215/elmerbot/internal/logging"
	"github.com/tomtom215/elmerbot/internal/metrics"
)

const (
	// DefaultTTL is how long a refreshed dataset is served before it is stale.
	DefaultTTL = time.Hour

	// DefaultSearchLimit caps Search results when no limit is given.
	DefaultSearchLimit = 5

	// SearchCutoff is the minimum fuzzy score (0-100) for a search match.
	SearchCutoff = 70

	refreshKey = "refresh"
)

// State is the lifecycle position of a Store.
type State string

const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateStale   State = "stale"
)

// Status is a point-in-time copy of the store's bookkeeping.
type Status struct {
	State       State     `json:"state"`
	Products    int       `json:"products"`
	Records     int       `json:"records"`
	Expiration  time.Time `json:"expiration"`
	LastRefresh time.Time `json:"last_refresh"`
	LastError   string    `json:"last_error,omitempty"`
	Refreshes   int64     `json:"refreshes"`
	Failures    int64     `json:"failures"`
}

// Config configures a Store.
type Config struct {
	Source Source
	// Snapshot enables warm starts; nil disables persistence.
	Snapshot *SnapshotFile
	TTL      time.Duration
	// Now is the clock; tests replace it.
	Now func() time.Time
}

// Store is the in-memory review dataset with lazy, single-flight refresh.
//
// Queries never take locks: they read the current dataset through an atomic
// pointer. A stale dataset triggers a refresh. If the store has never been
// populated the caller waits for that refresh; otherwise the caller is served
// the old data while the refresh runs in the background. At most one refresh
// runs at a time.
type Store struct {
	source   Source
	snapshot *SnapshotFile
	ttl      time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	current atomic.Pointer[dataset]
	group   singleflight.Group
	loading atomic.Bool

	mu          sync.Mutex
	lastRefresh time.Time
	lastErr     string
	refreshes   int64
	failures    int64
}

// New creates an empty store. Nothing is fetched until the first query or
// an explicit Refresh.
func New(cfg Config) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Store{
		source:   cfg.Source,
		snapshot: cfg.Snapshot,
		ttl:      cfg.TTL,
		now:      cfg.Now,
		logger:   logging.WithComponent("reviews"),
	}
	s.current.Store(&dataset{
		groups:   map[string][]Record{},
		ids:      map[string]int{},
		statsErr: ErrEmptyStatistics,
	})
	return s
}

// IsStale reports whether the next query will trigger a refresh. Command
// handlers use it to show a "reloading" notice first.
func (s *Store) IsStale() bool {
	return s.stale(s.current.Load())
}

func (s *Store) stale(ds *dataset) bool {
	return !ds.populated || !s.now().Before(ds.expiration)
}

// Refresh reloads the dataset, preferring an unexpired snapshot. Concurrent
// callers share one refresh.
func (s *Store) Refresh(ctx context.Context) error {
	return s.shared(ctx, false)
}

// ForceRefresh fetches from the source even when the snapshot or the cached
// content hash says nothing changed.
func (s *Store) ForceRefresh(ctx context.Context) error {
	return s.shared(ctx, true)
}

// shared runs a refresh under the single-flight key and waits for it. The
// refresh itself is detached from ctx so an impatient caller does not abort
// it for everyone else. A forced caller that joined a normal refresh starts
// another flight once that one succeeds, since a normal refresh may have been
// answered from the snapshot or the content hash.
func (s *Store) shared(ctx context.Context, force bool) error {
	for {
		select {
		case res := <-s.flight(ctx, force):
			if forced, _ := res.Val.(bool); force && !forced && res.Err == nil {
				continue
			}
			return res.Err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// flight joins or starts the refresh. The result value records whether the
// flight was forced.
func (s *Store) flight(ctx context.Context, force bool) <-chan singleflight.Result {
	return s.group.DoChan(refreshKey, func() (any, error) {
		return force, s.refresh(context.WithoutCancel(ctx), force)
	})
}

// view returns the dataset a query should answer from.
func (s *Store) view(ctx context.Context) *dataset {
	ds := s.current.Load()
	if !s.stale(ds) {
		return ds
	}

	if !ds.populated {
		if err := s.shared(ctx, false); err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("Query served without review data")
		}
		return s.current.Load()
	}

	s.flight(ctx, false)
	return ds
}

func (s *Store) refresh(ctx context.Context, force bool) error {
	s.loading.Store(true)
	defer s.loading.Store(false)

	start := time.Now()
	s.logger.Info().Bool("force", force).Msg("Reloading review data")

	if !force && s.snapshot != nil {
		if ds, ok := s.loadSnapshot(); ok {
			s.publish(ds)
			s.recordSuccess()
			metrics.RecordRefresh("snapshot", time.Since(start))
			s.logger.Info().
				Int("products", len(ds.names)).
				Time("expiration", ds.expiration).
				Msg("Loaded review data from snapshot")
			return nil
		}
	}

	body, err := s.source.Fetch(ctx)
	if err != nil {
		s.recordFailure(err)
		metrics.RecordRefresh("failed", time.Since(start))
		s.logger.Warn().Err(err).Str("source", s.source.Name()).Msg("Review data fetch failed, keeping previous data")
		return err
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	expiration := s.now().Add(s.ttl)
	prev := s.current.Load()

	if !force && prev.populated && prev.hash == hash {
		next := prev.withExpiration(expiration)
		s.publish(next)
		s.persist(next)
		s.recordSuccess()
		metrics.RecordRefresh("unchanged", time.Since(start))
		s.logger.Info().Str("hash", hash[:16]).Msg("Review data unchanged")
		return nil
	}

	records, warnings, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		s.recordFailure(err)
		metrics.RecordRefresh("failed", time.Since(start))
		s.logger.Error().Err(err).Str("source", s.source.Name()).Msg("Review data could not be parsed, keeping previous data")
		return err
	}
	for _, w := range warnings {
		metrics.ReviewParseWarnings.WithLabelValues(w.Field).Inc()
		s.logger.Warn().
			Str("source", s.source.Name()).
			Int("row", w.Row).
			Str("field", w.Field).
			Str("value", w.Value).
			Err(w.Err).
			Msg("Malformed review field replaced")
	}

	next := newDataset(records, expiration, hash)
	s.publish(next)
	s.persist(next)
	s.recordSuccess()
	metrics.RecordRefresh("fetched", time.Since(start))

	if errors.Is(next.statsErr, ErrEmptyStatistics) {
		s.logger.Warn().Msg("Review data has no rated records")
	}
	s.logger.Info().
		Int("reviews", len(records)).
		Int("products", len(next.names)).
		Int("warnings", len(warnings)).
		Msg("Finished indexing reviews")
	return nil
}

func (s *Store) loadSnapshot() (*dataset, bool) {
	groups, expiration, err := s.snapshot.Load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			metrics.ReviewSnapshotErrors.WithLabelValues("load").Inc()
			s.logger.Warn().Err(err).Msg("Ignoring unreadable review snapshot")
		}
		return nil, false
	}
	if !s.now().Before(expiration) {
		s.logger.Debug().Time("expiration", expiration).Msg("Review snapshot expired")
		return nil, false
	}
	return datasetFromGroups(groups, expiration), true
}

func (s *Store) persist(ds *dataset) {
	if s.snapshot == nil {
		return
	}
	if err := s.snapshot.Save(ds.groups, ds.expiration); err != nil {
		metrics.ReviewSnapshotErrors.WithLabelValues("save").Inc()
		s.logger.Warn().Err(err).Msg("Failed to persist review snapshot")
	}
}

func (s *Store) publish(ds *dataset) {
	s.current.Store(ds)
	metrics.SetDatasetSize(len(ds.names), ds.stats.Reviews)
}

func (s *Store) recordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	s.lastRefresh = s.now()
	s.lastErr = ""
}

func (s *Store) recordFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
	s.lastErr = err.Error()
}

// Status returns a copy of the store's current state.
func (s *Store) Status() Status {
	ds := s.current.Load()

	st := Status{
		Products:   len(ds.names),
		Records:    ds.stats.Reviews,
		Expiration: ds.expiration,
	}
	switch {
	case s.loading.Load():
		st.State = StateLoading
	case !ds.populated:
		st.State = StateEmpty
	case s.stale(ds):
		st.State = StateStale
	default:
		st.State = StateReady
	}

	s.mu.Lock()
	st.LastRefresh = s.lastRefresh
	st.LastError = s.lastErr
	st.Refreshes = s.refreshes
	st.Failures = s.failures
	s.mu.Unlock()
	return st
}

// Populated reports whether any refresh has ever succeeded.
func (s *Store) Populated() bool {
	return s.current.Load().populated
}

// Search returns products whose names fuzzily match pattern with a score of
// at least SearchCutoff, best first, ties in id order. limit <= 0 means
// DefaultSearchLimit. No match is an empty result, not an error.
func (s *Store) Search(ctx context.Context, pattern string, limit int) []Match {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	ds := s.view(ctx)

	found := fuzzy.Extract(pattern, ds.names, limit, SearchCutoff)
	matches := make([]Match, 0, len(found))
	for _, m := range found {
		matches = append(matches, Match{Name: m.Choice, ID: m.Index + 1, Score: m.Score})
	}
	return matches
}

// Find returns a copy of every review of the product bound to id, in
// ingestion order. An unknown id yields an empty slice.
func (s *Store) Find(ctx context.Context, id int) []Record {
	ds := s.view(ctx)
	name, ok := ds.name(id)
	if !ok {
		return []Record{}
	}
	return cloneRecords(ds.groups[name])
}

// FindByName returns the id bound to the exact product name together with
// a copy of its reviews, both read from the same dataset. An unknown name
// yields 0 and an empty slice.
func (s *Store) FindByName(ctx context.Context, name string) (int, []Record) {
	ds := s.view(ctx)
	id, ok := ds.ids[name]
	if !ok {
		return 0, []Record{}
	}
	return id, cloneRecords(ds.groups[name])
}

// ProductName returns the product bound to id.
func (s *Store) ProductName(ctx context.Context, id int) (string, bool) {
	return s.view(ctx).name(id)
}

// MostRecent returns up to limit reviews of the product bound to id, newest
// first. Reviews sharing a date keep ingestion order. limit <= 0 returns all.
func (s *Store) MostRecent(ctx context.Context, id, limit int) []Record {
	ds := s.view(ctx)
	name, ok := ds.name(id)
	if !ok {
		return []Record{}
	}
	return Newest(ds.groups[name], limit)
}

// MostRecentByName is MostRecent keyed by exact product name.
func (s *Store) MostRecentByName(ctx context.Context, name string, limit int) []Record {
	ds := s.view(ctx)
	return Newest(ds.groups[name], limit)
}

// Newest returns a copy of up to limit records, newest first, with equal
// dates kept in their given order. limit <= 0 returns all. Callers holding
// the result of Find use it to rank reviews without resolving the id again.
func Newest(records []Record, limit int) []Record {
	sorted := cloneRecords(records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date > sorted[j].Date
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// AverageRating is the mean of all present ratings, or ErrEmptyStatistics.
func (s *Store) AverageRating(ctx context.Context) (float64, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.Average, nil
}

// RatingStdDev is the sample standard deviation of all present ratings, or
// ErrEmptyStatistics.
func (s *Store) RatingStdDev(ctx context.Context) (float64, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.StdDev, nil
}

// Stats returns the aggregate figures. Counts are filled in even when err is
// ErrEmptyStatistics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ds := s.view(ctx)
	return ds.stats, ds.statsErr
}

func (ds *dataset) name(id int) (string, bool) {
	if id < 1 || id > len(ds.names) {
		return "", false
	}
	return ds.names[id-1], true
}
