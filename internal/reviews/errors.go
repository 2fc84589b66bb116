// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package reviews

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyStatistics is returned by the rating accessors when no record
	// in the dataset carries a rating.
	ErrEmptyStatistics = errors.New("reviews: no rated records")

	// ErrMissingColumn is returned when the CSV header lacks a required column.
	ErrMissingColumn = errors.New("reviews: missing column")

	// ErrInvalidDate is wrapped by ParseWarning for dates that could not be normalized.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidRating is wrapped by ParseWarning for non-integer ratings.
	ErrInvalidRating = errors.New("invalid rating")
)

// FetchError reports an unreachable source or a non-success response.
type FetchError struct {
	Source     string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status code: %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseWarning describes one malformed field that was replaced during
// ingestion. Row is the zero-based data row index (header excluded).
type ParseWarning struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (w *ParseWarning) Error() string {
	return fmt.Sprintf("row %d: %s %q: %v", w.Row, w.Field, w.Value, w.Err)
}

func (w *ParseWarning) Unwrap() error { return w.Err }

// PersistenceError reports a snapshot read or write failure.
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
