// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package reviews

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Spreadsheet column headers.
const (
	ColumnName     = "Whisky Name"
	ColumnUsername = "Reviewer's Reddit Username"
	ColumnLink     = "Link To Reddit Review"
	ColumnPrice    = "Full Bottle Price Paid"
	ColumnDate     = "Date of Review"
	ColumnRating   = "Reviewer Rating"
)

var requiredColumns = []string{
	ColumnName, ColumnUsername, ColumnLink, ColumnPrice, ColumnDate, ColumnRating,
}

// ParseCSV reads the review spreadsheet export. Malformed dates and ratings
// do not stop ingestion: each is replaced (SentinelDate, no rating) and
// reported as a ParseWarning. Rows without a product name are skipped.
// The only hard failures are a missing header column and I/O errors.
func ParseCSV(r io.Reader) ([]Record, []*ParseWarning, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: empty document", ErrMissingColumn)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[strings.TrimSpace(h)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	var (
		records  []Record
		warnings []*ParseWarning
	)

	for row := 0; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				warnings = append(warnings, &ParseWarning{Row: row, Field: "row", Err: err})
				continue
			}
			return nil, nil, fmt.Errorf("read row %d: %w", row, err)
		}

		get := func(column string) string {
			i := columns[column]
			if i >= len(fields) {
				return ""
			}
			return fields[i]
		}

		name := strings.TrimSpace(get(ColumnName))
		if name == "" {
			continue
		}

		rawDate := get(ColumnDate)
		date, err := NormalizeDate(rawDate)
		if err != nil {
			warnings = append(warnings, &ParseWarning{Row: row, Field: "date", Value: rawDate, Err: err})
		}

		rating, warning := parseRating(get(ColumnRating))
		if warning != nil {
			warning.Row = row
			warnings = append(warnings, warning)
		}

		records = append(records, Record{
			Name:     name,
			Username: strings.TrimSpace(get(ColumnUsername)),
			Link:     strings.TrimSpace(get(ColumnLink)),
			Price:    get(ColumnPrice),
			Date:     date,
			Rating:   rating,
			Seq:      row,
		})
	}

	return records, warnings, nil
}

// parseRating returns nil for an empty field, and nil plus a warning for
// anything that is not an integer.
func parseRating(raw string) (*int, *ParseWarning) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, &ParseWarning{Field: "rating", Value: raw, Err: ErrInvalidRating}
	}
	return intPtr(n), nil
}
