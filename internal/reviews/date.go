// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package reviews

import (
	"strconv"
	"strings"
	"time"
)

// SentinelDate replaces review dates that cannot be normalized.
const SentinelDate = "2000-01-01"

// dateSeparators are tried in order; the first one present is used for the
// whole value.
const dateSeparators = "/-."

// NormalizeDate converts a free-form month/day/year review date to
// YYYY-MM-DD. Already normalized input is returned unchanged.
//
// Accepted forms use one separator from "/", "-" or "." between exactly three
// numeric fields. A separator doubled at every position ("11--29--2015") is
// collapsed first; one doubled only in places ("11//29/15") is not. Years
// below 100 are read as 20xx. Anything else, including an impossible calendar
// date, yields SentinelDate and ErrInvalidDate.
func NormalizeDate(raw string) (string, error) {
	value := strings.TrimSpace(raw)

	if len(value) == len(time.DateOnly) {
		if t, err := time.Parse(time.DateOnly, value); err == nil {
			return t.Format(time.DateOnly), nil
		}
	}

	i := strings.IndexAny(value, dateSeparators)
	if i < 0 {
		return SentinelDate, ErrInvalidDate
	}
	sep := value[i : i+1]
	parts := strings.Split(collapseDoubled(value, sep), sep)
	if len(parts) != 3 {
		return SentinelDate, ErrInvalidDate
	}

	month, ok := dateField(parts[0], 2)
	if !ok {
		return SentinelDate, ErrInvalidDate
	}
	day, ok := dateField(parts[1], 2)
	if !ok {
		return SentinelDate, ErrInvalidDate
	}
	year, ok := dateField(parts[2], 4)
	if !ok || len(parts[2]) == 3 {
		return SentinelDate, ErrInvalidDate
	}
	if year < 100 {
		year += 2000
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return SentinelDate, ErrInvalidDate
	}
	return t.Format(time.DateOnly), nil
}

// collapseDoubled halves every run of sep when each run in value is exactly
// two long, and returns value unchanged otherwise.
func collapseDoubled(value, sep string) string {
	doubled := sep + sep
	if !strings.Contains(value, doubled) {
		return value
	}
	collapsed := strings.ReplaceAll(value, doubled, sep)
	if 2*strings.Count(collapsed, sep) != strings.Count(value, sep) {
		return value
	}
	return collapsed
}

// dateField parses an unsigned decimal of 1..maxDigits digits.
func dateField(s string, maxDigits int) (int, bool) {
	if s == "" || len(s) > maxDigits {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}
