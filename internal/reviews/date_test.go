// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package reviews

import (
	"errors"
	"testing"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{"slashes two digit year", "11/29/15", "2015-11-29", true},
		{"slashes four digit year", "3/7/2016", "2016-03-07", true},
		{"dashes", "06-01-2021", "2021-06-01", true},
		{"dots", "12.25.19", "2019-12-25", true},
		{"single digit year", "1/2/9", "2009-01-02", true},
		{"surrounding space", "  7/4/17 ", "2017-07-04", true},
		{"leap day", "2/29/16", "2016-02-29", true},
		{"already normalized", "2021-06-01", "2021-06-01", true},
		{"doubled dashes", "11--29--2015", "2015-11-29", true},
		{"doubled dots", "3..4..16", "2016-03-04", true},
		{"doubled slashes", "11//29//15", "2015-11-29", true},
		{"partly doubled separator", "11//29/15", SentinelDate, false},
		{"tripled separator", "11///29///15", SentinelDate, false},
		{"quadrupled separator", "11----29----15", SentinelDate, false},
		{"doubled then mixed", "11--29/15", SentinelDate, false},
		{"impossible date", "02.30.99", SentinelDate, false},
		{"garbage", "garbage", SentinelDate, false},
		{"empty", "", SentinelDate, false},
		{"mixed separators", "11/29-15", SentinelDate, false},
		{"three digit year", "1/1/215", SentinelDate, false},
		{"month out of range", "13/01/15", SentinelDate, false},
		{"two fields", "11/29", SentinelDate, false},
		{"signed field", "+1/2/15", SentinelDate, false},
		{"not a leap year", "2/29/17", SentinelDate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if tt.valid && err != nil {
				t.Errorf("NormalizeDate(%q) unexpected error: %v", tt.input, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidDate) {
				t.Errorf("NormalizeDate(%q) expected ErrInvalidDate, got %v", tt.input, err)
			}
		})
	}
}

func TestNormalizeDateIdempotent(t *testing.T) {
	inputs := []string{
		"11/29/15", "3/7/2016", "06-01-2021", "12.25.19", "11--29--2015",
		"11//29/15", "02.30.99", "garbage", "", "2000-01-01", "1/1/0099",
	}

	for _, in := range inputs {
		once, _ := NormalizeDate(in)
		twice, err := NormalizeDate(once)
		if err != nil {
			t.Errorf("normalized form %q of %q was rejected: %v", once, in, err)
		}
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
