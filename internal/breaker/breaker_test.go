// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package breaker

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/elmerbot/internal/metrics"
)

func TestBreaker_OpensAfterFailures(t *testing.T) {
	b := New[string]("test-opens")

	if b.State() != "closed" {
		t.Fatalf("expected initial state closed, got %s", b.State())
	}

	// 7 failures and 3 successes: ratio is checked on each failure, so the
	// eleventh call (a failure) is the first with 10+ requests at >= 60%.
	for i := 0; i < 10; i++ {
		_, _ = b.Execute(func() (string, error) {
			if i < 7 {
				return "", errors.New("simulated upstream failure")
			}
			return "ok", nil
		})
	}
	if b.State() != "closed" {
		t.Fatalf("expected closed before the tripping failure, got %s", b.State())
	}

	_, _ = b.Execute(func() (string, error) { return "", errors.New("final failure") })
	if b.State() != "open" {
		t.Fatalf("expected open after 8/11 failures, got %s", b.State())
	}

	_, err := b.Execute(func() (string, error) {
		t.Error("guarded call must not run while open")
		return "", nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if !IsRejected(err) {
		t.Error("IsRejected should be true for an open-state rejection")
	}

	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-opens")); got != 2 {
		t.Errorf("expected state gauge 2 (open), got %v", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("test-opens", "rejected")); got != 1 {
		t.Errorf("expected 1 rejected request, got %v", got)
	}
}

func TestBreaker_StaysClosedBelowThreshold(t *testing.T) {
	b := New[int]("test-below")

	for i := 0; i < 20; i++ {
		_, _ = b.Execute(func() (int, error) {
			if i%2 == 0 {
				return 0, errors.New("flaky")
			}
			return i, nil
		})
	}

	if b.State() != "closed" {
		t.Errorf("expected closed at 50%% failure rate, got %s", b.State())
	}
}

func TestBreaker_PassesResult(t *testing.T) {
	b := New[[]byte]("test-result")

	body, err := b.Execute(func() ([]byte, error) { return []byte("csv"), nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "csv" {
		t.Errorf("expected result passed through, got %q", body)
	}
	if b.Name() != "test-result" {
		t.Errorf("Name() = %q", b.Name())
	}

	wantErr := errors.New("boom")
	if _, err := b.Execute(func() ([]byte, error) { return nil, wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("expected wrapped call error, got %v", err)
	}
	if IsRejected(wantErr) {
		t.Error("ordinary errors are not rejections")
	}
}

func TestStateHelpers(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		str   string
		num   float64
	}{
		{gobreaker.StateClosed, "closed", 0},
		{gobreaker.StateHalfOpen, "half-open", 1},
		{gobreaker.StateOpen, "open", 2},
		{gobreaker.State(99), "unknown", -1},
	}
	for _, tt := range tests {
		if got := stateToString(tt.state); got != tt.str {
			t.Errorf("stateToString(%v) = %q, want %q", tt.state, got, tt.str)
		}
		if got := stateToFloat(tt.state); got != tt.num {
			t.Errorf("stateToFloat(%v) = %v, want %v", tt.state, got, tt.num)
		}
	}
}
