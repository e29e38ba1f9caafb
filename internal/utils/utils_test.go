package utils

import (
	"errors"
	"testing"
	"time"
)

func TestLatencyTrackerPercentiles(t *testing.T) {
	tracker := NewLatencyTracker(100)
	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}

	if got := tracker.Count(); got != 10 {
		t.Fatalf("expected 10 samples, got %d", got)
	}
	if got := tracker.Percentile(0); got != time.Millisecond {
		t.Fatalf("p0 = %v, want 1ms", got)
	}
	if got := tracker.Percentile(100); got != 10*time.Millisecond {
		t.Fatalf("p100 = %v, want 10ms", got)
	}
	if got := tracker.Percentile(50); got < 4*time.Millisecond || got > 6*time.Millisecond {
		t.Fatalf("p50 = %v, want around 5ms", got)
	}
}

func TestLatencyTrackerBoundsSamples(t *testing.T) {
	tracker := NewLatencyTracker(5)
	for i := 1; i <= 20; i++ {
		tracker.Observe(time.Duration(i) * time.Second)
	}
	if got := tracker.Count(); got != 5 {
		t.Fatalf("expected capped count 5, got %d", got)
	}
	// Oldest samples dropped, so the minimum is 16s.
	if got := tracker.Percentile(0); got != 16*time.Second {
		t.Fatalf("p0 = %v, want 16s", got)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(10)
	if got := tracker.Percentile(95); got != 0 {
		t.Fatalf("expected zero on empty tracker, got %v", got)
	}
}

func TestStageErrorUnwraps(t *testing.T) {
	err := StageError("collector", "inc-1", ErrIncidentNotFound)
	if !errors.Is(err, ErrIncidentNotFound) {
		t.Fatalf("expected wrapped ErrIncidentNotFound, got %v", err)
	}
	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Op != "collector" {
		t.Fatalf("unexpected op %q", appErr.Op)
	}
}

func TestParseRFC3339(t *testing.T) {
	got, err := ParseRFC3339("2026-07-01T08:30:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 7, 1, 8, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := ParseRFC3339(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
	if _, err := ParseRFC3339("yesterday"); err == nil {
		t.Fatalf("expected error for garbage value")
	}
}

func TestDurationMinutesOrderInsensitive(t *testing.T) {
	a := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	b := a.Add(90 * time.Minute)
	if got := DurationMinutes(a, b); got != 90 {
		t.Fatalf("got %v, want 90", got)
	}
	if got := DurationMinutes(b, a); got != 90 {
		t.Fatalf("swapped args: got %v, want 90", got)
	}
}

func TestMinutesOfDay(t *testing.T) {
	at := time.Date(2026, 7, 1, 14, 30, 30, 0, time.UTC)
	if got := MinutesOfDay(at); got != 870.5 {
		t.Fatalf("got %v, want 870.5", got)
	}
}
