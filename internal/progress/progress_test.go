package progress

import (
	"testing"
	"time"
)

func ts(t time.Time) *time.Time { return &t }

func TestCompletionDetected(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	old := now.Add(-time.Hour)
	recent := now.Add(-30 * time.Second)

	tests := []struct {
		name      string
		baseline  *time.Time
		current   *time.Time
		pollCount int
		want      bool
	}{
		{"never scraped", nil, nil, 10, false},
		{"timestamp changed", ts(old), ts(recent), 1, true},
		{"first scrape ever", nil, ts(recent), 1, true},
		{"unchanged but recent with enough polls", ts(recent), ts(recent), 2, true},
		{"unchanged and recent but too few polls", ts(recent), ts(recent), 1, false},
		{"unchanged and stale", ts(old), ts(old), 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompletionDetected(tt.baseline, tt.current, tt.pollCount, now)
			if got != tt.want {
				t.Errorf("CompletionDetected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrackerRampCapsAtNinety(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.Start(nil, now)

	if tr.State() != Scraping {
		t.Fatalf("state = %s, want scraping", tr.State())
	}

	for i := 0; i < 60; i++ {
		now = now.Add(RampInterval)
		tr.Tick(now)
	}
	if tr.Percent() != RampCap {
		t.Errorf("percent = %d, want capped at %d", tr.Percent(), RampCap)
	}
}

func TestTrackerTickIgnoresRapidCalls(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	tr.Start(nil, now)

	for i := 0; i < 10; i++ {
		tr.Tick(now.Add(100 * time.Millisecond))
	}
	if tr.Percent() != 0 {
		t.Errorf("percent = %d, want 0 before a full ramp interval", tr.Percent())
	}
}

func TestTrackerCompletesOnChangedTimestamp(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	baseline := now.Add(-time.Hour)

	tr := NewTracker()
	tr.Start(ts(baseline), now)

	now = now.Add(PollInterval)
	if state := tr.Observe(ts(baseline), now); state != Polling {
		t.Fatalf("state = %s, want polling while timestamp unchanged", state)
	}

	now = now.Add(PollInterval)
	scraped := now.Add(-time.Second)
	if state := tr.Observe(ts(scraped), now); state != Completing {
		t.Fatalf("state = %s, want completing", state)
	}
	if tr.Percent() != 100 {
		t.Errorf("percent = %d, want 100", tr.Percent())
	}
	if state := tr.Finish(); state != Complete {
		t.Errorf("state = %s, want complete", state)
	}
}

func TestTrackerTimesOutAfterFiveMinutes(t *testing.T) {
	start := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	baseline := start.Add(-time.Hour)

	tr := NewTracker()
	tr.Start(ts(baseline), start)

	now := start.Add(Timeout)
	if state := tr.Observe(ts(baseline), now); state != TimedOut {
		t.Fatalf("state = %s, want timed_out", state)
	}

	// A poll after the timeout does not resurrect the run.
	if state := tr.Observe(ts(now), now.Add(PollInterval)); state != TimedOut {
		t.Errorf("state = %s, want timed_out to stick", state)
	}

	tr.Reset()
	if tr.State() != Idle || tr.Percent() != 0 {
		t.Errorf("after reset: state = %s, percent = %d", tr.State(), tr.Percent())
	}
}

func TestCombinedPercent(t *testing.T) {
	tests := []struct {
		phase   Phase
		percent int
		want    int
	}{
		{PhaseScrape, 0, 0},
		{PhaseScrape, 50, 25},
		{PhaseScrape, 100, 50},
		{PhaseGenerate, 0, 50},
		{PhaseGenerate, 50, 75},
		{PhaseGenerate, 100, 100},
		{PhaseScrape, -10, 0},
		{PhaseGenerate, 150, 100},
	}
	for _, tt := range tests {
		if got := CombinedPercent(tt.phase, tt.percent); got != tt.want {
			t.Errorf("CombinedPercent(%d, %d) = %d, want %d", tt.phase, tt.percent, got, tt.want)
		}
	}
}
