// Package progress models how a caller observes an asynchronous scrape or
// generation run through the polling status endpoint. The server exposes no
// job records, so progress is a local simulation: a timer ramps a percentage
// while polls look for evidence of completion in the lastScraped timestamp.
package progress

import (
	"time"
)

type State string

const (
	Idle       State = "idle"
	Scraping   State = "scraping"
	Polling    State = "polling"
	Completing State = "completing"
	Complete   State = "complete"
	TimedOut   State = "timed_out"
)

const (
	// RampInterval and RampStep drive the simulated progress between polls.
	RampInterval = 2 * time.Second
	RampStep     = 5
	RampCap      = 90

	PollInterval = 3 * time.Second
	Timeout      = 5 * time.Minute

	// CompletePause is how long the bar rests at 100% before the caller
	// refetches the final record.
	CompletePause = 500 * time.Millisecond

	recentWindow = 2 * time.Minute
	minPollCount = 2
)

// CompletionDetected reports whether a poll result proves the background run
// finished. Either the stored timestamp moved past the baseline captured
// before the run started, or the record was scraped recently and we have
// polled enough times to trust that it was this run and not a stale clock.
func CompletionDetected(baseline, current *time.Time, pollCount int, now time.Time) bool {
	if current == nil {
		return false
	}
	if baseline == nil || !current.Equal(*baseline) {
		return true
	}
	return now.Sub(*current) < recentWindow && pollCount >= minPollCount
}

// Tracker is the state machine for one tracked run. All transitions take an
// explicit now so tests can drive the clock.
type Tracker struct {
	state     State
	percent   int
	baseline  *time.Time
	startedAt time.Time
	pollCount int
	lastRamp  time.Time
}

func NewTracker() *Tracker {
	return &Tracker{state: Idle}
}

func (t *Tracker) State() State { return t.state }

func (t *Tracker) Percent() int { return t.percent }

func (t *Tracker) PollCount() int { return t.pollCount }

// Start records the pre-run timestamp baseline and enters Scraping.
func (t *Tracker) Start(baseline *time.Time, now time.Time) {
	if baseline != nil {
		b := *baseline
		t.baseline = &b
	} else {
		t.baseline = nil
	}
	t.state = Scraping
	t.percent = 0
	t.pollCount = 0
	t.startedAt = now
	t.lastRamp = now
}

// Tick advances the simulated ramp. It is a no-op outside an active run and
// steps at most once per RampInterval regardless of how often it is called.
func (t *Tracker) Tick(now time.Time) {
	if t.state != Scraping && t.state != Polling {
		return
	}
	if t.timedOut(now) {
		return
	}
	if now.Sub(t.lastRamp) < RampInterval {
		return
	}
	t.lastRamp = now
	if t.percent+RampStep <= RampCap {
		t.percent += RampStep
	} else {
		t.percent = RampCap
	}
}

// Observe feeds one poll result into the machine. The returned state tells the
// caller what to do next: keep polling, pause briefly at 100%, or give up.
func (t *Tracker) Observe(lastScraped *time.Time, now time.Time) State {
	if t.state != Scraping && t.state != Polling {
		return t.state
	}
	if t.timedOut(now) {
		return t.state
	}

	t.state = Polling
	t.pollCount++
	if CompletionDetected(t.baseline, lastScraped, t.pollCount, now) {
		t.state = Completing
		t.percent = 100
	}
	return t.state
}

// Finish moves Completing to Complete after the CompletePause rest.
func (t *Tracker) Finish() State {
	if t.state == Completing {
		t.state = Complete
	}
	return t.state
}

// Reset returns the machine to Idle, ready for another run.
func (t *Tracker) Reset() {
	*t = Tracker{state: Idle}
}

func (t *Tracker) timedOut(now time.Time) bool {
	if now.Sub(t.startedAt) >= Timeout {
		t.state = TimedOut
		return true
	}
	return false
}

// Phase identifies one leg of a combined multi-phase flow.
type Phase int

const (
	PhaseScrape Phase = iota
	PhaseGenerate
)

// CombinedPercent maps a single phase's 0-100 progress onto the combined bar
// shown for the scrape-then-generate-ideas flow: scraping covers 0-50 and
// generation covers 50-100.
func CombinedPercent(phase Phase, percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	switch phase {
	case PhaseScrape:
		return percent / 2
	default:
		return 50 + percent/2
	}
}
