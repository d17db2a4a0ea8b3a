package session

import "time"

// Timebase tracks the elapsed seconds of an attempt across pauses. It
// holds an accumulated duration frozen while paused plus the wall-clock
// anchor of the last resume; it does no ticking of its own, callers pass
// the current time in.
type Timebase struct {
	accumulated time.Duration
	anchor      time.Time
	running     bool
}

// Start begins timing from zero. A running timebase is restarted.
func (t *Timebase) Start(now time.Time) {
	t.accumulated = 0
	t.anchor = now
	t.running = true
}

// Seed begins timing as if the clock had been running since startTime:
// the whole wall-clock gap counts as elapsed, including any stretch the
// process was not alive for. Used when resuming a persisted session.
func (t *Timebase) Seed(startTime, now time.Time) {
	t.accumulated = now.Sub(startTime)
	if t.accumulated < 0 {
		t.accumulated = 0
	}
	t.anchor = now
	t.running = true
}

// Pause folds the running delta into the accumulated total and stops
// advancing. Pausing an already paused timebase changes nothing.
func (t *Timebase) Pause(now time.Time) {
	if !t.running {
		return
	}
	t.accumulated += now.Sub(t.anchor)
	t.anchor = time.Time{}
	t.running = false
}

// Resume continues timing from the accumulated total. Resuming a running
// timebase changes nothing.
func (t *Timebase) Resume(now time.Time) {
	if t.running {
		return
	}
	t.anchor = now
	t.running = true
}

// Elapsed returns the whole seconds tracked so far.
func (t *Timebase) Elapsed(now time.Time) int {
	d := t.accumulated
	if t.running {
		d += now.Sub(t.anchor)
	}
	return int(d / time.Second)
}

// Running reports whether the timebase is currently advancing.
func (t *Timebase) Running() bool {
	return t.running
}

// Reset returns the timebase to its zero state.
func (t *Timebase) Reset() {
	*t = Timebase{}
}
