package session

type countdownPhase int

const (
	phaseIdle countdownPhase = iota
	phaseRunning
	phasePaused
)

// Countdown is the single countdown engine behind the pre-roll, post-set
// rest timers, and ad-hoc user countdowns. At most one timer exists at a
// time; starting a new one replaces the current one outright, so the
// replaced timer's completion never fires.
//
// The engine does not tick itself. The runtime's shared tick source calls
// Tick once per second, which keeps every timer on the same clock and
// frees the engine from interval bookkeeping.
type Countdown struct {
	phase      countdownPhase
	kind       TimerKind
	exerciseID string
	setOrder   int
	remaining  int
	total      int
}

// TickSignal is what one tick produced: an optional per-second cue over
// the final stretch, and the completion edge when the timer reaches zero.
type TickSignal struct {
	Kind       TimerKind
	ExerciseID string
	SetOrder   int
	Remaining  int
	FinalCue   bool
	Completed  bool
}

// Start replaces any current timer with a new one of the given kind.
// Totals of zero or less are rejected and leave the engine untouched;
// a rest of zero means no timer, not an instant one.
func (c *Countdown) Start(kind TimerKind, exerciseID string, setOrder, totalSeconds int) bool {
	if totalSeconds <= 0 {
		return false
	}
	*c = Countdown{
		phase:      phaseRunning,
		kind:       kind,
		exerciseID: exerciseID,
		setOrder:   setOrder,
		remaining:  totalSeconds,
		total:      totalSeconds,
	}
	return true
}

// Pause suspends ticking, keeping the remaining value. Driven by the
// session's pause state, never by the engine itself.
func (c *Countdown) Pause() {
	if c.phase == phaseRunning {
		c.phase = phasePaused
	}
}

// Resume continues from the exact remaining value.
func (c *Countdown) Resume() {
	if c.phase == phasePaused {
		c.phase = phaseRunning
	}
}

// Cancel discards the timer without firing completion. Safe to call
// repeatedly and on an idle engine.
func (c *Countdown) Cancel() {
	*c = Countdown{}
}

// Active reports whether a timer exists, paused or not.
func (c *Countdown) Active() bool {
	return c.phase != phaseIdle
}

// Kind returns the active timer's kind, or TimerIdle.
func (c *Countdown) Kind() TimerKind {
	if c.phase == phaseIdle {
		return TimerIdle
	}
	return c.kind
}

// IsRestFor reports whether the active timer is the rest timer for the
// given set.
func (c *Countdown) IsRestFor(exerciseID string, setOrder int) bool {
	return c.phase != phaseIdle && c.kind == TimerRest &&
		c.exerciseID == exerciseID && c.setOrder == setOrder
}

// Tick advances the timer by one second. It reports false when there was
// nothing running to advance (idle or paused). On reaching zero the
// engine returns to idle and the signal carries the completion edge.
func (c *Countdown) Tick() (TickSignal, bool) {
	if c.phase != phaseRunning {
		return TickSignal{}, false
	}

	c.remaining--
	sig := TickSignal{
		Kind:       c.kind,
		ExerciseID: c.exerciseID,
		SetOrder:   c.setOrder,
		Remaining:  c.remaining,
	}
	if c.remaining <= 0 {
		sig.Remaining = 0
		sig.Completed = true
		*c = Countdown{}
		return sig, true
	}
	if c.remaining <= finalCueSeconds {
		sig.FinalCue = true
	}
	return sig, true
}

// State returns the UI-facing snapshot of the engine.
func (c *Countdown) State() TimerState {
	if c.phase == phaseIdle {
		return TimerState{Kind: TimerIdle}
	}
	return TimerState{
		Kind:       c.kind,
		ExerciseID: c.exerciseID,
		SetOrder:   c.setOrder,
		Remaining:  c.remaining,
		Total:      c.total,
		Running:    c.phase == phaseRunning,
	}
}
