package session

import (
	"time"
)

// TickSource is the shared one-second heartbeat behind the elapsed-time
// display, the countdown engine, and debounce flushing. A single source
// drives all of them, so there is exactly one interval to manage and the
// consumers cannot drift apart.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

type tickerSource struct {
	t *time.Ticker
}

// NewTickerSource returns a TickSource backed by a time.Ticker.
func NewTickerSource(interval time.Duration) TickSource {
	return &tickerSource{t: time.NewTicker(interval)}
}

func (s *tickerSource) C() <-chan time.Time { return s.t.C }

func (s *tickerSource) Stop() { s.t.Stop() }

// runLoop is the main goroutine consuming the shared tick source. It
// runs for the life of the Runtime; session status decides what a tick
// does, not whether the loop runs.
func (r *Runtime) runLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.doneChan:
			r.ticks.Stop()
			r.flushPending()
			close(r.writeChan)
			r.logger.Printf("Runtime: Tick loop exiting")
			return

		case <-r.ticks.C():
			r.handleTick()
		}
	}
}

// handleTick advances one second: the countdown engine ticks (pre-roll
// promotion, rest expiry and the announcement it owes, final-stretch
// cues), due debounce writes are collected, and a fresh state snapshot
// goes out. Outside an attempt the tick is inert.
func (r *Runtime) handleTick() {
	now := r.clock()

	r.mu.Lock()
	if !inProgress(r.status) {
		r.mu.Unlock()
		return
	}

	var (
		cue      *Cue
		announce *Announcement
	)

	if sig, ok := r.countdown.Tick(); ok {
		switch {
		case sig.Completed:
			cue = &Cue{Kind: sig.Kind, Remaining: 0}
			switch sig.Kind {
			case TimerPreRoll:
				r.status = StatusActive
				r.timebase.Start(now)
				if !r.announcedStart {
					r.announcedStart = true
					if a, ok := firstStep(r.workout); ok {
						announce = &a
					}
				}
				r.logger.Printf("Runtime: Session %s active", r.sessionID)
			case TimerRest:
				if r.sets.Progress() < 100 {
					if a, ok := NextStep(r.workout, sig.ExerciseID, sig.SetOrder); ok {
						announce = &a
					}
				}
			}
		case sig.FinalCue:
			cue = &Cue{Kind: sig.Kind, Remaining: sig.Remaining}
		}
	}

	due := r.collectDueLocked(now)
	state := r.buildStateLocked(now)
	r.mu.Unlock()

	for _, job := range due {
		r.enqueueWrite(job)
	}
	r.model.SetSessionState(state)
	if cue != nil {
		r.model.EmitCue(*cue)
	}
	if announce != nil {
		r.logger.Printf("Runtime: Announcing: %s", announce.Text())
		r.model.EmitAnnouncement(*announce)
	}
}
