package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ToggleSet flips one set's completion.
//
// Un-completing clears the flag and cancels the rest timer that set
// owns, if any. Completing requires a weight: an empty one is filled
// from the most recent prior set of the exercise (with a copy notice),
// and with nothing to copy the transition is rejected with
// ErrWeightRequired and no state change. A successful completion fires
// the exercise-done prompt the first time its exercise fills up, then
// either starts the set's rest timer or, when no rest is configured,
// announces the next step immediately. Completing the set that brings
// the workout to 100% never starts a rest timer.
func (r *Runtime) ToggleSet(exerciseID string, setOrder int) error {
	now := r.clock()

	r.mu.Lock()
	if !inProgress(r.status) {
		r.mu.Unlock()
		return fmt.Errorf("edit while %s: %w", r.status, ErrBadState)
	}
	cur, ok := r.sets.Get(exerciseID, setOrder)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%s set %d: %w", exerciseID, setOrder, ErrUnknownSet)
	}

	var (
		notices  []Notice
		announce *Announcement
	)

	if cur.Completed {
		r.sets, _ = r.sets.withCompleted(exerciseID, setOrder, false)
		if r.countdown.IsRestFor(exerciseID, setOrder) {
			// No rest owed for an un-done set.
			r.countdown.Cancel()
		}
	} else {
		if cur.Weight == "" {
			prior := lastWeightBefore(r.sets[exerciseID], setOrder)
			if prior == "" {
				r.mu.Unlock()
				r.model.EmitNotice(Notice{
					Kind:         NoticeWeightRequired,
					ExerciseID:   exerciseID,
					ExerciseName: r.exerciseName(exerciseID),
					SetOrder:     setOrder,
				})
				return fmt.Errorf("%s set %d: %w", exerciseID, setOrder, ErrWeightRequired)
			}
			r.sets, _ = r.sets.withWeight(exerciseID, setOrder, prior)
			notices = append(notices, Notice{
				Kind:         NoticeWeightCopied,
				ExerciseID:   exerciseID,
				ExerciseName: r.exerciseName(exerciseID),
				SetOrder:     setOrder,
				Weight:       prior,
			})
		}
		r.sets, _ = r.sets.withCompleted(exerciseID, setOrder, true)

		if r.sets.ExerciseComplete(exerciseID) && !r.feedbackFired[exerciseID] {
			r.feedbackFired[exerciseID] = true
			notices = append(notices, Notice{
				Kind:         NoticeExerciseDone,
				ExerciseID:   exerciseID,
				ExerciseName: r.exerciseName(exerciseID),
			})
		}

		if r.sets.Progress() < 100 {
			ex, _ := r.workout.Exercise(exerciseID)
			if rest := ex.RestFor(setOrder); rest > 0 {
				r.countdown.Start(TimerRest, exerciseID, setOrder, rest)
				if r.status == StatusPaused {
					r.countdown.Pause()
				}
			} else if a, ok := NextStep(r.workout, exerciseID, setOrder); ok {
				announce = &a
			}
		}
	}

	r.queueWriteLocked(exerciseID, setOrder, now)
	sets := r.sets
	state := r.buildStateLocked(now)
	r.mu.Unlock()

	r.model.SetSets(sets)
	r.model.SetSessionState(state)
	for _, n := range notices {
		r.model.EmitNotice(n)
	}
	if announce != nil {
		r.logger.Printf("Runtime: Announcing: %s", announce.Text())
		r.model.EmitAnnouncement(*announce)
	}
	return nil
}

// UpdateWeight stores the weight text verbatim. Editing a completed
// set's weight leaves its completion alone.
func (r *Runtime) UpdateWeight(exerciseID string, setOrder int, text string) error {
	now := r.clock()
	r.mu.Lock()
	if !inProgress(r.status) {
		r.mu.Unlock()
		return fmt.Errorf("edit while %s: %w", r.status, ErrBadState)
	}
	next, ok := r.sets.withWeight(exerciseID, setOrder, strings.TrimSpace(text))
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%s set %d: %w", exerciseID, setOrder, ErrUnknownSet)
	}
	r.sets = next
	r.queueWriteLocked(exerciseID, setOrder, now)
	r.mu.Unlock()

	r.model.SetSets(next)
	return nil
}

// UpdateReps parses the rep text to an integer, empty or invalid input
// counting as zero.
func (r *Runtime) UpdateReps(exerciseID string, setOrder int, text string) error {
	reps, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || reps < 0 {
		reps = 0
	}

	now := r.clock()
	r.mu.Lock()
	if !inProgress(r.status) {
		r.mu.Unlock()
		return fmt.Errorf("edit while %s: %w", r.status, ErrBadState)
	}
	next, ok := r.sets.withReps(exerciseID, setOrder, reps)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%s set %d: %w", exerciseID, setOrder, ErrUnknownSet)
	}
	r.sets = next
	r.queueWriteLocked(exerciseID, setOrder, now)
	r.mu.Unlock()

	r.model.SetSets(next)
	return nil
}

// UpdateNotes stores free-form notes for one set.
func (r *Runtime) UpdateNotes(exerciseID string, setOrder int, text string) error {
	now := r.clock()
	r.mu.Lock()
	if !inProgress(r.status) {
		r.mu.Unlock()
		return fmt.Errorf("edit while %s: %w", r.status, ErrBadState)
	}
	next, ok := r.sets.withNotes(exerciseID, setOrder, text)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%s set %d: %w", exerciseID, setOrder, ErrUnknownSet)
	}
	r.sets = next
	r.queueWriteLocked(exerciseID, setOrder, now)
	r.mu.Unlock()

	r.model.SetSets(next)
	return nil
}

// ToggleBodyweight flips every set of the exercise between the "BW"
// sentinel and empty in one batch, and queues a write for each set.
func (r *Runtime) ToggleBodyweight(exerciseID string) error {
	now := r.clock()
	r.mu.Lock()
	if !inProgress(r.status) {
		r.mu.Unlock()
		return fmt.Errorf("edit while %s: %w", r.status, ErrBadState)
	}
	next, ok := r.sets.withBodyweightToggled(exerciseID)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%s: %w", exerciseID, ErrUnknownSet)
	}
	r.sets = next
	for _, s := range next[exerciseID] {
		r.queueWriteLocked(exerciseID, s.SetOrder, now)
	}
	r.mu.Unlock()

	r.model.SetSets(next)
	return nil
}

// StartCountdown runs an ad-hoc countdown, replacing any rest timer.
// Only available during an attempt, and totals of zero or less are
// rejected.
func (r *Runtime) StartCountdown(totalSeconds int) error {
	now := r.clock()
	r.mu.Lock()
	if !inProgress(r.status) {
		r.mu.Unlock()
		return fmt.Errorf("countdown while %s: %w", r.status, ErrBadState)
	}
	if r.countdown.Kind() == TimerPreRoll {
		r.mu.Unlock()
		return fmt.Errorf("countdown during pre-roll: %w", ErrBadState)
	}
	if !r.countdown.Start(TimerCountdown, "", 0, totalSeconds) {
		r.mu.Unlock()
		return fmt.Errorf("countdown seconds must be positive, got %d", totalSeconds)
	}
	if r.status == StatusPaused {
		r.countdown.Pause()
	}
	state := r.buildStateLocked(now)
	r.mu.Unlock()

	r.logger.Printf("Runtime: Countdown of %ds started", totalSeconds)
	r.model.SetSessionState(state)
	return nil
}

// CancelCountdown discards the active rest timer or ad-hoc countdown
// without firing its completion. The pre-roll is not cancellable, a
// session that should not start gets cancelled outright instead.
func (r *Runtime) CancelCountdown() {
	now := r.clock()
	r.mu.Lock()
	if !r.countdown.Active() || r.countdown.Kind() == TimerPreRoll {
		r.mu.Unlock()
		return
	}
	r.countdown.Cancel()
	state := r.buildStateLocked(now)
	r.mu.Unlock()

	r.model.SetSessionState(state)
}

// queueWriteLocked arms the debounce window for one set key. The window
// is anchored at the key's first edit; later edits inside it do not
// extend it, their values ride along when the window flushes. MUST be
// called with mu held.
func (r *Runtime) queueWriteLocked(exerciseID string, setOrder int, now time.Time) {
	if r.sessionID == "" || !inProgress(r.status) {
		return
	}
	k := setKey{exerciseID: exerciseID, setOrder: setOrder}
	if _, exists := r.pending[k]; !exists {
		r.pending[k] = now.Add(debounceWindow)
	}
}
