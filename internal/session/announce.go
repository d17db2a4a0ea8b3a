package session

import (
	"fmt"
	"strings"

	"github.com/brunosouza-justauto/lifttrack/internal/plan"
)

// Announcement describes the step that follows a completed set. It is
// surfaced as a toast and, when voice output is on, spoken aloud.
type Announcement struct {
	ExerciseName   string
	Reps           int
	SetType        plan.SetType
	IsSameExercise bool
	EachSide       bool
}

// Text renders the announcement for both the toast and the speech
// channel.
func (a Announcement) Text() string {
	var b strings.Builder
	if a.IsSameExercise {
		b.WriteString("Next set")
	} else {
		b.WriteString("Next: ")
		b.WriteString(a.ExerciseName)
	}
	switch a.SetType {
	case plan.SetTypeWarmUp:
		b.WriteString(", warm up")
	case plan.SetTypeDropSet:
		b.WriteString(", drop set")
	case plan.SetTypeBackOff:
		b.WriteString(", back off")
	}
	if a.SetType == plan.SetTypeFailure {
		b.WriteString(", to failure")
	} else if a.Reps > 0 {
		fmt.Fprintf(&b, ", %d reps", a.Reps)
	}
	if a.EachSide {
		b.WriteString(", each side")
	}
	return b.String()
}

// step is one position in the traversal order.
type step struct {
	exIdx int
	spec  plan.SetSpec
}

// flatten expands the workout into traversal order: superset runs in
// workout order, and within a run each exercise's sets in full. The
// "next" lookup walks this flattened sequence.
func flatten(w *plan.Workout) []step {
	steps := make([]step, 0, w.TotalSets())
	for _, run := range plan.SupersetRuns(w) {
		for _, exIdx := range run {
			for _, spec := range w.Exercises[exIdx].EffectiveSets() {
				steps = append(steps, step{exIdx: exIdx, spec: spec})
			}
		}
	}
	return steps
}

// NextStep returns the announcement for the step that follows the given
// set in traversal order. ok is false when the set is unknown or was
// the last one of the workout.
func NextStep(w *plan.Workout, exerciseID string, setOrder int) (Announcement, bool) {
	steps := flatten(w)
	at := -1
	for i, s := range steps {
		if w.Exercises[s.exIdx].ID == exerciseID && s.spec.Order == setOrder {
			at = i
			break
		}
	}
	if at < 0 || at+1 >= len(steps) {
		return Announcement{}, false
	}

	next := steps[at+1]
	e := &w.Exercises[next.exIdx]
	return Announcement{
		ExerciseName:   e.Name,
		Reps:           next.spec.Reps,
		SetType:        next.spec.Type,
		IsSameExercise: next.exIdx == steps[at].exIdx,
		EachSide:       e.EachSide,
	}, true
}

// firstStep returns the announcement for the workout's opening set,
// spoken when the pre-roll countdown runs out.
func firstStep(w *plan.Workout) (Announcement, bool) {
	steps := flatten(w)
	if len(steps) == 0 {
		return Announcement{}, false
	}
	first := steps[0]
	e := &w.Exercises[first.exIdx]
	return Announcement{
		ExerciseName: e.Name,
		Reps:         first.spec.Reps,
		SetType:      first.spec.Type,
		EachSide:     e.EachSide,
	}, true
}
