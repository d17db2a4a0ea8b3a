// Package plan defines workout definitions and how they are loaded.
//
// A workout is an ordered list of exercise instances. Each instance either
// carries explicit per-set specs or legacy count fields (set count plus a
// shared rep target) from which specs are synthesized. Definitions are
// read-only to the session runtime.
package plan

import (
	"fmt"
)

// SetType tags what kind of set a spec describes. Stored as its string
// value in session records and plan files.
type SetType string

const (
	SetTypeRegular SetType = "regular"
	SetTypeWarmUp  SetType = "warm_up"
	SetTypeDropSet SetType = "drop_set"
	SetTypeFailure SetType = "failure"
	SetTypeBackOff SetType = "back_off"
)

// SetSpec overrides the exercise defaults for a single set. Order is
// 1-based and unique within the exercise.
type SetSpec struct {
	Order       int     `yaml:"order"`
	Type        SetType `yaml:"type,omitempty"`
	Reps        int     `yaml:"reps,omitempty"`
	RestSeconds int     `yaml:"rest_seconds,omitempty"`
}

// ExerciseInstance is one exercise slot in a workout. Sets, when present,
// takes precedence over the SetCount/Reps legacy pair. A non-empty
// SupersetGroup shared by consecutive instances marks them as a superset
// run performed back to back.
type ExerciseInstance struct {
	ID            string    `yaml:"id"`
	Name          string    `yaml:"name"`
	RestSeconds   int       `yaml:"rest_seconds"`
	SetCount      int       `yaml:"set_count,omitempty"`
	Reps          int       `yaml:"reps,omitempty"`
	Sets          []SetSpec `yaml:"sets,omitempty"`
	Bodyweight    bool      `yaml:"bodyweight,omitempty"`
	EachSide      bool      `yaml:"each_side,omitempty"`
	SupersetGroup string    `yaml:"superset_group,omitempty"`
}

// EffectiveSets returns the per-set specs for the exercise, synthesizing
// them from SetCount/Reps when no explicit list is present. Zero-valued
// spec fields fall back to the exercise defaults, so callers always see a
// fully populated spec.
func (e *ExerciseInstance) EffectiveSets() []SetSpec {
	if len(e.Sets) == 0 {
		specs := make([]SetSpec, e.SetCount)
		for i := range specs {
			specs[i] = SetSpec{Order: i + 1, Type: SetTypeRegular, Reps: e.Reps, RestSeconds: e.RestSeconds}
		}
		return specs
	}

	specs := make([]SetSpec, len(e.Sets))
	copy(specs, e.Sets)
	for i := range specs {
		if specs[i].Type == "" {
			specs[i].Type = SetTypeRegular
		}
		if specs[i].Reps == 0 {
			specs[i].Reps = e.Reps
		}
		if specs[i].RestSeconds == 0 {
			specs[i].RestSeconds = e.RestSeconds
		}
	}
	return specs
}

// RestFor resolves the rest seconds that follow the given 1-based set. A
// result of zero or less means no rest timer runs after that set.
func (e *ExerciseInstance) RestFor(setOrder int) int {
	for _, s := range e.Sets {
		if s.Order == setOrder && s.RestSeconds != 0 {
			return s.RestSeconds
		}
	}
	return e.RestSeconds
}

// Workout is an ordered exercise list with identity. The exercise order is
// the order sets are performed and announced in.
type Workout struct {
	ID        string             `yaml:"id"`
	Name      string             `yaml:"name"`
	Exercises []ExerciseInstance `yaml:"exercises"`
}

// Exercise returns the instance with the given id and its position, or nil
// and -1 when the workout has no such exercise.
func (w *Workout) Exercise(id string) (*ExerciseInstance, int) {
	for i := range w.Exercises {
		if w.Exercises[i].ID == id {
			return &w.Exercises[i], i
		}
	}
	return nil, -1
}

// TotalSets counts the sets across all exercises.
func (w *Workout) TotalSets() int {
	total := 0
	for i := range w.Exercises {
		total += len(w.Exercises[i].EffectiveSets())
	}
	return total
}

// Validate checks structural rules: non-empty identity, at least one
// exercise, unique exercise ids, a positive set count per exercise, and
// explicit SetSpec orders contiguous from 1.
func (w *Workout) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("workout has no id")
	}
	if w.Name == "" {
		return fmt.Errorf("workout %q has no name", w.ID)
	}
	if len(w.Exercises) == 0 {
		return fmt.Errorf("workout %q has no exercises", w.ID)
	}

	seen := make(map[string]bool, len(w.Exercises))
	for i := range w.Exercises {
		e := &w.Exercises[i]
		if e.ID == "" {
			return fmt.Errorf("workout %q: exercise %d has no id", w.ID, i)
		}
		if seen[e.ID] {
			return fmt.Errorf("workout %q: duplicate exercise id %q", w.ID, e.ID)
		}
		seen[e.ID] = true
		if e.Name == "" {
			return fmt.Errorf("workout %q: exercise %q has no name", w.ID, e.ID)
		}
		if len(e.Sets) == 0 && e.SetCount <= 0 {
			return fmt.Errorf("workout %q: exercise %q has no sets", w.ID, e.ID)
		}
		for j, s := range e.Sets {
			if s.Order != j+1 {
				return fmt.Errorf("workout %q: exercise %q set %d has order %d, want %d", w.ID, e.ID, j, s.Order, j+1)
			}
		}
	}
	return nil
}

// SupersetRuns groups the exercise indices into runs: consecutive
// exercises sharing a non-empty SupersetGroup form one run, everything
// else forms a run of length one. The concatenated runs preserve the
// workout's exercise order.
func SupersetRuns(w *Workout) [][]int {
	runs := make([][]int, 0, len(w.Exercises))
	for i := 0; i < len(w.Exercises); {
		group := w.Exercises[i].SupersetGroup
		if group == "" {
			runs = append(runs, []int{i})
			i++
			continue
		}
		run := []int{i}
		j := i + 1
		for j < len(w.Exercises) && w.Exercises[j].SupersetGroup == group {
			run = append(run, j)
			j++
		}
		runs = append(runs, run)
		i = j
	}
	return runs
}
