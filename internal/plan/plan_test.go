package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyExercise(id string, sets, reps, rest int) ExerciseInstance {
	return ExerciseInstance{ID: id, Name: "Exercise " + id, SetCount: sets, Reps: reps, RestSeconds: rest}
}

func TestEffectiveSets_Legacy(t *testing.T) {
	e := legacyExercise("bench", 3, 8, 90)

	specs := e.EffectiveSets()
	require.Len(t, specs, 3)
	for i, s := range specs {
		assert.Equal(t, i+1, s.Order)
		assert.Equal(t, SetTypeRegular, s.Type)
		assert.Equal(t, 8, s.Reps)
		assert.Equal(t, 90, s.RestSeconds)
	}
}

func TestEffectiveSets_ExplicitWithDefaults(t *testing.T) {
	e := ExerciseInstance{
		ID: "squat", Name: "Squat", Reps: 5, RestSeconds: 180,
		Sets: []SetSpec{
			{Order: 1, Type: SetTypeWarmUp, Reps: 10, RestSeconds: 60},
			{Order: 2},
			{Order: 3, Type: SetTypeFailure},
		},
	}

	specs := e.EffectiveSets()
	require.Len(t, specs, 3)
	assert.Equal(t, SetSpec{Order: 1, Type: SetTypeWarmUp, Reps: 10, RestSeconds: 60}, specs[0])
	assert.Equal(t, SetSpec{Order: 2, Type: SetTypeRegular, Reps: 5, RestSeconds: 180}, specs[1])
	assert.Equal(t, SetSpec{Order: 3, Type: SetTypeFailure, Reps: 5, RestSeconds: 180}, specs[2])
}

func TestEffectiveSets_DoesNotMutateSpecs(t *testing.T) {
	e := ExerciseInstance{
		ID: "row", Name: "Row", Reps: 12, RestSeconds: 60,
		Sets: []SetSpec{{Order: 1}},
	}

	_ = e.EffectiveSets()
	assert.Equal(t, SetType(""), e.Sets[0].Type)
	assert.Equal(t, 0, e.Sets[0].Reps)
}

func TestRestFor(t *testing.T) {
	e := ExerciseInstance{
		ID: "dead", Name: "Deadlift", RestSeconds: 120,
		Sets: []SetSpec{
			{Order: 1, RestSeconds: 60},
			{Order: 2},
		},
	}

	assert.Equal(t, 60, e.RestFor(1))
	assert.Equal(t, 120, e.RestFor(2))
	assert.Equal(t, 120, e.RestFor(99))
}

func TestWorkout_ExerciseLookup(t *testing.T) {
	w := &Workout{
		ID: "w", Name: "W",
		Exercises: []ExerciseInstance{legacyExercise("a", 1, 1, 0), legacyExercise("b", 1, 1, 0)},
	}

	e, idx := w.Exercise("b")
	require.NotNil(t, e)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "b", e.ID)

	e, idx = w.Exercise("missing")
	assert.Nil(t, e)
	assert.Equal(t, -1, idx)
}

func TestWorkout_TotalSets(t *testing.T) {
	w := &Workout{
		ID: "w", Name: "W",
		Exercises: []ExerciseInstance{
			legacyExercise("a", 3, 8, 60),
			{ID: "b", Name: "B", Sets: []SetSpec{{Order: 1}, {Order: 2}}},
		},
	}
	assert.Equal(t, 5, w.TotalSets())
}

func TestWorkout_Validate(t *testing.T) {
	valid := func() *Workout {
		return &Workout{
			ID: "w", Name: "W",
			Exercises: []ExerciseInstance{legacyExercise("a", 2, 8, 60)},
		}
	}

	assert.NoError(t, valid().Validate())

	w := valid()
	w.ID = ""
	assert.Error(t, w.Validate())

	w = valid()
	w.Name = ""
	assert.Error(t, w.Validate())

	w = valid()
	w.Exercises = nil
	assert.Error(t, w.Validate())

	w = valid()
	w.Exercises = append(w.Exercises, legacyExercise("a", 1, 1, 0))
	assert.ErrorContains(t, w.Validate(), "duplicate exercise id")

	w = valid()
	w.Exercises[0].SetCount = 0
	assert.ErrorContains(t, w.Validate(), "has no sets")

	w = valid()
	w.Exercises[0].Sets = []SetSpec{{Order: 1}, {Order: 3}}
	assert.ErrorContains(t, w.Validate(), "order")
}

func TestSupersetRuns(t *testing.T) {
	w := &Workout{
		ID: "w", Name: "W",
		Exercises: []ExerciseInstance{
			{ID: "a", Name: "A", SetCount: 2, SupersetGroup: "s1"},
			{ID: "b", Name: "B", SetCount: 2, SupersetGroup: "s1"},
			{ID: "c", Name: "C", SetCount: 2},
			{ID: "d", Name: "D", SetCount: 2, SupersetGroup: "s2"},
			{ID: "e", Name: "E", SetCount: 2, SupersetGroup: "s2"},
			{ID: "f", Name: "F", SetCount: 2, SupersetGroup: "s2"},
		},
	}

	runs := SupersetRuns(w)
	require.Len(t, runs, 3)
	assert.Equal(t, []int{0, 1}, runs[0])
	assert.Equal(t, []int{2}, runs[1])
	assert.Equal(t, []int{3, 4, 5}, runs[2])
}

func TestSupersetRuns_DistinctAdjacentGroups(t *testing.T) {
	w := &Workout{
		ID: "w", Name: "W",
		Exercises: []ExerciseInstance{
			{ID: "a", Name: "A", SetCount: 1, SupersetGroup: "s1"},
			{ID: "b", Name: "B", SetCount: 1, SupersetGroup: "s2"},
		},
	}

	runs := SupersetRuns(w)
	require.Len(t, runs, 2)
	assert.Equal(t, []int{0}, runs[0])
	assert.Equal(t, []int{1}, runs[1])
}
