package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunosouza-justauto/lifttrack/internal/plan"
)

func announceWorkout() *plan.Workout {
	return &plan.Workout{
		ID: "upper", Name: "Upper",
		Exercises: []plan.ExerciseInstance{
			{ID: "a", Name: "Incline Press", SetCount: 2, Reps: 10, SupersetGroup: "g1"},
			{ID: "b", Name: "Chest Fly", SetCount: 2, Reps: 12, SupersetGroup: "g1"},
			{ID: "c", Name: "Triceps Pushdown", SetCount: 2, Reps: 15},
		},
	}
}

func TestNextStep_WithinExercise(t *testing.T) {
	a, ok := NextStep(announceWorkout(), "a", 1)
	require.True(t, ok)
	assert.True(t, a.IsSameExercise)
	assert.Equal(t, "Incline Press", a.ExerciseName)
	assert.Equal(t, 10, a.Reps)
}

func TestNextStep_CrossesSupersetAndRuns(t *testing.T) {
	w := announceWorkout()

	// Last set of the first superset member hands over to the second.
	a, ok := NextStep(w, "a", 2)
	require.True(t, ok)
	assert.False(t, a.IsSameExercise)
	assert.Equal(t, "Chest Fly", a.ExerciseName)
	assert.Equal(t, 12, a.Reps)

	// Last set of the superset run hands over to the regular exercise.
	a, ok = NextStep(w, "b", 2)
	require.True(t, ok)
	assert.Equal(t, "Triceps Pushdown", a.ExerciseName)

	// Last set of the last exercise has no next step.
	_, ok = NextStep(w, "c", 2)
	assert.False(t, ok)
}

func TestNextStep_UnknownKey(t *testing.T) {
	_, ok := NextStep(announceWorkout(), "missing", 1)
	assert.False(t, ok)
	_, ok = NextStep(announceWorkout(), "a", 9)
	assert.False(t, ok)
}

func TestFirstStep(t *testing.T) {
	a, ok := firstStep(announceWorkout())
	require.True(t, ok)
	assert.Equal(t, "Incline Press", a.ExerciseName)
	assert.Equal(t, 10, a.Reps)
	assert.False(t, a.IsSameExercise)

	_, ok = firstStep(&plan.Workout{ID: "w", Name: "W"})
	assert.False(t, ok)
}

func TestAnnouncement_Text(t *testing.T) {
	assert.Equal(t, "Next: Chest Fly, 12 reps",
		Announcement{ExerciseName: "Chest Fly", Reps: 12, SetType: plan.SetTypeRegular}.Text())

	assert.Equal(t, "Next set, 10 reps",
		Announcement{ExerciseName: "Incline Press", Reps: 10, SetType: plan.SetTypeRegular, IsSameExercise: true}.Text())

	assert.Equal(t, "Next: Squat, warm up, 5 reps",
		Announcement{ExerciseName: "Squat", Reps: 5, SetType: plan.SetTypeWarmUp}.Text())

	assert.Equal(t, "Next: Curl, to failure",
		Announcement{ExerciseName: "Curl", Reps: 12, SetType: plan.SetTypeFailure}.Text())

	assert.Equal(t, "Next: Lunge, 8 reps, each side",
		Announcement{ExerciseName: "Lunge", Reps: 8, SetType: plan.SetTypeRegular, EachSide: true}.Text())
}
