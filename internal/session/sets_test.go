package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunosouza-justauto/lifttrack/internal/plan"
	"github.com/brunosouza-justauto/lifttrack/internal/store"
)

func ledgerWorkout() *plan.Workout {
	return &plan.Workout{
		ID: "push-a", Name: "Push A",
		Exercises: []plan.ExerciseInstance{
			{ID: "bench", Name: "Bench Press", SetCount: 3, Reps: 10, RestSeconds: 60},
			{ID: "pushup", Name: "Push Up", SetCount: 2, Reps: 15, Bodyweight: true},
		},
	}
}

func TestInitialSets(t *testing.T) {
	m := InitialSets(ledgerWorkout())

	require.Len(t, m["bench"], 3)
	for i, s := range m["bench"] {
		assert.Equal(t, "bench", s.ExerciseID)
		assert.Equal(t, i+1, s.SetOrder)
		assert.Equal(t, 10, s.Reps)
		assert.Equal(t, plan.SetTypeRegular, s.SetType)
		assert.Empty(t, s.Weight)
		assert.False(t, s.Completed)
	}

	// Bodyweight exercises start on the sentinel.
	require.Len(t, m["pushup"], 2)
	for _, s := range m["pushup"] {
		assert.Equal(t, BodyweightSentinel, s.Weight)
	}
}

func TestSetMap_MutationsAreCopyOnWrite(t *testing.T) {
	m := InitialSets(ledgerWorkout())

	next, ok := m.withWeight("bench", 2, "50")
	require.True(t, ok)

	// The original is untouched and the touched exercise got a new slice.
	orig, _ := m.Get("bench", 2)
	assert.Empty(t, orig.Weight)
	got, _ := next.Get("bench", 2)
	assert.Equal(t, "50", got.Weight)

	// Untouched exercises share their backing slice.
	assert.Same(t, &m["pushup"][0], &next["pushup"][0])
	assert.NotSame(t, &m["bench"][0], &next["bench"][0])
}

func TestSetMap_MutateUnknownKey(t *testing.T) {
	m := InitialSets(ledgerWorkout())

	_, ok := m.withWeight("bench", 9, "50")
	assert.False(t, ok)
	_, ok = m.withWeight("missing", 1, "50")
	assert.False(t, ok)
	_, ok = m.withBodyweightToggled("missing")
	assert.False(t, ok)
}

func TestSetMap_BodyweightToggle(t *testing.T) {
	w := &plan.Workout{
		ID: "w", Name: "W",
		Exercises: []plan.ExerciseInstance{{ID: "dip", Name: "Dip", SetCount: 2, Reps: 8}},
	}
	m := InitialSets(w)
	m, _ = m.withWeight("dip", 1, "20")

	// Mixed weights all become the sentinel.
	m, ok := m.withBodyweightToggled("dip")
	require.True(t, ok)
	for _, s := range m["dip"] {
		assert.Equal(t, BodyweightSentinel, s.Weight)
	}

	// All sentinel flips to all empty.
	m, ok = m.withBodyweightToggled("dip")
	require.True(t, ok)
	for _, s := range m["dip"] {
		assert.Empty(t, s.Weight)
	}
}

func TestLastWeightBefore(t *testing.T) {
	sets := []CompletedSet{
		{SetOrder: 1, Weight: "40"},
		{SetOrder: 2, Weight: ""},
		{SetOrder: 3, Weight: "45"},
		{SetOrder: 4, Weight: ""},
	}

	assert.Equal(t, "", lastWeightBefore(sets, 1))
	assert.Equal(t, "40", lastWeightBefore(sets, 2))
	assert.Equal(t, "40", lastWeightBefore(sets, 3))
	assert.Equal(t, "45", lastWeightBefore(sets, 4))
	assert.Equal(t, "45", lastWeightBefore(sets, 5))
}

func TestSetMap_ProgressAndCounts(t *testing.T) {
	m := InitialSets(ledgerWorkout()) // 5 sets total

	completed, total := m.Counts()
	assert.Equal(t, 0, completed)
	assert.Equal(t, 5, total)
	assert.Equal(t, 0, m.Progress())

	m, _ = m.withCompleted("bench", 1, true)
	assert.Equal(t, 20, m.Progress())

	m, _ = m.withCompleted("bench", 2, true)
	assert.Equal(t, 40, m.Progress())

	// 3/5 rounds to 60, 4/5 to 80, full house is 100.
	m, _ = m.withCompleted("bench", 3, true)
	m, _ = m.withCompleted("pushup", 1, true)
	m, _ = m.withCompleted("pushup", 2, true)
	assert.Equal(t, 100, m.Progress())
}

func TestProgressPercent_Rounds(t *testing.T) {
	assert.Equal(t, 0, progressPercent(0, 0))
	assert.Equal(t, 33, progressPercent(1, 3))
	assert.Equal(t, 67, progressPercent(2, 3))
	assert.Equal(t, 17, progressPercent(1, 6))
}

func TestSetMap_ExerciseComplete(t *testing.T) {
	m := InitialSets(ledgerWorkout())
	assert.False(t, m.ExerciseComplete("pushup"))
	assert.False(t, m.ExerciseComplete("missing"))

	m, _ = m.withCompleted("pushup", 1, true)
	assert.False(t, m.ExerciseComplete("pushup"))

	m, _ = m.withCompleted("pushup", 2, true)
	assert.True(t, m.ExerciseComplete("pushup"))
}

func TestSetMap_MergeRecords(t *testing.T) {
	m := InitialSets(ledgerWorkout())
	m, _ = m.withCompleted("bench", 1, true) // client-side completion wins

	merged := m.mergeRecords([]store.SetRecord{
		{ExerciseID: "bench", SetOrder: 1, Weight: "99", Reps: 5, Completed: false},
		{ExerciseID: "bench", SetOrder: 2, Weight: "50", Reps: 8, Completed: true, SetType: "warm_up"},
		{ExerciseID: "gone", SetOrder: 1, Weight: "10"},
		{ExerciseID: "bench", SetOrder: 9, Weight: "10"},
	})

	// Row for the already-completed set was ignored.
	s1, _ := merged.Get("bench", 1)
	assert.True(t, s1.Completed)
	assert.Empty(t, s1.Weight)

	s2, _ := merged.Get("bench", 2)
	assert.True(t, s2.Completed)
	assert.Equal(t, "50", s2.Weight)
	assert.Equal(t, 8, s2.Reps)
	assert.Equal(t, plan.SetTypeWarmUp, s2.SetType)

	// Unknown keys dropped without effect.
	_, ok := merged.Get("gone", 1)
	assert.False(t, ok)
}

func TestSetMap_SeedWeightsFillsOnlyEmpty(t *testing.T) {
	m := InitialSets(ledgerWorkout())
	m, _ = m.withWeight("bench", 2, "60")

	seeded := m.seedWeights([]store.SetRecord{
		{ExerciseID: "bench", SetOrder: 1, Weight: "55", Reps: 9, Completed: true},
		{ExerciseID: "bench", SetOrder: 2, Weight: "52"},
		{ExerciseID: "bench", SetOrder: 3, Weight: ""},
	})

	s1, _ := seeded.Get("bench", 1)
	assert.Equal(t, "55", s1.Weight)
	assert.False(t, s1.Completed, "seeding copies weights only")
	assert.Equal(t, 10, s1.Reps)

	s2, _ := seeded.Get("bench", 2)
	assert.Equal(t, "60", s2.Weight, "existing weight kept")

	s3, _ := seeded.Get("bench", 3)
	assert.Empty(t, s3.Weight)

	// Bodyweight sentinel counts as a weight and is not overwritten.
	p1, _ := seeded.Get("pushup", 1)
	assert.Equal(t, BodyweightSentinel, p1.Weight)
}

func TestPersistableRecords(t *testing.T) {
	w := ledgerWorkout()
	m := InitialSets(w)
	m, _ = m.withWeight("bench", 1, "50")
	m, _ = m.withCompleted("bench", 1, true)
	m, _ = m.withWeight("bench", 3, "55") // weight only, not completed

	recs := persistableRecords(w, m)

	// bench 1 and 3, plus both bodyweight push-up sets (sentinel weight).
	require.Len(t, recs, 4)
	assert.Equal(t, "bench", recs[0].ExerciseID)
	assert.Equal(t, 1, recs[0].SetOrder)
	assert.True(t, recs[0].Completed)
	assert.Equal(t, "bench", recs[1].ExerciseID)
	assert.Equal(t, 3, recs[1].SetOrder)
	assert.False(t, recs[1].Completed)
	assert.Equal(t, "pushup", recs[2].ExerciseID)
	assert.Equal(t, string(plan.SetTypeRegular), recs[2].SetType)
}
