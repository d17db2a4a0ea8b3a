package session

import (
	"math"

	"github.com/brunosouza-justauto/lifttrack/internal/plan"
	"github.com/brunosouza-justauto/lifttrack/internal/store"
)

// SetMap is the set ledger: exercise id to that exercise's sets ordered
// by SetOrder. It is the single source of truth for the attempt, and
// every mutation goes copy-on-write - a new map with a fresh slice for
// the touched exercise - so consumers comparing references always see
// changes. Returned maps must therefore never be mutated in place.
type SetMap map[string][]CompletedSet

// InitialSets builds the full ledger for a workout: one CompletedSet per
// effective set spec, in spec order. Bodyweight exercises start with the
// "BW" sentinel as their weight.
func InitialSets(w *plan.Workout) SetMap {
	m := make(SetMap, len(w.Exercises))
	for i := range w.Exercises {
		e := &w.Exercises[i]
		specs := e.EffectiveSets()
		sets := make([]CompletedSet, len(specs))
		for j, spec := range specs {
			sets[j] = CompletedSet{
				ExerciseID: e.ID,
				SetOrder:   spec.Order,
				Reps:       spec.Reps,
				SetType:    spec.Type,
			}
			if e.Bodyweight {
				sets[j].Weight = BodyweightSentinel
			}
		}
		m[e.ID] = sets
	}
	return m
}

// Get returns the set for the key, or false when the ledger has none.
func (m SetMap) Get(exerciseID string, setOrder int) (CompletedSet, bool) {
	for _, s := range m[exerciseID] {
		if s.SetOrder == setOrder {
			return s, true
		}
	}
	return CompletedSet{}, false
}

// mutate returns a copy of the ledger with fn applied to the given set.
// The untouched exercises share their slices with the original map. ok
// is false when the key does not exist, in which case the original map
// is returned unchanged.
func (m SetMap) mutate(exerciseID string, setOrder int, fn func(*CompletedSet)) (SetMap, bool) {
	sets, exists := m[exerciseID]
	if !exists {
		return m, false
	}
	idx := -1
	for i := range sets {
		if sets[i].SetOrder == setOrder {
			idx = i
			break
		}
	}
	if idx < 0 {
		return m, false
	}

	next := make(SetMap, len(m))
	for k, v := range m {
		next[k] = v
	}
	copied := make([]CompletedSet, len(sets))
	copy(copied, sets)
	fn(&copied[idx])
	next[exerciseID] = copied
	return next, true
}

// withWeight returns a copy with the set's weight replaced by text,
// stored verbatim.
func (m SetMap) withWeight(exerciseID string, setOrder int, text string) (SetMap, bool) {
	return m.mutate(exerciseID, setOrder, func(s *CompletedSet) { s.Weight = text })
}

// withReps returns a copy with the set's rep count replaced.
func (m SetMap) withReps(exerciseID string, setOrder, reps int) (SetMap, bool) {
	return m.mutate(exerciseID, setOrder, func(s *CompletedSet) { s.Reps = reps })
}

// withNotes returns a copy with the set's notes replaced.
func (m SetMap) withNotes(exerciseID string, setOrder int, notes string) (SetMap, bool) {
	return m.mutate(exerciseID, setOrder, func(s *CompletedSet) { s.Notes = notes })
}

// withCompleted returns a copy with the set's completion flag set. The
// weight rules around completing live in the runtime, not here.
func (m SetMap) withCompleted(exerciseID string, setOrder int, done bool) (SetMap, bool) {
	return m.mutate(exerciseID, setOrder, func(s *CompletedSet) { s.Completed = done })
}

// withBodyweightToggled flips a whole exercise between bodyweight and
// empty weights in one batch: if any set is not "BW" every set becomes
// "BW", otherwise every set becomes empty.
func (m SetMap) withBodyweightToggled(exerciseID string) (SetMap, bool) {
	sets, exists := m[exerciseID]
	if !exists {
		return m, false
	}

	allBW := true
	for i := range sets {
		if sets[i].Weight != BodyweightSentinel {
			allBW = false
			break
		}
	}
	target := BodyweightSentinel
	if allBW {
		target = ""
	}

	next := make(SetMap, len(m))
	for k, v := range m {
		next[k] = v
	}
	copied := make([]CompletedSet, len(sets))
	copy(copied, sets)
	for i := range copied {
		copied[i].Weight = target
	}
	next[exerciseID] = copied
	return next, true
}

// lastWeightBefore scans backward through the sets preceding setOrder
// for the most recent non-empty weight, returning "" when there is none.
func lastWeightBefore(sets []CompletedSet, setOrder int) string {
	best := ""
	for _, s := range sets {
		if s.SetOrder >= setOrder {
			continue
		}
		if s.Weight != "" {
			best = s.Weight
		}
	}
	return best
}

// ExerciseComplete reports whether every set of the exercise is done.
// Unknown exercises are not complete.
func (m SetMap) ExerciseComplete(exerciseID string) bool {
	sets, exists := m[exerciseID]
	if !exists || len(sets) == 0 {
		return false
	}
	for _, s := range sets {
		if !s.Completed {
			return false
		}
	}
	return true
}

// Counts returns the completed and total set counts across the ledger.
func (m SetMap) Counts() (completed, total int) {
	for _, sets := range m {
		total += len(sets)
		for _, s := range sets {
			if s.Completed {
				completed++
			}
		}
	}
	return completed, total
}

// Progress returns the completed percentage, rounded to the nearest
// whole number. An empty ledger is 0.
func (m SetMap) Progress() int {
	return progressPercent(m.Counts())
}

func progressPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// mergeRecords applies persisted rows onto the ledger by (exercise, set
// order) key, for resuming an interrupted session. Rows for keys the
// workout no longer has are dropped, and a row never overwrites a set
// already completed on this side.
func (m SetMap) mergeRecords(recs []store.SetRecord) SetMap {
	next := m
	for _, rec := range recs {
		cur, exists := next.Get(rec.ExerciseID, rec.SetOrder)
		if !exists || cur.Completed {
			continue
		}
		next, _ = next.mutate(rec.ExerciseID, rec.SetOrder, func(s *CompletedSet) {
			s.Weight = rec.Weight
			s.Reps = rec.Reps
			s.Completed = rec.Completed
			s.Notes = rec.Notes
			if rec.SetType != "" {
				s.SetType = plan.SetType(rec.SetType)
			}
		})
	}
	return next
}

// seedWeights fills empty weights from a previous attempt's rows without
// touching anything else, so the user starts from last time's numbers.
func (m SetMap) seedWeights(recs []store.SetRecord) SetMap {
	next := m
	for _, rec := range recs {
		if rec.Weight == "" {
			continue
		}
		cur, exists := next.Get(rec.ExerciseID, rec.SetOrder)
		if !exists || cur.Weight != "" {
			continue
		}
		weight := rec.Weight
		next, _ = next.mutate(rec.ExerciseID, rec.SetOrder, func(s *CompletedSet) {
			s.Weight = weight
		})
	}
	return next
}

// record converts a ledger entry to its persisted form.
func (s CompletedSet) record() store.SetRecord {
	return store.SetRecord{
		ExerciseID: s.ExerciseID,
		SetOrder:   s.SetOrder,
		Weight:     s.Weight,
		Reps:       s.Reps,
		Completed:  s.Completed,
		Notes:      s.Notes,
		SetType:    string(s.SetType),
	}
}

// persistableRecords returns the rows worth writing at completion, in
// workout order: every set with a non-empty weight or completion mark.
func persistableRecords(w *plan.Workout, m SetMap) []store.SetRecord {
	var recs []store.SetRecord
	for i := range w.Exercises {
		for _, s := range m[w.Exercises[i].ID] {
			if s.Weight != "" || s.Completed {
				recs = append(recs, s.record())
			}
		}
	}
	return recs
}
