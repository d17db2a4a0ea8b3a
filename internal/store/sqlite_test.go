package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Ping(ctx))

	ref, err := s.FindOpenSession(ctx, "u1", "push-day")
	require.NoError(t, err)
	assert.Nil(t, ref)

	start := time.Now().Add(-time.Minute)
	id, err := s.CreateSession(ctx, "u1", "push-day", start)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ref, err = s.FindOpenSession(ctx, "u1", "push-day")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, id, ref.ID)
	assert.WithinDuration(t, start, ref.StartTime, time.Second)

	// Other users and workouts do not see it.
	ref, err = s.FindOpenSession(ctx, "u2", "push-day")
	require.NoError(t, err)
	assert.Nil(t, ref)
	ref, err = s.FindOpenSession(ctx, "u1", "pull-day")
	require.NoError(t, err)
	assert.Nil(t, ref)

	require.NoError(t, s.CloseSession(ctx, id, time.Now(), 60))

	ref, err = s.FindOpenSession(ctx, "u1", "push-day")
	require.NoError(t, err)
	assert.Nil(t, ref)

	err = s.CloseSession(ctx, "missing-id", time.Now(), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_SetsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.CreateSession(ctx, "u1", "push-day", time.Now())
	require.NoError(t, err)

	rec := SetRecord{ExerciseID: "bench", SetOrder: 1, Weight: "60", Reps: 8, SetType: "regular"}
	require.NoError(t, s.UpsertSet(ctx, id, rec))

	// Second upsert for the same key replaces, not duplicates.
	rec.Weight = "62.5"
	rec.Completed = true
	require.NoError(t, s.UpsertSet(ctx, id, rec))

	count, err := s.CountSetRows(ctx, id, "bench", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.BulkUpsertSets(ctx, id, []SetRecord{
		{ExerciseID: "bench", SetOrder: 2, Weight: "62.5", Reps: 8, SetType: "regular"},
		{ExerciseID: "squat", SetOrder: 1, Weight: "100", Reps: 5, Completed: true, SetType: "regular"},
	}))

	recs, err := s.LoadSets(ctx, id)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "bench", recs[0].ExerciseID)
	assert.Equal(t, 1, recs[0].SetOrder)
	assert.Equal(t, "62.5", recs[0].Weight)
	assert.True(t, recs[0].Completed)
	assert.Equal(t, "squat", recs[2].ExerciseID)

	require.NoError(t, s.DeleteSets(ctx, id))
	recs, err = s.LoadSets(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSQLiteStore_DuplicateRowCollapse(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.CreateSession(ctx, "u1", "push-day", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.UpsertSet(ctx, id, SetRecord{ExerciseID: "bench", SetOrder: 1, Weight: "60"}))

	// Plant a duplicate row for the same key, as a misbehaving backend would.
	_, err = s.db.Exec(
		`INSERT INTO completed_sets (id, session_id, exercise_instance_id, set_order, weight)
		 VALUES ('dup-row', ?, 'bench', 1, '55')`, id)
	require.NoError(t, err)

	count, err := s.CountSetRows(ctx, id, "bench", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, s.DeleteSetRows(ctx, id, "bench", 1))
	count, err = s.CountSetRows(ctx, id, "bench", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, s.UpsertSet(ctx, id, SetRecord{ExerciseID: "bench", SetOrder: 1, Weight: "60"}))
	count, err = s.CountSetRows(ctx, id, "bench", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStore_DeleteStaleOpenSessions(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	staleID, err := s.CreateSession(ctx, "u1", "push-day", time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.UpsertSet(ctx, staleID, SetRecord{ExerciseID: "bench", SetOrder: 1, Weight: "60"}))

	freshID, err := s.CreateSession(ctx, "u1", "push-day", time.Now().Add(-time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.DeleteStaleOpenSessions(ctx, "u1", time.Now().Add(-24*time.Hour)))

	ref, err := s.FindOpenSession(ctx, "u1", "push-day")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, freshID, ref.ID)

	recs, err := s.LoadSets(ctx, staleID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSQLiteStore_LatestCompletedSets(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	recs, err := s.LatestCompletedSets(ctx, "u1", "push-day")
	require.NoError(t, err)
	assert.Nil(t, recs)

	oldID, err := s.CreateSession(ctx, "u1", "push-day", time.Now().Add(-72*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.UpsertSet(ctx, oldID, SetRecord{ExerciseID: "bench", SetOrder: 1, Weight: "55", Completed: true}))
	require.NoError(t, s.CloseSession(ctx, oldID, time.Now().Add(-71*time.Hour), 3600))

	newID, err := s.CreateSession(ctx, "u1", "push-day", time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.UpsertSet(ctx, newID, SetRecord{ExerciseID: "bench", SetOrder: 1, Weight: "60", Completed: true}))
	require.NoError(t, s.CloseSession(ctx, newID, time.Now().Add(-23*time.Hour), 3600))

	// An open session never contributes, whatever its sets say.
	openID, err := s.CreateSession(ctx, "u1", "push-day", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.UpsertSet(ctx, openID, SetRecord{ExerciseID: "bench", SetOrder: 1, Weight: "70", Completed: true}))

	recs, err = s.LatestCompletedSets(ctx, "u1", "push-day")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "60", recs[0].Weight)
}
