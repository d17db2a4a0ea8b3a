package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The memory store backs demo mode and the runtime tests, so it has to
// match the SQL stores' semantics exactly.
func TestMemoryStore_MatchesStoreSemantics(t *testing.T) {
	ctx := context.Background()
	var s SessionStore = NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.Ping(ctx))

	ref, err := s.FindOpenSession(ctx, "u1", "push-day")
	require.NoError(t, err)
	assert.Nil(t, ref)

	id, err := s.CreateSession(ctx, "u1", "push-day", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	ref, err = s.FindOpenSession(ctx, "u1", "push-day")
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, id, ref.ID)

	require.NoError(t, s.UpsertSet(ctx, id, SetRecord{ExerciseID: "bench", SetOrder: 1, Weight: "60"}))
	require.NoError(t, s.UpsertSet(ctx, id, SetRecord{ExerciseID: "bench", SetOrder: 1, Weight: "62.5", Completed: true}))

	count, err := s.CountSetRows(ctx, id, "bench", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	recs, err := s.LoadSets(ctx, id)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "62.5", recs[0].Weight)
	assert.True(t, recs[0].Completed)

	require.NoError(t, s.CloseSession(ctx, id, time.Now(), 90))
	ref, err = s.FindOpenSession(ctx, "u1", "push-day")
	require.NoError(t, err)
	assert.Nil(t, ref)

	recs, err = s.LatestCompletedSets(ctx, "u1", "push-day")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "62.5", recs[0].Weight)

	assert.ErrorIs(t, s.CloseSession(ctx, "missing", time.Now(), 0), ErrNotFound)

	// Deletes are idempotent.
	require.NoError(t, s.DeleteSets(ctx, id))
	require.NoError(t, s.DeleteSets(ctx, id))
	require.NoError(t, s.DeleteSession(ctx, id))
	require.NoError(t, s.DeleteSession(ctx, id))
}

func TestMemoryStore_DeleteStaleOpenSessions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	staleID, err := s.CreateSession(ctx, "u1", "push-day", time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.UpsertSet(ctx, staleID, SetRecord{ExerciseID: "bench", SetOrder: 1}))

	freshID, err := s.CreateSession(ctx, "u1", "push-day", time.Now())
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

func TestMemoryStore_DeleteSetRows(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.CreateSession(ctx, "u1", "push-day", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.UpsertSet(ctx, id, SetRecord{ExerciseID: "bench", SetOrder: 1, Weight: "60"}))
	require.NoError(t, s.UpsertSet(ctx, id, SetRecord{ExerciseID: "bench", SetOrder: 2, Weight: "60"}))

	require.NoError(t, s.DeleteSetRows(ctx, id, "bench", 1))

	recs, err := s.LoadSets(ctx, id)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].SetOrder)
}
