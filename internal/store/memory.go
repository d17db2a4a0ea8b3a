package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memSession struct {
	ref      SessionRef
	endTime  *time.Time
	duration int
}

// MemoryStore keeps everything in process memory. It backs demo mode and
// tests; nothing survives a restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memSession
	sets     map[string][]SetRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memSession),
		sets:     make(map[string][]SetRecord),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) FindOpenSession(ctx context.Context, userID, workoutID string) (*SessionRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *memSession
	for _, sess := range s.sessions {
		if sess.ref.UserID != userID || sess.ref.WorkoutID != workoutID || sess.endTime != nil {
			continue
		}
		if latest == nil || sess.ref.StartTime.After(latest.ref.StartTime) {
			latest = sess
		}
	}
	if latest == nil {
		return nil, nil
	}
	ref := latest.ref
	return &ref, nil
}

func (s *MemoryStore) DeleteStaleOpenSessions(ctx context.Context, userID string, olderThan time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.ref.UserID == userID && sess.endTime == nil && sess.ref.StartTime.Before(olderThan) {
			delete(s.sessions, id)
			delete(s.sets, id)
		}
	}
	return nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, userID, workoutID string, startTime time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.sessions[id] = &memSession{
		ref: SessionRef{ID: id, UserID: userID, WorkoutID: workoutID, StartTime: startTime},
	}
	return id, nil
}

func (s *MemoryStore) CloseSession(ctx context.Context, sessionID string, endTime time.Time, durationSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("closing session %s: %w", sessionID, ErrNotFound)
	}
	sess.endTime = &endTime
	sess.duration = durationSeconds
	return nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) UpsertSet(ctx context.Context, sessionID string, rec SetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.sets[sessionID]
	for i := range rows {
		if rows[i].ExerciseID == rec.ExerciseID && rows[i].SetOrder == rec.SetOrder {
			rows[i] = rec
			return nil
		}
	}
	s.sets[sessionID] = append(rows, rec)
	return nil
}

func (s *MemoryStore) BulkUpsertSets(ctx context.Context, sessionID string, recs []SetRecord) error {
	for _, rec := range recs {
		if err := s.UpsertSet(ctx, sessionID, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) LoadSets(ctx context.Context, sessionID string) ([]SetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.sets[sessionID]
	out := make([]SetRecord, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *MemoryStore) DeleteSets(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sets, sessionID)
	return nil
}

func (s *MemoryStore) CountSetRows(ctx context.Context, sessionID, exerciseID string, setOrder int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, row := range s.sets[sessionID] {
		if row.ExerciseID == exerciseID && row.SetOrder == setOrder {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DeleteSetRows(ctx context.Context, sessionID, exerciseID string, setOrder int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.sets[sessionID]
	kept := rows[:0]
	for _, row := range rows {
		if row.ExerciseID != exerciseID || row.SetOrder != setOrder {
			kept = append(kept, row)
		}
	}
	s.sets[sessionID] = kept
	return nil
}

func (s *MemoryStore) LatestCompletedSets(ctx context.Context, userID, workoutID string) ([]SetRecord, error) {
	s.mu.Lock()

	var latest *memSession
	for _, sess := range s.sessions {
		if sess.ref.UserID != userID || sess.ref.WorkoutID != workoutID || sess.endTime == nil {
			continue
		}
		if latest == nil || sess.endTime.After(*latest.endTime) {
			latest = sess
		}
	}
	if latest == nil {
		s.mu.Unlock()
		return nil, nil
	}
	id := latest.ref.ID
	s.mu.Unlock()

	return s.LoadSets(ctx, id)
}

func (s *MemoryStore) Close() error {
	return nil
}
