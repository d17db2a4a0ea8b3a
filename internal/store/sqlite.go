package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS workout_sessions (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	workout_id       TEXT NOT NULL,
	start_time       TIMESTAMP NOT NULL,
	end_time         TIMESTAMP,
	duration_seconds INTEGER
);
CREATE TABLE IF NOT EXISTS completed_sets (
	id                   TEXT PRIMARY KEY,
	session_id           TEXT NOT NULL,
	exercise_instance_id TEXT NOT NULL,
	set_order            INTEGER NOT NULL,
	weight               TEXT NOT NULL DEFAULT '',
	reps                 INTEGER NOT NULL DEFAULT 0,
	is_completed         INTEGER NOT NULL DEFAULT 0,
	notes                TEXT NOT NULL DEFAULT '',
	set_type             TEXT NOT NULL DEFAULT 'regular'
);
CREATE INDEX IF NOT EXISTS completed_sets_by_key
	ON completed_sets (session_id, exercise_instance_id, set_order);
`

// SQLiteStore is the default local backend, a single database file under
// the user's data directory.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the session database at path, creating
// parent directories and the schema as needed.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating session schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) FindOpenSession(ctx context.Context, userID, workoutID string) (*SessionRef, error) {
	ref := SessionRef{UserID: userID, WorkoutID: workoutID}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, start_time FROM workout_sessions
		 WHERE user_id = ? AND workout_id = ? AND end_time IS NULL
		 ORDER BY start_time DESC LIMIT 1`,
		userID, workoutID,
	).Scan(&ref.ID, &ref.StartTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding open session: %w", err)
	}
	return &ref, nil
}

func (s *SQLiteStore) DeleteStaleOpenSessions(ctx context.Context, userID string, olderThan time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("deleting stale sessions: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM completed_sets WHERE session_id IN (
			SELECT id FROM workout_sessions
			WHERE user_id = ? AND end_time IS NULL AND start_time < ?)`,
		userID, olderThan)
	if err != nil {
		return fmt.Errorf("deleting stale session sets: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`DELETE FROM workout_sessions
		 WHERE user_id = ? AND end_time IS NULL AND start_time < ?`,
		userID, olderThan)
	if err != nil {
		return fmt.Errorf("deleting stale sessions: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, userID, workoutID string, startTime time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workout_sessions (id, user_id, workout_id, start_time) VALUES (?, ?, ?, ?)`,
		id, userID, workoutID, startTime)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) CloseSession(ctx context.Context, sessionID string, endTime time.Time, durationSeconds int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE workout_sessions SET end_time = ?, duration_seconds = ? WHERE id = ?`,
		endTime, durationSeconds, sessionID)
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("closing session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM workout_sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertSet(ctx context.Context, sessionID string, rec SetRecord) error {
	return s.upsertSet(ctx, s.db, sessionID, rec)
}

// execer lets upsertSet run both standalone and inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) upsertSet(ctx context.Context, db execer, sessionID string, rec SetRecord) error {
	res, err := db.ExecContext(ctx,
		`UPDATE completed_sets
		 SET weight = ?, reps = ?, is_completed = ?, notes = ?, set_type = ?
		 WHERE session_id = ? AND exercise_instance_id = ? AND set_order = ?`,
		rec.Weight, rec.Reps, rec.Completed, rec.Notes, rec.SetType,
		sessionID, rec.ExerciseID, rec.SetOrder)
	if err != nil {
		return fmt.Errorf("updating set: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating set: %w", err)
	}
	if n > 0 {
		return nil
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO completed_sets
		 (id, session_id, exercise_instance_id, set_order, weight, reps, is_completed, notes, set_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, rec.ExerciseID, rec.SetOrder,
		rec.Weight, rec.Reps, rec.Completed, rec.Notes, rec.SetType)
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}

func (s *SQLiteStore) BulkUpsertSets(ctx context.Context, sessionID string, recs []SetRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("bulk upserting sets: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if err := s.upsertSet(ctx, tx, sessionID, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSets(ctx context.Context, sessionID string) ([]SetRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exercise_instance_id, set_order, weight, reps, is_completed, notes, set_type
		 FROM completed_sets WHERE session_id = ?
		 ORDER BY exercise_instance_id, set_order`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading sets: %w", err)
	}
	defer rows.Close()

	var recs []SetRecord
	for rows.Next() {
		var rec SetRecord
		if err := rows.Scan(&rec.ExerciseID, &rec.SetOrder, &rec.Weight, &rec.Reps, &rec.Completed, &rec.Notes, &rec.SetType); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading sets: %w", err)
	}
	return recs, nil
}

func (s *SQLiteStore) DeleteSets(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM completed_sets WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting sets: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountSetRows(ctx context.Context, sessionID, exerciseID string, setOrder int) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM completed_sets
		 WHERE session_id = ? AND exercise_instance_id = ? AND set_order = ?`,
		sessionID, exerciseID, setOrder,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting set rows: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) DeleteSetRows(ctx context.Context, sessionID, exerciseID string, setOrder int) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM completed_sets
		 WHERE session_id = ? AND exercise_instance_id = ? AND set_order = ?`,
		sessionID, exerciseID, setOrder)
	if err != nil {
		return fmt.Errorf("deleting set rows: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LatestCompletedSets(ctx context.Context, userID, workoutID string) ([]SetRecord, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM workout_sessions
		 WHERE user_id = ? AND workout_id = ? AND end_time IS NOT NULL
		 ORDER BY end_time DESC LIMIT 1`,
		userID, workoutID,
	).Scan(&sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding latest completed session: %w", err)
	}
	return s.LoadSets(ctx, sessionID)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
