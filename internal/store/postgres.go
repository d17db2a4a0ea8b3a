package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore talks to a self-hosted Postgres backend shared between
// devices. Schema management is external via RunMigrations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a connection pool for dsn and verifies it with a
// ping. A backend that cannot be reached yields ErrUnavailable.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &PostgresStore{pool: pool}, nil
}

// RunMigrations applies all pending migrations from the given directory.
func RunMigrations(dsn, migrationsPath string) error {
	m, err := migrate.New("file://"+migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) FindOpenSession(ctx context.Context, userID, workoutID string) (*SessionRef, error) {
	ref := SessionRef{UserID: userID, WorkoutID: workoutID}
	err := s.pool.QueryRow(ctx,
		`SELECT id, start_time FROM workout_sessions
		 WHERE user_id = $1 AND workout_id = $2 AND end_time IS NULL
		 ORDER BY start_time DESC LIMIT 1`,
		userID, workoutID,
	).Scan(&ref.ID, &ref.StartTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding open session: %w", err)
	}
	return &ref, nil
}

func (s *PostgresStore) DeleteStaleOpenSessions(ctx context.Context, userID string, olderThan time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("deleting stale sessions: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM completed_sets WHERE session_id IN (
			SELECT id FROM workout_sessions
			WHERE user_id = $1 AND end_time IS NULL AND start_time < $2)`,
		userID, olderThan)
	if err != nil {
		return fmt.Errorf("deleting stale session sets: %w", err)
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM workout_sessions
		 WHERE user_id = $1 AND end_time IS NULL AND start_time < $2`,
		userID, olderThan)
	if err != nil {
		return fmt.Errorf("deleting stale sessions: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID, workoutID string, startTime time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workout_sessions (id, user_id, workout_id, start_time) VALUES ($1, $2, $3, $4)`,
		id, userID, workoutID, startTime)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) CloseSession(ctx context.Context, sessionID string, endTime time.Time, durationSeconds int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE workout_sessions SET end_time = $1, duration_seconds = $2 WHERE id = $3`,
		endTime, durationSeconds, sessionID)
	if err != nil {
		return fmt.Errorf("closing session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("closing session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM workout_sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertSet(ctx context.Context, sessionID string, rec SetRecord) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE completed_sets
		 SET weight = $1, reps = $2, is_completed = $3, notes = $4, set_type = $5
		 WHERE session_id = $6 AND exercise_instance_id = $7 AND set_order = $8`,
		rec.Weight, rec.Reps, rec.Completed, rec.Notes, rec.SetType,
		sessionID, rec.ExerciseID, rec.SetOrder)
	if err != nil {
		return fmt.Errorf("updating set: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO completed_sets
		 (id, session_id, exercise_instance_id, set_order, weight, reps, is_completed, notes, set_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.NewString(), sessionID, rec.ExerciseID, rec.SetOrder,
		rec.Weight, rec.Reps, rec.Completed, rec.Notes, rec.SetType)
	if err != nil {
		return fmt.Errorf("inserting set: %w", err)
	}
	return nil
}

func (s *PostgresStore) BulkUpsertSets(ctx context.Context, sessionID string, recs []SetRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("bulk upserting sets: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range recs {
		tag, err := tx.Exec(ctx,
			`UPDATE completed_sets
			 SET weight = $1, reps = $2, is_completed = $3, notes = $4, set_type = $5
			 WHERE session_id = $6 AND exercise_instance_id = $7 AND set_order = $8`,
			rec.Weight, rec.Reps, rec.Completed, rec.Notes, rec.SetType,
			sessionID, rec.ExerciseID, rec.SetOrder)
		if err != nil {
			return fmt.Errorf("updating set: %w", err)
		}
		if tag.RowsAffected() > 0 {
			continue
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO completed_sets
			 (id, session_id, exercise_instance_id, set_order, weight, reps, is_completed, notes, set_type)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.NewString(), sessionID, rec.ExerciseID, rec.SetOrder,
			rec.Weight, rec.Reps, rec.Completed, rec.Notes, rec.SetType)
		if err != nil {
			return fmt.Errorf("inserting set: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) LoadSets(ctx context.Context, sessionID string) ([]SetRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT exercise_instance_id, set_order, weight, reps, is_completed, notes, set_type
		 FROM completed_sets WHERE session_id = $1
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

func (s *PostgresStore) DeleteSets(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM completed_sets WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("deleting sets: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountSetRows(ctx context.Context, sessionID, exerciseID string, setOrder int) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM completed_sets
		 WHERE session_id = $1 AND exercise_instance_id = $2 AND set_order = $3`,
		sessionID, exerciseID, setOrder,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting set rows: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) DeleteSetRows(ctx context.Context, sessionID, exerciseID string, setOrder int) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM completed_sets
		 WHERE session_id = $1 AND exercise_instance_id = $2 AND set_order = $3`,
		sessionID, exerciseID, setOrder)
	if err != nil {
		return fmt.Errorf("deleting set rows: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestCompletedSets(ctx context.Context, userID, workoutID string) ([]SetRecord, error) {
	var sessionID string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM workout_sessions
		 WHERE user_id = $1 AND workout_id = $2 AND end_time IS NOT NULL
		 ORDER BY end_time DESC LIMIT 1`,
		userID, workoutID,
	).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding latest completed session: %w", err)
	}
	return s.LoadSets(ctx, sessionID)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
