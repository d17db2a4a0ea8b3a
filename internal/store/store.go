// Package store persists workout sessions and their set records.
//
// Three implementations share one interface: SQLite for the default local
// setup, Postgres for a self-hosted server, and an in-memory store for
// demos and tests. The runtime treats them identically.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound reports a lookup of a row that must exist but does not.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable reports that the backend cannot currently be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// SessionRef identifies a persisted session row. StartTime is carried as a
// value so a resumed session's elapsed time is computed from the row, not
// from any shared state.
type SessionRef struct {
	ID        string
	UserID    string
	WorkoutID string
	StartTime time.Time
}

// SetRecord is one persisted set. Weight is raw text: numeric text, the
// "BW" bodyweight sentinel, or empty.
type SetRecord struct {
	ExerciseID string
	SetOrder   int
	Weight     string
	Reps       int
	Completed  bool
	Notes      string
	SetType    string
}

// SessionStore is the persistence boundary of the session runtime.
//
// FindOpenSession and LatestCompletedSets return (nil, nil) when nothing
// matches; ErrNotFound is reserved for operations on ids that must exist.
// DeleteSession, DeleteSets and DeleteSetRows are idempotent so a cancel
// retry after a partial failure does not error.
type SessionStore interface {
	// Ping checks backend reachability. Failures wrap ErrUnavailable.
	Ping(ctx context.Context) error

	// FindOpenSession returns the most recent session for the user and
	// workout that has no end time, or nil when there is none.
	FindOpenSession(ctx context.Context, userID, workoutID string) (*SessionRef, error)

	// DeleteStaleOpenSessions removes the user's open sessions (and their
	// sets) started before olderThan.
	DeleteStaleOpenSessions(ctx context.Context, userID string, olderThan time.Time) error

	CreateSession(ctx context.Context, userID, workoutID string, startTime time.Time) (string, error)
	CloseSession(ctx context.Context, sessionID string, endTime time.Time, durationSeconds int) error
	DeleteSession(ctx context.Context, sessionID string) error

	// UpsertSet writes rec for its (exercise, set order) key within the
	// session, replacing any existing row for that key.
	UpsertSet(ctx context.Context, sessionID string, rec SetRecord) error
	BulkUpsertSets(ctx context.Context, sessionID string, recs []SetRecord) error
	LoadSets(ctx context.Context, sessionID string) ([]SetRecord, error)
	DeleteSets(ctx context.Context, sessionID string) error

	// CountSetRows reports how many rows exist for one set key. More than
	// one means the backend holds duplicates; DeleteSetRows clears the key
	// so a single row can be rewritten.
	CountSetRows(ctx context.Context, sessionID, exerciseID string, setOrder int) (int, error)
	DeleteSetRows(ctx context.Context, sessionID, exerciseID string, setOrder int) error

	// LatestCompletedSets returns the sets of the user's most recently
	// closed session for the workout, or nil when there is none.
	LatestCompletedSets(ctx context.Context, userID, workoutID string) ([]SetRecord, error)

	Close() error
}
