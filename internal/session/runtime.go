package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/brunosouza-justauto/lifttrack/internal/plan"
	"github.com/brunosouza-justauto/lifttrack/internal/safe"
	"github.com/brunosouza-justauto/lifttrack/internal/store"
)

const (
	// staleSessionAge is how old an open session may get before the
	// start-time sweep deletes it instead of offering a resume.
	staleSessionAge = 24 * time.Hour
	// debounceWindow collapses rapid edits of one set into one write.
	debounceWindow = time.Second
	// deleteRetryDelay sits between the two deletion attempts of a
	// cancel or discard.
	deleteRetryDelay = time.Second
	// persistTimeout bounds each background write.
	persistTimeout = 10 * time.Second

	writeQueueSize = 64
)

// inProgress reports whether sets can be edited and writes persisted in
// the given status.
func inProgress(s Status) bool {
	return s == StatusStarting || s == StatusActive || s == StatusPaused
}

// RuntimeArgs carries the dependencies for NewRuntime. Ticks and Clock
// default to a one-second ticker and time.Now; everything else is
// required.
type RuntimeArgs struct {
	Workout *plan.Workout
	Store   store.SessionStore
	Model   *Model
	UserID  string
	Logger  *log.Logger
	Ticks   TickSource
	Clock   func() time.Time
}

// Runtime is the session lifecycle controller. It owns the attempt's
// mutable state (status, timebase, countdown engine, set ledger), runs
// the shared tick loop, and persists changes through the store. State
// flows out through the Model only.
type Runtime struct {
	workout *plan.Workout
	store   store.SessionStore
	model   *Model
	userID  string
	logger  *log.Logger
	ticks   TickSource
	clock   func() time.Time

	// Current session state (protected by mu)
	mu             sync.RWMutex
	status         Status
	sessionID      string
	timebase       Timebase
	countdown      Countdown
	sets           SetMap
	announcedStart bool
	feedbackFired  map[string]bool
	pending        map[setKey]time.Time

	// Goroutine management
	writeChan    chan persistJob
	doneChan     chan struct{}
	wg           sync.WaitGroup
	shutdownOnce sync.Once
}

// NewRuntime creates a Runtime for one workout and starts its tick loop
// and persister.
func NewRuntime(args RuntimeArgs) *Runtime {
	if args.Workout == nil {
		panic("Runtime: workout cannot be nil")
	}
	if args.Store == nil {
		panic("Runtime: store cannot be nil")
	}
	if args.Model == nil {
		panic("Runtime: model cannot be nil")
	}
	if args.UserID == "" {
		panic("Runtime: user id cannot be empty")
	}
	if args.Logger == nil {
		panic("Runtime: logger cannot be nil")
	}
	if args.Ticks == nil {
		args.Ticks = NewTickerSource(time.Second)
	}
	if args.Clock == nil {
		args.Clock = time.Now
	}

	r := &Runtime{
		workout:       args.Workout,
		store:         args.Store,
		model:         args.Model,
		userID:        args.UserID,
		logger:        args.Logger,
		ticks:         args.Ticks,
		clock:         args.Clock,
		status:        StatusNotStarted,
		sets:          InitialSets(args.Workout),
		feedbackFired: make(map[string]bool),
		pending:       make(map[setKey]time.Time),
		writeChan:     make(chan persistJob, writeQueueSize),
		doneChan:      make(chan struct{}),
	}

	r.model.SetWorkout(r.workout)
	r.model.SetSets(r.sets)
	r.model.SetSessionState(r.snapshotState())

	r.wg.Add(1)
	safe.Go(r.logger, "runtime-tick-loop", func() { r.runLoop() })
	r.wg.Add(1)
	safe.Go(r.logger, "runtime-persister", func() { r.runPersister() })

	return r
}

// Shutdown stops the tick loop and the persister, draining queued
// writes first. Safe to call multiple times - only the first call has
// effect.
func (r *Runtime) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.logger.Printf("Runtime: Shutting down")
		close(r.doneChan)
		r.wg.Wait()
		r.logger.Printf("Runtime: Shutdown complete")
	})
}

// Start begins a new attempt. When an open session for this user and
// workout already exists it is returned and nothing starts: the caller
// surfaces the resume-or-discard choice and calls ResumeSession or
// DiscardSession with the ref. A nil ref means a fresh session row was
// created and the pre-roll countdown is running.
func (r *Runtime) Start(ctx context.Context) (*store.SessionRef, error) {
	r.mu.RLock()
	status := r.status
	r.mu.RUnlock()
	if inProgress(status) {
		return nil, fmt.Errorf("start while %s: %w", status, ErrBadState)
	}

	// Abandoned sessions from previous days are swept, not resumed.
	if err := r.store.DeleteStaleOpenSessions(ctx, r.userID, r.clock().Add(-staleSessionAge)); err != nil {
		r.logger.Printf("Runtime: Stale session sweep failed: %v", err)
	}

	ref, err := r.store.FindOpenSession(ctx, r.userID, r.workout.ID)
	if err != nil {
		return nil, fmt.Errorf("find open session: %w", err)
	}
	if ref != nil {
		r.logger.Printf("Runtime: Open session %s found, awaiting resume or discard", ref.ID)
		return ref, nil
	}

	return nil, r.beginFresh(ctx)
}

// beginFresh creates the session row and arms the pre-roll countdown.
// Set mutations stay in memory until the session id exists, so no set
// write can reference a session that failed to create.
func (r *Runtime) beginFresh(ctx context.Context) error {
	now := r.clock()

	sets := InitialSets(r.workout)
	if recs, err := r.store.LatestCompletedSets(ctx, r.userID, r.workout.ID); err != nil {
		r.logger.Printf("Runtime: Could not load previous weights: %v", err)
	} else if len(recs) > 0 {
		sets = sets.seedWeights(recs)
		r.logger.Printf("Runtime: Pre-seeded weights from last attempt (%d rows)", len(recs))
	}

	id, err := r.store.CreateSession(ctx, r.userID, r.workout.ID, now)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	r.mu.Lock()
	r.status = StatusStarting
	r.sessionID = id
	r.timebase.Reset()
	r.countdown.Cancel()
	r.countdown.Start(TimerPreRoll, "", 0, preRollSeconds)
	r.sets = sets
	r.announcedStart = false
	r.feedbackFired = make(map[string]bool)
	r.pending = make(map[setKey]time.Time)
	state := r.buildStateLocked(now)
	r.mu.Unlock()

	r.logger.Printf("Runtime: Session %s created, pre-roll running", id)
	r.model.SetSets(sets)
	r.model.SetSessionState(state)
	return nil
}

// ResumeSession continues the given open session: its persisted set rows
// are merged into the ledger without overwriting anything completed on
// this side, elapsed time picks up from the row's start time with the
// whole wall-clock gap counted, and the session goes straight to Active
// with no pre-roll.
func (r *Runtime) ResumeSession(ctx context.Context, ref *store.SessionRef) error {
	if ref == nil {
		panic("Runtime: ref cannot be nil")
	}
	r.mu.RLock()
	status := r.status
	r.mu.RUnlock()
	if inProgress(status) {
		return fmt.Errorf("resume session while %s: %w", status, ErrBadState)
	}

	recs, err := r.store.LoadSets(ctx, ref.ID)
	if err != nil {
		return fmt.Errorf("load session sets: %w", err)
	}

	now := r.clock()
	r.mu.Lock()
	r.status = StatusActive
	r.sessionID = ref.ID
	r.countdown.Cancel()
	r.timebase.Seed(ref.StartTime, now)
	r.sets = InitialSets(r.workout).mergeRecords(recs)
	r.announcedStart = true
	r.feedbackFired = make(map[string]bool)
	for i := range r.workout.Exercises {
		id := r.workout.Exercises[i].ID
		if r.sets.ExerciseComplete(id) {
			r.feedbackFired[id] = true
		}
	}
	r.pending = make(map[setKey]time.Time)
	sets := r.sets
	state := r.buildStateLocked(now)
	r.mu.Unlock()

	r.logger.Printf("Runtime: Resumed session %s, merged %d rows, %ds elapsed", ref.ID, len(recs), state.ElapsedSeconds)
	r.model.SetSets(sets)
	r.model.SetSessionState(state)
	return nil
}

// DiscardSession deletes the given open session and starts fresh. The
// deletion follows cancel's rules: sets before session row, one retry
// per step; a step that still fails degrades to a notice and the fresh
// start proceeds anyway.
func (r *Runtime) DiscardSession(ctx context.Context, ref *store.SessionRef) error {
	if ref == nil {
		panic("Runtime: ref cannot be nil")
	}
	r.mu.RLock()
	status := r.status
	r.mu.RUnlock()
	if inProgress(status) {
		return fmt.Errorf("discard session while %s: %w", status, ErrBadState)
	}

	if degraded := r.deleteSessionRows(ctx, ref.ID); degraded {
		r.model.EmitNotice(Notice{Kind: NoticeStoreDegraded})
	}
	r.logger.Printf("Runtime: Discarded session %s", ref.ID)

	return r.beginFresh(ctx)
}

// Pause suspends the session. The timebase and whichever timer is
// active stop in lockstep; the tick loop keeps running but advances
// nothing until resume.
func (r *Runtime) Pause() error {
	now := r.clock()
	r.mu.Lock()
	if r.status != StatusActive {
		r.mu.Unlock()
		return fmt.Errorf("pause while %s: %w", r.status, ErrBadState)
	}
	r.status = StatusPaused
	r.timebase.Pause(now)
	r.countdown.Pause()
	state := r.buildStateLocked(now)
	r.mu.Unlock()

	r.logger.Printf("Runtime: Session paused at %ds", state.ElapsedSeconds)
	r.model.SetSessionState(state)
	return nil
}

// Resume continues a paused session, the timebase and any suspended
// timer picking up exactly where they stopped.
func (r *Runtime) Resume() error {
	now := r.clock()
	r.mu.Lock()
	if r.status != StatusPaused {
		r.mu.Unlock()
		return fmt.Errorf("resume while %s: %w", r.status, ErrBadState)
	}
	r.status = StatusActive
	r.timebase.Resume(now)
	r.countdown.Resume()
	state := r.buildStateLocked(now)
	r.mu.Unlock()

	r.logger.Printf("Runtime: Session resumed at %ds", state.ElapsedSeconds)
	r.model.SetSessionState(state)
	return nil
}

// Cancel abandons the attempt. The status flip and timer teardown happen
// before any deletion call so no tick can fire against torn-down state;
// the persisted rows are then removed sets-first. Deletion failures
// degrade to a notice, the cancelled outcome stands either way.
func (r *Runtime) Cancel(ctx context.Context) error {
	now := r.clock()
	r.mu.Lock()
	if !inProgress(r.status) {
		r.mu.Unlock()
		return fmt.Errorf("cancel while %s: %w", r.status, ErrBadState)
	}
	r.status = StatusCancelled
	r.countdown.Cancel()
	r.timebase.Pause(now)
	r.pending = make(map[setKey]time.Time)
	sessionID := r.sessionID
	elapsed := r.timebase.Elapsed(now)
	completed, total := r.sets.Counts()
	state := r.buildStateLocked(now)
	r.mu.Unlock()

	r.model.SetSessionState(state)

	if degraded := r.deleteSessionRows(ctx, sessionID); degraded {
		r.model.EmitNotice(Notice{Kind: NoticeStoreDegraded})
	}

	r.logger.Printf("Runtime: Session %s cancelled after %ds", sessionID, elapsed)
	r.model.EmitOutcome(Outcome{
		Kind:            OutcomeCancelled,
		DurationSeconds: elapsed,
		SetsCompleted:   completed,
		SetsTotal:       total,
	})
	return nil
}

// Complete finishes the attempt. After an explicit reachability check,
// the session row is closed with its end time and duration, then every
// set carrying a weight or completion mark is written as one batch. An
// unreachable store or a failed write surfaces a retryable error and
// leaves the attempt open with local state untouched.
func (r *Runtime) Complete(ctx context.Context) error {
	now := r.clock()
	r.mu.RLock()
	status := r.status
	sessionID := r.sessionID
	elapsed := r.timebase.Elapsed(now)
	recs := persistableRecords(r.workout, r.sets)
	completed, total := r.sets.Counts()
	r.mu.RUnlock()

	if status != StatusActive && status != StatusPaused {
		return fmt.Errorf("complete while %s: %w", status, ErrBadState)
	}

	if err := r.store.Ping(ctx); err != nil {
		r.logger.Printf("Runtime: Completion blocked, store unreachable: %v", err)
		r.model.EmitNotice(Notice{Kind: NoticeOffline})
		return fmt.Errorf("store unreachable: %w", store.ErrUnavailable)
	}

	degraded := false
	if err := r.store.CloseSession(ctx, sessionID, now, elapsed); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Printf("Runtime: Closing session %s failed: %v", sessionID, err)
			r.model.EmitOutcome(Outcome{
				Kind:            OutcomeFailed,
				DurationSeconds: elapsed,
				SetsCompleted:   completed,
				SetsTotal:       total,
				Detail:          "close session: " + err.Error(),
			})
			return fmt.Errorf("close session: %w", err)
		}
		// The row is gone; memory is authoritative, finish anyway.
		r.logger.Printf("Runtime: Session row %s missing at completion: %v", sessionID, err)
		degraded = true
	}

	if err := r.store.BulkUpsertSets(ctx, sessionID, recs); err != nil {
		r.logger.Printf("Runtime: Writing %d completion rows failed: %v", len(recs), err)
		r.model.EmitOutcome(Outcome{
			Kind:            OutcomeFailed,
			DurationSeconds: elapsed,
			SetsCompleted:   completed,
			SetsTotal:       total,
			Detail:          "write sets: " + err.Error(),
		})
		return fmt.Errorf("write sets: %w", err)
	}

	r.mu.Lock()
	if r.status != StatusActive && r.status != StatusPaused {
		r.mu.Unlock()
		return fmt.Errorf("complete while %s: %w", r.status, ErrBadState)
	}
	r.status = StatusCompleted
	r.countdown.Cancel()
	r.timebase.Pause(now)
	r.pending = make(map[setKey]time.Time)
	state := r.buildStateLocked(now)
	r.mu.Unlock()

	r.model.SetSessionState(state)
	if degraded {
		r.model.EmitNotice(Notice{Kind: NoticeStoreDegraded})
	}
	r.logger.Printf("Runtime: Session %s completed, %d/%d sets in %ds", sessionID, completed, total, elapsed)
	r.model.EmitOutcome(Outcome{
		Kind:            OutcomeCompleted,
		DurationSeconds: elapsed,
		SetsCompleted:   completed,
		SetsTotal:       total,
	})
	return nil
}

// deleteSessionRows removes a session's set rows and then the session
// row itself, in that order so a failure cannot orphan child rows. Each
// step gets one retry after a fixed delay. Returns true when a step
// still failed and the store no longer matches memory.
func (r *Runtime) deleteSessionRows(ctx context.Context, sessionID string) bool {
	degraded := false
	if err := r.deleteWithRetry("set rows", func() error { return r.store.DeleteSets(ctx, sessionID) }); err != nil {
		degraded = true
	}
	if err := r.deleteWithRetry("session row", func() error { return r.store.DeleteSession(ctx, sessionID) }); err != nil {
		degraded = true
	}
	return degraded
}

func (r *Runtime) deleteWithRetry(what string, del func() error) error {
	err := del()
	if err == nil {
		return nil
	}
	r.logger.Printf("Runtime: Deleting %s failed, retrying once: %v", what, err)
	time.Sleep(deleteRetryDelay)
	if err = del(); err != nil {
		r.logger.Printf("Runtime: Deleting %s failed after retry: %v", what, err)
		return err
	}
	return nil
}

// State returns the current UI-facing snapshot.
func (r *Runtime) State() SessionState {
	return r.snapshotState()
}

// Sets returns the current set ledger. The ledger is copy-on-write, the
// returned map must not be mutated.
func (r *Runtime) Sets() SetMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sets
}

// Workout returns the read-only workout definition this runtime runs.
func (r *Runtime) Workout() *plan.Workout {
	return r.workout
}

func (r *Runtime) snapshotState() SessionState {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buildStateLocked(now)
}

// buildStateLocked computes the UI-facing snapshot from the internal
// fields. MUST be called with mu held (at least read lock).
func (r *Runtime) buildStateLocked(now time.Time) SessionState {
	completed, total := r.sets.Counts()
	return SessionState{
		Status:         r.status,
		SessionID:      r.sessionID,
		WorkoutID:      r.workout.ID,
		WorkoutName:    r.workout.Name,
		ElapsedSeconds: r.timebase.Elapsed(now),
		Progress:       progressPercent(completed, total),
		SetsCompleted:  completed,
		SetsTotal:      total,
		Timer:          r.countdown.State(),
	}
}

// exerciseName resolves an exercise id for notices. The workout is
// immutable, no lock needed.
func (r *Runtime) exerciseName(exerciseID string) string {
	if e, _ := r.workout.Exercise(exerciseID); e != nil {
		return e.Name
	}
	return exerciseID
}
