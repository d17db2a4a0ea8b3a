// Package session implements the workout session runtime: the in-memory
// model of one workout attempt, its set ledger, the countdown engine
// driving pre-roll/rest/ad-hoc timers, next-step announcements, and the
// lifecycle controller that persists the attempt through a SessionStore.
//
// All timer consumers are advanced by one shared tick source owned by the
// Runtime, so there is exactly one interval to manage and the timers
// cannot drift apart.
package session

import (
	"errors"
	"fmt"

	"github.com/brunosouza-justauto/lifttrack/internal/plan"
)

// Weight text for a set done with body weight only.
const BodyweightSentinel = "BW"

const (
	// preRollSeconds is the countdown between confirming a fresh start
	// and the session going active.
	preRollSeconds = 5
	// finalCueSeconds is the tail of any countdown during which each
	// tick also emits an audible cue.
	finalCueSeconds = 5
)

var (
	// ErrWeightRequired reports a completion attempt on a set with no
	// weight and no prior set weight to copy forward.
	ErrWeightRequired = errors.New("weight required to complete set")
	// ErrUnknownSet reports an operation on an exercise or set order the
	// workout does not have.
	ErrUnknownSet = errors.New("unknown exercise or set")
	// ErrBadState reports an operation not allowed in the current
	// session status, like pausing a session that never started.
	ErrBadState = errors.New("operation not allowed in current state")
)

// Status is the lifecycle state of the session.
type Status int

const (
	StatusNotStarted Status = iota
	StatusStarting          // pre-roll countdown running
	StatusActive
	StatusPaused
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not_started"
	case StatusStarting:
		return "starting"
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// TimerKind tags which consumer the active countdown belongs to.
type TimerKind int

const (
	TimerIdle      TimerKind = iota
	TimerPreRoll             // fresh-start pre-roll
	TimerRest                // post-set rest
	TimerCountdown           // ad-hoc user countdown
)

func (k TimerKind) String() string {
	switch k {
	case TimerIdle:
		return "idle"
	case TimerPreRoll:
		return "preroll"
	case TimerRest:
		return "rest"
	case TimerCountdown:
		return "countdown"
	default:
		return fmt.Sprintf("timer(%d)", int(k))
	}
}

// TimerState is the UI-facing snapshot of the countdown engine. At most
// one timer is active at a time; Kind is TimerIdle when none is.
// ExerciseID and SetOrder are set for rest timers only.
type TimerState struct {
	Kind       TimerKind
	ExerciseID string
	SetOrder   int
	Remaining  int
	Total      int
	Running    bool
}

// CompletedSet is the mutable record of one set's actual performance.
// Weight is raw text: numeric text as typed, the "BW" sentinel, or empty.
type CompletedSet struct {
	ExerciseID string
	SetOrder   int
	Weight     string
	Reps       int
	Completed  bool
	Notes      string
	SetType    plan.SetType
}

// SessionState is the per-tick snapshot published to the UI.
type SessionState struct {
	Status         Status
	SessionID      string
	WorkoutID      string
	WorkoutName    string
	ElapsedSeconds int
	Progress       int // completed sets as a rounded percentage
	SetsCompleted  int
	SetsTotal      int
	Timer          TimerState
}

// NoticeKind classifies a side-channel notice.
type NoticeKind int

const (
	// NoticeWeightRequired: a set could not be completed because it has
	// no weight and no prior set to copy from.
	NoticeWeightRequired NoticeKind = iota
	// NoticeWeightCopied: an empty weight was filled from the most
	// recent prior set before completing.
	NoticeWeightCopied
	// NoticeExerciseDone: every set of an exercise is complete; the UI
	// may ask how it went. Emitted once per exercise per session.
	NoticeExerciseDone
	// NoticeStoreDegraded: a store write failed past its retry; the
	// in-memory state is authoritative and the user may proceed.
	NoticeStoreDegraded
	// NoticeOffline: the backend was unreachable when completion was
	// requested. Retryable, nothing was lost.
	NoticeOffline
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeWeightRequired:
		return "weight_required"
	case NoticeWeightCopied:
		return "weight_copied"
	case NoticeExerciseDone:
		return "exercise_done"
	case NoticeStoreDegraded:
		return "store_degraded"
	case NoticeOffline:
		return "offline"
	default:
		return fmt.Sprintf("notice(%d)", int(k))
	}
}

// Notice is a non-fatal condition surfaced to the UI as a toast.
type Notice struct {
	Kind         NoticeKind
	ExerciseID   string
	ExerciseName string
	SetOrder     int
	Weight       string // filled for NoticeWeightCopied
	Detail       string
}

// Text renders the notice for display.
func (n Notice) Text() string {
	switch n.Kind {
	case NoticeWeightRequired:
		return fmt.Sprintf("Enter a weight for %s set %d before completing it", n.ExerciseName, n.SetOrder)
	case NoticeWeightCopied:
		return fmt.Sprintf("Weight %s copied from your previous set", n.Weight)
	case NoticeExerciseDone:
		return fmt.Sprintf("%s done - how did it feel?", n.ExerciseName)
	case NoticeStoreDegraded:
		return "Some changes could not be saved; continuing with local data"
	case NoticeOffline:
		return "No connection - try finishing again once you are back online"
	default:
		return n.Detail
	}
}

// Cue is a short audible/haptic signal tied to a timer: one per second
// through the final stretch of a countdown, and one with Remaining zero
// when it completes.
type Cue struct {
	Kind      TimerKind
	Remaining int
}

// OutcomeKind classifies how an attempt ended.
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeCancelled
	// OutcomeFailed: the backend accepted the reachability check but
	// rejected the completion writes; the attempt is still open.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome reports the end of an attempt with its summary numbers.
type Outcome struct {
	Kind            OutcomeKind
	DurationSeconds int
	SetsCompleted   int
	SetsTotal       int
	Detail          string // error kind for OutcomeFailed
}
