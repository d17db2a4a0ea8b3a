// Package ui renders the workout session in the terminal. The View
// interface isolates the tview implementation so the presenter and
// controller can be exercised against a fake in tests.
package ui

import (
	"github.com/brunosouza-justauto/lifttrack/internal/plan"
	"github.com/brunosouza-justauto/lifttrack/internal/session"
	"github.com/brunosouza-justauto/lifttrack/internal/store"
)

// View defines the interface for framework-specific UI implementations
type View interface {
	// Initialize is called after construction to set up framework-specific widgets
	// controller is used to handle UI events
	Initialize(controller *Controller)

	// SetupKeyboardHandlers sets up keyboard event handlers
	// controller is used to handle keyboard events
	SetupKeyboardHandlers(controller *Controller)

	// Run starts the UI framework and blocks until it exits
	Run() error

	// Stop stops the UI framework
	Stop()

	// Draw refreshes/redraws the UI
	Draw() error

	// --- Mode Management ---

	// SetMode switches the UI to the specified mode
	SetMode(mode session.UIMode)

	// GetCurrentMode returns the currently active UI mode
	GetCurrentMode() session.UIMode

	// --- Log View (shared across modes) ---

	// GetLogViewHeight returns the visible height of the log view
	GetLogViewHeight() int

	// ClearLogView clears the log view
	ClearLogView()

	// WriteLogLine writes a line to the log view
	WriteLogLine(line string) error

	// --- Session Mode ---

	// SetWorkout populates the exercise and set table from the workout
	SetWorkout(w *plan.Workout)

	// UpdateSets refreshes the set rows from the ledger snapshot
	UpdateSets(sets session.SetMap)

	// UpdateSessionState refreshes the status bar: lifecycle status,
	// elapsed time, progress, and the running timer
	UpdateSessionState(state session.SessionState)

	// ShowToast displays a transient message on the toast line
	ShowToast(text string)

	// ShowResumePrompt asks whether to resume or discard the open session
	ShowResumePrompt(ref *store.SessionRef, onResume, onDiscard func())

	// ShowOutcome displays the terminal session outcome
	ShowOutcome(o session.Outcome)

	// Beep sounds the terminal bell for timer cues
	Beep()
}

// ModeInfo contains display information for a UI mode
type ModeInfo struct {
	Mode        session.UIMode
	DisplayName string
	KeyBinding  rune
}

// AllModes defines all available UI modes in order
var AllModes = []ModeInfo{
	{Mode: session.UIModeSession, DisplayName: "Session", KeyBinding: '1'},
	{Mode: session.UIModeLog, DisplayName: "Log", KeyBinding: '2'},
}

// GetModeByKey returns the mode for a given key binding
func GetModeByKey(key rune) (session.UIMode, bool) {
	for _, info := range AllModes {
		if info.KeyBinding == key {
			return info.Mode, true
		}
	}
	return 0, false
}

// GetModeInfo returns the info for a given mode
func GetModeInfo(mode session.UIMode) (ModeInfo, bool) {
	for _, info := range AllModes {
		if info.Mode == mode {
			return info, true
		}
	}
	return ModeInfo{}, false
}
