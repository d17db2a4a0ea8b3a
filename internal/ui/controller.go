package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/brunosouza-justauto/lifttrack/internal/safe"
	"github.com/brunosouza-justauto/lifttrack/internal/session"
	"github.com/brunosouza-justauto/lifttrack/internal/store"
)

// Controller handles UI events and coordinates with the session runtime.
// Store-touching operations run on background goroutines so the UI event
// loop never blocks on I/O.
type Controller struct {
	model   *session.Model
	runtime *session.Runtime
	prefs   *Prefs
	logger  *log.Logger
	view    View
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewController creates a new Controller with the given dependencies
func NewController(model *session.Model, runtime *session.Runtime, prefs *Prefs, logger *log.Logger) *Controller {
	if model == nil {
		panic("Controller: model cannot be nil")
	}
	if runtime == nil {
		panic("Controller: runtime cannot be nil")
	}
	if prefs == nil {
		panic("Controller: prefs cannot be nil")
	}
	if logger == nil {
		panic("Controller: logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		model:   model,
		runtime: runtime,
		prefs:   prefs,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// attachView is called by the presenter during wiring. The view is needed
// for the resume prompt and for toasts on failed operations.
func (c *Controller) attachView(v View) {
	c.view = v
}

func (c *Controller) toast(text string) {
	if c.view != nil {
		c.view.ShowToast(text)
		c.view.Draw()
	}
}

// spawn runs a store-touching operation off the UI thread.
func (c *Controller) spawn(name string, fn func()) {
	c.wg.Add(1)
	safe.Go(c.logger, name, func() {
		defer c.wg.Done()
		fn()
	})
}

// BeginSession starts the session flow: sweep stale leftovers, then
// either prompt to resume an open session or start fresh with the
// pre-roll.
func (c *Controller) BeginSession() {
	c.spawn("controller-begin-session", func() {
		ref, err := c.runtime.Start(c.ctx)
		if err != nil {
			c.logger.Printf("Controller: Start failed: %v", err)
			c.toast(fmt.Sprintf("Could not start session: %v", err))
			return
		}
		if ref == nil {
			return
		}
		c.logger.Printf("Controller: Open session %s found, prompting", ref.ID)
		c.view.ShowResumePrompt(ref,
			func() { c.resumeChosen(ref) },
			func() { c.discardChosen(ref) },
		)
		c.view.Draw()
	})
}

func (c *Controller) resumeChosen(ref *store.SessionRef) {
	c.spawn("controller-resume-session", func() {
		if err := c.runtime.ResumeSession(c.ctx, ref); err != nil {
			c.logger.Printf("Controller: Resume failed: %v", err)
			c.toast(fmt.Sprintf("Could not resume session: %v", err))
		}
	})
}

func (c *Controller) discardChosen(ref *store.SessionRef) {
	c.spawn("controller-discard-session", func() {
		if err := c.runtime.DiscardSession(c.ctx, ref); err != nil {
			c.logger.Printf("Controller: Discard failed: %v", err)
			c.toast(fmt.Sprintf("Could not discard session: %v", err))
		}
	})
}

// OnToggleSet handles the complete/un-complete key on a set row
func (c *Controller) OnToggleSet(exerciseID string, setOrder int) {
	err := c.runtime.ToggleSet(exerciseID, setOrder)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrWeightRequired):
		// The runtime already emitted the notice, nothing more to do.
	default:
		c.logger.Printf("Controller: Toggle %s set %d: %v", exerciseID, setOrder, err)
	}
}

// OnWeightEntered handles a weight entry for a set
func (c *Controller) OnWeightEntered(exerciseID string, setOrder int, text string) {
	if err := c.runtime.UpdateWeight(exerciseID, setOrder, text); err != nil {
		c.logger.Printf("Controller: Weight entry: %v", err)
	}
}

// OnRepsEntered handles a rep count entry for a set
func (c *Controller) OnRepsEntered(exerciseID string, setOrder int, text string) {
	if err := c.runtime.UpdateReps(exerciseID, setOrder, text); err != nil {
		c.logger.Printf("Controller: Reps entry: %v", err)
	}
}

// OnNotesEntered handles a notes entry for a set
func (c *Controller) OnNotesEntered(exerciseID string, setOrder int, text string) {
	if err := c.runtime.UpdateNotes(exerciseID, setOrder, text); err != nil {
		c.logger.Printf("Controller: Notes entry: %v", err)
	}
}

// OnToggleBodyweight flips an exercise between bodyweight and weighted
func (c *Controller) OnToggleBodyweight(exerciseID string) {
	if err := c.runtime.ToggleBodyweight(exerciseID); err != nil {
		c.logger.Printf("Controller: Bodyweight toggle: %v", err)
	}
}

// OnPauseResume pauses a running session or resumes a paused one
func (c *Controller) OnPauseResume() {
	switch c.runtime.State().Status {
	case session.StatusActive:
		if err := c.runtime.Pause(); err != nil {
			c.logger.Printf("Controller: Pause: %v", err)
		}
	case session.StatusPaused:
		if err := c.runtime.Resume(); err != nil {
			c.logger.Printf("Controller: Resume: %v", err)
		}
	default:
		c.logger.Printf("Controller: Nothing to pause")
	}
}

// OnCountdownEntered starts an ad-hoc countdown from user-entered seconds
func (c *Controller) OnCountdownEntered(text string) {
	seconds, err := strconv.Atoi(text)
	if err != nil {
		c.toast(fmt.Sprintf("Not a number: %q", text))
		return
	}
	if err := c.runtime.StartCountdown(seconds); err != nil {
		c.logger.Printf("Controller: Countdown: %v", err)
		c.toast(fmt.Sprintf("Could not start countdown: %v", err))
	}
}

// OnCancelCountdown clears the running rest or countdown timer
func (c *Controller) OnCancelCountdown() {
	c.runtime.CancelCountdown()
}

// OnFinish completes the session and persists the final snapshot
func (c *Controller) OnFinish() {
	c.spawn("controller-finish-session", func() {
		if err := c.runtime.Complete(c.ctx); err != nil {
			c.logger.Printf("Controller: Complete failed: %v", err)
			c.toast(fmt.Sprintf("Could not finish: %v", err))
		}
	})
}

// OnCancelSession abandons the session and deletes its stored rows
func (c *Controller) OnCancelSession() {
	c.spawn("controller-cancel-session", func() {
		if err := c.runtime.Cancel(c.ctx); err != nil {
			c.logger.Printf("Controller: Cancel failed: %v", err)
			c.toast(fmt.Sprintf("Could not cancel: %v", err))
		}
	})
}

// OnModeChange handles when the user requests a mode change
func (c *Controller) OnModeChange(mode session.UIMode) {
	if info, ok := GetModeInfo(mode); ok {
		c.logger.Printf("Switching to %s mode", info.DisplayName)
	}
	c.model.SetMode(mode)
}

// OnToggleVoice flips the voice output preference and persists it
func (c *Controller) OnToggleVoice() {
	enabled := !c.model.GetUIState().VoiceEnabled
	c.model.SetVoiceEnabled(enabled)
	c.prefs.SetVoiceEnabled(enabled)
	if enabled {
		c.logger.Printf("Controller: Voice on")
	} else {
		c.logger.Printf("Controller: Voice off")
	}
}

// OnEscapeKey handles when the Escape key is pressed
func (c *Controller) OnEscapeKey() {
	c.model.RequestCloseApplication()
}

// Shutdown waits for in-flight operations to finish
func (c *Controller) Shutdown() {
	c.cancel()
	c.wg.Wait()
}
