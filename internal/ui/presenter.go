package ui

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/brunosouza-justauto/lifttrack/internal/plan"
	"github.com/brunosouza-justauto/lifttrack/internal/safe"
	"github.com/brunosouza-justauto/lifttrack/internal/session"
	"github.com/brunosouza-justauto/lifttrack/internal/speech"
)

// Presenter contains the framework-independent display logic: it listens
// to model feeds and pushes updates into the View, and forwards spoken
// announcements to the speaker when voice output is enabled. Toasts are
// always shown, disabling voice never suppresses the visual cue.
type Presenter struct {
	view       View
	model      *session.Model
	controller *Controller
	speaker    speech.Speaker
	ctx        context.Context
	cancelFunc context.CancelFunc
	waitGroup  sync.WaitGroup
	logger     *log.Logger
}

// NewPresenterArgs holds the arguments for creating a new Presenter
type NewPresenterArgs struct {
	View       View
	Model      *session.Model
	Controller *Controller
	Speaker    speech.Speaker
	Logger     *log.Logger
}

// NewPresenter creates a Presenter and wires the view to the controller
func NewPresenter(args NewPresenterArgs) *Presenter {
	if args.Logger == nil {
		panic("Presenter: logger cannot be nil")
	}
	if args.View == nil {
		panic("Presenter: view cannot be nil")
	}
	if args.Model == nil {
		panic("Presenter: model cannot be nil")
	}
	if args.Controller == nil {
		panic("Presenter: controller cannot be nil")
	}
	if args.Speaker == nil {
		panic("Presenter: speaker cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())

	p := &Presenter{
		view:       args.View,
		model:      args.Model,
		controller: args.Controller,
		speaker:    args.Speaker,
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     args.Logger,
	}

	// Initialize framework-specific widgets
	args.View.Initialize(args.Controller)

	// Set up keyboard handlers
	args.View.SetupKeyboardHandlers(args.Controller)

	// The controller needs the view for prompts and toasts
	args.Controller.attachView(args.View)

	// Set initial mode from model
	args.View.SetMode(args.Model.GetUIState().Mode)

	// Set up periodic resize check and initial display
	p.waitGroup.Add(1)
	safe.Go(p.logger, "presenter-log-resize", p.monitorLogResize)
	p.updateLogDisplay()

	p.setupEventListeners()

	return p
}

// listen runs one goroutine that drains a model feed into handle until
// the presenter context is cancelled, then unregisters.
func listen[T any](p *Presenter, name string, subscribe func(chan<- T) func(), handle func(T)) {
	ch := make(chan T, 16)
	unregister := subscribe(ch)
	p.waitGroup.Add(1)
	safe.Go(p.logger, name, func() {
		defer p.waitGroup.Done()
		defer unregister()
		for {
			select {
			case <-p.ctx.Done():
				return
			case v, ok := <-ch:
				if !ok {
					return
				}
				handle(v)
			}
		}
	})
}

func (p *Presenter) setupEventListeners() {
	listen(p, "presenter-log", p.model.ListenToLog, func(string) {
		// When a new log arrives, update the display to show the tail
		p.updateLogDisplay()
	})

	listen(p, "presenter-workout", p.model.ListenToWorkout, func(w *plan.Workout) {
		p.view.SetWorkout(w)
		p.draw()
	})

	listen(p, "presenter-sets", p.model.ListenToSets, func(sets session.SetMap) {
		p.view.UpdateSets(sets)
		p.draw()
	})

	listen(p, "presenter-state", p.model.ListenToSessionState, func(state session.SessionState) {
		p.view.UpdateSessionState(state)
		p.draw()
	})

	listen(p, "presenter-announcements", p.model.ListenToAnnouncements, func(a session.Announcement) {
		text := a.Text()
		p.view.ShowToast(text)
		p.draw()
		if p.model.GetUIState().VoiceEnabled {
			p.speaker.Say(text)
		}
	})

	listen(p, "presenter-notices", p.model.ListenToNotices, func(n session.Notice) {
		p.view.ShowToast(n.Text())
		p.draw()
	})

	listen(p, "presenter-cues", p.model.ListenToCues, func(session.Cue) {
		p.view.Beep()
	})

	listen(p, "presenter-outcomes", p.model.ListenToOutcomes, func(o session.Outcome) {
		p.view.ShowOutcome(o)
		p.draw()
		if o.Kind == session.OutcomeCompleted && p.model.GetUIState().VoiceEnabled {
			p.speaker.Say("Workout complete")
		}
	})

	listen(p, "presenter-ui-state", p.model.ListenToUIState, func(state session.UIState) {
		p.view.SetMode(state.Mode)
		p.draw()
	})

	// Listen to close application event from model
	closeChan := make(chan struct{}, 1)
	closeUnregister := p.model.ListenToCloseApplication(closeChan)
	p.waitGroup.Add(1)
	safe.Go(p.logger, "presenter-close", func() {
		defer p.waitGroup.Done()
		defer closeUnregister()
		select {
		case <-p.ctx.Done():
			return
		case _, ok := <-closeChan:
			if !ok {
				return
			}
			p.view.Stop()
		}
	})
}

func (p *Presenter) draw() {
	if err := p.view.Draw(); err != nil {
		p.logger.Printf("Presenter: Error drawing: %v", err)
	}
}

func (p *Presenter) updateLogDisplay() {
	// Get the visible height of the log view
	height := p.view.GetLogViewHeight()
	if height <= 0 {
		return
	}

	// Get the tail of logs that fit in the visible area
	logLines := p.model.GetLogTail(height)

	// Clear and update the log view
	p.view.ClearLogView()
	for _, line := range logLines {
		if err := p.view.WriteLogLine(line); err != nil {
			p.logger.Printf("Presenter: Error writing to log view: %v", err)
		}
	}
}

func (p *Presenter) monitorLogResize() {
	defer p.waitGroup.Done()
	var lastHeight int
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			height := p.view.GetLogViewHeight()
			if height != lastHeight && height > 0 {
				lastHeight = height
				p.updateLogDisplay()
				p.draw()
			}
		}
	}
}

// Shutdown stops all goroutines and waits for them to finish
func (p *Presenter) Shutdown() {
	p.logger.Println("Presenter: Shutting down")
	p.cancelFunc()
	p.waitGroup.Wait()
	p.logger.Println("Presenter: Shutdown complete")
}

// Run starts the UI and blocks until it exits
func (p *Presenter) Run() error {
	return p.view.Run()
}
