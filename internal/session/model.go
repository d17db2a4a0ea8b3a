package session

import (
	"context"
	"log"
	"sync"

	"github.com/brunosouza-justauto/lifttrack/internal/events"
	"github.com/brunosouza-justauto/lifttrack/internal/plan"
	"github.com/brunosouza-justauto/lifttrack/internal/safe"
)

// UIMode selects which main view the UI renders.
type UIMode int

const (
	UIModeSession UIMode = iota
	UIModeLog
)

// UIState holds the current state of the UI that views need to render.
type UIState struct {
	Mode         UIMode
	VoiceEnabled bool
}

const maxLogLines = 1000

// Model is the observable hub between the session runtime and the UI.
// The runtime pushes state in, views and the presenter listen, and user
// preferences that affect presentation live here too. All methods are
// safe for concurrent use.
type Model struct {
	logEvent      *events.Feed[string]
	workoutEvent  *events.Feed[*plan.Workout]
	workout       *plan.Workout
	stateEvent    *events.Feed[SessionState]
	sessionState  SessionState
	setsEvent     *events.Feed[SetMap]
	sets          SetMap
	announceEvent *events.Feed[Announcement]
	noticeEvent   *events.Feed[Notice]
	cueEvent      *events.Feed[Cue]
	outcomeEvent  *events.Feed[Outcome]
	uiStateEvent  *events.Feed[UIState]
	uiState       UIState
	closeAppEvent *events.Feed[struct{}]
	logLines      []string
	logMu         sync.RWMutex
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	logger        *log.Logger
}

func NewModel(logger *log.Logger, uiLogChan <-chan string) *Model {
	if logger == nil {
		panic("Model: logger cannot be nil")
	}
	if uiLogChan == nil {
		panic("Model: uiLogChan cannot be nil")
	}
	ctx, cancel := context.WithCancel(context.Background())
	model := &Model{
		logEvent:      events.NewFeed[string](false),
		workoutEvent:  events.NewFeed[*plan.Workout](true),
		stateEvent:    events.NewFeed[SessionState](true),
		sessionState:  SessionState{Status: StatusNotStarted},
		setsEvent:     events.NewFeed[SetMap](true),
		announceEvent: events.NewFeed[Announcement](false),
		noticeEvent:   events.NewFeed[Notice](false),
		cueEvent:      events.NewFeed[Cue](false),
		outcomeEvent:  events.NewFeed[Outcome](false),
		uiStateEvent:  events.NewFeed[UIState](true),
		uiState:       UIState{Mode: UIModeSession},
		closeAppEvent: events.NewFeed[struct{}](true),
		logLines:      make([]string, 0, maxLogLines),
		ctx:           ctx,
		cancel:        cancel,
		logger:        logger,
	}

	// Read from the UI log channel and populate logLines
	model.wg.Add(1)
	safe.Go(model.logger, "model-log-reader", func() { model.readFromLogChannel(ctx, uiLogChan) })

	return model
}

// Shutdown stops all goroutines and waits for them to finish
func (m *Model) Shutdown() {
	m.logger.Println("Model: Shutting down")
	m.cancel()
	m.wg.Wait()
	m.logger.Println("Model: Shutdown complete")
}

// ListenToLog registers a channel to receive log messages
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToLog(ch chan<- string) func() {
	return m.logEvent.Subscribe(ch)
}

// ListenToCloseApplication registers a channel to receive close application signals
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToCloseApplication(ch chan<- struct{}) func() {
	return m.closeAppEvent.Subscribe(ch)
}

// RequestCloseApplication signals that the application should close
func (m *Model) RequestCloseApplication() {
	m.closeAppEvent.Publish(struct{}{})
}

// ListenToUIState registers a channel to receive UI state changes
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToUIState(ch chan<- UIState) func() {
	return m.uiStateEvent.Subscribe(ch)
}

// GetUIState returns the current UI state
func (m *Model) GetUIState() UIState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.uiState
}

// SetMode updates the current UI mode and notifies listeners
func (m *Model) SetMode(mode UIMode) {
	m.mu.Lock()
	if m.uiState.Mode == mode {
		m.mu.Unlock()
		return
	}
	m.uiState.Mode = mode
	state := m.uiState
	m.mu.Unlock()

	m.uiStateEvent.Publish(state)
}

// SetVoiceEnabled updates the voice output preference and notifies listeners
func (m *Model) SetVoiceEnabled(enabled bool) {
	m.mu.Lock()
	if m.uiState.VoiceEnabled == enabled {
		m.mu.Unlock()
		return
	}
	m.uiState.VoiceEnabled = enabled
	state := m.uiState
	m.mu.Unlock()

	m.uiStateEvent.Publish(state)
}

// ListenToWorkout registers a channel to receive the loaded workout
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToWorkout(ch chan<- *plan.Workout) func() {
	return m.workoutEvent.Subscribe(ch)
}

// GetWorkout returns the currently loaded workout, nil before one is set
func (m *Model) GetWorkout() *plan.Workout {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.workout
}

// SetWorkout publishes the loaded workout definition. Workouts are
// read-only, listeners share the pointer.
func (m *Model) SetWorkout(w *plan.Workout) {
	m.mu.Lock()
	m.workout = w
	m.mu.Unlock()

	m.workoutEvent.Publish(w)
}

// ListenToSessionState registers a channel to receive session state updates
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToSessionState(ch chan<- SessionState) func() {
	return m.stateEvent.Subscribe(ch)
}

// GetSessionState returns the current session state
func (m *Model) GetSessionState() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionState
}

// SetSessionState updates the session state and notifies listeners.
// Unchanged states are not re-published.
func (m *Model) SetSessionState(state SessionState) {
	m.mu.Lock()
	if m.sessionState == state {
		m.mu.Unlock()
		return
	}
	m.sessionState = state
	m.mu.Unlock()

	m.stateEvent.Publish(state)
}

// ListenToSets registers a channel to receive set ledger snapshots
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToSets(ch chan<- SetMap) func() {
	return m.setsEvent.Subscribe(ch)
}

// GetSets returns the current set ledger. The ledger is copy-on-write,
// the returned map must not be mutated.
func (m *Model) GetSets() SetMap {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}

// SetSets publishes a new set ledger snapshot
func (m *Model) SetSets(sets SetMap) {
	m.mu.Lock()
	m.sets = sets
	m.mu.Unlock()

	m.setsEvent.Publish(sets)
}

// ListenToAnnouncements registers a channel to receive next-step announcements
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToAnnouncements(ch chan<- Announcement) func() {
	return m.announceEvent.Subscribe(ch)
}

// EmitAnnouncement publishes a next-step announcement
func (m *Model) EmitAnnouncement(a Announcement) {
	m.announceEvent.Publish(a)
}

// ListenToNotices registers a channel to receive notices
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToNotices(ch chan<- Notice) func() {
	return m.noticeEvent.Subscribe(ch)
}

// EmitNotice publishes a notice
func (m *Model) EmitNotice(n Notice) {
	m.noticeEvent.Publish(n)
}

// ListenToCues registers a channel to receive timer cues
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToCues(ch chan<- Cue) func() {
	return m.cueEvent.Subscribe(ch)
}

// EmitCue publishes a timer cue
func (m *Model) EmitCue(c Cue) {
	m.cueEvent.Publish(c)
}

// ListenToOutcomes registers a channel to receive terminal session outcomes
// Returns a deregistration function that can be called to remove the listener
func (m *Model) ListenToOutcomes(ch chan<- Outcome) func() {
	return m.outcomeEvent.Subscribe(ch)
}

// EmitOutcome publishes a terminal session outcome
func (m *Model) EmitOutcome(o Outcome) {
	m.outcomeEvent.Publish(o)
}

// readFromLogChannel reads log lines from the channel and populates logLines
func (m *Model) readFromLogChannel(ctx context.Context, logChan <-chan string) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-logChan:
			if !ok {
				// Channel closed
				return
			}

			m.logMu.Lock()
			m.logLines = append(m.logLines, line)
			if len(m.logLines) > maxLogLines {
				// Remove oldest lines, keep the most recent maxLogLines
				m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
			}
			m.logMu.Unlock()

			// Notify listeners for immediate display
			m.logEvent.Publish(line)
		}
	}
}

// GetLogTail returns the last n lines of logs
func (m *Model) GetLogTail(n int) []string {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	if n <= 0 {
		return []string{}
	}

	if n >= len(m.logLines) {
		result := make([]string, len(m.logLines))
		copy(result, m.logLines)
		return result
	}

	result := make([]string, n)
	copy(result, m.logLines[len(m.logLines)-n:])
	return result
}
