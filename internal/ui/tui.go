package ui

import (
	"fmt"
	"log"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/brunosouza-justauto/lifttrack/internal/plan"
	"github.com/brunosouza-justauto/lifttrack/internal/session"
	"github.com/brunosouza-justauto/lifttrack/internal/store"
)

// Page names for tview.Pages
const (
	pageSession = "session"
	pageModal   = "modal"
)

// rowRef maps a set table row back to what it displays. Exercise header
// rows carry a setOrder of 0.
type rowRef struct {
	exerciseID string
	setOrder   int
}

// TUI implements View using tview (curses-based terminal UI)
type TUI struct {
	logger      *log.Logger
	app         *tview.Application
	model       *session.Model
	currentMode session.UIMode

	// Root container that holds all pages
	pages *tview.Pages

	// Shared components (visible in all modes)
	logView  *tview.TextView
	mainFlex *tview.Flex

	// Session mode components
	sessionFlex  *tview.Flex
	statusBar    *tview.TextView
	setTable     *tview.Table
	toastBar     *tview.TextView
	inputField   *tview.InputField
	inputVisible bool
	modalVisible bool

	workout *plan.Workout
	sets    session.SetMap
	rows    []rowRef

	// Captured on the first draw so Beep can reach the terminal bell
	// from listener goroutines.
	screenMu sync.Mutex
	screen   tcell.Screen
}

func NewTUI(logger *log.Logger, app *tview.Application, model *session.Model) *TUI {
	return &TUI{
		logger:      logger,
		app:         app,
		model:       model,
		currentMode: session.UIModeSession,
	}
}

// Initialize sets up the tview widgets
func (ui *TUI) Initialize(controller *Controller) {
	// Create shared log view
	// Note: Don't use SetChangedFunc with app.Draw() - it can cause hangs during shutdown
	// when the app has been stopped but log messages are still being written.
	// The Presenter's event listeners already call Draw() after updating content.
	ui.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	ui.logView.SetBorder(true).SetTitle(" Logs ")

	ui.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		ui.screenMu.Lock()
		ui.screen = screen
		ui.screenMu.Unlock()
		return false
	})

	ui.initSessionMode(controller)

	ui.pages = tview.NewPages()
	ui.pages.AddPage(pageSession, ui.sessionFlex, true, true)

	// Main layout: session content on the left, logs on the right
	ui.mainFlex = tview.NewFlex().
		AddItem(ui.pages, 0, 2, true).
		AddItem(ui.logView, 0, 1, false)
}

// initSessionMode sets up the Session mode UI
func (ui *TUI) initSessionMode(controller *Controller) {
	instructionsText := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	instructionsText.SetText("[yellow]Space[white] Toggle Set  |  [yellow]W[white] Weight  |  [yellow]R[white] Reps  |  [yellow]N[white] Notes  |  [yellow]B[white] Bodyweight  |  [yellow]P[white] Pause\n[yellow]T[white] Timer  |  [yellow]X[white] Clear Timer  |  [yellow]F[white] Finish  |  [yellow]C[white] Cancel  |  [yellow]V[white] Voice  |  [yellow]1[white] Session  |  [yellow]2[white] Log")

	ui.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.statusBar.SetBorder(true).SetTitle(" Status ")
	ui.UpdateSessionState(session.SessionState{Status: session.StatusNotStarted})

	ui.setTable = tview.NewTable().
		SetSelectable(true, false).
		SetSelectedFunc(func(row, column int) {
			if ref, ok := ui.rowAt(row); ok {
				ui.logger.Printf("TUI: Set selected: exercise=%s, order=%d", ref.exerciseID, ref.setOrder)
				controller.OnToggleSet(ref.exerciseID, ref.setOrder)
			}
		})
	ui.setTable.SetBorder(true).SetTitle(" Sets ")

	ui.toastBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	ui.inputField = tview.NewInputField()

	ui.sessionFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructionsText, 2, 0, false).
		AddItem(ui.statusBar, 3, 0, false).
		AddItem(ui.setTable, 0, 1, true).
		AddItem(ui.toastBar, 1, 0, false)
}

// rowAt resolves a table row to a set row, skipping exercise headers
func (ui *TUI) rowAt(row int) (rowRef, bool) {
	rows := ui.rows
	if row < 0 || row >= len(rows) {
		return rowRef{}, false
	}
	ref := rows[row]
	if ref.setOrder == 0 {
		return rowRef{}, false
	}
	return ref, true
}

func (ui *TUI) selectedSetRow() (rowRef, bool) {
	row, _ := ui.setTable.GetSelection()
	return ui.rowAt(row)
}

// SetWorkout populates the exercise and set table from the workout
func (ui *TUI) SetWorkout(w *plan.Workout) {
	ui.workout = w
	ui.rebuildTable()
}

// UpdateSets refreshes the set rows from the ledger snapshot
func (ui *TUI) UpdateSets(sets session.SetMap) {
	ui.sets = sets
	ui.rebuildTable()
}

func (ui *TUI) rebuildTable() {
	w := ui.workout
	if w == nil {
		return
	}

	selectedRow, _ := ui.setTable.GetSelection()
	ui.setTable.Clear()

	rows := make([]rowRef, 0, w.TotalSets()+len(w.Exercises))
	rowIdx := 0
	for i := range w.Exercises {
		ex := &w.Exercises[i]

		header := fmt.Sprintf("[yellow]%s[white]", ex.Name)
		if ex.SupersetGroup != "" {
			header += " [gray](superset)[white]"
		}
		if ex.RestSeconds > 0 {
			header += fmt.Sprintf("  [gray]rest %ds[white]", ex.RestSeconds)
		}
		headerCell := tview.NewTableCell(header).SetSelectable(false).SetExpansion(1)
		ui.setTable.SetCell(rowIdx, 0, tview.NewTableCell("").SetSelectable(false))
		ui.setTable.SetCell(rowIdx, 1, headerCell)
		rows = append(rows, rowRef{exerciseID: ex.ID})
		rowIdx++

		for _, s := range ui.setsFor(ex) {
			ui.setTable.SetCell(rowIdx, 0, tview.NewTableCell(completionGlyph(s.Completed)))
			ui.setTable.SetCell(rowIdx, 1, tview.NewTableCell(fmt.Sprintf("Set %d", s.SetOrder)))
			ui.setTable.SetCell(rowIdx, 2, tview.NewTableCell(weightLabel(s.Weight)))
			ui.setTable.SetCell(rowIdx, 3, tview.NewTableCell(repsLabel(s, ex)))
			ui.setTable.SetCell(rowIdx, 4, tview.NewTableCell(setTypeLabel(s.SetType)))
			ui.setTable.SetCell(rowIdx, 5, tview.NewTableCell(notesLabel(s.Notes)).SetExpansion(1))
			rows = append(rows, rowRef{exerciseID: ex.ID, setOrder: s.SetOrder})
			rowIdx++
		}
	}
	ui.rows = rows

	if selectedRow >= rowIdx {
		selectedRow = rowIdx - 1
	}
	if selectedRow >= 0 {
		ui.setTable.Select(selectedRow, 0)
	}
}

// setsFor returns the current ledger rows for an exercise, falling back
// to the plan when no snapshot arrived yet.
func (ui *TUI) setsFor(ex *plan.ExerciseInstance) []session.CompletedSet {
	if rows, ok := ui.sets[ex.ID]; ok {
		return rows
	}
	specs := ex.EffectiveSets()
	rows := make([]session.CompletedSet, len(specs))
	for i, spec := range specs {
		rows[i] = session.CompletedSet{ExerciseID: ex.ID, SetOrder: spec.Order, SetType: spec.Type}
	}
	return rows
}

func completionGlyph(done bool) string {
	if done {
		return "[green]#[white]"
	}
	return "[gray]·[white]"
}

func weightLabel(weight string) string {
	switch weight {
	case "":
		return "[gray]kg ?[white]"
	case session.BodyweightSentinel:
		return "BW"
	default:
		return weight + " kg"
	}
}

func repsLabel(s session.CompletedSet, ex *plan.ExerciseInstance) string {
	reps := s.Reps
	if reps == 0 {
		for _, spec := range ex.EffectiveSets() {
			if spec.Order == s.SetOrder {
				reps = spec.Reps
				break
			}
		}
	}
	label := fmt.Sprintf("x%d", reps)
	if ex.EachSide {
		label += " each side"
	}
	return label
}

func setTypeLabel(t plan.SetType) string {
	switch t {
	case plan.SetTypeWarmUp:
		return "[gray]warm[white]"
	case plan.SetTypeDropSet:
		return "[gray]drop[white]"
	case plan.SetTypeFailure:
		return "[gray]fail[white]"
	case plan.SetTypeBackOff:
		return "[gray]back[white]"
	default:
		return ""
	}
}

func notesLabel(notes string) string {
	if notes == "" {
		return ""
	}
	return "[gray]" + notes + "[white]"
}

// UpdateSessionState refreshes the status bar
func (ui *TUI) UpdateSessionState(state session.SessionState) {
	if ui.statusBar == nil {
		return
	}

	var text string
	switch state.Status {
	case session.StatusNotStarted:
		text = " [gray]No session running[white]"
	case session.StatusStarting:
		text = fmt.Sprintf(" [yellow]%s[white]  Starting in %d...", state.WorkoutName, state.Timer.Remaining)
	default:
		text = fmt.Sprintf(" [yellow]%s[white]  %s  %s  %d/%d sets (%d%%)",
			state.WorkoutName,
			statusLabel(state.Status),
			formatClock(state.ElapsedSeconds),
			state.SetsCompleted, state.SetsTotal, state.Progress)
		if timer := timerLabel(state.Timer, ui.workout); timer != "" {
			text += "  " + timer
		}
	}

	ui.statusBar.SetText(text)
}

func statusLabel(s session.Status) string {
	switch s {
	case session.StatusActive:
		return "[green]ACTIVE[white]"
	case session.StatusPaused:
		return "[gray]PAUSED[white]"
	case session.StatusCompleted:
		return "[green]COMPLETED[white]"
	case session.StatusCancelled:
		return "[red]CANCELLED[white]"
	default:
		return s.String()
	}
}

func timerLabel(t session.TimerState, w *plan.Workout) string {
	switch t.Kind {
	case session.TimerRest:
		label := fmt.Sprintf("[blue]Rest %s[white]", formatClock(t.Remaining))
		if w != nil {
			if ex, _ := w.Exercise(t.ExerciseID); ex != nil {
				label += fmt.Sprintf(" [gray](%s set %d)[white]", ex.Name, t.SetOrder)
			}
		}
		if !t.Running {
			label += " [gray](paused)[white]"
		}
		return label
	case session.TimerCountdown:
		label := fmt.Sprintf("[blue]Countdown %s[white]", formatClock(t.Remaining))
		if !t.Running {
			label += " [gray](paused)[white]"
		}
		return label
	default:
		return ""
	}
}

// formatClock formats whole seconds as MM:SS, or H:MM:SS past an hour
func formatClock(totalSeconds int) string {
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	if minutes >= 60 {
		return fmt.Sprintf("%d:%02d:%02d", minutes/60, minutes%60, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// ShowToast displays a transient message on the toast line
func (ui *TUI) ShowToast(text string) {
	if ui.toastBar == nil {
		return
	}
	ui.toastBar.SetText(" [orange]" + text + "[white]")
}

// ShowResumePrompt asks whether to resume or discard the open session
func (ui *TUI) ShowResumePrompt(ref *store.SessionRef, onResume, onDiscard func()) {
	text := fmt.Sprintf("Unfinished session found\n\nStarted %s\n\nResume it or discard it and start fresh?",
		ref.StartTime.Format("Mon 15:04"))
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"Resume", "Discard"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			ui.closeModal()
			switch buttonLabel {
			case "Resume":
				onResume()
			case "Discard":
				onDiscard()
			}
		})
	ui.showModal(modal)
}

// ShowOutcome displays the terminal session outcome
func (ui *TUI) ShowOutcome(o session.Outcome) {
	var text string
	switch o.Kind {
	case session.OutcomeCompleted:
		text = fmt.Sprintf("Workout complete\n\nDuration %s\n%d/%d sets done",
			formatClock(o.DurationSeconds), o.SetsCompleted, o.SetsTotal)
	case session.OutcomeCancelled:
		text = fmt.Sprintf("Workout cancelled\n\n%d/%d sets were done", o.SetsCompleted, o.SetsTotal)
	case session.OutcomeFailed:
		text = "Could not save the workout\n\n" + o.Detail
	}
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			ui.closeModal()
		})
	ui.showModal(modal)
}

func (ui *TUI) showModal(modal *tview.Modal) {
	ui.modalVisible = true
	ui.pages.AddPage(pageModal, modal, true, true)
	ui.app.SetFocus(modal)
}

func (ui *TUI) closeModal() {
	ui.modalVisible = false
	ui.pages.RemovePage(pageModal)
	ui.app.SetFocus(ui.setTable)
}

// Beep sounds the terminal bell
func (ui *TUI) Beep() {
	ui.screenMu.Lock()
	screen := ui.screen
	ui.screenMu.Unlock()
	if screen != nil {
		screen.Beep()
	}
}

// openInput swaps the input field into the session layout and focuses it
func (ui *TUI) openInput(label, initial string, onDone func(text string)) {
	if ui.inputVisible {
		return
	}
	ui.inputVisible = true

	ui.inputField.SetLabel(" " + label + ": ").SetText(initial)
	ui.inputField.SetDoneFunc(func(key tcell.Key) {
		text := ui.inputField.GetText()
		ui.closeInput()
		if key == tcell.KeyEnter {
			onDone(text)
		}
	})
	ui.sessionFlex.AddItem(ui.inputField, 1, 0, false)
	ui.app.SetFocus(ui.inputField)
}

func (ui *TUI) closeInput() {
	if !ui.inputVisible {
		return
	}
	ui.inputVisible = false
	ui.sessionFlex.RemoveItem(ui.inputField)
	ui.app.SetFocus(ui.setTable)
}

// SetMode switches the UI to the specified mode
func (ui *TUI) SetMode(mode session.UIMode) {
	if ui.currentMode == mode {
		return
	}
	ui.currentMode = mode

	switch mode {
	case session.UIModeSession:
		ui.mainFlex.ResizeItem(ui.pages, 0, 2)
		ui.mainFlex.ResizeItem(ui.logView, 0, 1)
		ui.app.SetFocus(ui.setTable)
	case session.UIModeLog:
		ui.mainFlex.ResizeItem(ui.pages, 0, 1)
		ui.mainFlex.ResizeItem(ui.logView, 0, 3)
		ui.app.SetFocus(ui.logView)
	}
	ui.app.Draw()
}

// GetCurrentMode returns the currently active UI mode
func (ui *TUI) GetCurrentMode() session.UIMode {
	return ui.currentMode
}

// SetupKeyboardHandlers sets up keyboard event handlers
func (ui *TUI) SetupKeyboardHandlers(controller *Controller) {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Let modals and the input field consume their own keys
		if ui.modalVisible || ui.inputField.HasFocus() {
			return event
		}

		// Number keys for mode switching
		if event.Key() == tcell.KeyRune {
			if mode, ok := GetModeByKey(event.Rune()); ok {
				controller.OnModeChange(mode)
				return nil
			}
		}

		// Tab to switch focus between the set table and the log view
		if event.Key() == tcell.KeyTab {
			if ui.setTable.HasFocus() {
				ui.app.SetFocus(ui.logView)
			} else {
				ui.app.SetFocus(ui.setTable)
			}
			return nil
		}

		// Escape to quit
		if event.Key() == tcell.KeyEscape {
			controller.OnEscapeKey()
			return nil
		}

		// Session mode key handlers
		if ui.currentMode != session.UIModeSession {
			return event
		}

		if event.Key() == tcell.KeyRune {
			switch event.Rune() {
			// Space to toggle the selected set complete/incomplete
			case ' ':
				if ref, ok := ui.selectedSetRow(); ok {
					controller.OnToggleSet(ref.exerciseID, ref.setOrder)
				}
				return nil
			case 'w':
				if ref, ok := ui.selectedSetRow(); ok {
					current, _ := ui.currentSet(ref)
					ui.openInput("Weight", current.Weight, func(text string) {
						controller.OnWeightEntered(ref.exerciseID, ref.setOrder, text)
					})
				}
				return nil
			case 'r':
				if ref, ok := ui.selectedSetRow(); ok {
					ui.openInput("Reps", "", func(text string) {
						controller.OnRepsEntered(ref.exerciseID, ref.setOrder, text)
					})
				}
				return nil
			case 'n':
				if ref, ok := ui.selectedSetRow(); ok {
					current, _ := ui.currentSet(ref)
					ui.openInput("Notes", current.Notes, func(text string) {
						controller.OnNotesEntered(ref.exerciseID, ref.setOrder, text)
					})
				}
				return nil
			case 'b':
				if ref, ok := ui.selectedSetRow(); ok {
					controller.OnToggleBodyweight(ref.exerciseID)
				}
				return nil
			case 'p':
				controller.OnPauseResume()
				return nil
			case 't':
				ui.openInput("Countdown seconds", "", controller.OnCountdownEntered)
				return nil
			case 'x':
				controller.OnCancelCountdown()
				return nil
			case 'f':
				controller.OnFinish()
				return nil
			case 'c':
				ui.confirmCancel(controller)
				return nil
			case 'v':
				controller.OnToggleVoice()
				return nil
			}
		}

		return event
	})
}

func (ui *TUI) currentSet(ref rowRef) (session.CompletedSet, bool) {
	return ui.sets.Get(ref.exerciseID, ref.setOrder)
}

func (ui *TUI) confirmCancel(controller *Controller) {
	modal := tview.NewModal().
		SetText("Cancel this session?\n\nAll its logged sets will be deleted.").
		AddButtons([]string{"Keep going", "Cancel session"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			ui.closeModal()
			if buttonLabel == "Cancel session" {
				controller.OnCancelSession()
			}
		})
	ui.showModal(modal)
}

// GetLogViewHeight returns the visible height of the log view
func (ui *TUI) GetLogViewHeight() int {
	_, _, _, height := ui.logView.GetInnerRect()
	return height
}

// ClearLogView clears the log view
func (ui *TUI) ClearLogView() {
	ui.logView.Clear()
}

// WriteLogLine writes a line to the log view
func (ui *TUI) WriteLogLine(line string) error {
	_, err := fmt.Fprint(ui.logView, line)
	return err
}

// Draw refreshes/redraws the UI
func (ui *TUI) Draw() error {
	ui.app.Draw()
	return nil
}

// Run starts the UI and blocks until it exits
func (ui *TUI) Run() error {
	// SetRoot must be called before setting focus, otherwise focus may be reset
	ui.app.SetRoot(ui.mainFlex, true)
	ui.app.SetFocus(ui.setTable)
	return ui.app.Run()
}

// Stop stops the UI framework
func (ui *TUI) Stop() {
	ui.app.Stop()
}
