package ui

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunosouza-justauto/lifttrack/internal/session"
)

// startActive drives BeginSession through the pre-roll to an active
// session.
func (h *uiHarness) startActive(t *testing.T) {
	t.Helper()
	h.ctrl.BeginSession()
	eventually(t, func() bool {
		return h.model.GetSessionState().Status == session.StatusStarting
	}, "session should enter pre-roll")
	for i := 0; i < 5; i++ {
		h.ticks.Tick()
	}
	eventually(t, func() bool {
		return h.model.GetSessionState().Status == session.StatusActive
	}, "pre-roll should promote to active")
}

func TestController_BeginSessionStartsFresh(t *testing.T) {
	h := newUIHarness(t)

	h.ctrl.BeginSession()

	eventually(t, func() bool {
		return h.model.GetSessionState().Status == session.StatusStarting
	}, "fresh start should enter pre-roll")
	assert.Zero(t, h.view.promptCount(), "no resume prompt without an open session")
}

func TestController_BeginSessionPromptsAndResumes(t *testing.T) {
	h := newUIHarness(t)
	ctx := context.Background()

	id, err := h.st.CreateSession(ctx, "athlete-1", "push-a", time.Now().Add(-10*time.Minute))
	require.NoError(t, err)

	h.ctrl.BeginSession()
	eventually(t, func() bool { return h.view.promptCount() == 1 }, "open session should prompt")

	var ref = func() string {
		var got string
		h.view.snapshot(func(v *fakeView) { got = v.resumeRefs[0].ID })
		return got
	}()
	assert.Equal(t, id, ref)
	assert.Equal(t, session.StatusNotStarted, h.model.GetSessionState().Status,
		"prompting must not start anything")

	var onResume func()
	h.view.snapshot(func(v *fakeView) { onResume = v.onResume })
	onResume()

	eventually(t, func() bool {
		s := h.model.GetSessionState()
		return s.Status == session.StatusActive && s.SessionID == id
	}, "resume should continue the open session")
	assert.GreaterOrEqual(t, h.model.GetSessionState().ElapsedSeconds, 599,
		"elapsed should count from the original start")
}

func TestController_DiscardStartsFreshSession(t *testing.T) {
	h := newUIHarness(t)
	ctx := context.Background()

	id, err := h.st.CreateSession(ctx, "athlete-1", "push-a", time.Now().Add(-10*time.Minute))
	require.NoError(t, err)

	h.ctrl.BeginSession()
	eventually(t, func() bool { return h.view.promptCount() == 1 }, "open session should prompt")

	var onDiscard func()
	h.view.snapshot(func(v *fakeView) { onDiscard = v.onDiscard })
	onDiscard()

	eventually(t, func() bool {
		s := h.model.GetSessionState()
		return s.Status == session.StatusStarting && s.SessionID != "" && s.SessionID != id
	}, "discard should start a fresh session under a new id")
}

func TestController_PauseResumeKey(t *testing.T) {
	h := newUIHarness(t)
	h.startActive(t)

	h.ctrl.OnPauseResume()
	eventually(t, func() bool {
		return h.model.GetSessionState().Status == session.StatusPaused
	}, "first press should pause")

	h.ctrl.OnPauseResume()
	eventually(t, func() bool {
		return h.model.GetSessionState().Status == session.StatusActive
	}, "second press should resume")
}

func TestController_PauseBeforeStartDoesNothing(t *testing.T) {
	h := newUIHarness(t)

	h.ctrl.OnPauseResume()

	assert.Equal(t, session.StatusNotStarted, h.model.GetSessionState().Status)
}

func TestController_CountdownEntry(t *testing.T) {
	h := newUIHarness(t)
	h.startActive(t)

	h.ctrl.OnCountdownEntered("ninety")
	eventually(t, func() bool { return h.view.hasToast("Not a number") }, "non-numeric input should toast")
	assert.Equal(t, session.TimerIdle, h.rt.State().Timer.Kind)

	h.ctrl.OnCountdownEntered("90")
	timer := h.rt.State().Timer
	assert.Equal(t, session.TimerCountdown, timer.Kind)
	assert.Equal(t, 90, timer.Remaining)

	h.ctrl.OnCancelCountdown()
	assert.Equal(t, session.TimerIdle, h.rt.State().Timer.Kind)
}

func TestController_FinishCompletesSession(t *testing.T) {
	h := newUIHarness(t)
	h.startActive(t)

	h.ctrl.OnWeightEntered("bench", 1, "60")
	require.NoError(t, h.rt.ToggleSet("bench", 1))

	h.ctrl.OnFinish()

	eventually(t, func() bool {
		return h.model.GetSessionState().Status == session.StatusCompleted
	}, "finish should complete the session")
	eventually(t, func() bool { return h.view.outcomeCount() == 1 }, "outcome should reach the view")

	outcome := h.view.lastOutcome()
	assert.Equal(t, session.OutcomeCompleted, outcome.Kind)
	assert.Equal(t, 1, outcome.SetsCompleted)
	assert.Equal(t, 4, outcome.SetsTotal)

	ref, err := h.st.FindOpenSession(context.Background(), "athlete-1", "push-a")
	require.NoError(t, err)
	assert.Nil(t, ref, "completed session should no longer be open")
}

func TestController_CancelSessionDiscardsRows(t *testing.T) {
	h := newUIHarness(t)
	h.startActive(t)

	h.ctrl.OnWeightEntered("bench", 1, "60")
	require.NoError(t, h.rt.ToggleSet("bench", 1))

	h.ctrl.OnCancelSession()

	eventually(t, func() bool {
		return h.model.GetSessionState().Status == session.StatusCancelled
	}, "cancel should end the session")
	eventually(t, func() bool { return h.view.outcomeCount() == 1 }, "outcome should reach the view")
	assert.Equal(t, session.OutcomeCancelled, h.view.lastOutcome().Kind)

	ref, err := h.st.FindOpenSession(context.Background(), "athlete-1", "push-a")
	require.NoError(t, err)
	assert.Nil(t, ref, "cancelled session should be deleted")
}

func TestController_ToggleVoicePersistsPreference(t *testing.T) {
	h := newUIHarness(t)

	require.False(t, h.model.GetUIState().VoiceEnabled)
	require.False(t, h.prefs.VoiceEnabled())

	h.ctrl.OnToggleVoice()
	assert.True(t, h.model.GetUIState().VoiceEnabled)
	assert.True(t, h.prefs.VoiceEnabled())

	h.ctrl.OnToggleVoice()
	assert.False(t, h.model.GetUIState().VoiceEnabled)
	assert.False(t, h.prefs.VoiceEnabled())
}

func TestController_ModeChangeUpdatesModel(t *testing.T) {
	h := newUIHarness(t)

	h.ctrl.OnModeChange(session.UIModeLog)

	assert.Equal(t, session.UIModeLog, h.model.GetUIState().Mode)
	eventually(t, func() bool {
		return h.view.GetCurrentMode() == session.UIModeLog
	}, "mode change should propagate to the view")
}

func TestController_EscapeStopsView(t *testing.T) {
	h := newUIHarness(t)

	h.ctrl.OnEscapeKey()

	eventually(t, func() bool {
		var stopped bool
		h.view.snapshot(func(v *fakeView) { stopped = v.stopped })
		return stopped
	}, "escape should close the application")
}
