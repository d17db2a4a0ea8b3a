package ui

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestPrefs_DefaultsWhenFileMissing(t *testing.T) {
	p := newPrefsAt(filepath.Join(t.TempDir(), "ui_state.json"), discardLogger())

	assert.False(t, p.VoiceEnabled())
	assert.Empty(t, p.LastWorkout())
}

func TestPrefs_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_state.json")

	p := newPrefsAt(path, discardLogger())
	p.SetVoiceEnabled(true)
	p.SetLastWorkout("push-day")

	reloaded := newPrefsAt(path, discardLogger())
	assert.True(t, reloaded.VoiceEnabled())
	assert.Equal(t, "push-day", reloaded.LastWorkout())
}

func TestPrefs_SaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "ui_state.json")

	p := newPrefsAt(path, discardLogger())
	p.SetLastWorkout("leg-day")

	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestPrefs_CorruptFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	p := newPrefsAt(path, discardLogger())
	assert.False(t, p.VoiceEnabled())
	assert.Empty(t, p.LastWorkout())

	// A save repairs the file.
	p.SetVoiceEnabled(true)
	reloaded := newPrefsAt(path, discardLogger())
	assert.True(t, reloaded.VoiceEnabled())
}

func TestPrefs_PartialFileKeepsZeroValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui_state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"voice_enabled": true}`), 0644))

	p := newPrefsAt(path, discardLogger())
	assert.True(t, p.VoiceEnabled())
	assert.Empty(t, p.LastWorkout())
}
