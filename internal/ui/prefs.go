package ui

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
)

type prefsData struct {
	VoiceEnabled bool   `json:"voice_enabled"`
	LastWorkout  string `json:"last_workout"`
}

// Prefs persists UI preferences across runs as JSON.
type Prefs struct {
	filePath string
	mu       sync.Mutex
	data     prefsData
	logger   *log.Logger
}

// NewPrefs loads preferences from ~/.lifttrack/ui_state.json, starting
// empty when the file does not exist yet.
func NewPrefs(logger *log.Logger) *Prefs {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return newPrefsAt(filepath.Join(homeDir, ".lifttrack", "ui_state.json"), logger)
}

func newPrefsAt(filePath string, logger *log.Logger) *Prefs {
	if logger == nil {
		panic("Prefs: logger cannot be nil")
	}
	p := &Prefs{
		filePath: filePath,
		logger:   logger,
	}
	p.load()
	return p
}

// VoiceEnabled reports the persisted voice output preference
func (p *Prefs) VoiceEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.VoiceEnabled
}

// SetVoiceEnabled persists the voice output preference
func (p *Prefs) SetVoiceEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.VoiceEnabled = enabled
	p.save()
}

// LastWorkout reports the id of the most recently loaded workout
func (p *Prefs) LastWorkout() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.LastWorkout
}

// SetLastWorkout persists the id of the most recently loaded workout
func (p *Prefs) SetLastWorkout(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.LastWorkout = id
	p.save()
}

func (p *Prefs) load() {
	raw, err := os.ReadFile(p.filePath)
	if err != nil {
		p.logger.Printf("Prefs: load %s (no existing file)", p.filePath)
		return
	}
	if err := json.Unmarshal(raw, &p.data); err != nil {
		p.logger.Printf("Prefs: load %s failed to parse: %v", p.filePath, err)
		return
	}
	p.logger.Printf("Prefs: load %s -> %+v", p.filePath, p.data)
}

// save must be called with mu held.
func (p *Prefs) save() {
	if err := os.MkdirAll(filepath.Dir(p.filePath), 0755); err != nil {
		p.logger.Printf("Prefs: save mkdir failed: %v", err)
		return
	}
	raw, err := json.MarshalIndent(p.data, "", "  ")
	if err != nil {
		p.logger.Printf("Prefs: save marshal failed: %v", err)
		return
	}
	if err := os.WriteFile(p.filePath, raw, 0644); err != nil {
		p.logger.Printf("Prefs: save %s failed: %v", p.filePath, err)
	}
}
