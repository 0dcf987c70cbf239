package detect

import (
	"time"

	"github.com/google/uuid"

	"github.com/hairizuan-noorazman/desktop-automation/action"
)

// ActionRecord is one entry in the append-only log of executed actions
// within a single scenario run.
type ActionRecord struct {
	Hash          string
	CorrelationID uuid.UUID
	Action        action.Action
	Timestamp     time.Time
}

// LoopConfig tunes the loop detector.
type LoopConfig struct {
	// Window is the number of most recent actions inspected.
	Window int

	// Threshold is the number of identical actions within the window
	// that counts as a loop.
	Threshold int
}

// DefaultLoopConfig returns the default loop-detection window and threshold.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		Window:    10,
		Threshold: 3,
	}
}

// LoopDetector flags an agent that keeps proposing the identical action.
// An action's identity is its parameter hash, so a click at a slightly
// different coordinate is a different action.
type LoopDetector struct {
	config  LoopConfig
	records []ActionRecord
}

// NewLoopDetector creates a loop detector. Zero-valued config fields fall
// back to the defaults.
func NewLoopDetector(config LoopConfig) *LoopDetector {
	def := DefaultLoopConfig()
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	return &LoopDetector{config: config}
}

// Record appends an executed action to the log.
func (d *LoopDetector) Record(a action.Action, correlationID uuid.UUID) {
	d.records = append(d.records, ActionRecord{
		Hash:          a.Hash(),
		CorrelationID: correlationID,
		Action:        a,
		Timestamp:     time.Now(),
	})
}

// WouldLoop reports whether executing the given action would cross the
// loop threshold, counting the proposal itself plus its occurrences in
// the sliding window of recent records.
func (d *LoopDetector) WouldLoop(a action.Action) bool {
	hash := a.Hash()

	start := len(d.records) - (d.config.Window - 1)
	if start < 0 {
		start = 0
	}

	count := 1 // the proposal under consideration
	for _, r := range d.records[start:] {
		if r.Hash == hash {
			count++
		}
	}
	return count >= d.config.Threshold
}

// Records returns the executed-action log.
func (d *LoopDetector) Records() []ActionRecord {
	return d.records
}
