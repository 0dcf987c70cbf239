package detect

import (
	"github.com/hairizuan-noorazman/desktop-automation/action"
)

// StuckReason classifies why a scenario run is considered stuck.
type StuckReason string

const (
	// StuckNone means the run is making progress.
	StuckNone StuckReason = ""

	// StuckActionNoEffect means the screen stopped changing in response
	// to progressive actions.
	StuckActionNoEffect StuckReason = "action_no_effect"

	// StuckInLoop means the same action keeps being executed.
	StuckInLoop StuckReason = "stuck_in_loop"
)

// StuckConfig tunes the stuck detector thresholds.
type StuckConfig struct {
	// MaxUnchanged is the number of consecutive progressive actions with
	// an unchanged screen before the run is stuck. Subtle-change actions
	// are allowed twice this count.
	MaxUnchanged int

	// MaxSameAction is the number of consecutive identical actions
	// before the run is stuck. Non-progressive actions are given the
	// relaxed limit instead.
	MaxSameAction int

	// MaxSameActionRelaxed is the consecutive-identical limit applied to
	// non-progressive actions, which legitimately repeat (polling waits,
	// screenshots).
	MaxSameActionRelaxed int
}

// DefaultStuckConfig returns the default stuck-detection thresholds.
func DefaultStuckConfig() StuckConfig {
	return StuckConfig{
		MaxUnchanged:         5,
		MaxSameAction:        3,
		MaxSameActionRelaxed: 8,
	}
}

// ProgressTracker is the per-scenario mutable record of recent progress.
// It is owned exclusively by one scenario run and updated after every
// executed action.
type ProgressTracker struct {
	LastScreenshotHash string
	UnchangedCount     int
	LastActionHash     string
	SameActionCount    int
}

// StuckDetector watches the ProgressTracker for a run that has stopped
// making progress: either the screen no longer reacts to progressive
// actions, or the same action repeats consecutively.
type StuckDetector struct {
	config  StuckConfig
	tracker ProgressTracker
}

// NewStuckDetector creates a stuck detector. Zero-valued config fields
// fall back to the defaults.
func NewStuckDetector(config StuckConfig) *StuckDetector {
	def := DefaultStuckConfig()
	if config.MaxUnchanged <= 0 {
		config.MaxUnchanged = def.MaxUnchanged
	}
	if config.MaxSameAction <= 0 {
		config.MaxSameAction = def.MaxSameAction
	}
	if config.MaxSameActionRelaxed <= 0 {
		config.MaxSameActionRelaxed = def.MaxSameActionRelaxed
	}
	return &StuckDetector{config: config}
}

// SeedScreen records the screenshot taken before any action ran, so the
// first executed action compares against the real starting screen.
func (d *StuckDetector) SeedScreen(screenshotHash string) {
	d.tracker.LastScreenshotHash = screenshotHash
}

// Tracker returns the current progress tracker state.
func (d *StuckDetector) Tracker() ProgressTracker {
	return d.tracker
}

// Observe updates the tracker with the action just executed and the hash
// of the screenshot taken after it, then reports whether the run is stuck.
func (d *StuckDetector) Observe(a action.Action, screenshotHash string) StuckReason {
	actionHash := a.Hash()

	// Non-progressive actions are not expected to change the screen, so
	// an unchanged screenshot after one is not evidence of being stuck.
	if a.Kind.IsProgressive() {
		if screenshotHash != "" && screenshotHash == d.tracker.LastScreenshotHash {
			d.tracker.UnchangedCount++
		} else {
			d.tracker.UnchangedCount = 0
		}
	}
	if screenshotHash != "" {
		d.tracker.LastScreenshotHash = screenshotHash
	}

	if actionHash == d.tracker.LastActionHash {
		d.tracker.SameActionCount++
	} else {
		d.tracker.SameActionCount = 1
	}
	d.tracker.LastActionHash = actionHash

	unchangedLimit := d.config.MaxUnchanged
	if a.Kind.IsSubtleChange() {
		unchangedLimit *= 2
	}
	if a.Kind.IsProgressive() && d.tracker.UnchangedCount >= unchangedLimit {
		return StuckActionNoEffect
	}

	sameLimit := d.config.MaxSameAction
	if !a.Kind.IsProgressive() {
		sameLimit = d.config.MaxSameActionRelaxed
	}
	if d.tracker.SameActionCount >= sameLimit {
		return StuckInLoop
	}

	return StuckNone
}
