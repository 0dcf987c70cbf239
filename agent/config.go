package agent

import (
	"time"

	"github.com/hairizuan-noorazman/desktop-automation/detect"
)

// Config holds the tunables of the per-scenario agent loop.
type Config struct {
	// MaxTurns bounds the number of oracle turns before the run times
	// out with max_iterations.
	MaxTurns int

	// PostClickDelay is how long to let the UI settle after click-class
	// actions before the next capture.
	PostClickDelay time.Duration

	// MediumConfidenceThreshold is the number of consecutive
	// medium-confidence turns on one expectation before the oracle is
	// asked directly whether the step completed.
	MediumConfidenceThreshold int

	// MismatchFailureThreshold is the number of accumulated low or
	// medium-without-screen-change verdicts that forces an
	// action_mismatch failure. Deliberately configurable; the right
	// tuning depends on how chatty the oracle is.
	MismatchFailureThreshold int

	// VerificationRetries and VerificationRetryDelay bound the
	// verification-text recheck, with a fresh screenshot each attempt.
	VerificationRetries    int
	VerificationRetryDelay time.Duration

	// HistoryTrimThreshold is the message count past which older
	// screenshots are stripped from the history;
	// HistoryImageRetention is how many of the most recent
	// image-bearing messages keep their images.
	HistoryTrimThreshold  int
	HistoryImageRetention int

	// HintMatchThreshold is the template-match confidence cutoff.
	HintMatchThreshold float64

	Screen detect.ScreenConfig
	Loop   detect.LoopConfig
	Stuck  detect.StuckConfig
}

// DefaultConfig returns the default loop tunables.
func DefaultConfig() Config {
	return Config{
		MaxTurns:                  30,
		PostClickDelay:            500 * time.Millisecond,
		MediumConfidenceThreshold: 3,
		MismatchFailureThreshold:  10,
		VerificationRetries:       3,
		VerificationRetryDelay:    2 * time.Second,
		HistoryTrimThreshold:      20,
		HistoryImageRetention:     3,
		HintMatchThreshold:        0.85,
		Screen:                    detect.DefaultScreenConfig(),
		Loop:                      detect.DefaultLoopConfig(),
		Stuck:                     detect.DefaultStuckConfig(),
	}
}

// normalize fills zero values with defaults so a partially-populated
// config behaves sanely.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.MaxTurns <= 0 {
		c.MaxTurns = def.MaxTurns
	}
	if c.MediumConfidenceThreshold <= 0 {
		c.MediumConfidenceThreshold = def.MediumConfidenceThreshold
	}
	if c.MismatchFailureThreshold <= 0 {
		c.MismatchFailureThreshold = def.MismatchFailureThreshold
	}
	if c.VerificationRetries <= 0 {
		c.VerificationRetries = def.VerificationRetries
	}
	if c.VerificationRetryDelay <= 0 {
		c.VerificationRetryDelay = def.VerificationRetryDelay
	}
	if c.HistoryTrimThreshold <= 0 {
		c.HistoryTrimThreshold = def.HistoryTrimThreshold
	}
	if c.HistoryImageRetention <= 0 {
		c.HistoryImageRetention = def.HistoryImageRetention
	}
	if c.HintMatchThreshold <= 0 {
		c.HintMatchThreshold = def.HintMatchThreshold
	}
	return c
}

// StopSignal is the externally-polled stop flag the loop checks at every
// suspension point, alongside context cancellation.
type StopSignal interface {
	IsStopRequested() bool
}
