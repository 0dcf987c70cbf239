package detect

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// ScreenConfig tunes the screen-change detector thresholds.
type ScreenConfig struct {
	// SampleWindow is the number of bytes sampled from the head, middle
	// and tail of the encoded screenshot.
	SampleWindow int

	// NoiseThreshold is the sample diff ratio below which a difference is
	// treated as encoder noise and ignored.
	NoiseThreshold float64

	// MinDiffRatio is the sample diff ratio at or above which the screen
	// is considered to have significantly changed.
	MinDiffRatio float64
}

// DefaultScreenConfig returns the default screen-change thresholds.
func DefaultScreenConfig() ScreenConfig {
	return ScreenConfig{
		SampleWindow:   4096,
		NoiseThreshold: 0.002,
		MinDiffRatio:   0.01,
	}
}

// ScreenChange is the outcome of comparing two screenshots.
type ScreenChange struct {
	// Changed is true when the diff exceeds the noise threshold.
	Changed bool

	// Significant is true when the diff also reaches MinDiffRatio.
	// Changed && !Significant means "changed but not significant".
	Significant bool

	// DiffRatio is the fraction of sampled bytes that differ.
	DiffRatio float64
}

// ScreenDetector detects whether a screenshot meaningfully differs from
// the previous one. It works on the encoded bytes directly: a
// deterministic sample of head, middle and tail windows is compared
// byte by byte, which is cheap and stable enough to notice real UI
// changes without decoding the image.
type ScreenDetector struct {
	config ScreenConfig
}

// NewScreenDetector creates a screen-change detector with the given config.
// Zero-valued thresholds fall back to the defaults.
func NewScreenDetector(config ScreenConfig) *ScreenDetector {
	def := DefaultScreenConfig()
	if config.SampleWindow <= 0 {
		config.SampleWindow = def.SampleWindow
	}
	if config.NoiseThreshold <= 0 {
		config.NoiseThreshold = def.NoiseThreshold
	}
	if config.MinDiffRatio <= 0 {
		config.MinDiffRatio = def.MinDiffRatio
	}
	return &ScreenDetector{config: config}
}

// sample extracts the head, middle and tail windows of the encoded image.
func (d *ScreenDetector) sample(data []byte) []byte {
	w := d.config.SampleWindow
	if len(data) <= 3*w {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	}

	out := make([]byte, 0, 3*w)
	out = append(out, data[:w]...)
	mid := len(data)/2 - w/2
	out = append(out, data[mid:mid+w]...)
	out = append(out, data[len(data)-w:]...)
	return out
}

// Hash returns a stable digest of the screenshot sample. Two captures of
// an unchanged screen hash identically.
func (d *ScreenDetector) Hash(data []byte) string {
	sum := blake2b.Sum256(d.sample(data))
	return hex.EncodeToString(sum[:16])
}

// Compare diffs two encoded screenshots at the sample level.
func (d *ScreenDetector) Compare(prev, cur []byte) ScreenChange {
	if len(prev) == 0 || len(cur) == 0 {
		return ScreenChange{Changed: len(prev) != len(cur), Significant: len(prev) != len(cur), DiffRatio: 1}
	}

	ps := d.sample(prev)
	cs := d.sample(cur)

	n := len(ps)
	if len(cs) > n {
		n = len(cs)
	}

	diff := 0
	for i := 0; i < n; i++ {
		var pb, cb byte
		if i < len(ps) {
			pb = ps[i]
		}
		if i < len(cs) {
			cb = cs[i]
		}
		if pb != cb {
			diff++
		}
	}

	ratio := float64(diff) / float64(n)
	return ScreenChange{
		Changed:     ratio >= d.config.NoiseThreshold,
		Significant: ratio >= d.config.MinDiffRatio,
		DiffRatio:   ratio,
	}
}
