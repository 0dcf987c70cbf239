package detect

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScreenDetector_Compare(t *testing.T) {
	d := NewScreenDetector(ScreenConfig{SampleWindow: 100, NoiseThreshold: 0.01, MinDiffRatio: 0.1})

	base := bytes.Repeat([]byte{0xAA}, 200)

	t.Run("identical screenshots", func(t *testing.T) {
		change := d.Compare(base, base)
		assert.False(t, change.Changed)
		assert.False(t, change.Significant)
		assert.Zero(t, change.DiffRatio)
	})

	t.Run("noise-level difference ignored", func(t *testing.T) {
		cur := append([]byte(nil), base...)
		cur[3] ^= 0xFF // 1 of 200 bytes = 0.5%, under the 1% noise floor
		change := d.Compare(base, cur)
		assert.False(t, change.Changed)
		assert.False(t, change.Significant)
	})

	t.Run("changed but not significant", func(t *testing.T) {
		cur := append([]byte(nil), base...)
		for i := 0; i < 10; i++ { // 5%, between noise and significance
			cur[i] ^= 0xFF
		}
		change := d.Compare(base, cur)
		assert.True(t, change.Changed)
		assert.False(t, change.Significant)
	})

	t.Run("significant change", func(t *testing.T) {
		cur := append([]byte(nil), base...)
		for i := 0; i < 40; i++ { // 20%
			cur[i] ^= 0xFF
		}
		change := d.Compare(base, cur)
		assert.True(t, change.Changed)
		assert.True(t, change.Significant)
	})

	t.Run("empty previous treated as full change", func(t *testing.T) {
		change := d.Compare(nil, base)
		assert.True(t, change.Changed)
		assert.True(t, change.Significant)
	})
}

func TestScreenDetector_Hash(t *testing.T) {
	d := NewScreenDetector(DefaultScreenConfig())

	a := bytes.Repeat([]byte{1, 2, 3}, 5000)
	b := bytes.Repeat([]byte{1, 2, 3}, 5000)
	c := append(append([]byte(nil), a...), 0xFF)

	assert.Equal(t, d.Hash(a), d.Hash(b))
	assert.NotEqual(t, d.Hash(a), d.Hash(c))
}

func TestScreenDetector_SampleCoversLargeImages(t *testing.T) {
	d := NewScreenDetector(ScreenConfig{SampleWindow: 64, NoiseThreshold: 0.001, MinDiffRatio: 0.01})

	// A change in the middle of a large image must still be visible to
	// the sampled comparison.
	prev := bytes.Repeat([]byte{0x00}, 100000)
	cur := append([]byte(nil), prev...)
	for i := 49980; i < 50020; i++ {
		cur[i] = 0xFF
	}

	change := d.Compare(prev, cur)
	assert.True(t, change.Significant)
}
