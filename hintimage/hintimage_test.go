package hintimage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngImage(index int, name string, size int) HintImage {
	return HintImage{
		Index:    index,
		FileName: name,
		MIMEType: "image/png",
		Data:     make([]byte, size),
	}
}

func TestValidateSet(t *testing.T) {
	limits := DefaultValidationLimits()

	t.Run("valid set passes", func(t *testing.T) {
		images := []HintImage{
			pngImage(0, "login.png", 1024),
			pngImage(1, "save.png", 2048),
		}
		assert.NoError(t, ValidateSet(images, limits))
	})

	t.Run("empty set passes", func(t *testing.T) {
		assert.NoError(t, ValidateSet(nil, limits))
	})

	t.Run("count at the cap passes", func(t *testing.T) {
		images := make([]HintImage, limits.MaxCount)
		for i := range images {
			images[i] = pngImage(i, "img.png", 16)
		}
		assert.NoError(t, ValidateSet(images, limits))
	})

	t.Run("too many images", func(t *testing.T) {
		images := make([]HintImage, limits.MaxCount+1)
		for i := range images {
			images[i] = pngImage(i, "img.png", 16)
		}
		assert.ErrorIs(t, ValidateSet(images, limits), ErrTooManyImages)
	})

	t.Run("file at the per-file cap passes", func(t *testing.T) {
		images := []HintImage{pngImage(0, "big.png", limits.MaxFileBytes)}
		assert.NoError(t, ValidateSet(images, limits))
	})

	t.Run("file over the per-file cap", func(t *testing.T) {
		images := []HintImage{pngImage(0, "huge.png", limits.MaxFileBytes+1)}
		err := ValidateSet(images, limits)
		require.ErrorIs(t, err, ErrImageTooLarge)
		assert.Contains(t, err.Error(), "huge.png")
	})

	t.Run("total over the aggregate cap", func(t *testing.T) {
		// Six files of 5 MiB each are individually fine but blow the
		// 25 MiB aggregate.
		images := make([]HintImage, 6)
		for i := range images {
			images[i] = pngImage(i, "part.png", limits.MaxFileBytes)
		}
		assert.ErrorIs(t, ValidateSet(images, limits), ErrTotalSizeExceeded)
	})

	t.Run("unsupported mime type", func(t *testing.T) {
		images := []HintImage{{
			Index:    0,
			FileName: "icon.bmp",
			MIMEType: "image/bmp",
			Data:     []byte{1, 2, 3},
		}}
		err := ValidateSet(images, limits)
		require.ErrorIs(t, err, ErrUnsupportedMIMEType)
		assert.Contains(t, err.Error(), "image/bmp")
	})

	t.Run("empty image data", func(t *testing.T) {
		images := []HintImage{{Index: 0, FileName: "blank.png", MIMEType: "image/png"}}
		assert.ErrorIs(t, ValidateSet(images, limits), ErrEmptyImage)
	})
}

func TestErrorCodeClassification(t *testing.T) {
	permanent := []ErrorCode{
		CodeTemplateDecodeFailed,
		CodeInsufficientOpacity,
		CodeInvalidConfidence,
	}
	for _, c := range permanent {
		assert.True(t, c.IsPermanent(), string(c))
		assert.False(t, c.IsSizeRelated(), string(c))
	}

	assert.False(t, CodeTemplateTooLarge.IsPermanent())
	assert.True(t, CodeTemplateTooLarge.IsSizeRelated())

	assert.False(t, CodeScreenshotDecodeFailed.IsPermanent())
	assert.False(t, CodeScreenshotDecodeFailed.IsSizeRelated())

	assert.False(t, CodeNone.IsPermanent())
	assert.False(t, CodeNone.IsSizeRelated())
}

func TestResultSet_Store(t *testing.T) {
	set := ResultSet{}
	set.Store([]MatchResult{
		{Index: 2, FileName: "b.png", Found: true, CenterX: 10, CenterY: 20},
		{Index: 0, FileName: "a.png", Found: false, Error: "not found"},
	})

	// A later match for the same index replaces the earlier result.
	set.Store([]MatchResult{
		{Index: 0, FileName: "a.png", Found: true, CenterX: 5, CenterY: 6},
	})

	require.Len(t, set, 2)
	assert.True(t, set[0].Found)
	assert.Equal(t, 5, set[0].CenterX)
}

func TestResultSet_FoundOrder(t *testing.T) {
	set := ResultSet{}
	set.Store([]MatchResult{
		{Index: 3, FileName: "d.png", Found: true},
		{Index: 1, FileName: "b.png", Found: true},
		{Index: 2, FileName: "c.png", Found: false},
		{Index: 0, FileName: "a.png", Found: true},
	})

	found := set.Found()
	require.Len(t, found, 3)
	assert.Equal(t, []int{0, 1, 3}, []int{found[0].Index, found[1].Index, found[2].Index})
}

func TestResultSet_CoordinateSummary(t *testing.T) {
	set := ResultSet{}
	assert.Empty(t, set.CoordinateSummary(), "nothing found yet")

	set.Store([]MatchResult{
		{Index: 0, FileName: "login.png", Found: true, CenterX: 120, CenterY: 340, Confidence: 0.97},
		{Index: 2, FileName: "save.png", Found: true, CenterX: 800, CenterY: 55, Confidence: 0.81},
		{Index: 1, FileName: "gone.png", Found: false},
	})

	summary := set.CoordinateSummary()
	lines := strings.Split(strings.TrimRight(summary, "\n"), "\n")
	require.Len(t, lines, 3)

	// Numbering is 1-based and keeps the original positions, so the
	// missing image 2 leaves a gap.
	assert.Contains(t, lines[1], "image 1 (login.png): center (120, 340), confidence 0.97")
	assert.Contains(t, lines[2], "image 3 (save.png): center (800, 55), confidence 0.81")
	assert.NotContains(t, summary, "gone.png")
}
