package hintimage

import (
	"fmt"
	"sort"
	"strings"
)

// ErrorCode classifies a template match failure. The classification
// drives the rematch policy: permanent errors are never retried, size
// errors wait for a screen change, transient errors always retry.
type ErrorCode string

const (
	CodeNone ErrorCode = ""

	// CodeTemplateDecodeFailed means the template image is corrupt or
	// undecodable. Permanent.
	CodeTemplateDecodeFailed ErrorCode = "template_decode_failed"

	// CodeInsufficientOpacity means the template has too few opaque
	// pixels to match against. Permanent.
	CodeInsufficientOpacity ErrorCode = "insufficient_opacity"

	// CodeInvalidConfidence means the matcher produced a non-finite
	// confidence for this template. Permanent.
	CodeInvalidConfidence ErrorCode = "invalid_confidence"

	// CodeTemplateTooLarge means the template is larger than the
	// screenshot. A resolution or scale change may resolve it.
	CodeTemplateTooLarge ErrorCode = "template_too_large"

	// CodeScreenshotDecodeFailed means the screenshot itself could not
	// be decoded. Transient.
	CodeScreenshotDecodeFailed ErrorCode = "screenshot_decode_failed"
)

// IsPermanent reports whether the error can never resolve for this
// template.
func (c ErrorCode) IsPermanent() bool {
	switch c {
	case CodeTemplateDecodeFailed, CodeInsufficientOpacity, CodeInvalidConfidence:
		return true
	}
	return false
}

// IsSizeRelated reports whether the error may resolve after a
// resolution or scale change.
func (c ErrorCode) IsSizeRelated() bool {
	return c == CodeTemplateTooLarge
}

// MatchResult is the outcome of matching one hint image against a
// screenshot, keyed by the hint image's original position.
type MatchResult struct {
	Index          int       `json:"index"`
	FileName       string    `json:"file_name"`
	Found          bool      `json:"found"`
	CenterX        int       `json:"center_x,omitempty"`
	CenterY        int       `json:"center_y,omitempty"`
	Confidence     float64   `json:"confidence,omitempty"`
	TemplateWidth  int       `json:"template_width"`
	TemplateHeight int       `json:"template_height"`
	Error          string    `json:"error,omitempty"`
	ErrorCode      ErrorCode `json:"error_code,omitempty"`
}

// ResultSet holds the latest match result per hint image, keyed by the
// image's original index so numbering stays stable even when some
// images are never found.
type ResultSet map[int]MatchResult

// Store records results into the set.
func (s ResultSet) Store(results []MatchResult) {
	for _, r := range results {
		s[r.Index] = r
	}
}

// Found returns the currently-found results in original-index order.
func (s ResultSet) Found() []MatchResult {
	var found []MatchResult
	for _, r := range s {
		if r.Found {
			found = append(found, r)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Index < found[j].Index })
	return found
}

// CoordinateSummary renders the found coordinates as text for injection
// into the oracle's next tool-result message. Numbering follows the
// original hint image positions.
func (s ResultSet) CoordinateSummary() string {
	found := s.Found()
	if len(found) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Hint image locations on the current screen:\n")
	for _, r := range found {
		fmt.Fprintf(&b, "- image %d (%s): center (%d, %d), confidence %.2f\n",
			r.Index+1, r.FileName, r.CenterX, r.CenterY, r.Confidence)
	}
	return b.String()
}
