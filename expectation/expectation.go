package expectation

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/hairizuan-noorazman/desktop-automation/action"
)

var (
	// ErrNoExpectations is returned when a decomposition response yields
	// no expected actions.
	ErrNoExpectations = errors.New("no expected actions in decomposition response")

	// ErrInvalidDecomposition is returned when the decomposition response
	// cannot be parsed.
	ErrInvalidDecomposition = errors.New("invalid decomposition response")
)

// ExpectedAction is one decomposed step of a scenario description, with
// the matching hints the validator uses to confirm the oracle's actions.
type ExpectedAction struct {
	Description      string   `json:"description"`
	Keywords         []string `json:"keywords"`
	TargetElements   []string `json:"target_elements"`
	ExpectedKind     string   `json:"expected_action,omitempty"`
	VerificationText string   `json:"verification_text,omitempty"`
	Completed        bool     `json:"-"`
}

// IsNonProgressive reports whether the expected action kind, when known,
// is one that does not change the screen. Unknown and generic kinds are
// treated as progressive so that advancement still waits for a screen
// change.
func (e ExpectedAction) IsNonProgressive() bool {
	if e.ExpectedKind == "" || e.ExpectedKind == action.KindGenericClick {
		return false
	}
	return !action.Kind(e.ExpectedKind).IsProgressive()
}

// IsSubtleChange reports whether the expected kind may change the screen
// too little for the detector to notice.
func (e ExpectedAction) IsSubtleChange() bool {
	return action.Kind(e.ExpectedKind).IsSubtleChange()
}

// CompletedCount returns the number of completed expectations.
func CompletedCount(expected []ExpectedAction) int {
	count := 0
	for _, e := range expected {
		if e.Completed {
			count++
		}
	}
	return count
}

// AllCompleted reports whether every expectation is confirmed complete.
// An empty list is never complete; there is nothing to confirm.
func AllCompleted(expected []ExpectedAction) bool {
	if len(expected) == 0 {
		return false
	}
	return CompletedCount(expected) == len(expected)
}

var (
	fencedJSONArrayPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")
	bareJSONArrayPattern   = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)
)

// ParseDecomposition extracts the expected-action list from a
// decomposition response. Oracles are not consistent about formatting,
// so a fenced JSON array is tried first, then the first bare array in
// the text.
func ParseDecomposition(text string) ([]ExpectedAction, error) {
	var candidates []string
	if m := fencedJSONArrayPattern.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := bareJSONArrayPattern.FindString(text); m != "" {
		candidates = append(candidates, m)
	}

	for _, candidate := range candidates {
		var parsed []ExpectedAction
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}

		expected := make([]ExpectedAction, 0, len(parsed))
		for _, e := range parsed {
			if strings.TrimSpace(e.Description) == "" {
				continue
			}
			if e.ExpectedKind != "" && e.ExpectedKind != action.KindGenericClick &&
				!action.Kind(e.ExpectedKind).IsValid() {
				// Unknown kinds from the oracle degrade to unset rather
				// than poisoning the validator.
				e.ExpectedKind = ""
			}
			expected = append(expected, e)
		}
		if len(expected) > 0 {
			return expected, nil
		}
	}

	if len(candidates) == 0 {
		return nil, ErrInvalidDecomposition
	}
	return nil, ErrNoExpectations
}
