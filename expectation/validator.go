package expectation

import (
	"strings"

	"github.com/hairizuan-noorazman/desktop-automation/action"
)

// Confidence classifies how well a proposed action matches the current
// expectation.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Verdict is the validator's decision for one proposed action.
type Verdict struct {
	Confidence Confidence

	// ShouldAdvance is true when the current expectation is confirmed
	// and the expectation index may move forward.
	ShouldAdvance bool

	// RequiresScreenChange reports whether a screen change is needed to
	// confirm this action. On a match it reflects the expected action's
	// progressiveness; on a mismatch or low-confidence result it
	// reflects the actual action's, which is what the mismatch
	// accumulator counts.
	RequiresScreenChange bool

	Reason string
}

// ValidateAction matches a proposed action against the expectation at
// index. contextText is whatever text the oracle emitted in the same
// turn; screenChanged is the detector's verdict on the screenshot taken
// after executing the action.
//
// A fundamental kind mismatch always wins over keyword overlap. The
// oracle tends to narrate the step it is working towards, so its text
// matches the expectation's keywords even when the action it actually
// proposed (a screenshot, a wait) cannot possibly complete that step.
func ValidateAction(actual action.Action, expected []ExpectedAction, index int, contextText string, screenChanged bool) Verdict {
	if index < 0 || index >= len(expected) {
		return Verdict{
			Confidence:           ConfidenceLow,
			RequiresScreenChange: actual.Kind.IsProgressive(),
			Reason:               "no expectation at current index",
		}
	}
	exp := expected[index]

	if reason, mismatched := kindMismatch(exp, actual); mismatched {
		return Verdict{
			Confidence:           ConfidenceLow,
			ShouldAdvance:        false,
			RequiresScreenChange: actual.Kind.IsProgressive(),
			Reason:               reason,
		}
	}

	keywordHits := countKeywordHits(exp.Keywords, contextText, actual)
	targetHit := hasTargetHit(exp.TargetElements, contextText)
	exactKind, looseKind := kindMatch(exp.ExpectedKind, actual.Kind)

	expProgressive := !exp.IsNonProgressive()

	switch {
	case isHighConfidence(exp, actual, keywordHits, targetHit, exactKind):
		if !expProgressive {
			return Verdict{
				Confidence:           ConfidenceHigh,
				ShouldAdvance:        true,
				RequiresScreenChange: false,
				Reason:               "matched non-progressive expectation",
			}
		}
		if screenChanged {
			return Verdict{
				Confidence:           ConfidenceHigh,
				ShouldAdvance:        true,
				RequiresScreenChange: true,
				Reason:               "matched with screen change",
			}
		}
		// A left or triple click can land without a detectable change
		// (focus ring, text selection). Stay confident but let the loop
		// try once more before advancing.
		return Verdict{
			Confidence:           ConfidenceHigh,
			ShouldAdvance:        false,
			RequiresScreenChange: true,
			Reason:               "matched but screen unchanged",
		}

	case keywordHits >= 1 || targetHit || exactKind || looseKind:
		return Verdict{
			Confidence:           ConfidenceMedium,
			ShouldAdvance:        false,
			RequiresScreenChange: expProgressive,
			Reason:               "weak match",
		}

	default:
		return Verdict{
			Confidence:           ConfidenceLow,
			ShouldAdvance:        false,
			RequiresScreenChange: actual.Kind.IsProgressive(),
			Reason:               "no match signals",
		}
	}
}

// kindMismatch detects a fundamental divergence between the expected and
// actual action kinds. Identical kinds never mismatch.
func kindMismatch(exp ExpectedAction, actual action.Action) (string, bool) {
	if exp.ExpectedKind == "" {
		return "", false
	}
	if exp.ExpectedKind == string(actual.Kind) {
		return "", false
	}

	// Expected type/key only ever matches itself.
	if exp.ExpectedKind == string(action.KindType) || exp.ExpectedKind == string(action.KindKey) {
		return "expected " + exp.ExpectedKind + ", got " + string(actual.Kind), true
	}

	expProgressive := true
	if exp.ExpectedKind != action.KindGenericClick {
		expProgressive = action.Kind(exp.ExpectedKind).IsProgressive()
	}

	if expProgressive && !actual.Kind.IsProgressive() {
		return "expected progressive " + exp.ExpectedKind + ", got non-progressive " + string(actual.Kind), true
	}
	if !expProgressive && actual.Kind.IsProgressive() {
		return "expected non-progressive " + exp.ExpectedKind + ", got progressive " + string(actual.Kind), true
	}
	return "", false
}

// kindMatch classifies how the actual kind relates to the expected one.
// exact requires a literal non-generic kind match; loose covers the
// generic click wildcard and sibling click variants.
func kindMatch(expectedKind string, actual action.Kind) (exact, loose bool) {
	if expectedKind == "" {
		return false, false
	}
	if expectedKind == action.KindGenericClick {
		return false, actual.IsClick()
	}
	if expectedKind == string(actual) {
		return true, false
	}
	if action.Kind(expectedKind).IsClick() && actual.IsClick() {
		return false, true
	}
	return false, false
}

func isHighConfidence(exp ExpectedAction, actual action.Action, keywordHits int, targetHit, exactKind bool) bool {
	if keywordHits >= 2 {
		return true
	}
	if exactKind && keywordHits >= 1 {
		return true
	}
	if exactKind && targetHit {
		return true
	}
	// Non-progressive, type and key actions carry their intent in the
	// kind itself; an exact match alone is enough.
	if exactKind && (!actual.Kind.IsProgressive() ||
		actual.Kind == action.KindType || actual.Kind == action.KindKey) {
		return true
	}
	return false
}

func countKeywordHits(keywords []string, contextText string, actual action.Action) int {
	haystack := strings.ToLower(contextText + " " + actual.Text + " " + actual.Key)
	hits := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, kw) {
			hits++
		}
	}
	return hits
}

func hasTargetHit(targets []string, contextText string) bool {
	haystack := strings.ToLower(contextText)
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}
