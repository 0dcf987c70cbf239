package verdict

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/hairizuan-noorazman/desktop-automation/expectation"
)

// Outcome is the structured verdict the oracle embeds in its turn-ending
// text.
type Outcome struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	FailureReason string `json:"failureReason,omitempty"`
}

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// Ordered fallback patterns for locating the verdict JSON. The oracle's
// formatting is not contractually guaranteed: fenced blocks, bare
// objects and surrounding prose all occur in practice.
var outcomePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```"),
	regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```"),
	regexp.MustCompile(`(?s)\{[^{}]*"status"[^{}]*\}`),
}

// ParseOutcome extracts a structured outcome from response text. The
// second return value is false when no parseable verdict is present.
func ParseOutcome(text string) (Outcome, bool) {
	for _, pattern := range outcomePatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		candidate := m[0]
		if len(m) > 1 {
			candidate = m[1]
		}

		var outcome Outcome
		if err := json.Unmarshal([]byte(candidate), &outcome); err != nil {
			continue
		}
		status := strings.ToLower(strings.TrimSpace(outcome.Status))
		if status != outcomeSuccess && status != outcomeFailure {
			continue
		}
		outcome.Status = status
		return outcome, true
	}
	return Outcome{}, false
}

// Judgment is the judge's decision for one oracle turn.
type Judgment struct {
	// Complete is true when the scenario terminates this turn.
	Complete bool

	// Success is the terminal outcome when Complete is true.
	Success bool

	// SuccessByProgress is true when the model reported failure but
	// objective expected-action progress overrode it.
	SuccessByProgress bool

	FailureReason Reason
	Message       string
}

// Judge reconciles the oracle's self-reported outcome against the
// observed expected-action progress. The model's self-report is treated
// as a fallible signal: confirmed progress outranks a claimed failure,
// and a claimed success with unmet expectations is not believed.
func Judge(text string, hasProposal bool, expected []expectation.ExpectedAction) Judgment {
	outcome, found := ParseOutcome(text)
	allDone := expectation.AllCompleted(expected)

	if found {
		switch outcome.Status {
		case outcomeFailure:
			if allDone {
				return Judgment{
					Complete:          true,
					Success:           true,
					SuccessByProgress: true,
					Message:           outcome.Message,
				}
			}
			reason := MapFreeText(outcome.FailureReason)
			if outcome.FailureReason == "" {
				reason = MapFreeText(outcome.Message)
			}
			return Judgment{
				Complete:      true,
				Success:       false,
				FailureReason: reason,
				Message:       outcome.Message,
			}

		case outcomeSuccess:
			if allDone {
				return Judgment{
					Complete: true,
					Success:  true,
					Message:  outcome.Message,
				}
			}
			if hasProposal {
				// The model declared victory early but is still acting;
				// keep looping and let the remaining expectations decide.
				return Judgment{}
			}
			return Judgment{
				Complete:      true,
				Success:       false,
				FailureReason: ReasonIncompleteActions,
				Message:       outcome.Message,
			}
		}
	}

	// No parseable verdict. A turn that still proposes actions simply
	// continues; a turn that proposes nothing has ended the run, so fall
	// back to observed progress.
	if hasProposal {
		return Judgment{}
	}
	if allDone {
		return Judgment{
			Complete:          true,
			Success:           true,
			SuccessByProgress: true,
		}
	}
	if len(expected) == 0 {
		return Judgment{
			Complete:      true,
			Success:       false,
			FailureReason: ReasonInvalidResultFormat,
		}
	}
	return Judgment{
		Complete:      true,
		Success:       false,
		FailureReason: ReasonIncompleteActions,
	}
}
