package verdict

import "strings"

// Reason is the canonical classification of why a scenario did not
// succeed. Free-text reasons from the oracle are mapped onto this closed
// set so downstream consumers never have to string-match model output.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonElementNotFound      Reason = "element_not_found"
	ReasonActionNoEffect       Reason = "action_no_effect"
	ReasonUnexpectedState      Reason = "unexpected_state"
	ReasonIncompleteActions    Reason = "incomplete_actions"
	ReasonInvalidResultFormat  Reason = "invalid_result_format"
	ReasonExtractionFailed     Reason = "extraction_failed"
	ReasonActionMismatch       Reason = "action_mismatch"
	ReasonStuckInLoop          Reason = "stuck_in_loop"
	ReasonVerificationFailed   Reason = "verification_failed"
	ReasonAPIError             Reason = "api_error"
	ReasonMaxIterations        Reason = "max_iterations"
	ReasonAborted              Reason = "aborted"
	ReasonUserStopped          Reason = "user_stopped"
	ReasonActionExecutionError Reason = "action_execution_error"
	ReasonUnknown              Reason = "unknown"
)

// IsValid checks if the reason is one of the canonical values.
func (r Reason) IsValid() bool {
	switch r {
	case ReasonNone, ReasonElementNotFound, ReasonActionNoEffect,
		ReasonUnexpectedState, ReasonIncompleteActions, ReasonInvalidResultFormat,
		ReasonExtractionFailed, ReasonActionMismatch, ReasonStuckInLoop,
		ReasonVerificationFailed, ReasonAPIError, ReasonMaxIterations,
		ReasonAborted, ReasonUserStopped, ReasonActionExecutionError, ReasonUnknown:
		return true
	}
	return false
}

// IsCancellation reports whether the reason is a user- or
// system-initiated stop rather than a genuine failure. Cancellations are
// never surfaced through the failure webhook.
func (r Reason) IsCancellation() bool {
	return r == ReasonAborted || r == ReasonUserStopped
}

// MapFreeText maps a free-text failure reason from the oracle to the
// canonical enum. Oracles report in whatever language the scenario was
// written in, so Japanese phrasings are matched alongside English.
func MapFreeText(text string) Reason {
	if Reason(text).IsValid() && text != "" {
		return Reason(text)
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "not found") || strings.Contains(text, "見つからない") ||
		strings.Contains(text, "見つかりません"):
		return ReasonElementNotFound
	case strings.Contains(lower, "no effect") || strings.Contains(text, "効果なし") ||
		strings.Contains(text, "効果がない"):
		return ReasonActionNoEffect
	case strings.Contains(lower, "unexpected") || strings.Contains(text, "予期しない") ||
		strings.Contains(text, "想定外"):
		return ReasonUnexpectedState
	default:
		return ReasonUnknown
	}
}
