package agent

import (
	"time"

	"github.com/hairizuan-noorazman/desktop-automation/action"
	"github.com/hairizuan-noorazman/desktop-automation/verdict"
)

// TestStatus is the terminal status of one scenario run.
type TestStatus string

const (
	TestSuccess TestStatus = "success"
	TestFailure TestStatus = "failure"
	TestError   TestStatus = "error"
	TestTimeout TestStatus = "timeout"
	TestStopped TestStatus = "stopped"
)

// IsValid checks if the status is valid.
func (s TestStatus) IsValid() bool {
	switch s {
	case TestSuccess, TestFailure, TestError, TestTimeout, TestStopped:
		return true
	}
	return false
}

// ExecutedActionRecord is one entry of the audit trail surfaced to batch
// results and webhook payloads.
type ExecutedActionRecord struct {
	Index       int         `json:"index"`
	ActionKind  action.Kind `json:"action_kind"`
	Description string      `json:"description"`
	Success     bool        `json:"success"`
	Timestamp   time.Time   `json:"timestamp"`
}

// TestResult is the terminal record of one scenario run, created exactly
// once at loop termination.
type TestResult struct {
	Status               TestStatus             `json:"status"`
	FailureReason        verdict.Reason         `json:"failure_reason,omitempty"`
	FailureDetails       string                 `json:"failure_details,omitempty"`
	CompletedSteps       int                    `json:"completed_steps"`
	CompletedActionIndex int                    `json:"completed_action_index"`
	TotalExpectedSteps   int                    `json:"total_expected_steps,omitempty"`
	LastAction           string                 `json:"last_action,omitempty"`
	ActionHistory        []ExecutedActionRecord `json:"action_history,omitempty"`
	StartedAt            time.Time              `json:"started_at"`
	CompletedAt          time.Time              `json:"completed_at"`
	DurationMs           int64                  `json:"duration_ms"`
}

// Succeeded reports whether the run ended in success.
func (r *TestResult) Succeeded() bool {
	return r.Status == TestSuccess
}

// LastSuccessfulAction returns the description of the most recent action
// that executed successfully, if any.
func (r *TestResult) LastSuccessfulAction() string {
	for i := len(r.ActionHistory) - 1; i >= 0; i-- {
		if r.ActionHistory[i].Success {
			return r.ActionHistory[i].Description
		}
	}
	return ""
}

// FailedAction returns the description of the action that failed, if any.
func (r *TestResult) FailedAction() string {
	for i := len(r.ActionHistory) - 1; i >= 0; i-- {
		if !r.ActionHistory[i].Success {
			return r.ActionHistory[i].Description
		}
	}
	return ""
}
