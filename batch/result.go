package batch

import (
	"time"

	"github.com/google/uuid"

	"github.com/hairizuan-noorazman/desktop-automation/agent"
)

// ScenarioExecutionResult is the per-scenario record within a batch.
type ScenarioExecutionResult struct {
	ScenarioID           uuid.UUID                    `json:"scenario_id"`
	Title                string                       `json:"title"`
	Status               agent.TestStatus             `json:"status"`
	Success              bool                         `json:"success"`
	Error                string                       `json:"error,omitempty"`
	CompletedActions     int                          `json:"completed_actions"`
	FailedAction         string                       `json:"failed_action,omitempty"`
	LastSuccessfulAction string                       `json:"last_successful_action,omitempty"`
	ActionHistory        []agent.ExecutedActionRecord `json:"action_history,omitempty"`
}

// BatchExecutionResult aggregates a batch run. TotalScenarios reflects
// the caller's original selection; Results holds only the scenarios that
// actually ran, in execution order. The two are intentionally different
// numbers when the batch stops early.
type BatchExecutionResult struct {
	TotalScenarios int                       `json:"total_scenarios"`
	Results        []ScenarioExecutionResult `json:"results"`
	SuccessCount   int                       `json:"success_count"`
	FailureCount   int                       `json:"failure_count"`
	ExecutedAt     time.Time                 `json:"executed_at"`
}
