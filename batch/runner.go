package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hairizuan-noorazman/desktop-automation/agent"
	"github.com/hairizuan-noorazman/desktop-automation/hintimage"
	"github.com/hairizuan-noorazman/desktop-automation/logger"
	"github.com/hairizuan-noorazman/desktop-automation/scenario"
	"github.com/hairizuan-noorazman/desktop-automation/storage"
	"github.com/hairizuan-noorazman/desktop-automation/webhook"
)

// ScenarioRunner executes one scenario to a terminal result. The agent
// loop is the production implementation.
type ScenarioRunner interface {
	Run(ctx context.Context, sc *scenario.Scenario, hints []hintimage.HintImage, stop agent.StopSignal) *agent.TestResult
}

// Options configures one batch run.
type Options struct {
	// StopOnFailure halts the batch after the first failed scenario.
	StopOnFailure bool
}

// Runner sequences scenarios through the agent loop, one at a time.
// Scenarios never run concurrently: each needs exclusive control of the
// shared screen and input actuator.
type Runner struct {
	store    scenario.Store
	runner   ScenarioRunner
	blobs    storage.BlobStorage
	webhook  *webhook.Client
	stop     StopSource
	limits   hintimage.ValidationLimits
	notifier *StateNotifier
	logger   logger.Logger

	running atomic.Bool
}

// ErrBatchInProgress is returned when a batch start is attempted while
// another batch is still running.
var ErrBatchInProgress = errors.New("a batch is already running")

// NewRunner creates a batch runner.
func NewRunner(
	store scenario.Store,
	runner ScenarioRunner,
	blobs storage.BlobStorage,
	webhookClient *webhook.Client,
	stop StopSource,
	log logger.Logger,
) *Runner {
	return &Runner{
		store:    store,
		runner:   runner,
		blobs:    blobs,
		webhook:  webhookClient,
		stop:     stop,
		limits:   hintimage.DefaultValidationLimits(),
		notifier: NewStateNotifier(),
		logger:   log,
	}
}

// Notifier exposes the run-state subscription surface.
func (r *Runner) Notifier() *StateNotifier {
	return r.notifier
}

// StartAsync runs the batch in the background, rejecting overlap with a
// running batch. The returned delivery yields the result exactly once.
func (r *Runner) StartAsync(ctx context.Context, orderedIDs []uuid.UUID, opts Options) (*ResultDelivery, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrBatchInProgress
	}

	delivery := NewResultDelivery()
	go func() {
		defer r.running.Store(false)
		delivery.Publish(r.Run(ctx, orderedIDs, opts))
	}()
	return delivery, nil
}

// Running reports whether a batch started through StartAsync is still
// executing.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// RequestStop raises the stop flag and, when a batch is executing,
// marks its run state as stopping.
func (r *Runner) RequestStop() {
	if r.stop != nil {
		r.stop.RequestStop()
	}
	if r.running.Load() {
		r.notifier.update(func(s *RunState) {
			s.Phase = PhaseStopping
		})
	}
}

// Run executes the given ordered scenario IDs. Identifiers absent from
// the store are skipped. The returned aggregate preserves execution
// order and counts the caller's full selection in TotalScenarios even
// when execution stops early.
func (r *Runner) Run(ctx context.Context, orderedIDs []uuid.UUID, opts Options) *BatchExecutionResult {
	result := &BatchExecutionResult{
		TotalScenarios: len(orderedIDs),
		ExecutedAt:     time.Now(),
	}

	r.notifier.update(func(s *RunState) {
		*s = RunState{Phase: PhaseRunning, TotalCount: len(orderedIDs)}
	})

	defer func() {
		for _, res := range result.Results {
			if res.Success {
				result.SuccessCount++
			} else {
				result.FailureCount++
			}
		}
		r.notifier.update(func(s *RunState) {
			s.Phase = PhaseFinished
			s.CurrentScenarioID = nil
			s.CurrentTitle = ""
			s.CompletedCount = len(result.Results)
		})
		if r.stop != nil {
			r.stop.ClearStop()
		}
	}()

	for _, id := range orderedIDs {
		if ctx.Err() != nil || (r.stop != nil && r.stop.IsStopRequested()) {
			r.logger.Info(ctx, "batch cancelled, skipping remaining scenarios", map[string]interface{}{
				"executed": len(result.Results),
				"selected": len(orderedIDs),
			})
			break
		}

		sc, err := r.store.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, scenario.ErrScenarioNotFound) {
				r.logger.Warn(ctx, "skipping unknown scenario", map[string]interface{}{
					"scenario_id": id.String(),
				})
				continue
			}
			result.Results = append(result.Results, r.recordPreflightFailure(ctx, id, "", fmt.Sprintf("failed to load scenario: %v", err)))
			if opts.StopOnFailure {
				break
			}
			continue
		}

		r.notifier.update(func(s *RunState) {
			scID := sc.ID
			s.CurrentScenarioID = &scID
			s.CurrentTitle = sc.Title
		})

		res, halt := r.runScenario(ctx, sc)
		result.Results = append(result.Results, res)

		r.notifier.update(func(s *RunState) {
			s.CompletedCount = len(result.Results)
		})

		if halt {
			break
		}
		if !res.Success && opts.StopOnFailure {
			r.logger.Info(ctx, "stopping batch on failure", map[string]interface{}{
				"scenario_id": sc.ID.String(),
			})
			break
		}
	}

	return result
}

// runScenario preflights and executes one scenario. halt is true when
// the batch must not start any further scenario.
func (r *Runner) runScenario(ctx context.Context, sc *scenario.Scenario) (ScenarioExecutionResult, bool) {
	if err := r.store.Update(ctx, sc.ID, scenario.SetStatus(scenario.StatusRunning)); err != nil {
		r.logger.Warn(ctx, "failed to mark scenario running", map[string]interface{}{
			"error":       err.Error(),
			"scenario_id": sc.ID.String(),
		})
	}

	hints, err := r.loadHints(ctx, sc)
	if err != nil {
		res := r.recordPreflightFailure(ctx, sc.ID, sc.Title, err.Error())
		r.setFinalStatus(ctx, sc.ID, scenario.StatusFailed)
		return res, false
	}

	testResult := r.runner.Run(ctx, sc, hints, r.stop)

	res := ScenarioExecutionResult{
		ScenarioID:           sc.ID,
		Title:                sc.Title,
		Status:               testResult.Status,
		Success:              testResult.Succeeded(),
		CompletedActions:     testResult.CompletedSteps,
		FailedAction:         testResult.FailedAction(),
		LastSuccessfulAction: testResult.LastSuccessfulAction(),
		ActionHistory:        testResult.ActionHistory,
	}
	if !testResult.Succeeded() {
		res.Error = string(testResult.FailureReason)
		if testResult.FailureDetails != "" {
			res.Error = fmt.Sprintf("%s: %s", testResult.FailureReason, testResult.FailureDetails)
		}
	}

	switch testResult.Status {
	case agent.TestSuccess:
		r.setFinalStatus(ctx, sc.ID, scenario.StatusCompleted)
	case agent.TestStopped:
		r.setFinalStatus(ctx, sc.ID, scenario.StatusStopped)
	default:
		r.setFinalStatus(ctx, sc.ID, scenario.StatusFailed)
	}

	// A user-initiated stop is not a failure; it never fires the
	// webhook, and it halts the batch before the next scenario.
	if testResult.Status == agent.TestStopped {
		return res, true
	}
	if !testResult.Succeeded() {
		r.notifyFailure(ctx, sc, res)
	}
	return res, false
}

// loadHints fetches and preflight-validates a scenario's hint images
// against the oracle API constraints.
func (r *Runner) loadHints(ctx context.Context, sc *scenario.Scenario) ([]hintimage.HintImage, error) {
	if len(sc.HintImages) == 0 {
		return nil, nil
	}
	if r.blobs == nil {
		return nil, errors.New("hint images configured but no blob storage available")
	}

	hints := make([]hintimage.HintImage, 0, len(sc.HintImages))
	for _, ref := range sc.HintImages {
		reader, err := r.blobs.Download(ctx, ref.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load hint image %s: %w", ref.FileName, err)
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read hint image %s: %w", ref.FileName, err)
		}
		hints = append(hints, hintimage.HintImage{
			Index:    ref.Position,
			FileName: ref.FileName,
			MIMEType: ref.MIMEType,
			Data:     data,
		})
	}

	if err := hintimage.ValidateSet(hints, r.limits); err != nil {
		return nil, fmt.Errorf("hint image validation failed: %w", err)
	}
	return hints, nil
}

func (r *Runner) recordPreflightFailure(ctx context.Context, id uuid.UUID, title, message string) ScenarioExecutionResult {
	r.logger.Error(ctx, "scenario preflight failed", map[string]interface{}{
		"scenario_id": id.String(),
		"error":       message,
	})

	res := ScenarioExecutionResult{
		ScenarioID: id,
		Title:      title,
		Status:     agent.TestFailure,
		Error:      message,
	}
	r.notifyFailure(ctx, &scenario.Scenario{ID: id, Title: title}, res)
	return res
}

func (r *Runner) notifyFailure(ctx context.Context, sc *scenario.Scenario, res ScenarioExecutionResult) {
	if !r.webhook.Enabled() {
		return
	}

	payload := webhook.FailurePayload{
		Event:     "scenario_failed",
		Timestamp: time.Now(),
	}
	payload.Scenario.ID = sc.ID
	payload.Scenario.Title = sc.Title
	payload.Error.Message = res.Error
	payload.Error.FailedAtAction = res.FailedAction
	payload.Error.LastSuccessfulAction = res.LastSuccessfulAction
	payload.Error.CompletedActions = res.CompletedActions

	if err := r.webhook.NotifyFailure(ctx, payload); err != nil {
		r.logger.Warn(ctx, "failure webhook not delivered", map[string]interface{}{
			"error":       err.Error(),
			"scenario_id": sc.ID.String(),
		})
	}
}

func (r *Runner) setFinalStatus(ctx context.Context, id uuid.UUID, status scenario.Status) {
	if err := r.store.Update(ctx, id, scenario.SetStatus(status)); err != nil {
		r.logger.Warn(ctx, "failed to update scenario status", map[string]interface{}{
			"error":       err.Error(),
			"scenario_id": id.String(),
			"status":      string(status),
		})
	}
}
