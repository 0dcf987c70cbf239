package agent

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hairizuan-noorazman/desktop-automation/action"
	"github.com/hairizuan-noorazman/desktop-automation/actuator"
	"github.com/hairizuan-noorazman/desktop-automation/detect"
	"github.com/hairizuan-noorazman/desktop-automation/expectation"
	"github.com/hairizuan-noorazman/desktop-automation/hintimage"
	"github.com/hairizuan-noorazman/desktop-automation/logger"
	"github.com/hairizuan-noorazman/desktop-automation/oracle"
	"github.com/hairizuan-noorazman/desktop-automation/scenario"
	"github.com/hairizuan-noorazman/desktop-automation/storage"
	"github.com/hairizuan-noorazman/desktop-automation/verdict"
)

// Loop is the per-scenario agent loop. It drives the oracle and the
// actuator turn by turn until the scenario succeeds, fails, times out or
// is stopped, and produces exactly one TestResult.
type Loop struct {
	config    Config
	oracle    oracle.Oracle
	actuator  actuator.Actuator
	matcher   hintimage.Matcher
	artifacts storage.BlobStorage
	logger    logger.Logger
}

// NewLoop creates a new agent loop.
func NewLoop(config Config, o oracle.Oracle, act actuator.Actuator, matcher hintimage.Matcher, log logger.Logger) *Loop {
	return &Loop{
		config:   config.normalize(),
		oracle:   o,
		actuator: act,
		matcher:  matcher,
		logger:   log,
	}
}

// SetArtifactStorage enables best-effort upload of per-action
// screenshots to blob storage.
func (l *Loop) SetArtifactStorage(s storage.BlobStorage) {
	l.artifacts = s
}

// runState is the mutable context of one scenario run. It is owned
// exclusively by the Run call that created it and discarded at scenario
// completion.
type runState struct {
	scenarioID uuid.UUID

	expected []expectation.ExpectedAction
	index    int

	history []oracle.Message

	screen *detect.ScreenDetector
	loop   *detect.LoopDetector
	stuck  *detect.StuckDetector

	lastShot *actuator.Screenshot

	mediumCount   int
	mismatchCount int

	hints       []hintimage.HintImage
	hintResults hintimage.ResultSet

	records    []ExecutedActionRecord
	lastAction string
	seq        int

	startedAt time.Time
}

// Run executes one scenario to a terminal result. Nothing escapes as an
// error: every fault is folded into the TestResult.
func (l *Loop) Run(ctx context.Context, sc *scenario.Scenario, hints []hintimage.HintImage, stop StopSignal) *TestResult {
	state := &runState{
		scenarioID:  sc.ID,
		screen:      detect.NewScreenDetector(l.config.Screen),
		loop:        detect.NewLoopDetector(l.config.Loop),
		stuck:       detect.NewStuckDetector(l.config.Stuck),
		hints:       hints,
		hintResults: make(hintimage.ResultSet),
		startedAt:   time.Now(),
	}

	log := l.logger.WithField("scenario_id", sc.ID.String())
	log.Info(ctx, "starting scenario run", map[string]interface{}{
		"title": sc.Title,
	})

	result := l.run(ctx, log, sc, state, stop)

	result.CompletedSteps = expectation.CompletedCount(state.expected)
	result.CompletedActionIndex = state.index
	result.TotalExpectedSteps = len(state.expected)
	result.LastAction = state.lastAction
	result.ActionHistory = state.records
	result.StartedAt = state.startedAt
	result.CompletedAt = time.Now()
	result.DurationMs = result.CompletedAt.Sub(state.startedAt).Milliseconds()

	log.Info(ctx, "scenario run finished", map[string]interface{}{
		"status":          string(result.Status),
		"failure_reason":  string(result.FailureReason),
		"completed_steps": result.CompletedSteps,
		"duration_ms":     result.DurationMs,
	})
	return result
}

func (l *Loop) run(ctx context.Context, log logger.Logger, sc *scenario.Scenario, state *runState, stop StopSignal) *TestResult {
	// Decomposition failure is a scenario failure, not a system fault:
	// a description the oracle cannot break into steps cannot be judged.
	expected, err := l.oracle.DecomposeScenario(ctx, sc.Description)
	if err != nil {
		if ctx.Err() != nil {
			return &TestResult{Status: TestStopped, FailureReason: verdict.ReasonAborted}
		}
		return &TestResult{
			Status:         TestFailure,
			FailureReason:  verdict.ReasonExtractionFailed,
			FailureDetails: err.Error(),
		}
	}
	state.expected = expected

	if terminal := l.checkStop(ctx, stop); terminal != nil {
		return terminal
	}

	shot, err := l.actuator.Capture(ctx)
	if err != nil {
		return &TestResult{
			Status:         TestFailure,
			FailureReason:  verdict.ReasonActionExecutionError,
			FailureDetails: fmt.Sprintf("initial capture failed: %v", err),
		}
	}
	state.lastShot = shot
	state.stuck.SeedScreen(state.screen.Hash(shot.Image))

	l.matchHints(ctx, log, state, true)
	state.history = append(state.history, l.initialMessage(sc, state))

	for turn := 0; turn < l.config.MaxTurns; turn++ {
		if terminal := l.checkStop(ctx, stop); terminal != nil {
			return terminal
		}
		if expectation.AllCompleted(state.expected) {
			return &TestResult{Status: TestSuccess}
		}

		oracleTurn, err := l.oracle.Propose(ctx, state.history)
		if err != nil {
			if ctx.Err() != nil {
				return &TestResult{Status: TestStopped, FailureReason: verdict.ReasonAborted}
			}
			return &TestResult{
				Status:         TestError,
				FailureReason:  verdict.ReasonAPIError,
				FailureDetails: err.Error(),
			}
		}
		state.history = append(state.history, oracle.Message{
			Role:    oracle.RoleAssistant,
			Content: oracleTurn.Content,
		})

		if !oracleTurn.HasProposal() {
			judgment := verdict.Judge(oracleTurn.Text, false, state.expected)
			if judgment.Complete {
				return resultFromJudgment(judgment)
			}
			continue
		}

		if terminal := l.executeTurn(ctx, log, state, stop, oracleTurn); terminal != nil {
			return terminal
		}

		state.history = trimHistory(state.history, l.config.HistoryTrimThreshold, l.config.HistoryImageRetention)
	}

	return &TestResult{
		Status:        TestTimeout,
		FailureReason: verdict.ReasonMaxIterations,
	}
}

// executeTurn runs every action proposal of one oracle turn. A non-nil
// return is the terminal result of the scenario.
func (l *Loop) executeTurn(ctx context.Context, log logger.Logger, state *runState, stop StopSignal, turn *oracle.Turn) *TestResult {
	var pending []oracle.ContentBlock

	for _, proposal := range turn.Proposals {
		if terminal := l.checkStop(ctx, stop); terminal != nil {
			return terminal
		}

		a := proposal.Action
		state.lastAction = a.Describe()

		if state.loop.WouldLoop(a) {
			return &TestResult{
				Status:         TestFailure,
				FailureReason:  verdict.ReasonStuckInLoop,
				FailureDetails: fmt.Sprintf("action repeated beyond loop threshold: %s", a.Describe()),
			}
		}

		if err := actuator.Perform(ctx, l.actuator, a, state.lastShot); err != nil {
			state.records = append(state.records, ExecutedActionRecord{
				Index:       len(state.records),
				ActionKind:  a.Kind,
				Description: a.Describe(),
				Success:     false,
				Timestamp:   time.Now(),
			})
			reason := verdict.MapFreeText(err.Error())
			if reason == verdict.ReasonUnknown {
				reason = verdict.ReasonActionExecutionError
			}
			return &TestResult{
				Status:         TestFailure,
				FailureReason:  reason,
				FailureDetails: err.Error(),
			}
		}

		state.loop.Record(a, uuid.New())
		state.records = append(state.records, ExecutedActionRecord{
			Index:       len(state.records),
			ActionKind:  a.Kind,
			Description: a.Describe(),
			Success:     true,
			Timestamp:   time.Now(),
		})

		if l.config.PostClickDelay > 0 && (a.Kind.IsClick() || a.Kind == action.KindLeftClickDrag) {
			if !sleepCtx(ctx, l.config.PostClickDelay) {
				return &TestResult{Status: TestStopped, FailureReason: verdict.ReasonAborted}
			}
		}

		prevImage := state.lastShot.Image
		shot, err := l.actuator.Capture(ctx)
		if err != nil {
			return &TestResult{
				Status:         TestFailure,
				FailureReason:  verdict.ReasonActionExecutionError,
				FailureDetails: fmt.Sprintf("capture failed: %v", err),
			}
		}
		state.lastShot = shot
		l.uploadArtifact(ctx, log, state, shot)

		change := state.screen.Compare(prevImage, shot.Image)
		screenChanged := change.Significant

		l.matchHints(ctx, log, state, screenChanged)

		v := expectation.ValidateAction(a, state.expected, state.index, turn.Text, screenChanged)
		log.Debug(ctx, "action validated", map[string]interface{}{
			"action":         a.Describe(),
			"confidence":     string(v.Confidence),
			"should_advance": v.ShouldAdvance,
			"screen_changed": screenChanged,
			"reason":         v.Reason,
		})

		if v.ShouldAdvance {
			if terminal := l.advance(ctx, state); terminal != nil {
				return terminal
			}
		} else {
			switch v.Confidence {
			case expectation.ConfidenceMedium:
				state.mediumCount++
				if !screenChanged {
					state.mismatchCount++
				}
				if state.mediumCount >= l.config.MediumConfidenceThreshold {
					if terminal := l.recheckCompletion(ctx, log, state); terminal != nil {
						return terminal
					}
				}
			case expectation.ConfidenceLow:
				state.mismatchCount++
			}

			// Safety valve against a confidently-wrong oracle silently
			// looping: too many unconfirmed turns fail the scenario.
			if state.mismatchCount >= l.config.MismatchFailureThreshold {
				return &TestResult{
					Status:         TestFailure,
					FailureReason:  verdict.ReasonActionMismatch,
					FailureDetails: fmt.Sprintf("%d actions without confirmed progress on step %d", state.mismatchCount, state.index),
				}
			}
		}

		if reason := state.stuck.Observe(a, state.screen.Hash(shot.Image)); reason != detect.StuckNone {
			return &TestResult{
				Status:         TestFailure,
				FailureReason:  stuckReason(reason),
				FailureDetails: fmt.Sprintf("stuck after %s", a.Describe()),
			}
		}

		pending = append(pending, oracle.ContentBlock{
			Type:      "tool_result",
			ToolUseID: proposal.ID,
			Content: []oracle.ContentBlock{
				oracle.TextBlock("action executed: " + a.Describe()),
				oracle.ImageBlock(mediaType(shot), base64.StdEncoding.EncodeToString(shot.Image)),
			},
		})
	}

	if summary := state.hintResults.CoordinateSummary(); summary != "" {
		pending = append(pending, oracle.TextBlock(summary))
	}
	state.history = append(state.history, oracle.Message{
		Role:    oracle.RoleUser,
		Content: pending,
	})
	return nil
}

// advance confirms the current expectation, first resolving any
// verification-text requirement. A non-nil return is terminal.
func (l *Loop) advance(ctx context.Context, state *runState) *TestResult {
	exp := &state.expected[state.index]

	if exp.VerificationText != "" {
		visible, err := l.verifyText(ctx, state, exp.VerificationText)
		if err != nil {
			if ctx.Err() != nil {
				return &TestResult{Status: TestStopped, FailureReason: verdict.ReasonAborted}
			}
			return &TestResult{
				Status:         TestError,
				FailureReason:  verdict.ReasonAPIError,
				FailureDetails: err.Error(),
			}
		}
		if !visible {
			return &TestResult{
				Status:         TestFailure,
				FailureReason:  verdict.ReasonVerificationFailed,
				FailureDetails: fmt.Sprintf("expected text not visible: %q", exp.VerificationText),
			}
		}
	}

	exp.Completed = true
	state.index++
	state.mediumCount = 0
	state.mismatchCount = 0
	return nil
}

// verifyText checks the verification text against the screen, retrying
// a fixed number of times with a fixed delay and a fresh screenshot each
// attempt.
func (l *Loop) verifyText(ctx context.Context, state *runState, text string) (bool, error) {
	for attempt := 0; attempt <= l.config.VerificationRetries; attempt++ {
		if attempt > 0 {
			if !sleepCtx(ctx, l.config.VerificationRetryDelay) {
				return false, ctx.Err()
			}
			shot, err := l.actuator.Capture(ctx)
			if err != nil {
				return false, err
			}
			state.lastShot = shot
		}

		visible, err := l.oracle.VerifyTextVisible(ctx, state.lastShot.Image, mediaType(state.lastShot), text)
		if err != nil {
			return false, err
		}
		if visible {
			return true, nil
		}
	}
	return false, nil
}

// recheckCompletion asks the oracle directly whether the current step
// completed, after repeated medium-confidence turns. Check failures are
// logged and ignored; this path only ever unblocks progress.
func (l *Loop) recheckCompletion(ctx context.Context, log logger.Logger, state *runState) *TestResult {
	if state.index >= len(state.expected) {
		return nil
	}
	exp := state.expected[state.index]

	done, err := l.oracle.CheckStepCompletion(ctx, state.lastShot.Image, mediaType(state.lastShot), exp.Description)
	if err != nil {
		if ctx.Err() != nil {
			return &TestResult{Status: TestStopped, FailureReason: verdict.ReasonAborted}
		}
		log.Warn(ctx, "step completion recheck failed", map[string]interface{}{
			"error": err.Error(),
			"step":  state.index,
		})
		state.mediumCount = 0
		return nil
	}
	if done {
		return l.advance(ctx, state)
	}
	state.mediumCount = 0
	return nil
}

// matchHints re-matches the hint images the policy selects and stores
// the results keyed by original position.
func (l *Loop) matchHints(ctx context.Context, log logger.Logger, state *runState, screenChanged bool) {
	if l.matcher == nil || len(state.hints) == 0 {
		return
	}

	selected := hintimage.SelectForRematch(state.hints, state.hintResults, screenChanged)
	if len(selected) == 0 {
		return
	}

	results, err := l.matcher.Match(ctx, state.lastShot.Image, selected, state.lastShot.ScaleFactor, l.config.HintMatchThreshold)
	if err != nil {
		log.Warn(ctx, "hint image matching failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	state.hintResults.Store(results)
}

// initialMessage builds the first user turn: instructions, the current
// screenshot, and the hint images with any detected coordinates. Hint
// images are sent only this once.
func (l *Loop) initialMessage(sc *scenario.Scenario, state *runState) oracle.Message {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Execute this UI test scenario.\n\nTitle: %s\n\nInstructions:\n%s\n", sc.Title, sc.Description)

	content := []oracle.ContentBlock{
		oracle.TextBlock(b.String()),
		oracle.ImageBlock(mediaType(state.lastShot), base64.StdEncoding.EncodeToString(state.lastShot.Image)),
	}

	for _, hint := range state.hints {
		content = append(content,
			oracle.TextBlock(fmt.Sprintf("Hint image %d (%s):", hint.Index+1, hint.FileName)),
			oracle.ImageBlock(hint.MIMEType, base64.StdEncoding.EncodeToString(hint.Data)),
		)
	}
	if summary := state.hintResults.CoordinateSummary(); summary != "" {
		content = append(content, oracle.TextBlock(summary))
	}

	return oracle.Message{Role: oracle.RoleUser, Content: content}
}

func (l *Loop) uploadArtifact(ctx context.Context, log logger.Logger, state *runState, shot *actuator.Screenshot) {
	if l.artifacts == nil {
		return
	}
	state.seq++
	path := storage.ScreenshotKey(state.scenarioID.String(), state.seq)
	if err := l.artifacts.Upload(ctx, path, bytes.NewReader(shot.Image)); err != nil {
		log.Warn(ctx, "failed to upload screenshot artifact", map[string]interface{}{
			"error": err.Error(),
			"path":  path,
		})
	}
}

// checkStop is the cooperative cancellation point: both the context and
// the externally-polled stop flag are checked.
func (l *Loop) checkStop(ctx context.Context, stop StopSignal) *TestResult {
	if ctx.Err() != nil {
		return &TestResult{Status: TestStopped, FailureReason: verdict.ReasonAborted}
	}
	if stop != nil && stop.IsStopRequested() {
		return &TestResult{Status: TestStopped, FailureReason: verdict.ReasonUserStopped}
	}
	return nil
}

func resultFromJudgment(j verdict.Judgment) *TestResult {
	if j.Success {
		return &TestResult{Status: TestSuccess, FailureDetails: j.Message}
	}
	return &TestResult{
		Status:         TestFailure,
		FailureReason:  j.FailureReason,
		FailureDetails: j.Message,
	}
}

func stuckReason(r detect.StuckReason) verdict.Reason {
	if r == detect.StuckActionNoEffect {
		return verdict.ReasonActionNoEffect
	}
	return verdict.ReasonStuckInLoop
}

func mediaType(shot *actuator.Screenshot) string {
	if shot.MediaType != "" {
		return shot.MediaType
	}
	return "image/png"
}

// sleepCtx sleeps for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
