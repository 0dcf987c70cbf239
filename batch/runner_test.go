package batch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/desktop-automation/agent"
	"github.com/hairizuan-noorazman/desktop-automation/hintimage"
	"github.com/hairizuan-noorazman/desktop-automation/logger"
	"github.com/hairizuan-noorazman/desktop-automation/scenario"
	"github.com/hairizuan-noorazman/desktop-automation/verdict"
	"github.com/hairizuan-noorazman/desktop-automation/webhook"
)

type fakeStore struct {
	mu        sync.Mutex
	scenarios map[uuid.UUID]*scenario.Scenario
	statuses  map[uuid.UUID][]scenario.Status
	getErr    error
}

func newFakeStore(scenarios ...*scenario.Scenario) *fakeStore {
	s := &fakeStore{
		scenarios: make(map[uuid.UUID]*scenario.Scenario),
		statuses:  make(map[uuid.UUID][]scenario.Status),
	}
	for _, sc := range scenarios {
		s.scenarios[sc.ID] = sc
	}
	return s
}

func (s *fakeStore) Create(ctx context.Context, sc *scenario.Scenario) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[sc.ID] = sc
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*scenario.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	sc, ok := s.scenarios[id]
	if !ok {
		return nil, scenario.ErrScenarioNotFound
	}
	return sc, nil
}

func (s *fakeStore) List(ctx context.Context, limit, offset int) ([]*scenario.Scenario, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*scenario.Scenario
	for _, sc := range s.scenarios {
		out = append(out, sc)
	}
	return out, nil
}

func (s *fakeStore) Update(ctx context.Context, id uuid.UUID, setters ...scenario.UpdateSetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scenarios[id]
	if !ok {
		return scenario.ErrScenarioNotFound
	}
	for _, set := range setters {
		if err := set(sc); err != nil {
			return err
		}
	}
	s.statuses[id] = append(s.statuses[id], sc.Status)
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scenarios, id)
	return nil
}

func (s *fakeStore) lastStatus(id uuid.UUID) scenario.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.statuses[id]
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1]
}

// scriptedRunner returns pre-seeded results per scenario and defaults to
// success. An optional release channel blocks every run until signalled.
type scriptedRunner struct {
	mu      sync.Mutex
	results map[uuid.UUID]*agent.TestResult
	ran     []uuid.UUID
	release chan struct{}
}

func (r *scriptedRunner) Run(ctx context.Context, sc *scenario.Scenario, hints []hintimage.HintImage, stop agent.StopSignal) *agent.TestResult {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	r.ran = append(r.ran, sc.ID)
	res := r.results[sc.ID]
	r.mu.Unlock()

	if res != nil {
		return res
	}
	return &agent.TestResult{Status: agent.TestSuccess}
}

func (r *scriptedRunner) ranIDs() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, len(r.ran))
	copy(out, r.ran)
	return out
}

func newScenario(title string) *scenario.Scenario {
	return &scenario.Scenario{ID: uuid.New(), Title: title, Description: "steps"}
}

func newTestRunner(store scenario.Store, sr ScenarioRunner, wh *webhook.Client) *Runner {
	if wh == nil {
		wh = webhook.NewClient("", logger.NewNopLogger())
	}
	return NewRunner(store, sr, nil, wh, NewFlagStop(), logger.NewNopLogger())
}

func TestRunner_AggregatesResultsInOrder(t *testing.T) {
	a, b, c := newScenario("a"), newScenario("b"), newScenario("c")
	store := newFakeStore(a, b, c)
	sr := &scriptedRunner{results: map[uuid.UUID]*agent.TestResult{
		b.ID: {
			Status:        agent.TestFailure,
			FailureReason: verdict.ReasonElementNotFound,
		},
	}}

	r := newTestRunner(store, sr, nil)
	result := r.Run(context.Background(), []uuid.UUID{a.ID, b.ID, c.ID}, Options{})

	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	require.Len(t, result.Results, 3)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, sr.ranIDs())

	assert.True(t, result.Results[0].Success)
	assert.False(t, result.Results[1].Success)
	assert.Equal(t, "element_not_found", result.Results[1].Error)

	assert.Equal(t, scenario.StatusCompleted, store.lastStatus(a.ID))
	assert.Equal(t, scenario.StatusFailed, store.lastStatus(b.ID))
	assert.Equal(t, scenario.StatusCompleted, store.lastStatus(c.ID))

	state := r.Notifier().State()
	assert.Equal(t, PhaseFinished, state.Phase)
	assert.Equal(t, 3, state.CompletedCount)
	assert.Nil(t, state.CurrentScenarioID)
}

func TestRunner_UnknownScenarioSkipped(t *testing.T) {
	known := newScenario("known")
	store := newFakeStore(known)
	sr := &scriptedRunner{}

	r := newTestRunner(store, sr, nil)
	result := r.Run(context.Background(), []uuid.UUID{uuid.New(), known.ID}, Options{})

	assert.Equal(t, 2, result.TotalScenarios, "the selection size is preserved")
	require.Len(t, result.Results, 1)
	assert.Equal(t, known.ID, result.Results[0].ScenarioID)
}

func TestRunner_StopOnFailureHaltsBatch(t *testing.T) {
	a, b := newScenario("a"), newScenario("b")
	store := newFakeStore(a, b)
	sr := &scriptedRunner{results: map[uuid.UUID]*agent.TestResult{
		a.ID: {Status: agent.TestFailure, FailureReason: verdict.ReasonMaxIterations},
	}}

	r := newTestRunner(store, sr, nil)
	result := r.Run(context.Background(), []uuid.UUID{a.ID, b.ID}, Options{StopOnFailure: true})

	assert.Equal(t, 2, result.TotalScenarios)
	require.Len(t, result.Results, 1)
	assert.Equal(t, []uuid.UUID{a.ID}, sr.ranIDs(), "second scenario never started")
}

func TestRunner_StoppedScenarioHaltsWithoutWebhook(t *testing.T) {
	var webhookCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		webhookCalls++
	}))
	defer srv.Close()

	a, b := newScenario("a"), newScenario("b")
	store := newFakeStore(a, b)
	sr := &scriptedRunner{results: map[uuid.UUID]*agent.TestResult{
		a.ID: {Status: agent.TestStopped, FailureReason: verdict.ReasonUserStopped},
	}}

	r := newTestRunner(store, sr, webhook.NewClient(srv.URL, logger.NewNopLogger()))
	result := r.Run(context.Background(), []uuid.UUID{a.ID, b.ID}, Options{})

	require.Len(t, result.Results, 1)
	assert.Equal(t, agent.TestStopped, result.Results[0].Status)
	assert.Equal(t, scenario.StatusStopped, store.lastStatus(a.ID))
	assert.Equal(t, 0, webhookCalls, "a user stop is not a failure")
	assert.Equal(t, []uuid.UUID{a.ID}, sr.ranIDs())
}

func TestRunner_StopRequestedBeforeStart(t *testing.T) {
	a := newScenario("a")
	store := newFakeStore(a)
	sr := &scriptedRunner{}
	stop := NewFlagStop()
	stop.RequestStop()

	r := NewRunner(store, sr, nil, webhook.NewClient("", logger.NewNopLogger()), stop, logger.NewNopLogger())
	result := r.Run(context.Background(), []uuid.UUID{a.ID}, Options{})

	assert.Empty(t, result.Results)
	assert.Equal(t, 1, result.TotalScenarios)
	assert.False(t, stop.IsStopRequested(), "the flag is cleared for the next batch")
}

// recordingStop implements StopSource outside FlagStop, so the runner's
// stop plumbing is exercised through the interface alone.
type recordingStop struct {
	requested bool
	cleared   bool
}

func (s *recordingStop) RequestStop()          { s.requested = true }
func (s *recordingStop) IsStopRequested() bool { return s.requested }
func (s *recordingStop) ClearStop()            { s.requested = false; s.cleared = true }

func TestRunner_RequestStopReachesStopSource(t *testing.T) {
	a := newScenario("a")
	store := newFakeStore(a)
	stop := &recordingStop{}

	r := NewRunner(store, &scriptedRunner{}, nil, webhook.NewClient("", logger.NewNopLogger()), stop, logger.NewNopLogger())
	r.RequestStop()
	assert.True(t, stop.requested)

	result := r.Run(context.Background(), []uuid.UUID{a.ID}, Options{})
	assert.Empty(t, result.Results)
	assert.True(t, stop.cleared, "the flag is cleared for the next batch")
}

func TestRunner_FailureWebhookPayload(t *testing.T) {
	var (
		mu      sync.Mutex
		payload webhook.FailurePayload
		calls   int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		mu.Lock()
		calls++
		require.NoError(t, json.Unmarshal(body, &payload))
		mu.Unlock()
	}))
	defer srv.Close()

	a := newScenario("Login flow")
	store := newFakeStore(a)
	sr := &scriptedRunner{results: map[uuid.UUID]*agent.TestResult{
		a.ID: {
			Status:         agent.TestFailure,
			FailureReason:  verdict.ReasonElementNotFound,
			FailureDetails: "save button missing",
			CompletedSteps: 2,
			ActionHistory: []agent.ExecutedActionRecord{
				{Index: 0, Description: "click login", Success: true},
				{Index: 1, Description: "click save", Success: false},
			},
		},
	}}

	r := newTestRunner(store, sr, webhook.NewClient(srv.URL, logger.NewNopLogger()))
	r.Run(context.Background(), []uuid.UUID{a.ID}, Options{})

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
	assert.Equal(t, "scenario_failed", payload.Event)
	assert.Equal(t, a.ID, payload.Scenario.ID)
	assert.Equal(t, "Login flow", payload.Scenario.Title)
	assert.Equal(t, "element_not_found: save button missing", payload.Error.Message)
	assert.Equal(t, "click save", payload.Error.FailedAtAction)
	assert.Equal(t, "click login", payload.Error.LastSuccessfulAction)
	assert.Equal(t, 2, payload.Error.CompletedActions)
}

func TestRunner_HintPreflightFailure(t *testing.T) {
	a := newScenario("with hints")
	a.HintImages = scenario.HintImageRefs{
		{Position: 0, FileName: "save.png", MIMEType: "image/png", Path: "hints/x/00_save.png"},
	}
	store := newFakeStore(a)
	sr := &scriptedRunner{}

	// No blob storage wired, so the hint references cannot be resolved.
	r := newTestRunner(store, sr, nil)
	result := r.Run(context.Background(), []uuid.UUID{a.ID}, Options{})

	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Success)
	assert.Contains(t, result.Results[0].Error, "no blob storage")
	assert.Equal(t, scenario.StatusFailed, store.lastStatus(a.ID))
	assert.Empty(t, sr.ranIDs(), "the agent loop never starts")
}

func TestRunner_StoreErrorRecordedAsFailure(t *testing.T) {
	a := newScenario("a")
	store := newFakeStore(a)
	store.getErr = errors.New("connection refused")
	sr := &scriptedRunner{}

	r := newTestRunner(store, sr, nil)
	result := r.Run(context.Background(), []uuid.UUID{a.ID}, Options{})

	require.Len(t, result.Results, 1)
	assert.Contains(t, result.Results[0].Error, "failed to load scenario")
	assert.Equal(t, 1, result.FailureCount)
}

func TestRunner_StartAsync(t *testing.T) {
	a := newScenario("a")
	store := newFakeStore(a)
	sr := &scriptedRunner{release: make(chan struct{})}

	r := newTestRunner(store, sr, nil)

	delivery, err := r.StartAsync(context.Background(), []uuid.UUID{a.ID}, Options{})
	require.NoError(t, err)
	assert.True(t, r.Running())

	_, err = r.StartAsync(context.Background(), []uuid.UUID{a.ID}, Options{})
	assert.ErrorIs(t, err, ErrBatchInProgress)

	close(sr.release)
	result, err := delivery.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)

	require.Eventually(t, func() bool { return !r.Running() }, time.Second, 5*time.Millisecond)

	// A fresh batch can start once the previous one finished.
	sr.release = nil
	delivery2, err := r.StartAsync(context.Background(), []uuid.UUID{a.ID}, Options{})
	require.NoError(t, err)
	_, err = delivery2.Await(context.Background())
	require.NoError(t, err)
}

func TestRunner_RequestStopWhileRunning(t *testing.T) {
	a, b := newScenario("a"), newScenario("b")
	store := newFakeStore(a, b)
	sr := &scriptedRunner{release: make(chan struct{}, 2)}
	stop := NewFlagStop()

	r := NewRunner(store, sr, nil, webhook.NewClient("", logger.NewNopLogger()), stop, logger.NewNopLogger())

	delivery, err := r.StartAsync(context.Background(), []uuid.UUID{a.ID, b.ID}, Options{})
	require.NoError(t, err)

	// Wait until the first scenario is in flight so the stop request
	// lands mid-batch rather than before it.
	require.Eventually(t, func() bool {
		return r.Notifier().State().CurrentTitle == "a"
	}, time.Second, 5*time.Millisecond)

	r.RequestStop()
	assert.Equal(t, PhaseStopping, r.Notifier().State().Phase)

	// Release the in-flight scenario; the second one must not start.
	sr.release <- struct{}{}
	sr.release <- struct{}{}

	result, err := delivery.Await(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, []uuid.UUID{a.ID}, sr.ranIDs())
	assert.Equal(t, PhaseFinished, r.Notifier().State().Phase)
}

func TestRunner_ContextCancellationStopsBatch(t *testing.T) {
	a, b := newScenario("a"), newScenario("b")
	store := newFakeStore(a, b)
	sr := &scriptedRunner{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(store, sr, nil)
	result := r.Run(ctx, []uuid.UUID{a.ID, b.ID}, Options{})

	assert.Empty(t, result.Results)
	assert.Equal(t, 2, result.TotalScenarios)
}

func TestStateNotifier_Transitions(t *testing.T) {
	a := newScenario("a")
	store := newFakeStore(a)
	sr := &scriptedRunner{}

	r := newTestRunner(store, sr, nil)

	var (
		mu     sync.Mutex
		phases []Phase
		titles []string
	)
	r.Notifier().Subscribe(func(s RunState) {
		mu.Lock()
		phases = append(phases, s.Phase)
		titles = append(titles, s.CurrentTitle)
		mu.Unlock()
	})

	assert.Equal(t, PhaseIdle, r.Notifier().State().Phase)
	r.Run(context.Background(), []uuid.UUID{a.ID}, Options{})

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, phases)
	assert.Equal(t, PhaseRunning, phases[0])
	assert.Equal(t, PhaseFinished, phases[len(phases)-1])
	assert.Contains(t, titles, "a", "the current title is published while running")
}

func TestResultDelivery(t *testing.T) {
	t.Run("late subscriber still receives", func(t *testing.T) {
		d := NewResultDelivery()
		d.Publish(&BatchExecutionResult{TotalScenarios: 2})

		result, err := d.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, result.TotalScenarios)
	})

	t.Run("first publish wins", func(t *testing.T) {
		d := NewResultDelivery()
		d.Publish(&BatchExecutionResult{TotalScenarios: 1})
		d.Publish(&BatchExecutionResult{TotalScenarios: 9})

		result, err := d.Await(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.TotalScenarios)
	})

	t.Run("await honours context", func(t *testing.T) {
		d := NewResultDelivery()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := d.Await(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("waiting subscriber released by publish", func(t *testing.T) {
		d := NewResultDelivery()
		done := make(chan *BatchExecutionResult, 1)
		go func() {
			result, _ := d.Await(context.Background())
			done <- result
		}()

		d.Publish(&BatchExecutionResult{TotalScenarios: 3})
		select {
		case result := <-done:
			assert.Equal(t, 3, result.TotalScenarios)
		case <-time.After(time.Second):
			t.Fatal("subscriber was not released")
		}
	})
}
