package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hairizuan-noorazman/desktop-automation/action"
	"github.com/hairizuan-noorazman/desktop-automation/actuator"
	"github.com/hairizuan-noorazman/desktop-automation/expectation"
	"github.com/hairizuan-noorazman/desktop-automation/hintimage"
	"github.com/hairizuan-noorazman/desktop-automation/oracle"
)

// ScriptedOracle replays pre-scripted turns instead of calling a model.
// Turns are consumed in order; running out of script is an error so a
// runaway loop fails fast in tests.
type ScriptedOracle struct {
	mu sync.Mutex

	Expectations  []expectation.ExpectedAction
	DecomposeErr  error
	Turns         []*oracle.Turn
	ProposeErr    error
	VerifyVisible bool
	VerifyErr     error
	StepComplete  bool
	CheckErr      error

	ProposeCalls int
	VerifyCalls  int
	CheckCalls   int
}

func (o *ScriptedOracle) DecomposeScenario(ctx context.Context, description string) ([]expectation.ExpectedAction, error) {
	if o.DecomposeErr != nil {
		return nil, o.DecomposeErr
	}
	return o.Expectations, nil
}

func (o *ScriptedOracle) Propose(ctx context.Context, history []oracle.Message) (*oracle.Turn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ProposeErr != nil {
		return nil, o.ProposeErr
	}
	if o.ProposeCalls >= len(o.Turns) {
		return nil, fmt.Errorf("scripted oracle exhausted after %d turns", len(o.Turns))
	}
	turn := o.Turns[o.ProposeCalls]
	o.ProposeCalls++
	return turn, nil
}

func (o *ScriptedOracle) VerifyTextVisible(ctx context.Context, screenshot []byte, mediaType, text string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.VerifyCalls++
	return o.VerifyVisible, o.VerifyErr
}

func (o *ScriptedOracle) CheckStepCompletion(ctx context.Context, screenshot []byte, mediaType, stepDescription string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.CheckCalls++
	return o.StepComplete, o.CheckErr
}

// ProposalTurn builds a turn proposing a single action.
func ProposalTurn(text string, a action.Action) *oracle.Turn {
	return &oracle.Turn{
		Text: text,
		Proposals: []oracle.ActionProposal{
			{ID: fmt.Sprintf("toolu_%s", a.Kind), Action: a},
		},
		Content: []oracle.ContentBlock{oracle.TextBlock(text)},
	}
}

// VerdictTurn builds a proposal-free turn carrying only verdict text.
func VerdictTurn(text string) *oracle.Turn {
	return &oracle.Turn{
		Text:    text,
		Content: []oracle.ContentBlock{oracle.TextBlock(text)},
	}
}

// FakeActuator records input calls and serves screenshots from a queue.
// When the queue runs dry the last screenshot repeats, which models an
// unchanging screen.
type FakeActuator struct {
	mu sync.Mutex

	Screenshots []*actuator.Screenshot
	CaptureErr  error
	InputErr    error

	Calls    []string
	captures int
}

// NewFakeActuator creates an actuator serving the given screenshots.
func NewFakeActuator(shots ...*actuator.Screenshot) *FakeActuator {
	return &FakeActuator{Screenshots: shots}
}

// Screenshot builds a capture whose change-detection identity is the
// given marker byte pattern.
func Screenshot(marker string) *actuator.Screenshot {
	return &actuator.Screenshot{
		Image:              []byte(marker),
		MediaType:          "image/png",
		OriginalWidth:      1920,
		OriginalHeight:     1080,
		ResizedWidth:       1280,
		ResizedHeight:      720,
		ScaleFactor:        1.5,
		DisplayScaleFactor: 1,
	}
}

func (f *FakeActuator) Capture(ctx context.Context) (*actuator.Screenshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	if len(f.Screenshots) == 0 {
		return nil, errors.New("fake actuator has no screenshots")
	}
	idx := f.captures
	if idx >= len(f.Screenshots) {
		idx = len(f.Screenshots) - 1
	}
	f.captures++
	f.Calls = append(f.Calls, "capture")
	return f.Screenshots[idx], nil
}

func (f *FakeActuator) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
	return f.InputErr
}

func (f *FakeActuator) Click(ctx context.Context, x, y int, kind action.Kind) error {
	return f.record(fmt.Sprintf("click:%s:%d,%d", kind, x, y))
}

func (f *FakeActuator) Drag(ctx context.Context, x1, y1, x2, y2 int) error {
	return f.record(fmt.Sprintf("drag:%d,%d->%d,%d", x1, y1, x2, y2))
}

func (f *FakeActuator) MouseMove(ctx context.Context, x, y int) error {
	return f.record(fmt.Sprintf("move:%d,%d", x, y))
}

func (f *FakeActuator) MouseButton(ctx context.Context, x, y int, down bool) error {
	return f.record(fmt.Sprintf("button:%d,%d:%t", x, y, down))
}

func (f *FakeActuator) Type(ctx context.Context, text string) error {
	return f.record("type:" + text)
}

func (f *FakeActuator) Key(ctx context.Context, text string) error {
	return f.record("key:" + text)
}

func (f *FakeActuator) Scroll(ctx context.Context, x, y int, direction action.ScrollDirection, amount int) error {
	return f.record(fmt.Sprintf("scroll:%s:%d", direction, amount))
}

func (f *FakeActuator) Wait(ctx context.Context, ms int) (bool, error) {
	return true, f.record(fmt.Sprintf("wait:%d", ms))
}

func (f *FakeActuator) HoldKey(ctx context.Context, name string, down bool) error {
	return f.record(fmt.Sprintf("hold:%s:%t", name, down))
}

// InputCalls returns the recorded calls excluding screenshot captures.
func (f *FakeActuator) InputCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var calls []string
	for _, c := range f.Calls {
		if c != "capture" {
			calls = append(calls, c)
		}
	}
	return calls
}

// FakeMatcher returns fixed results for every match call.
type FakeMatcher struct {
	Results []hintimage.MatchResult
	Err     error
	Calls   int
}

func (m *FakeMatcher) Match(ctx context.Context, screenshot []byte, templates []hintimage.HintImage, scaleFactor, threshold float64) ([]hintimage.MatchResult, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}
