package batch

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Phase is the coarse progress phase of a batch run.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseRunning  Phase = "running"
	PhaseStopping Phase = "stopping"
	PhaseFinished Phase = "finished"
)

// RunState is a snapshot of batch progress a caller may subscribe to.
type RunState struct {
	Phase             Phase      `json:"phase"`
	CurrentScenarioID *uuid.UUID `json:"current_scenario_id,omitempty"`
	CurrentTitle      string     `json:"current_title,omitempty"`
	CompletedCount    int        `json:"completed_count"`
	TotalCount        int        `json:"total_count"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// StateNotifier holds the runner's mutable run state and fans snapshots
// out to subscribers. Updates are synchronous, emitted after every
// state transition.
type StateNotifier struct {
	mu    sync.RWMutex
	state RunState
	subs  []func(RunState)
}

// NewStateNotifier creates a notifier in the idle phase.
func NewStateNotifier() *StateNotifier {
	return &StateNotifier{
		state: RunState{Phase: PhaseIdle},
	}
}

// Subscribe registers a callback invoked on every state transition.
func (n *StateNotifier) Subscribe(fn func(RunState)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, fn)
}

// State returns the latest snapshot.
func (n *StateNotifier) State() RunState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

func (n *StateNotifier) update(mutate func(*RunState)) {
	n.mu.Lock()
	mutate(&n.state)
	n.state.UpdatedAt = time.Now()
	state := n.state
	subs := make([]func(RunState), len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}
