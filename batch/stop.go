package batch

import "sync/atomic"

// StopSource is the externally-polled stop channel. The runner checks it
// before starting each scenario and hands it to the agent loop, which
// checks it before every turn and every action.
type StopSource interface {
	RequestStop()
	IsStopRequested() bool
	ClearStop()
}

// FlagStop is an in-process StopSource backed by an atomic flag. An
// out-of-band emergency stop notification sets the same flag.
type FlagStop struct {
	requested atomic.Bool
}

// NewFlagStop creates a cleared stop flag.
func NewFlagStop() *FlagStop {
	return &FlagStop{}
}

// RequestStop raises the stop flag.
func (f *FlagStop) RequestStop() {
	f.requested.Store(true)
}

// IsStopRequested reports whether a stop has been requested.
func (f *FlagStop) IsStopRequested() bool {
	return f.requested.Load()
}

// ClearStop lowers the stop flag so the next batch can run.
func (f *FlagStop) ClearStop() {
	f.requested.Store(false)
}
