package worker

import "sync/atomic"

// State represents the lifecycle state of a Worker.
type State int32

const (
	// IdleState means the worker has been created but never started.
	IdleState State = iota
	// RunningState means the worker goroutine is executing its loop.
	RunningState
	// StoppingState means Stop was called and the worker is winding down.
	StoppingState
	// StoppedState means the worker goroutine has fully terminated,
	// either through Stop or through a terminal error in its loop.
	StoppedState
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case IdleState:
		return "idle"
	case RunningState:
		return "running"
	case StoppingState:
		return "stopping"
	case StoppedState:
		return "stopped"
	default:
		return "unknown"
	}
}

// atomicState holds a State with atomic access.
type atomicState struct {
	v atomic.Int32
}

func (s *atomicState) Get() State   { return State(s.v.Load()) }
func (s *atomicState) Set(st State) { s.v.Store(int32(st)) }
