// Package worker provides a cooperative background-task lifecycle: a Worker
// runs an optional setup step once, then a main step repeatedly until
// stopped, then an optional teardown step exactly once.
//
// A Worker owns exactly one goroutine. Stopping is cooperative: Stop clears
// a run flag and joins the goroutine, so a main step that never returns
// blocks Stop indefinitely. Main steps must be bounded, e.g. by respecting
// the I/O timeout of the [serial.Port] they poll.
package worker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/modbustk/go-modbus/logger"
)

var (
	// ErrMainNil indicates that no main step was provided.
	ErrMainNil = errors.New("worker: main func is nil")

	// ErrAlreadyStarted indicates that Start was called while the worker
	// goroutine is still alive.
	ErrAlreadyStarted = errors.New("worker: already started")
)

// Func is one step of a worker's lifecycle. Returning an error from the
// init or main step terminates the worker's loop; the error is logged,
// never re-raised to the Start or Stop caller.
type Func func() error

// Worker runs a repeating main step on a dedicated goroutine until Stop
// is called or the step fails.
//
// Lifecycle: init runs once before the first main call; main repeats while
// the run flag is set; exit runs exactly once on every termination path,
// including termination caused by an init or main error. Panics in any
// step are recovered, logged, and treated as terminal errors.
type Worker struct {
	name   string
	init   Func
	main   Func
	exit   Func
	logger logger.Logger

	mu    sync.Mutex // serializes Start and Stop
	state atomicState
	run   chan struct{} // closed to request loop exit
	done  chan struct{} // closed when the goroutine has fully terminated
}

// Option configures a Worker.
type Option func(*Worker)

// WithInit sets the setup step, run once before the first main call.
func WithInit(fn Func) Option {
	return func(w *Worker) { w.init = fn }
}

// WithExit sets the teardown step, run exactly once when the loop ends.
func WithExit(fn Func) Option {
	return func(w *Worker) { w.exit = fn }
}

// WithLogger sets the logger used to report step failures.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// New creates a worker with the given name and main step.
// A nil main step is a programming error and is rejected immediately.
func New(name string, main Func, opts ...Option) (*Worker, error) {
	if main == nil {
		return nil, ErrMainNil
	}

	w := &Worker{
		name:   name,
		main:   main,
		logger: logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Name returns the worker's name.
func (w *Worker) Name() string { return w.name }

// State returns the worker's current lifecycle state.
func (w *Worker) State() State { return w.state.Get() }

// Running reports whether the worker goroutine is alive.
func (w *Worker) Running() bool {
	s := w.state.Get()

	return s == RunningState || s == StoppingState
}

// Start spawns the worker goroutine. It returns ErrAlreadyStarted if the
// goroutine is already alive. A stopped worker can be started again.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if s := w.state.Get(); s != IdleState && s != StoppedState {
		return ErrAlreadyStarted
	}

	w.run = make(chan struct{})
	w.done = make(chan struct{})
	w.state.Set(RunningState)

	go w.loop(w.run, w.done)

	return nil
}

// Stop requests loop exit and blocks until the worker goroutine has fully
// terminated, teardown included. Stopping a worker that is not alive is a
// no-op. After Stop returns, no further main calls occur and the exit step
// has already completed.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state.Get() != RunningState {
		return
	}

	w.state.Set(StoppingState)
	close(w.run)
	<-w.done
	w.state.Set(StoppedState)
}

func (w *Worker) loop(run <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer w.state.Set(StoppedState)

	defer func() {
		if w.exit == nil {
			return
		}
		if err := w.call(w.exit); err != nil {
			w.logger.Error("worker: exit step failed", "name", w.name, "error", err)
		}
	}()

	if w.init != nil {
		if err := w.call(w.init); err != nil {
			w.logger.Error("worker: init step failed", "name", w.name, "error", err)

			return
		}
	}

	for {
		select {
		case <-run:
			return
		default:
		}

		if err := w.call(w.main); err != nil {
			w.logger.Error("worker: main step failed, terminating loop",
				"name", w.name, "error", err)

			return
		}
	}
}

// call invokes one lifecycle step with panic protection. A recovered panic
// is converted into a terminal error.
func (w *Worker) call(fn Func) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker: panic in step: %v", r)
		}
	}()

	return fn()
}
