// Package guard provides a guarded-call primitive: a way to take any
// operation and produce a version whose invocations are fully serialized
// through a shared exclusive lock bound at wrap time.
//
// The intended use is protecting a resource that performs no internal
// locking, such as a [serial.Port] shared between a transmit path and a
// receive worker. All callers that must exclude each other share one
// Guard; calls through the same Guard never overlap.
//
// Guards are not reentrant. An operation that calls back into another
// operation wrapped over the same Guard deadlocks; this is an accepted
// constraint of the primitive, not a recoverable condition.
package guard

import "sync"

// Guard is an exclusive lock shared by a set of wrapped operations.
// The zero value is ready to use. A Guard must not be copied after first use.
type Guard struct {
	mu sync.Mutex
}

// Do runs fn while holding the guard. The guard is released on every exit
// path, including a panic inside fn, and the panic propagates to the caller.
func (g *Guard) Do(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fn()
}

// Wrap returns a serialized version of fn bound to g. If g is nil, the
// returned function owns a private guard created at wrap time, so all
// calls through that one returned function are still serialized.
func Wrap[R any](g *Guard, fn func() R) func() R {
	if g == nil {
		g = &Guard{}
	}

	return func() R {
		g.mu.Lock()
		defer g.mu.Unlock()

		return fn()
	}
}

// WrapErr is Wrap for operations that take an argument and can fail.
// The error from fn is returned unchanged after the guard is released.
func WrapErr[A, R any](g *Guard, fn func(A) (R, error)) func(A) (R, error) {
	if g == nil {
		g = &Guard{}
	}

	return func(arg A) (R, error) {
		g.mu.Lock()
		defer g.mu.Unlock()

		return fn(arg)
	}
}
