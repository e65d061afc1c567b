// Package serial presents a serial-port interface backed by a TCP socket,
// so framing code written against a physical serial line can run RTU over
// a network connection unmodified.
//
// The external contract is deliberately quiet: transport failures degrade
// to empty reads and no-op writes, reported through the injected
// [logger.Logger] rather than through return values. The single exception
// is [ErrFlushLimit], which FlushInput returns when a drain loop exceeds
// its iteration bound.
//
// A Port performs no internal locking. Sharing one Port across goroutines
// requires external synchronization; wrap the conflicting operations with
// a [guard.Guard].
package serial

import "sync/atomic"

// Port is the serial-line surface consumed by framing code.
type Port interface {
	// Open establishes the underlying connection, closing any previous one
	// first. Failure is logged, not returned; it is observable through
	// State and through subsequent empty reads.
	Open()
	// Close tears down the connection. Idempotent.
	Close()
	// Read returns up to n bytes received from the peer. Timeouts and
	// transport errors yield an empty result; an empty result means
	// "no data now", never end-of-stream.
	Read(n int) []byte
	// Write sends the full payload, looping on partial sends. Transport
	// errors are logged and swallowed.
	Write(p []byte)
	// FlushInput drains and discards buffered inbound data. It returns
	// ErrFlushLimit if the drain loop hits its iteration bound.
	FlushInput() error
	// FlushOutput is a no-op; output buffering is not modeled.
	FlushOutput()
	// IsOpen always reports false so that callers re-establish the
	// connection on every use cycle instead of trusting a cached flag.
	IsOpen() bool
	// Name identifies the port for logs, e.g. "host/port".
	Name() string
}

// ConnState represents the connection state of a TCP-backed port.
type ConnState int32

const (
	// ClosedState means no socket is present.
	ClosedState ConnState = iota
	// ConnectingState means a dial is in progress.
	ConnectingState
	// OpenState means the socket is connected.
	OpenState
	// DegradedState means a socket is present but a read, write, or drain
	// on it has failed. It is recoverable only through an explicit reopen,
	// which FlushInput triggers as its repair step.
	DegradedState
)

// String returns a human-readable representation of the state.
func (s ConnState) String() string {
	switch s {
	case ClosedState:
		return "closed"
	case ConnectingState:
		return "connecting"
	case OpenState:
		return "open"
	case DegradedState:
		return "degraded"
	default:
		return "unknown"
	}
}

// atomicConnState holds a ConnState with atomic access.
type atomicConnState struct {
	v atomic.Int32
}

func (s *atomicConnState) Get() ConnState   { return ConnState(s.v.Load()) }
func (s *atomicConnState) Set(st ConnState) { s.v.Store(int32(st)) }
