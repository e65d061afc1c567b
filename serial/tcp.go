package serial

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/modbustk/go-modbus/internal/util"
	"github.com/modbustk/go-modbus/logger"
)

const (
	// maxDrainIters bounds the FlushInput drain loop so a socket that
	// always reports pending data cannot spin forever.
	maxDrainIters = 3

	// drainPollTimeout is the per-iteration read deadline used while
	// draining. It approximates a non-blocking poll.
	drainPollTimeout = 5 * time.Millisecond

	// drainBufSize is the number of bytes discarded per drain iteration.
	drainBufSize = 1024
)

// ErrFlushLimit is returned by FlushInput when the drain loop still finds
// pending data after maxDrainIters iterations. It distinguishes a
// genuinely stuck socket from a normal drain.
var ErrFlushLimit = errors.New("serial: flush input: iteration limit reached")

// errNotConnected marks operations attempted without a usable socket.
var errNotConnected = errors.New("serial: port not connected")

// TCPPort implements Port over a TCP socket.
//
// BaudRate, InterCharTimeout, and Timeout describe the simulated line.
// Callers consult BaudRate and InterCharTimeout for frame timing (see
// [rtu.InterCharDelay]); the port itself enforces only Timeout, as the
// socket I/O deadline.
type TCPPort struct {
	// BaudRate is the nominal transmission rate of the simulated line.
	BaudRate int
	// InterCharTimeout is the stored inter-character timeout. Not enforced.
	InterCharTimeout time.Duration
	// Timeout is the socket I/O timeout applied to dial and read.
	Timeout time.Duration

	host   string
	port   int
	logger logger.Logger

	conn  net.Conn
	state atomicConnState
}

var _ Port = (*TCPPort)(nil)

// NewTCPPort creates a serial-over-TCP port for the given peer.
// An out-of-range port number is a programming error and is rejected
// immediately.
func NewTCPPort(host string, port int, opts ...Option) (*TCPPort, error) {
	if port < 0 || port > 65535 {
		return nil, fmt.Errorf("serial: port %d out of range [0, 65535]", port)
	}

	p := &TCPPort{
		BaudRate:         DefaultBaudRate,
		InterCharTimeout: DefaultInterCharTimeout,
		Timeout:          DefaultTimeout,
		host:             host,
		port:             port,
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Name returns "host/port", identifying the peer in logs.
func (p *TCPPort) Name() string {
	return fmt.Sprintf("%s/%d", p.host, p.port)
}

// State returns the port's current connection state.
func (p *TCPPort) State() ConnState {
	return p.state.Get()
}

// Open dials the peer, closing any existing socket first. Dial failure is
// logged as a warning and leaves the port without a usable socket; it does
// not raise. Callers observe failure through State, logs, and subsequent
// empty reads.
func (p *TCPPort) Open() {
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}

	p.state.Set(ConnectingState)

	conn, err := net.DialTimeout("tcp", p.addr(), p.Timeout)
	if err != nil {
		p.logger.Warn("serial: failed to open socket", "addr", p.addr(), "error", err)
		p.state.Set(ClosedState)

		return
	}

	p.conn = conn
	p.state.Set(OpenState)
	p.logger.Info("serial: socket opened", "addr", p.addr())
}

// Close closes and discards the socket if present. Idempotent.
func (p *TCPPort) Close() {
	if p.conn == nil {
		return
	}

	if err := p.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		p.logger.Error("serial: failed to close socket", "addr", p.addr(), "error", err)
	}

	p.conn = nil
	p.state.Set(ClosedState)
}

// Read returns up to n bytes received from the peer. A timeout or any
// socket-level failure degrades to an empty result; an empty result means
// "no data now", never end-of-stream.
func (p *TCPPort) Read(n int) []byte {
	switch res := p.read(n); res.kind {
	case ioOK:
		p.logger.Debug(util.FormatBytes("serial: rx", res.data))

		return res.data

	case ioEmpty:
		p.logger.Debug("serial: read timed out", "addr", p.addr())

		return nil

	default: // ioFailed
		p.logger.Warn("serial: failed to read from socket", "addr", p.addr(), "error", res.err)

		return nil
	}
}

// Write sends the full payload, looping on partial sends until the socket
// layer accepts every byte. On failure it logs a warning recording how
// many bytes were already sent and returns; the caller sees no error.
func (p *TCPPort) Write(data []byte) {
	sent, err := p.writeAll(data)
	if err != nil {
		p.logger.Warn("serial: failed to write to socket",
			"addr", p.addr(), "sent", sent, "total", len(data), "error", err)

		return
	}

	p.logger.Debug(util.FormatBytes("serial: tx", data))
}

// FlushInput drains and discards currently buffered inbound data, bounded
// to maxDrainIters iterations. Hitting the bound returns ErrFlushLimit.
// A socket failure during the drain triggers the port's only self-healing
// path: a best-effort repair reopen.
func (p *TCPPort) FlushInput() error {
	err := p.drain()
	if err == nil {
		return nil
	}

	p.logger.Error("serial: failed to flush input, reopening socket",
		"addr", p.addr(), "error", err)
	p.repair()

	if errors.Is(err, ErrFlushLimit) {
		return err
	}

	return nil
}

// FlushOutput is a no-op; output buffering is not modeled.
func (p *TCPPort) FlushOutput() {}

// IsOpen always reports false. Callers that check it before use are forced
// to call Open on every use cycle, re-establishing the connection state
// instead of trusting a cached flag.
func (p *TCPPort) IsOpen() bool {
	return false
}

func (p *TCPPort) addr() string {
	return net.JoinHostPort(p.host, fmt.Sprintf("%d", p.port))
}

// --- Internal I/O ---
//
// Transport failures are represented internally as tagged results so that
// the exported methods form a single boundary translating them into the
// quiet external contract (empty read, no-op write) plus a log entry.

type ioKind int

const (
	ioOK     ioKind = iota // data transferred
	ioEmpty                // deadline expired, no data
	ioFailed               // transport failure, see err
)

type ioResult struct {
	kind ioKind
	data []byte
	err  error
}

func (p *TCPPort) read(n int) ioResult {
	if p.conn == nil {
		return ioResult{kind: ioFailed, err: errNotConnected}
	}

	if err := p.conn.SetReadDeadline(time.Now().Add(p.Timeout)); err != nil {
		return p.fail(err)
	}

	buf := make([]byte, n)

	got, err := p.conn.Read(buf)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return ioResult{kind: ioEmpty}
		}

		return p.fail(err)
	}

	return ioResult{kind: ioOK, data: buf[:got]}
}

// writeAll loops on partial sends until data is fully accepted, returning
// the number of bytes actually sent and the first error encountered.
func (p *TCPPort) writeAll(data []byte) (int, error) {
	if p.conn == nil {
		return 0, errNotConnected
	}

	for sent := 0; sent < len(data); {
		n, err := p.conn.Write(data[sent:])
		sent += n

		if err != nil {
			p.state.Set(DegradedState)

			return sent, err
		}
	}

	return len(data), nil
}

// drain discards pending inbound data, one bounded poll per iteration.
// It returns nil once the line is quiet, ErrFlushLimit when data is still
// pending after maxDrainIters iterations, or the socket error that
// interrupted the drain.
func (p *TCPPort) drain() error {
	if p.conn == nil {
		return errNotConnected
	}

	buf := make([]byte, drainBufSize)

	for i := 0; i < maxDrainIters; i++ {
		if err := p.conn.SetReadDeadline(time.Now().Add(drainPollTimeout)); err != nil {
			return err
		}

		_, err := p.conn.Read(buf)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return nil // no data pending, drain complete
			}

			p.state.Set(DegradedState)

			return err
		}
	}

	return ErrFlushLimit
}

// repair is the best-effort reconnection step triggered only from the
// flush path, never hidden inside read or write.
func (p *TCPPort) repair() {
	p.Open()
}

// fail records a transport failure. The socket is still present, so the
// port enters the degraded state; only an explicit reopen recovers it.
func (p *TCPPort) fail(err error) ioResult {
	p.state.Set(DegradedState)

	return ioResult{kind: ioFailed, err: err}
}
