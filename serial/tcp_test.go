package serial

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/modbustk/go-modbus/logger"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()

	l, err := logger.New("discard", logger.DebugLevel)
	require.NoError(t, err)

	return l
}

// startListener returns a loopback listener, its port, and a channel of
// accepted connections. The listener keeps accepting so repair reopens
// succeed.
func startListener(t *testing.T) (net.Listener, int, <-chan net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	conns := make(chan net.Conn, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns <- conn
		}
	}()

	return ln, ln.Addr().(*net.TCPAddr).Port, conns
}

// unusedPort grabs a free loopback port and releases it, so dialing it
// almost certainly fails.
func unusedPort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	return port
}

func TestNewTCPPort_Defaults(t *testing.T) {
	p, err := NewTCPPort("127.0.0.1", 502)
	require.NoError(t, err)

	assert.Equal(t, DefaultBaudRate, p.BaudRate)
	assert.Equal(t, time.Duration(DefaultInterCharTimeout), p.InterCharTimeout)
	assert.Equal(t, DefaultTimeout, p.Timeout)
	assert.Equal(t, "127.0.0.1/502", p.Name())
	assert.Equal(t, ClosedState, p.State())
}

func TestNewTCPPort_Options(t *testing.T) {
	p, err := NewTCPPort("127.0.0.1", 502,
		WithBaudRate(19200),
		WithInterCharTimeout(2*time.Millisecond),
		WithTimeout(250*time.Millisecond),
		WithLogger(testLogger(t)),
	)
	require.NoError(t, err)

	assert.Equal(t, 19200, p.BaudRate)
	assert.Equal(t, 2*time.Millisecond, p.InterCharTimeout)
	assert.Equal(t, 250*time.Millisecond, p.Timeout)
}

func TestNewTCPPort_Invalid(t *testing.T) {
	_, err := NewTCPPort("127.0.0.1", -1)
	assert.ErrorContains(t, err, "out of range")

	_, err = NewTCPPort("127.0.0.1", 70000)
	assert.ErrorContains(t, err, "out of range")

	_, err = NewTCPPort("127.0.0.1", 502, WithTimeout(0))
	assert.ErrorContains(t, err, "timeout")

	_, err = NewTCPPort("127.0.0.1", 502, WithBaudRate(0))
	assert.ErrorContains(t, err, "baud")

	_, err = NewTCPPort("127.0.0.1", 502, WithInterCharTimeout(-time.Second))
	assert.ErrorContains(t, err, "inter-character")

	_, err = NewTCPPort("127.0.0.1", 502, WithLogger(nil))
	assert.ErrorContains(t, err, "logger")
}

func TestTCPPort_IsOpenAlwaysFalse(t *testing.T) {
	_, port, _ := startListener(t)

	p, err := NewTCPPort("127.0.0.1", port, WithLogger(testLogger(t)))
	require.NoError(t, err)

	assert.False(t, p.IsOpen())

	p.Open()
	defer p.Close()

	// The socket really is connected, yet IsOpen still reports false so
	// callers re-open on every use cycle.
	require.Equal(t, OpenState, p.State())
	assert.False(t, p.IsOpen())
}

func TestTCPPort_OpenUnreachable_QuietFailure(t *testing.T) {
	mockLog := logger.NewMockLogger()
	mockLog.On("Debug", mock.Anything, mock.Anything).Return()
	mockLog.On("Info", mock.Anything, mock.Anything).Return()
	mockLog.On("Warn", mock.Anything, mock.Anything).Return()
	mockLog.On("Error", mock.Anything, mock.Anything).Return()

	p, err := NewTCPPort("127.0.0.1", unusedPort(t),
		WithTimeout(200*time.Millisecond),
		WithLogger(mockLog),
	)
	require.NoError(t, err)

	// Open logs a warning and leaves the port without a usable socket.
	p.Open()
	assert.Equal(t, ClosedState, p.State())

	// Read degrades to an empty result.
	assert.Empty(t, p.Read(16))

	// Write is a logged no-op.
	p.Write([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01})

	mockLog.AssertCalled(t, "Warn", mock.Anything, mock.Anything)
}

func TestTCPPort_WriteRead_Echo(t *testing.T) {
	_, port, conns := startListener(t)

	go func() {
		conn := <-conns
		defer conn.Close()
		_, _ = io.Copy(conn, conn)
	}()

	p, err := NewTCPPort("127.0.0.1", port, WithLogger(testLogger(t)))
	require.NoError(t, err)

	p.Open()
	defer p.Close()
	require.Equal(t, OpenState, p.State())

	payload := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0A}
	p.Write(payload)

	got := make([]byte, 0, len(payload))
	require.Eventually(t, func() bool {
		got = append(got, p.Read(64)...)

		return len(got) >= len(payload)
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, payload, got)
}

func TestTCPPort_ReadTimeoutIsEmptyNotError(t *testing.T) {
	_, port, _ := startListener(t)

	p, err := NewTCPPort("127.0.0.1", port,
		WithTimeout(50*time.Millisecond),
		WithLogger(testLogger(t)),
	)
	require.NoError(t, err)

	p.Open()
	defer p.Close()

	start := time.Now()
	data := p.Read(16)

	assert.Empty(t, data)
	assert.Less(t, time.Since(start), time.Second)
	// A timeout is "no data now", not a transport failure.
	assert.Equal(t, OpenState, p.State())
}

func TestTCPPort_CloseIdempotent(t *testing.T) {
	_, port, _ := startListener(t)

	p, err := NewTCPPort("127.0.0.1", port, WithLogger(testLogger(t)))
	require.NoError(t, err)

	p.Close() // never opened

	p.Open()
	p.Close()
	p.Close()

	assert.Equal(t, ClosedState, p.State())
}

func TestTCPPort_OpenClosesPreviousSocket(t *testing.T) {
	_, port, conns := startListener(t)

	p, err := NewTCPPort("127.0.0.1", port, WithLogger(testLogger(t)))
	require.NoError(t, err)

	p.Open()
	first := <-conns

	p.Open()
	defer p.Close()
	<-conns

	// The first server-side socket observes the client's close.
	_ = first.SetReadDeadline(time.Now().Add(time.Second))
	_, err = first.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
}

func TestTCPPort_FlushInput_CleanDrain(t *testing.T) {
	_, port, conns := startListener(t)

	p, err := NewTCPPort("127.0.0.1", port, WithLogger(testLogger(t)))
	require.NoError(t, err)

	p.Open()
	defer p.Close()
	require.Equal(t, OpenState, p.State())

	// Nothing pending: first poll times out, drain is complete.
	require.NoError(t, p.FlushInput())

	// A small amount of pending data is discarded within the bound.
	conn := <-conns
	_, err = conn.Write(make([]byte, 100))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, p.FlushInput())

	// The pending bytes are gone; the next read times out empty.
	p.Timeout = 50 * time.Millisecond
	assert.Empty(t, p.Read(16))
}

func TestTCPPort_FlushInput_IterationLimit(t *testing.T) {
	_, port, conns := startListener(t)

	p, err := NewTCPPort("127.0.0.1", port, WithLogger(testLogger(t)))
	require.NoError(t, err)

	p.Open()
	defer p.Close()

	// Flood far more than the drain loop can discard in its 3 iterations.
	conn := <-conns
	_, err = conn.Write(make([]byte, 16*1024))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	assert.ErrorIs(t, p.FlushInput(), ErrFlushLimit)
}

func TestTCPPort_FlushInput_RepairReconnects(t *testing.T) {
	_, port, conns := startListener(t)

	p, err := NewTCPPort("127.0.0.1", port, WithLogger(testLogger(t)))
	require.NoError(t, err)

	p.Open()
	defer p.Close()

	// Peer drops the connection; the next drain hits EOF and the flush
	// path repairs with a fresh open.
	conn := <-conns
	require.NoError(t, conn.Close())
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, p.FlushInput())
	assert.Equal(t, OpenState, p.State())
}

func TestTCPPort_FlushOutput_NoOp(t *testing.T) {
	p, err := NewTCPPort("127.0.0.1", 502, WithLogger(testLogger(t)))
	require.NoError(t, err)

	p.FlushOutput() // nothing to observe, must simply not fail
}

func TestConnState_String(t *testing.T) {
	assert.Equal(t, "closed", ClosedState.String())
	assert.Equal(t, "connecting", ConnectingState.String())
	assert.Equal(t, "open", OpenState.String())
	assert.Equal(t, "degraded", DegradedState.String())
	assert.Equal(t, "unknown", ConnState(42).String())
}
