package logger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/phsym/console-slog"
)

// ErrUnknownSink is returned by New when the sink name is not recognized.
var ErrUnknownSink = errors.New("logger: unknown sink name")

// DefaultUDPAddr is the destination for the "udp" sink.
const DefaultUDPAddr = "127.0.0.1:1975"

// New creates a Logger writing to the named sink.
//
// Recognized names:
//   - "console": human-readable output on stdout.
//   - "json":    JSON records on stdout.
//   - "udp":     JSON records sent as UDP datagrams to DefaultUDPAddr,
//     for collection by an external log listener.
//   - "discard": drops all records.
//
// An unrecognized name is a programming error and returns ErrUnknownSink
// immediately.
func New(name string, level Level) (Logger, error) {
	inst := &SlogLogger{}
	inst.level = &slog.LevelVar{}
	inst.level.Set(toSlogLevel(level))

	switch name {
	case "console":
		inst.output = os.Stdout
		inst.logger = slog.New(console.NewHandler(inst.output, &console.HandlerOptions{
			Level: inst.level,
		}))

	case "json":
		inst.output = os.Stdout
		inst.logger = slog.New(newJSONHandler(inst.output, inst.level, false))

	case "udp":
		conn, err := net.Dial("udp", DefaultUDPAddr)
		if err != nil {
			return nil, fmt.Errorf("logger: dial udp sink: %w", err)
		}
		inst.output = &udpWriter{conn: conn}
		inst.logger = slog.New(newJSONHandler(inst.output, inst.level, false))

	case "discard":
		inst.output = io.Discard
		inst.logger = slog.New(newJSONHandler(inst.output, inst.level, false))

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSink, name)
	}

	return inst, nil
}

// udpWriter sends each write as one datagram. Send failures are dropped;
// a log sink must never fail the caller.
type udpWriter struct {
	conn net.Conn
}

func (w *udpWriter) Write(p []byte) (int, error) {
	_, _ = w.conn.Write(p)

	return len(p), nil
}
