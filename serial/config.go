package serial

import (
	"errors"
	"fmt"
	"time"

	"github.com/modbustk/go-modbus/logger"
)

// Defaults for the simulated line. They describe the line to callers doing
// timing calculations; only Timeout is enforced by the port itself.
const (
	DefaultBaudRate         = 9600
	DefaultInterCharTimeout = 0
	DefaultTimeout          = 1 * time.Second
)

// Option is a functional option for configuring a TCPPort.
type Option interface {
	apply(*TCPPort) error
}

type optFunc func(*TCPPort) error

func (f optFunc) apply(p *TCPPort) error { return f(p) }

// WithTimeout sets the overall socket I/O timeout.
func WithTimeout(d time.Duration) Option {
	return optFunc(func(p *TCPPort) error {
		if d <= 0 {
			return errors.New("serial: timeout must be positive")
		}
		p.Timeout = d

		return nil
	})
}

// WithBaudRate sets the nominal transmission rate of the simulated line.
func WithBaudRate(baud int) Option {
	return optFunc(func(p *TCPPort) error {
		if baud <= 0 {
			return fmt.Errorf("serial: invalid baud rate %d", baud)
		}
		p.BaudRate = baud

		return nil
	})
}

// WithInterCharTimeout sets the stored inter-character timeout. The port
// stores it for the caller's timing calculations and does not enforce it.
func WithInterCharTimeout(d time.Duration) Option {
	return optFunc(func(p *TCPPort) error {
		if d < 0 {
			return errors.New("serial: inter-character timeout must not be negative")
		}
		p.InterCharTimeout = d

		return nil
	})
}

// WithLogger sets the logger for the port.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(p *TCPPort) error {
		if l == nil {
			return errors.New("serial: logger must not be nil")
		}
		p.logger = l

		return nil
	})
}
