// Package logger defines the leveled, structured logging handle injected
// into every go-modbus component.
//
// Components never log through process-global state; they receive a Logger
// at construction and report transport or worker failures through it. The
// Logger interface is deliberately small so applications can adapt their
// own logging framework, and a slog-backed implementation is provided.
package logger

// Level indicates the logging severity level.
type Level = int8

const (
	// DebugLevel logs are voluminous and usually disabled in production.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs flag potential issues, e.g. a failed socket read that
	// degraded to an empty result.
	WarnLevel
	// ErrorLevel logs are high-priority failures that require attention.
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel
)

// Logger is the common logging interface used throughout go-modbus.
type Logger interface {
	// Debug logs a message at DebugLevel with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)
	// Info logs a message at InfoLevel with optional key-value pairs.
	Info(msg string, keysAndValues ...any)
	// Warn logs a message at WarnLevel with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)
	// Error logs a message at ErrorLevel with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
	// Fatal logs a message at FatalLevel, then calls os.Exit(1), even if
	// logging at FatalLevel is disabled.
	Fatal(msg string, keysAndValues ...any)
	// With creates a child logger with additional structured context.
	// Key-values added to the child don't affect the parent, and vice versa.
	With(keysAndValues ...any) Logger
	// Level returns the minimum enabled level for this logger.
	Level() Level
	// SetLevel sets the minimum enabled level for this logger.
	SetLevel(level Level)
}
