package dispatch

// Logger defines the interface for dispatcher logging.
// The dispatcher uses structured logging with key-value pairs to provide
// consistent, parseable log output.
//
// The Logger interface uses variadic arguments in key-value pairs:
//
//	logger.Info("message", "key1", "value1", "key2", "value2")
//
// This approach is compatible with popular structured logging libraries
// like slog, logrus, zap, and others. An application that does not care
// about dispatcher logs can rely on the default no-op logger.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	// Used for normal dispatcher events like blocking-state transitions.
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	// Used for handler failures and auto-disable events.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	// Used for detailed diagnostic information such as registration and
	// queueing activity; only meaningful when debug logging is enabled.
	Debug(msg string, args ...any)
}

// noopLogger discards all log output. It is the default when no logger
// is supplied via WithLogger.
type noopLogger struct{}

func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Debug(msg string, args ...any) {}
