package dispatch

import "fmt"

// Option configures a Dispatcher during construction.
type Option func(*Dispatcher) error

// WithLogger sets the structured logger the dispatcher writes to. The default
// is a no-op logger.
func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			return fmt.Errorf("WithLogger: %w", ErrNilLogger)
		}
		d.logger = logger
		return nil
	}
}

// WithClock sets the time source used for queue timestamps, health records,
// and taint log entries. The default is the system clock.
func WithClock(clock Clock) Option {
	return func(d *Dispatcher) error {
		if clock == nil {
			return fmt.Errorf("WithClock: %w", ErrNilClock)
		}
		d.clock = clock
		return nil
	}
}

// WithDefaultExecutionMode sets the dispatcher-wide default execution mode.
// The default is ModeAuto.
func WithDefaultExecutionMode(mode ExecutionMode) Option {
	return func(d *Dispatcher) error {
		if !mode.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidExecutionMode, mode)
		}
		d.defaultMode = mode
		return nil
	}
}

// WithErrorThreshold sets the error count at which an event's handlers are
// automatically disabled. The default is DefaultErrorThreshold.
func WithErrorThreshold(threshold uint64) Option {
	return func(d *Dispatcher) error {
		if threshold == 0 {
			return ErrInvalidErrorThreshold
		}
		d.errorThreshold = threshold
		return nil
	}
}

// WithTaintLogCapacity bounds the diagnostic ring buffer. The default is
// DefaultTaintLogCapacity.
func WithTaintLogCapacity(capacity int) Option {
	return func(d *Dispatcher) error {
		if capacity <= 0 {
			return ErrInvalidTaintCapacity
		}
		d.taintCapacity = capacity
		return nil
	}
}

// WithClassifier replaces the event classifier consulted by the execution
// policy under the auto mode. The default is Classify.
func WithClassifier(classify Classifier) Option {
	return func(d *Dispatcher) error {
		if classify == nil {
			return fmt.Errorf("WithClassifier: %w", ErrNilClassifier)
		}
		d.classify = classify
		return nil
	}
}

// WithDebugLogging enables debug-gated taint log entries from construction.
func WithDebugLogging(enabled bool) Option {
	return func(d *Dispatcher) error {
		d.debugLogging = enabled
		return nil
	}
}
