package dispatch

import (
	"errors"
)

// Dispatcher errors
var (
	// Mode validation errors
	ErrInvalidExecutionMode = errors.New("invalid execution mode")
	ErrInvalidPriority      = errors.New("invalid queue priority")

	// Registration errors
	ErrNilHandler     = errors.New("handler is nil")
	ErrEmptyEventName = errors.New("event name is empty")

	// Option errors
	ErrNilLogger     = errors.New("logger is nil")
	ErrNilClock      = errors.New("clock is nil")
	ErrNilClassifier = errors.New("classifier is nil")

	// Circuit breaker errors
	ErrCallbackNotDisabled = errors.New("callback is not disabled")

	// Handler execution errors
	ErrHandlerPanic = errors.New("handler panicked")

	// Configuration errors
	ErrConfigNil               = errors.New("config is nil")
	ErrUnsupportedConfigFormat = errors.New("unsupported config file format")
	ErrInvalidErrorThreshold   = errors.New("error threshold must be positive")
	ErrInvalidTaintCapacity    = errors.New("taint log capacity must be positive")

	// Observer errors
	ErrObserverNil = errors.New("observer is nil")

	// Watcher and scheduler errors
	ErrWatcherAlreadyStarted = errors.New("config watcher already started")
	ErrEmptyFlushSchedule    = errors.New("flush schedule expression is empty")
)
