package dispatch

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Handler is a callback registered against an event name. Handlers receive
// the triggering event name and its arguments; the context carries the
// execution scope (see ExecutionScopeFromContext). A non-nil return value or
// a panic counts as a handler failure; neither propagates past Trigger.
type Handler func(ctx context.Context, event string, args ...any) error

// TriggerStatus is the outcome classification of a Trigger call.
type TriggerStatus string

const (
	// StatusExecuted means the handlers ran (possibly with failures).
	StatusExecuted TriggerStatus = "executed"

	// StatusQueued means the invocation was deferred into the queue.
	StatusQueued TriggerStatus = "queued"

	// StatusDisabled means the event is circuit-broken; nothing ran.
	StatusDisabled TriggerStatus = "callback_disabled"

	// StatusNoHandlers means no handlers are registered for the event.
	StatusNoHandlers TriggerStatus = "no_handlers"
)

// TriggerResult is the aggregate outcome of one Trigger call. Handler
// failures never abort the caller's control flow; they are collected here.
type TriggerResult struct {
	// Status classifies the outcome.
	Status TriggerStatus

	// Succeeded is true when every handler ran without error, or when the
	// invocation was queued or had no handlers. It is false for disabled
	// events and for executions with at least one handler failure.
	Succeeded bool

	// Errors holds the individual handler failures in invocation order.
	Errors []error
}

// FlushedItem pairs a drained queue item with its execution outcome.
type FlushedItem struct {
	Item QueueItem

	// Result is the execution outcome. For skipped items it carries the
	// disabled status and no errors.
	Result TriggerResult

	// Skipped is true when the item's event was disabled while queued; the
	// item is consumed without executing its handlers.
	Skipped bool
}

// Dispatcher is an in-process event-callback dispatcher with deferral
// semantics. Handlers register against named events; Trigger either executes
// them immediately or defers them into a priority-tiered queue until the
// host-signaled blocking condition clears.
//
// Every Dispatcher instance is independent; create as many as needed. All
// mutable core state (registrations, mode overrides, secure set, blocking
// flag, queue) lives behind a single lock. Handlers run outside that lock, so
// a handler may call back into its own dispatcher.
type Dispatcher struct {
	mu            sync.Mutex
	registrations map[string][]Handler
	modeOverrides map[string]ExecutionMode
	secureEvents  map[string]struct{}
	defaultMode   ExecutionMode
	blocking      bool
	debugLogging  bool
	queue         *DeferredQueue

	health      *HealthTracker
	taint       *TaintLog
	observerSet *observerSet

	classify Classifier
	clock    Clock
	logger   Logger
	source   string

	// construction-time settings consumed by New
	errorThreshold uint64
	taintCapacity  int
}

// New creates a Dispatcher with the given options applied. Without options
// the dispatcher uses the auto execution mode, the real clock, a no-op
// logger, and the default circuit-breaker threshold and taint log capacity.
func New(opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		registrations:  make(map[string][]Handler),
		modeOverrides:  make(map[string]ExecutionMode),
		secureEvents:   make(map[string]struct{}),
		defaultMode:    ModeAuto,
		classify:       Classify,
		clock:          realClock{},
		logger:         noopLogger{},
		errorThreshold: DefaultErrorThreshold,
		taintCapacity:  DefaultTaintLogCapacity,
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, fmt.Errorf("applying dispatcher option: %w", err)
		}
	}

	d.queue = newDeferredQueue()
	d.health = NewHealthTracker(d.errorThreshold)
	d.taint = NewTaintLog(d.taintCapacity)
	d.observerSet = newObserverSet(d.logger)
	d.source = "dispatcher/" + generateEventID()
	return d, nil
}

// Register appends a handler to the event's registration list under the
// dispatcher's default execution mode. Handlers are invoked in registration
// order; duplicates are permitted and invoked once per registration.
func (d *Dispatcher) Register(event string, handler Handler) error {
	d.mu.Lock()
	mode := d.defaultMode
	d.mu.Unlock()
	return d.RegisterWithMode(event, handler, mode)
}

// RegisterWithMode registers a handler and stores a per-event execution-mode
// override when the mode differs from the dispatcher's default. The override
// applies to the event as a whole, not to the individual handler.
func (d *Dispatcher) RegisterWithMode(event string, handler Handler, mode ExecutionMode) error {
	if event == "" {
		return ErrEmptyEventName
	}
	if handler == nil {
		return fmt.Errorf("%w: event %q", ErrNilHandler, event)
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidExecutionMode, mode)
	}

	d.mu.Lock()
	d.registrations[event] = append(d.registrations[event], handler)
	if mode != d.defaultMode {
		d.modeOverrides[event] = mode
	}
	count := len(d.registrations[event])
	d.appendTaintLocked(TaintKindRegister, event, "mode="+mode.String())
	d.mu.Unlock()

	d.logger.Debug("Handler registered", "event", event, "mode", mode.String(), "handlers", count)
	d.emitEvent(EventTypeHandlerRegistered, map[string]interface{}{
		"event":    event,
		"mode":     mode.String(),
		"handlers": count,
	}, nil)
	return nil
}

// RegisterProtectedOnly registers a handler whose event runs only while the
// blocking (privileged) window is active. The event is marked protected-only:
// triggers outside the window are deferred into the secure tier, and its
// queued items stay eligible for draining even while blocking is active.
func (d *Dispatcher) RegisterProtectedOnly(event string, handler Handler) error {
	if err := d.RegisterWithMode(event, handler, ModeSecureOnly); err != nil {
		return err
	}
	d.mu.Lock()
	d.secureEvents[event] = struct{}{}
	d.mu.Unlock()
	return nil
}

// Trigger fires an event. Depending on the execution policy the registered
// handlers run immediately (directly or under the protected-call boundary) or
// the invocation is deferred into the queue. Handler failures are captured
// and aggregated into the result; they never propagate to the caller.
//
// Disabled (circuit-broken) events short-circuit with StatusDisabled without
// consulting the policy or touching health counters. Events with no
// registered handlers return StatusNoHandlers.
func (d *Dispatcher) Trigger(ctx context.Context, event string, args ...any) TriggerResult {
	if d.health.Disabled(event) {
		d.logger.Debug("Trigger short-circuited, callback disabled", "event", event)
		return TriggerResult{Status: StatusDisabled}
	}

	d.mu.Lock()
	handlers := slices.Clone(d.registrations[event])
	if len(handlers) == 0 {
		d.mu.Unlock()
		return TriggerResult{Status: StatusNoHandlers, Succeeded: true}
	}

	mode := d.effectiveModeLocked(event)
	_, protectedOnly := d.secureEvents[event]
	decision := Decide(event, d.blocking, mode, protectedOnly, d.classify)

	if decision.Action == ActionDefer {
		item := newQueueItem(event, args, d.clock.Now(), decision.Priority)
		d.queue.Enqueue(item)
		d.appendTaintLocked(TaintKindQueued, event, "tier="+decision.Priority.String())
		d.mu.Unlock()

		d.logger.Debug("Event queued", "event", event, "tier", decision.Priority.String())
		d.emitEvent(EventTypeEventQueued, map[string]interface{}{
			"event": event,
			"item":  item.ID,
			"tier":  decision.Priority.String(),
		}, nil)
		return TriggerResult{Status: StatusQueued, Succeeded: true}
	}
	d.mu.Unlock()

	return d.executeHandlers(ctx, event, handlers, decision.Action == ActionExecuteProtected, args)
}

// executeHandlers runs the handlers in registration order, capturing failures
// at the single-handler boundary. A circuit trip mid-iteration short-circuits
// the remaining handlers of this invocation.
func (d *Dispatcher) executeHandlers(ctx context.Context, event string, handlers []Handler, protected bool, args []any) TriggerResult {
	scope := ScopeDirect
	if protected {
		scope = ScopeProtected
	}
	execCtx := withExecutionScope(ctx, scope)

	var errs []error
	for _, handler := range handlers {
		if d.health.Disabled(event) {
			break
		}
		d.health.RecordAttempt(event)

		err := invokeHandler(execCtx, handler, event, args)
		if err == nil {
			d.health.RecordSuccess(event, d.clock.Now())
			continue
		}

		errs = append(errs, err)
		tripped := d.health.RecordError(event, err)
		d.appendTaint(TaintKindError, event, err.Error())
		d.logger.Error("Handler failed", "event", event, "scope", scope.String(), "error", err)
		d.emitEvent(EventTypeHandlerError, map[string]interface{}{
			"event": event,
			"error": err.Error(),
		}, nil)

		if tripped {
			d.appendTaint(TaintKindAutoDisable, event, fmt.Sprintf("error threshold %d reached", d.health.Threshold()))
			d.logger.Error("Callback auto-disabled after repeated failures", "event", event, "threshold", d.health.Threshold())
			d.emitEvent(EventTypeCallbackDisabled, map[string]interface{}{
				"event":     event,
				"threshold": d.health.Threshold(),
			}, nil)
			break
		}
	}

	return TriggerResult{Status: StatusExecuted, Succeeded: len(errs) == 0, Errors: errs}
}

// invokeHandler calls a single handler, translating a panic into an error so
// a misbehaving handler can never abort the dispatcher or the caller.
func invokeHandler(ctx context.Context, handler Handler, event string, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return handler(ctx, event, args...)
}

// flushPlan is one drained item with the handler snapshot it will run.
type flushPlan struct {
	item      QueueItem
	handlers  []Handler
	protected bool
}

// Flush drains every eligible queued item across all tiers and executes each
// through the normal handler-execution path, so health tracking and
// circuit-breaking apply. An item is eligible iff blocking is inactive or its
// event is protected-only. Ineligible items remain queued in their original
// relative order. Flushing an empty queue is a no-op.
func (d *Dispatcher) Flush(ctx context.Context) []FlushedItem {
	d.mu.Lock()
	drained := d.queue.DrainEligible(d.blocking, d.secureEvents)
	plans := d.planFlushLocked(drained)
	d.mu.Unlock()

	return d.runFlush(ctx, plans)
}

// FlushTier is Flush restricted to a single queue tier.
func (d *Dispatcher) FlushTier(ctx context.Context, p Priority) ([]FlushedItem, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, p)
	}

	d.mu.Lock()
	drained := d.queue.DrainEligibleTier(p, d.blocking, d.secureEvents)
	plans := d.planFlushLocked(drained)
	d.mu.Unlock()

	return d.runFlush(ctx, plans), nil
}

// planFlushLocked snapshots handlers and protection decisions for drained
// items. Callers hold d.mu.
func (d *Dispatcher) planFlushLocked(drained []QueueItem) []flushPlan {
	plans := make([]flushPlan, 0, len(drained))
	for _, item := range drained {
		mode := d.effectiveModeLocked(item.Event)
		plans = append(plans, flushPlan{
			item:      item,
			handlers:  slices.Clone(d.registrations[item.Event]),
			protected: immediateAction(d.blocking, mode) == ActionExecuteProtected,
		})
	}
	return plans
}

// runFlush executes drained items in order. Items whose event was disabled
// while queued are consumed without execution.
func (d *Dispatcher) runFlush(ctx context.Context, plans []flushPlan) []FlushedItem {
	if len(plans) == 0 {
		return nil
	}

	results := make([]FlushedItem, 0, len(plans))
	for _, plan := range plans {
		if d.health.Disabled(plan.item.Event) {
			d.appendTaint(TaintKindFlush, plan.item.Event, "skipped disabled item "+plan.item.ID)
			results = append(results, FlushedItem{
				Item:    plan.item,
				Result:  TriggerResult{Status: StatusDisabled},
				Skipped: true,
			})
			continue
		}
		if len(plan.handlers) == 0 {
			results = append(results, FlushedItem{
				Item:   plan.item,
				Result: TriggerResult{Status: StatusNoHandlers, Succeeded: true},
			})
			continue
		}
		result := d.executeHandlers(ctx, plan.item.Event, plan.handlers, plan.protected, plan.item.Args)
		results = append(results, FlushedItem{Item: plan.item, Result: result})
	}

	d.appendTaint(TaintKindFlush, "", fmt.Sprintf("drained %d items", len(results)))
	d.logger.Debug("Queue flushed", "drained", len(results))
	d.emitEvent(EventTypeQueueFlushed, map[string]interface{}{
		"drained": len(results),
	}, nil)
	return results
}

// OnBlockingStateEnter records the host's enter edge: subsequent triggers are
// subject to deferral until the matching exit edge.
func (d *Dispatcher) OnBlockingStateEnter() {
	d.mu.Lock()
	if d.blocking {
		d.mu.Unlock()
		return
	}
	d.blocking = true
	d.appendTaintLocked(TaintKindBlockingEnter, "", "")
	d.mu.Unlock()

	d.logger.Info("Blocking state entered")
	d.emitEvent(EventTypeBlockingEntered, nil, nil)
}

// OnBlockingStateExit records the host's exit edge and, if any items are
// queued, drains the queue. The exit edge is the sole automatic trigger for
// draining; queued items otherwise wait for an explicit Flush.
func (d *Dispatcher) OnBlockingStateExit() {
	d.mu.Lock()
	if !d.blocking {
		d.mu.Unlock()
		return
	}
	d.blocking = false
	queued := d.queue.Len()
	d.appendTaintLocked(TaintKindBlockingExit, "", fmt.Sprintf("queued=%d", queued))
	d.mu.Unlock()

	d.logger.Info("Blocking state exited", "queued", queued)
	d.emitEvent(EventTypeBlockingExited, map[string]interface{}{
		"queued": queued,
	}, nil)

	if queued > 0 {
		d.Flush(context.Background())
	}
}

// SetExecutionMode changes the dispatcher's default execution mode. An
// unrecognized mode is rejected with ErrInvalidExecutionMode and no state
// changes.
func (d *Dispatcher) SetExecutionMode(mode ExecutionMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidExecutionMode, mode)
	}

	d.mu.Lock()
	d.defaultMode = mode
	d.appendTaintLocked(TaintKindModeChange, "", "default="+mode.String())
	d.mu.Unlock()

	d.logger.Debug("Default execution mode changed", "mode", mode.String())
	return nil
}

// SetEventExecutionMode stores a per-event execution-mode override, consulted
// before the dispatcher default. An unrecognized mode is rejected with
// ErrInvalidExecutionMode and no state changes.
func (d *Dispatcher) SetEventExecutionMode(event string, mode ExecutionMode) error {
	if event == "" {
		return ErrEmptyEventName
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidExecutionMode, mode)
	}

	d.mu.Lock()
	d.modeOverrides[event] = mode
	d.appendTaintLocked(TaintKindModeChange, event, "mode="+mode.String())
	d.mu.Unlock()

	d.logger.Debug("Event execution mode changed", "event", event, "mode", mode.String())
	return nil
}

// EnableDebugLogging toggles debug-gated taint log entries and debug logs.
// Error and auto-disable taint entries are recorded regardless.
func (d *Dispatcher) EnableDebugLogging(enabled bool) {
	d.mu.Lock()
	d.debugLogging = enabled
	d.mu.Unlock()
}

// ReenableCallback removes a circuit-broken event from the disabled set so
// its handlers run again. This is an explicit administrative action; the
// dispatcher never re-enables automatically.
func (d *Dispatcher) ReenableCallback(event string) error {
	if err := d.health.Reenable(event); err != nil {
		return fmt.Errorf("reenabling callback %q: %w", event, err)
	}

	d.appendTaint(TaintKindReenable, event, "")
	d.logger.Info("Callback re-enabled", "event", event)
	d.emitEvent(EventTypeCallbackReenabled, map[string]interface{}{
		"event": event,
	}, nil)
	return nil
}

// BlockingActive reports whether the blocking window is currently active.
func (d *Dispatcher) BlockingActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blocking
}

// ExecutionMode returns the dispatcher's current default execution mode.
func (d *Dispatcher) ExecutionMode() ExecutionMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.defaultMode
}

// EventExecutionMode returns the effective execution mode for an event: the
// per-event override when present, otherwise the dispatcher default.
func (d *Dispatcher) EventExecutionMode(event string) ExecutionMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.effectiveModeLocked(event)
}

// DebugLoggingEnabled reports whether debug logging is on.
func (d *Dispatcher) DebugLoggingEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.debugLogging
}

// effectiveModeLocked resolves the event's execution mode. Callers hold d.mu.
func (d *Dispatcher) effectiveModeLocked(event string) ExecutionMode {
	if mode, ok := d.modeOverrides[event]; ok {
		return mode
	}
	return d.defaultMode
}

// appendTaint records a taint log entry from outside the dispatcher lock.
func (d *Dispatcher) appendTaint(kind TaintKind, event, detail string) {
	d.mu.Lock()
	blocking, debug := d.blocking, d.debugLogging
	d.mu.Unlock()
	d.recordTaint(kind, event, detail, blocking, debug)
}

// appendTaintLocked records a taint log entry. Callers hold d.mu.
func (d *Dispatcher) appendTaintLocked(kind TaintKind, event, detail string) {
	d.recordTaint(kind, event, detail, d.blocking, d.debugLogging)
}

func (d *Dispatcher) recordTaint(kind TaintKind, event, detail string, blocking, debug bool) {
	if !kind.alwaysRecorded() && !debug {
		return
	}
	d.taint.Append(TaintLogEntry{
		Kind:           kind,
		Event:          event,
		Detail:         detail,
		Timestamp:      d.clock.Now(),
		BlockingActive: blocking,
	})
}
