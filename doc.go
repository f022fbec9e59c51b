// Package dispatch provides an in-process event-callback dispatcher with
// deferral semantics. Callers register handlers against named events and
// trigger events with arguments; the dispatcher either executes the handlers
// immediately or defers them into a priority-tiered queue until a host-signaled
// blocking condition clears.
//
// The dispatcher tracks per-event health and automatically disables (circuit
// breaks) events whose handlers fail repeatedly. A bounded taint log and a
// read-only diagnostics report expose error rates, queue statistics, and
// disabled callbacks for operator inspection.
//
// Each Dispatcher instance is fully independent; there is no process-wide
// state. Lifecycle occurrences (registration, queueing, flushes, handler
// errors, auto-disables) are additionally published to registered observers
// as CloudEvents, so hosts can wire the dispatcher into their own monitoring.
package dispatch
