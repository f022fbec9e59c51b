package dispatch

import "time"

// Error-rate thresholds for the health summary buckets. A callback with no
// recorded errors is healthy; one failing on more than a tenth of its calls
// is critical; anything in between is a warning.
const (
	healthyRateMax  = 0.0
	warningRateMax  = 0.1
	taintTailLength = 10
)

// QueueStats summarizes the deferred queue for reporting.
type QueueStats struct {
	// Total is the number of queued items across all tiers.
	Total int `json:"total"`

	// PerTier maps tier name to queued item count.
	PerTier map[string]int `json:"perTier"`

	// PerEvent maps event name to queued item count.
	PerEvent map[string]int `json:"perEvent"`
}

// CallbackStats summarizes registration and health state for reporting.
type CallbackStats struct {
	// RegisteredEvents is the number of distinct event names with at least
	// one registered handler.
	RegisteredEvents int `json:"registeredEvents"`

	// Disabled lists circuit-broken events, sorted by name.
	Disabled []string `json:"disabled"`

	// Healthy, Warning, and Critical bucket tracked events by error rate.
	Healthy  []string `json:"healthy"`
	Warning  []string `json:"warning"`
	Critical []string `json:"critical"`
}

// DiagnosticsReport is a point-in-time, read-only snapshot of dispatcher
// state for operator inspection. Generating a report mutates nothing.
type DiagnosticsReport struct {
	// Mode is the dispatcher's default execution mode.
	Mode string `json:"mode"`

	// BlockingActive is the blocking-state flag at snapshot time.
	BlockingActive bool `json:"blockingActive"`

	// DebugLogging is the debug flag at snapshot time.
	DebugLogging bool `json:"debugLogging"`

	// GeneratedAt is when the snapshot was taken.
	GeneratedAt time.Time `json:"generatedAt"`

	Queue     QueueStats    `json:"queue"`
	Callbacks CallbackStats `json:"callbacks"`

	// TaintTail holds the most recent taint log entries, oldest first.
	TaintTail []TaintLogEntry `json:"taintTail"`
}

// Report assembles a diagnostics snapshot from dispatcher, health tracker,
// and queue state.
func (d *Dispatcher) Report() DiagnosticsReport {
	d.mu.Lock()
	report := DiagnosticsReport{
		Mode:           d.defaultMode.String(),
		BlockingActive: d.blocking,
		DebugLogging:   d.debugLogging,
		GeneratedAt:    d.clock.Now(),
		Queue: QueueStats{
			Total:    d.queue.Len(),
			PerTier:  make(map[string]int, len(priorities)),
			PerEvent: d.queue.CountByEvent(),
		},
	}
	for _, p := range priorities {
		report.Queue.PerTier[p.String()] = d.queue.TierLen(p)
	}
	registered := len(d.registrations)
	d.mu.Unlock()

	report.Callbacks = CallbackStats{
		RegisteredEvents: registered,
		Disabled:         d.health.DisabledEvents(),
	}
	for _, rec := range d.health.Snapshot() {
		switch rate := rec.ErrorRate(); {
		case rate <= healthyRateMax:
			report.Callbacks.Healthy = append(report.Callbacks.Healthy, rec.Event)
		case rate <= warningRateMax:
			report.Callbacks.Warning = append(report.Callbacks.Warning, rec.Event)
		default:
			report.Callbacks.Critical = append(report.Callbacks.Critical, rec.Event)
		}
	}

	report.TaintTail = d.taint.Tail(taintTailLength)
	return report
}

// QueueSize returns the total number of queued items.
func (d *Dispatcher) QueueSize() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// HasQueuedItems reports whether any deferred invocations are waiting.
func (d *Dispatcher) HasQueuedItems() bool {
	return d.QueueSize() > 0
}

// QueuedItems returns a copy of all queued items ordered secure, priority,
// normal, FIFO within each tier.
func (d *Dispatcher) QueuedItems() []QueueItem {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.AllByPriorityDesc()
}

// CallbackHealth returns the health record for one event and whether the
// event has been invoked at least once.
func (d *Dispatcher) CallbackHealth(event string) (HealthRecord, bool) {
	return d.health.Record(event)
}

// AllCallbackHealth returns copies of every health record, ordered by event
// name.
func (d *Dispatcher) AllCallbackHealth() []HealthRecord {
	return d.health.Snapshot()
}

// DisabledCallbacks returns the sorted names of circuit-broken events.
func (d *Dispatcher) DisabledCallbacks() []string {
	return d.health.DisabledEvents()
}

// ErrorRate returns total handler errors divided by total handler calls
// across all events, or 0 when nothing has been invoked.
func (d *Dispatcher) ErrorRate() float64 {
	return d.health.ErrorRate()
}

// WorstPerformingCallbacks returns up to limit invoked events sorted by
// error rate descending.
func (d *Dispatcher) WorstPerformingCallbacks(limit int) []HealthRecord {
	return d.health.WorstPerformers(limit)
}

// TaintLogTail returns the most recent n taint log entries, oldest first.
func (d *Dispatcher) TaintLogTail(n int) []TaintLogEntry {
	return d.taint.Tail(n)
}
