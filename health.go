package dispatch

import (
	"sort"
	"sync"
	"time"
)

// DefaultErrorThreshold is the error count at which an event's handlers are
// automatically disabled. Counts accumulate for the lifetime of the process,
// not over a sliding window.
const DefaultErrorThreshold = 5

// HealthRecord holds the per-event call and error counters. One record exists
// per event name, created lazily on the first invocation attempt and never
// deleted.
type HealthRecord struct {
	// Event is the name the record tracks.
	Event string `json:"event"`

	// TotalCalls counts handler invocation attempts. Always >= ErrorCount.
	TotalCalls uint64 `json:"totalCalls"`

	// ErrorCount counts handler failures.
	ErrorCount uint64 `json:"errorCount"`

	// LastError is the most recent handler failure, if any.
	LastError error `json:"-"`

	// LastErrorMessage mirrors LastError for serialized reports.
	LastErrorMessage string `json:"lastError,omitempty"`

	// LastSuccessAt is when a handler last completed without error.
	LastSuccessAt time.Time `json:"lastSuccessAt,omitzero"`
}

// ErrorRate returns ErrorCount / TotalCalls, or 0 when no calls are recorded.
func (r HealthRecord) ErrorRate() float64 {
	if r.TotalCalls == 0 {
		return 0
	}
	return float64(r.ErrorCount) / float64(r.TotalCalls)
}

// HealthTracker records per-event handler outcomes and trips the circuit
// breaker once an event accumulates the configured number of errors. A
// disabled event stays disabled until Reenable is called explicitly; there is
// no automatic recovery.
//
// HealthTracker is safe for concurrent use.
type HealthTracker struct {
	mu        sync.Mutex
	threshold uint64
	records   map[string]*HealthRecord
	disabled  map[string]struct{}
}

// NewHealthTracker creates a tracker that disables an event after threshold
// recorded errors. A threshold of zero falls back to DefaultErrorThreshold.
func NewHealthTracker(threshold uint64) *HealthTracker {
	if threshold == 0 {
		threshold = DefaultErrorThreshold
	}
	return &HealthTracker{
		threshold: threshold,
		records:   make(map[string]*HealthRecord),
		disabled:  make(map[string]struct{}),
	}
}

// Threshold returns the configured error threshold.
func (t *HealthTracker) Threshold() uint64 {
	return t.threshold
}

// RecordAttempt notes that a handler invocation for the event is starting.
func (t *HealthTracker) RecordAttempt(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(event).TotalCalls++
}

// RecordSuccess notes that a handler for the event completed without error.
func (t *HealthTracker) RecordSuccess(event string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(event).LastSuccessAt = at
}

// RecordError notes a handler failure. It returns true exactly when this
// error trips the circuit breaker, i.e. the event's error count reaches the
// threshold and the event was not already disabled.
func (t *HealthTracker) RecordError(event string, err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.record(event)
	rec.ErrorCount++
	rec.LastError = err
	if err != nil {
		rec.LastErrorMessage = err.Error()
	}

	if rec.ErrorCount < t.threshold {
		return false
	}
	if _, already := t.disabled[event]; already {
		return false
	}
	t.disabled[event] = struct{}{}
	return true
}

// Disabled reports whether the event's handlers are circuit-broken.
func (t *HealthTracker) Disabled(event string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.disabled[event]
	return ok
}

// DisabledEvents returns the sorted names of all disabled events.
func (t *HealthTracker) DisabledEvents() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	events := make([]string, 0, len(t.disabled))
	for event := range t.disabled {
		events = append(events, event)
	}
	sort.Strings(events)
	return events
}

// Reenable removes the event from the disabled set and resets its error count
// so the very next failure cannot immediately re-trip the breaker. Total call
// counts are preserved. Returns ErrCallbackNotDisabled if the event was not
// disabled.
func (t *HealthTracker) Reenable(event string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.disabled[event]; !ok {
		return ErrCallbackNotDisabled
	}
	delete(t.disabled, event)
	if rec, ok := t.records[event]; ok {
		rec.ErrorCount = 0
	}
	return nil
}

// Record returns a copy of the event's health record and whether one exists.
func (t *HealthTracker) Record(event string) (HealthRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[event]
	if !ok {
		return HealthRecord{}, false
	}
	return *rec, true
}

// Snapshot returns copies of every health record, ordered by event name.
func (t *HealthTracker) Snapshot() []HealthRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := make([]HealthRecord, 0, len(t.records))
	for _, rec := range t.records {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Event < records[j].Event })
	return records
}

// ErrorRate returns total errors divided by total calls across all records,
// or 0 when no calls are recorded.
func (t *HealthTracker) ErrorRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var calls, errs uint64
	for _, rec := range t.records {
		calls += rec.TotalCalls
		errs += rec.ErrorCount
	}
	if calls == 0 {
		return 0
	}
	return float64(errs) / float64(calls)
}

// WorstPerformers returns up to limit records with at least one recorded
// call, sorted by error rate descending. Tie order between equal rates is
// unspecified.
func (t *HealthTracker) WorstPerformers(limit int) []HealthRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	records := make([]HealthRecord, 0, len(t.records))
	for _, rec := range t.records {
		if rec.TotalCalls > 0 {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ErrorRate() > records[j].ErrorRate()
	})
	if limit >= 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

// record returns the event's record, creating it lazily. Callers hold t.mu.
func (t *HealthTracker) record(event string) *HealthRecord {
	rec, ok := t.records[event]
	if !ok {
		rec = &HealthRecord{Event: event}
		t.records[event] = rec
	}
	return rec
}
