package dispatch

import (
	"time"
)

// QueueItem is one deferred invocation. Items are created at enqueue time and
// consumed exactly once when drained; the dispatcher never re-enqueues a
// drained item automatically.
type QueueItem struct {
	// ID uniquely identifies the item for logs and observer events.
	ID string `json:"id"`

	// Event is the name the item was triggered under.
	Event string `json:"event"`

	// Args are the trigger arguments, replayed verbatim on drain.
	Args []any `json:"args,omitempty"`

	// EnqueuedAt is when the item entered the queue.
	EnqueuedAt time.Time `json:"enqueuedAt"`

	// Priority names the tier holding the item.
	Priority Priority `json:"priority"`
}

// newQueueItem builds a QueueItem with a fresh identifier.
func newQueueItem(event string, args []any, at time.Time, priority Priority) QueueItem {
	return QueueItem{
		ID:         generateEventID(),
		Event:      event,
		Args:       args,
		EnqueuedAt: at,
		Priority:   priority,
	}
}

// DeferredQueue holds deferred invocations in three independent FIFO tiers.
// The zero value is not usable; construct with newDeferredQueue.
//
// DeferredQueue is not safe for concurrent use on its own. It is owned
// exclusively by a Dispatcher, which serializes access under its lock.
type DeferredQueue struct {
	tiers map[Priority][]QueueItem
}

// newDeferredQueue creates an empty queue with all three tiers allocated.
func newDeferredQueue() *DeferredQueue {
	return &DeferredQueue{
		tiers: map[Priority][]QueueItem{
			PriorityNormal: nil,
			PriorityHigh:   nil,
			PrioritySecure: nil,
		},
	}
}

// Enqueue appends the item to the tier named by its priority.
func (q *DeferredQueue) Enqueue(item QueueItem) {
	q.tiers[item.Priority] = append(q.tiers[item.Priority], item)
}

// DrainEligible removes and returns every queued item eligible for execution,
// scanning tiers in descending priority order and preserving FIFO order
// within each tier. An item is eligible iff blocking is inactive or its event
// is in the secure set. Ineligible items stay queued in their original
// relative order, so a later drain observes the same sequence minus the
// items already taken.
func (q *DeferredQueue) DrainEligible(blockingActive bool, secureSet map[string]struct{}) []QueueItem {
	var drained []QueueItem
	for _, p := range priorities {
		drained = append(drained, q.drainTier(p, blockingActive, secureSet)...)
	}
	return drained
}

// DrainEligibleTier is DrainEligible restricted to a single tier.
func (q *DeferredQueue) DrainEligibleTier(p Priority, blockingActive bool, secureSet map[string]struct{}) []QueueItem {
	return q.drainTier(p, blockingActive, secureSet)
}

func (q *DeferredQueue) drainTier(p Priority, blockingActive bool, secureSet map[string]struct{}) []QueueItem {
	tier := q.tiers[p]
	if len(tier) == 0 {
		return nil
	}

	var drained []QueueItem
	kept := tier[:0]
	for _, item := range tier {
		_, secure := secureSet[item.Event]
		if !blockingActive || secure {
			drained = append(drained, item)
		} else {
			kept = append(kept, item)
		}
	}
	// Zero the trailing slots so drained items' args don't pin memory.
	for i := len(kept); i < len(tier); i++ {
		tier[i] = QueueItem{}
	}
	q.tiers[p] = kept
	return drained
}

// AllByPriorityDesc returns a copy of every queued item ordered secure,
// priority, normal, FIFO within each tier. There is no cross-tier
// interleaving by timestamp; this ordering is for reporting only.
func (q *DeferredQueue) AllByPriorityDesc() []QueueItem {
	items := make([]QueueItem, 0, q.Len())
	for _, p := range priorities {
		items = append(items, q.tiers[p]...)
	}
	return items
}

// Len returns the total number of queued items across all tiers.
func (q *DeferredQueue) Len() int {
	total := 0
	for _, tier := range q.tiers {
		total += len(tier)
	}
	return total
}

// TierLen returns the number of items queued in one tier.
func (q *DeferredQueue) TierLen(p Priority) int {
	return len(q.tiers[p])
}

// CountByEvent returns the number of queued items per event name.
func (q *DeferredQueue) CountByEvent() map[string]int {
	counts := make(map[string]int)
	for _, tier := range q.tiers {
		for _, item := range tier {
			counts[item.Event]++
		}
	}
	return counts
}
