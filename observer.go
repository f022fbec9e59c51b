// Observer pattern interfaces for the dispatcher's lifecycle events. Events
// use the CloudEvents specification for standardized format and better
// interoperability with external systems.
package dispatch

import (
	"context"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer defines the interface for objects that want to be notified of
// dispatcher lifecycle events. Observers should handle events quickly to
// avoid piling up goroutines behind slow consumers.
type Observer interface {
	// OnEvent is called when an event occurs that the observer is
	// interested in. The context can be used for cancellation and timeouts.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer, used for
	// registration tracking and debugging.
	ObserverID() string
}

// ObserverInfo provides information about a registered observer.
type ObserverInfo struct {
	// ID is the unique identifier of the observer
	ID string `json:"id"`

	// EventTypes are the event types this observer is subscribed to.
	// Empty slice means all events.
	EventTypes []string `json:"eventTypes"`

	// RegisteredAt indicates when the observer was registered
	RegisteredAt time.Time `json:"registeredAt"`
}

// FunctionalObserver provides a simple way to create observers using
// functions, without defining full structs.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates a new observer that uses the provided
// function to handle events.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{id: id, handler: handler}
}

// OnEvent implements the Observer interface by calling the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements the Observer interface by returning the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

// observerRegistration holds information about a registered observer.
type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool // set of event types this observer is interested in
	registeredAt time.Time
}

// observerSet manages observer registrations for a Dispatcher. It carries its
// own lock so event emission never contends with the dispatcher's core lock.
type observerSet struct {
	mu        sync.RWMutex
	observers map[string]*observerRegistration
	logger    Logger
}

func newObserverSet(logger Logger) *observerSet {
	return &observerSet{
		observers: make(map[string]*observerRegistration),
		logger:    logger,
	}
}

// RegisterObserver adds an observer to receive dispatcher lifecycle events.
// Observers can optionally filter events by type using the eventTypes
// parameter; if eventTypes is empty, the observer receives all events.
func (d *Dispatcher) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}

	s := d.observerSet
	s.mu.Lock()
	defer s.mu.Unlock()

	eventTypeMap := make(map[string]bool)
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}

	s.observers[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: d.clock.Now(),
	}

	s.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer from receiving notifications. This
// method is idempotent and won't error if the observer wasn't registered.
func (d *Dispatcher) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}

	s := d.observerSet
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.observers, observer.ObserverID())
	return nil
}

// GetObservers returns information about currently registered observers.
// This is useful for debugging and monitoring.
func (d *Dispatcher) GetObservers() []ObserverInfo {
	s := d.observerSet
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := make([]ObserverInfo, 0, len(s.observers))
	for _, registration := range s.observers {
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		info = append(info, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}
	return info
}

// notify delivers a CloudEvent to every interested observer. Each delivery
// runs in its own goroutine so a slow or panicking observer never blocks the
// dispatcher.
func (s *observerSet) notify(ctx context.Context, event cloudevents.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ValidateCloudEvent(event); err != nil {
		s.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return
	}

	for _, registration := range s.observers {
		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}

		registration := registration
		go func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("Observer panicked", "observerID", registration.observer.ObserverID(), "event", event.Type(), "panic", r)
				}
			}()

			if err := registration.observer.OnEvent(ctx, event); err != nil {
				s.logger.Error("Observer error", "observerID", registration.observer.ObserverID(), "event", event.Type(), "error", err)
			}
		}()
	}
}

// emitEvent builds a lifecycle CloudEvent and fans it out to observers.
// Emission is fire-and-forget; observer failures are logged, never surfaced
// to the triggering caller.
func (d *Dispatcher) emitEvent(eventType string, data interface{}, metadata map[string]interface{}) {
	s := d.observerSet
	s.mu.RLock()
	empty := len(s.observers) == 0
	s.mu.RUnlock()
	if empty {
		return
	}

	event := NewCloudEvent(eventType, d.source, data, metadata)
	s.notify(context.Background(), event)
}
