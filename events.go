// CloudEvents integration for the dispatcher's observer surface. Lifecycle
// occurrences are published as CloudEvents for standardized event format and
// interoperability with external monitoring systems.
package dispatch

import (
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

// CloudEvent is an alias for the CloudEvents Event type for convenience.
type CloudEvent = cloudevents.Event

// Event type constants for dispatcher lifecycle events. Following the
// CloudEvents specification, these use reverse domain notation.
const (
	// Registration events
	EventTypeHandlerRegistered = "com.dispatch.handler.registered"

	// Queue lifecycle events
	EventTypeEventQueued  = "com.dispatch.event.queued"
	EventTypeQueueFlushed = "com.dispatch.queue.flushed"

	// Health events
	EventTypeHandlerError      = "com.dispatch.handler.error"
	EventTypeCallbackDisabled  = "com.dispatch.callback.disabled"
	EventTypeCallbackReenabled = "com.dispatch.callback.reenabled"

	// Blocking-state events
	EventTypeBlockingEntered = "com.dispatch.blocking.entered"
	EventTypeBlockingExited  = "com.dispatch.blocking.exited"
)

// NewCloudEvent creates a new CloudEvent with the specified parameters.
// This is a convenience function for creating properly formatted CloudEvents.
func NewCloudEvent(eventType, source string, data interface{}, metadata map[string]interface{}) cloudevents.Event {
	event := cloudevents.NewEvent()

	event.SetID(generateEventID())
	event.SetSource(source)
	event.SetType(eventType)
	event.SetTime(time.Now())
	event.SetSpecVersion(cloudevents.VersionV1)

	if data != nil {
		_ = event.SetData(cloudevents.ApplicationJSON, data)
	}

	for key, value := range metadata {
		event.SetExtension(key, value)
	}

	return event
}

// ValidateCloudEvent validates that a CloudEvent conforms to the
// specification before it is delivered to observers.
func ValidateCloudEvent(event cloudevents.Event) error {
	return event.Validate()
}

// generateEventID generates a unique identifier using UUIDv7, which embeds
// timestamp information for time-ordered uniqueness. Falls back to v4 if v7
// generation fails.
func generateEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
