package dispatch

import (
	"context"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectEvents registers a functional observer that forwards matching events
// to a channel.
func collectEvents(t *testing.T, d *Dispatcher, id string, eventTypes ...string) <-chan cloudevents.Event {
	t.Helper()
	ch := make(chan cloudevents.Event, 16)
	obs := NewFunctionalObserver(id, func(ctx context.Context, event cloudevents.Event) error {
		ch <- event
		return nil
	})
	require.NoError(t, d.RegisterObserver(obs, eventTypes...))
	return ch
}

func waitForEvent(t *testing.T, ch <-chan cloudevents.Event) cloudevents.Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for observer notification")
		return cloudevents.Event{}
	}
}

func TestObserverRegistration(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	obs := NewFunctionalObserver("obs-1", func(ctx context.Context, event cloudevents.Event) error { return nil })
	require.NoError(t, d.RegisterObserver(obs, EventTypeHandlerError))

	info := d.GetObservers()
	require.Len(t, info, 1)
	assert.Equal(t, "obs-1", info[0].ID)
	assert.Equal(t, []string{EventTypeHandlerError}, info[0].EventTypes)

	require.NoError(t, d.UnregisterObserver(obs))
	assert.Empty(t, d.GetObservers())
	// Unregistering again is fine.
	require.NoError(t, d.UnregisterObserver(obs))

	assert.ErrorIs(t, d.RegisterObserver(nil), ErrObserverNil)
	assert.ErrorIs(t, d.UnregisterObserver(nil), ErrObserverNil)
}

func TestObserverReceivesLifecycleEvents(t *testing.T) {
	t.Run("should_emit_handler_registered", func(t *testing.T) {
		d := newTestDispatcher(t)
		ch := collectEvents(t, d, "obs", EventTypeHandlerRegistered)

		require.NoError(t, d.Register("Ev", failingHandler))

		event := waitForEvent(t, ch)
		assert.Equal(t, EventTypeHandlerRegistered, event.Type())
		assert.NotEmpty(t, event.ID())
		assert.Contains(t, event.Source(), "dispatcher/")
	})

	t.Run("should_emit_queued_and_flushed", func(t *testing.T) {
		d := newTestDispatcher(t)
		queued := collectEvents(t, d, "queued", EventTypeEventQueued)
		flushed := collectEvents(t, d, "flushed", EventTypeQueueFlushed)

		require.NoError(t, d.Register("UI_Refresh", func(ctx context.Context, event string, args ...any) error { return nil }))
		d.OnBlockingStateEnter()
		d.Trigger(context.Background(), "UI_Refresh")
		waitForEvent(t, queued)

		d.OnBlockingStateExit()
		event := waitForEvent(t, flushed)
		assert.Equal(t, EventTypeQueueFlushed, event.Type())
	})

	t.Run("should_emit_disabled_and_reenabled", func(t *testing.T) {
		d := newTestDispatcher(t, WithErrorThreshold(1))
		ch := collectEvents(t, d, "obs", EventTypeCallbackDisabled, EventTypeCallbackReenabled)

		require.NoError(t, d.Register("Ev", failingHandler))
		d.Trigger(context.Background(), "Ev")
		assert.Equal(t, EventTypeCallbackDisabled, waitForEvent(t, ch).Type())

		require.NoError(t, d.ReenableCallback("Ev"))
		assert.Equal(t, EventTypeCallbackReenabled, waitForEvent(t, ch).Type())
	})
}

func TestObserverEventTypeFiltering(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	filtered := collectEvents(t, d, "filtered", EventTypeHandlerError)
	all := collectEvents(t, d, "all")

	require.NoError(t, d.Register("Ev", failingHandler))

	// The unfiltered observer sees the registration; the filtered one must not.
	assert.Equal(t, EventTypeHandlerRegistered, waitForEvent(t, all).Type())
	select {
	case event := <-filtered:
		t.Fatalf("filtered observer received %s", event.Type())
	case <-time.After(100 * time.Millisecond):
	}
}

func TestObserverPanicDoesNotAffectDispatch(t *testing.T) {
	t.Parallel()
	d := newTestDispatcher(t)

	panicky := NewFunctionalObserver("panicky", func(ctx context.Context, event cloudevents.Event) error {
		panic("observer blew up")
	})
	require.NoError(t, d.RegisterObserver(panicky))
	ch := collectEvents(t, d, "healthy")

	require.NoError(t, d.Register("Ev", func(ctx context.Context, event string, args ...any) error { return nil }))
	result := d.Trigger(context.Background(), "Ev")
	assert.True(t, result.Succeeded)

	// The healthy observer still gets the registration event.
	waitForEvent(t, ch)
}

func TestNewCloudEvent(t *testing.T) {
	t.Parallel()
	event := NewCloudEvent(EventTypeEventQueued, "dispatcher/test", map[string]string{"event": "Ev"}, map[string]interface{}{"tier": "normal"})

	assert.Equal(t, EventTypeEventQueued, event.Type())
	assert.Equal(t, "dispatcher/test", event.Source())
	assert.NotEmpty(t, event.ID())
	require.NoError(t, ValidateCloudEvent(event))

	var data map[string]string
	require.NoError(t, event.DataAs(&data))
	assert.Equal(t, "Ev", data["event"])
}

func TestValidateCloudEvent(t *testing.T) {
	t.Parallel()
	var empty cloudevents.Event
	assert.Error(t, ValidateCloudEvent(empty))
}
