package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cucumber/godog"
)

// Static error variables for BDD steps to comply with err113 linting rule
var (
	errDispatcherNotCreated   = errors.New("dispatcher was not created")
	errHandlerRecordedNothing = errors.New("handler recorded nothing")
	errHandlerRan             = errors.New("handler should not have run")
	errNoTriggerResults       = errors.New("no trigger results recorded")
	errCallbackFailsOnPurpose = errors.New("callback fails on purpose")
	errUnexpectedOrder        = errors.New("handlers ran in unexpected order")
	errUnexpectedStatus       = errors.New("unexpected trigger status")
	errUnexpectedQueueSize    = errors.New("unexpected queue size")
	errCallbackEnabledState   = errors.New("unexpected callback disabled state")
	errNoHealthRecord         = errors.New("no health record for callback")
	errUnexpectedCallCount    = errors.New("unexpected recorded call count")
)

// dispatcherBDDContext holds shared state for the lifecycle scenarios.
type dispatcherBDDContext struct {
	dispatcher *Dispatcher
	recorded   []string
	results    []TriggerResult
}

func (ctx *dispatcherBDDContext) reset() {
	ctx.dispatcher = nil
	ctx.recorded = nil
	ctx.results = nil
}

func (ctx *dispatcherBDDContext) iHaveANewDispatcher() error {
	d, err := New()
	if err != nil {
		return err
	}
	ctx.dispatcher = d
	return nil
}

func (ctx *dispatcherBDDContext) recordingHandler(_ context.Context, _ string, args ...any) error {
	for _, arg := range args {
		ctx.recorded = append(ctx.recorded, fmt.Sprint(arg))
	}
	return nil
}

func (ctx *dispatcherBDDContext) iRegisterARecordingHandlerFor(event string) error {
	return ctx.dispatcher.Register(event, ctx.recordingHandler)
}

func (ctx *dispatcherBDDContext) iRegisterAFailingHandlerFor(event string) error {
	return ctx.dispatcher.Register(event, func(context.Context, string, ...any) error {
		return errCallbackFailsOnPurpose
	})
}

func (ctx *dispatcherBDDContext) iRegisterAProtectedOnlyHandlerFor(event string) error {
	return ctx.dispatcher.RegisterProtectedOnly(event, ctx.recordingHandler)
}

func (ctx *dispatcherBDDContext) theHostEntersABlockingState() error {
	if ctx.dispatcher == nil {
		return errDispatcherNotCreated
	}
	ctx.dispatcher.OnBlockingStateEnter()
	return nil
}

func (ctx *dispatcherBDDContext) theHostExitsTheBlockingState() error {
	ctx.dispatcher.OnBlockingStateExit()
	return nil
}

func (ctx *dispatcherBDDContext) iTriggerWithArgument(event, arg string) error {
	ctx.results = append(ctx.results, ctx.dispatcher.Trigger(context.Background(), event, arg))
	return nil
}

func (ctx *dispatcherBDDContext) iTriggerTimes(event string, count int) error {
	for i := 0; i < count; i++ {
		ctx.results = append(ctx.results, ctx.dispatcher.Trigger(context.Background(), event))
	}
	return nil
}

func (ctx *dispatcherBDDContext) iFlushTheQueue() error {
	ctx.dispatcher.Flush(context.Background())
	return nil
}

func (ctx *dispatcherBDDContext) theHandlerShouldHaveRecorded(want string) error {
	for _, got := range ctx.recorded {
		if got == want {
			return nil
		}
	}
	if len(ctx.recorded) == 0 {
		return errHandlerRecordedNothing
	}
	return fmt.Errorf("recorded %v, want %q: %w", ctx.recorded, want, errHandlerRecordedNothing)
}

func (ctx *dispatcherBDDContext) theHandlerShouldNotHaveRun() error {
	if len(ctx.recorded) > 0 {
		return fmt.Errorf("%w: recorded %v", errHandlerRan, ctx.recorded)
	}
	return nil
}

func (ctx *dispatcherBDDContext) theHandlersShouldHaveRunInOrder(order string) error {
	got := strings.Join(ctx.recorded, ",")
	if got != order {
		return fmt.Errorf("%w: got %q, want %q", errUnexpectedOrder, got, order)
	}
	return nil
}

func (ctx *dispatcherBDDContext) theTriggerStatusShouldBe(want string) error {
	if len(ctx.results) == 0 {
		return errNoTriggerResults
	}
	got := ctx.results[len(ctx.results)-1].Status
	if string(got) != want {
		return fmt.Errorf("%w: got %q, want %q", errUnexpectedStatus, got, want)
	}
	return nil
}

func (ctx *dispatcherBDDContext) theLastTriggerStatusesShouldBe(count int, want string) error {
	if len(ctx.results) < count {
		return errNoTriggerResults
	}
	for _, result := range ctx.results[len(ctx.results)-count:] {
		if string(result.Status) != want {
			return fmt.Errorf("%w: got %q, want %q", errUnexpectedStatus, result.Status, want)
		}
	}
	return nil
}

func (ctx *dispatcherBDDContext) theQueueShouldContainItems(count int) error {
	if got := ctx.dispatcher.QueueSize(); got != count {
		return fmt.Errorf("%w: got %d, want %d", errUnexpectedQueueSize, got, count)
	}
	return nil
}

func (ctx *dispatcherBDDContext) theCallbackShouldBeDisabled(event string) error {
	if !ctx.dispatcher.health.Disabled(event) {
		return fmt.Errorf("%w: %q should be disabled", errCallbackEnabledState, event)
	}
	return nil
}

func (ctx *dispatcherBDDContext) theCallbackShouldNotBeDisabled(event string) error {
	if ctx.dispatcher.health.Disabled(event) {
		return fmt.Errorf("%w: %q should not be disabled", errCallbackEnabledState, event)
	}
	return nil
}

func (ctx *dispatcherBDDContext) theCallbackShouldHaveRecordedCalls(event string, count int) error {
	record, ok := ctx.dispatcher.CallbackHealth(event)
	if !ok {
		return fmt.Errorf("%w: %q", errNoHealthRecord, event)
	}
	if record.TotalCalls != uint64(count) {
		return fmt.Errorf("%w: %q has %d, want %d", errUnexpectedCallCount, event, record.TotalCalls, count)
	}
	return nil
}

func (ctx *dispatcherBDDContext) iReenableTheCallback(event string) error {
	return ctx.dispatcher.ReenableCallback(event)
}

func (ctx *dispatcherBDDContext) triggeringShouldExecuteTheHandlerAgain(event string) error {
	result := ctx.dispatcher.Trigger(context.Background(), event)
	if result.Status != StatusExecuted {
		return fmt.Errorf("%w: got %q, want %q", errUnexpectedStatus, result.Status, StatusExecuted)
	}
	return nil
}

// InitializeDispatcherScenario wires the lifecycle step definitions.
func InitializeDispatcherScenario(ctx *godog.ScenarioContext) {
	testCtx := &dispatcherBDDContext{}

	// Reset context before each scenario
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.reset()
		return ctx, nil
	})

	// Background steps
	ctx.Step(`^I have a new dispatcher$`, testCtx.iHaveANewDispatcher)

	// Registration steps
	ctx.Step(`^I register a recording handler for "([^"]*)"$`, testCtx.iRegisterARecordingHandlerFor)
	ctx.Step(`^I register a failing handler for "([^"]*)"$`, testCtx.iRegisterAFailingHandlerFor)
	ctx.Step(`^I register a protected-only handler for "([^"]*)"$`, testCtx.iRegisterAProtectedOnlyHandlerFor)

	// Blocking state steps
	ctx.Step(`^the host enters a blocking state$`, testCtx.theHostEntersABlockingState)
	ctx.Step(`^the host exits the blocking state$`, testCtx.theHostExitsTheBlockingState)

	// Trigger and flush steps
	ctx.Step(`^I trigger "([^"]*)" with argument "([^"]*)"$`, testCtx.iTriggerWithArgument)
	ctx.Step(`^I trigger "([^"]*)" (\d+) times$`, testCtx.iTriggerTimes)
	ctx.Step(`^I flush the queue$`, testCtx.iFlushTheQueue)

	// Assertion steps
	ctx.Step(`^the handler should have recorded "([^"]*)"$`, testCtx.theHandlerShouldHaveRecorded)
	ctx.Step(`^the handler should not have run$`, testCtx.theHandlerShouldNotHaveRun)
	ctx.Step(`^the handlers should have run in order "([^"]*)"$`, testCtx.theHandlersShouldHaveRunInOrder)
	ctx.Step(`^the trigger status should be "([^"]*)"$`, testCtx.theTriggerStatusShouldBe)
	ctx.Step(`^the last (\d+) trigger statuses should be "([^"]*)"$`, testCtx.theLastTriggerStatusesShouldBe)
	ctx.Step(`^the queue should contain (\d+) items?$`, testCtx.theQueueShouldContainItems)

	// Circuit breaker steps
	ctx.Step(`^the callback "([^"]*)" should be disabled$`, testCtx.theCallbackShouldBeDisabled)
	ctx.Step(`^the callback "([^"]*)" should not be disabled$`, testCtx.theCallbackShouldNotBeDisabled)
	ctx.Step(`^the callback "([^"]*)" should have (\d+) recorded calls$`, testCtx.theCallbackShouldHaveRecordedCalls)
	ctx.Step(`^I re-enable the callback "([^"]*)"$`, testCtx.iReenableTheCallback)
	ctx.Step(`^triggering "([^"]*)" should execute the handler again$`, testCtx.triggeringShouldExecuteTheHandlerAgain)
}

// TestDispatcherLifecycle runs the BDD tests for the dispatcher lifecycle
func TestDispatcherLifecycle(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeDispatcherScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/dispatcher_lifecycle.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
