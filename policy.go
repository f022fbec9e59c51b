package dispatch

// Action is the outcome kind of an execution-policy decision.
type Action int

const (
	// ActionExecuteDirect runs the handlers immediately with no protection
	// boundary.
	ActionExecuteDirect Action = iota

	// ActionExecuteProtected runs the handlers immediately inside the
	// protected-call boundary.
	ActionExecuteProtected

	// ActionDefer enqueues the invocation at the decision's priority.
	ActionDefer
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionExecuteDirect:
		return "execute_direct"
	case ActionExecuteProtected:
		return "execute_protected"
	case ActionDefer:
		return "defer"
	default:
		return "unknown"
	}
}

// Decision is the result of resolving the execution policy for one trigger.
// Priority is only meaningful when Action is ActionDefer.
type Decision struct {
	Action   Action
	Priority Priority
}

// Classifier resolves an event name to its category. Decide takes it as a
// parameter so classification stays testable in isolation; Classify is the
// production implementation.
type Classifier func(event string) EventCategory

// Decide resolves whether a trigger executes immediately, executes under the
// protected-call boundary, or is deferred, and at which tier. The rules are
// evaluated in order:
//
//  1. Blocking inactive: protected-only events defer into the secure tier;
//     everything else executes immediately.
//  2. Blocking active, mode unsafe: execute directly (caller accepts risk).
//  3. Blocking active, mode secure-only: defer into the secure tier.
//  4. Blocking active, mode auto: defer, tier chosen by classification.
//  5. Blocking active, mode safe: defer into the normal tier.
//
// For immediate execution, protection is elected when the mode is anything
// but unsafe and either blocking is active or the mode is safe.
func Decide(event string, blockingActive bool, mode ExecutionMode, protectedOnly bool, classify Classifier) Decision {
	if !blockingActive {
		if protectedOnly {
			return Decision{Action: ActionDefer, Priority: PrioritySecure}
		}
		return Decision{Action: immediateAction(blockingActive, mode)}
	}

	switch mode {
	case ModeUnsafe:
		return Decision{Action: immediateAction(blockingActive, mode)}
	case ModeSecureOnly:
		return Decision{Action: ActionDefer, Priority: PrioritySecure}
	case ModeAuto:
		return Decision{Action: ActionDefer, Priority: classify(event).DeferPriority()}
	default: // ModeSafe
		return Decision{Action: ActionDefer, Priority: PriorityNormal}
	}
}

// immediateAction picks direct versus protected execution. Unsafe always runs
// direct; every other mode runs protected while blocking is active, and safe
// elects protection even outside the blocking window.
func immediateAction(blockingActive bool, mode ExecutionMode) Action {
	if mode == ModeUnsafe {
		return ActionExecuteDirect
	}
	if blockingActive || mode == ModeSafe {
		return ActionExecuteProtected
	}
	return ActionExecuteDirect
}
