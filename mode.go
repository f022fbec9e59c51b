package dispatch

import "fmt"

// ExecutionMode controls how the dispatcher treats a trigger while the
// blocking state is active, and whether immediate execution runs under the
// protected-call boundary.
type ExecutionMode int

const (
	// ModeSafe defers execution while blocking is active and always runs
	// handlers under the protected-call boundary otherwise.
	ModeSafe ExecutionMode = iota

	// ModeUnsafe executes handlers directly even while blocking is active.
	// The caller accepts the risk of running in a restricted window.
	ModeUnsafe

	// ModeAuto defers while blocking is active, picking the queue tier from
	// the event classification; outside blocking it executes directly.
	ModeAuto

	// ModeSecureOnly restricts handlers to the blocking (privileged) window.
	// Triggers outside that window are deferred into the secure tier.
	ModeSecureOnly
)

// String returns the string representation of the execution mode.
func (m ExecutionMode) String() string {
	switch m {
	case ModeSafe:
		return "safe"
	case ModeUnsafe:
		return "unsafe"
	case ModeAuto:
		return "auto"
	case ModeSecureOnly:
		return "secure_only"
	default:
		return "unknown"
	}
}

// Valid reports whether the mode is one of the recognized enum values.
func (m ExecutionMode) Valid() bool {
	switch m {
	case ModeSafe, ModeUnsafe, ModeAuto, ModeSecureOnly:
		return true
	default:
		return false
	}
}

// ParseExecutionMode parses a string into an ExecutionMode.
func ParseExecutionMode(s string) (ExecutionMode, error) {
	switch s {
	case "safe":
		return ModeSafe, nil
	case "unsafe":
		return ModeUnsafe, nil
	case "auto":
		return ModeAuto, nil
	case "secure_only":
		return ModeSecureOnly, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidExecutionMode, s)
	}
}

// Priority names one of the three deferred-queue tiers. The ordering
// PrioritySecure > PriorityHigh > PriorityNormal applies to reporting and
// sorting only; queue draining is FIFO within each tier.
type Priority int

const (
	// PriorityNormal is the default tier for deferred work.
	PriorityNormal Priority = iota

	// PriorityHigh is the tier for combat-critical classified events.
	PriorityHigh

	// PrioritySecure is the tier for protected-only events; its items remain
	// eligible for draining even while blocking is active.
	PrioritySecure
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "priority"
	case PrioritySecure:
		return "secure"
	default:
		return "unknown"
	}
}

// Valid reports whether the priority is one of the recognized tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityHigh, PrioritySecure:
		return true
	default:
		return false
	}
}

// priorities lists all tiers in descending order for reporting and for the
// drain pass, which services the secure tier first.
var priorities = []Priority{PrioritySecure, PriorityHigh, PriorityNormal}
