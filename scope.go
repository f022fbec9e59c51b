package dispatch

import "context"

// ExecutionScope is the capability tag attached to the context a handler runs
// under. It marks whether the invocation crossed the protected-call boundary.
// The scope is purely a privilege/context marker; it provides no concurrency
// safety and no error-handling behavior of its own (handler failures are
// always captured at the single-handler boundary).
type ExecutionScope int

const (
	// ScopeDirect marks a plain, unprotected invocation.
	ScopeDirect ExecutionScope = iota

	// ScopeProtected marks an invocation made through the protected-call
	// boundary.
	ScopeProtected
)

// String returns the string representation of the execution scope.
func (s ExecutionScope) String() string {
	if s == ScopeProtected {
		return "protected"
	}
	return "direct"
}

type executionScopeKey struct{}

// withExecutionScope tags the context with the scope the handlers run under.
func withExecutionScope(ctx context.Context, scope ExecutionScope) context.Context {
	return context.WithValue(ctx, executionScopeKey{}, scope)
}

// ExecutionScopeFromContext returns the execution scope a handler was invoked
// under. Contexts that never passed through the dispatcher report ScopeDirect.
func ExecutionScopeFromContext(ctx context.Context) ExecutionScope {
	if scope, ok := ctx.Value(executionScopeKey{}).(ExecutionScope); ok {
		return scope
	}
	return ScopeDirect
}
