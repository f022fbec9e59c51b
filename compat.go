package dispatch

import "context"

// Legacy-compatible alias surface for callers migrating from the original
// embedded callback mixin. The aliases carry no additional semantics.

// Fire is a legacy alias for Trigger.
func (d *Dispatcher) Fire(ctx context.Context, event string, args ...any) TriggerResult {
	return d.Trigger(ctx, event, args...)
}

// AddListener is a legacy alias for Register.
func (d *Dispatcher) AddListener(event string, handler Handler) error {
	return d.Register(event, handler)
}

// NewCallbackHandler is a legacy factory alias for New. Option errors are
// not surfaced the way New surfaces them; construction falls back to the
// defaults when an option fails, matching the original factory's forgiving
// behavior.
func NewCallbackHandler(opts ...Option) *Dispatcher {
	d, err := New(opts...)
	if err != nil {
		d, _ = New()
	}
	return d
}
