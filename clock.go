package dispatch

import "time"

// Clock abstracts the time source used for queue timestamps, health records,
// and taint log entries. Production code uses the real clock; tests can
// substitute a deterministic implementation.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// realClock reads the system clock.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
