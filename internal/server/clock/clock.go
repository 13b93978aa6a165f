// Package clock abstracts wall-clock access so token-ordering behavior can be
// tested deterministically.
package clock

import "time"

// Clock supplies the current instant. Implementations must be safe for
// concurrent use.
type Clock interface {
	Now() time.Time
}

// System is the real wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }
