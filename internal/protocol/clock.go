package protocol

import "time"

// Clock supplies the current time. The core never calls time.Now directly;
// every timestamp comes from an injected Clock so ticks stay deterministic
// under test.
type Clock func() time.Time

// RealClock returns a Clock backed by the system wall clock.
func RealClock() Clock {
	return time.Now
}

// FixedClock returns a Clock that always reports t, useful for tests that
// need a stable "now".
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
