package fsm

import "time"

// AfterFunc schedules f to run after d and returns a function that cancels
// it. Machines that wait use one so tests can drive time by hand.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

// StdAfterFunc schedules with time.AfterFunc.
func StdAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
