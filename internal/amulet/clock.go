package amulet

import "time"

// Clock tells time and runs delayed callbacks. AfterFunc returns the function that
// cancels the callback, reporting whether it was still pending.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func (realClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

func NewClock() Clock {
	return realClock{}
}
