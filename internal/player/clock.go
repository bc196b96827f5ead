package player

import "time"

// Clock abstracts time for the session manager so tests can drive the
// countdown with a fake instead of sleeping.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the cancellable handle returned by AfterFunc. Stop reports
// whether the call prevented the function from firing.
type Timer interface {
	Stop() bool
}

// RealClock delegates to the time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

func (RealClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
