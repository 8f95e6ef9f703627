package models

import "time"

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock supplies the current time and schedules tick callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock uses the wall clock and runtime timers.
var SystemClock Clock = systemClock{}

// Unix returns c's current time as whole UTC epoch seconds.
func Unix(c Clock) int64 {
	return c.Now().UTC().Unix()
}
