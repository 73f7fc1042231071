package data

import "time"

// TimeProvider supplies the timestamps repositories write.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

// Now returns time.Now.
func (RealTimeProvider) Now() time.Time { return time.Now() }

// FixedTimeProvider returns a settable instant, for tests.
type FixedTimeProvider struct {
	at time.Time
}

// NewFixedTimeProvider starts the clock at t.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{at: t}
}

// Now returns the current fixed instant.
func (f *FixedTimeProvider) Now() time.Time { return f.at }

// AddTime moves the clock forward by d.
func (f *FixedTimeProvider) AddTime(d time.Duration) { f.at = f.at.Add(d) }
