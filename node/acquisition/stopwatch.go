package acquisition

import "time"

// Stopwatch reports the time between successive Step calls.
type Stopwatch struct {
	last time.Time
}

// NewStopwatch starts the stopwatch at now.
func NewStopwatch(now time.Time) *Stopwatch {
	return &Stopwatch{last: now}
}

// Step returns the time since the previous Step (or since the stopwatch
// started) and restarts it at now. Never negative.
func (s *Stopwatch) Step(now time.Time) time.Duration {
	d := now.Sub(s.last)
	s.last = now
	if d < 0 {
		return 0
	}
	return d
}

// Elapsed returns the time since the last Step without restarting.
func (s *Stopwatch) Elapsed(now time.Time) time.Duration {
	if d := now.Sub(s.last); d > 0 {
		return d
	}
	return 0
}
