package adapter

import "time"

// Clock defines an interface for time operations to enable mocking
//
//go:generate mockgen -source=clock.go -destination=../mocks/clock.go -package=mocks -mock_names=Clock=MockClock
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the standard time package
type RealClock struct{}

// NewClock creates a new real clock implementation
func NewClock() Clock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// FixedClock is a Clock frozen at a single instant. Processing windows and
// "recent" filters computed against it are reproducible.
type FixedClock struct {
	At time.Time
}

// NewFixedClock creates a clock that always reports t
func NewFixedClock(t time.Time) Clock {
	return &FixedClock{At: t.UTC()}
}

func (c *FixedClock) Now() time.Time {
	return c.At
}

func (c *FixedClock) Since(t time.Time) time.Duration {
	return c.At.Sub(t)
}

func (c *FixedClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.At.Add(d)
	return ch
}
