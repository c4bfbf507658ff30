// Package timeutil provides a testable abstraction over time operations used
// by the calibration sequencer and the tracker's mode-settle delays.
package timeutil

import (
	"sync"
	"time"
)

// Clock abstracts the time operations the tracker needs so tests can run
// paced sequences instantly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the duration since t.
	Since(t time.Time) time.Duration
	// Sleep pauses for the specified duration.
	Sleep(d time.Duration)
	// After waits for the duration to elapse and then sends the current time.
	After(d time.Duration) <-chan time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                         { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration        { return time.Since(t) }
func (RealClock) Sleep(d time.Duration)                  { time.Sleep(d) }
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// MockClock is a manually advanced clock for tests. Sleep returns
// immediately; After fires as soon as Advance has moved the clock past the
// requested duration.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
}

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

// NewMockClock returns a MockClock starting at the given time.
func NewMockClock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Sleep advances the clock by d and returns immediately.
func (c *MockClock) Sleep(d time.Duration) {
	c.Advance(d)
}

func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, waiter{deadline: c.now.Add(d), ch: ch})
	return ch
}

// Advance moves the clock forward and fires any waiters whose deadline has
// passed.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			w.ch <- c.now
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}
