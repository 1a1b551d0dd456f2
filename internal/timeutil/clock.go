// Package timeutil provides the time sources sessions evaluate against.
package timeutil

import (
	"sync"
	"time"
)

// Clock provides the current time. Sessions take their "now" from a Clock
// so replays and tests can drive time explicitly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a manually controlled clock for testing.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a new MockClock set to the given time.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

// Now returns the mocked current time.
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set sets the mock clock to a specific time.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the mock clock forward by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StreamClock maps offsets carried by a recorded stream onto wall time.
// Offsets are measured from the first frame; frames without one fall back
// to the wrapped Clock.
type StreamClock struct {
	mu       sync.Mutex
	fallback Clock
	epoch    time.Time
	started  bool
	offset   time.Duration
}

// NewStreamClock returns a StreamClock whose epoch is fixed by the first
// call to At.
func NewStreamClock(fallback Clock) *StreamClock {
	if fallback == nil {
		fallback = RealClock{}
	}
	return &StreamClock{fallback: fallback}
}

// At returns the time for a frame carrying offset. The first offset seen
// anchors the stream at the fallback clock's current time.
func (c *StreamClock) At(offset time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		c.epoch = c.fallback.Now()
		c.offset = offset
		c.started = true
	}
	return c.epoch.Add(offset - c.offset)
}

// Now returns the fallback clock's time.
func (c *StreamClock) Now() time.Time {
	return c.fallback.Now()
}

var (
	_ Clock = RealClock{}
	_ Clock = (*MockClock)(nil)
	_ Clock = (*StreamClock)(nil)
)
