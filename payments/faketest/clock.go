package faketest

import (
	"context"
	"sync"
	"time"
)

// Clock is a controllable payments.Clock fake.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock constructs a Clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now implements payments.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeper is a payments.Sleeper fake that never actually blocks; it
// records every requested duration so tests can assert on backoff timing
// without waiting for it.
type Sleeper struct {
	mu    sync.Mutex
	Sleeps []time.Duration
}

// NewSleeper constructs an empty Sleeper fake.
func NewSleeper() *Sleeper {
	return &Sleeper{}
}

// Sleep implements payments.Sleeper by recording d and returning immediately.
func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sleeps = append(s.Sleeps, d)
}

// Durations returns a snapshot of every recorded sleep duration, in order.
func (s *Sleeper) Durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.Sleeps))
	copy(out, s.Sleeps)
	return out
}
