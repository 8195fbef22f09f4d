package throttle

import (
	"sort"
	"time"
)

// ManualClock is a clock that only moves forward when told to. Callbacks run
// synchronously from Advance. It is meant to be used in tests.
type ManualClock struct {
	now    time.Time
	seq    int
	timers []*manualTimer
}

// NewManualClock creates a manual clock that starts at the given time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.seq++
	t := &manualTimer{
		clock: c,
		at:    c.now.Add(d),
		seq:   c.seq,
		f:     f,
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs the callbacks that are due, in
// schedule order. Callbacks scheduled by other callbacks run too when they
// are due before the new time.
func (c *ManualClock) Advance(d time.Duration) {
	end := c.now.Add(d)

	for {
		t := c.next(end)
		if t == nil {
			break
		}

		c.remove(t)
		if t.at.After(c.now) {
			c.now = t.at
		}
		t.f()
	}

	c.now = end
}

// Scheduled returns the number of callbacks that are waiting to run.
func (c *ManualClock) Scheduled() int {
	return len(c.timers)
}

func (c *ManualClock) next(end time.Time) *manualTimer {
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].at.Equal(c.timers[j].at) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].at.Before(c.timers[j].at)
	})

	if len(c.timers) == 0 || c.timers[0].at.After(end) {
		return nil
	}
	return c.timers[0]
}

func (c *ManualClock) remove(t *manualTimer) bool {
	for i, timer := range c.timers {
		if timer == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

type manualTimer struct {
	clock *ManualClock
	at    time.Time
	seq   int
	f     func()
}

func (t *manualTimer) Stop() bool {
	return t.clock.remove(t)
}
