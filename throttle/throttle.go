// Package throttle rate limits a function to at most one invocation per wait
// period, with a leading invocation and a trailing one where the last trigger
// wins.
//
// A Throttle is not safe for concurrent use. The Clock it is given must run
// timer callbacks on the same goroutine as the one calling Call and Cancel.
package throttle

import (
	"time"
)

// State describes the state of a throttle.
type State int

const (
	// Nothing ran during the last wait period: the next call runs
	// immediately.
	Idle State = iota

	// A call ran less than a wait period ago: the next calls are deferred
	// to the end of the period.
	Cooling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Cooling:
		return "cooling"
	default:
		return "unknown"
	}
}

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock provides the time and schedules callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Throttle wraps a function so it runs at most once per wait period.
type Throttle struct {
	clock Clock
	wait  time.Duration
	fn    func()

	state      State
	lastRun    time.Time
	pending    bool
	timer      Timer
	generation uint64
}

// New creates a throttle that runs fn at most once every wait. A wait that is
// not greater than 0 disables throttling: every call runs fn immediately.
func New(clock Clock, wait time.Duration, fn func()) *Throttle {
	return &Throttle{
		clock: clock,
		wait:  wait,
		fn:    fn,
	}
}

// Call runs the function immediately when the throttle is idle. Otherwise it
// schedules a trailing run at the end of the current wait period, replacing
// any run already scheduled.
func (t *Throttle) Call() {
	if t.wait <= 0 {
		t.fn()
		return
	}

	if t.state == Idle {
		t.run()
		return
	}

	t.pending = true
}

// Cancel drops the pending trailing run, if any, and returns the throttle to
// idle.
func (t *Throttle) Cancel() {
	t.generation++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = false
	t.state = Idle
}

// State returns the state of the throttle.
func (t *Throttle) State() State {
	return t.state
}

// Pending reports whether a trailing run is scheduled.
func (t *Throttle) Pending() bool {
	return t.pending
}

// LastRun returns the time of the last run.
func (t *Throttle) LastRun() time.Time {
	return t.lastRun
}

func (t *Throttle) run() {
	t.generation++
	generation := t.generation

	t.state = Cooling
	t.pending = false
	t.lastRun = t.clock.Now()
	t.timer = t.clock.AfterFunc(t.wait, func() {
		t.onCooldown(generation)
	})

	t.fn()
}

func (t *Throttle) onCooldown(generation uint64) {
	if generation != t.generation {
		return
	}

	t.timer = nil
	if t.pending {
		t.run()
		return
	}
	t.state = Idle
}

// SystemClock is a clock based on the time package. Its callbacks run on
// their own goroutine and must be marshalled back to the throttle owner.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
