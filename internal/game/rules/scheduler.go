package rules

import (
	"fmt"
	"sort"
	"time"
)

// maxFixedStepsPerTick bounds catch-up work after a long stall.
const maxFixedStepsPerTick = 8

// SystemFunc is a simulation system. dt is the simulated time it covers.
type SystemFunc func(dt time.Duration)

type fixedCadence struct {
	name     string
	interval time.Duration
	acc      time.Duration
	fn       SystemFunc
}

type tickSystem struct {
	name string
	fn   SystemFunc
}

// Timer is a deferred task owned by a Scheduler.
type Timer struct {
	due     time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// Stop cancels the timer. It returns true if the call prevented it from firing.
func (t *Timer) Stop() bool {
	if t == nil || t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Pending reports whether the timer will still fire.
func (t *Timer) Pending() bool {
	return t != nil && !t.stopped && !t.fired
}

// Scheduler advances a simulation in discrete steps. Each step first runs the
// fixed cadences (zero or more times each, driven by an accumulator), then
// every per-tick system once, then any timers that came due.
type Scheduler struct {
	clock   Clock
	last    time.Time
	started bool
	elapsed time.Duration
	fixed   []*fixedCadence
	ticks   []tickSystem
	timers  []*Timer
	seq     int
	closed  bool
}

// NewScheduler creates a scheduler reading time from clock. A nil clock
// falls back to the system clock.
func NewScheduler(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{clock: clock}
}

// Fixed registers a system that runs once per interval of simulated time.
func (s *Scheduler) Fixed(name string, interval time.Duration, fn SystemFunc) error {
	if interval <= 0 {
		return fmt.Errorf("cadence %q: interval must be positive, got %s", name, interval)
	}
	if fn == nil {
		return fmt.Errorf("cadence %q: nil system", name)
	}
	s.fixed = append(s.fixed, &fixedCadence{name: name, interval: interval, fn: fn})
	return nil
}

// EveryTick registers a system that runs on every step.
func (s *Scheduler) EveryTick(name string, fn SystemFunc) {
	if fn == nil {
		return
	}
	s.ticks = append(s.ticks, tickSystem{name: name, fn: fn})
}

// AfterFunc schedules fn to run once delay of simulated time has passed.
func (s *Scheduler) AfterFunc(delay time.Duration, fn func()) *Timer {
	s.seq++
	t := &Timer{due: s.elapsed + delay, seq: s.seq, fn: fn}
	if s.closed || fn == nil {
		t.stopped = true
		return t
	}
	s.timers = append(s.timers, t)
	return t
}

// Advance steps the simulation by the clock time elapsed since the previous
// call. The first call only records the starting time.
func (s *Scheduler) Advance() time.Duration {
	now := s.clock.Now()
	if !s.started {
		s.started = true
		s.last = now
		return 0
	}
	dt := now.Sub(s.last)
	s.last = now
	if dt < 0 {
		dt = 0
	}
	s.Step(dt)
	return dt
}

// Step advances the simulation by dt.
func (s *Scheduler) Step(dt time.Duration) {
	if s.closed {
		return
	}
	s.elapsed += dt

	for _, c := range s.fixed {
		c.acc += dt
		runs := 0
		for c.acc >= c.interval && runs < maxFixedStepsPerTick {
			c.fn(c.interval)
			c.acc -= c.interval
			runs++
		}
		if runs == maxFixedStepsPerTick {
			c.acc %= c.interval
		}
	}

	for _, sys := range s.ticks {
		sys.fn(dt)
	}

	s.fireTimers()
}

func (s *Scheduler) fireTimers() {
	if len(s.timers) == 0 {
		return
	}
	due := make([]*Timer, 0, len(s.timers))
	keep := s.timers[:0]
	for _, t := range s.timers {
		switch {
		case t.stopped:
		case t.due <= s.elapsed:
			due = append(due, t)
		default:
			keep = append(keep, t)
		}
	}
	s.timers = keep

	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		if t.stopped || s.closed {
			continue
		}
		t.fired = true
		t.fn()
	}
}

// Elapsed returns the total simulated time.
func (s *Scheduler) Elapsed() time.Duration {
	return s.elapsed
}

// Close cancels every pending timer and stops the scheduler. It is safe to
// call more than once.
func (s *Scheduler) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}
