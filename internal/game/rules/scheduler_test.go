package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerCadences(t *testing.T) {
	t.Run("fixed cadence runs at its own rate", func(t *testing.T) {
		s := NewScheduler(nil)
		fixedRuns := 0
		tickRuns := 0
		require.NoError(t, s.Fixed("spatial", 20*time.Millisecond, func(dt time.Duration) {
			assert.Equal(t, 20*time.Millisecond, dt)
			fixedRuns++
		}))
		s.EveryTick("update", func(time.Duration) { tickRuns++ })

		for i := 0; i < 10; i++ {
			s.Step(5 * time.Millisecond)
		}

		assert.Equal(t, 10, tickRuns)
		assert.Equal(t, 2, fixedRuns)
		assert.Equal(t, 50*time.Millisecond, s.Elapsed())
	})

	t.Run("fixed systems run before tick systems", func(t *testing.T) {
		s := NewScheduler(nil)
		var order []string
		require.NoError(t, s.Fixed("fixed", 10*time.Millisecond, func(time.Duration) { order = append(order, "fixed") }))
		s.EveryTick("tick", func(time.Duration) { order = append(order, "tick") })

		s.Step(10 * time.Millisecond)
		assert.Equal(t, []string{"fixed", "tick"}, order)
	})

	t.Run("catch-up is bounded", func(t *testing.T) {
		s := NewScheduler(nil)
		runs := 0
		require.NoError(t, s.Fixed("fixed", time.Millisecond, func(time.Duration) { runs++ }))
		s.Step(time.Second)
		assert.Equal(t, maxFixedStepsPerTick, runs)
	})

	t.Run("invalid interval", func(t *testing.T) {
		s := NewScheduler(nil)
		assert.Error(t, s.Fixed("broken", 0, func(time.Duration) {}))
		assert.Error(t, s.Fixed("nil", time.Second, nil))
	})
}

func TestSchedulerAdvanceUsesClock(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	s := NewScheduler(clock)

	var seen []time.Duration
	s.EveryTick("update", func(dt time.Duration) { seen = append(seen, dt) })

	assert.Equal(t, time.Duration(0), s.Advance())
	assert.Empty(t, seen)

	clock.Advance(16 * time.Millisecond)
	assert.Equal(t, 16*time.Millisecond, s.Advance())

	clock.Advance(34 * time.Millisecond)
	s.Advance()

	assert.Equal(t, []time.Duration{16 * time.Millisecond, 34 * time.Millisecond}, seen)
}

func TestSchedulerTimers(t *testing.T) {
	t.Run("fires once when due", func(t *testing.T) {
		s := NewScheduler(nil)
		fired := 0
		timer := s.AfterFunc(3*time.Second, func() { fired++ })

		s.Step(2 * time.Second)
		assert.Equal(t, 0, fired)
		assert.True(t, timer.Pending())

		s.Step(time.Second)
		assert.Equal(t, 1, fired)
		assert.False(t, timer.Pending())

		s.Step(10 * time.Second)
		assert.Equal(t, 1, fired)
		assert.False(t, timer.Stop())
	})

	t.Run("stop cancels", func(t *testing.T) {
		s := NewScheduler(nil)
		fired := false
		timer := s.AfterFunc(time.Second, func() { fired = true })
		assert.True(t, timer.Stop())
		s.Step(2 * time.Second)
		assert.False(t, fired)
		assert.False(t, timer.Pending())
	})

	t.Run("close cancels pending timers", func(t *testing.T) {
		s := NewScheduler(nil)
		fired := false
		timer := s.AfterFunc(time.Second, func() { fired = true })
		s.Close()
		s.Close()
		s.Step(2 * time.Second)
		assert.False(t, fired)
		assert.False(t, timer.Pending())

		late := s.AfterFunc(0, func() { fired = true })
		assert.False(t, late.Pending())
	})

	t.Run("due timers fire in order", func(t *testing.T) {
		s := NewScheduler(nil)
		var order []string
		s.AfterFunc(2*time.Second, func() { order = append(order, "b") })
		s.AfterFunc(time.Second, func() { order = append(order, "a") })
		s.Step(5 * time.Second)
		assert.Equal(t, []string{"a", "b"}, order)
	})

	t.Run("timer scheduled from a timer waits for the next step", func(t *testing.T) {
		s := NewScheduler(nil)
		inner := false
		s.AfterFunc(0, func() {
			s.AfterFunc(0, func() { inner = true })
		})
		s.Step(0)
		assert.False(t, inner)
		s.Step(0)
		assert.True(t, inner)
	})
}
