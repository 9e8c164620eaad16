package appcore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_StartsDisarmed(t *testing.T) {
	tm := NewTimer(time.Second, TimerOneShot, nil)
	assert.False(t, tm.Enabled())
	_, armed := tm.Deadline()
	assert.False(t, armed)
	assert.Equal(t, time.Second, tm.Timeout())
	assert.Equal(t, TimerOneShot, tm.Kind())
}

func TestTimer_SetEnabledArmsRelativeToNow(t *testing.T) {
	tm := NewTimer(100*time.Millisecond, TimerOneShot, nil)

	before := time.Now()
	tm.SetEnabled(true)
	after := time.Now()

	deadline, armed := tm.Deadline()
	require.True(t, armed)
	assert.False(t, deadline.Before(before.Add(100*time.Millisecond)))
	assert.False(t, deadline.After(after.Add(100*time.Millisecond)))

	tm.SetEnabled(false)
	_, armed = tm.Deadline()
	assert.False(t, armed)
}

func TestTimer_FireOneShotDisablesBeforeHandler(t *testing.T) {
	var tm *Timer
	var enabledDuringHandler bool
	tm = NewTimer(0, TimerOneShot, func(*Timer) {
		enabledDuringHandler = tm.Enabled()
	})

	tm.SetEnabled(true)
	tm.Fire()

	assert.False(t, enabledDuringHandler, "one-shot disables itself before the handler runs")
	assert.False(t, tm.Enabled())
}

func TestTimer_FirePeriodicRearms(t *testing.T) {
	var fired int
	tm := NewTimer(50*time.Millisecond, TimerPeriodic, func(*Timer) { fired++ })

	tm.SetEnabled(true)
	tm.Fire()
	tm.Fire()

	assert.Equal(t, 2, fired)
	require.True(t, tm.Enabled())
	deadline, armed := tm.Deadline()
	require.True(t, armed)
	assert.True(t, deadline.After(time.Now().Add(25*time.Millisecond)))
}

func TestTimer_FireDisarmedIsNoOp(t *testing.T) {
	var fired int
	tm := NewTimer(0, TimerOneShot, func(*Timer) { fired++ })

	tm.Fire()
	require.Equal(t, 0, fired)
}

func TestTimer_ResetRestartsDelay(t *testing.T) {
	tm := NewTimer(time.Hour, TimerOneShot, nil)
	tm.Reset()
	require.True(t, tm.Enabled())

	first, _ := tm.Deadline()
	time.Sleep(time.Millisecond)
	tm.Reset()
	second, _ := tm.Deadline()
	assert.True(t, second.After(first))
}

func TestTimer_HandlerMayRearmOneShot(t *testing.T) {
	var tm *Timer
	tm = NewTimer(0, TimerOneShot, func(*Timer) {
		tm.Reset()
	})

	tm.SetEnabled(true)
	tm.Fire()
	require.True(t, tm.Enabled(), "handler re-armed the timer")
}
