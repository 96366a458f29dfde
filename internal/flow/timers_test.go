package flow

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleReplacesPreviousTimer(t *testing.T) {
	r := NewTimerRegistry()
	defer r.Stop()

	var first, second atomic.Int32
	r.Schedule("k", 10*time.Millisecond, func() { first.Add(1) })
	r.Schedule("k", 10*time.Millisecond, func() { second.Add(1) })

	require.Eventually(t, func() bool {
		return second.Load() == 1
	}, time.Second, 2*time.Millisecond)

	// the replaced timer must never fire
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, 0, r.Active())
}

func TestCancelIsIdempotent(t *testing.T) {
	r := NewTimerRegistry()
	defer r.Stop()

	var fired atomic.Int32
	r.Schedule("k", 10*time.Millisecond, func() { fired.Add(1) })
	r.Cancel("k")
	r.Cancel("k")
	r.Cancel("never-existed")

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 0, r.Active())
}

func TestCancelAfterFireIsNoop(t *testing.T) {
	r := NewTimerRegistry()
	defer r.Stop()

	var fired atomic.Int32
	r.Schedule("k", time.Millisecond, func() { fired.Add(1) })

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, time.Millisecond)

	r.Cancel("k")
	assert.Equal(t, int32(1), fired.Load())
}

func TestAfterFiresIndependently(t *testing.T) {
	r := NewTimerRegistry()

	var fired atomic.Int32
	r.After(time.Millisecond, func() { fired.Add(1) })
	r.Stop()

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, time.Millisecond)
}
