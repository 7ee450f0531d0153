package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualTickSource_AdvanceFiresLiveTickers(t *testing.T) {
	src := NewManualTickSource()

	var a, b int
	ta := src.Every(time.Second, func() { a++ })
	src.Every(time.Second, func() { b++ })

	src.Advance(3)
	assert.Equal(t, 3, a)
	assert.Equal(t, 3, b)

	ta.Stop()
	ta.Stop() // idempotent
	src.Advance(2)
	assert.Equal(t, 3, a, "stopped ticker must not fire")
	assert.Equal(t, 5, b)
	assert.Equal(t, 1, src.Active())
	assert.Equal(t, 2, src.Created())
}

func TestManualTickSource_StopDuringRound(t *testing.T) {
	src := NewManualTickSource()

	var second Ticker
	var firstCalls, secondCalls int
	src.Every(time.Second, func() {
		firstCalls++
		second.Stop()
	})
	second = src.Every(time.Second, func() { secondCalls++ })

	src.Advance(1)

	assert.Equal(t, 1, firstCalls)
	assert.Equal(t, 0, secondCalls, "ticker stopped earlier in the round must be skipped")
}

func TestSystemTickSource_FiresUntilStopped(t *testing.T) {
	var n atomic.Int32
	tk := SystemTickSource{}.Every(5*time.Millisecond, func() { n.Add(1) })

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)

	tk.Stop()
	tk.Stop()
	time.Sleep(20 * time.Millisecond)
	stopped := n.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, n.Load(), "no ticks after Stop")
}

func TestIdleTickSource_NeverFires(t *testing.T) {
	fired := false
	tk := IdleTickSource{}.Every(time.Millisecond, func() { fired = true })
	time.Sleep(10 * time.Millisecond)
	tk.Stop()

	assert.False(t, fired)
}

const (
	millisecond = time.Millisecond
	testWait    = 5 * time.Second
)
