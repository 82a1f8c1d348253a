package quiz

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, tm *Timer) {
	t.Helper()
	select {
	case <-tm.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not stop")
	}
}

func TestTimerStopsWhenTickReturnsFalse(t *testing.T) {
	var ticks atomic.Int32
	tm := StartTimer(context.Background(), time.Millisecond, func() bool {
		return ticks.Add(1) < 3
	})

	waitDone(t, tm)
	assert.Equal(t, int32(3), ticks.Load())
}

func TestTimerStop(t *testing.T) {
	var ticks atomic.Int32
	tm := StartTimer(context.Background(), time.Millisecond, func() bool {
		ticks.Add(1)
		return true
	})

	require.Eventually(t, func() bool { return ticks.Load() > 0 }, time.Second, time.Millisecond)
	tm.Stop()
	tm.Stop()
	waitDone(t, tm)

	after := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestTimerStopFromInsideTick(t *testing.T) {
	var tm *Timer
	ready := make(chan struct{})
	var ticks atomic.Int32
	tm = StartTimer(context.Background(), time.Millisecond, func() bool {
		<-ready
		ticks.Add(1)
		tm.Stop()
		return true
	})
	close(ready)

	waitDone(t, tm)
	assert.Equal(t, int32(1), ticks.Load())
}

func TestTimerParentContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tm := StartTimer(ctx, time.Hour, func() bool { return true })
	cancel()
	waitDone(t, tm)
}
