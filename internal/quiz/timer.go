package quiz

import (
	"context"
	"time"
)

// Timer calls a function on a fixed interval until the function returns
// false, Stop is called, or the parent context ends.
type Timer struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartTimer launches the countdown loop in its own goroutine
func StartTimer(ctx context.Context, interval time.Duration, onTick func() bool) *Timer {
	ctx, cancel := context.WithCancel(ctx)
	t := &Timer{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.run(ctx, interval, onTick)
	return t
}

func (t *Timer) run(ctx context.Context, interval time.Duration, onTick func() bool) {
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		close(t.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A tick may race a Stop; re-check before firing
			if ctx.Err() != nil {
				return
			}
			if !onTick() {
				return
			}
		}
	}
}

// Stop cancels the timer. It is safe to call more than once and from
// inside the tick function.
func (t *Timer) Stop() {
	t.cancel()
}

// Done is closed once the loop has exited
func (t *Timer) Done() <-chan struct{} {
	return t.done
}
