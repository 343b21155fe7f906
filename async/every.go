// Package async carries the small scheduling helpers shared by the
// service loops.
package async

import (
	"context"
	"time"
)

// RunEvery runs fn on the given interval until the context is cancelled.
// The function runs on one background goroutine started by RunEvery, never
// concurrently with itself.
func RunEvery(ctx context.Context, period time.Duration, fn func()) {
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Debounce consumes events from in and invokes handle once per quiet
// interval: a burst of events collapses into the last one.
func Debounce[T any](ctx context.Context, interval time.Duration, in <-chan T, handle func(T)) {
	var (
		pending T
		armed   bool
		timer   *time.Timer
	)
	timer = time.NewTimer(interval)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				return
			}
			pending = ev
			if armed {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			}
			timer.Reset(interval)
			armed = true
		case <-timer.C:
			if armed {
				handle(pending)
				armed = false
			}
		case <-ctx.Done():
			return
		}
	}
}
