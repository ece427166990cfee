package shared

import (
	"context"
	"time"
)

// FetchWithin runs load and waits at most d for its result. When d elapses
// first, pending is true and load keeps running until ctx ends; its result is
// discarded. A non-positive d waits for load to finish.
func FetchWithin[T any](ctx context.Context, d time.Duration, load func(context.Context) (T, error)) (result T, pending bool, err error) {
	if d <= 0 {
		result, err = load(ctx)
		return result, false, err
	}

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := load(ctx)
		done <- outcome{value: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case o := <-done:
		return o.value, false, o.err
	case <-timer.C:
		return result, true, nil
	case <-ctx.Done():
		return result, false, ctx.Err()
	}
}
