package verification

import (
	"errors"
	"time"
)

// errBackendTimeout marks a backend call that lost the race against its
// deadline. The caller falls back to the local tier; it is never surfaced.
var errBackendTimeout = errors.New("verification backend timed out")

type outcome[T any] struct {
	val T
	err error
}

// race runs op against a deadline and returns whichever finishes first.
// On timeout the op goroutine is abandoned, not cancelled: it may still
// complete against the backend, but its result is discarded. The result
// channel is buffered so the abandoned goroutine can exit.
func race[T any](deadline time.Duration, op func() (T, error)) (T, error) {
	done := make(chan outcome[T], 1)
	go func() {
		v, err := op()
		done <- outcome[T]{val: v, err: err}
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.val, out.err
	case <-timer.C:
		var zero T
		return zero, errBackendTimeout
	}
}
