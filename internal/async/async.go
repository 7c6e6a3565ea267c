// Package async offloads a single blocking vendor call onto a
// goroutine so the caller can suspend on its context instead of
// stalling. One outstanding call per invocation, no queueing, no
// retries: the result or error is delivered to the one awaiting caller.
package async

import "context"

// Task is the pending result of one offloaded call.
type Task[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go starts fn on its own goroutine and returns the task to await.
func Go[T any](fn func() (T, error)) *Task[T] {
	t := &Task[T]{done: make(chan struct{})}
	go func() {
		t.val, t.err = fn()
		close(t.done)
	}()
	return t
}

// Await blocks until the call finishes or ctx is cancelled. On
// cancellation the in-flight call keeps running on its goroutine but
// its result is abandoned.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.val, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Call is the common offload-then-await shape: run fn on a goroutine
// and suspend the caller until its result or ctx cancellation.
func Call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	return Go(fn).Await(ctx)
}
