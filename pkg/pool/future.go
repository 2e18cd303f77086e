package pool

// Future is a handle to a value computed by a unit of work.
type Future[T any] struct {
	done chan struct{}
	val  T
}

// Submit runs fn on r and returns a future for its result. If fn panics the
// future still completes, holding the zero value of T.
func Submit[T any](r Runner, fn func() T) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	r.Go(func() {
		defer close(f.done)
		f.val = fn()
	})
	return f
}

// Resolved returns a future that is already complete with v.
func Resolved[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: v}
	close(f.done)
	return f
}

// Done reports whether the value is available. It never blocks.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the value and true once the future is done, or the zero
// value and false while it is still running.
func (f *Future[T]) Result() (T, bool) {
	if !f.Done() {
		var zero T
		return zero, false
	}
	return f.val, true
}

// Wait blocks until the value is available and returns it.
func (f *Future[T]) Wait() T {
	<-f.done
	return f.val
}
