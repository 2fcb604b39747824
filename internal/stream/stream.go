// Package stream turns callback-style live queries into cancellable
// subscriptions. A producer error closes the stream; there is no retry.
package stream

import (
	"context"
	"errors"
	"sync"
)

// Subscription delivers successive snapshots of a live query.
type Subscription[T any] struct {
	ch     chan T
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

// Emit hands a snapshot to the consumer. It returns false once the
// subscription has been cancelled.
type Emit[T any] func(T) bool

// New starts run in its own goroutine. run should emit snapshots until ctx is
// done and return nil, or return the error that terminates the stream.
func New[T any](ctx context.Context, run func(ctx context.Context, emit Emit[T]) error) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		ch:     make(chan T),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(s.done)
		defer close(s.ch)
		defer cancel()

		err := run(ctx, func(v T) bool {
			select {
			case s.ch <- v:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && !(ctx.Err() != nil && errors.Is(err, ctx.Err())) {
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
		}
	}()

	return s
}

// Failed returns a subscription that is already closed with err.
func Failed[T any](err error) *Subscription[T] {
	return New(context.Background(), func(context.Context, Emit[T]) error { return err })
}

// C returns the channel of snapshots. It is closed when the stream ends.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Done is closed after the producer has exited and Err is final.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Err reports the error that terminated the stream, if any. It is only
// meaningful after C has been closed.
func (s *Subscription[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel stops the producer. It is safe to call more than once.
func (s *Subscription[T]) Cancel() {
	s.cancel()
}

// Map applies fn to every snapshot of src. An error from fn or from src
// terminates the returned stream.
func Map[T, U any](ctx context.Context, src *Subscription[T], fn func(context.Context, T) (U, error)) *Subscription[U] {
	return New(ctx, func(ctx context.Context, emit Emit[U]) error {
		defer src.Cancel()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case v, ok := <-src.C():
				if !ok {
					<-src.Done()
					return src.Err()
				}
				out, err := fn(ctx, v)
				if err != nil {
					return err
				}
				if !emit(out) {
					return ctx.Err()
				}
			}
		}
	})
}

// First waits for the first snapshot and cancels the subscription.
func First[T any](ctx context.Context, s *Subscription[T]) (T, error) {
	defer s.Cancel()
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case v, ok := <-s.C():
		if !ok {
			<-s.Done()
			if err := s.Err(); err != nil {
				return zero, err
			}
			return zero, errors.New("stream closed before first snapshot")
		}
		return v, nil
	}
}
