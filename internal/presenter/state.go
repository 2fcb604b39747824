// Package presenter holds screen state for the account, feed and comment
// screens. Every operation blocks until it finishes; callers that need a
// responsive UI run operations in their own goroutine and render from Watch.
package presenter

import (
	"context"
	"sync"

	"bookdot/internal/models"
	"bookdot/internal/stream"
)

// holder stores one immutable state value and wakes watchers on change.
type holder[T any] struct {
	mu      sync.Mutex
	value   T
	changed chan struct{}
}

func newHolder[T any](initial T) *holder[T] {
	return &holder[T]{value: initial, changed: make(chan struct{})}
}

func (h *holder[T]) get() T {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.value
}

func (h *holder[T]) update(fn func(T) T) {
	h.mu.Lock()
	h.value = fn(h.value)
	close(h.changed)
	h.changed = make(chan struct{})
	h.mu.Unlock()
}

// watch emits the current state and then the latest state after each change.
// Intermediate states may be skipped by slow readers.
func (h *holder[T]) watch(ctx context.Context) *stream.Subscription[T] {
	return stream.New(ctx, func(ctx context.Context, emit stream.Emit[T]) error {
		for {
			h.mu.Lock()
			v, changed := h.value, h.changed
			h.mu.Unlock()

			if !emit(v) {
				return ctx.Err()
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-changed:
			}
		}
	})
}

func message(err error, fallback string) string {
	if appErr := models.AsAppError(err); appErr != nil && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}
