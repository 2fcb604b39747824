package repository

import (
	"context"
	"testing"
	"time"

	"bookdot/internal/stream"

	"github.com/stretchr/testify/require"
)

type staticSession string

func (s staticSession) CurrentUserID() string { return string(s) }

// waitFor reads snapshots until match accepts one.
func waitFor[T any](t *testing.T, sub *stream.Subscription[T], match func(T) bool) T {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case v, ok := <-sub.C():
			require.True(t, ok, "stream closed: %v", sub.Err())
			if match(v) {
				return v
			}
		case <-timeout:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
