package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(n int) func(context.Context, Emit[int]) error {
	return func(ctx context.Context, emit Emit[int]) error {
		for i := 1; i <= n; i++ {
			if !emit(i) {
				return ctx.Err()
			}
		}
		<-ctx.Done()
		return ctx.Err()
	}
}

func TestSubscription_DeliversInOrderAndCancels(t *testing.T) {
	sub := New(context.Background(), counter(3))

	var got []int
	for v := range sub.C() {
		got = append(got, v)
		if v == 3 {
			sub.Cancel()
		}
	}

	assert.Equal(t, []int{1, 2, 3}, got)
	assert.NoError(t, sub.Err())
}

func TestSubscription_ErrorTerminates(t *testing.T) {
	listenerErr := errors.New("listener failed")
	sub := New(context.Background(), func(ctx context.Context, emit Emit[string]) error {
		emit("first")
		return listenerErr
	})

	var got []string
	for v := range sub.C() {
		got = append(got, v)
	}
	<-sub.Done()

	assert.Equal(t, []string{"first"}, got)
	assert.ErrorIs(t, sub.Err(), listenerErr)
}

func TestSubscription_ContextCancelIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := New(ctx, counter(1))

	<-sub.C()
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop after cancel")
	}
	assert.NoError(t, sub.Err())
}

func TestMap(t *testing.T) {
	src := New(context.Background(), counter(2))
	doubled := Map(context.Background(), src, func(_ context.Context, v int) (int, error) {
		return v * 2, nil
	})

	first, err := First(context.Background(), doubled)
	require.NoError(t, err)
	assert.Equal(t, 2, first)
}

func TestMap_PropagatesErrors(t *testing.T) {
	mapErr := errors.New("author lookup failed")
	src := New(context.Background(), counter(2))
	out := Map(context.Background(), src, func(_ context.Context, v int) (int, error) {
		return 0, mapErr
	})

	_, err := First(context.Background(), out)
	assert.ErrorIs(t, err, mapErr)
}

func TestFailed(t *testing.T) {
	boom := errors.New("boom")
	_, err := First(context.Background(), Failed[int](boom))
	assert.ErrorIs(t, err, boom)
}
