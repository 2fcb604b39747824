package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := Instrument(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestAside_FetchesOnceThenServesFromRedis(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	calls := 0
	fetch := func(dest *profile) func() error {
		return func() error {
			calls++
			*dest = profile{ID: "u1", Name: "User1234"}
			return nil
		}
	}

	var first profile
	require.NoError(t, c.Aside(ctx, UserKey("u1"), &first, UserTTL, fetch(&first)))
	var second profile
	require.NoError(t, c.Aside(ctx, UserKey("u1"), &second, UserTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("user:u1"))

	mr.FastForward(UserTTL + time.Second)
	assert.False(t, mr.Exists("user:u1"))
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	c, mr := setupCache(t)
	var p profile
	err := c.Aside(context.Background(), UserKey("u2"), &p, UserTTL, func() error {
		return errors.New("not there")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("user:u2"))
}

func TestInvalidate(t *testing.T) {
	c, mr := setupCache(t)
	ctx := context.Background()
	require.NoError(t, c.SetJSON(ctx, UserKey("u1"), profile{ID: "u1"}, time.Minute))
	require.NoError(t, c.SetJSON(ctx, UsernameKey("reader"), profile{ID: "u1"}, time.Minute))

	c.Invalidate(ctx, UserKey("u1"), UsernameKey("reader"))

	assert.False(t, mr.Exists("user:u1"))
	assert.False(t, mr.Exists("user:name:reader"))
}

func TestNilCacheIsAlwaysAMiss(t *testing.T) {
	var c *Cache
	calls := 0
	var p profile
	require.NoError(t, c.Aside(context.Background(), "k", &p, time.Minute, func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
	c.Invalidate(context.Background(), "k")
}
