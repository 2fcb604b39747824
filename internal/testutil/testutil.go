// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"bookdot/internal/auth"
	"bookdot/internal/dao"
	"bookdot/internal/database"
	"bookdot/internal/docstore"
	"bookdot/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const JWTSecret = "test-secret-at-least-32-characters-long"

// Redis starts an in-process Redis and returns a client for it.
func Redis(t testing.TB) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// LocalStore opens an in-memory cache store with the schema migrated.
func LocalStore(t testing.TB) (*database.Store, *dao.DAOs) {
	t.Helper()
	store, err := database.OpenLocal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, dao.New(store)
}

// Backend bundles the Redis-backed services a device talks to.
type Backend struct {
	Redis  *redis.Client
	Mini   *miniredis.Miniredis
	Issuer *auth.Issuer
	Docs   *docstore.Store
}

func NewBackend(t testing.TB) *Backend {
	t.Helper()
	rdb, mr := Redis(t)
	return &Backend{
		Redis:  rdb,
		Mini:   mr,
		Issuer: auth.NewIssuer(rdb, JWTSecret, time.Hour),
		Docs:   docstore.New(rdb),
	}
}

// SignedIn returns an auth client that already holds a session.
func (b *Backend) SignedIn(t testing.TB) *auth.Client {
	t.Helper()
	c := auth.NewClient(b.Issuer)
	_, err := c.SignInAnonymously(context.Background())
	require.NoError(t, err)
	return c
}

// User inserts a cached user row.
func User(t testing.TB, d *dao.DAOs, id, name string) *models.User {
	t.Helper()
	u := &models.User{
		ID:          id,
		Username:    "user" + id,
		DisplayName: name,
		Bio:         "fixture",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, d.Users.Upsert(context.Background(), u))
	return u
}
