package database

import (
	"context"
	"testing"
	"time"

	"bookdot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenLocal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenLocal_MigratesSchema(t *testing.T) {
	store := openTestStore(t)
	for _, m := range PersistentModels() {
		assert.True(t, store.DB.Migrator().HasTable(m), "missing table for %T", m)
	}
}

func TestOpenLocal_EnforcesForeignKeys(t *testing.T) {
	store := openTestStore(t)
	err := store.DB.Create(&models.PostLike{PostID: "missing", UserID: "missing"}).Error
	assert.Error(t, err)
}

func TestObserve_ReemitsAfterNotify(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	countUsers := func(ctx context.Context) (int64, error) {
		var n int64
		err := store.DB.WithContext(ctx).Model(&models.User{}).Count(&n).Error
		return n, err
	}
	sub := Observe(ctx, store, countUsers, TableUsers)

	assert.Equal(t, int64(0), <-sub.C())

	err := store.Transaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.User{ID: "u1", Username: "u1"}).Error
	}, TableUsers)
	require.NoError(t, err)

	select {
	case n := <-sub.C():
		assert.Equal(t, int64(1), n)
	case <-time.After(2 * time.Second):
		t.Fatal("no emission after change")
	}

	sub.Cancel()
	<-sub.Done()
	assert.NoError(t, sub.Err())
}

func TestObserve_IgnoresUnrelatedTables(t *testing.T) {
	store := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	sub := Observe(ctx, store, func(context.Context) (int, error) {
		calls++
		return calls, nil
	}, TablePosts)

	assert.Equal(t, 1, <-sub.C())
	store.Notify(TableMessages)

	select {
	case v := <-sub.C():
		t.Fatalf("unexpected emission %d", v)
	case <-time.After(100 * time.Millisecond):
	}
}
