package repository

import (
	"testing"
	"time"

	"bookdot/internal/models"
	"bookdot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoryRepository(t *testing.T) {
	ctx := testCtx(t)
	_, d := testutil.LocalStore(t)
	testutil.User(t, d, "u1", "One")

	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	repo := NewStoryRepository(d, staticSession("u1"))
	repo.now = func() time.Time { return now }

	long, err := repo.Create(ctx, models.CreateStoryInput{MediaURL: "https://cdn.example.com/a.jpg", MediaType: models.MediaTypeImage})
	require.NoError(t, err)
	assert.Equal(t, now.Add(DefaultStoryTTL), long.ExpiresAt)

	_, err = repo.Create(ctx, models.CreateStoryInput{
		MediaURL:  "https://cdn.example.com/b.mp4",
		MediaType: models.MediaTypeVideo,
		TTL:       time.Hour,
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, models.CreateStoryInput{MediaURL: "not a url", MediaType: models.MediaTypeImage})
	assert.True(t, models.IsCode(err, models.CodeValidation))
	_, err = repo.Create(ctx, models.CreateStoryInput{MediaURL: "https://cdn.example.com/c", MediaType: "GIF"})
	assert.True(t, models.IsCode(err, models.CodeValidation))

	stories, err := repo.ByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, "One", stories[0].User.DisplayName)

	require.NoError(t, repo.MarkViewed(ctx, long.ID))
	require.NoError(t, repo.MarkViewed(ctx, long.ID))
	viewed, err := d.Stories.Get(ctx, long.ID)
	require.NoError(t, err)
	assert.True(t, viewed.IsViewed)
	assert.Equal(t, 1, viewed.ViewCount)
	assert.True(t, models.IsCode(repo.MarkViewed(ctx, "missing"), models.CodeNotFound))

	now = now.Add(2 * time.Hour)
	n, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sub := repo.Active(ctx)
	defer sub.Cancel()
	active := waitFor(t, sub, func(ss []*models.Story) bool { return true })
	require.Len(t, active, 1)
	assert.Equal(t, long.ID, active[0].ID)
}
