package repository

import (
	"fmt"
	"testing"
	"time"

	"bookdot/internal/models"
	"bookdot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemotePostRepository(t *testing.T) {
	ctx := testCtx(t)
	b := testutil.NewBackend(t)
	require.NoError(t, b.Docs.Collection(CollectionUsers).Doc("u1").Set(ctx, models.UserDocument{
		ID: "u1", Username: "one", DisplayName: "One",
	}))

	repo := NewRemotePostRepository(b.Docs, staticSession("u1"))
	sub := repo.Feed(ctx)
	defer sub.Cancel()
	waitFor(t, sub, func(ps []*models.Post) bool { return len(ps) == 0 })

	post, err := repo.Create(ctx, models.CreatePostInput{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "One", post.User.DisplayName)

	var profile models.UserDocument
	_, err = b.Docs.Collection(CollectionUsers).Doc("u1").Get(ctx, &profile)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.PostCount)

	require.NoError(t, repo.Like(ctx, post.ID))
	snap := waitFor(t, sub, func(ps []*models.Post) bool { return len(ps) == 1 && ps[0].LikeCount == 1 })
	assert.True(t, snap[0].IsLiked)

	exists, err := b.Docs.Collection(CollectionLikes).Doc(models.LikeDocumentID(post.ID, "u1")).Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, repo.Unlike(ctx, post.ID))
	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, got.LikeCount)
	assert.False(t, got.IsLiked)

	err = NewRemotePostRepository(b.Docs, staticSession("u2")).Delete(ctx, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotOwner))

	require.NoError(t, repo.Delete(ctx, post.ID))
	waitFor(t, sub, func(ps []*models.Post) bool { return len(ps) == 0 })
	_, err = b.Docs.Collection(CollectionUsers).Doc("u1").Get(ctx, &profile)
	require.NoError(t, err)
	assert.Zero(t, profile.PostCount)

	err = repo.Delete(ctx, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestRemotePostRepository_FeedCapsAtFifty(t *testing.T) {
	ctx := testCtx(t)
	b := testutil.NewBackend(t)
	posts := b.Docs.Collection(CollectionPosts)
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	const total = remoteFeedLimit + 5
	for i := 0; i < total; i++ {
		id := fmt.Sprintf("p%02d", i)
		require.NoError(t, posts.Doc(id).Set(ctx, models.PostDocument{
			ID:        id,
			UserID:    "u1",
			Content:   id,
			ImageURLs: []string{},
			CreatedAt: base.Add(time.Duration(i) * time.Minute).UnixMilli(),
		}))
	}

	repo := NewRemotePostRepository(b.Docs, staticSession("u1"))
	check := func(t *testing.T, got []*models.Post) {
		t.Helper()
		require.Len(t, got, remoteFeedLimit)
		assert.Equal(t, fmt.Sprintf("p%02d", total-1), got[0].ID, "newest first")
		assert.Equal(t, fmt.Sprintf("p%02d", total-remoteFeedLimit), got[len(got)-1].ID, "oldest posts fall off")
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i-1].CreatedAt.After(got[i].CreatedAt))
		}
	}

	t.Run("feed", func(t *testing.T) {
		sub := repo.Feed(ctx)
		defer sub.Cancel()
		check(t, waitFor(t, sub, func(ps []*models.Post) bool { return len(ps) > 0 }))
	})
	t.Run("by user", func(t *testing.T) {
		sub := repo.ByUser(ctx, "u1")
		defer sub.Cancel()
		check(t, waitFor(t, sub, func(ps []*models.Post) bool { return len(ps) > 0 }))
	})
}

func TestRemotePostRepository_UnknownAuthor(t *testing.T) {
	ctx := testCtx(t)
	b := testutil.NewBackend(t)

	post, err := NewRemotePostRepository(b.Docs, staticSession("ghost")).
		Create(ctx, models.CreatePostInput{Content: "boo"})
	require.NoError(t, err)
	assert.Equal(t, "Unknown User", post.User.DisplayName)
	assert.Equal(t, "unknown", post.User.Username)

	_, err = NewRemotePostRepository(b.Docs, staticSession("")).
		Create(ctx, models.CreatePostInput{Content: "boo"})
	assert.True(t, models.IsCode(err, models.CodeNotAuthenticated))
}

func TestRemoteCommentRepository(t *testing.T) {
	ctx := testCtx(t)
	b := testutil.NewBackend(t)
	posts := NewRemotePostRepository(b.Docs, staticSession("u1"))
	post, err := posts.Create(ctx, models.CreatePostInput{Content: "post"})
	require.NoError(t, err)

	repo := NewRemoteCommentRepository(b.Docs, staticSession("u1"))
	now := post.CreatedAt
	tick := int64(0)
	repo.now = func() time.Time {
		tick++
		return now.Add(time.Duration(tick) * time.Second)
	}

	first, err := repo.Create(ctx, post.ID, "first")
	require.NoError(t, err)
	_, err = repo.Create(ctx, post.ID, "second")
	require.NoError(t, err)

	sub := repo.ByPost(ctx, post.ID)
	defer sub.Cancel()
	snap := waitFor(t, sub, func(cs []*models.Comment) bool { return len(cs) == 2 })
	assert.Equal(t, "first", snap[0].Content, "oldest first")
	assert.Equal(t, "second", snap[1].Content)

	got, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount)

	require.NoError(t, repo.ToggleLike(ctx, first.ID))
	liked, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.LikeCount)
	assert.True(t, liked.IsLiked)

	err = NewRemoteCommentRepository(b.Docs, staticSession("u2")).Delete(ctx, first.ID)
	assert.True(t, models.IsCode(err, models.CodeNotOwner))

	require.NoError(t, repo.Delete(ctx, first.ID))
	got, err = posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentCount)

	_, err = repo.Create(ctx, "missing", "hi")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
