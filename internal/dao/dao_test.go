package dao

import (
	"context"
	"regexp"
	"testing"
	"time"

	"bookdot/internal/database"
	"bookdot/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) (*database.Store, *DAOs) {
	t.Helper()
	store, err := database.OpenLocal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, New(store)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func seedUser(t *testing.T, d *DAOs, id string) *models.User {
	t.Helper()
	u := &models.User{ID: id, Username: "user_" + id, DisplayName: "User " + id}
	require.NoError(t, d.Users.Upsert(context.Background(), u))
	return u
}

func seedPost(t *testing.T, d *DAOs, id, userID string, age time.Duration) *models.Post {
	t.Helper()
	p := &models.Post{ID: id, UserID: userID, Content: "post " + id, CreatedAt: time.Now().UTC().Add(-age)}
	require.NoError(t, d.Posts.Create(context.Background(), p))
	return p
}

func TestPosts_CreateRecountsAuthorPosts(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	seedUser(t, d, "u1")

	seedPost(t, d, "p1", "u1", time.Hour)
	seedPost(t, d, "p2", "u1", 0)

	u, err := d.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, u.PostCount)

	feed, err := d.Posts.Feed(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "p2", feed[0].ID, "feed is newest first")
}

func TestPosts_FeedLimitIsCapped(t *testing.T) {
	_, d := setupStore(t)
	seedUser(t, d, "u1")
	for i := 0; i < MaxFeedLimit+5; i++ {
		seedPost(t, d, "p"+string(rune('A'+i)), "u1", time.Duration(i)*time.Minute)
	}

	feed, err := d.Posts.Feed(context.Background(), 500, 0)
	require.NoError(t, err)
	assert.Len(t, feed, MaxFeedLimit)
}

func TestPosts_DeleteCascades(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	seedUser(t, d, "u1")
	seedPost(t, d, "p1", "u1", 0)
	require.NoError(t, d.Comments.Create(ctx, &models.Comment{ID: "c1", PostID: "p1", UserID: "u1", Content: "hi"}))
	_, err := d.PostLikes.Toggle(ctx, "p1", "u1")
	require.NoError(t, err)
	_, err = d.CommentLikes.Toggle(ctx, "c1", "u1")
	require.NoError(t, err)

	found, err := d.Posts.Delete(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, found)

	post, err := d.Posts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, post)
	n, err := d.PostLikes.Count(ctx, "p1")
	require.NoError(t, err)
	assert.Zero(t, n)
	comment, err := d.Comments.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, comment)

	u, err := d.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, u.PostCount)

	found, err = d.Posts.Delete(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLikes_ToggleTwiceRestoresState(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	seedUser(t, d, "u1")
	seedUser(t, d, "u2")
	seedPost(t, d, "p1", "u1", 0)

	res, err := d.PostLikes.Toggle(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Liked: true, LikeCount: 1}, res)

	res, err = d.PostLikes.Toggle(ctx, "p1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 2, res.LikeCount)

	res, err = d.PostLikes.Toggle(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Liked: false, LikeCount: 1}, res)

	liked, err := d.PostLikes.Exists(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.False(t, liked)

	post, err := d.Posts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, post.LikeCount)
}

func TestLikes_LikeAndUnlikeAreIdempotent(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	seedUser(t, d, "u1")
	seedPost(t, d, "p1", "u1", 0)

	for i := 0; i < 2; i++ {
		res, err := d.PostLikes.Like(ctx, "p1", "u1")
		require.NoError(t, err)
		assert.Equal(t, models.LikeResult{Liked: true, LikeCount: 1}, res)
	}
	for i := 0; i < 2; i++ {
		res, err := d.PostLikes.Unlike(ctx, "p1", "u1")
		require.NoError(t, err)
		assert.Equal(t, models.LikeResult{Liked: false, LikeCount: 0}, res)
	}
}

func TestLikes_LikedBy(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	seedUser(t, d, "u1")
	seedPost(t, d, "p1", "u1", time.Minute)
	seedPost(t, d, "p2", "u1", 0)
	_, err := d.PostLikes.Like(ctx, "p2", "u1")
	require.NoError(t, err)

	liked, err := d.PostLikes.LikedBy(ctx, "u1", []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"p2": true}, liked)

	none, err := d.PostLikes.LikedBy(ctx, "", []string{"p1"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestComments_CountFollowsCreateAndDelete(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	seedUser(t, d, "u1")
	seedPost(t, d, "p1", "u1", 0)

	require.NoError(t, d.Comments.Create(ctx, &models.Comment{ID: "c1", PostID: "p1", UserID: "u1", Content: "one"}))
	require.NoError(t, d.Comments.Create(ctx, &models.Comment{ID: "c2", PostID: "p1", UserID: "u1", Content: "two"}))

	post, err := d.Posts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, post.CommentCount)

	found, err := d.Comments.Delete(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = d.Comments.Delete(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, found)

	post, err = d.Posts.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, post.CommentCount)
}

func TestUsers_SetFollowingIsConditional(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	seedUser(t, d, "u1")

	changed, err := d.Users.SetFollowing(ctx, "u1", true)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = d.Users.SetFollowing(ctx, "u1", true)
	require.NoError(t, err)
	assert.False(t, changed)

	u, err := d.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, u.IsFollowing)
	assert.Equal(t, 1, u.FollowerCount)

	_, err = d.Users.SetFollowing(ctx, "u1", false)
	require.NoError(t, err)
	u, err = d.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, u.IsFollowing)
	assert.Equal(t, 0, u.FollowerCount)
}

func TestUsers_AdjustCounterFloorsAtZero(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	seedUser(t, d, "u1")

	found, err := d.Users.AdjustCounter(ctx, "u1", FollowingCount, -3)
	require.NoError(t, err)
	assert.True(t, found)

	u, err := d.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, u.FollowingCount)

	found, err = d.Users.AdjustCounter(ctx, "missing", FollowingCount, 1)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUsers_Search(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	require.NoError(t, d.Users.Upsert(ctx,
		&models.User{ID: "1", Username: "bookworm", DisplayName: "Reader"},
		&models.User{ID: "2", Username: "mobile_dev", DisplayName: "Mobile Developer"},
	))

	users, err := d.Users.Search(ctx, "BOOK")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "1", users[0].ID)

	users, err = d.Users.Search(ctx, "developer")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "2", users[0].ID)
}

func TestMessages_ReadReceipts(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, d.Messages.Upsert(ctx,
		&models.Message{ID: "m1", ConversationID: "c", SenderID: "me", Content: "a", CreatedAt: now.Add(-3 * time.Minute)},
		&models.Message{ID: "m2", ConversationID: "c", SenderID: "them", Content: "b", CreatedAt: now.Add(-2 * time.Minute)},
		&models.Message{ID: "m3", ConversationID: "c", SenderID: "them", Content: "c", CreatedAt: now.Add(-time.Minute)},
	))

	marked, err := d.Messages.MarkAsRead(ctx, "m2", now)
	require.NoError(t, err)
	assert.True(t, marked)
	marked, err = d.Messages.MarkAsRead(ctx, "m2", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, marked, "first read time is kept")

	n, err := d.Messages.MarkConversationAsRead(ctx, "c", "me", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msgs, err := d.Messages.ByConversation(ctx, "c")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	assert.Nil(t, msgs[0].ReadAt, "own messages stay unread")
	assert.NotNil(t, msgs[2].ReadAt)

	deleted, err := d.Messages.Delete(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestStories_ActiveViewedAndExpired(t *testing.T) {
	_, d := setupStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	seedUser(t, d, "u1")
	require.NoError(t, d.Stories.Insert(ctx, &models.Story{ID: "s1", UserID: "u1", MediaURL: "https://img/1", MediaType: models.MediaTypeImage, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, d.Stories.Insert(ctx, &models.Story{ID: "s2", UserID: "u1", MediaURL: "https://img/2", MediaType: models.MediaTypeImage, ExpiresAt: now.Add(-time.Hour)}))

	active, err := d.Stories.Active(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "s1", active[0].ID)

	viewed, err := d.Stories.MarkViewed(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, viewed)
	viewed, err = d.Stories.MarkViewed(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, viewed)

	s1, err := d.Stories.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, s1.IsViewed)
	assert.Equal(t, 1, s1.ViewCount)

	purged, err := d.Stories.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestLikes_ToggleStatementsOnPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	likes := NewPostLikes(database.NewStore(db))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`)).
		WithArgs("p1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO post_likes (post_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`)).
		WithArgs("p1", "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE posts SET like_count = (SELECT COUNT(*) FROM post_likes WHERE post_likes.post_id = posts.id) WHERE id = $1`)).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT like_count FROM posts WHERE id = $1`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"like_count"}).AddRow(1))
	mock.ExpectCommit()

	res, err := likes.Toggle(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Liked: true, LikeCount: 1}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_GetOnPostgres(t *testing.T) {
	db, mock := setupMockDB(t)
	users := &Users{store: database.NewStore(db)}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1 ORDER BY "users"."id" LIMIT $2`)).
		WithArgs("u1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow("u1", "bookdot_user"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE id = $1 ORDER BY "users"."id" LIMIT $2`)).
		WithArgs("missing", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	u, err := users.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "bookdot_user", u.Username)

	missing, err := users.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}
