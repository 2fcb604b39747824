package presenter

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookdot/internal/auth"
	"bookdot/internal/identity"
	"bookdot/internal/models"
	"bookdot/internal/repository"
	"bookdot/internal/service"
	"bookdot/internal/stream"
	"bookdot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountsStub struct {
	createFn func(context.Context) (*models.AuthUser, error)
	loginFn  func(context.Context, string) (*models.AuthUser, error)
	renameFn func(context.Context, string) (*models.AuthUser, error)
	checkFn  func(context.Context) (*models.AuthUser, error)
	logouts  int
}

func (s *accountsStub) CreateAccount(ctx context.Context) (*models.AuthUser, error) {
	return s.createFn(ctx)
}
func (s *accountsStub) Login(ctx context.Context, id string) (*models.AuthUser, error) {
	return s.loginFn(ctx, id)
}
func (s *accountsStub) UpdateDisplayName(ctx context.Context, name string) (*models.AuthUser, error) {
	return s.renameFn(ctx, name)
}
func (s *accountsStub) Logout(context.Context) { s.logouts++ }
func (s *accountsStub) CheckLoginStatus(ctx context.Context) (*models.AuthUser, error) {
	return s.checkFn(ctx)
}

func waitState[T any](t *testing.T, sub *stream.Subscription[T], match func(T) bool) T {
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
			t.Fatal("timed out waiting for state")
		}
	}
}

func TestAuthPresenter(t *testing.T) {
	ctx := context.Background()
	stub := &accountsStub{
		createFn: func(context.Context) (*models.AuthUser, error) {
			return &models.AuthUser{AccountID: "1234-5678-9012-3456", DisplayName: "User1234"}, nil
		},
		loginFn: func(_ context.Context, id string) (*models.AuthUser, error) {
			return nil, models.NewNotFoundError("account", id)
		},
		renameFn: func(_ context.Context, name string) (*models.AuthUser, error) {
			return &models.AuthUser{DisplayName: name, IsLoggedIn: true}, nil
		},
		checkFn: func(context.Context) (*models.AuthUser, error) {
			return nil, errors.New("offline")
		},
	}
	p := NewAuthPresenter(stub)

	p.CreateAccount(ctx)
	s := p.State()
	assert.False(t, s.IsLoading)
	assert.Equal(t, "User1234", s.CurrentUser.DisplayName)
	assert.False(t, s.CurrentUser.IsLoggedIn)

	p.Login(ctx, "0000-0000-0000-0000")
	s = p.State()
	assert.Equal(t, "account 0000-0000-0000-0000 not found", s.Error)
	assert.Equal(t, "User1234", s.CurrentUser.DisplayName, "a failed login keeps the previous user")

	p.ClearError()
	p.UpdateDisplayName(ctx, "Reader")
	s = p.State()
	assert.True(t, s.IsNameUpdated)
	assert.Equal(t, "Reader", s.CurrentUser.DisplayName)
	p.ResetNameUpdated()
	assert.False(t, p.State().IsNameUpdated)

	p.CheckLoginStatus(ctx)
	assert.Nil(t, p.State().CurrentUser)
	assert.Empty(t, p.State().Error)

	p.Logout(ctx)
	assert.Equal(t, AuthState{}, p.State())
	assert.Equal(t, 1, stub.logouts)
}

func TestAuthPresenter_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stub := &accountsStub{renameFn: func(_ context.Context, name string) (*models.AuthUser, error) {
		return &models.AuthUser{DisplayName: name}, nil
	}}
	p := NewAuthPresenter(stub)
	sub := p.Watch(ctx)
	waitState(t, sub, func(s AuthState) bool { return s.CurrentUser == nil })

	go p.UpdateDisplayName(ctx, "Watched")
	s := waitState(t, sub, func(s AuthState) bool { return s.IsNameUpdated })
	assert.Equal(t, "Watched", s.CurrentUser.DisplayName)
}

// feedFixture wires the presenters over a real identity service and cache.
type feedFixture struct {
	ids      *identity.Service
	feed     *FeedPresenter
	comments *CommentPresenter
}

func newFeedFixture(t *testing.T) *feedFixture {
	t.Helper()
	ctx := context.Background()
	b := testutil.NewBackend(t)
	_, d := testutil.LocalStore(t)
	ids := identity.NewService(auth.NewClient(b.Issuer), b.Docs, d.Users)

	created, err := ids.CreateAccount(ctx)
	require.NoError(t, err)
	_, err = ids.Login(ctx, created.AccountID)
	require.NoError(t, err)

	posts := service.NewPostService(repository.NewPostRepository(d, ids, nil, 50))
	comments := service.NewCommentService(repository.NewCommentRepository(d, ids))
	return &feedFixture{
		ids:      ids,
		feed:     NewFeedPresenter(posts),
		comments: NewCommentPresenter(comments, ids),
	}
}

func TestFeedPresenter(t *testing.T) {
	f := newFeedFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	states := f.feed.Watch(ctx)
	loadDone := make(chan error, 1)
	go func() { loadDone <- f.feed.Load(ctx) }()
	waitState(t, states, func(s FeedState) bool { return !s.IsLoading && s.Posts != nil })

	f.feed.CreatePost(ctx, "   ", nil)
	assert.Equal(t, "Post content cannot be empty", f.feed.State().Error)
	f.feed.ClearError()

	f.feed.CreatePost(ctx, "hello", nil)
	s := waitState(t, states, func(s FeedState) bool { return len(s.Posts) == 1 && !s.IsCreatingPost })
	postID := s.Posts[0].ID

	f.feed.LikePost(ctx, postID)
	s = waitState(t, states, func(s FeedState) bool { return len(s.Posts) == 1 && s.Posts[0].IsLiked })
	assert.Equal(t, 1, s.Posts[0].LikeCount)

	f.feed.LikePost(ctx, postID)
	s = waitState(t, states, func(s FeedState) bool { return len(s.Posts) == 1 && !s.Posts[0].IsLiked })
	assert.Zero(t, s.Posts[0].LikeCount)

	f.feed.LikePost(ctx, "not-shown")
	assert.Empty(t, f.feed.State().Error)

	f.feed.DeletePost(ctx, "missing")
	assert.Equal(t, "post missing not found", f.feed.State().Error)

	f.feed.DeletePost(ctx, postID)
	waitState(t, states, func(s FeedState) bool { return len(s.Posts) == 0 })

	cancel()
	select {
	case err := <-loadDone:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Load did not return after cancel")
	}
}

func TestCommentPresenter(t *testing.T) {
	f := newFeedFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.comments.CreateComment(ctx, "ignored")
	assert.Empty(t, f.comments.State().Comments, "nothing happens before a post is loaded")

	f.feed.CreatePost(ctx, "post", nil)
	postID := f.feed.State().Posts[0].ID

	states := f.comments.Watch(ctx)
	go func() { _ = f.comments.Load(ctx, postID) }()
	waitState(t, states, func(s CommentState) bool { return s.PostID == postID })

	f.comments.SetNewCommentContent("hi")
	assert.Equal(t, "hi", f.comments.State().NewCommentContent)
	f.comments.CreateComment(ctx, "hi")
	s := waitState(t, states, func(s CommentState) bool { return len(s.Comments) == 1 })
	assert.Empty(t, s.NewCommentContent, "the draft clears on success")
	commentID := s.Comments[0].ID

	f.comments.LikeComment(ctx, commentID)
	waitState(t, states, func(s CommentState) bool { return len(s.Comments) == 1 && s.Comments[0].IsLiked })

	assert.Equal(t, f.ids.CurrentUserID(), f.comments.CurrentUserID())
	f.comments.DeleteComment(ctx, commentID)
	waitState(t, states, func(s CommentState) bool { return len(s.Comments) == 0 })

	f.comments.CreateComment(ctx, "")
	assert.Equal(t, "Comment content cannot be empty", f.comments.State().Error)
	f.comments.ClearError()
	assert.Empty(t, f.comments.State().Error)
}
