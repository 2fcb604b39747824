package repository

import (
	"context"

	"bookdot/internal/api"
	"bookdot/internal/dao"
	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/stream"
	"bookdot/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const postRepo = "post"

type postRepository struct {
	env
	daos      *dao.DAOs
	session   Session
	remote    api.PostAPI
	feedLimit int
	log       *observability.RepoLogger
}

// NewPostRepository returns the cache-backed post repository. When remote
// is non-nil every mutation reaches the backend before the cache.
func NewPostRepository(daos *dao.DAOs, session Session, remote api.PostAPI, feedLimit int) *postRepository {
	return &postRepository{
		env:       defaultEnv(),
		daos:      daos,
		session:   session,
		remote:    remote,
		feedLimit: feedLimit,
		log:       observability.NewRepoLogger("posts"),
	}
}

var _ PostRepository = (*postRepository)(nil)

func (r *postRepository) Feed(ctx context.Context) *stream.Subscription[[]*models.Post] {
	return stream.Map(ctx, r.daos.Posts.ObserveFeed(ctx, r.feedLimit), r.reconcile)
}

func (r *postRepository) ByUser(ctx context.Context, userID string) *stream.Subscription[[]*models.Post] {
	return stream.Map(ctx, r.daos.Posts.ObserveByUser(ctx, userID), r.reconcile)
}

// reconcile attaches authors, recounts likes from the like rows and marks
// the session user's likes. Posts whose author is not cached are dropped.
func (r *postRepository) reconcile(ctx context.Context, posts []*models.Post) ([]*models.Post, error) {
	authorIDs := make([]string, 0, len(posts))
	postIDs := make([]string, 0, len(posts))
	for _, p := range posts {
		authorIDs = append(authorIDs, p.UserID)
		postIDs = append(postIDs, p.ID)
	}
	authors, err := r.daos.Users.GetMany(ctx, authorIDs)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	liked, err := r.daos.PostLikes.LikedBy(ctx, currentUserID(r.session), postIDs)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make([]*models.Post, 0, len(posts))
	for _, p := range posts {
		author, ok := authors[p.UserID]
		if !ok {
			continue
		}
		n, err := r.daos.PostLikes.Count(ctx, p.ID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		p.User = author
		p.LikeCount = n
		p.IsLiked = liked[p.ID]
		out = append(out, p)
	}
	return out, nil
}

// GetByID returns the reconciled post, or nil when it is not cached or its
// author is unknown.
func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	post, err := r.daos.Posts.Get(ctx, id)
	if err != nil || post == nil {
		return nil, boundary(postRepo, "get", err)
	}
	posts, err := r.reconcile(ctx, []*models.Post{post})
	if err != nil || len(posts) == 0 {
		return nil, boundary(postRepo, "get", err)
	}
	return posts[0], nil
}

func (r *postRepository) Create(ctx context.Context, in models.CreatePostInput) (_ *models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "posts.Create")
	defer span.End()
	defer func() { err = boundary(postRepo, "create", err); span.SetError(err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	author, err := r.daos.Users.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, models.NewNotFoundError("user", uid)
	}

	post := &models.Post{
		ID:        r.newID(),
		UserID:    uid,
		Content:   in.Content,
		ImageURLs: in.ImageURLs,
		VideoURL:  in.VideoURL,
		CreatedAt: r.now(),
	}
	if r.remote != nil {
		created, err := r.remote.Create(ctx, in)
		if err != nil {
			return nil, err
		}
		post = created
		post.UserID = uid
	}
	if post.ImageURLs == nil {
		post.ImageURLs = []string{}
	}
	post.User = nil
	if err := r.daos.Posts.Create(ctx, post); err != nil {
		return nil, err
	}

	post.User = author
	post.LikeCount = 0
	post.CommentCount = 0
	post.IsLiked = false
	span.SetAttributes(attribute.String("post.id", post.ID))
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": post.ID, "user_id": uid})
	return post, nil
}

func (r *postRepository) ToggleLike(ctx context.Context, id string) (err error) {
	defer func() { err = boundary(postRepo, "toggle_like", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return err
	}
	post, err := r.daos.Posts.Get(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return models.NewNotFoundError("post", id)
	}

	if r.remote == nil {
		res, err := r.daos.PostLikes.Toggle(ctx, id, uid)
		if err != nil {
			return err
		}
		r.log.LogUpdate(ctx, map[string]interface{}{"post_id": id, "liked": res.Liked, "like_count": res.LikeCount})
		return nil
	}

	liked, err := r.daos.PostLikes.Exists(ctx, id, uid)
	if err != nil {
		return err
	}
	if liked {
		if _, err := r.remote.Unlike(ctx, id); err != nil {
			return err
		}
		_, err = r.daos.PostLikes.Unlike(ctx, id, uid)
		return err
	}
	if _, err := r.remote.Like(ctx, id); err != nil {
		return err
	}
	_, err = r.daos.PostLikes.Like(ctx, id, uid)
	return err
}

func (r *postRepository) Like(ctx context.Context, id string) error { return r.ToggleLike(ctx, id) }

func (r *postRepository) Unlike(ctx context.Context, id string) error { return r.ToggleLike(ctx, id) }

func (r *postRepository) Delete(ctx context.Context, id string) (err error) {
	span, ctx := observability.NewSpan(ctx, "posts.Delete", attribute.String("post.id", id))
	defer span.End()
	defer func() { err = boundary(postRepo, "delete", err); span.SetError(err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return err
	}
	post, err := r.daos.Posts.Get(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return models.NewNotFoundError("post", id)
	}
	if post.UserID != uid {
		return models.NewNotOwnerError("post")
	}
	if r.remote != nil {
		if err := r.remote.Delete(ctx, id); err != nil {
			return err
		}
	}
	if _, err := r.daos.Posts.Delete(ctx, id); err != nil {
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": id})
	return nil
}

// Refresh pulls the newest feed page from the backend into the cache.
// Without a backend it does nothing.
func (r *postRepository) Refresh(ctx context.Context) (err error) {
	defer func() { err = boundary(postRepo, "refresh", err) }()
	if r.remote == nil {
		return nil
	}

	posts, err := r.remote.Feed(ctx, r.feedLimit, 0)
	if err != nil {
		return err
	}
	authors := make([]*models.User, 0, len(posts))
	seen := make(map[string]bool, len(posts))
	for _, p := range posts {
		if p.User != nil && !seen[p.User.ID] {
			seen[p.User.ID] = true
			authors = append(authors, p.User)
		}
		p.User = nil
		if p.ImageURLs == nil {
			p.ImageURLs = []string{}
		}
	}
	if err := r.daos.Users.Upsert(ctx, authors...); err != nil {
		return err
	}
	if err := r.daos.Posts.Upsert(ctx, posts...); err != nil {
		return err
	}
	r.log.LogRead(ctx, map[string]interface{}{"refreshed": len(posts)})
	return nil
}
