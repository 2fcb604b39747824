package repository

import (
	"context"

	"bookdot/internal/docstore"
	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/stream"
	"bookdot/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// Document store collections read by the remote repositories.
const (
	CollectionUsers    = "users"
	CollectionPosts    = "posts"
	CollectionComments = "comments"
	CollectionLikes    = "likes"

	remoteFeedLimit = 50
)

// remoteBase holds what the document-store repositories share: author and
// like lookups per row, and the like-document toggle.
type remoteBase struct {
	env
	docs    *docstore.Store
	session Session
}

func (b *remoteBase) users() *docstore.Collection { return b.docs.Collection(CollectionUsers) }

func (b *remoteBase) likes() *docstore.Collection { return b.docs.Collection(CollectionLikes) }

// author reads the profile document, falling back to the placeholder user.
func (b *remoteBase) author(ctx context.Context, uid string) (*models.User, error) {
	var doc models.UserDocument
	found, err := b.users().Doc(uid).Get(ctx, &doc)
	if err != nil {
		return nil, err
	}
	if !found {
		return models.UnknownUser(uid), nil
	}
	if doc.ID == "" {
		doc.ID = uid
	}
	return doc.ToUser(), nil
}

func (b *remoteBase) likedByViewer(ctx context.Context, targetID string) (bool, error) {
	uid := currentUserID(b.session)
	if uid == "" {
		return false, nil
	}
	return b.likes().Doc(models.LikeDocumentID(targetID, uid)).Exists(ctx)
}

// toggleLike removes the viewer's like document when present and creates it
// otherwise, moving the target's likeCount by one in the same direction.
func (b *remoteBase) toggleLike(ctx context.Context, target *docstore.DocRef, targetType, uid string) (bool, int64, error) {
	ref := b.likes().Doc(models.LikeDocumentID(target.ID, uid))
	exists, err := ref.Exists(ctx)
	if err != nil {
		return false, 0, err
	}
	if exists {
		if err := ref.Delete(ctx); err != nil {
			return false, 0, err
		}
		n, err := target.Increment(ctx, "likeCount", -1)
		return false, n, err
	}

	like := models.LikeDocument{
		TargetID:   target.ID,
		TargetType: targetType,
		UserID:     uid,
		CreatedAt:  b.now().UnixMilli(),
	}
	if err := ref.Set(ctx, like); err != nil {
		return false, 0, err
	}
	n, err := target.Increment(ctx, "likeCount", 1)
	return true, n, err
}

// adjustProfileCounter moves a counter on the author's profile. A missing
// profile is tolerated; the post itself is already written.
func (b *remoteBase) adjustProfileCounter(ctx context.Context, uid, field string, delta int64) error {
	_, err := b.users().Doc(uid).Increment(ctx, field, delta)
	if models.IsCode(err, models.CodeNotFound) {
		observability.Logger.WarnContext(ctx, "profile missing for counter update",
			"user_id", uid,
			"field", field,
		)
		return nil
	}
	return err
}

type remotePostRepository struct {
	remoteBase
	log *observability.RepoLogger
}

// NewRemotePostRepository returns a post repository that reads and writes
// the document store directly.
func NewRemotePostRepository(docs *docstore.Store, session Session) *remotePostRepository {
	return &remotePostRepository{
		remoteBase: remoteBase{env: defaultEnv(), docs: docs, session: session},
		log:        observability.NewRepoLogger(CollectionPosts),
	}
}

var _ PostRepository = (*remotePostRepository)(nil)

func (r *remotePostRepository) posts() *docstore.Collection { return r.docs.Collection(CollectionPosts) }

func (r *remotePostRepository) Feed(ctx context.Context) *stream.Subscription[[]*models.Post] {
	q := r.posts().OrderBy("createdAt", docstore.Desc).Limit(remoteFeedLimit)
	return stream.Map(ctx, q.Listen(ctx), r.resolve)
}

func (r *remotePostRepository) ByUser(ctx context.Context, userID string) *stream.Subscription[[]*models.Post] {
	q := r.posts().Where("userId", userID).OrderBy("createdAt", docstore.Desc).Limit(remoteFeedLimit)
	return stream.Map(ctx, q.Listen(ctx), r.resolve)
}

// resolve issues one author read and one like read per post.
func (r *remotePostRepository) resolve(ctx context.Context, snaps []docstore.Snapshot) ([]*models.Post, error) {
	out := make([]*models.Post, 0, len(snaps))
	for _, snap := range snaps {
		var doc models.PostDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, models.NewInternalError(err)
		}
		doc.ID = snap.ID
		post, err := r.hydrate(ctx, doc)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		out = append(out, post)
	}
	return out, nil
}

func (r *remotePostRepository) hydrate(ctx context.Context, doc models.PostDocument) (*models.Post, error) {
	post := doc.ToPost()
	if post.ImageURLs == nil {
		post.ImageURLs = []string{}
	}
	author, err := r.author(ctx, doc.UserID)
	if err != nil {
		return nil, err
	}
	liked, err := r.likedByViewer(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	post.User = author
	post.IsLiked = liked
	return post, nil
}

func (r *remotePostRepository) GetByID(ctx context.Context, id string) (_ *models.Post, err error) {
	defer func() { err = boundary(postRepo, "remote_get", err) }()

	var doc models.PostDocument
	found, err := r.posts().Doc(id).Get(ctx, &doc)
	if err != nil || !found {
		return nil, err
	}
	doc.ID = id
	return r.hydrate(ctx, doc)
}

func (r *remotePostRepository) Create(ctx context.Context, in models.CreatePostInput) (_ *models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "posts.RemoteCreate")
	defer span.End()
	defer func() { err = boundary(postRepo, "remote_create", err); span.SetError(err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	imageURLs := in.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}
	doc := models.PostDocument{
		ID:        r.newID(),
		UserID:    uid,
		Content:   in.Content,
		ImageURLs: imageURLs,
		VideoURL:  in.VideoURL,
		CreatedAt: r.now().UnixMilli(),
	}
	if err := r.posts().Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, err
	}
	if err := r.adjustProfileCounter(ctx, uid, "postCount", 1); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("post.id", doc.ID))
	r.log.LogCreate(ctx, map[string]interface{}{"post_id": doc.ID, "user_id": uid})
	return r.hydrate(ctx, doc)
}

func (r *remotePostRepository) ToggleLike(ctx context.Context, id string) (err error) {
	defer func() { err = boundary(postRepo, "remote_toggle_like", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return err
	}
	ref := r.posts().Doc(id)
	exists, err := ref.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("post", id)
	}
	liked, n, err := r.toggleLike(ctx, ref, models.LikeTargetPost, uid)
	if err != nil {
		return err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"post_id": id, "liked": liked, "like_count": n})
	return nil
}

func (r *remotePostRepository) Like(ctx context.Context, id string) error {
	return r.ToggleLike(ctx, id)
}

func (r *remotePostRepository) Unlike(ctx context.Context, id string) error {
	return r.ToggleLike(ctx, id)
}

func (r *remotePostRepository) Delete(ctx context.Context, id string) (err error) {
	defer func() { err = boundary(postRepo, "remote_delete", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return err
	}
	ref := r.posts().Doc(id)
	var doc models.PostDocument
	found, err := ref.Get(ctx, &doc)
	if err != nil {
		return err
	}
	if !found {
		return models.NewNotFoundError("post", id)
	}
	if doc.UserID != uid {
		return models.NewNotOwnerError("post")
	}
	if err := ref.Delete(ctx); err != nil {
		return err
	}
	if err := r.adjustProfileCounter(ctx, uid, "postCount", -1); err != nil {
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"post_id": id})
	return nil
}
