package repository

import (
	"context"

	"bookdot/internal/docstore"
	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/stream"
	"bookdot/internal/validation"
)

type remoteCommentRepository struct {
	remoteBase
	log *observability.RepoLogger
}

// NewRemoteCommentRepository returns a comment repository over the document
// store. Comments are listed oldest first.
func NewRemoteCommentRepository(docs *docstore.Store, session Session) *remoteCommentRepository {
	return &remoteCommentRepository{
		remoteBase: remoteBase{env: defaultEnv(), docs: docs, session: session},
		log:        observability.NewRepoLogger(CollectionComments),
	}
}

var _ CommentRepository = (*remoteCommentRepository)(nil)

func (r *remoteCommentRepository) comments() *docstore.Collection {
	return r.docs.Collection(CollectionComments)
}

func (r *remoteCommentRepository) posts() *docstore.Collection {
	return r.docs.Collection(CollectionPosts)
}

func (r *remoteCommentRepository) ByPost(ctx context.Context, postID string) *stream.Subscription[[]*models.Comment] {
	q := r.comments().Where("postId", postID).OrderBy("createdAt", docstore.Asc)
	return stream.Map(ctx, q.Listen(ctx), r.resolve)
}

func (r *remoteCommentRepository) resolve(ctx context.Context, snaps []docstore.Snapshot) ([]*models.Comment, error) {
	out := make([]*models.Comment, 0, len(snaps))
	for _, snap := range snaps {
		var doc models.CommentDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, models.NewInternalError(err)
		}
		doc.ID = snap.ID
		comment, err := r.hydrate(ctx, doc)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		out = append(out, comment)
	}
	return out, nil
}

func (r *remoteCommentRepository) hydrate(ctx context.Context, doc models.CommentDocument) (*models.Comment, error) {
	comment := doc.ToComment()
	author, err := r.author(ctx, doc.UserID)
	if err != nil {
		return nil, err
	}
	liked, err := r.likedByViewer(ctx, doc.ID)
	if err != nil {
		return nil, err
	}
	comment.User = author
	comment.IsLiked = liked
	return comment, nil
}

func (r *remoteCommentRepository) GetByID(ctx context.Context, id string) (_ *models.Comment, err error) {
	defer func() { err = boundary(commentRepo, "remote_get", err) }()

	var doc models.CommentDocument
	found, err := r.comments().Doc(id).Get(ctx, &doc)
	if err != nil || !found {
		return nil, err
	}
	doc.ID = id
	return r.hydrate(ctx, doc)
}

func (r *remoteCommentRepository) Create(ctx context.Context, postID, content string) (_ *models.Comment, err error) {
	defer func() { err = boundary(commentRepo, "remote_create", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(models.CreateCommentInput{PostID: postID, Content: content}); err != nil {
		return nil, err
	}
	post := r.posts().Doc(postID)
	exists, err := post.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("post", postID)
	}

	doc := models.CommentDocument{
		ID:        r.newID(),
		PostID:    postID,
		UserID:    uid,
		Content:   content,
		CreatedAt: r.now().UnixMilli(),
	}
	if err := r.comments().Doc(doc.ID).Set(ctx, doc); err != nil {
		return nil, err
	}
	if _, err := post.Increment(ctx, "commentCount", 1); err != nil {
		return nil, err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"comment_id": doc.ID, "post_id": postID})
	return r.hydrate(ctx, doc)
}

func (r *remoteCommentRepository) ToggleLike(ctx context.Context, id string) (err error) {
	defer func() { err = boundary(commentRepo, "remote_toggle_like", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return err
	}
	ref := r.comments().Doc(id)
	exists, err := ref.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("comment", id)
	}
	liked, n, err := r.toggleLike(ctx, ref, models.LikeTargetComment, uid)
	if err != nil {
		return err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"comment_id": id, "liked": liked, "like_count": n})
	return nil
}

func (r *remoteCommentRepository) Like(ctx context.Context, id string) error {
	return r.ToggleLike(ctx, id)
}

func (r *remoteCommentRepository) Unlike(ctx context.Context, id string) error {
	return r.ToggleLike(ctx, id)
}

func (r *remoteCommentRepository) Delete(ctx context.Context, id string) (err error) {
	defer func() { err = boundary(commentRepo, "remote_delete", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return err
	}
	ref := r.comments().Doc(id)
	var doc models.CommentDocument
	found, err := ref.Get(ctx, &doc)
	if err != nil {
		return err
	}
	if !found {
		return models.NewNotFoundError("comment", id)
	}
	if doc.UserID != uid {
		return models.NewNotOwnerError("comment")
	}
	if err := ref.Delete(ctx); err != nil {
		return err
	}
	_, err = r.posts().Doc(doc.PostID).Increment(ctx, "commentCount", -1)
	if models.IsCode(err, models.CodeNotFound) {
		err = nil
	}
	if err != nil {
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"comment_id": id, "post_id": doc.PostID})
	return nil
}
