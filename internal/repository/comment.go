package repository

import (
	"context"

	"bookdot/internal/dao"
	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/stream"
	"bookdot/internal/validation"
)

const commentRepo = "comment"

type commentRepository struct {
	env
	daos    *dao.DAOs
	session Session
	log     *observability.RepoLogger
}

// NewCommentRepository returns the cache-backed comment repository.
func NewCommentRepository(daos *dao.DAOs, session Session) *commentRepository {
	return &commentRepository{
		env:     defaultEnv(),
		daos:    daos,
		session: session,
		log:     observability.NewRepoLogger("comments"),
	}
}

var _ CommentRepository = (*commentRepository)(nil)

func (r *commentRepository) ByPost(ctx context.Context, postID string) *stream.Subscription[[]*models.Comment] {
	return stream.Map(ctx, r.daos.Comments.ObserveByPost(ctx, postID), r.reconcile)
}

func (r *commentRepository) reconcile(ctx context.Context, comments []*models.Comment) ([]*models.Comment, error) {
	authorIDs := make([]string, 0, len(comments))
	ids := make([]string, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.UserID)
		ids = append(ids, c.ID)
	}
	authors, err := r.daos.Users.GetMany(ctx, authorIDs)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	liked, err := r.daos.CommentLikes.LikedBy(ctx, currentUserID(r.session), ids)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	out := make([]*models.Comment, 0, len(comments))
	for _, c := range comments {
		author, ok := authors[c.UserID]
		if !ok {
			continue
		}
		n, err := r.daos.CommentLikes.Count(ctx, c.ID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		c.User = author
		c.LikeCount = n
		c.IsLiked = liked[c.ID]
		out = append(out, c)
	}
	return out, nil
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := r.daos.Comments.Get(ctx, id)
	if err != nil || comment == nil {
		return nil, boundary(commentRepo, "get", err)
	}
	comments, err := r.reconcile(ctx, []*models.Comment{comment})
	if err != nil || len(comments) == 0 {
		return nil, boundary(commentRepo, "get", err)
	}
	return comments[0], nil
}

func (r *commentRepository) Create(ctx context.Context, postID, content string) (_ *models.Comment, err error) {
	span, ctx := observability.NewSpan(ctx, "comments.Create")
	defer span.End()
	defer func() { err = boundary(commentRepo, "create", err); span.SetError(err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(models.CreateCommentInput{PostID: postID, Content: content}); err != nil {
		return nil, err
	}
	author, err := r.daos.Users.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, models.NewNotFoundError("user", uid)
	}
	post, err := r.daos.Posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, models.NewNotFoundError("post", postID)
	}

	comment := &models.Comment{
		ID:        r.newID(),
		PostID:    postID,
		UserID:    uid,
		Content:   content,
		CreatedAt: r.now(),
	}
	if err := r.daos.Comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	comment.User = author
	r.log.LogCreate(ctx, map[string]interface{}{"comment_id": comment.ID, "post_id": postID})
	return comment, nil
}

func (r *commentRepository) ToggleLike(ctx context.Context, id string) (err error) {
	defer func() { err = boundary(commentRepo, "toggle_like", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return err
	}
	comment, err := r.daos.Comments.Get(ctx, id)
	if err != nil {
		return err
	}
	if comment == nil {
		return models.NewNotFoundError("comment", id)
	}
	res, err := r.daos.CommentLikes.Toggle(ctx, id, uid)
	if err != nil {
		return err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"comment_id": id, "liked": res.Liked, "like_count": res.LikeCount})
	return nil
}

func (r *commentRepository) Like(ctx context.Context, id string) error { return r.ToggleLike(ctx, id) }

func (r *commentRepository) Unlike(ctx context.Context, id string) error { return r.ToggleLike(ctx, id) }

func (r *commentRepository) Delete(ctx context.Context, id string) (err error) {
	defer func() { err = boundary(commentRepo, "delete", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return err
	}
	comment, err := r.daos.Comments.Get(ctx, id)
	if err != nil {
		return err
	}
	if comment == nil {
		return models.NewNotFoundError("comment", id)
	}
	if comment.UserID != uid {
		return models.NewNotOwnerError("comment")
	}
	if _, err := r.daos.Comments.Delete(ctx, id); err != nil {
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"comment_id": id, "post_id": comment.PostID})
	return nil
}
