package presenter

import (
	"context"

	"bookdot/internal/models"
	"bookdot/internal/service"
	"bookdot/internal/stream"
)

type CommentState struct {
	Comments          []*models.Comment
	IsLoading         bool
	IsCreatingComment bool
	NewCommentContent string
	PostID            string
	Error             string
}

// CommentPresenter drives the comment sheet of one post at a time.
type CommentPresenter struct {
	comments *service.CommentService
	session  interface{ CurrentUserID() string }
	state    *holder[CommentState]
}

func NewCommentPresenter(comments *service.CommentService, session interface{ CurrentUserID() string }) *CommentPresenter {
	return &CommentPresenter{
		comments: comments,
		session:  session,
		state:    newHolder(CommentState{Comments: []*models.Comment{}}),
	}
}

func (p *CommentPresenter) State() CommentState { return p.state.get() }

func (p *CommentPresenter) Watch(ctx context.Context) *stream.Subscription[CommentState] {
	return p.state.watch(ctx)
}

// Load follows the comments of postID until ctx ends or the stream fails.
func (p *CommentPresenter) Load(ctx context.Context, postID string) error {
	p.state.update(func(s CommentState) CommentState {
		s.IsLoading = true
		s.Error = ""
		return s
	})

	sub := p.comments.Comments(ctx, postID)
	defer sub.Cancel()
	for comments := range sub.C() {
		p.state.update(func(s CommentState) CommentState {
			s.Comments = comments
			s.IsLoading = false
			s.PostID = postID
			return s
		})
	}
	<-sub.Done()

	err := sub.Err()
	p.state.update(func(s CommentState) CommentState {
		s.IsLoading = false
		if err != nil {
			s.Error = message(err, "Failed to load comments")
		}
		return s
	})
	return err
}

func (p *CommentPresenter) SetNewCommentContent(content string) {
	p.state.update(func(s CommentState) CommentState {
		s.NewCommentContent = content
		return s
	})
}

// CreateComment posts content on the loaded post and clears the draft on
// success. Nothing happens before a post has been loaded.
func (p *CommentPresenter) CreateComment(ctx context.Context, content string) {
	postID := p.state.get().PostID
	if postID == "" {
		return
	}
	p.state.update(func(s CommentState) CommentState {
		s.IsCreatingComment = true
		s.Error = ""
		return s
	})
	_, err := p.comments.CreateComment(ctx, postID, content)
	p.state.update(func(s CommentState) CommentState {
		s.IsCreatingComment = false
		if err != nil {
			s.Error = message(err, "Failed to post the comment")
			return s
		}
		s.NewCommentContent = ""
		return s
	})
}

func (p *CommentPresenter) LikeComment(ctx context.Context, commentID string) {
	liked := false
	for _, c := range p.state.get().Comments {
		if c.ID == commentID {
			liked = c.IsLiked
			break
		}
	}
	if err := p.comments.LikeComment(ctx, commentID, liked); err != nil {
		p.setError(err, "Failed to update the like")
	}
}

func (p *CommentPresenter) DeleteComment(ctx context.Context, commentID string) {
	if err := p.comments.DeleteComment(ctx, commentID); err != nil {
		p.setError(err, "Failed to delete the comment")
	}
}

// CurrentUserID lets the sheet decide which comments show a delete action.
func (p *CommentPresenter) CurrentUserID() string {
	if p.session == nil {
		return ""
	}
	return p.session.CurrentUserID()
}

func (p *CommentPresenter) ClearError() {
	p.state.update(func(s CommentState) CommentState {
		s.Error = ""
		return s
	})
}

func (p *CommentPresenter) setError(err error, fallback string) {
	p.state.update(func(s CommentState) CommentState {
		s.Error = message(err, fallback)
		return s
	})
}
