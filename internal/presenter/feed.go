package presenter

import (
	"context"

	"bookdot/internal/models"
	"bookdot/internal/service"
	"bookdot/internal/stream"
)

type FeedState struct {
	Posts          []*models.Post
	IsLoading      bool
	IsCreatingPost bool
	Error          string
}

type FeedPresenter struct {
	posts *service.PostService
	state *holder[FeedState]
}

func NewFeedPresenter(posts *service.PostService) *FeedPresenter {
	return &FeedPresenter{posts: posts, state: newHolder(FeedState{Posts: []*models.Post{}})}
}

func (p *FeedPresenter) State() FeedState { return p.state.get() }

func (p *FeedPresenter) Watch(ctx context.Context) *stream.Subscription[FeedState] {
	return p.state.watch(ctx)
}

// Load follows the feed until ctx ends or the stream fails. A stream failure
// is shown in the state and returned.
func (p *FeedPresenter) Load(ctx context.Context) error {
	p.state.update(func(s FeedState) FeedState {
		s.IsLoading = true
		return s
	})

	sub := p.posts.Feed(ctx)
	defer sub.Cancel()
	for posts := range sub.C() {
		p.state.update(func(s FeedState) FeedState {
			s.IsLoading = false
			s.Posts = posts
			s.Error = ""
			return s
		})
	}
	<-sub.Done()

	err := sub.Err()
	p.state.update(func(s FeedState) FeedState {
		s.IsLoading = false
		if err != nil {
			s.Error = message(err, "Failed to load the feed")
		}
		return s
	})
	return err
}

// CreatePost puts the new post at the top until the feed stream catches up.
func (p *FeedPresenter) CreatePost(ctx context.Context, content string, imageURLs []string) {
	p.state.update(func(s FeedState) FeedState {
		s.IsCreatingPost = true
		return s
	})
	post, err := p.posts.CreatePost(ctx, content, imageURLs)
	p.state.update(func(s FeedState) FeedState {
		s.IsCreatingPost = false
		if err != nil {
			s.Error = message(err, "Failed to create the post")
			return s
		}
		for _, existing := range s.Posts {
			if existing.ID == post.ID {
				return s
			}
		}
		posts := make([]*models.Post, 0, len(s.Posts)+1)
		s.Posts = append(append(posts, post), s.Posts...)
		return s
	})
}

// LikePost flips the like on a post currently shown. Unknown ids are ignored.
func (p *FeedPresenter) LikePost(ctx context.Context, postID string) {
	var target *models.Post
	for _, post := range p.state.get().Posts {
		if post.ID == postID {
			target = post
			break
		}
	}
	if target == nil {
		return
	}
	if err := p.posts.LikePost(ctx, postID, target.IsLiked); err != nil {
		p.setError(err, "Failed to update the like")
	}
}

func (p *FeedPresenter) DeletePost(ctx context.Context, postID string) {
	if err := p.posts.DeletePost(ctx, postID); err != nil {
		p.setError(err, "Failed to delete the post")
	}
}

func (p *FeedPresenter) ClearError() {
	p.state.update(func(s FeedState) FeedState {
		s.Error = ""
		return s
	})
}

func (p *FeedPresenter) setError(err error, fallback string) {
	p.state.update(func(s FeedState) FeedState {
		s.Error = message(err, fallback)
		return s
	})
}
