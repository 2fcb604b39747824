package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"bookdot/internal/dao"
	"bookdot/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// Options controls how much random data a Factory writes.
type Options struct {
	NumUsers        int
	NumPosts        int
	CommentsPerPost int
	MaxDays         int
}

// Factory builds random users, posts and comments and stores them in the
// local cache.
type Factory struct {
	daos  *dao.DAOs
	faker *gofakeit.Faker
	rng   *rand.Rand
	opts  Options
	now   func() time.Time
}

// NewFactory seeds its generators with seed so runs are reproducible.
func NewFactory(daos *dao.DAOs, opts Options, seed int64) *Factory {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	return &Factory{
		daos:  daos,
		faker: gofakeit.New(seed),
		rng:   rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1)),
		opts:  opts,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// BuildUser returns an unsaved user.
func (f *Factory) BuildUser() *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	return &models.User{
		ID:             uuid.NewString(),
		Username:       strings.ToLower(fmt.Sprintf("%s_%s%d", first, last, f.rng.IntN(1000))),
		DisplayName:    first + " " + last,
		Bio:            f.faker.Sentence(8),
		FollowerCount:  f.rng.IntN(500),
		FollowingCount: f.rng.IntN(200),
		CreatedAt:      f.pastTime(),
	}
}

// BuildPost returns an unsaved post by author.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		ID:        uuid.NewString(),
		UserID:    author.ID,
		Content:   f.faker.Paragraph(1, 3, 8, "\n"),
		ImageURLs: []string{},
		CreatedAt: f.pastTime(),
	}
	if f.rng.IntN(4) == 0 {
		post.ImageURLs = append(post.ImageURLs, fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID()))
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// BuildComment returns an unsaved comment on post written after it.
func (f *Factory) BuildComment(post *models.Post, author *models.User) *models.Comment {
	return &models.Comment{
		ID:        uuid.NewString(),
		PostID:    post.ID,
		UserID:    author.ID,
		Content:   f.faker.Sentence(10),
		CreatedAt: post.CreatedAt.Add(time.Duration(1+f.rng.IntN(600)) * time.Minute),
	}
}

// Result lists what Generate wrote.
type Result struct {
	Users    []*models.User
	Posts    []*models.Post
	Comments []*models.Comment
}

// Generate writes Options.NumUsers users, spreads Options.NumPosts posts
// across them and adds up to Options.CommentsPerPost comments to each post.
func (f *Factory) Generate(ctx context.Context) (*Result, error) {
	res := &Result{}
	if f.opts.NumUsers <= 0 {
		return res, nil
	}

	for range f.opts.NumUsers {
		res.Users = append(res.Users, f.BuildUser())
	}
	if err := f.daos.Users.Upsert(ctx, res.Users...); err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}

	for range f.opts.NumPosts {
		author := res.Users[f.rng.IntN(len(res.Users))]
		post := f.BuildPost(author)
		if err := f.daos.Posts.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		res.Posts = append(res.Posts, post)

		if f.opts.CommentsPerPost <= 0 {
			continue
		}
		for range f.rng.IntN(f.opts.CommentsPerPost + 1) {
			comment := f.BuildComment(post, res.Users[f.rng.IntN(len(res.Users))])
			if err := f.daos.Comments.Create(ctx, comment); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			res.Comments = append(res.Comments, comment)
		}
	}
	return res, nil
}

func (f *Factory) pastTime() time.Time {
	back := time.Duration(f.rng.IntN(f.opts.MaxDays*24*60)) * time.Minute
	return f.now().Add(-back)
}
