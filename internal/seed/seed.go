// Package seed fills the local cache with demo data for development and tests.
package seed

import (
	"context"
	"fmt"
	"time"

	"bookdot/internal/dao"
	"bookdot/internal/models"
	"bookdot/internal/observability"
)

// SentinelUserID marks a populated cache.
const SentinelUserID = "1"

// Populator writes the fixed demo data set.
type Populator struct {
	daos *dao.DAOs
	now  func() time.Time
}

func NewPopulator(daos *dao.DAOs) *Populator {
	return &Populator{daos: daos, now: func() time.Time { return time.Now().UTC() }}
}

// Populate inserts three users, five posts and four comments. It does nothing
// when the sentinel user already exists and reports whether it wrote.
func (p *Populator) Populate(ctx context.Context) (bool, error) {
	existing, err := p.daos.Users.Get(ctx, SentinelUserID)
	if err != nil {
		return false, fmt.Errorf("check seed sentinel: %w", err)
	}
	if existing != nil {
		observability.Logger.InfoContext(ctx, "seed data already present, skipping")
		return false, nil
	}

	now := p.now()
	ago := func(d time.Duration) time.Time { return now.Add(-d) }

	users := []*models.User{
		{ID: "1", Username: "bootdot_user", DisplayName: "Boot Dot User", Bio: "Writing my own story on Book dot 📚",
			FollowerCount: 120, FollowingCount: 45, PostCount: 8, CreatedAt: ago(24 * time.Hour)},
		{ID: "2", Username: "mobile_dev", DisplayName: "Mobile Developer", Bio: "A developer who loves building for Android 📱",
			FollowerCount: 89, FollowingCount: 67, PostCount: 12, IsFollowing: true, CreatedAt: ago(48 * time.Hour)},
		{ID: "3", Username: "design_guru", DisplayName: "Design Guru", Bio: "Studying UI/UX design and user experience ✨",
			FollowerCount: 234, FollowingCount: 89, PostCount: 15, CreatedAt: ago(72 * time.Hour)},
	}

	posts := []*models.Post{
		{ID: "1", UserID: "1", LikeCount: 42, CreatedAt: ago(time.Hour),
			Content: "Hi everyone! Testing the Boot dot app. It is going to be a great app! 🚀\n\nEverything is running smoothly."},
		{ID: "2", UserID: "2", LikeCount: 67, CreatedAt: ago(2 * time.Hour),
			Content: "Sharing an Android tip! 📱\n\nKotlin and Jetpack Compose make building apps really efficient. Clean Architecture is worth a look too!"},
		{ID: "3", UserID: "1", LikeCount: 28, CreatedAt: ago(4 * time.Hour),
			Content: "Lovely weather today! ☀️ Perfect day for a walk outside."},
		{ID: "4", UserID: "3", LikeCount: 89, CreatedAt: ago(6 * time.Hour),
			Content: "UI design trends for 2025! ✨\n\n1. Minimal design\n2. Dark mode\n3. Micro-interactions\n4. Better accessibility"},
		{ID: "5", UserID: "2", LikeCount: 156, CreatedAt: ago(8 * time.Hour),
			Content: "Let's talk about why code review matters 🤔\n\nGood reviews raise code quality and spread knowledge across the team."},
	}
	for _, post := range posts {
		post.ImageURLs = []string{}
	}

	comments := []*models.Comment{
		{ID: "c1", PostID: "1", UserID: "2", LikeCount: 3, CreatedAt: ago(30 * time.Minute),
			Content: "Great post! 👍"},
		{ID: "c2", PostID: "1", UserID: "3", LikeCount: 1, CreatedAt: ago(15 * time.Minute),
			Content: "Agreed! Boot dot looks really well made."},
		{ID: "c3", PostID: "2", UserID: "1", LikeCount: 5, CreatedAt: ago(90 * time.Minute),
			Content: "Thanks for the tip! Clean Architecture really matters."},
		{ID: "c4", PostID: "4", UserID: "2", LikeCount: 2, CreatedAt: ago(5 * time.Hour),
			Content: "Really helpful trend list. The dark mode point stood out!"},
	}

	if err := p.daos.Users.Upsert(ctx, users...); err != nil {
		return false, fmt.Errorf("seed users: %w", err)
	}
	if err := p.daos.Posts.Upsert(ctx, posts...); err != nil {
		return false, fmt.Errorf("seed posts: %w", err)
	}
	for _, c := range comments {
		if err := p.daos.Comments.Create(ctx, c); err != nil {
			return false, fmt.Errorf("seed comment %s: %w", c.ID, err)
		}
	}

	observability.Logger.InfoContext(ctx, "seeded demo data",
		"users", len(users),
		"posts", len(posts),
		"comments", len(comments),
	)
	return true, nil
}
