// Command bookdot wires the client-side layers together and walks through
// the account and feed flow against the configured backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bookdot/internal/api"
	"bookdot/internal/auth"
	"bookdot/internal/cache"
	"bookdot/internal/config"
	"bookdot/internal/cryptobox"
	"bookdot/internal/dao"
	"bookdot/internal/database"
	"bookdot/internal/docstore"
	"bookdot/internal/identity"
	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/presenter"
	"bookdot/internal/repository"
	"bookdot/internal/seed"
	"bookdot/internal/service"
	"bookdot/internal/stream"
)

func main() {
	backend := flag.String("backend", "cache", "Feed backend: cache or docstore")
	seedData := flag.Bool("seed", false, "Populate the local cache with demo data first")
	remote := flag.Bool("remote", false, "Mirror cache writes to the REST backend at API_BASE_URL")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.InitLogger(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := database.OpenLocal(cfg.LocalDBPath)
	if err != nil {
		log.Fatalf("Failed to open local store: %v", err)
	}
	defer store.Close()
	daos := dao.New(store)

	rdb, err := cache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	if *seedData {
		if _, err := seed.NewPopulator(daos).Populate(ctx); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	sessions := auth.NewClient(auth.NewIssuer(rdb, cfg.JWTSecret, cfg.SessionTTL))
	docs := docstore.New(rdb)
	accounts := identity.NewService(sessions, docs, daos.Users)

	var box *cryptobox.Box
	if cfg.MessageKey != "" {
		if box, err = cryptobox.New(cfg.MessageKey); err != nil {
			log.Fatalf("Invalid MESSAGE_KEY: %v", err)
		}
	}

	var apiClient *api.Client
	if *remote {
		apiClient = api.NewClient(cfg.APIBaseURL, cfg.APITimeout, sessions)
	}

	var posts repository.PostRepository
	var comments repository.CommentRepository
	switch *backend {
	case "cache":
		var postAPI api.PostAPI
		if apiClient != nil {
			postAPI = apiClient
		}
		posts = repository.NewPostRepository(daos, sessions, postAPI, cfg.FeedLimit)
		comments = repository.NewCommentRepository(daos, sessions)
	case "docstore":
		posts = repository.NewRemotePostRepository(docs, sessions)
		comments = repository.NewRemoteCommentRepository(docs, sessions)
	default:
		log.Fatalf("Unknown backend %q (want cache or docstore)", *backend)
	}

	var userAPI api.UserAPI
	if apiClient != nil {
		userAPI = apiClient
	}
	app := &client{
		auth:     presenter.NewAuthPresenter(accounts),
		posts:    posts,
		postSvc:  service.NewPostService(posts),
		comments: service.NewCommentService(comments),
		users:    repository.NewUserRepository(daos, sessions, userAPI),
		stories:  repository.NewStoryRepository(daos, sessions),
	}
	// Messages are only cached after the backend accepts them.
	if apiClient != nil {
		app.messages = repository.NewMessageRepository(daos, sessions, apiClient, box)
	}
	if err := app.run(ctx); err != nil {
		observability.Logger.ErrorContext(ctx, "scenario failed", "backend", *backend, "error", err.Error())
		os.Exit(1)
	}
	observability.Logger.InfoContext(ctx, "scenario complete", "backend", *backend)
}

type client struct {
	auth     *presenter.AuthPresenter
	posts    repository.PostRepository
	postSvc  *service.PostService
	comments *service.CommentService
	users    *repository.UserRepository
	stories  *repository.StoryRepository
	messages *repository.MessageRepository
}

func (c *client) step(ctx context.Context, name string, args ...any) {
	observability.Logger.InfoContext(ctx, name, args...)
}

func (c *client) run(ctx context.Context) error {
	c.auth.CreateAccount(ctx)
	st := c.auth.State()
	if st.Error != "" {
		return fmt.Errorf("create account: %s", st.Error)
	}
	accountID := st.CurrentUser.AccountID
	c.step(ctx, "account created", "account_id", accountID, "display_name", st.CurrentUser.DisplayName)

	c.auth.Login(ctx, accountID)
	st = c.auth.State()
	if st.Error != "" {
		return fmt.Errorf("login: %s", st.Error)
	}
	c.step(ctx, "logged in", "account_id", accountID, "display_name", st.CurrentUser.DisplayName)

	me, err := c.users.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("current user: %w", err)
	}
	if me != nil {
		c.step(ctx, "profile loaded", "user_id", me.ID, "username", me.Username)
	}

	post, err := c.postSvc.CreatePost(ctx, "hello", nil)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	feed, err := stream.First(ctx, c.postSvc.Feed(ctx))
	if err != nil {
		return fmt.Errorf("read feed: %w", err)
	}
	c.step(ctx, "post created", "post_id", post.ID, "feed_size", len(feed))

	if err := c.postSvc.LikePost(ctx, post.ID, false); err != nil {
		return fmt.Errorf("like: %w", err)
	}
	if err := c.report(ctx, "liked", post.ID); err != nil {
		return err
	}
	if err := c.postSvc.LikePost(ctx, post.ID, true); err != nil {
		return fmt.Errorf("unlike: %w", err)
	}
	if err := c.report(ctx, "like toggled off", post.ID); err != nil {
		return err
	}

	comment, err := c.comments.CreateComment(ctx, post.ID, "hi")
	if err != nil {
		return fmt.Errorf("comment: %w", err)
	}
	if err := c.report(ctx, "commented", post.ID); err != nil {
		return err
	}
	if err := c.comments.DeleteComment(ctx, comment.ID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if err := c.report(ctx, "comment deleted", post.ID); err != nil {
		return err
	}

	if err := c.postSvc.DeletePost(ctx, post.ID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	c.step(ctx, "post deleted", "post_id", post.ID)

	if err := c.followSentinel(ctx); err != nil {
		return err
	}
	if err := c.postStory(ctx); err != nil {
		return err
	}
	if c.messages != nil {
		if err := c.converse(ctx); err != nil {
			return err
		}
	}

	c.auth.Logout(ctx)
	return nil
}

// followSentinel follows and unfollows the demo author when it is cached.
func (c *client) followSentinel(ctx context.Context) error {
	target, err := c.users.GetByID(ctx, seed.SentinelUserID)
	if err != nil {
		return fmt.Errorf("look up %s: %w", seed.SentinelUserID, err)
	}
	if target == nil {
		c.step(ctx, "follow skipped", "reason", "no demo author cached")
		return nil
	}
	if err := c.users.Follow(ctx, target.ID); err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	if err := c.users.Unfollow(ctx, target.ID); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	c.step(ctx, "followed and unfollowed", "user_id", target.ID)
	return nil
}

func (c *client) postStory(ctx context.Context) error {
	story, err := c.stories.Create(ctx, models.CreateStoryInput{
		MediaURL:  "https://picsum.photos/seed/bookdot/600/900",
		MediaType: models.MediaTypeImage,
	})
	if err != nil {
		return fmt.Errorf("create story: %w", err)
	}
	if err := c.stories.MarkViewed(ctx, story.ID); err != nil {
		return fmt.Errorf("view story: %w", err)
	}
	active, err := stream.First(ctx, c.stories.Active(ctx))
	if err != nil {
		return fmt.Errorf("read stories: %w", err)
	}
	purged, err := c.stories.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge stories: %w", err)
	}
	c.step(ctx, "story posted", "story_id", story.ID, "active", len(active), "purged", purged)
	return nil
}

// converse sends one encrypted message to a fresh conversation and cleans up.
func (c *client) converse(ctx context.Context) error {
	conversationID := "demo-" + c.auth.State().CurrentUser.AccountID
	msg, err := c.messages.Send(ctx, conversationID, models.SendMessageInput{Content: "hello there", IsEncrypted: true})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	thread, err := stream.First(ctx, c.messages.Conversation(ctx, conversationID))
	if err != nil {
		return fmt.Errorf("read conversation: %w", err)
	}
	if err := c.messages.MarkConversationAsRead(ctx, conversationID); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if err := c.messages.Delete(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	c.step(ctx, "message round trip", "conversation_id", conversationID, "messages", len(thread))
	return nil
}

func (c *client) report(ctx context.Context, name, postID string) error {
	post, err := c.posts.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if post == nil {
		return fmt.Errorf("%s: post %s disappeared", name, postID)
	}
	c.step(ctx, name,
		"post_id", post.ID,
		"like_count", post.LikeCount,
		"is_liked", post.IsLiked,
		"comment_count", post.CommentCount,
	)
	return nil
}
