package repository

import (
	"context"
	"time"

	"bookdot/internal/dao"
	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/stream"
	"bookdot/internal/validation"
)

const (
	storyRepo = "story"

	DefaultStoryTTL = 24 * time.Hour
)

// StoryRepository manages expiring stories in the local cache.
type StoryRepository struct {
	env
	daos    *dao.DAOs
	session Session
	log     *observability.RepoLogger
}

func NewStoryRepository(daos *dao.DAOs, session Session) *StoryRepository {
	return &StoryRepository{
		env:     defaultEnv(),
		daos:    daos,
		session: session,
		log:     observability.NewRepoLogger("stories"),
	}
}

// Active streams unexpired stories with their authors attached.
func (r *StoryRepository) Active(ctx context.Context) *stream.Subscription[[]*models.Story] {
	return stream.Map(ctx, r.daos.Stories.ObserveActive(ctx, r.now), r.attachAuthors)
}

func (r *StoryRepository) ByUser(ctx context.Context, userID string) (_ []*models.Story, err error) {
	defer func() { err = boundary(storyRepo, "by_user", err) }()

	stories, err := r.daos.Stories.ByUser(ctx, userID, r.now())
	if err != nil {
		return nil, err
	}
	return r.attachAuthors(ctx, stories)
}

func (r *StoryRepository) attachAuthors(ctx context.Context, stories []*models.Story) ([]*models.Story, error) {
	ids := make([]string, 0, len(stories))
	for _, s := range stories {
		ids = append(ids, s.UserID)
	}
	authors, err := r.daos.Users.GetMany(ctx, ids)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, s := range stories {
		s.User = authors[s.UserID]
	}
	return stories, nil
}

func (r *StoryRepository) Create(ctx context.Context, in models.CreateStoryInput) (_ *models.Story, err error) {
	defer func() { err = boundary(storyRepo, "create", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = DefaultStoryTTL
	}
	now := r.now()
	story := &models.Story{
		ID:        r.newID(),
		UserID:    uid,
		MediaURL:  in.MediaURL,
		MediaType: in.MediaType,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := r.daos.Stories.Insert(ctx, story); err != nil {
		return nil, err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"story_id": story.ID})
	return story, nil
}

// MarkViewed is a no-op for a story already viewed.
func (r *StoryRepository) MarkViewed(ctx context.Context, id string) (err error) {
	defer func() { err = boundary(storyRepo, "mark_viewed", err) }()

	story, err := r.daos.Stories.Get(ctx, id)
	if err != nil {
		return err
	}
	if story == nil {
		return models.NewNotFoundError("story", id)
	}
	_, err = r.daos.Stories.MarkViewed(ctx, id)
	return err
}

// PurgeExpired deletes stories past their expiry and returns how many went.
func (r *StoryRepository) PurgeExpired(ctx context.Context) (_ int64, err error) {
	defer func() { err = boundary(storyRepo, "purge_expired", err) }()

	n, err := r.daos.Stories.DeleteExpired(ctx, r.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.LogDelete(ctx, map[string]interface{}{"expired": n})
	}
	return n, nil
}
