package repository

import (
	"context"

	"bookdot/internal/api"
	"bookdot/internal/dao"
	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/stream"
	"bookdot/internal/validation"
)

const userRepo = "user"

// UserRepository reads profiles cache first and falls back to the backend,
// writing whatever it fetched through to the cache.
type UserRepository struct {
	daos    *dao.DAOs
	session Session
	remote  api.UserAPI
	log     *observability.RepoLogger
}

// NewUserRepository builds the repository. remote may be nil, in which case
// only cached profiles are visible.
func NewUserRepository(daos *dao.DAOs, session Session, remote api.UserAPI) *UserRepository {
	return &UserRepository{
		daos:    daos,
		session: session,
		remote:  remote,
		log:     observability.NewRepoLogger("users"),
	}
}

// CurrentUser fetches the signed-in profile.
func (r *UserRepository) CurrentUser(ctx context.Context) (_ *models.User, err error) {
	defer func() { err = boundary(userRepo, "current", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return nil, err
	}
	if r.remote == nil {
		return r.daos.Users.Get(ctx, uid)
	}
	user, err := r.remote.Me(ctx)
	if err != nil {
		return nil, err
	}
	return user, r.daos.Users.Upsert(ctx, user)
}

// GetByID returns nil without an error when neither the cache nor the
// backend knows the user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (_ *models.User, err error) {
	defer func() { err = boundary(userRepo, "get", err) }()

	return r.cacheFirst(ctx, func(ctx context.Context) (*models.User, error) {
		return r.daos.Users.Get(ctx, id)
	}, func(ctx context.Context) (*models.User, error) {
		return r.remote.GetUser(ctx, id)
	})
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (_ *models.User, err error) {
	defer func() { err = boundary(userRepo, "get_by_username", err) }()

	return r.cacheFirst(ctx, func(ctx context.Context) (*models.User, error) {
		return r.daos.Users.GetByUsername(ctx, username)
	}, func(ctx context.Context) (*models.User, error) {
		return r.remote.GetUserByUsername(ctx, username)
	})
}

func (r *UserRepository) cacheFirst(ctx context.Context, local, fetch func(context.Context) (*models.User, error)) (*models.User, error) {
	user, err := local(ctx)
	if err != nil || user != nil || r.remote == nil {
		return user, err
	}
	user, err = fetch(ctx)
	if models.IsCode(err, models.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.daos.Users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Search streams cached users whose username or display name matches.
func (r *UserRepository) Search(ctx context.Context, query string) *stream.Subscription[[]*models.User] {
	return r.daos.Users.ObserveSearch(ctx, query)
}

func (r *UserRepository) Follow(ctx context.Context, id string) error {
	return r.setFollowing(ctx, id, true)
}

func (r *UserRepository) Unfollow(ctx context.Context, id string) error {
	return r.setFollowing(ctx, id, false)
}

// setFollowing calls the backend first; the cached flag and counters only
// move when the backend accepted the change.
func (r *UserRepository) setFollowing(ctx context.Context, id string, following bool) (err error) {
	op := "follow"
	if !following {
		op = "unfollow"
	}
	defer func() { err = boundary(userRepo, op, err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return err
	}
	if r.remote != nil {
		if following {
			err = r.remote.Follow(ctx, id)
		} else {
			err = r.remote.Unfollow(ctx, id)
		}
		if err != nil {
			return err
		}
	}

	changed, err := r.daos.Users.SetFollowing(ctx, id, following)
	if err != nil || !changed {
		return err
	}
	delta := 1
	if !following {
		delta = -1
	}
	if _, err := r.daos.Users.AdjustCounter(ctx, uid, dao.FollowingCount, delta); err != nil {
		return err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"user_id": id, "following": following})
	return nil
}

// UpdateProfile edits the signed-in user's profile.
func (r *UserRepository) UpdateProfile(ctx context.Context, in models.UpdateProfileInput) (_ *models.User, err error) {
	defer func() { err = boundary(userRepo, "update_profile", err) }()

	uid, err := requireSession(r.session)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var user *models.User
	if r.remote != nil {
		user, err = r.remote.UpdateMe(ctx, in)
		if err != nil {
			return nil, err
		}
	} else {
		user, err = r.daos.Users.Get(ctx, uid)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, models.NewNotFoundError("user", uid)
		}
		user.DisplayName = in.DisplayName
		user.Bio = in.Bio
		user.AvatarURL = in.AvatarURL
	}
	if err := r.daos.Users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"user_id": uid})
	return user, nil
}
