package server

import (
	"context"
	"strings"

	"bookdot/internal/cache"
	"bookdot/internal/dao"
	"bookdot/internal/identity"
	"bookdot/internal/models"
	"bookdot/internal/observability"

	"github.com/gofiber/fiber/v2"
)

const followsKeyPrefix = "follows:"

// follows holds the ids a user follows. The users table only carries counts.
func followsKey(uid string) string { return followsKeyPrefix + uid }

func (s *Server) isFollowing(ctx context.Context, viewer, target string) bool {
	ok, err := s.redis.SIsMember(ctx, followsKey(viewer), target).Result()
	if err != nil {
		observability.Logger.WarnContext(ctx, "follow lookup failed", "viewer", viewer, "target", target, "error", err.Error())
		return false
	}
	return ok
}

func (s *Server) withViewer(ctx context.Context, viewer string, user *models.User) *models.User {
	out := *user
	out.IsFollowing = viewer != user.ID && s.isFollowing(ctx, viewer, user.ID)
	return &out
}

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.ensureUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	uid := currentUserID(c)

	var in models.UpdateProfileInput
	if err := parseBody(c, &in); err != nil {
		return respondError(c, err)
	}
	user, err := s.ensureUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	previous := *user

	user.DisplayName = strings.TrimSpace(in.DisplayName)
	user.Bio = in.Bio
	user.AvatarURL = in.AvatarURL
	if err := s.daos.Users.Upsert(ctx, user); err != nil {
		return respondError(c, err)
	}

	fields := map[string]any{"displayName": user.DisplayName, "bio": user.Bio}
	if user.AvatarURL != nil {
		fields["avatarUrl"] = *user.AvatarURL
	}
	err = s.docs.Collection(identity.CollectionUsers).Doc(uid).Update(ctx, fields)
	if err != nil && !models.IsCode(err, models.CodeNotFound) {
		return respondError(c, err)
	}

	s.invalidateUser(ctx, &previous)
	return c.JSON(user)
}

// SearchUsers handles GET /api/users/search?q=
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	ctx := c.UserContext()
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return c.JSON([]*models.User{})
	}
	users, err := s.daos.Users.Search(ctx, q)
	if err != nil {
		return respondError(c, err)
	}
	viewer := currentUserID(c)
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		out = append(out, s.withViewer(ctx, viewer, u))
	}
	return c.JSON(out)
}

// GetUserProfile handles GET /api/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id := c.Params("id")
	return s.cachedUser(c, cache.UserKey(id), func(ctx context.Context) (*models.User, error) {
		user, err := s.daos.Users.Get(ctx, id)
		if err == nil && user == nil {
			err = models.NewNotFoundError("user", id)
		}
		return user, err
	})
}

// GetUserByUsername handles GET /api/users/username/:username
func (s *Server) GetUserByUsername(c *fiber.Ctx) error {
	username := c.Params("username")
	return s.cachedUser(c, cache.UsernameKey(username), func(ctx context.Context) (*models.User, error) {
		user, err := s.daos.Users.GetByUsername(ctx, username)
		if err == nil && user == nil {
			err = models.NewNotFoundError("user", username)
		}
		return user, err
	})
}

func (s *Server) cachedUser(c *fiber.Ctx, key string, load func(context.Context) (*models.User, error)) error {
	ctx := c.UserContext()
	var user models.User
	err := s.cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		found, err := load(ctx)
		if err != nil {
			return err
		}
		user = *found
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.withViewer(ctx, currentUserID(c), &user))
}

// FollowUser handles POST /api/users/:id/follow
func (s *Server) FollowUser(c *fiber.Ctx) error {
	return s.changeFollow(c, true)
}

// UnfollowUser handles DELETE /api/users/:id/follow
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	return s.changeFollow(c, false)
}

func (s *Server) changeFollow(c *fiber.Ctx, follow bool) error {
	ctx := c.UserContext()
	uid := currentUserID(c)
	target := c.Params("id")
	if target == uid {
		return respondError(c, models.NewValidationError("cannot follow yourself"))
	}

	targetUser, err := s.daos.Users.Get(ctx, target)
	if err != nil {
		return respondError(c, err)
	}
	if targetUser == nil {
		return respondError(c, models.NewNotFoundError("user", target))
	}
	me, err := s.ensureUser(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}

	var changed int64
	if follow {
		changed, err = s.redis.SAdd(ctx, followsKey(uid), target).Result()
	} else {
		changed, err = s.redis.SRem(ctx, followsKey(uid), target).Result()
	}
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}

	if changed > 0 {
		delta := 1
		if !follow {
			delta = -1
		}
		if _, err := s.daos.Users.AdjustCounter(ctx, target, dao.FollowerCount, delta); err != nil {
			return respondError(c, err)
		}
		if _, err := s.daos.Users.AdjustCounter(ctx, uid, dao.FollowingCount, delta); err != nil {
			return respondError(c, err)
		}
		s.invalidateUser(ctx, targetUser)
		s.invalidateUser(ctx, me)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
