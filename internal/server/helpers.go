package server

import (
	"context"
	"fmt"

	"bookdot/internal/cache"
	"bookdot/internal/identity"
	"bookdot/internal/middleware"
	"bookdot/internal/models"
	"bookdot/internal/observability"
	"bookdot/internal/validation"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 50
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

func parsePagination(c *fiber.Ctx) Pagination {
	limit := c.QueryInt("limit", defaultFeedLimit)
	if limit <= 0 || limit > maxFeedLimit {
		limit = defaultFeedLimit
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return Pagination{Limit: limit, Offset: offset}
}

// respondError writes err with the status matching its code.
func respondError(c *fiber.Ctx, err error) error {
	appErr := models.AsAppError(err)
	if appErr.Code == models.CodeInternal {
		observability.Logger.ErrorContext(c.UserContext(), "request error",
			"path", c.Path(),
			"error", err.Error(),
		)
	}
	return models.RespondWithError(c, models.HTTPStatus(appErr), appErr)
}

// parseBody decodes and validates the JSON body into dest.
func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return models.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return validation.Struct(dest)
}

// ensureUser returns the caller's row, creating it from the document store
// profile on first use.
func (s *Server) ensureUser(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.daos.Users.Get(ctx, uid)
	if err != nil || user != nil {
		return user, err
	}

	var profile models.UserDocument
	found, err := s.docs.Collection(identity.CollectionUsers).Doc(uid).Get(ctx, &profile)
	if err != nil {
		return nil, err
	}
	if found {
		profile.ID = uid
		user = profile.ToUser()
	} else {
		user = &models.User{ID: uid, Username: uid, DisplayName: "User", Bio: identity.DefaultBio, CreatedAt: s.now()}
	}
	user.IsFollowing = false
	if err := s.daos.Users.Upsert(ctx, user); err != nil {
		return nil, err
	}
	observability.Logger.InfoContext(ctx, "mirrored user profile", "user_id", uid, "from_profile", found)
	return user, nil
}

func (s *Server) invalidateUser(ctx context.Context, user *models.User) {
	if user == nil {
		return
	}
	s.cache.Invalidate(ctx, cache.UserKey(user.ID), cache.UsernameKey(user.Username))
}

func currentUserID(c *fiber.Ctx) string {
	return middleware.UserID(c)
}
