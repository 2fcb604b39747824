// Package middleware holds the fiber middleware of the REST backend.
package middleware

import (
	"context"
	"strings"

	"bookdot/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UserIDLocal is the fiber local holding the authenticated uid.
const UserIDLocal = "userID"

// TokenVerifier resolves a bearer token to the uid it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// AuthRequired rejects requests without a valid session token and stores the
// uid in c.Locals(UserIDLocal).
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewNotAuthenticatedError())
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized, &models.AppError{
				Code:    models.CodeNotAuthenticated,
				Message: "invalid authorization header format",
			})
		}

		uid, err := verifier.Verify(c.UserContext(), parts[1])
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.AsAppError(err))
		}

		c.Locals(UserIDLocal, uid)
		return c.Next()
	}
}

// UserID returns the authenticated uid or "".
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals(UserIDLocal).(string)
	return uid
}
