package http

import (
	"github.com/gofiber/fiber/v2"

	"scene-store/internal/shared/utils"
)

// Headers carrying the host context on every API call.
const (
	HeaderProjectID = "X-Project-Id"
	HeaderUserID    = "X-User-Id"
)

// ContextMiddleware copies the host identity headers into the request
// context so the repository and logger can scope their work to the caller's
// project and user.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if projectID := c.Get(HeaderProjectID); projectID != "" {
			ctx = utils.WithProjectID(ctx, projectID)
		}
		if userID := c.Get(HeaderUserID); userID != "" {
			ctx = utils.WithUserID(ctx, userID)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}
