package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/models"
	"github.com/tukangku-app/tukangku_be/internal/services/policy"
	"github.com/tukangku-app/tukangku_be/internal/utils"
)

// Authenticate verifies the bearer token (cookie fallback for browser
// clients) and attaches the verified identity as a policy.Actor local.
func Authenticate(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := ""
		if h := c.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			tokenStr = strings.TrimPrefix(h, "Bearer ")
		}
		if tokenStr == "" {
			tokenStr = c.Cookies("tk_token")
		}
		if tokenStr == "" {
			return unauthenticated(c, "missing token")
		}

		claims, err := utils.VerifyJWT(secret, tokenStr)
		if err != nil {
			return unauthenticated(c, "invalid or expired token")
		}

		uid, err := uuid.Parse(strings.TrimSpace(claims.UserID))
		if err != nil {
			return unauthenticated(c, "invalid token subject")
		}

		c.Locals("actor", policy.Actor{
			UserID: uid,
			Email:  claims.Email,
			Role:   models.Role(strings.ToLower(strings.TrimSpace(claims.Role))),
		})
		return c.Next()
	}
}

// RequireRoles gates a route to the given roles. Authenticate must run first.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		actor, ok := c.Locals("actor").(policy.Actor)
		if !ok {
			return unauthenticated(c, "missing token")
		}
		if !allowedSet[actor.Role] {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   string(apperr.KindAuthorization),
				"message": "insufficient role",
			})
		}
		return c.Next()
	}
}

func unauthenticated(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"error":   string(apperr.KindAuthentication),
		"message": msg,
	})
}
