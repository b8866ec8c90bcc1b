package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tukangku-app/tukangku_be/internal/apperr"
	"github.com/tukangku-app/tukangku_be/internal/services/policy"
)

// fail renders any engine error as the standard envelope with a stable
// machine-readable kind. Internal causes never reach the body.
func fail(c *fiber.Ctx, err error) error {
	return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
		"success": false,
		"error":   string(apperr.KindOf(err)),
		"message": apperr.PublicMessage(err),
	})
}

func ok(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// getActor returns the identity the auth middleware attached.
func getActor(c *fiber.Ctx) (policy.Actor, error) {
	actor, found := c.Locals("actor").(policy.Actor)
	if !found {
		return policy.Actor{}, apperr.New(apperr.KindAuthentication, "missing token")
	}
	return actor, nil
}
