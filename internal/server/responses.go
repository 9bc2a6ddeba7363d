package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"gandalf-gate/internal/game"
)

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// sendError maps the game error taxonomy onto HTTP statuses. Messages stay
// short and never echo passwords or prompts.
func sendError(c *fiber.Ctx, err error) error {
	var locked *game.LevelLockedError
	if errors.As(err, &locked) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":       "level is locked",
			"maxUnlocked": locked.MaxUnlocked,
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, game.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, game.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, game.ErrRateLimited):
		status = fiber.StatusTooManyRequests
	case errors.Is(err, game.ErrUpstream):
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
