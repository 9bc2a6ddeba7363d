package server

import (
	"github.com/gofiber/fiber/v2"

	"gandalf-gate/internal/game"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type validateRequest struct {
	PasswordGuess string `json:"passwordGuess"`
}

type setLevelRequest struct {
	Level *float64 `json:"level"`
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cannot parse JSON body")
	}
	sess, err := s.svc.Login(req.Username, req.Password)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{
		"sessionId": sess.ID,
		"role":      sess.Role,
	})
}

func (s *Server) handleState(c *fiber.Ctx) error {
	sessionID, err := sessionID(c)
	if err != nil {
		return sendError(c, err)
	}
	view, err := s.svc.State(sessionID)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(view)
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	sessionID, err := sessionID(c)
	if err != nil {
		return sendError(c, err)
	}
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cannot parse JSON body")
	}
	res, err := s.svc.Chat(c.Context(), sessionID, req.Message)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleValidatePassword(c *fiber.Ctx) error {
	sessionID, err := sessionID(c)
	if err != nil {
		return sendError(c, err)
	}
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cannot parse JSON body")
	}
	res, err := s.svc.ValidatePassword(sessionID, req.PasswordGuess)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(res)
}

func (s *Server) handleSetLevel(c *fiber.Ctx) error {
	sessionID, err := sessionID(c)
	if err != nil {
		return sendError(c, err)
	}
	var req setLevelRequest
	if err := c.BodyParser(&req); err != nil || req.Level == nil {
		return badRequest(c, "level must be a number")
	}
	view, err := s.svc.SetLevel(sessionID, int(*req.Level))
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(view)
}

func (s *Server) handleLeaderboard(c *fiber.Ctx) error {
	sessionID, err := sessionID(c)
	if err != nil {
		return sendError(c, err)
	}
	entries, err := s.svc.Leaderboard(sessionID)
	if err != nil {
		return sendError(c, err)
	}
	return c.JSON(fiber.Map{"leaderboard": entries})
}

func sessionID(c *fiber.Ctx) (string, error) {
	id := c.Get(sessionHeader)
	if id == "" {
		return "", game.ErrUnauthorized
	}
	return id, nil
}
