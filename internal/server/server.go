// Package server exposes the game over JSON HTTP. All state lives in the
// game service; handlers only parse, delegate and translate errors.
package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"gandalf-gate/internal/game"
)

const sessionHeader = "X-Session-ID"

type Server struct {
	app *fiber.App
	svc *game.Service
	log zerolog.Logger
}

func New(svc *game.Service, logger zerolog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "gandalf-gate",
	})
	s := &Server{app: app, svc: svc, log: logger}

	app.Use(requestLogger(logger))

	api := app.Group("/api")
	api.Post("/login", s.handleLogin)
	api.Get("/state", s.handleState)
	api.Post("/chat", s.handleChat)
	api.Post("/validate-password", s.handleValidatePassword)
	api.Post("/set-level", s.handleSetLevel)
	api.Get("/leaderboard", s.handleLeaderboard)

	return s
}

func (s *Server) Listen(port int) error {
	return s.app.Listen(fmt.Sprintf(":%d", port))
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
