// Package web provides the HTTP status API for the smartcane daemon.
package web

import (
	"context"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/sweeney/smartcane/internal/status"
)

// Server serves the status API over HTTP.
type Server struct {
	app     *fiber.App
	addr    string
	tracker *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{addr: addr, tracker: tracker}

	app := fiber.New(fiber.Config{
		AppName:               "smartcane",
		DisableStartupMessage: true,
	})
	app.Get("/status", s.handleStatus)
	app.Get("/healthz", s.handleHealth)

	s.app = app
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.app.Listen(s.addr)
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(status.Build(s.tracker.Snapshot()))
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	snap := s.tracker.Snapshot()
	return c.JSON(fiber.Map{
		"status":         "ok",
		"boot_id":        snap.BootID,
		"uptime_seconds": int64(snap.Uptime().Seconds()),
	})
}
