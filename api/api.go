// Package api implements a self-contained emission assistant backend.
//
// It serves the same HTTP surface as the production service (streaming and
// single-shot chat, session management, file preview and downloads) with an
// in-memory store and canned emission-factor answers. It exists so the CLI
// can be exercised end to end without the real model pipeline, both by
// "emission serve" and by integration tests.
package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Server is the stub assistant backend.
type Server struct {
	config Config
	store  *store
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a stub backend server with an empty in-memory store.
func NewServer(config Config, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// Multipart chat bodies can carry spreadsheet uploads
		StreamRequestBody: true,
	})

	s := &Server{
		config: config,
		store:  newStore(),
		logger: logger,
		app:    app,
	}

	app.Post("/api/chat/stream", s.handleChatStream)
	app.Post("/api/chat", s.handleChat)

	app.Post("/api/sessions/new", s.handleNewSession)
	app.Get("/api/sessions", s.handleListSessions)
	app.Get("/api/sessions/:id/history", s.handleHistory)
	app.Patch("/api/sessions/:id/title", s.handleRenameSession)
	app.Delete("/api/sessions/:id", s.handleDeleteSession)

	app.Post("/api/file/preview", s.handleFilePreview)
	app.Get("/api/file/download/message/:session_id/:message_id", s.handleDownloadMessageFile)
	app.Get("/api/file/download/:file_id", s.handleDownloadFile)
	app.Get("/api/download/:filename", s.handleDownloadByName)
	app.Get("/api/file/template/:type", s.handleTemplate)

	app.Get("/api/health", s.handleHealth)

	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting stub backend", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}
