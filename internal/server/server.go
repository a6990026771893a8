// Package server exposes cleaning and settings over a small JSON HTTP API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jmylchreest/cleanlink/internal/logger"
	"github.com/jmylchreest/cleanlink/internal/version"
	"github.com/jmylchreest/cleanlink/pkg/settings"
)

const (
	// maxBodySize bounds request bodies; a clean request is a handful of URLs.
	maxBodySize = 1 << 20
	// maxBatch bounds the number of URLs in one clean request.
	maxBatch = 1000
	// shutdownTimeout is how long in-flight requests get once ctx is done.
	shutdownTimeout = 10 * time.Second
)

// Server serves the HTTP API for one settings Manager.
type Server struct {
	app     *fiber.App
	manager *settings.Manager
}

// New builds the API. Nothing listens until Run.
func New(manager *settings.Manager) *Server {
	s := &Server{manager: manager}

	s.app = fiber.New(fiber.Config{
		AppName:               "cleanlink " + version.Get().Version,
		BodyLimit:             maxBodySize,
		DisableStartupMessage: true,
		UnescapePath:          true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          errorHandler,
		JSONEncoder:           marshalJSON,
	})
	s.app.Use(recover.New())
	s.app.Use(requestLogger)
	s.routes()
	return s
}

// App returns the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) routes() {
	s.app.Get("/healthz", s.handleHealth)

	v1 := s.app.Group("/v1")
	v1.Get("/categories", s.handleCategories)
	v1.Post("/clean", s.handleClean)
	v1.Get("/preview", s.handlePreview)
	v1.Get("/stats", s.handleStats)

	st := v1.Group("/settings")
	st.Get("/", s.handleSettings)
	st.Put("/categories/:name", s.handleEnableCategory)
	st.Delete("/categories/:name", s.handleDisableCategory)
	st.Post("/params", s.handleAddParam)
	st.Delete("/params/:param", s.handleRemoveParam)
	st.Post("/reset", s.handleReset)
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- s.app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	logger.Debug("http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start))
	return err
}

// marshalJSON keeps '&' in URLs readable instead of escaping it as \u0026.
func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

type errorResponse struct {
	Error string `json:"error"`
}

// errorHandler maps domain errors onto status codes.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, settings.ErrUnknownCategory):
		code = fiber.StatusNotFound
	case errors.Is(err, settings.ErrEmptyParam), errors.Is(err, settings.ErrInvalidParam):
		code = fiber.StatusBadRequest
	}

	if code >= fiber.StatusInternalServerError {
		logger.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}
