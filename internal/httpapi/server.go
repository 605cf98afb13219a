// Package httpapi serves mock message details over HTTP for UI development.
package httpapi

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"go-message-details/internal/mock"
	"go-message-details/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Server struct {
	app     *fiber.App
	builder *mock.Builder
	metrics observability.MetricsCollector
	logger  *logrus.Logger
}

func NewServer(builder *mock.Builder, metrics observability.MetricsCollector) *Server {
	if builder == nil {
		builder = mock.NewBuilder()
	}
	if metrics == nil {
		metrics = observability.NewInMemoryMetrics()
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "message-details",
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler,
		}),
		builder: builder,
		metrics: metrics,
		logger:  observability.GetLogger(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api/messages")
	api.Get("/:id/details", s.getDetails)
	api.Get("/:id/headers", s.getHeaders)
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Serve blocks until the listener is closed or Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.WithField("addr", ln.Addr().String()).Info("HTTP stub listening")
	return s.app.Listener(ln)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// messageID decodes the id after routing, so an encoded "/" stays in the id.
func messageID(c *fiber.Ctx) (string, error) {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid message id: %v", err))
	}
	return id, nil
}

func (s *Server) getDetails(c *fiber.Ctx) error {
	id, err := messageID(c)
	if err != nil {
		return err
	}
	details := s.builder.Build(id)

	switch format := c.Query("format", "json"); format {
	case "json":
		s.served(id, format)
		return c.JSON(details)
	case "yaml":
		out, err := yaml.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		s.served(id, format)
		c.Set(fiber.HeaderContentType, "application/yaml")
		return c.Status(fiber.StatusOK).Send(out)
	default:
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
	}
}

func (s *Server) getHeaders(c *fiber.Ctx) error {
	id, err := messageID(c)
	if err != nil {
		return err
	}
	block, err := s.builder.Build(id).HeaderBlock()
	if err != nil {
		return err
	}
	s.served(id, "headers")
	c.Set(fiber.HeaderContentType, "message/rfc822")
	return c.Status(fiber.StatusOK).Send(block)
}

func (s *Server) served(id, format string) {
	s.metrics.IncDetailsServed()
	s.logger.WithFields(logrus.Fields{
		"message_id": id,
		"format":     format,
	}).Debug("Served message details")
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
