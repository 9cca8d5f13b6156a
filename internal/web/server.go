package web

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"WeatherChat/internal/chatbot"
	"WeatherChat/internal/session"
)

// SessionCookie names the cookie carrying the browser session id.
const SessionCookie = "weatherchat_session"

const localSession = "session"

//go:embed static/index.html
var indexHTML string

var validate = validator.New()

// Server is the web front-end. Every browser session gets its own
// session.Session from the registry.
type Server struct {
	app      *fiber.App
	bot      *chatbot.Bot
	registry *session.Registry
	logger   *slog.Logger
}

// NewServer wires the HTTP handlers into a new Fiber app.
func NewServer(bot *chatbot.Bot, registry *session.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		bot:      bot,
		registry: registry,
		logger:   logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "weatherchat",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		// Bound request strings are stored in sessions and must not alias
		// fasthttp's reused buffers.
		Immutable: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  "weatherchat",
			"sessions": s.registry.Count(),
		})
	})

	s.app.Get("/", func(c *fiber.Ctx) error {
		c.Type("html", "utf-8")
		return c.SendString(indexHTML)
	})

	api := s.app.Group("/api", s.withSession)
	api.Get("/session", s.getSession)
	api.Post("/session/reset", s.resetSession)
	api.Get("/history", s.getHistory)
	api.Get("/weather", s.getWeather)
	api.Post("/chat", s.postChat)
	api.Post("/location", s.postLocation)
	api.Post("/crop", s.postCrop)

	return s
}

// App exposes the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	attrs := []any{
		"method", c.Method(),
		"path", c.Path(),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	} else {
		attrs = append(attrs, "status", c.Response().StatusCode())
	}
	s.logger.Info("http request", attrs...)
	return err
}

// withSession resolves the session cookie, creating a session when the
// cookie is missing or its session has expired.
func (s *Server) withSession(c *fiber.Ctx) error {
	sess, ok := s.registry.Get(c.Cookies(SessionCookie))
	if !ok {
		sess = s.registry.Create()
		s.setCookie(c, sess.ID)
		s.logger.Info("created new session", "session_id", sess.ID, "backend", sess.Backend)
	}
	c.Locals(localSession, sess)
	return c.Next()
}

func (s *Server) setCookie(c *fiber.Ctx, id string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func currentSession(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(localSession).(*session.Session)
	return sess
}
