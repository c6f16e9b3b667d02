package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/veselov/interview-coach/internal/interview"
	"github.com/veselov/interview-coach/internal/store"
)

// UserStore is the account persistence the auth handlers need.
type UserStore interface {
	Create(ctx context.Context, username, password string) (*store.User, error)
	Authenticate(ctx context.Context, username, password string) (*store.User, error)
}

// InterviewStore receives finished interviews and serves the history view.
type InterviewStore interface {
	Save(ctx context.Context, rec *interview.Record) error
	ListByUser(ctx context.Context, userID uint) ([]store.InterviewRecord, error)
}

type Config struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration
}

const defaultTokenTTL = 24 * time.Hour

// Server is the HTTP boundary: auth plus the interview lifecycle endpoints.
// It renders nothing; the browser UI consumes the JSON API.
type Server struct {
	app         *fiber.App
	cfg         *Config
	logger      *zap.Logger
	users       UserStore
	interviews  InterviewStore
	registry    *interview.Registry
	interviewer interview.Interviewer
}

// New builds the server and its routes. interviewer may be nil when no
// backend credential is configured; sessions then reject answers with a 503
// instead of the server refusing to start.
func New(cfg *Config, logger *zap.Logger, users UserStore, interviews InterviewStore, registry *interview.Registry, interviewer interview.Interviewer) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "interview-coach",
			DisableStartupMessage: true,
		}),
		cfg:         cfg,
		logger:      logger,
		users:       users,
		interviews:  interviews,
		registry:    registry,
		interviewer: interviewer,
	}

	api := s.app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", s.register)
	auth.Post("/login", s.login)

	sessions := api.Group("/interviews", s.requireAuth)
	sessions.Post("/", s.createInterview)
	sessions.Get("/:id", s.getInterview)
	sessions.Post("/:id/answers", s.submitAnswer)
	sessions.Get("/:id/result", s.getResult)

	api.Get("/history", s.requireAuth, s.history)

	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen() error {
	s.logger.Info("starting http server", zap.String("addr", s.cfg.Addr))
	return s.app.Listen(s.cfg.Addr)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func fail(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}
