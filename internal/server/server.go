package server

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradeforms/internal/classifier"
	"tradeforms/internal/config"
	"tradeforms/internal/history"
	"tradeforms/internal/templates"
	"tradeforms/internal/tradeagent"
)

// Server wraps the Fiber app and the request dependencies.
type Server struct {
	App        *fiber.App
	cfg        config.Config
	agent      *tradeagent.Agent
	classifier *classifier.Classifier
	templates  *templates.Store
	history    *history.Store
}

// New builds the app with middleware and routes registered.
func New(cfg config.Config, agent *tradeagent.Agent, cls *classifier.Classifier, tmplStore *templates.Store, hist *history.Store) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:        app,
		cfg:        cfg,
		agent:      agent,
		classifier: cls,
		templates:  tmplStore,
		history:    hist,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.App.Get("/healthz", s.handleHealth)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.App.Group("/api", s.requireAuth)
	api.Post("/fill", s.handleFill)
	api.Post("/classify-hs", s.handleClassifyHS)
	api.Get("/templates", s.handleListTemplates)
	api.Post("/templates", s.handleCreateTemplate)
	api.Get("/templates/:name", s.handleGetTemplate)
	api.Get("/history", s.handleHistory)
}

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen() error {
	return s.App.Listen(s.cfg.ListenAddr)
}

func (s *Server) Shutdown() error {
	return s.App.Shutdown()
}
