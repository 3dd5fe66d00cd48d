package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/optimd/internal/optimizer"
	"github.com/fyrsmithlabs/optimd/internal/store"
	"github.com/fyrsmithlabs/optimd/internal/template"
)

// Server provides HTTP endpoints for optimd.
type Server struct {
	echo      *echo.Echo
	optimizer *optimizer.Service
	logger    *zap.Logger
	config    *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host              string
	Port              int
	MaxRecentMessages int // default budget for session optimization
	MaxEntryAge       time.Duration
}

// NewServer creates a new HTTP server around the optimizer service.
func NewServer(svc *optimizer.Service, logger *zap.Logger, cfg *Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("optimizer service cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9190,
		}
	}
	if cfg.MaxEntryAge <= 0 {
		cfg.MaxEntryAge = 24 * time.Hour
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(NewHTTPMetrics(logger).Middleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:      e,
		optimizer: svc,
		logger:    logger,
		config:    cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/optimize/prompt", s.handleOptimizePrompt)
	v1.POST("/optimize/message", s.handleOptimizeMessage)
	v1.POST("/optimize/session", s.handleOptimizeSession)
	v1.POST("/optimize/file", s.handleOptimizeFile)
	v1.GET("/content/:id", s.handleContent)
	v1.POST("/content/expired", s.handleClearExpired)
	v1.GET("/stats", s.handleStats)
	v1.POST("/templates", s.handleRegisterTemplate)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleOptimizePrompt(c echo.Context) error {
	var req OptimizePromptRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid prompt request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result := s.optimizer.OptimizePrompt(c.Request().Context(), req.Prompt)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleOptimizeMessage(c echo.Context) error {
	var req OptimizeMessageRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid message request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result := s.optimizer.OptimizeMessage(c.Request().Context(), req.Message)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleOptimizeSession(c echo.Context) error {
	var req OptimizeSessionRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid session request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	maxRecent := req.MaxRecentMessages
	if maxRecent <= 0 {
		maxRecent = s.config.MaxRecentMessages
	}

	result := s.optimizer.OptimizeSession(c.Request().Context(), req.Messages, maxRecent)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleOptimizeFile(c echo.Context) error {
	var req OptimizeFileRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid file request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}

	result, err := s.optimizer.OptimizeFile(c.Request().Context(), req.Content, req.Filename, req.MimeType)
	if err != nil {
		if errors.Is(err, store.ErrContentTooLarge) {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "content exceeds maximum item size")
		}
		s.logger.Error("file optimization failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store content")
	}

	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleContent(c echo.Context) error {
	id := c.Param("id")
	content, ok := s.optimizer.Content(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "content not found")
	}

	return c.JSON(http.StatusOK, ContentResponse{ID: id, Content: content})
}

func (s *Server) handleClearExpired(c echo.Context) error {
	// Bind regardless of Content-Length so chunked bodies are not silently
	// ignored; an absent body leaves the request zero-valued.
	var req ClearExpiredRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	maxAge := s.config.MaxEntryAge
	if req.MaxAge != "" {
		parsed, err := time.ParseDuration(req.MaxAge)
		if err != nil || parsed <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "max_age must be a positive duration")
		}
		maxAge = parsed
	}

	removed := s.optimizer.ClearExpired(maxAge)
	return c.JSON(http.StatusOK, ClearExpiredResponse{Removed: removed})
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.optimizer.Stats())
}

func (s *Server) handleRegisterTemplate(c echo.Context) error {
	var req RegisterTemplateRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid template request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := s.optimizer.RegisterTemplate(&template.Template{
		ID:        req.ID,
		Name:      req.Name,
		Template:  req.Template,
		Variables: req.Variables,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.NoContent(http.StatusCreated)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
