package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gribgrubs/nvidia-nim-proxy/internal/config"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/models"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/observability"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/relay"
	"github.com/gribgrubs/nvidia-nim-proxy/internal/translator"
)

const (
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
	// writeTimeoutSlack is added to the upstream timeout so a slow buffered
	// reply can still be written. Streams clear their write deadline.
	writeTimeoutSlack = 30 * time.Second

	greeting = "OpenAI-compatible NVIDIA NIM Proxy API"
)

type Server struct {
	cfg     config.Config
	relay   *relay.Relay
	app     *echo.Echo
	logger  *slog.Logger
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, rl *relay.Relay, logger *slog.Logger) (*Server, error) {
	if rl == nil {
		return nil, errors.New("relay must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		cfg:     cfg,
		relay:   rl,
		app:     e,
		logger:  logger,
		address: cfg.Server.Address(),
	}

	e.HTTPErrorHandler = srv.handleError

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"request_id", v.RequestID,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	e.Use(observability.Middleware())

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed echo instance.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server)
	s.logger.Info("starting server", "addr", s.address, "upstream", s.cfg.Upstream.BaseURL, "error_mode", s.cfg.Server.ErrorMode)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: s.cfg.Upstream.Timeout + writeTimeoutSlack,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/", s.handleRoot)
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/v1/models", s.handleModels)
	s.app.POST("/v1/chat/completions", s.handleChatCompletions)
	s.app.GET("/metrics", echo.WrapHandler(observability.Handler()))
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": greeting})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(c echo.Context) error {
	return c.JSON(http.StatusOK, models.Catalog())
}

func (s *Server) handleChatCompletions(c echo.Context) error {
	body, err := s.readRequestBody(c)
	if err != nil {
		return err
	}

	payload, err := translator.Translate(body)
	if err != nil {
		return err
	}

	if payload.Stream {
		return s.streamChatCompletions(c, payload)
	}

	resp, err := s.relay.Complete(c.Request().Context(), payload)
	if err != nil {
		return err
	}

	return c.JSONBlob(s.replyStatus(resp.StatusCode), resp.Body)
}

// replyStatus is 200 unless mirroring of upstream status codes is enabled.
func (s *Server) replyStatus(upstreamStatus int) int {
	if s.cfg.Server.MirrorUpstreamStatus && upstreamStatus > 0 {
		return upstreamStatus
	}
	return http.StatusOK
}

func (s *Server) readRequestBody(c echo.Context) ([]byte, error) {
	req := c.Request()
	defer req.Body.Close()

	reader := http.MaxBytesReader(c.Response(), req.Body, s.cfg.Server.MaxBodyBytes)
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, invalidRequest("read request body", err)
	}
	return body, nil
}
