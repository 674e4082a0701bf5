// Package server wires the HTTP surface, the embedding runtime, and the
// background embedding runner into one process.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/civiclens/civiclens/internal/profile"
	"github.com/civiclens/civiclens/plugin/ai"
	apiv1 "github.com/civiclens/civiclens/server/router/api/v1"
	embeddingrunner "github.com/civiclens/civiclens/server/runner/embedding"
	"github.com/civiclens/civiclens/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Runtime *ai.Runtime

	echoServer *echo.Echo
	runnerStop context.CancelFunc
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	runtime := ai.NewRuntime(ai.NewConfigFromProfile(profile))

	s := &Server{
		Profile:    profile,
		Store:      store,
		Runtime:    runtime,
		echoServer: e,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger())

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	apiV1Service := apiv1.NewAPIV1Service(profile, store, runtime)
	apiV1Service.RegisterRoutes(e)

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)

	// The embedding provider may be slow to come up; the server starts
	// anyway and reports not-ready until the probe succeeds.
	go func() {
		if err := s.Runtime.Initialize(ctx); err != nil {
			slog.Warn("embedding service failed to initialize, duplicate detection unavailable", "error", err)
		}
	}()

	runnerCtx, cancel := context.WithCancel(ctx)
	s.runnerStop = cancel
	go embeddingrunner.NewRunner(s.Store, s.Runtime).Run(runnerCtx)

	go func() {
		slog.Info("server started", "address", address, "mode", s.Profile.Mode)
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if s.runnerStop != nil {
		s.runnerStop()
	}

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	s.Runtime.Shutdown()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}

	slog.Info("server shutdown complete")
}

// requestLogger logs one line per request with a correlation id.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := uuid.New().String()
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			err := next(c)

			slog.Info("request",
				"id", requestID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"elapsed", time.Since(start))
			return err
		}
	}
}
