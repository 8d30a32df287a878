// Package server exposes the intake workflow as a small JSON API for
// the phone-facing form: run extraction, review and edit the draft,
// confirm. One session, one user, one draft.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/yuchiaw/oil-intake/internal/intake"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo   *echo.Echo
	Group  *echo.Group
	svc    *intake.Service
	logger *slog.Logger
}

func New(svc *intake.Service, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("20M"))

	c := &Controller{
		Echo:   e,
		svc:    svc,
		logger: logger,
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/healthz", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	c.Group = c.Echo.Group("/api/v1")
	c.Group.POST("/intake/extract", c.Extract)
	c.Group.GET("/intake/draft", c.GetDraft)
	c.Group.PUT("/intake/draft/fields/:field", c.EditField)
	c.Group.POST("/intake/draft/reset", c.ResetDraft)
	c.Group.POST("/intake/confirm", c.Confirm)
	c.Group.GET("/intake/history", c.History)
	c.Group.GET("/catalog/suggestions", c.Suggestions)
}

// Start serves until the context is canceled, then shuts down
// gracefully.
func (c *Controller) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := c.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	c.logger.Info("server.listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		c.logger.Info("server.shutting_down")
		return c.Echo.Shutdown(context.Background())
	}
}
