// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/identity-recovery/internal/config"
	"codeberg.org/oliverandrich/identity-recovery/internal/handlers"
	"codeberg.org/oliverandrich/identity-recovery/internal/i18n"
	appmiddleware "codeberg.org/oliverandrich/identity-recovery/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	switch {
	case cfg.Server.AdminToken == "":
		slog.Info("admin routes disabled, no admin token configured")
	case !config.IsLocalhost(cfg.Server.Host):
		slog.Warn("admin routes reachable over plain HTTP", "host", cfg.Server.Host)
	}

	// i18n
	if err := i18n.Init(); err != nil {
		return fmt.Errorf("failed to init i18n: %w", err)
	}

	svc, err := NewServices(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	e := New(cfg, svc)

	return startWithGracefulShutdown(ctx, e, cfg)
}

// New builds the HTTP surface over svc.
func New(cfg *config.Config, svc *Services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, cfg)
	setupRoutes(e, cfg, svc)

	return e
}

func setupRoutes(e *echo.Echo, cfg *config.Config, svc *Services) {
	h := handlers.New(svc.Repo, svc.Store, svc.Dispatcher)

	e.GET("/health", h.Health)

	if cfg.Server.AdminToken == "" {
		return
	}
	admin := e.Group("/admin", appmiddleware.RequireAdminToken(cfg.Server.AdminToken))
	admin.DELETE("/tenants/:tenant/recovery-data", h.PurgeTenant)
	admin.GET("/events", h.Events)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server", "reason", ctx.Err())
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
