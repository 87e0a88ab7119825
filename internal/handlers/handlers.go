// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"codeberg.org/oliverandrich/identity-recovery/internal/events"
	"codeberg.org/oliverandrich/identity-recovery/internal/repository"
	"codeberg.org/oliverandrich/identity-recovery/internal/store"
	"github.com/labstack/echo/v4"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	repo       *repository.Repository
	store      *store.Store
	dispatcher *events.Dispatcher
	heartbeat  time.Duration
}

// New creates a new Handlers instance.
func New(repo *repository.Repository, st *store.Store, dispatcher *events.Dispatcher) *Handlers {
	return &Handlers{
		repo:       repo,
		store:      st,
		dispatcher: dispatcher,
		heartbeat:  30 * time.Second,
	}
}

// SetHeartbeat changes the keep-alive interval of event streams.
func (h *Handlers) SetHeartbeat(d time.Duration) {
	h.heartbeat = d
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if h.repo != nil {
		if err := h.repo.Ping(c.Request().Context()); err != nil {
			slog.Error("health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// PurgeResponse reports a tenant teardown.
type PurgeResponse struct {
	Tenant  string `json:"tenant"`
	Deleted int64  `json:"deleted"`
}

// PurgeTenant removes all recovery data of a tenant.
func (h *Handlers) PurgeTenant(c echo.Context) error {
	tenant := strings.TrimSpace(c.Param("tenant"))
	if tenant == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tenant is required")
	}

	deleted, err := h.store.DeleteRecoveryDataByTenant(c.Request().Context(), tenant)
	if err != nil {
		return err
	}

	slog.Info("tenant recovery data purged", "tenant", tenant, "deleted", deleted)
	return c.JSON(http.StatusOK, PurgeResponse{Tenant: strings.ToLower(tenant), Deleted: deleted})
}
