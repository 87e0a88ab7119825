// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"codeberg.org/oliverandrich/identity-recovery/internal/sse"
	"github.com/labstack/echo/v4"
)

// Events streams recovery events as Server-Sent Events. Repeated "name"
// query parameters restrict the stream to those events.
func (h *Handlers) Events(c echo.Context) error {
	if h.dispatcher == nil {
		return echo.NewHTTPError(http.StatusNotFound, "event stream disabled")
	}

	ctx := c.Request().Context()
	names := c.QueryParams()["name"]

	// Subscribe before the headers are sent.
	ch := h.dispatcher.Subscribe(names...)
	defer h.dispatcher.Unsubscribe(ch)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(sse.FormatEvent("connected", "ok"))); err != nil {
		return nil
	}
	w.Flush()

	// Heartbeat ticker to keep connection alive through proxies
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil // Client disconnected
			}
			w.Flush()
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := sse.EncodeEvent(e)
			if err != nil {
				slog.Error("failed to encode event", "event", e.Name, "error", err)
				continue
			}
			if _, err := w.Write([]byte(msg)); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
