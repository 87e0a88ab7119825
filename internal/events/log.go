// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package events

import (
	"context"
	"log/slog"

	"codeberg.org/oliverandrich/identity-recovery/internal/models"
)

// LogHandler writes an audit line per event. Confirmation codes are never logged.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler returns a handler logging to logger, or to the default logger if nil.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler{logger: logger}
}

func (h *LogHandler) HandleEvent(ctx context.Context, e Event) error {
	attrs := []any{"event", e.Name}
	for _, key := range []string{
		PropUserName, PropTenantDomain, PropUserStoreDomain,
		PropOperationStatus, PropOperationDesc, PropLookupScenario,
	} {
		if v, ok := e.Properties[key]; ok {
			attrs = append(attrs, key, v)
		}
	}
	if rec, ok := e.Properties[PropRecoveryData].(models.RecoveryRecord); ok {
		attrs = append(attrs, "scenario", rec.Scenario.String(), "step", rec.Step.String())
	}

	h.logger.InfoContext(ctx, "recovery event", attrs...)
	return nil
}
