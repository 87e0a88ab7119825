// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package events

import (
	"context"
	"log/slog"
	"strings"

	"codeberg.org/oliverandrich/identity-recovery/internal/errs"
	"codeberg.org/oliverandrich/identity-recovery/internal/models"
)

// Publisher builds recovery events and hands them to the bus.
type Publisher struct {
	bus Bus
}

// NewPublisher returns a publisher for bus. A nil bus drops every event.
func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus}
}

// Publish sends the named event. Only populated values become properties.
// A bus failure is returned as a PublishEvent server error.
func (p *Publisher) Publish(ctx context.Context, name string, user *models.User, code string,
	rec *models.RecoveryRecord, extra map[string]any,
) error {
	if p == nil || p.bus == nil {
		return nil
	}

	props := make(map[string]any, len(extra)+5)
	if user != nil {
		props[PropUserName] = user.Username
		props[PropTenantDomain] = user.TenantDomain
		props[PropUserStoreDomain] = user.StoreDomain()
	}
	if strings.TrimSpace(code) != "" {
		props[PropConfirmationCode] = code
	}
	if rec != nil {
		snapshot := *rec
		props[PropRecoveryData] = snapshot
	}
	for k, v := range extra {
		if v != nil {
			props[k] = v
		}
	}

	if err := p.bus.HandleEvent(ctx, Event{Name: name, Properties: props}); err != nil {
		slog.Error("failed to publish event", "event", name, "error", err)
		return errs.Server(errs.PublishEvent, name, err)
	}
	return nil
}

// LookupProperties returns the extra properties of a recovery data lookup event.
// The failure description is omitted unless kind names an error.
func LookupProperties(status OperationStatus, kind errs.Kind, skipExpiry bool) map[string]any {
	scenario := WithCodeExpiryValidation
	if skipExpiry {
		scenario = WithoutCodeExpiryValidation
	}
	props := map[string]any{
		PropOperationStatus: status,
		PropLookupScenario:  scenario,
	}
	if kind != errs.KindNone {
		props[PropOperationDesc] = kind.String()
	}
	return props
}
