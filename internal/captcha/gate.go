// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package captcha gates flow steps behind a CAPTCHA challenge.
package captcha

import (
	"context"
	"log/slog"
	"strings"

	"codeberg.org/oliverandrich/identity-recovery/internal/errs"
)

// Names shared with the flow engine and the UI.
const (
	PropertyEnabled = "captchaEnabled"
	ConfigKey       = "captchaKey"
	ResponseInput   = "captchaResponse"
)

// Provider is the CAPTCHA service.
type Provider interface {
	// SiteKey is the public key the UI renders the widget with.
	SiteKey() string
	// EnabledForFlow reports whether the tenant requires CAPTCHA for flowType.
	EnabledForFlow(ctx context.Context, flowType, tenant string) (bool, error)
	// Verify checks a response token. A false result with a nil error means
	// the token was rejected.
	Verify(ctx context.Context, response string) (bool, error)
}

// Gate runs around flow steps.
type Gate struct {
	provider Provider
}

func NewGate(p Provider) *Gate {
	return &Gate{provider: p}
}

// required reports whether an earlier step turned CAPTCHA on for fc.
func required(fc *FlowContext) bool {
	v, ok := fc.Property(PropertyEnabled)
	if !ok {
		return false
	}
	enabled, _ := v.(bool)
	return enabled
}

// BeforeStep validates the submitted CAPTCHA response if the context
// requires one. Contexts that never rendered a CAPTCHA pass unchecked.
func (g *Gate) BeforeStep(ctx context.Context, fc *FlowContext) error {
	if !required(fc) {
		return nil
	}

	response := strings.TrimSpace(fc.UserInput(ResponseInput))
	if response == "" {
		slog.Debug("captcha response missing", "flow", fc.FlowType, "context", fc.ContextID)
		return errs.Client(errs.CaptchaResponseMissing, fc.FlowType)
	}

	valid, err := g.provider.Verify(ctx, response)
	if err != nil {
		slog.Error("captcha verification failed", "flow", fc.FlowType, "context", fc.ContextID, "error", err)
		return errs.Server(errs.CaptchaUnavailable, fc.FlowType, err)
	}
	if !valid {
		return errs.Client(errs.CaptchaInvalid, fc.FlowType)
	}
	return nil
}

// AfterStep prepares an outgoing step for CAPTCHA rendering when the tenant
// requires it and the step carries a CAPTCHA component. It only ever turns
// the requirement on.
func (g *Gate) AfterStep(ctx context.Context, step *Step, fc *FlowContext) error {
	enabled, err := g.provider.EnabledForFlow(ctx, fc.FlowType, fc.TenantDomain)
	if err != nil {
		return errs.Server(errs.CaptchaUnavailable, fc.FlowType, err)
	}
	if !enabled || step == nil || step.Data == nil || len(step.Data.Components) == 0 {
		return nil
	}

	component := findComponent(step.Data.Components, ComponentTypeCaptcha)
	if component == nil {
		return nil
	}

	component.SetConfig(ConfigKey, g.provider.SiteKey())
	for _, action := range fc.Actions() {
		fc.AddRequiredInput(action, ResponseInput)
		fc.AddStepInput(action, ResponseInput)
	}
	fc.SetProperty(PropertyEnabled, true)

	slog.Debug("captcha enabled for step", "flow", fc.FlowType, "context", fc.ContextID, "component", component.ID)
	return nil
}
