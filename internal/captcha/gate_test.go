// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package captcha

import (
	"context"
	"errors"
	"testing"

	"codeberg.org/oliverandrich/identity-recovery/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTenant  = "test.com"
	testContext = "contextId"
	testAction  = "action1"
	testFlow    = "PASSWORD_RECOVERY"
	testSiteKey = "site-key"
)

type fakeProvider struct {
	enabled     bool
	enabledErr  error
	valid       bool
	verifyErr   error
	verified    []string
	enabledCall int
}

func (f *fakeProvider) SiteKey() string { return testSiteKey }

func (f *fakeProvider) EnabledForFlow(context.Context, string, string) (bool, error) {
	f.enabledCall++
	return f.enabled, f.enabledErr
}

func (f *fakeProvider) Verify(_ context.Context, response string) (bool, error) {
	f.verified = append(f.verified, response)
	return f.valid, f.verifyErr
}

func newContext() *FlowContext {
	return NewFlowContext(testFlow, testTenant, testContext, testAction)
}

func captchaStep() *Step {
	return &Step{
		Type:   "VIEW",
		FlowID: "flow-1",
		Data: &StepData{
			Components: []*Component{
				{
					ID:   "form_1",
					Type: "FORM",
					Components: []*Component{
						{ID: "username", Type: "INPUT"},
						{ID: "captcha_f12v", Type: ComponentTypeCaptcha, Variant: "RECAPTCHA_V2"},
					},
				},
			},
		},
	}
}

func TestBeforeStep_NotRequired(t *testing.T) {
	p := &fakeProvider{}
	g := NewGate(p)

	err := g.BeforeStep(context.Background(), newContext())

	require.NoError(t, err)
	assert.Empty(t, p.verified)
}

func TestBeforeStep_PropertyFalse(t *testing.T) {
	p := &fakeProvider{}
	fc := newContext()
	fc.SetProperty(PropertyEnabled, false)

	err := NewGate(p).BeforeStep(context.Background(), fc)

	require.NoError(t, err)
	assert.Empty(t, p.verified)
}

func TestBeforeStep_MissingResponse(t *testing.T) {
	fc := newContext()
	fc.SetProperty(PropertyEnabled, true)
	fc.SetUserInput(ResponseInput, "   ")

	err := NewGate(&fakeProvider{valid: true}).BeforeStep(context.Background(), fc)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCaptchaResponseMissing)
	assert.True(t, errs.IsClient(err))
}

func TestBeforeStep_ValidResponse(t *testing.T) {
	p := &fakeProvider{valid: true}
	fc := newContext()
	fc.SetProperty(PropertyEnabled, true)
	fc.SetUserInput(ResponseInput, "token")

	err := NewGate(p).BeforeStep(context.Background(), fc)

	require.NoError(t, err)
	assert.Equal(t, []string{"token"}, p.verified)
}

func TestBeforeStep_InvalidResponse(t *testing.T) {
	fc := newContext()
	fc.SetProperty(PropertyEnabled, true)
	fc.SetUserInput(ResponseInput, "token")

	err := NewGate(&fakeProvider{valid: false}).BeforeStep(context.Background(), fc)

	assert.ErrorIs(t, err, errs.ErrCaptchaInvalid)
	assert.True(t, errs.IsClient(err))
}

func TestBeforeStep_ProviderFailure(t *testing.T) {
	fc := newContext()
	fc.SetProperty(PropertyEnabled, true)
	fc.SetUserInput(ResponseInput, "token")

	err := NewGate(&fakeProvider{verifyErr: errors.New("timeout")}).BeforeStep(context.Background(), fc)

	assert.ErrorIs(t, err, errs.ErrCaptchaUnavailable)
	assert.True(t, errs.IsServer(err))
}

func TestAfterStep_Disabled(t *testing.T) {
	fc := newContext()
	step := captchaStep()

	err := NewGate(&fakeProvider{enabled: false}).AfterStep(context.Background(), step, fc)

	require.NoError(t, err)
	_, ok := fc.Property(PropertyEnabled)
	assert.False(t, ok)
	assert.Empty(t, fc.RequiredInputs(testAction))
	assert.Nil(t, step.Data.Components[0].Components[1].Configs)
}

func TestAfterStep_EnabledWithCaptchaComponent(t *testing.T) {
	fc := newContext()
	step := captchaStep()

	err := NewGate(&fakeProvider{enabled: true}).AfterStep(context.Background(), step, fc)

	require.NoError(t, err)
	v, ok := fc.Property(PropertyEnabled)
	require.True(t, ok)
	assert.Equal(t, true, v)
	assert.Equal(t, []string{ResponseInput}, fc.RequiredInputs(testAction))
	assert.Equal(t, []string{ResponseInput}, fc.StepInputs(testAction))
	assert.Equal(t, testSiteKey, step.Data.Components[0].Components[1].Configs[ConfigKey])
}

func TestAfterStep_EnabledWithoutCaptchaComponent(t *testing.T) {
	fc := newContext()
	step := &Step{Type: "VIEW", Data: &StepData{Components: []*Component{{ID: "username", Type: "INPUT"}}}}

	err := NewGate(&fakeProvider{enabled: true}).AfterStep(context.Background(), step, fc)

	require.NoError(t, err)
	_, ok := fc.Property(PropertyEnabled)
	assert.False(t, ok)
	assert.Empty(t, fc.RequiredInputs(testAction))
}

func TestAfterStep_NoStepData(t *testing.T) {
	fc := newContext()

	for _, step := range []*Step{nil, {Type: "REDIRECTION"}, {Type: "VIEW", Data: &StepData{}}} {
		err := NewGate(&fakeProvider{enabled: true}).AfterStep(context.Background(), step, fc)
		require.NoError(t, err)
	}

	_, ok := fc.Property(PropertyEnabled)
	assert.False(t, ok)
}

func TestAfterStep_KeepsExistingRequirement(t *testing.T) {
	fc := newContext()
	fc.SetProperty(PropertyEnabled, true)
	step := &Step{Type: "VIEW", Data: &StepData{Components: []*Component{{ID: "otp", Type: "INPUT"}}}}

	err := NewGate(&fakeProvider{enabled: true}).AfterStep(context.Background(), step, fc)

	require.NoError(t, err)
	v, _ := fc.Property(PropertyEnabled)
	assert.Equal(t, true, v)
}

func TestAfterStep_ProviderFailure(t *testing.T) {
	fc := newContext()

	err := NewGate(&fakeProvider{enabledErr: errors.New("boom")}).AfterStep(context.Background(), captchaStep(), fc)

	assert.ErrorIs(t, err, errs.ErrCaptchaUnavailable)
}

func TestAfterStep_AllActions(t *testing.T) {
	fc := NewFlowContext(testFlow, testTenant, testContext, "action1", "action2")

	err := NewGate(&fakeProvider{enabled: true}).AfterStep(context.Background(), captchaStep(), fc)

	require.NoError(t, err)
	assert.Equal(t, []string{"action1", "action2"}, fc.Actions())
	for _, a := range fc.Actions() {
		assert.Contains(t, fc.RequiredInputs(a), ResponseInput)
		assert.Contains(t, fc.StepInputs(a), ResponseInput)
	}
}

func TestFindComponent_Nested(t *testing.T) {
	found := findComponent(captchaStep().Data.Components, ComponentTypeCaptcha)

	require.NotNil(t, found)
	assert.Equal(t, "captcha_f12v", found.ID)
	assert.Nil(t, findComponent(nil, ComponentTypeCaptcha))
	assert.Nil(t, findComponent([]*Component{nil}, ComponentTypeCaptcha))
}
