// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package captcha

import (
	"maps"
	"slices"
)

// FlowContext is the state of one running flow as the flow engine hands it
// to interceptors. Hooks receive exclusive access for the duration of a call
// and may only change properties and the per-action input sets.
type FlowContext struct {
	FlowType     string
	TenantDomain string
	ContextID    string

	properties     map[string]any
	requiredInputs map[string]map[string]struct{}
	stepInputs     map[string]map[string]struct{}
	userInput      map[string]string
}

// NewFlowContext creates a context with the given actions registered.
func NewFlowContext(flowType, tenant, contextID string, actions ...string) *FlowContext {
	fc := &FlowContext{
		FlowType:       flowType,
		TenantDomain:   tenant,
		ContextID:      contextID,
		properties:     make(map[string]any),
		requiredInputs: make(map[string]map[string]struct{}),
		stepInputs:     make(map[string]map[string]struct{}),
		userInput:      make(map[string]string),
	}
	for _, a := range actions {
		fc.requiredInputs[a] = make(map[string]struct{})
		fc.stepInputs[a] = make(map[string]struct{})
	}
	return fc
}

// Property returns a named property.
func (fc *FlowContext) Property(key string) (any, bool) {
	v, ok := fc.properties[key]
	return v, ok
}

// SetProperty sets a named property.
func (fc *FlowContext) SetProperty(key string, value any) {
	fc.properties[key] = value
}

// Actions returns the registered actions in sorted order.
func (fc *FlowContext) Actions() []string {
	return slices.Sorted(maps.Keys(fc.requiredInputs))
}

// AddRequiredInput marks input as required to complete action.
func (fc *FlowContext) AddRequiredInput(action, input string) {
	addInput(fc.requiredInputs, action, input)
}

// AddStepInput marks input as collected by the current step for action.
func (fc *FlowContext) AddStepInput(action, input string) {
	addInput(fc.stepInputs, action, input)
}

// RequiredInputs returns the required inputs of action, sorted.
func (fc *FlowContext) RequiredInputs(action string) []string {
	return slices.Sorted(maps.Keys(fc.requiredInputs[action]))
}

// StepInputs returns the inputs the current step collects for action, sorted.
func (fc *FlowContext) StepInputs(action string) []string {
	return slices.Sorted(maps.Keys(fc.stepInputs[action]))
}

// UserInput returns a value submitted by the user.
func (fc *FlowContext) UserInput(key string) string {
	return fc.userInput[key]
}

// SetUserInput records a value submitted by the user.
func (fc *FlowContext) SetUserInput(key, value string) {
	fc.userInput[key] = value
}

func addInput(sets map[string]map[string]struct{}, action, input string) {
	set, ok := sets[action]
	if !ok {
		set = make(map[string]struct{})
		sets[action] = set
	}
	set[input] = struct{}{}
}
