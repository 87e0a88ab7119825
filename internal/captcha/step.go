// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package captcha

// ComponentTypeCaptcha is the type of UI components rendering a CAPTCHA.
const ComponentTypeCaptcha = "CAPTCHA"

// Step is a rendered flow step on its way to the client.
type Step struct {
	Type   string    `json:"type"`
	FlowID string    `json:"flowId"`
	Data   *StepData `json:"data,omitempty"`
}

type StepData struct {
	Components     []*Component   `json:"components,omitempty"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
}

// Component is one UI element of a step. Forms nest their fields.
type Component struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Variant    string         `json:"variant,omitempty"`
	Configs    map[string]any `json:"config,omitempty"`
	Components []*Component   `json:"components,omitempty"`
}

// SetConfig sets a configuration entry, creating the map if needed.
func (c *Component) SetConfig(key string, value any) {
	if c.Configs == nil {
		c.Configs = make(map[string]any)
	}
	c.Configs[key] = value
}

// findComponent returns the first component of the given type, searching
// nested components depth first.
func findComponent(components []*Component, typ string) *Component {
	for _, c := range components {
		if c == nil {
			continue
		}
		if c.Type == typ {
			return c
		}
		if found := findComponent(c.Components, typ); found != nil {
			return found
		}
	}
	return nil
}
