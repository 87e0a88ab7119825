// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package sse formats recovery events for Server-Sent Events streams.
package sse

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/identity-recovery/internal/events"
	"codeberg.org/oliverandrich/identity-recovery/internal/models"
)

// FormatEvent formats a message as an SSE event with optional event name.
// Multiline content is properly prefixed with "data:".
func FormatEvent(eventName, data string) string {
	var sb strings.Builder

	if eventName != "" {
		sb.WriteString(fmt.Sprintf("event: %s\n", eventName))
	}

	// Handle multiline data
	lines := strings.Split(data, "\n")
	for _, line := range lines {
		sb.WriteString(fmt.Sprintf("data: %s\n", line))
	}

	sb.WriteString("\n") // Empty line marks end of event
	return sb.String()
}

// Heartbeat is an SSE comment that keeps the connection alive.
// Comments (lines starting with :) are ignored by SSE clients.
const Heartbeat = ": heartbeat\n\n"

type recordPayload struct {
	Scenario       string `json:"scenario"`
	Step           string `json:"step"`
	RecoveryFlowID string `json:"recovery_flow_id,omitempty"`
	CreatedAt      string `json:"created_at"`
	Expired        bool   `json:"expired,omitempty"`
}

// EncodeEvent renders e as an SSE event named after it. Confirmation codes
// are dropped and the record is reduced to its public fields.
func EncodeEvent(e events.Event) (string, error) {
	props := make(map[string]any, len(e.Properties))
	for k, v := range e.Properties {
		switch k {
		case events.PropConfirmationCode:
			continue
		case events.PropRecoveryData:
			if rec, ok := v.(models.RecoveryRecord); ok {
				v = recordPayload{
					Scenario:       rec.Scenario.Code(),
					Step:           rec.Step.Code(),
					RecoveryFlowID: rec.RecoveryFlowID,
					CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
					Expired:        rec.Expired,
				}
			}
		}
		props[k] = v
	}

	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("failed to encode event %s: %w", e.Name, err)
	}
	return FormatEvent(e.Name, string(data)), nil
}
