// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package events carries recovery audit events to interested handlers.
package events

import "context"

// Event names.
const (
	PreGetUserRecoveryData  = "PRE_GET_USER_RECOVERY_DATA"
	PostGetUserRecoveryData = "POST_GET_USER_RECOVERY_DATA"
)

// Property keys of recovery events.
const (
	PropUserName         = "user-name"
	PropTenantDomain     = "tenant-domain"
	PropUserStoreDomain  = "user-store-domain"
	PropRecoveryData     = "user-recovery-data"
	PropConfirmationCode = "confirmation-code"
	PropOperationStatus  = "operation-status"
	PropOperationDesc    = "operation-description"
	PropLookupScenario   = "get-user-recovery-data-scenario"
)

// Values of PropLookupScenario.
const (
	WithCodeExpiryValidation    = "WITH_CODE_EXPIRY_VALIDATION"
	WithoutCodeExpiryValidation = "WITHOUT_CODE_EXPIRY_VALIDATION"
)

// OperationStatus is the outcome reported by a post event. The zero value
// means the outcome is not known yet.
type OperationStatus int

const (
	StatusUnknown OperationStatus = iota
	StatusSucceeded
	StatusFailed
)

func (s OperationStatus) String() string {
	switch s {
	case StatusSucceeded:
		return "true"
	case StatusFailed:
		return "false"
	}
	return "unknown"
}

// Event is a named notification with its properties.
type Event struct {
	Name       string
	Properties map[string]any
}

// Bus accepts published events. A returned error fails the publishing operation.
type Bus interface {
	HandleEvent(ctx context.Context, e Event) error
}

// BusFunc adapts a function to Bus.
type BusFunc func(ctx context.Context, e Event) error

func (f BusFunc) HandleEvent(ctx context.Context, e Event) error { return f(ctx, e) }
