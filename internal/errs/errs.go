// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package errs defines the closed set of recovery error kinds and the
// client/server distinction callers switch on.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Class separates caller faults from faults of this system.
type Class int

const (
	ClassClient Class = iota + 1
	ClassServer
)

func (c Class) String() string {
	switch c {
	case ClassClient:
		return "client"
	case ClassServer:
		return "server"
	}
	return "unknown"
}

// Kind is one entry of the error catalog.
type Kind int

const (
	KindNone Kind = iota
	InvalidCode
	ExpiredCode
	InvalidFlowID
	ExpiredFlowID
	NotFound
	ResendLimitExceeded
	FailedAttemptsExceeded
	CaptchaResponseMissing
	CaptchaInvalid
	Unexpected
	StoringRecoveryData
	StoringRecoveryFlowData
	UpdatingRecoveryFlowData
	DeletingRecoveryData
	PublishEvent
	CaptchaUnavailable
)

type kindInfo struct {
	name     string
	code     string
	class    Class
	template string
}

var catalog = map[Kind]kindInfo{
	InvalidCode:              {"INVALID_CODE", "18001", ClassClient, "Invalid code '%s'."},
	ExpiredCode:              {"EXPIRED_CODE", "18002", ClassClient, "Expired code '%s'."},
	InvalidFlowID:            {"INVALID_FLOW_ID", "18003", ClassClient, "Invalid recovery flow id '%s'."},
	ExpiredFlowID:            {"EXPIRED_FLOW_ID", "18004", ClassClient, "Expired recovery flow id '%s'."},
	NotFound:                 {"RECOVERY_DATA_NOT_FOUND_FOR_USER", "18005", ClassClient, "No recovery data found for user '%s'."},
	ResendLimitExceeded:      {"RESEND_LIMIT_EXCEEDED", "18006", ClassClient, "Maximum resend attempts exceeded for recovery flow id '%s'."},
	FailedAttemptsExceeded:   {"FAILED_ATTEMPTS_EXCEEDED", "18007", ClassClient, "Maximum failed attempts exceeded for recovery flow id '%s'."},
	CaptchaResponseMissing:   {"CAPTCHA_RESPONSE_MISSING", "18008", ClassClient, "CAPTCHA response is missing for flow '%s'."},
	CaptchaInvalid:           {"CAPTCHA_INVALID", "18009", ClassClient, "CAPTCHA response is invalid for flow '%s'."},
	Unexpected:               {"UNEXPECTED", "28001", ClassServer, "Unexpected error '%s'."},
	StoringRecoveryData:      {"STORING_RECOVERY_DATA", "28002", ClassServer, "Error while storing recovery data '%s'."},
	StoringRecoveryFlowData:  {"STORING_RECOVERY_FLOW_DATA", "28003", ClassServer, "Error while storing recovery flow data '%s'."},
	UpdatingRecoveryFlowData: {"UPDATING_RECOVERY_FLOW_DATA", "28004", ClassServer, "Error while updating recovery flow data '%s'."},
	DeletingRecoveryData:     {"ERROR_DELETING_RECOVERY_DATA", "28005", ClassServer, "Error while deleting recovery data of tenant '%s'."},
	PublishEvent:             {"PUBLISH_EVENT", "28006", ClassServer, "Error while publishing event '%s'."},
	CaptchaUnavailable:       {"CAPTCHA_UNAVAILABLE", "28007", ClassServer, "Error while validating CAPTCHA response for flow '%s'."},
}

// String returns the symbolic tag used in event payloads.
func (k Kind) String() string {
	if info, ok := catalog[k]; ok {
		return info.name
	}
	return "NONE"
}

// Code returns the stable identifier of the kind.
func (k Kind) Code() string { return catalog[k].code }

// Class reports whether the kind is a client or a server fault.
func (k Kind) Class() Class { return catalog[k].class }

// Template returns the message template with one %s verb for the value.
func (k Kind) Template() string { return catalog[k].template }

// IsClient reports whether the kind is a client fault.
func (k Kind) IsClient() bool { return k.Class() == ClassClient }

// Sentinels for errors.Is checks.
var (
	ErrInvalidCode            = &Error{Kind: InvalidCode}
	ErrExpiredCode            = &Error{Kind: ExpiredCode}
	ErrInvalidFlowID          = &Error{Kind: InvalidFlowID}
	ErrExpiredFlowID          = &Error{Kind: ExpiredFlowID}
	ErrNotFound               = &Error{Kind: NotFound}
	ErrResendLimitExceeded    = &Error{Kind: ResendLimitExceeded}
	ErrFailedAttemptsExceeded = &Error{Kind: FailedAttemptsExceeded}
	ErrCaptchaResponseMissing = &Error{Kind: CaptchaResponseMissing}
	ErrCaptchaInvalid         = &Error{Kind: CaptchaInvalid}
	ErrUnexpected             = &Error{Kind: Unexpected}
	ErrPublishEvent           = &Error{Kind: PublishEvent}
	ErrCaptchaUnavailable     = &Error{Kind: CaptchaUnavailable}
)

// Error is a recovery error carrying its kind and the offending identifier.
type Error struct {
	Kind  Kind
	Value string
	Err   error
}

// Client creates a client error.
func Client(kind Kind, value string) *Error {
	return &Error{Kind: kind, Value: value}
}

// Server creates a server error wrapping its cause.
func Server(kind Kind, value string, cause error) *Error {
	return &Error{Kind: kind, Value: value, Err: cause}
}

func (e *Error) Error() string {
	msg := e.Message()
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Message renders the kind's template with the value interpolated.
func (e *Error) Message() string {
	tmpl := e.Kind.Template()
	if tmpl == "" {
		return "unknown error"
	}
	msg := fmt.Sprintf(tmpl, e.Value)
	if e.Value == "" {
		msg = strings.ReplaceAll(msg, " ''", "")
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindNone
}

// IsClient reports whether err is a client error.
func IsClient(err error) bool {
	return KindOf(err).Class() == ClassClient
}

// IsServer reports whether err is a server error. Errors outside the catalog
// count as server errors.
func IsServer(err error) bool {
	if err == nil {
		return false
	}
	return !IsClient(err)
}
