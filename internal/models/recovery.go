// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"strings"
	"time"
)

// Channel hints which out-of-band channel delivered a code.
const (
	ChannelEmail = "EMAIL"
	ChannelSMS   = "SMS"
)

// PrimaryUserStore is the user-store domain assumed when none is given.
const PrimaryUserStore = "PRIMARY"

// User identifies the subject of a recovery record.
type User struct {
	Username        string `json:"username"`
	UserStoreDomain string `json:"user_store_domain"`
	TenantDomain    string `json:"tenant_domain"`
}

// StoreDomain returns the upper-cased user-store domain, defaulting to PRIMARY.
func (u User) StoreDomain() string {
	if u.UserStoreDomain == "" {
		return PrimaryUserStore
	}
	return strings.ToUpper(u.UserStoreDomain)
}

func (u User) String() string {
	return u.StoreDomain() + "/" + u.Username + "@" + u.TenantDomain
}

// RecoveryRecord is a snapshot of one issued code.
type RecoveryRecord struct { //nolint:govet // fieldalignment: readability over optimization
	User           User      `json:"user"`
	Secret         string    `json:"-"`
	Scenario       Scenario  `json:"scenario"`
	Step           Step      `json:"step"`
	CreatedAt      time.Time `json:"created_at"`
	RemainingData  string    `json:"remaining_data,omitempty"`
	RecoveryFlowID string    `json:"recovery_flow_id,omitempty"`

	// Populated only when loaded through a recovery flow id.
	FailedAttempts int `json:"failed_attempts"`
	ResendCount    int `json:"resend_count"`

	// Expired is set instead of failing when expiry validation was skipped.
	Expired bool `json:"expired"`
}

// RecoveryFlowRecord is a snapshot of one multi-step recovery attempt.
type RecoveryFlowRecord struct {
	RecoveryFlowID string    `json:"recovery_flow_id"`
	Code           string    `json:"-"`
	FailedAttempts int       `json:"failed_attempts"`
	ResendCount    int       `json:"resend_count"`
	CreatedAt      time.Time `json:"created_at"`
}
