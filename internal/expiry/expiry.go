// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package expiry resolves how long recovery codes and recovery flows stay valid.
package expiry

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"codeberg.org/oliverandrich/identity-recovery/internal/models"
)

// Configuration keys.
const (
	KeyExpiryTime                   = "Recovery.ExpiryTime"
	KeySelfRegistrationCodeExpiry   = "SelfRegistration.VerificationCode.ExpiryTime"
	KeySelfRegistrationSMSOTPExpiry = "SelfRegistration.VerificationCode.SMSOTP.ExpiryTime"
	KeyAskPasswordExpiry            = "EmailVerification.AskPassword.ExpiryTime"
	KeyPasswordRecoverySMSOTPExpiry = "Recovery.Notification.Password.smsOtp.ExpiryTime"
	KeyEmailVerificationOnUpdate    = "UserClaimUpdate.Email.VerificationCode.ExpiryTime"
	KeyMobileVerificationOnUpdate   = "UserClaimUpdate.MobileNumber.VerificationCode.ExpiryTime"
	KeyLiteRegistrationCodeExpiry   = "LiteRegistration.VerificationCode.ExpiryTime"
	KeyLiteRegistrationSMSOTPExpiry = "LiteRegistration.VerificationCode.SMSOTP.ExpiryTime"
	KeyAdminPasswordResetExpiry     = "Recovery.AdminPasswordReset.ExpiryTime"
	KeyMaxResendAttempts            = "Recovery.Notification.Password.MaxResendAttempts"
	KeyMaxFailedAttempts            = "Recovery.Notification.Password.MaxFailedAttempts"
	PropertyTenantAdminAskPassword  = "TenantRegistrationVerification.TenantAdminAskPwd.ExpiryTime"
	PropertyRecoveryCodeExpiry      = "Recovery.RecoveryCode.ExpiryTime"
	PropertyResendCodeExpiry        = "Recovery.ResendCode.ExpiryTime"
)

// Defaults applied when a key is missing or malformed, in minutes unless noted.
const (
	DefaultExpiryMinutes       = 1440
	DefaultSMSOTPExpiryMinutes = 1
	DefaultRecoveryCodeMinutes = 1
	DefaultResendCodeMinutes   = 1
	DefaultFlowExpiryMinutes   = 15
	DefaultMaxResendAttempts   = 5
	DefaultMaxFailedAttempts   = 3
)

// Unlimited stands in for negative configured expiries.
const Unlimited = math.MaxInt32

// Source supplies raw configuration values.
type Source interface {
	// TenantValue returns the value of key for the tenant.
	TenantValue(tenant, key string) (string, bool)
	// Property returns a tenant-independent value.
	Property(key string) (string, bool)
}

// Resolver maps scenarios to expiry durations. It never fails the caller.
type Resolver struct {
	src Source
}

func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// CodeExpiryMinutes returns the validity window of a code issued for the
// given scenario and step. channel is the channel hint kept with the record.
func (r *Resolver) CodeExpiryMinutes(tenant string, scenario models.Scenario, step models.Step, channel string) int {
	minutes := r.codeExpiry(tenant, scenario, step, channel)
	if minutes < 0 {
		return Unlimited
	}
	return minutes
}

func (r *Resolver) codeExpiry(tenant string, scenario models.Scenario, step models.Step, channel string) int {
	switch scenario {
	case models.SelfSignUp:
		if step == models.ConfirmSignUp {
			return r.channelExpiry(tenant, channel, KeySelfRegistrationCodeExpiry, KeySelfRegistrationSMSOTPExpiry)
		}
	case models.AskPassword:
		return r.tenantInt(tenant, KeyAskPasswordExpiry, DefaultExpiryMinutes)
	case models.UsernameRecovery:
		return r.propertyInt(PropertyRecoveryCodeExpiry, DefaultRecoveryCodeMinutes)
	case models.NotificationBasedPasswordRecovery:
		switch {
		case step == models.ResendConfirmationCode:
			return r.propertyInt(PropertyResendCodeExpiry, DefaultResendCodeMinutes)
		case step == models.SendRecoveryInformation:
			return r.propertyInt(PropertyRecoveryCodeExpiry, DefaultRecoveryCodeMinutes)
		case channel == models.ChannelSMS:
			return r.tenantInt(tenant, KeyPasswordRecoverySMSOTPExpiry, DefaultSMSOTPExpiryMinutes)
		}
	case models.EmailVerificationOnUpdate, models.EmailVerificationOnVerifiedListUpdate:
		return r.tenantInt(tenant, KeyEmailVerificationOnUpdate, DefaultExpiryMinutes)
	case models.TenantAdminAskPassword:
		return r.propertyInt(PropertyTenantAdminAskPassword, DefaultExpiryMinutes)
	case models.LiteSignUp:
		if step == models.ConfirmLiteSignUp {
			return r.channelExpiry(tenant, channel, KeyLiteRegistrationCodeExpiry, KeyLiteRegistrationSMSOTPExpiry)
		}
	case models.MobileVerificationOnUpdate, models.MobileVerificationOnVerifiedListUpdate:
		return r.tenantInt(tenant, KeyMobileVerificationOnUpdate, DefaultExpiryMinutes)
	case models.AdminForcedPasswordResetViaEmailLink,
		models.AdminForcedPasswordResetViaOTP,
		models.AdminForcedPasswordResetViaSMSOTP:
		return r.tenantInt(tenant, KeyAdminPasswordResetExpiry, DefaultExpiryMinutes)
	}
	return r.tenantInt(tenant, KeyExpiryTime, DefaultExpiryMinutes)
}

// channelExpiry picks between the link and SMS OTP keys of a sign-up flow.
// Email matches regardless of case, SMS only exactly; anything else uses the link key.
func (r *Resolver) channelExpiry(tenant, channel, linkKey, smsKey string) int {
	switch {
	case strings.EqualFold(channel, models.ChannelEmail):
		slog.Debug("verification channel detected", "channel", channel)
		return r.tenantInt(tenant, linkKey, DefaultExpiryMinutes)
	case channel == models.ChannelSMS:
		slog.Debug("verification channel detected", "channel", channel)
		return r.tenantInt(tenant, smsKey, DefaultSMSOTPExpiryMinutes)
	default:
		slog.Debug("no verification channel, using link expiry")
		return r.tenantInt(tenant, linkKey, DefaultExpiryMinutes)
	}
}

// FlowExpiryMinutes returns the validity window of a recovery flow id.
func (r *Resolver) FlowExpiryMinutes(tenant, channel string) int {
	var minutes int
	if channel == models.ChannelSMS {
		otp := r.tenantInt(tenant, KeyPasswordRecoverySMSOTPExpiry, DefaultSMSOTPExpiryMinutes)
		minutes = otp * r.MaxResendAttempts(tenant)
	} else {
		minutes = r.tenantInt(tenant, KeyExpiryTime, DefaultExpiryMinutes)
	}
	if minutes < 1 {
		return DefaultFlowExpiryMinutes
	}
	return minutes
}

// MaxResendAttempts is the number of codes a flow may reissue.
func (r *Resolver) MaxResendAttempts(tenant string) int {
	return r.tenantInt(tenant, KeyMaxResendAttempts, DefaultMaxResendAttempts)
}

// MaxFailedAttempts is the number of wrong codes a flow tolerates.
func (r *Resolver) MaxFailedAttempts(tenant string) int {
	return r.tenantInt(tenant, KeyMaxFailedAttempts, DefaultMaxFailedAttempts)
}

func (r *Resolver) tenantInt(tenant, key string, def int) int {
	var (
		raw string
		ok  bool
	)
	if r.src != nil {
		raw, ok = r.src.TenantValue(tenant, key)
	}
	return parseInt(key, raw, ok, def)
}

func (r *Resolver) propertyInt(key string, def int) int {
	var (
		raw string
		ok  bool
	)
	if r.src != nil {
		raw, ok = r.src.Property(key)
	}
	return parseInt(key, raw, ok, def)
}

func parseInt(key, raw string, ok bool, def int) int {
	if !ok || strings.TrimSpace(raw) == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		slog.Debug("malformed expiry configuration, using default", "key", key, "default", def)
		return def
	}
	return n
}

// Expired reports whether a record created at createdAt with the given
// validity window has passed its expiry at now.
func Expired(createdAt time.Time, minutes int, now time.Time) bool {
	if minutes < 0 || minutes >= Unlimited {
		return false
	}
	return now.After(createdAt.Add(time.Duration(minutes) * time.Minute))
}
