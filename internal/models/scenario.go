// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "fmt"

// Scenario identifies the recovery journey a code belongs to.
// The zero value is not a valid scenario.
type Scenario int

const (
	ScenarioUnknown Scenario = iota
	NotificationBasedPasswordRecovery
	QuestionBasedPasswordRecovery
	UsernameRecovery
	SelfSignUp
	AskPassword
	AdminForcedPasswordResetViaEmailLink
	AdminForcedPasswordResetViaOTP
	AdminForcedPasswordResetViaSMSOTP
	EmailVerification
	TenantAdminAskPassword
	EmailVerificationOnUpdate
	EmailVerificationOnVerifiedListUpdate
	MobileVerificationOnUpdate
	MobileVerificationOnVerifiedListUpdate
	LiteSignUp
)

// scenarioCodes are the persisted identifiers. Never renumber or rename an entry.
var scenarioCodes = map[Scenario]string{
	NotificationBasedPasswordRecovery:      "NOTIFICATION_BASED_PW_RECOVERY",
	QuestionBasedPasswordRecovery:          "QUESTION_BASED_PWD_RECOVERY",
	UsernameRecovery:                       "USERNAME_RECOVERY",
	SelfSignUp:                             "SELF_SIGN_UP",
	AskPassword:                            "ASK_PASSWORD",
	AdminForcedPasswordResetViaEmailLink:   "ADMIN_FORCED_PASSWORD_RESET_VIA_EMAIL_LINK",
	AdminForcedPasswordResetViaOTP:         "ADMIN_FORCED_PASSWORD_RESET_VIA_OTP",
	AdminForcedPasswordResetViaSMSOTP:      "ADMIN_FORCED_PASSWORD_RESET_VIA_SMS_OTP",
	EmailVerification:                      "EMAIL_VERIFICATION",
	TenantAdminAskPassword:                 "TENANT_ADMIN_ASK_PASSWORD",
	EmailVerificationOnUpdate:              "EMAIL_VERIFICATION_ON_UPDATE",
	EmailVerificationOnVerifiedListUpdate:  "EMAIL_VERIFICATION_ON_VERIFIED_LIST_UPDATE",
	MobileVerificationOnUpdate:             "MOBILE_VERIFICATION_ON_UPDATE",
	MobileVerificationOnVerifiedListUpdate: "MOBILE_VERIFICATION_ON_VERIFIED_LIST_UPDATE",
	LiteSignUp:                             "LITE_SIGN_UP",
}

var scenariosByCode = invert(scenarioCodes)

// Code returns the stable code used for persistence and events.
func (s Scenario) Code() string {
	return scenarioCodes[s]
}

func (s Scenario) String() string {
	if code, ok := scenarioCodes[s]; ok {
		return code
	}
	return fmt.Sprintf("Scenario(%d)", int(s))
}

// Valid reports whether s is one of the declared scenarios.
func (s Scenario) Valid() bool {
	_, ok := scenarioCodes[s]
	return ok
}

// ParseScenario maps a stored code back to its scenario.
func ParseScenario(code string) (Scenario, error) {
	if s, ok := scenariosByCode[code]; ok {
		return s, nil
	}
	return ScenarioUnknown, fmt.Errorf("unknown recovery scenario %q", code)
}

// Step is the position within a scenario's multi-step flow.
type Step int

const (
	StepUnknown Step = iota
	SendRecoveryInformation
	ResendConfirmationCode
	ConfirmSignUp
	ConfirmLiteSignUp
	UpdatePassword
	ValidateChallengeQuestion
	ValidateAllChallengeQuestion
	NotifyUser
	VerifyEmail
	VerifyMobileNumber
	SetPassword
)

var stepCodes = map[Step]string{
	SendRecoveryInformation:      "SEND_RECOVERY_INFORMATION",
	ResendConfirmationCode:       "RESEND_CONFIRMATION_CODE",
	ConfirmSignUp:                "CONFIRM_SIGN_UP",
	ConfirmLiteSignUp:            "CONFIRM_LITE_SIGN_UP",
	UpdatePassword:               "UPDATE_PASSWORD",
	ValidateChallengeQuestion:    "VALIDATE_CHALLENGE_QUESTION",
	ValidateAllChallengeQuestion: "VALIDATE_ALL_CHALLENGE_QUESTION",
	NotifyUser:                   "NOTIFY",
	VerifyEmail:                  "VERIFY_EMAIL",
	VerifyMobileNumber:           "VERIFY_MOBILE_NUMBER",
	SetPassword:                  "SET_PASSWORD",
}

var stepsByCode = invert(stepCodes)

// Code returns the stable code used for persistence and events.
func (s Step) Code() string {
	return stepCodes[s]
}

func (s Step) String() string {
	if code, ok := stepCodes[s]; ok {
		return code
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// Valid reports whether s is one of the declared steps.
func (s Step) Valid() bool {
	_, ok := stepCodes[s]
	return ok
}

// ParseStep maps a stored code back to its step.
func ParseStep(code string) (Step, error) {
	if s, ok := stepsByCode[code]; ok {
		return s, nil
	}
	return StepUnknown, fmt.Errorf("unknown recovery step %q", code)
}

func invert[K comparable](m map[K]string) map[string]K {
	out := make(map[string]K, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
