// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package recovery issues recovery codes and drives recovery flows on top of
// the recovery data store.
package recovery

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"codeberg.org/oliverandrich/identity-recovery/internal/models"
	"github.com/google/uuid"
)

const (
	// CodeLength is the length of a link code (without dashes).
	CodeLength = 12
	// OTPLength is the number of digits of an SMS one-time password.
	OTPLength = 6
)

// alphabet for link codes (lowercase + digits, excluding confusing chars: 0, o, l, 1).
const alphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// Generator creates codes and flow ids.
type Generator struct {
	otpLength int
}

// NewGenerator creates a generator. A non-positive otpLength selects OTPLength.
func NewGenerator(otpLength int) *Generator {
	if otpLength <= 0 {
		otpLength = OTPLength
	}
	return &Generator{otpLength: otpLength}
}

// NewCode returns a random link code.
func (g *Generator) NewCode() (string, error) {
	code, err := generateCode(CodeLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return code, nil
}

// NewOTP returns a random numeric one-time password.
func (g *Generator) NewOTP() (string, error) {
	var b strings.Builder
	b.Grow(g.otpLength)
	ten := big.NewInt(10)
	for range g.otpLength {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate otp: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// NewFlowID returns a fresh recovery flow id.
func (g *Generator) NewFlowID() string {
	return uuid.NewString()
}

// NewSecret returns a code suited for channel: an OTP for SMS, a link code
// otherwise.
func (g *Generator) NewSecret(channel string) (string, error) {
	if channel == models.ChannelSMS {
		return g.NewOTP()
	}
	return g.NewCode()
}

// NormalizeCode removes dashes and surrounding blanks and converts to
// lowercase for comparison.
func NormalizeCode(code string) string {
	code = strings.ReplaceAll(strings.TrimSpace(code), "-", "")
	return strings.ToLower(code)
}

// FormatCode formats a code with dashes for readability (e.g., "a1b2-c3d4-e5f6").
func FormatCode(code string) string {
	var parts []string
	for i := 0; i < len(code); i += 4 {
		end := min(i+4, len(code))
		parts = append(parts, code[i:end])
	}
	return strings.Join(parts, "-")
}

// generateCode generates a random code of the specified length.
func generateCode(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	for i := range bytes {
		bytes[i] = alphabet[int(bytes[i])%len(alphabet)]
	}

	return string(bytes), nil
}
