// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"codeberg.org/oliverandrich/identity-recovery/internal/errs"
	"codeberg.org/oliverandrich/identity-recovery/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestInit(t *testing.T) {
	err := i18n.Init()
	require.NoError(t, err)
}

func TestT(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	assert.Equal(t, "Identity Recovery", i18n.T(ctx, "app_name"))
}

func TestT_German(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.German)

	assert.Equal(t, "Kontowiederherstellung", i18n.T(ctx, "app_name"))
	assert.Equal(t, "de", i18n.GetLocale(ctx))
}

func TestT_UnknownKey(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	// Unknown messages fall back to their id
	result := i18n.T(ctx, "unknown_key_that_does_not_exist")
	assert.Equal(t, "unknown_key_that_does_not_exist", result)
}

func TestT_NoLocaleContext(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := context.Background()

	assert.Equal(t, "Identity Recovery", i18n.T(ctx, "app_name"))
	assert.Equal(t, "en", i18n.GetLocale(ctx))
}

func TestTData(t *testing.T) {
	require.NoError(t, i18n.Init())

	ctx := i18n.WithLocale(context.Background(), language.English)

	result := i18n.TData(ctx, "error_recovery_data_not_found_for_user", map[string]any{"Value": "alice"})
	assert.Equal(t, "No recovery is in progress for alice.", result)
}

func TestMessageID(t *testing.T) {
	assert.Equal(t, "error_expired_code", i18n.MessageID(errs.ExpiredCode))
	assert.Equal(t, "error_captcha_response_missing", i18n.MessageID(errs.CaptchaResponseMissing))
}

func TestErrorMessage_ClientKindsAreTranslated(t *testing.T) {
	require.NoError(t, i18n.Init())

	for _, lang := range []language.Tag{language.English, language.German} {
		ctx := i18n.WithLocale(context.Background(), lang)
		for k := errs.InvalidCode; k <= errs.CaptchaInvalid; k++ {
			t.Run(lang.String()+"/"+k.String(), func(t *testing.T) {
				msg := i18n.ErrorMessage(ctx, errs.Client(k, "x"))
				assert.NotEqual(t, i18n.MessageID(k), msg)
				assert.NotEmpty(t, msg)
			})
		}
	}
}

func TestErrorMessage_Wrapped(t *testing.T) {
	require.NoError(t, i18n.Init())
	ctx := i18n.WithLocale(context.Background(), language.English)

	err := fmt.Errorf("verify: %w", errs.Client(errs.ExpiredCode, "abc"))

	assert.Equal(t, "The code you entered has expired. Please request a new one.", i18n.ErrorMessage(ctx, err))
}

func TestErrorMessage_ServerErrorsAreOpaque(t *testing.T) {
	require.NoError(t, i18n.Init())
	ctx := i18n.WithLocale(context.Background(), language.English)
	internal := i18n.T(ctx, i18n.MessageInternalError)

	assert.Equal(t, internal, i18n.ErrorMessage(ctx, errs.Server(errs.StoringRecoveryData, "", errors.New("disk full"))))
	assert.Equal(t, internal, i18n.ErrorMessage(ctx, errors.New("plain")))
	assert.NotContains(t, internal, "disk full")
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		acceptLanguage string
		expected       string
	}{
		{"en-US,en;q=0.9", "en"},
		{"de-DE,de;q=0.9", "de"},
		{"de", "de"},
		{"fr-FR", "en"},
		{"", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.acceptLanguage, func(t *testing.T) {
			// Compare base language (ignore region)
			assert.Equal(t, tt.expected, i18n.MatchLanguage(tt.acceptLanguage).String()[:2])
		})
	}
}
