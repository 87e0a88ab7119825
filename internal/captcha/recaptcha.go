// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FlowPolicy decides per tenant which flows require CAPTCHA.
type FlowPolicy interface {
	CaptchaEnabledForFlow(flowType, tenant string) bool
}

// ReCaptcha verifies responses against the reCAPTCHA siteverify API.
type ReCaptcha struct {
	siteKey   string
	secretKey string
	verifyURL string
	policy    FlowPolicy
	client    *http.Client
}

// NewReCaptcha creates a provider. A zero timeout means no client timeout.
func NewReCaptcha(siteKey, secretKey, verifyURL string, timeout time.Duration, policy FlowPolicy) *ReCaptcha {
	return &ReCaptcha{
		siteKey:   siteKey,
		secretKey: secretKey,
		verifyURL: verifyURL,
		policy:    policy,
		client:    &http.Client{Timeout: timeout},
	}
}

func (r *ReCaptcha) SiteKey() string {
	return r.siteKey
}

func (r *ReCaptcha) EnabledForFlow(_ context.Context, flowType, tenant string) (bool, error) {
	if r.policy == nil {
		return false, nil
	}
	return r.policy.CaptchaEnabledForFlow(flowType, tenant), nil
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (r *ReCaptcha) Verify(ctx context.Context, response string) (bool, error) {
	form := url.Values{}
	form.Set("secret", r.secretKey)
	form.Set("response", response)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call verification endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verification endpoint returned status %d", resp.StatusCode)
	}

	var body siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode verification response: %w", err)
	}
	return body.Success, nil
}
