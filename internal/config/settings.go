// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
)

// Settings holds the recovery tunables read from the recovery settings file.
//
//	[properties]
//	"Recovery.RecoveryCode.ExpiryTime" = 2
//
//	[defaults]
//	"Recovery.ExpiryTime" = 1440
//
//	[tenants."example.com"]
//	case_insensitive_userstores = ["PRIMARY"]
//	captcha_flows = ["PASSWORD_RECOVERY"]
//	[tenants."example.com".values]
//	"Recovery.ExpiryTime" = 30
type Settings struct {
	Properties map[string]any            `toml:"properties"`
	Defaults   map[string]any            `toml:"defaults"`
	Tenants    map[string]TenantSettings `toml:"tenants"`
}

type TenantSettings struct {
	Values                    map[string]any `toml:"values"`
	CaseInsensitiveUserStores []string       `toml:"case_insensitive_userstores"`
	CaptchaFlows              []string       `toml:"captcha_flows"`
}

// LoadSettings reads the settings file at path. A missing file yields empty
// settings so that every lookup falls back to its built-in default.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("recovery settings file not found, using defaults", "path", path)
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recovery settings: %w", err)
	}
	return ParseSettings(string(data))
}

// ParseSettings decodes settings from TOML. Unknown top-level keys are
// rejected so typos do not silently fall back to defaults.
func ParseSettings(data string) (*Settings, error) {
	var s Settings
	md, err := toml.Decode(data, &s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recovery settings: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown recovery settings keys: %v", undecoded)
	}

	// Tenant domains are matched case-insensitively.
	tenants := make(map[string]TenantSettings, len(s.Tenants))
	for domain, ts := range s.Tenants {
		tenants[strings.ToLower(domain)] = ts
	}
	s.Tenants = tenants

	return &s, nil
}

// TenantValue returns the tenant's value for key, falling back to [defaults].
func (s *Settings) TenantValue(tenant, key string) (string, bool) {
	if ts, ok := s.tenant(tenant); ok {
		if v, ok := ts.Values[key]; ok {
			return stringify(v), true
		}
	}
	if v, ok := s.Defaults[key]; ok {
		return stringify(v), true
	}
	return "", false
}

// Property returns a tenant-independent property.
func (s *Settings) Property(key string) (string, bool) {
	v, ok := s.Properties[key]
	if !ok {
		return "", false
	}
	return stringify(v), true
}

// IsCaseSensitive reports whether usernames in the user store compare exactly.
// Stores are case sensitive unless the tenant lists them otherwise.
func (s *Settings) IsCaseSensitive(userStoreDomain, tenant string) bool {
	ts, ok := s.tenant(tenant)
	if !ok {
		return true
	}
	return !lo.ContainsBy(ts.CaseInsensitiveUserStores, func(d string) bool {
		return strings.EqualFold(d, userStoreDomain)
	})
}

// CaptchaEnabledForFlow reports whether the tenant requires CAPTCHA for flowType.
func (s *Settings) CaptchaEnabledForFlow(flowType, tenant string) bool {
	ts, ok := s.tenant(tenant)
	if !ok {
		return false
	}
	return lo.ContainsBy(ts.CaptchaFlows, func(f string) bool {
		return strings.EqualFold(f, flowType)
	})
}

func (s *Settings) tenant(domain string) (TenantSettings, bool) {
	if s == nil {
		return TenantSettings{}, false
	}
	ts, ok := s.Tenants[strings.ToLower(domain)]
	return ts, ok
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	default:
		return fmt.Sprint(val)
	}
}
