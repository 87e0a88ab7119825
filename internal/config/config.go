// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Recovery RecoveryConfig
	Captcha  CaptchaConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	MaxBodySize int    // in MB
	AdminToken  string // empty disables the admin routes
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type RecoveryConfig struct {
	SettingsFile string // TOML file with properties and per-tenant values
}

type CaptchaConfig struct { //nolint:govet // fieldalignment not critical
	SiteKey   string
	SecretKey string
	VerifyURL string
	Timeout   time.Duration
}

// Enabled reports whether a verifier can be built from the configuration.
func (c CaptchaConfig) Enabled() bool {
	return c.SiteKey != "" && c.SecretKey != ""
}

func NewFromCLI(cmd *cli.Command) *Config {
	return &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			MaxBodySize: int(cmd.Int("max-body-size")),
			AdminToken:  cmd.String("admin-token"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Recovery: RecoveryConfig{
			SettingsFile: cmd.String("recovery-settings"),
		},
		Captcha: CaptchaConfig{
			SiteKey:   cmd.String("captcha-site-key"),
			SecretKey: cmd.String("captcha-secret-key"),
			VerifyURL: cmd.String("captcha-verify-url"),
			Timeout:   cmd.Duration("captcha-timeout"),
		},
	}
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "admin-token",
			Usage:   "Token expected in the X-Admin-Token header of admin requests",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ADMIN_TOKEN"), toml.TOML("server.admin_token", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/recovery.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "recovery-settings",
			Value:   "recovery.toml",
			Usage:   "Path to the recovery settings file (expiry times, tenants)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RECOVERY_SETTINGS"), toml.TOML("recovery.settings", configFile)),
		},
		// CAPTCHA flags
		&cli.StringFlag{
			Name:    "captcha-site-key",
			Usage:   "reCAPTCHA site key rendered into flow steps",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CAPTCHA_SITE_KEY"), toml.TOML("captcha.site_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "captcha-secret-key",
			Usage:   "reCAPTCHA secret key used for verification",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CAPTCHA_SECRET_KEY"), toml.TOML("captcha.secret_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "captcha-verify-url",
			Value:   "https://www.google.com/recaptcha/api/siteverify",
			Usage:   "reCAPTCHA verification endpoint",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CAPTCHA_VERIFY_URL"), toml.TOML("captcha.verify_url", configFile)),
		},
		&cli.DurationFlag{
			Name:    "captcha-timeout",
			Value:   5 * time.Second,
			Usage:   "Timeout for a single verification request",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CAPTCHA_TIMEOUT"), toml.TOML("captcha.timeout", configFile)),
		},
	}
}
