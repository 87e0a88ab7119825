// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/identity-recovery/internal/captcha"
	"codeberg.org/oliverandrich/identity-recovery/internal/config"
	"codeberg.org/oliverandrich/identity-recovery/internal/database"
	"codeberg.org/oliverandrich/identity-recovery/internal/events"
	"codeberg.org/oliverandrich/identity-recovery/internal/expiry"
	"codeberg.org/oliverandrich/identity-recovery/internal/repository"
	"codeberg.org/oliverandrich/identity-recovery/internal/services/recovery"
	"codeberg.org/oliverandrich/identity-recovery/internal/store"
	"github.com/vinovest/sqlx"
)

// Services bundles the recovery components built from one configuration.
// Flows and Gate are not used by the HTTP surface; they are the entry points
// a host flow engine calls when it embeds the recovery core.
type Services struct { //nolint:govet // fieldalignment not critical
	DB         *sqlx.DB
	Repo       *repository.Repository
	Settings   *config.Settings
	Dispatcher *events.Dispatcher
	Store      *store.Store
	Flows      *recovery.Flows
	// Gate is nil when no CAPTCHA keys are configured.
	Gate *captcha.Gate
}

// NewServices opens the database (applying migrations), loads the recovery
// settings and wires the store, flows and CAPTCHA gate.
func NewServices(cfg *config.Config) (*Services, error) {
	settings, err := config.LoadSettings(cfg.Recovery.SettingsFile)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := repository.New(db)
	dispatcher := events.NewDispatcher(events.NewLogHandler(nil))
	st := store.New(repo, expiry.NewResolver(settings), events.NewPublisher(dispatcher),
		store.WithUserStores(settings))

	svc := &Services{
		DB:         db,
		Repo:       repo,
		Settings:   settings,
		Dispatcher: dispatcher,
		Store:      st,
		Flows:      recovery.NewFlows(st, nil),
	}

	if cfg.Captcha.Enabled() {
		provider := captcha.NewReCaptcha(cfg.Captcha.SiteKey, cfg.Captcha.SecretKey,
			cfg.Captcha.VerifyURL, cfg.Captcha.Timeout, settings)
		svc.Gate = captcha.NewGate(provider)
	} else {
		slog.Info("captcha disabled, no keys configured")
	}

	return svc, nil
}

// Close releases the database.
func (s *Services) Close() error {
	return s.DB.Close()
}
