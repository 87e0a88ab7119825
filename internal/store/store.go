// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package store persists recovery codes and recovery flows and enforces
// their expiry when they are read back.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"codeberg.org/oliverandrich/identity-recovery/internal/errs"
	"codeberg.org/oliverandrich/identity-recovery/internal/events"
	"codeberg.org/oliverandrich/identity-recovery/internal/expiry"
	"codeberg.org/oliverandrich/identity-recovery/internal/models"
	"codeberg.org/oliverandrich/identity-recovery/internal/repository"
)

// UserStores reports how usernames of a user store compare.
type UserStores interface {
	IsCaseSensitive(userStoreDomain, tenant string) bool
}

type caseSensitive struct{}

func (caseSensitive) IsCaseSensitive(string, string) bool { return true }

// Store is the recovery data store. It is safe for concurrent use; isolation
// between concurrent writers is left to the database.
type Store struct {
	repo       *repository.Repository
	resolver   *expiry.Resolver
	publisher  *events.Publisher
	userStores UserStores
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithUserStores sets the case sensitivity source. Without it every user
// store is case sensitive.
func WithUserStores(us UserStores) Option {
	return func(s *Store) { s.userStores = us }
}

// New returns a store backed by repo.
func New(repo *repository.Repository, resolver *expiry.Resolver, publisher *events.Publisher, opts ...Option) *Store {
	s := &Store{
		repo:       repo,
		resolver:   resolver,
		publisher:  publisher,
		userStores: caseSensitive{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the expiry resolver the store validates with.
func (s *Store) Resolver() *expiry.Resolver {
	return s.resolver
}

func (s *Store) clock() time.Time {
	return s.now().UTC()
}

func normalizeUser(u models.User) models.User {
	u.UserStoreDomain = u.StoreDomain()
	u.TenantDomain = strings.ToLower(u.TenantDomain)
	return u
}

// userKey resolves case sensitivity on every call.
func (s *Store) userKey(u models.User) repository.UserKey {
	u = normalizeUser(u)
	return repository.UserKey{
		Username:      u.Username,
		Domain:        u.UserStoreDomain,
		Tenant:        u.TenantDomain,
		CaseSensitive: s.userStores.IsCaseSensitive(u.UserStoreDomain, u.TenantDomain),
	}
}

func (s *Store) codeExpired(rec *models.RecoveryRecord) bool {
	minutes := s.resolver.CodeExpiryMinutes(rec.User.TenantDomain, rec.Scenario, rec.Step, rec.RemainingData)
	return expiry.Expired(rec.CreatedAt, minutes, s.clock())
}

func (s *Store) flowExpired(tenant string, createdAt time.Time, channel string) bool {
	minutes := s.resolver.FlowExpiryMinutes(tenant, channel)
	return expiry.Expired(createdAt, minutes, s.clock())
}

// storageError maps a repository failure onto the error catalog.
func storageError(err error, kind errs.Kind, value string) error {
	return errs.Server(kind, value, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

// DeleteRecoveryDataByTenant removes every record and flow of a tenant.
func (s *Store) DeleteRecoveryDataByTenant(ctx context.Context, tenant string) (int64, error) {
	n, err := s.repo.DeleteTenantRecoveryData(ctx, strings.ToLower(tenant))
	if err != nil {
		return 0, storageError(err, errs.DeletingRecoveryData, tenant)
	}
	return n, nil
}
