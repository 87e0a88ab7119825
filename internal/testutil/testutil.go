// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/identity-recovery/internal/config"
	"codeberg.org/oliverandrich/identity-recovery/internal/database"
	"codeberg.org/oliverandrich/identity-recovery/internal/events"
	"codeberg.org/oliverandrich/identity-recovery/internal/expiry"
	"codeberg.org/oliverandrich/identity-recovery/internal/models"
	"codeberg.org/oliverandrich/identity-recovery/internal/repository"
	"codeberg.org/oliverandrich/identity-recovery/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestSettings parses recovery settings from TOML.
func NewTestSettings(t *testing.T, data string) *config.Settings {
	t.Helper()
	s, err := config.ParseSettings(data)
	require.NoError(t, err)
	return s
}

// NewTestUser returns a user of the primary store of example.com.
func NewTestUser(username string) models.User {
	return models.User{Username: username, UserStoreDomain: models.PrimaryUserStore, TenantDomain: "example.com"}
}

// Clock is a manually advanced clock.
type Clock struct {
	now time.Time
	mu  sync.Mutex
}

// NewClock returns a clock frozen at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// RecordingBus keeps every event it receives. Err, if set, is returned for
// events whose name is in FailOn, or for all events if FailOn is empty.
type RecordingBus struct {
	Err    error
	FailOn []string
	events []events.Event
	mu     sync.Mutex
}

func (b *RecordingBus) HandleEvent(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	if b.Err != nil && (len(b.FailOn) == 0 || lo.Contains(b.FailOn, e.Name)) {
		return b.Err
	}
	return nil
}

// Events returns a copy of the received events.
func (b *RecordingBus) Events() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.events...)
}

// Names returns the names of the received events in order.
func (b *RecordingBus) Names() []string {
	return lo.Map(b.Events(), func(e events.Event, _ int) string { return e.Name })
}

// Last returns the most recent event.
func (b *RecordingBus) Last() events.Event {
	evs := b.Events()
	if len(evs) == 0 {
		return events.Event{}
	}
	return evs[len(evs)-1]
}

// Reset drops all received events.
func (b *RecordingBus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// TestStore bundles a store with the collaborators tests inspect.
type TestStore struct { //nolint:govet // fieldalignment not critical in tests
	*store.Store
	Repo     *repository.Repository
	Bus      *RecordingBus
	Clock    *Clock
	Settings *config.Settings
}

// NewTestStore creates a store over an in-memory database, configured
// with the given settings TOML.
func NewTestStore(t *testing.T, settings string) *TestStore {
	t.Helper()
	_, repo := NewTestDB(t)
	s := NewTestSettings(t, settings)
	bus := &RecordingBus{}
	clock := NewClock()
	st := store.New(repo, expiry.NewResolver(s), events.NewPublisher(bus),
		store.WithClock(clock.Now), store.WithUserStores(s))
	return &TestStore{Store: st, Repo: repo, Bus: bus, Clock: clock, Settings: s}
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
