// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package events_test

import (
	"context"
	"errors"
	"testing"

	"codeberg.org/oliverandrich/identity-recovery/internal/errs"
	"codeberg.org/oliverandrich/identity-recovery/internal/events"
	"codeberg.org/oliverandrich/identity-recovery/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	events []events.Event
	err    error
}

func (b *recordingBus) HandleEvent(_ context.Context, e events.Event) error {
	b.events = append(b.events, e)
	return b.err
}

func TestPublisher_Publish(t *testing.T) {
	bus := &recordingBus{}
	p := events.NewPublisher(bus)
	user := &models.User{Username: "alice", UserStoreDomain: "secondary", TenantDomain: "example.com"}
	rec := &models.RecoveryRecord{User: *user, Secret: "abc", Scenario: models.SelfSignUp}

	err := p.Publish(context.Background(), events.PostGetUserRecoveryData, user, "abc", rec,
		events.LookupProperties(events.StatusSucceeded, errs.KindNone, false))

	require.NoError(t, err)
	require.Len(t, bus.events, 1)
	props := bus.events[0].Properties
	assert.Equal(t, events.PostGetUserRecoveryData, bus.events[0].Name)
	assert.Equal(t, "alice", props[events.PropUserName])
	assert.Equal(t, "example.com", props[events.PropTenantDomain])
	assert.Equal(t, "SECONDARY", props[events.PropUserStoreDomain])
	assert.Equal(t, "abc", props[events.PropConfirmationCode])
	assert.Equal(t, events.StatusSucceeded, props[events.PropOperationStatus])
	assert.Equal(t, events.WithCodeExpiryValidation, props[events.PropLookupScenario])
	assert.Equal(t, *rec, props[events.PropRecoveryData])
	assert.NotContains(t, props, events.PropOperationDesc)
}

func TestPublisher_OmitsEmptyValues(t *testing.T) {
	bus := &recordingBus{}
	p := events.NewPublisher(bus)

	err := p.Publish(context.Background(), events.PreGetUserRecoveryData, nil, "  ", nil,
		map[string]any{"kept": 1, "dropped": nil})

	require.NoError(t, err)
	props := bus.events[0].Properties
	assert.Equal(t, map[string]any{"kept": 1}, props)
}

func TestPublisher_BusFailure(t *testing.T) {
	bus := &recordingBus{err: errors.New("bus down")}
	p := events.NewPublisher(bus)

	err := p.Publish(context.Background(), events.PreGetUserRecoveryData, nil, "", nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrPublishEvent)
	assert.True(t, errs.IsServer(err))
	assert.Contains(t, err.Error(), "bus down")
}

func TestPublisher_NilBus(t *testing.T) {
	p := events.NewPublisher(nil)

	assert.NoError(t, p.Publish(context.Background(), events.PreGetUserRecoveryData, nil, "", nil, nil))
}

func TestLookupProperties(t *testing.T) {
	props := events.LookupProperties(events.StatusFailed, errs.ExpiredCode, true)

	assert.Equal(t, events.StatusFailed, props[events.PropOperationStatus])
	assert.Equal(t, "EXPIRED_CODE", props[events.PropOperationDesc])
	assert.Equal(t, events.WithoutCodeExpiryValidation, props[events.PropLookupScenario])
}

func TestOperationStatus_String(t *testing.T) {
	assert.Equal(t, "unknown", events.StatusUnknown.String())
	assert.Equal(t, "true", events.StatusSucceeded.String())
	assert.Equal(t, "false", events.StatusFailed.String())
}
