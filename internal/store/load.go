// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package store

import (
	"context"

	"codeberg.org/oliverandrich/identity-recovery/internal/errs"
	"codeberg.org/oliverandrich/identity-recovery/internal/events"
	"codeberg.org/oliverandrich/identity-recovery/internal/models"
	"codeberg.org/oliverandrich/identity-recovery/internal/repository"
)

// lookup describes one published read of recovery data.
type lookup struct {
	user       *models.User
	code       string
	probe      *models.RecoveryRecord // what the caller asked for, sent with the pre event
	skipExpiry bool
}

// observe publishes the pre event, runs fn and publishes the post event with
// fn's outcome. A failing post event replaces fn's result.
func (s *Store) observe(ctx context.Context, l lookup, fn func() (*models.RecoveryRecord, error)) (rec *models.RecoveryRecord, err error) {
	pre := events.LookupProperties(events.StatusUnknown, errs.KindNone, l.skipExpiry)
	if err := s.publisher.Publish(ctx, events.PreGetUserRecoveryData, l.user, l.code, l.probe, pre); err != nil {
		return nil, err
	}

	defer func() {
		status, kind := events.StatusSucceeded, errs.KindNone
		if err != nil {
			status, kind = events.StatusFailed, errs.KindOf(err)
			if kind == errs.KindNone {
				kind = errs.Unexpected
			}
		}

		user, code := l.user, l.code
		if rec != nil {
			u := rec.User
			user = &u
			if code == "" {
				code = rec.Secret
			}
		}

		post := events.LookupProperties(status, kind, l.skipExpiry)
		if pubErr := s.publisher.Publish(ctx, events.PostGetUserRecoveryData, user, code, rec, post); pubErr != nil {
			rec, err = nil, pubErr
		}
	}()

	return fn()
}

// Load returns the record of user for scenario and step whose code is code.
func (s *Store) Load(ctx context.Context, user models.User, scenario models.Scenario, step models.Step, code string) (*models.RecoveryRecord, error) {
	user = normalizeUser(user)
	l := lookup{
		user:  &user,
		code:  code,
		probe: &models.RecoveryRecord{User: user, Scenario: scenario, Step: step},
	}
	return s.observe(ctx, l, func() (*models.RecoveryRecord, error) {
		rec, err := s.repo.GetRecoveryData(ctx, s.userKey(user), scenario, step, code)
		if isNotFound(err) {
			return nil, errs.Client(errs.InvalidCode, code)
		}
		if err != nil {
			return nil, storageError(err, errs.Unexpected, "")
		}
		if s.codeExpired(rec) {
			return nil, errs.Client(errs.ExpiredCode, code)
		}
		return rec, nil
	})
}

// LoadByCode returns the record owning code, failing when it has expired.
func (s *Store) LoadByCode(ctx context.Context, code string) (*models.RecoveryRecord, error) {
	return s.LoadCode(ctx, code, false)
}

// LoadCode returns the record owning code. With skipExpiryValidation an
// expired record is returned with Expired set instead of failing. Its events
// are tagged as validating lookups either way.
func (s *Store) LoadCode(ctx context.Context, code string, skipExpiryValidation bool) (*models.RecoveryRecord, error) {
	l := lookup{code: code}
	return s.observe(ctx, l, func() (*models.RecoveryRecord, error) {
		rec, err := s.repo.GetRecoveryDataByCode(ctx, code)
		if isNotFound(err) {
			return nil, errs.Client(errs.InvalidCode, code)
		}
		if err != nil {
			return nil, storageError(err, errs.Unexpected, "")
		}
		if s.codeExpired(rec) {
			if !skipExpiryValidation {
				return nil, errs.Client(errs.ExpiredCode, code)
			}
			rec.Expired = true
		}
		return rec, nil
	})
}

// LoadFromRecoveryFlowID returns the record of a flow at step together with
// the flow's counters. Both the code and the flow id must be unexpired.
func (s *Store) LoadFromRecoveryFlowID(ctx context.Context, flowID string, step models.Step) (*models.RecoveryRecord, error) {
	l := lookup{probe: &models.RecoveryRecord{RecoveryFlowID: flowID, Step: step}}
	return s.observe(ctx, l, func() (*models.RecoveryRecord, error) {
		flow, err := s.repo.GetRecoveryFlow(ctx, flowID)
		if isNotFound(err) {
			return nil, errs.Client(errs.InvalidFlowID, flowID)
		}
		if err != nil {
			return nil, storageError(err, errs.Unexpected, "")
		}

		rec, err := s.repo.GetRecoveryDataByFlowID(ctx, flowID, step)
		if isNotFound(err) {
			// The flow row may outlive its records while a concurrent
			// invalidation is in progress.
			return nil, errs.Client(errs.InvalidFlowID, flowID)
		}
		if err != nil {
			return nil, storageError(err, errs.Unexpected, "")
		}
		rec.FailedAttempts = flow.FailedAttempts
		rec.ResendCount = flow.ResendCount

		if s.codeExpired(rec) {
			return nil, errs.Client(errs.ExpiredCode, rec.Secret)
		}
		if s.flowExpired(rec.User.TenantDomain, flow.CreatedAt, rec.RemainingData) {
			return nil, errs.Client(errs.ExpiredFlowID, flowID)
		}
		return rec, nil
	})
}

// LoadRecoveryFlowData returns the counters of the flow rec belongs to.
// No events are published.
func (s *Store) LoadRecoveryFlowData(ctx context.Context, rec models.RecoveryRecord) (*models.RecoveryFlowRecord, error) {
	flow, err := s.repo.GetRecoveryFlow(ctx, rec.RecoveryFlowID)
	if isNotFound(err) {
		return nil, errs.Client(errs.InvalidFlowID, rec.RecoveryFlowID)
	}
	if err != nil {
		return nil, storageError(err, errs.Unexpected, "")
	}
	if s.flowExpired(normalizeUser(rec.User).TenantDomain, flow.CreatedAt, rec.RemainingData) {
		return nil, errs.Client(errs.ExpiredFlowID, rec.RecoveryFlowID)
	}
	return flow, nil
}

// LoadLatest returns the most recent record of user, or nil if there is none.
// It fails when the record has expired.
func (s *Store) LoadLatest(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	user = normalizeUser(user)
	l := lookup{user: &user, probe: &models.RecoveryRecord{User: user}}
	rec, err := s.observe(ctx, l, func() (*models.RecoveryRecord, error) {
		rec, err := s.latest(ctx, user, repository.LatestFilter{})
		if err != nil {
			return nil, err
		}
		if s.codeExpired(rec) {
			return nil, errs.Client(errs.ExpiredCode, rec.Secret)
		}
		return rec, nil
	})
	return nilIfNotFound(rec, err)
}

// LoadWithoutCodeExpiryValidation returns the most recent record of user
// regardless of expiry, or nil if there is none.
func (s *Store) LoadWithoutCodeExpiryValidation(ctx context.Context, user models.User) (*models.RecoveryRecord, error) {
	return s.loadTolerant(ctx, user, repository.LatestFilter{})
}

// LoadWithoutCodeExpiryValidationByScenario is LoadWithoutCodeExpiryValidation
// restricted to one scenario.
func (s *Store) LoadWithoutCodeExpiryValidationByScenario(ctx context.Context, user models.User, scenario models.Scenario) (*models.RecoveryRecord, error) {
	return s.loadTolerant(ctx, user, repository.LatestFilter{Scenario: scenario})
}

// LoadWithoutCodeExpiryValidationByStep is LoadWithoutCodeExpiryValidation
// restricted to one scenario and step.
func (s *Store) LoadWithoutCodeExpiryValidationByStep(ctx context.Context, user models.User, scenario models.Scenario, step models.Step) (*models.RecoveryRecord, error) {
	return s.loadTolerant(ctx, user, repository.LatestFilter{Scenario: scenario, Step: step})
}

func (s *Store) loadTolerant(ctx context.Context, user models.User, filter repository.LatestFilter) (*models.RecoveryRecord, error) {
	user = normalizeUser(user)
	l := lookup{
		user:       &user,
		probe:      &models.RecoveryRecord{User: user, Scenario: filter.Scenario, Step: filter.Step},
		skipExpiry: true,
	}
	rec, err := s.observe(ctx, l, func() (*models.RecoveryRecord, error) {
		rec, err := s.latest(ctx, user, filter)
		if err != nil {
			return nil, err
		}
		rec.Expired = s.codeExpired(rec)
		return rec, nil
	})
	return nilIfNotFound(rec, err)
}

// nilIfNotFound drops a NotFound error after the post event has reported it.
func nilIfNotFound(rec *models.RecoveryRecord, err error) (*models.RecoveryRecord, error) {
	if errs.KindOf(err) == errs.NotFound {
		return nil, nil
	}
	return rec, err
}

func (s *Store) latest(ctx context.Context, user models.User, filter repository.LatestFilter) (*models.RecoveryRecord, error) {
	rec, err := s.repo.GetLatestRecoveryData(ctx, s.userKey(user), filter)
	if isNotFound(err) {
		return nil, errs.Client(errs.NotFound, user.Username)
	}
	if err != nil {
		return nil, storageError(err, errs.Unexpected, "")
	}
	return rec, nil
}
