// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package store

import (
	"context"

	"codeberg.org/oliverandrich/identity-recovery/internal/errs"
	"codeberg.org/oliverandrich/identity-recovery/internal/models"
)

func (s *Store) prepare(rec models.RecoveryRecord) models.RecoveryRecord {
	rec.User = normalizeUser(rec.User)
	rec.CreatedAt = s.clock()
	rec.FailedAttempts = 0
	rec.ResendCount = 0
	rec.Expired = false
	return rec
}

// Store inserts a record created now. Earlier records for the same purpose
// must be invalidated by the caller.
func (s *Store) Store(ctx context.Context, rec models.RecoveryRecord) error {
	if err := s.repo.CreateRecoveryData(ctx, s.prepare(rec)); err != nil {
		return storageError(err, errs.StoringRecoveryData, "")
	}
	return nil
}

// StoreInit starts a recovery flow with zero counters and stores its first record.
func (s *Store) StoreInit(ctx context.Context, rec models.RecoveryRecord) error {
	if rec.RecoveryFlowID == "" {
		return errs.Client(errs.InvalidFlowID, "")
	}
	rec = s.prepare(rec)
	flow := models.RecoveryFlowRecord{
		RecoveryFlowID: rec.RecoveryFlowID,
		CreatedAt:      rec.CreatedAt,
	}
	if err := s.repo.CreateRecoveryFlow(ctx, flow, rec); err != nil {
		return storageError(err, errs.StoringRecoveryFlowData, rec.RecoveryFlowID)
	}
	return nil
}

// StoreConfirmationCode stores the record of a flow's next step and makes
// its code the flow's current one.
func (s *Store) StoreConfirmationCode(ctx context.Context, rec models.RecoveryRecord) error {
	if rec.RecoveryFlowID == "" {
		return errs.Client(errs.InvalidFlowID, "")
	}
	if err := s.repo.CreateFlowRecoveryData(ctx, s.prepare(rec)); err != nil {
		return storageError(err, errs.StoringRecoveryFlowData, rec.RecoveryFlowID)
	}
	return nil
}

// UpdateFailedAttempts overwrites the failed attempt counter of a flow.
func (s *Store) UpdateFailedAttempts(ctx context.Context, flowID string, count int) error {
	if err := s.repo.UpdateFailedAttempts(ctx, flowID, count); err != nil {
		if isNotFound(err) {
			return errs.Client(errs.InvalidFlowID, flowID)
		}
		return storageError(err, errs.UpdatingRecoveryFlowData, flowID)
	}
	return nil
}

// UpdateCodeResendCount overwrites the resend counter of a flow.
func (s *Store) UpdateCodeResendCount(ctx context.Context, flowID string, count int) error {
	if err := s.repo.UpdateResendCount(ctx, flowID, count); err != nil {
		if isNotFound(err) {
			return errs.Client(errs.InvalidFlowID, flowID)
		}
		return storageError(err, errs.UpdatingRecoveryFlowData, flowID)
	}
	return nil
}

// Invalidate removes the record owning code.
func (s *Store) Invalidate(ctx context.Context, code string) error {
	if err := s.repo.DeleteRecoveryDataByCode(ctx, code); err != nil {
		return storageError(err, errs.Unexpected, "")
	}
	return nil
}

// InvalidateUser removes every record of a user.
func (s *Store) InvalidateUser(ctx context.Context, user models.User) error {
	if err := s.repo.DeleteUserRecoveryData(ctx, s.userKey(user)); err != nil {
		return storageError(err, errs.Unexpected, "")
	}
	return nil
}

// InvalidateUserScenarioStep removes the records of a user for one scenario and step.
func (s *Store) InvalidateUserScenarioStep(ctx context.Context, user models.User, scenario models.Scenario, step models.Step) error {
	if err := s.repo.DeleteUserRecoveryDataFor(ctx, s.userKey(user), scenario, step); err != nil {
		return storageError(err, errs.Unexpected, "")
	}
	return nil
}

// InvalidateWithRecoveryFlowID removes a recovery flow and all its records.
func (s *Store) InvalidateWithRecoveryFlowID(ctx context.Context, flowID string) error {
	if err := s.repo.DeleteRecoveryFlow(ctx, flowID); err != nil {
		return storageError(err, errs.Unexpected, "")
	}
	return nil
}

// InvalidateWithoutChangeTimeCreated replaces oldCode by newCode and moves the
// record to step. The creation time is kept so expiry still counts from the
// first issuance. Rotating an unknown code fails with InvalidCode.
func (s *Store) InvalidateWithoutChangeTimeCreated(ctx context.Context, oldCode, newCode string, step models.Step, channel string) error {
	changed, err := s.repo.RotateCode(ctx, oldCode, newCode, step, channel)
	if err != nil {
		return storageError(err, errs.Unexpected, "")
	}
	if !changed {
		return errs.Client(errs.InvalidCode, oldCode)
	}
	return nil
}
