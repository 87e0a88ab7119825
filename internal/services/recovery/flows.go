// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package recovery

import (
	"context"
	"crypto/subtle"
	"log/slog"

	"codeberg.org/oliverandrich/identity-recovery/internal/errs"
	"codeberg.org/oliverandrich/identity-recovery/internal/models"
	"codeberg.org/oliverandrich/identity-recovery/internal/store"
)

// Flows runs the multi-step recovery sequences: start a flow, resend its
// code, verify a submitted code and move on to the next step.
type Flows struct {
	store *store.Store
	gen   *Generator
}

// NewFlows creates the flow helper. A nil generator uses the defaults.
func NewFlows(st *store.Store, gen *Generator) *Flows {
	if gen == nil {
		gen = NewGenerator(0)
	}
	return &Flows{store: st, gen: gen}
}

// Begin starts a new recovery flow for user and issues its first code.
// Codes the user still holds for the same scenario and step are invalidated.
func (f *Flows) Begin(ctx context.Context, user models.User, scenario models.Scenario, step models.Step, channel string) (*models.RecoveryRecord, error) {
	if err := f.store.InvalidateUserScenarioStep(ctx, user, scenario, step); err != nil {
		return nil, err
	}

	secret, err := f.gen.NewSecret(channel)
	if err != nil {
		return nil, errs.Server(errs.StoringRecoveryFlowData, "", err)
	}

	rec := models.RecoveryRecord{
		User:           user,
		Secret:         secret,
		Scenario:       scenario,
		Step:           step,
		RemainingData:  channel,
		RecoveryFlowID: f.gen.NewFlowID(),
	}
	if err := f.store.StoreInit(ctx, rec); err != nil {
		return nil, err
	}

	slog.Debug("recovery flow started", "flow", rec.RecoveryFlowID, "scenario", scenario, "step", step)
	return &rec, nil
}

// Resend replaces the current code of a flow at step by a fresh one. The
// original creation time is kept. Once the tenant's resend limit is reached
// the flow is invalidated.
func (f *Flows) Resend(ctx context.Context, flowID string, step models.Step) (*models.RecoveryRecord, error) {
	rec, err := f.store.LoadFromRecoveryFlowID(ctx, flowID, step)
	if err != nil {
		return nil, err
	}

	limit := f.store.Resolver().MaxResendAttempts(rec.User.TenantDomain)
	if rec.ResendCount >= limit {
		if err := f.store.InvalidateWithRecoveryFlowID(ctx, flowID); err != nil {
			return nil, err
		}
		return nil, errs.Client(errs.ResendLimitExceeded, flowID)
	}

	secret, err := f.gen.NewSecret(rec.RemainingData)
	if err != nil {
		return nil, errs.Server(errs.Unexpected, "", err)
	}
	if err := f.store.InvalidateWithoutChangeTimeCreated(ctx, rec.Secret, secret, step, rec.RemainingData); err != nil {
		return nil, err
	}
	if err := f.store.UpdateCodeResendCount(ctx, flowID, rec.ResendCount+1); err != nil {
		return nil, err
	}

	rec.Secret = secret
	rec.ResendCount++
	return rec, nil
}

// Verify checks a submitted code against the current code of a flow at step.
// A mismatch counts as a failed attempt; reaching the tenant's limit
// invalidates the flow.
func (f *Flows) Verify(ctx context.Context, flowID string, step models.Step, code string) (*models.RecoveryRecord, error) {
	rec, err := f.store.LoadFromRecoveryFlowID(ctx, flowID, step)
	if err != nil {
		return nil, err
	}

	if matches(rec.Secret, code) {
		return rec, nil
	}

	failed := rec.FailedAttempts + 1
	if failed >= f.store.Resolver().MaxFailedAttempts(rec.User.TenantDomain) {
		if err := f.store.InvalidateWithRecoveryFlowID(ctx, flowID); err != nil {
			return nil, err
		}
		return nil, errs.Client(errs.FailedAttemptsExceeded, flowID)
	}
	if err := f.store.UpdateFailedAttempts(ctx, flowID, failed); err != nil {
		return nil, err
	}
	return nil, errs.Client(errs.InvalidCode, code)
}

// Advance consumes the code of rec and issues the code of the flow's next step.
func (f *Flows) Advance(ctx context.Context, rec models.RecoveryRecord, next models.Step) (*models.RecoveryRecord, error) {
	if err := f.store.Invalidate(ctx, rec.Secret); err != nil {
		return nil, err
	}
	if err := f.store.InvalidateUserScenarioStep(ctx, rec.User, rec.Scenario, next); err != nil {
		return nil, err
	}

	secret, err := f.gen.NewSecret(rec.RemainingData)
	if err != nil {
		return nil, errs.Server(errs.StoringRecoveryFlowData, rec.RecoveryFlowID, err)
	}

	nextRec := models.RecoveryRecord{
		User:           rec.User,
		Secret:         secret,
		Scenario:       rec.Scenario,
		Step:           next,
		RemainingData:  rec.RemainingData,
		RecoveryFlowID: rec.RecoveryFlowID,
	}
	if err := f.store.StoreConfirmationCode(ctx, nextRec); err != nil {
		return nil, err
	}
	return &nextRec, nil
}

// Complete ends a flow and removes everything stored for it.
func (f *Flows) Complete(ctx context.Context, flowID string) error {
	return f.store.InvalidateWithRecoveryFlowID(ctx, flowID)
}

func matches(stored, submitted string) bool {
	if stored == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1 {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(NormalizeCode(submitted))) == 1
}
