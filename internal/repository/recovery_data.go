// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/identity-recovery/internal/models"
	"github.com/vinovest/sqlx"
)

// UserKey selects the rows of one user. Usernames compare case-folded
// unless CaseSensitive is set.
type UserKey struct {
	Username      string
	Domain        string
	Tenant        string
	CaseSensitive bool
}

func (k UserKey) where() (string, []any) {
	if k.CaseSensitive {
		return `user_name = ? AND user_domain = ? AND tenant_domain = ?`,
			[]any{k.Username, k.Domain, k.Tenant}
	}
	return `LOWER(user_name) = LOWER(?) AND user_domain = ? AND tenant_domain = ?`,
		[]any{k.Username, k.Domain, k.Tenant}
}

type recoveryDataRow struct {
	UserName       string         `db:"user_name"`
	UserDomain     string         `db:"user_domain"`
	TenantDomain   string         `db:"tenant_domain"`
	Code           string         `db:"code"`
	Scenario       string         `db:"scenario"`
	Step           string         `db:"step"`
	TimeCreated    time.Time      `db:"time_created"`
	RemainingSets  string         `db:"remaining_sets"`
	RecoveryFlowID sql.NullString `db:"recovery_flow_id"`
}

const recoveryDataColumns = `user_name, user_domain, tenant_domain, code, scenario, step, time_created, remaining_sets, recovery_flow_id`

func (row recoveryDataRow) record() (*models.RecoveryRecord, error) {
	scenario, err := models.ParseScenario(row.Scenario)
	if err != nil {
		return nil, err
	}
	step, err := models.ParseStep(row.Step)
	if err != nil {
		return nil, err
	}
	return &models.RecoveryRecord{
		User: models.User{
			Username:        row.UserName,
			UserStoreDomain: row.UserDomain,
			TenantDomain:    row.TenantDomain,
		},
		Secret:         row.Code,
		Scenario:       scenario,
		Step:           step,
		CreatedAt:      row.TimeCreated.UTC(),
		RemainingData:  row.RemainingSets,
		RecoveryFlowID: row.RecoveryFlowID.String,
	}, nil
}

func insertRecoveryData(ctx context.Context, ext sqlx.ExecerContext, rec models.RecoveryRecord) error {
	_, err := ext.ExecContext(ctx,
		`INSERT INTO recovery_data (`+recoveryDataColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.User.Username, rec.User.StoreDomain(), rec.User.TenantDomain, rec.Secret,
		rec.Scenario.Code(), rec.Step.Code(), rec.CreatedAt.UTC(), rec.RemainingData,
		sql.NullString{String: rec.RecoveryFlowID, Valid: rec.RecoveryFlowID != ""})
	return err
}

// CreateRecoveryData inserts a recovery record.
func (r *Repository) CreateRecoveryData(ctx context.Context, rec models.RecoveryRecord) error {
	return insertRecoveryData(ctx, r.db, rec)
}

func (r *Repository) getRecoveryData(ctx context.Context, query string, args ...any) (*models.RecoveryRecord, error) {
	var row recoveryDataRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return nil, wrapError(err)
	}
	return row.record()
}

// GetRecoveryData returns the record matching user, scenario, step and code.
func (r *Repository) GetRecoveryData(ctx context.Context, key UserKey, scenario models.Scenario, step models.Step, code string) (*models.RecoveryRecord, error) {
	where, args := key.where()
	args = append(args, code, scenario.Code(), step.Code())
	return r.getRecoveryData(ctx,
		`SELECT `+recoveryDataColumns+` FROM recovery_data WHERE `+where+` AND code = ? AND scenario = ? AND step = ?`,
		args...)
}

// GetRecoveryDataByCode returns the record owning code.
func (r *Repository) GetRecoveryDataByCode(ctx context.Context, code string) (*models.RecoveryRecord, error) {
	return r.getRecoveryData(ctx,
		`SELECT `+recoveryDataColumns+` FROM recovery_data WHERE code = ?`, code)
}

// GetRecoveryDataByFlowID returns the record of a recovery flow at step.
func (r *Repository) GetRecoveryDataByFlowID(ctx context.Context, flowID string, step models.Step) (*models.RecoveryRecord, error) {
	return r.getRecoveryData(ctx,
		`SELECT `+recoveryDataColumns+` FROM recovery_data WHERE recovery_flow_id = ? AND step = ?
		ORDER BY time_created DESC LIMIT 1`,
		flowID, step.Code())
}

// LatestFilter narrows the latest-record lookup of a user.
// Zero values match any scenario or step.
type LatestFilter struct {
	Scenario models.Scenario
	Step     models.Step
}

// GetLatestRecoveryData returns the most recently created record of a user.
func (r *Repository) GetLatestRecoveryData(ctx context.Context, key UserKey, filter LatestFilter) (*models.RecoveryRecord, error) {
	where, args := key.where()
	if filter.Scenario != models.ScenarioUnknown {
		where += ` AND scenario = ?`
		args = append(args, filter.Scenario.Code())
	}
	if filter.Step != models.StepUnknown {
		where += ` AND step = ?`
		args = append(args, filter.Step.Code())
	}
	return r.getRecoveryData(ctx,
		`SELECT `+recoveryDataColumns+` FROM recovery_data WHERE `+where+` ORDER BY time_created DESC LIMIT 1`,
		args...)
}

// DeleteRecoveryDataByCode deletes the record owning code.
func (r *Repository) DeleteRecoveryDataByCode(ctx context.Context, code string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM recovery_data WHERE code = ?`, code)
		return err
	})
}

// DeleteUserRecoveryData deletes all records of a user.
func (r *Repository) DeleteUserRecoveryData(ctx context.Context, key UserKey) error {
	where, args := key.where()
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM recovery_data WHERE `+where, args...)
		return err
	})
}

// DeleteUserRecoveryDataFor deletes the records of a user for one scenario and step.
func (r *Repository) DeleteUserRecoveryDataFor(ctx context.Context, key UserKey, scenario models.Scenario, step models.Step) error {
	where, args := key.where()
	args = append(args, scenario.Code(), step.Code())
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM recovery_data WHERE `+where+` AND scenario = ? AND step = ?`, args...)
		return err
	})
}

// RotateCode replaces oldCode in place, keeping the record's creation time.
// It reports whether a record was changed.
func (r *Repository) RotateCode(ctx context.Context, oldCode, newCode string, step models.Step, remaining string) (bool, error) {
	var changed bool
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE recovery_data SET code = ?, step = ?, remaining_sets = ? WHERE code = ?`,
			newCode, step.Code(), remaining, oldCode)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		changed = n > 0
		if !changed {
			return nil
		}
		// Flows pointing at the old code follow the rotation.
		_, err = tx.ExecContext(ctx, `UPDATE recovery_flow_data SET code = ? WHERE code = ?`, newCode, oldCode)
		return err
	})
	return changed, err
}

// DeleteTenantRecoveryData deletes all records of a tenant together with
// the recovery flows they reference. It returns the number of deleted records.
func (r *Repository) DeleteTenantRecoveryData(ctx context.Context, tenant string) (int64, error) {
	var deleted int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM recovery_flow_data WHERE recovery_flow_id IN (
				SELECT recovery_flow_id FROM recovery_data
				WHERE tenant_domain = ? AND recovery_flow_id IS NOT NULL)`,
			tenant)
		if err != nil {
			return fmt.Errorf("delete flows: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM recovery_data WHERE tenant_domain = ?`, tenant)
		if err != nil {
			return fmt.Errorf("delete records: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}
