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

type recoveryFlowRow struct {
	RecoveryFlowID string         `db:"recovery_flow_id"`
	Code           sql.NullString `db:"code"`
	FailedAttempts int            `db:"failed_attempts"`
	ResendCount    int            `db:"resend_count"`
	TimeCreated    time.Time      `db:"time_created"`
}

func (row recoveryFlowRow) record() *models.RecoveryFlowRecord {
	return &models.RecoveryFlowRecord{
		RecoveryFlowID: row.RecoveryFlowID,
		Code:           row.Code.String,
		FailedAttempts: row.FailedAttempts,
		ResendCount:    row.ResendCount,
		CreatedAt:      row.TimeCreated.UTC(),
	}
}

// CreateRecoveryFlow starts a recovery flow and stores its first record.
// The flow row is written first and both rows commit together.
func (r *Repository) CreateRecoveryFlow(ctx context.Context, flow models.RecoveryFlowRecord, rec models.RecoveryRecord) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recovery_flow_data (recovery_flow_id, code, failed_attempts, resend_count, time_created)
			VALUES (?, ?, ?, ?, ?)`,
			flow.RecoveryFlowID, sql.NullString{String: flow.Code, Valid: flow.Code != ""},
			flow.FailedAttempts, flow.ResendCount, flow.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("insert flow: %w", err)
		}
		if err := insertRecoveryData(ctx, tx, rec); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		return nil
	})
}

// CreateFlowRecoveryData stores a new record of a running flow and makes its
// code the flow's current code.
func (r *Repository) CreateFlowRecoveryData(ctx context.Context, rec models.RecoveryRecord) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := insertRecoveryData(ctx, tx, rec); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE recovery_flow_data SET code = ? WHERE recovery_flow_id = ?`,
			rec.Secret, rec.RecoveryFlowID); err != nil {
			return fmt.Errorf("update flow code: %w", err)
		}
		return nil
	})
}

// GetRecoveryFlow returns the counters and creation time of a flow.
func (r *Repository) GetRecoveryFlow(ctx context.Context, flowID string) (*models.RecoveryFlowRecord, error) {
	var row recoveryFlowRow
	err := r.db.GetContext(ctx, &row,
		`SELECT recovery_flow_id, code, failed_attempts, resend_count, time_created
		FROM recovery_flow_data WHERE recovery_flow_id = ?`, flowID)
	if err != nil {
		return nil, wrapError(err)
	}
	return row.record(), nil
}

// UpdateFailedAttempts overwrites the failed attempt counter of a flow.
func (r *Repository) UpdateFailedAttempts(ctx context.Context, flowID string, count int) error {
	return r.updateFlowCounter(ctx, `UPDATE recovery_flow_data SET failed_attempts = ? WHERE recovery_flow_id = ?`, flowID, count)
}

// UpdateResendCount overwrites the resend counter of a flow.
func (r *Repository) UpdateResendCount(ctx context.Context, flowID string, count int) error {
	return r.updateFlowCounter(ctx, `UPDATE recovery_flow_data SET resend_count = ? WHERE recovery_flow_id = ?`, flowID, count)
}

func (r *Repository) updateFlowCounter(ctx context.Context, query, flowID string, count int) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, count, flowID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteRecoveryFlow deletes a flow together with all of its records.
func (r *Repository) DeleteRecoveryFlow(ctx context.Context, flowID string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recovery_data WHERE recovery_flow_id = ?`, flowID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM recovery_flow_data WHERE recovery_flow_id = ?`, flowID)
		return err
	})
}
