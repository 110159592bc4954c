package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fablehouse/reader-server/internal/database"
	"github.com/fablehouse/reader-server/internal/model"
)

// ErrCodeAlreadyClaimed is returned when the conditional pending-to-used flip
// matches no row: another claim won the race, or the code left pending state
// between the caller's lookup and the transaction.
var ErrCodeAlreadyClaimed = errors.New("pairing code is no longer pending")

// ClaimStore performs the two-write pairing transaction: flip the code to
// used and bind the device, atomically from the caller's point of view. A
// code must never end up used without a bound device, and vice versa.
type ClaimStore interface {
	ClaimCodeAndBindDevice(ctx context.Context, code string, params model.UpsertDeviceParams) (*model.Device, error)
}

type claimStore struct {
	db *database.DB
}

func NewClaimStore(db *database.DB) ClaimStore {
	return &claimStore{db: db}
}

func (s *claimStore) ClaimCodeAndBindDevice(ctx context.Context, code string, params model.UpsertDeviceParams) (*model.Device, error) {
	var dev model.Device

	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		// The conditional flip takes the row lock first, so of N concurrent
		// claims exactly one sees status = 'pending'.
		result, err := tx.ExecContext(ctx, `
			UPDATE pairing_codes SET
				status = 'used',
				used_at = NOW(),
				paired_device_id = $2,
				updated_at = NOW()
			WHERE code = $1 AND status = 'pending'
		`, code, params.DeviceID)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrCodeAlreadyClaimed
		}

		// Upsert keyed on the external device id. A re-pair keeps the prior
		// name when the new one is blank, and keeps the original paired_at.
		err = tx.GetContext(ctx, &dev, `
			INSERT INTO devices
				(id, parent_id, active_child_profile_id, device_id, device_name,
				 status, paired_at, last_seen_at, daily_usage_date, daily_usage_minutes)
			VALUES ($1, $2, $3, $4, $5, 'paired', NOW(), NOW(), $6, 0)
			ON CONFLICT (device_id) DO UPDATE SET
				parent_id = EXCLUDED.parent_id,
				active_child_profile_id = EXCLUDED.active_child_profile_id,
				status = 'paired',
				device_name = CASE
					WHEN EXCLUDED.device_name <> '' THEN EXCLUDED.device_name
					ELSE devices.device_name
				END,
				last_seen_at = NOW(),
				updated_at = NOW()
			RETURNING *
		`, uuid.New().String(), params.ParentID, params.ActiveChildProfileID,
			params.DeviceID, params.DeviceName, params.DailyUsageDate)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCodeAlreadyClaimed
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dev, nil
}
