package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/fablehouse/reader-server/internal/model"
)

type DeviceRepository interface {
	FindByDeviceID(ctx context.Context, deviceID string) (*model.Device, error)
	ListForParent(ctx context.Context, parentID string) ([]model.DeviceWithChild, error)
	AssignToChild(ctx context.Context, parentID, deviceID, childProfileID string) (*model.Device, error)
	Rename(ctx context.Context, parentID, deviceID, name string) (*model.Device, error)
	Disable(ctx context.Context, deviceID string) error
	DisableForParent(ctx context.Context, parentID, deviceID string) (bool, error)
	TouchLastSeen(ctx context.Context, deviceID string) error
	ResetDailyWindow(ctx context.Context, deviceID, today string) (bool, error)
	ConsumeUsage(ctx context.Context, deviceID, today string, minutes, limit int) (*model.UsageDebit, error)
}

type deviceRepo struct {
	db *sqlx.DB
}

func NewDeviceRepository(db *sqlx.DB) DeviceRepository {
	return &deviceRepo{db: db}
}

func (r *deviceRepo) FindByDeviceID(ctx context.Context, deviceID string) (*model.Device, error) {
	var dev model.Device
	err := r.db.GetContext(ctx, &dev, `
		SELECT * FROM devices WHERE device_id = $1
	`, deviceID)
	return HandleNotFound(&dev, err)
}

func (r *deviceRepo) ListForParent(ctx context.Context, parentID string) ([]model.DeviceWithChild, error) {
	var devices []model.DeviceWithChild
	err := r.db.SelectContext(ctx, &devices, `
		SELECT d.*,
			c.name AS child_name,
			c.age AS child_age,
			c.daily_reading_limit_minutes AS child_daily_limit,
			c.is_active AS child_is_active
		FROM devices d
		JOIN child_profiles c ON c.id = d.active_child_profile_id
		WHERE d.parent_id = $1
		ORDER BY d.updated_at DESC
	`, parentID)
	return devices, err
}

// AssignToChild re-points an existing device at another child under the same
// parent and forces it back to paired. The parent_id condition keeps the
// operation scoped to the owner; it never touches the usage counter.
func (r *deviceRepo) AssignToChild(ctx context.Context, parentID, deviceID, childProfileID string) (*model.Device, error) {
	var dev model.Device
	err := r.db.GetContext(ctx, &dev, `
		UPDATE devices SET
			active_child_profile_id = $3,
			status = 'paired',
			last_seen_at = NOW(),
			updated_at = NOW()
		WHERE device_id = $1 AND parent_id = $2
		RETURNING *
	`, deviceID, parentID, childProfileID)
	return HandleNotFound(&dev, err)
}

func (r *deviceRepo) Rename(ctx context.Context, parentID, deviceID, name string) (*model.Device, error) {
	var dev model.Device
	err := r.db.GetContext(ctx, &dev, `
		UPDATE devices SET
			device_name = $3,
			updated_at = NOW()
		WHERE device_id = $1 AND parent_id = $2
		RETURNING *
	`, deviceID, parentID, name)
	return HandleNotFound(&dev, err)
}

func (r *deviceRepo) Disable(ctx context.Context, deviceID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			status = 'disabled',
			updated_at = NOW()
		WHERE device_id = $1
	`, deviceID)
	return err
}

func (r *deviceRepo) DisableForParent(ctx context.Context, parentID, deviceID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			status = 'disabled',
			updated_at = NOW()
		WHERE device_id = $1 AND parent_id = $2
	`, deviceID, parentID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

func (r *deviceRepo) TouchLastSeen(ctx context.Context, deviceID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			last_seen_at = NOW(),
			updated_at = NOW()
		WHERE device_id = $1
	`, deviceID)
	return err
}

// ResetDailyWindow zeroes the usage counter when the stored date key is not
// today. The date condition makes the reset idempotent: once the row carries
// today's key, further calls are no-ops regardless of concurrency.
func (r *deviceRepo) ResetDailyWindow(ctx context.Context, deviceID, today string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			daily_usage_date = $2,
			daily_usage_minutes = 0,
			updated_at = NOW()
		WHERE device_id = $1 AND daily_usage_date <> $2
	`, deviceID, today)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

// ConsumeUsage performs the quota debit as a single conditional mutation.
// The row lock taken by the CTE serializes concurrent consumers, the LEAST
// cap clamps the debit server-side so the counter can never pass the limit,
// and the usage-below-limit condition turns an already-exhausted counter
// into zero rows, surfaced as Locked = true. Returns both the counter value
// before and after the debit so the caller can report the clamped amount.
func (r *deviceRepo) ConsumeUsage(ctx context.Context, deviceID, today string, minutes, limit int) (*model.UsageDebit, error) {
	var debit model.UsageDebit
	err := r.db.GetContext(ctx, &debit, `
		WITH cur AS (
			SELECT id, daily_usage_minutes
			FROM devices
			WHERE device_id = $1 AND daily_usage_date = $2
			FOR UPDATE
		)
		UPDATE devices d SET
			daily_usage_minutes = LEAST(cur.daily_usage_minutes + $3, $4),
			last_seen_at = NOW(),
			updated_at = NOW()
		FROM cur
		WHERE d.id = cur.id AND cur.daily_usage_minutes < $4
		RETURNING cur.daily_usage_minutes AS used_before, d.daily_usage_minutes AS used_after
	`, deviceID, today, minutes, limit)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.UsageDebit{Locked: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &debit, nil
}
