package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fablehouse/reader-server/internal/model"
)

// uniqueViolation is the Postgres error code raised when an insert hits the
// partial unique index on pending code values.
const uniqueViolation = "23505"

type PairingCodeRepository interface {
	FindPendingByCode(ctx context.Context, code string) (*model.PairingCode, error)
	ListPendingByParent(ctx context.Context, parentID string) ([]model.PairingCode, error)
	Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error)
	MarkExpired(ctx context.Context, code string) error
	Revoke(ctx context.Context, parentID, code string) (bool, error)
	ExpireOverdue(ctx context.Context) (int64, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type pairingCodeRepo struct {
	db *sqlx.DB
}

func NewPairingCodeRepository(db *sqlx.DB) PairingCodeRepository {
	return &pairingCodeRepo{db: db}
}

func (r *pairingCodeRepo) FindPendingByCode(ctx context.Context, code string) (*model.PairingCode, error) {
	var pc model.PairingCode
	err := r.db.GetContext(ctx, &pc, `
		SELECT * FROM pairing_codes
		WHERE code = $1 AND status = 'pending'
	`, code)
	return HandleNotFound(&pc, err)
}

func (r *pairingCodeRepo) ListPendingByParent(ctx context.Context, parentID string) ([]model.PairingCode, error) {
	var codes []model.PairingCode
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM pairing_codes
		WHERE parent_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`, parentID)
	return codes, err
}

func (r *pairingCodeRepo) Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error) {
	var pc model.PairingCode
	err := r.db.GetContext(ctx, &pc, `
		INSERT INTO pairing_codes (id, code, parent_id, child_profile_id, status, expires_at)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING *
	`, uuid.New().String(), params.Code, params.ParentID, params.ChildProfileID, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// IsUniqueViolation reports whether err is the Postgres unique-constraint
// error, used to detect a pending-code value collision during Create.
func IsUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

// MarkExpired lazily flips a pending code past its expiry to expired. The
// status condition keeps the transition one-way.
func (r *pairingCodeRepo) MarkExpired(ctx context.Context, code string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pairing_codes SET
			status = 'expired',
			updated_at = NOW()
		WHERE code = $1 AND status = 'pending' AND expires_at <= NOW()
	`, code)
	return err
}

func (r *pairingCodeRepo) Revoke(ctx context.Context, parentID, code string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pairing_codes SET
			status = 'revoked',
			updated_at = NOW()
		WHERE code = $1 AND parent_id = $2 AND status = 'pending'
	`, code, parentID)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	return rows > 0, err
}

func (r *pairingCodeRepo) ExpireOverdue(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pairing_codes SET
			status = 'expired',
			updated_at = NOW()
		WHERE status = 'pending' AND expires_at <= NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *pairingCodeRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pairing_codes
		WHERE status IN ('used', 'expired', 'revoked') AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
