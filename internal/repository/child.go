package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/fablehouse/reader-server/internal/model"
)

// ChildProfileRepository is the read-only collaborator interface over child
// profiles. The rows are created and mutated by the parent portal, never by
// the quota engine.
type ChildProfileRepository interface {
	FindActiveByID(ctx context.Context, id string) (*model.ChildProfile, error)
	FindActiveByIDForParent(ctx context.Context, id, parentID string) (*model.ChildProfile, error)
	BelongsToParent(ctx context.Context, childID, parentID string) (bool, error)
}

type childProfileRepo struct {
	db *sqlx.DB
}

func NewChildProfileRepository(db *sqlx.DB) ChildProfileRepository {
	return &childProfileRepo{db: db}
}

func (r *childProfileRepo) FindActiveByID(ctx context.Context, id string) (*model.ChildProfile, error) {
	var child model.ChildProfile
	err := r.db.GetContext(ctx, &child, `
		SELECT * FROM child_profiles
		WHERE id = $1 AND is_active = TRUE
	`, id)
	return HandleNotFound(&child, err)
}

func (r *childProfileRepo) FindActiveByIDForParent(ctx context.Context, id, parentID string) (*model.ChildProfile, error) {
	var child model.ChildProfile
	err := r.db.GetContext(ctx, &child, `
		SELECT * FROM child_profiles
		WHERE id = $1 AND parent_id = $2 AND is_active = TRUE
	`, id, parentID)
	return HandleNotFound(&child, err)
}

func (r *childProfileRepo) BelongsToParent(ctx context.Context, childID, parentID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM child_profiles
		WHERE id = $1 AND parent_id = $2
	`, childID, parentID)
	return count > 0, err
}
