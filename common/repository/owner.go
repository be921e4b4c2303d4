package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/buildtrack/patchhub/common/db"
	"github.com/buildtrack/patchhub/common/models"
)

// OwnerRepository handles database operations for patch ownership
type OwnerRepository struct {
	db *db.DB
}

// NewOwnerRepository creates a new owner repository
func NewOwnerRepository(database *db.DB) *OwnerRepository {
	return &OwnerRepository{db: database}
}

// Get retrieves the active owner record for a patch
func (r *OwnerRepository) Get(ctx context.Context, patchID int) (*models.PatchOwner, error) {
	query := `
		SELECT o.patch_id, o.start_date, o.end_date, o.deadline, o.priority, o.comment,
		       u.user_id, u.login, u.name, u.email
		FROM patch_owner o
		JOIN account u ON u.user_id = o.user_id
		WHERE o.patch_id = $1
	`

	owner := &models.PatchOwner{}
	var priority string
	err := r.db.QueryRow(ctx, query, patchID).Scan(
		&owner.PatchID, &owner.StartDate, &owner.EndDate, &owner.Deadline,
		&priority, &owner.Comment,
		&owner.User.ID, &owner.User.Login, &owner.User.Name, &owner.User.Email,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("owner for patch %d: %w", patchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get owner for patch %d: %w", patchID, err)
	}

	if owner.Priority, err = models.ParsePatchPriority(priority); err != nil {
		return nil, fmt.Errorf("owner for patch %d: %w", patchID, err)
	}

	return owner, nil
}

// Upsert writes the owner record for a patch. One active record per
// patch: reassignment updates in place rather than appending.
func (r *OwnerRepository) Upsert(ctx context.Context, owner *models.PatchOwner) error {
	query := `
		INSERT INTO patch_owner (patch_id, user_id, start_date, end_date, deadline, priority, comment)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (patch_id) DO UPDATE
		SET user_id = $2, start_date = $3, end_date = $4, deadline = $5,
		    priority = $6, comment = $7
	`

	_, err := r.db.Exec(
		ctx,
		query,
		owner.PatchID,
		owner.User.ID,
		owner.StartDate,
		owner.EndDate,
		owner.Deadline,
		owner.Priority,
		owner.Comment,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert owner for patch %d: %w", owner.PatchID, err)
	}

	return nil
}
