package repository

import (
	"context"
	"fmt"

	"github.com/buildtrack/patchhub/common/db"
	"github.com/buildtrack/patchhub/common/models"
)

// FixRepository handles database operations for patch fixes
type FixRepository struct {
	db *db.DB
}

// NewFixRepository creates a new fix repository
func NewFixRepository(database *db.DB) *FixRepository {
	return &FixRepository{db: database}
}

// ListByPatch retrieves the fixes attached to a patch request
func (r *FixRepository) ListByPatch(ctx context.Context, patchID int) ([]models.Fix, error) {
	query := `
		SELECT bug_id, bug_name, request_date, status, fix_type, sub_type,
		       product_area, release, resolve_date, vcs_root, exclusions,
		       origin_patch_id, notes
		FROM patch_fix
		WHERE patch_id = $1
		ORDER BY bug_id
	`

	rows, err := r.db.Query(ctx, query, patchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixes for patch %d: %w", patchID, err)
	}
	defer rows.Close()

	var fixes []models.Fix
	for rows.Next() {
		var (
			fix        models.Fix
			exclusions *string
			originID   *int
		)
		err := rows.Scan(
			&fix.BugID, &fix.BugName, &fix.RequestDate, &fix.Status,
			&fix.FixType, &fix.SubType, &fix.ProductArea, &fix.Release,
			&fix.ResolveDate, &fix.VersionControlRoot, &exclusions,
			&originID, &fix.Notes,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fix: %w", err)
		}
		if exclusions != nil {
			fix.SetExclusions(*exclusions)
		}
		if originID != nil {
			fix.Origin = &models.Patch{ID: *originID}
		}
		fixes = append(fixes, fix)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fixes: %w", err)
	}

	return fixes, nil
}

// Add attaches a fix to a patch request
func (r *FixRepository) Add(ctx context.Context, patchID int, fix models.Fix) error {
	query := `
		INSERT INTO patch_fix
			(patch_id, bug_id, bug_name, request_date, status, fix_type,
			 sub_type, product_area, release, resolve_date, vcs_root,
			 exclusions, origin_patch_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	var originID *int
	if fix.Origin != nil {
		originID = &fix.Origin.ID
	}

	_, err := r.db.Exec(
		ctx,
		query,
		patchID, fix.BugID, fix.BugName, fix.RequestDate, fix.Status,
		fix.FixType, fix.SubType, fix.ProductArea, fix.Release,
		fix.ResolveDate, fix.VersionControlRoot, fix.ExclusionsString(),
		originID, fix.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to add fix %d to patch %d: %w", fix.BugID, patchID, err)
	}

	return nil
}

// DeleteByPatch removes all fixes from a patch request and returns the
// number removed
func (r *FixRepository) DeleteByPatch(ctx context.Context, patchID int) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM patch_fix WHERE patch_id = $1`, patchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete fixes for patch %d: %w", patchID, err)
	}
	return int(tag.RowsAffected()), nil
}

// UpdateOrigin records the origin patch for a fix
func (r *FixRepository) UpdateOrigin(ctx context.Context, patchID, bugID, originPatchID int) error {
	query := `
		UPDATE patch_fix
		SET origin_patch_id = $3
		WHERE patch_id = $1 AND bug_id = $2
	`

	tag, err := r.db.Exec(ctx, query, patchID, bugID, originPatchID)
	if err != nil {
		return fmt.Errorf("failed to update origin for bug %d on patch %d: %w", bugID, patchID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fix %d on patch %d: %w", bugID, patchID, ErrNotFound)
	}

	return nil
}
