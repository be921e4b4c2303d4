package repository

import (
	"context"
	"fmt"

	"github.com/buildtrack/patchhub/common/db"
	"github.com/buildtrack/patchhub/common/models"
)

// ApprovalRepository handles database operations for patch approvals
// and approver groups
type ApprovalRepository struct {
	db *db.DB
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(database *db.DB) *ApprovalRepository {
	return &ApprovalRepository{db: database}
}

// ListByPatch retrieves the approvals recorded against a patch at the
// given request status
func (r *ApprovalRepository) ListByPatch(ctx context.Context, patchID int, status models.RequestStatus) ([]models.Approval, error) {
	query := `
		SELECT a.approval_id, a.status, a.patch_status, a.comment,
		       u.user_id, u.login, u.name, u.email
		FROM patch_approval a
		JOIN account u ON u.user_id = a.user_id
		WHERE a.patch_id = $1 AND a.patch_status = $2
		ORDER BY a.approval_id
	`

	rows, err := r.db.Query(ctx, query, patchID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals for patch %d: %w", patchID, err)
	}
	defer rows.Close()

	var approvals []models.Approval
	for rows.Next() {
		var (
			a           models.Approval
			status      string
			patchStatus string
		)
		err := rows.Scan(
			&a.ID, &status, &patchStatus, &a.Comment,
			&a.User.ID, &a.User.Login, &a.User.Name, &a.User.Email,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}
		if a.Status, err = models.ParseApprovalStatus(status); err != nil {
			return nil, fmt.Errorf("approval %d: %w", a.ID, err)
		}
		if a.PatchStatus, err = models.ParseRequestStatus(patchStatus); err != nil {
			return nil, fmt.Errorf("approval %d: %w", a.ID, err)
		}
		approvals = append(approvals, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approvals: %w", err)
	}

	return approvals, nil
}

// Add appends an approval to the patch's approval log
func (r *ApprovalRepository) Add(ctx context.Context, patchID int, approval models.Approval) error {
	query := `
		INSERT INTO patch_approval (patch_id, user_id, status, patch_status, comment)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		patchID,
		approval.User.ID,
		approval.Status,
		approval.PatchStatus,
		approval.Comment,
	)
	if err != nil {
		return fmt.Errorf("failed to add approval for patch %d: %w", patchID, err)
	}

	return nil
}

// DeleteByPatch removes all approvals from a patch (fix-list changes
// restart the approval process) and returns the number removed
func (r *ApprovalRepository) DeleteByPatch(ctx context.Context, patchID int) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM patch_approval WHERE patch_id = $1`, patchID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete approvals for patch %d: %w", patchID, err)
	}
	return int(tag.RowsAffected()), nil
}

// GroupsForStatus retrieves the approver-group entries that apply at
// the given request status
func (r *ApprovalRepository) GroupsForStatus(ctx context.Context, status models.RequestStatus) ([]models.ApproverGroup, error) {
	query := `
		SELECT group_id, group_name, status, build_version
		FROM patch_approver_group
		WHERE status = $1
		ORDER BY group_id
	`

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list approver groups: %w", err)
	}
	defer rows.Close()

	var groups []models.ApproverGroup
	for rows.Next() {
		var (
			g         models.ApproverGroup
			rowStatus string
		)
		if err := rows.Scan(&g.ID, &g.Group, &rowStatus, &g.BuildVersionPattern); err != nil {
			return nil, fmt.Errorf("failed to scan approver group: %w", err)
		}
		if g.Status, err = models.ParseRequestStatus(rowStatus); err != nil {
			return nil, fmt.Errorf("approver group %d: %w", g.ID, err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approver groups: %w", err)
	}

	return groups, nil
}

// SeedGroups inserts approver-group rules, skipping rows that already
// exist for the same group/status/pattern combination
func (r *ApprovalRepository) SeedGroups(ctx context.Context, groups []models.ApproverGroup) error {
	query := `
		INSERT INTO patch_approver_group (group_name, status, build_version)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_name, status, build_version) DO NOTHING
	`

	for _, g := range groups {
		if _, err := r.db.Exec(ctx, query, g.Group, g.Status, g.BuildVersionPattern); err != nil {
			return fmt.Errorf("failed to seed approver group %q: %w", g.Group, err)
		}
	}

	return nil
}
