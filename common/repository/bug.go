package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/buildtrack/patchhub/common/db"
	"github.com/buildtrack/patchhub/common/models"
)

// BugRepository reads the bug tracker mirror tables. Entries here are
// imported from the upstream tracker and treated as read-only.
type BugRepository struct {
	db *db.DB
}

// NewBugRepository creates a new bug repository
func NewBugRepository(database *db.DB) *BugRepository {
	return &BugRepository{db: database}
}

// Bug retrieves a tracker entry by ID. Returns (nil, nil) when the bug
// does not exist; absence is an expected answer during fix validation,
// not an error.
func (r *BugRepository) Bug(ctx context.Context, bugID int) (*models.Bug, error) {
	query := `
		SELECT bug_id, bug_name, status, fix_type, sub_type, product_area,
		       release, resolve_date, description
		FROM bug
		WHERE bug_id = $1
	`

	bug := &models.Bug{}
	err := r.db.QueryRow(ctx, query, bugID).Scan(
		&bug.ID, &bug.Name, &bug.Status, &bug.FixType, &bug.SubType,
		&bug.ProductArea, &bug.Release, &bug.ResolveDate, &bug.Description,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bug %d: %w", bugID, err)
	}

	checkins, err := r.checkins(ctx, bugID)
	if err != nil {
		return nil, err
	}
	bug.CheckIns = checkins

	return bug, nil
}

// FixesForFamily retrieves all resolved tracker entries for a release
// line as candidate fixes, newest resolution first
func (r *BugRepository) FixesForFamily(ctx context.Context, family string) ([]models.Fix, error) {
	query := `
		SELECT bug_id, bug_name, status, fix_type, sub_type, product_area,
		       release, resolve_date, description
		FROM bug
		WHERE release LIKE $1 || '%' AND resolve_date IS NOT NULL
		ORDER BY resolve_date DESC, bug_id
	`

	rows, err := r.db.Query(ctx, query, family)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixes for release line %q: %w", family, err)
	}
	defer rows.Close()

	var fixes []models.Fix
	for rows.Next() {
		var bug models.Bug
		err := rows.Scan(
			&bug.ID, &bug.Name, &bug.Status, &bug.FixType, &bug.SubType,
			&bug.ProductArea, &bug.Release, &bug.ResolveDate, &bug.Description,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bug: %w", err)
		}
		fixes = append(fixes, bug.Fix())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bugs: %w", err)
	}

	return fixes, nil
}

func (r *BugRepository) checkins(ctx context.Context, bugID int) ([]models.CheckIn, error) {
	query := `
		SELECT checkin_id, author
		FROM bug_checkin
		WHERE bug_id = $1
		ORDER BY checkin_id
	`

	rows, err := r.db.Query(ctx, query, bugID)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins for bug %d: %w", bugID, err)
	}
	defer rows.Close()

	var checkins []models.CheckIn
	for rows.Next() {
		var ci models.CheckIn
		if err := rows.Scan(&ci.ID, &ci.Author); err != nil {
			return nil, fmt.Errorf("failed to scan check-in: %w", err)
		}
		checkins = append(checkins, ci)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating check-ins: %w", err)
	}

	return checkins, nil
}
