package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/buildtrack/patchhub/common/db"
	"github.com/buildtrack/patchhub/common/models"
	"github.com/buildtrack/patchhub/common/patchutil"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// PatchRepository handles database operations for patch requests
type PatchRepository struct {
	db *db.DB
}

// NewPatchRepository creates a new patch repository
func NewPatchRepository(database *db.DB) *PatchRepository {
	return &PatchRepository{db: database}
}

const patchColumns = `
	p.patch_id, p.name, p.external_use, p.request_date, p.justification, p.status,
	p.cc_list, p.previous_patch_id,
	c.customer_id, c.name, c.short_name,
	e.env_id, e.name, e.short_name,
	b.build_id, b.version, b.release_id, b.download_uri, b.start_time,
	u.user_id, u.login, u.name, u.email
`

const patchJoins = `
	FROM patch_request p
	JOIN customer c ON c.customer_id = p.customer_id
	LEFT JOIN environment e ON e.env_id = p.env_id
	JOIN build b ON b.build_id = p.source_build_id
	JOIN account u ON u.user_id = p.requestor_id
`

func scanPatch(row pgx.Row) (*models.Patch, error) {
	patch := &models.Patch{
		Customer:    &models.Customer{},
		SourceBuild: &models.Build{},
		Requestor:   &models.User{},
	}

	var (
		envID, prevID     *int
		envName, envShort *string
		status            string
	)

	err := row.Scan(
		&patch.ID, &patch.Name, &patch.ExternalUse, &patch.RequestDate,
		&patch.Justification, &status,
		&patch.CCList, &prevID,
		&patch.Customer.ID, &patch.Customer.Name, &patch.Customer.ShortName,
		&envID, &envName, &envShort,
		&patch.SourceBuild.ID, &patch.SourceBuild.Version,
		&patch.SourceBuild.ReleaseID, &patch.SourceBuild.DownloadURI,
		&patch.SourceBuild.StartTime,
		&patch.Requestor.ID, &patch.Requestor.Login,
		&patch.Requestor.Name, &patch.Requestor.Email,
	)
	if err != nil {
		return nil, err
	}

	patch.Status, err = models.ParseRequestStatus(status)
	if err != nil {
		return nil, fmt.Errorf("patch %d: %w", patch.ID, err)
	}

	if envID != nil {
		patch.Environment = &models.Environment{ID: *envID}
		if envName != nil {
			patch.Environment.Name = *envName
		}
		if envShort != nil {
			patch.Environment.ShortName = *envShort
		}
	}
	if prevID != nil {
		patch.PreviousPatch = &models.Patch{ID: *prevID}
	}

	return patch, nil
}

// Create inserts a new patch request and returns its generated ID
func (r *PatchRepository) Create(ctx context.Context, patch *models.Patch) (int, error) {
	query := `
		INSERT INTO patch_request
			(name, external_use, customer_id, env_id, source_build_id,
			 requestor_id, request_date, justification, status, previous_patch_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING patch_id
	`

	var envID *int
	if patch.Environment != nil {
		envID = &patch.Environment.ID
	}
	var prevID *int
	if patch.PreviousPatch != nil {
		prevID = &patch.PreviousPatch.ID
	}

	var id int
	err := r.db.QueryRow(
		ctx,
		query,
		patch.Name,
		patch.ExternalUse,
		patch.Customer.ID,
		envID,
		patch.SourceBuild.ID,
		patch.Requestor.ID,
		patch.RequestDate,
		patch.Justification,
		patch.Status,
		prevID,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to create patch request: %w", err)
	}

	return id, nil
}

// Get retrieves a patch request by ID
func (r *PatchRepository) Get(ctx context.Context, patchID int) (*models.Patch, error) {
	query := `SELECT ` + patchColumns + patchJoins + ` WHERE p.patch_id = $1`

	patch, err := scanPatch(r.db.QueryRow(ctx, query, patchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("patch %d: %w", patchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patch %d: %w", patchID, err)
	}

	return patch, nil
}

// UpdateStatus writes a new workflow status for the patch.
// Last write wins: there is no version check on concurrent updates.
func (r *PatchRepository) UpdateStatus(ctx context.Context, patchID int, status models.RequestStatus) error {
	query := `
		UPDATE patch_request
		SET status = $2
		WHERE patch_id = $1
	`

	tag, err := r.db.Exec(ctx, query, patchID, status)
	if err != nil {
		return fmt.Errorf("failed to update patch %d status: %w", patchID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patch %d: %w", patchID, ErrNotFound)
	}

	return nil
}

// UpdateMeta writes the mutable metadata fields of a patch request
func (r *PatchRepository) UpdateMeta(ctx context.Context, patch *models.Patch) error {
	query := `
		UPDATE patch_request
		SET external_use = $2, justification = $3, cc_list = $4
		WHERE patch_id = $1
	`

	tag, err := r.db.Exec(ctx, query, patch.ID, patch.ExternalUse, patch.Justification, patch.CCList)
	if err != nil {
		return fmt.Errorf("failed to update patch %d: %w", patch.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patch %d: %w", patch.ID, ErrNotFound)
	}

	return nil
}

// List retrieves patch requests filtered by customer and/or status,
// most recent first
func (r *PatchRepository) List(ctx context.Context, customerID int, status models.RequestStatus, limit int) ([]*models.Patch, error) {
	query := `SELECT ` + patchColumns + patchJoins + `
		WHERE ($1 = 0 OR p.customer_id = $1)
		  AND ($2 = '' OR p.status = $2)
		ORDER BY p.request_date DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, customerID, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list patches: %w", err)
	}
	defer rows.Close()

	var patches []*models.Patch
	for rows.Next() {
		patch, err := scanPatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patch: %w", err)
		}
		patches = append(patches, patch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patches: %w", err)
	}

	return patches, nil
}

// Related retrieves prior requests in the same build lineage for the
// same customer: candidates for origin reconciliation and base patches.
func (r *PatchRepository) Related(ctx context.Context, buildVersion string, customerID int) ([]*models.Patch, error) {
	family := patchutil.ReleaseFamily(patchutil.VersionNumber(buildVersion))

	query := `SELECT ` + patchColumns + patchJoins + `
		WHERE p.customer_id = $1
		  AND b.version LIKE '%' || $2 || '%'
		ORDER BY p.request_date ASC
	`

	rows, err := r.db.Query(ctx, query, customerID, family)
	if err != nil {
		return nil, fmt.Errorf("failed to list related patches: %w", err)
	}
	defer rows.Close()

	var patches []*models.Patch
	for rows.Next() {
		patch, err := scanPatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan related patch: %w", err)
		}
		patches = append(patches, patch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating related patches: %w", err)
	}

	return patches, nil
}
