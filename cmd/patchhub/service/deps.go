// Package service implements the patch request workflow: drafting,
// fix-list validation, the approval chain, CI job control, and
// notification dispatch. Persistence is reached through the narrow
// store interfaces below so the workflow can be tested against fakes.
package service

import (
	"context"
	"errors"

	"github.com/buildtrack/patchhub/common/models"
)

// ErrNotAuthorized is returned when a user acts outside their groups
var ErrNotAuthorized = errors.New("user is not an authorized approver")

// ErrFixesLocked is returned when the fix list can no longer change
var ErrFixesLocked = errors.New("fix list is locked once the build has started")

// PatchStore is the slice of the patch repository the workflow needs
type PatchStore interface {
	Create(ctx context.Context, patch *models.Patch) (int, error)
	Get(ctx context.Context, patchID int) (*models.Patch, error)
	UpdateStatus(ctx context.Context, patchID int, status models.RequestStatus) error
	UpdateMeta(ctx context.Context, patch *models.Patch) error
	List(ctx context.Context, customerID int, status models.RequestStatus, limit int) ([]*models.Patch, error)
	Related(ctx context.Context, buildVersion string, customerID int) ([]*models.Patch, error)
}

// FixStore persists patch fix lists
type FixStore interface {
	ListByPatch(ctx context.Context, patchID int) ([]models.Fix, error)
	Add(ctx context.Context, patchID int, fix models.Fix) error
	DeleteByPatch(ctx context.Context, patchID int) (int, error)
	UpdateOrigin(ctx context.Context, patchID, bugID, originPatchID int) error
}

// ApprovalStore persists the approval log and approver-group rules
type ApprovalStore interface {
	ListByPatch(ctx context.Context, patchID int, status models.RequestStatus) ([]models.Approval, error)
	Add(ctx context.Context, patchID int, approval models.Approval) error
	DeleteByPatch(ctx context.Context, patchID int) (int, error)
	GroupsForStatus(ctx context.Context, status models.RequestStatus) ([]models.ApproverGroup, error)
}

// OwnerStore persists patch ownership records
type OwnerStore interface {
	Get(ctx context.Context, patchID int) (*models.PatchOwner, error)
	Upsert(ctx context.Context, owner *models.PatchOwner) error
}

// CommentStore persists comments and notification subscriptions
type CommentStore interface {
	ListByPatch(ctx context.Context, patchID int) ([]models.Comment, error)
	Add(ctx context.Context, patchID int, comment models.Comment) error
	Notifications(ctx context.Context, patchID int) ([]models.Notification, error)
}

// CatalogStore persists the product catalog
type CatalogStore interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	SaveProduct(ctx context.Context, product *models.Product) error
}

// Directory resolves users and group memberships
type Directory interface {
	User(ctx context.Context, login string) (*models.User, error)
	GroupMembers(ctx context.Context, group string) ([]models.User, error)
}

// BugTracker answers fix-validation questions from the bug tracker.
// Bug returns (nil, nil) for unknown IDs; absence is an expected answer
// during bulk entry, not a failure.
type BugTracker interface {
	Bug(ctx context.Context, bugID int) (*models.Bug, error)
	FixesForFamily(ctx context.Context, family string) ([]models.Fix, error)
}

// Notifier dispatches workflow mail. All methods are best-effort: the
// status change that triggered them has already been persisted.
type Notifier interface {
	StatusChanged(ctx context.Context, patch *models.Patch, groups []models.ApproverGroup)
	OwnerAssigned(ctx context.Context, patch *models.Patch, owner *models.PatchOwner)
	ReviewRequested(ctx context.Context, patch *models.Patch)
	Released(ctx context.Context, patch *models.Patch)
}

// JobRunner controls the CI jobs backing a patch build
type JobRunner interface {
	Launch(ctx context.Context, patch *models.Patch) error
	Discard(ctx context.Context, patch *models.Patch) error
}

// FieldErrors collects per-token validation diagnostics from bulk fix
// entry, keyed by the offending input token
type FieldErrors map[string]string

// Add records a diagnostic for a token, keeping the first one
func (e FieldErrors) Add(token, msg string) {
	if _, exists := e[token]; exists {
		return
	}
	e[token] = msg
}

// Any reports whether any diagnostic was recorded.
func (e FieldErrors) Any() bool {
	return len(e) > 0
}
