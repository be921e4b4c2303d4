package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/buildtrack/patchhub/common/logger"
	"github.com/buildtrack/patchhub/common/models"
	"github.com/buildtrack/patchhub/common/repository"
)

// PatchService handles the request CRUD surface: creation, deep loads,
// listings, metadata patches, ownership, and comments
type PatchService struct {
	patches   PatchStore
	fixes     FixStore
	approvals ApprovalStore
	owners    OwnerStore
	comments  CommentStore
	users     Directory
	notifier  Notifier
	log       *logger.Logger
}

// NewPatchService creates a patch service
func NewPatchService(patches PatchStore, fixes FixStore, approvals ApprovalStore,
	owners OwnerStore, comments CommentStore, users Directory, notifier Notifier,
	log *logger.Logger) *PatchService {
	return &PatchService{
		patches:   patches,
		fixes:     fixes,
		approvals: approvals,
		owners:    owners,
		comments:  comments,
		users:     users,
		notifier:  notifier,
		log:       log,
	}
}

// Create persists a new draft request together with its initial fix
// list. New requests always start SAVED. A request built on a base
// patch inherits the base's fixes.
func (s *PatchService) Create(ctx context.Context, patch *models.Patch) (*models.Patch, error) {
	if patch.Customer == nil || patch.SourceBuild == nil || patch.Requestor == nil {
		return nil, fmt.Errorf("patch request needs a customer, source build, and requestor")
	}
	if patch.Name == "" {
		return nil, fmt.Errorf("patch request needs a name")
	}

	patch.Status = models.StatusSaved
	if patch.RequestDate.IsZero() {
		patch.RequestDate = time.Now()
	}

	if err := s.inheritBaseFixes(ctx, patch); err != nil {
		return nil, err
	}

	id, err := s.patches.Create(ctx, patch)
	if err != nil {
		return nil, err
	}
	patch.ID = id

	for _, fix := range patch.Fixes() {
		if fix.RequestDate.IsZero() {
			fix.RequestDate = patch.RequestDate
		}
		if err := s.fixes.Add(ctx, id, fix); err != nil {
			return nil, err
		}
	}

	s.log.WithPatchID(id).Info("patch request created",
		"name", patch.Name, "customer", patch.Customer.ID, "fixes", patch.FixCount())
	return patch, nil
}

// inheritBaseFixes carries the base patch's fix list forward onto a new
// request. An inherited fix keeps its recorded origin; a fix the base
// introduced itself is stamped with the base patch as origin.
func (s *PatchService) inheritBaseFixes(ctx context.Context, patch *models.Patch) error {
	if patch.PreviousPatch == nil {
		return nil
	}

	baseFixes, err := s.fixes.ListByPatch(ctx, patch.PreviousPatch.ID)
	if err != nil {
		return fmt.Errorf("list fixes for base patch %d: %w", patch.PreviousPatch.ID, err)
	}

	for _, fix := range baseFixes {
		if patch.HasFix(fix.BugID) {
			continue
		}
		if fix.Origin == nil {
			fix.Origin = patch.PreviousPatch
		}
		if err := patch.AddFix(fix); err != nil {
			return err
		}
	}
	return nil
}

// Get loads a request with its fixes, approvals at the current status,
// comments, subscriptions, and owner
func (s *PatchService) Get(ctx context.Context, patchID int) (*models.Patch, error) {
	patch, err := s.patches.Get(ctx, patchID)
	if err != nil {
		return nil, err
	}

	fixes, err := s.fixes.ListByPatch(ctx, patchID)
	if err != nil {
		return nil, err
	}
	patch.SetFixes(fixes)

	if patch.Approvals, err = s.approvals.ListByPatch(ctx, patchID, patch.Status); err != nil {
		return nil, err
	}
	if patch.Comments, err = s.comments.ListByPatch(ctx, patchID); err != nil {
		return nil, err
	}
	if patch.Notifications, err = s.comments.Notifications(ctx, patchID); err != nil {
		return nil, err
	}

	owner, err := s.owners.Get(ctx, patchID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		patch.Owner = &owner.User
	}

	return patch, nil
}

// List retrieves requests filtered by customer and status
func (s *PatchService) List(ctx context.Context, customerID int, status models.RequestStatus, limit int) ([]*models.Patch, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.patches.List(ctx, customerID, status, limit)
}

// Related retrieves the other requests in the patch's build lineage
func (s *PatchService) Related(ctx context.Context, patchID int) ([]*models.Patch, error) {
	patch, err := s.patches.Get(ctx, patchID)
	if err != nil {
		return nil, err
	}

	related, err := s.patches.Related(ctx, patch.SourceBuild.Version, patch.Customer.ID)
	if err != nil {
		return nil, err
	}

	out := related[:0]
	for _, rel := range related {
		if rel.ID != patchID {
			out = append(out, rel)
		}
	}
	return out, nil
}

// patchMeta is the slice of request metadata open to RFC 6902 patching.
// Everything else on the request changes through dedicated operations.
type patchMeta struct {
	ExternalUse   bool     `json:"external_use"`
	Justification string   `json:"justification"`
	CCList        []string `json:"cc_list"`
}

// ApplyMetaPatch applies an RFC 6902 patch document to the request's
// mutable metadata and persists the result
func (s *PatchService) ApplyMetaPatch(ctx context.Context, patchID int, doc []byte) (*models.Patch, error) {
	patch, err := s.patches.Get(ctx, patchID)
	if err != nil {
		return nil, err
	}

	meta := patchMeta{
		ExternalUse:   patch.ExternalUse,
		Justification: patch.Justification,
		CCList:        patch.CCList,
	}
	current, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode patch %d metadata: %w", patchID, err)
	}

	ops, err := jsonpatch.DecodePatch(doc)
	if err != nil {
		return nil, fmt.Errorf("decode metadata patch: %w", err)
	}
	updated, err := ops.Apply(current)
	if err != nil {
		return nil, fmt.Errorf("apply metadata patch: %w", err)
	}
	if err := json.Unmarshal(updated, &meta); err != nil {
		return nil, fmt.Errorf("decode patched metadata: %w", err)
	}

	patch.ExternalUse = meta.ExternalUse
	patch.Justification = meta.Justification
	patch.CCList = meta.CCList
	if err := s.patches.UpdateMeta(ctx, patch); err != nil {
		return nil, err
	}

	s.log.WithPatchID(patchID).Info("metadata updated")
	return patch, nil
}

// AssignOwner makes a user responsible for the patch and notifies them.
// Reassignment replaces the previous owner.
func (s *PatchService) AssignOwner(ctx context.Context, patchID int, login string, priority models.PatchPriority, deadline *time.Time, comment string) (*models.PatchOwner, error) {
	patch, err := s.patches.Get(ctx, patchID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.User(ctx, login)
	if err != nil {
		return nil, err
	}

	owner := &models.PatchOwner{
		PatchID:   patchID,
		User:      *user,
		StartDate: time.Now(),
		Deadline:  deadline,
		Priority:  priority,
		Comment:   comment,
	}
	if err := s.owners.Upsert(ctx, owner); err != nil {
		return nil, err
	}

	s.log.WithPatchID(patchID).Info("owner assigned", "owner", login, "priority", priority)
	s.notifier.OwnerAssigned(ctx, patch, owner)
	return owner, nil
}

// AddComment appends a comment to the request
func (s *PatchService) AddComment(ctx context.Context, patchID int, login, text string, visibility models.CommentVisibility) (*models.Comment, error) {
	if _, err := s.patches.Get(ctx, patchID); err != nil {
		return nil, err
	}

	user, err := s.users.User(ctx, login)
	if err != nil {
		return nil, err
	}

	comment := models.Comment{
		User:       *user,
		Date:       time.Now(),
		Visibility: visibility,
		Text:       text,
	}
	if err := s.comments.Add(ctx, patchID, comment); err != nil {
		return nil, err
	}

	return &comment, nil
}
