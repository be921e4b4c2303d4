package service

import (
	"context"
	"fmt"

	"github.com/buildtrack/patchhub/common/logger"
	"github.com/buildtrack/patchhub/common/models"
	"github.com/buildtrack/patchhub/common/rules"
)

// ApprovalService drives the request workflow: submission, the approval
// quorum, and the guarded status transitions that follow. Every
// transition persists first; notification and CI side effects are
// best-effort afterwards.
type ApprovalService struct {
	patches   PatchStore
	fixes     FixStore
	approvals ApprovalStore
	users     Directory
	matcher   *rules.Matcher
	notifier  Notifier
	jobs      JobRunner
	log       *logger.Logger
}

// NewApprovalService creates an approval service
func NewApprovalService(patches PatchStore, fixes FixStore, approvals ApprovalStore,
	users Directory, matcher *rules.Matcher, notifier Notifier, jobs JobRunner,
	log *logger.Logger) *ApprovalService {
	return &ApprovalService{
		patches:   patches,
		fixes:     fixes,
		approvals: approvals,
		users:     users,
		matcher:   matcher,
		notifier:  notifier,
		jobs:      jobs,
		log:       log,
	}
}

// SubmitForApproval moves a SAVED request into the approval chain. When
// no approver group matches the build, the request short-circuits
// straight to PENDING and the CI job launches immediately.
func (s *ApprovalService) SubmitForApproval(ctx context.Context, patchID int) (*models.Patch, error) {
	patch, err := s.load(ctx, patchID)
	if err != nil {
		return nil, err
	}

	groups, err := s.matchingGroups(ctx, patch, models.StatusApproval)
	if err != nil {
		return nil, err
	}

	next := models.StatusApproval
	if len(groups) == 0 {
		next = models.StatusPending
		s.log.WithPatchID(patchID).Info("no approver groups match, skipping approval")
	}

	if err := s.transition(ctx, patch, next, groups); err != nil {
		return nil, err
	}

	if next == models.StatusPending {
		s.launch(ctx, patch)
	}

	return patch, nil
}

// SubmitApproval records one approver's verdict. A rejection moves the
// request to REJECTED immediately; an approval moves it to PENDING once
// every matching group has at least one approval from a member.
func (s *ApprovalService) SubmitApproval(ctx context.Context, patchID int, login string, verdict models.ApprovalStatus, comment string) (*models.Patch, error) {
	patch, err := s.load(ctx, patchID)
	if err != nil {
		return nil, err
	}
	if patch.Status != models.StatusApproval {
		return nil, &models.ErrInvalidTransition{From: patch.Status, To: models.StatusPending}
	}

	user, err := s.users.User(ctx, login)
	if err != nil {
		return nil, err
	}

	groups, err := s.matchingGroups(ctx, patch, patch.Status)
	if err != nil {
		return nil, err
	}
	if !memberOfAny(user, groups) {
		return nil, fmt.Errorf("user %q on patch %d: %w", login, patchID, ErrNotAuthorized)
	}

	approval := models.Approval{
		User:        *user,
		Status:      verdict,
		PatchStatus: patch.Status,
		Comment:     comment,
	}
	if err := s.approvals.Add(ctx, patchID, approval); err != nil {
		return nil, err
	}
	patch.AddApproval(approval)

	log := s.log.WithPatchID(patchID).WithUser(login)
	log.Info("approval recorded", "verdict", verdict)

	if verdict == models.ApprovalRejected {
		if err := s.transition(ctx, patch, models.StatusRejected, groups); err != nil {
			return nil, err
		}
		return patch, nil
	}

	recorded, err := s.approvals.ListByPatch(ctx, patchID, patch.Status)
	if err != nil {
		return nil, err
	}
	if !s.quorumMet(ctx, recorded, groups) {
		return patch, nil
	}

	if err := s.transition(ctx, patch, models.StatusPending, groups); err != nil {
		return nil, err
	}
	s.launch(ctx, patch)

	return patch, nil
}

// Resubmit returns a REJECTED request to SAVED so it can be edited and
// submitted again
func (s *ApprovalService) Resubmit(ctx context.Context, patchID int) (*models.Patch, error) {
	return s.SetStatus(ctx, patchID, models.StatusSaved)
}

// Cancel terminates a request
func (s *ApprovalService) Cancel(ctx context.Context, patchID int) (*models.Patch, error) {
	return s.SetStatus(ctx, patchID, models.StatusCanceled)
}

// MarkBuilt records that CI finished the patch build
func (s *ApprovalService) MarkBuilt(ctx context.Context, patchID int) (*models.Patch, error) {
	return s.SetStatus(ctx, patchID, models.StatusBuilt)
}

// Complete marks the built patch ready for review and asks the
// reviewers for UT/ACT results
func (s *ApprovalService) Complete(ctx context.Context, patchID int) (*models.Patch, error) {
	return s.SetStatus(ctx, patchID, models.StatusComplete)
}

// Release hands the patch to the customer and notifies the requestor
func (s *ApprovalService) Release(ctx context.Context, patchID int) (*models.Patch, error) {
	return s.SetStatus(ctx, patchID, models.StatusRelease)
}

// SetStatus applies a guarded workflow transition. This is the entry
// point for CI callbacks reporting branch and build progress.
func (s *ApprovalService) SetStatus(ctx context.Context, patchID int, status models.RequestStatus) (*models.Patch, error) {
	patch, err := s.load(ctx, patchID)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, patch, status, nil); err != nil {
		return nil, err
	}
	return patch, nil
}

// transition validates the move, persists it, then fires notifications.
// The write happens before any side effect: a notification failure never
// leaves the stored status behind the in-memory one.
func (s *ApprovalService) transition(ctx context.Context, patch *models.Patch, next models.RequestStatus, groups []models.ApproverGroup) error {
	if !models.CanTransition(patch.Status, next) {
		return &models.ErrInvalidTransition{From: patch.Status, To: next}
	}

	if err := s.patches.UpdateStatus(ctx, patch.ID, next); err != nil {
		return err
	}

	prev := patch.Status
	patch.Status = next
	s.log.WithPatchID(patch.ID).Info("status changed", "from", prev, "to", next)

	switch next {
	case models.StatusComplete:
		s.notifier.ReviewRequested(ctx, patch)
	case models.StatusRelease:
		s.notifier.Released(ctx, patch)
	default:
		s.notifier.StatusChanged(ctx, patch, groups)
	}

	return nil
}

// quorumMet reports whether every group has at least one APPROVED
// verdict from one of its members. No groups means nothing to wait for.
func (s *ApprovalService) quorumMet(ctx context.Context, approvals []models.Approval, groups []models.ApproverGroup) bool {
	for _, group := range groups {
		if !s.groupApproved(ctx, approvals, group.Group) {
			return false
		}
	}
	return true
}

func (s *ApprovalService) groupApproved(ctx context.Context, approvals []models.Approval, group string) bool {
	for i := range approvals {
		if !approvals[i].IsApproved() {
			continue
		}
		user := approvals[i].User
		if len(user.Groups) == 0 {
			resolved, err := s.users.User(ctx, user.Login)
			if err != nil {
				s.log.Warn("failed to resolve approver groups", "login", user.Login, "error", err)
				continue
			}
			user = *resolved
		}
		if user.IsMemberOf(group) {
			return true
		}
	}
	return false
}

// matchingGroups returns the approver groups whose build-version
// pattern matches the patch's source build
func (s *ApprovalService) matchingGroups(ctx context.Context, patch *models.Patch, status models.RequestStatus) ([]models.ApproverGroup, error) {
	all, err := s.approvals.GroupsForStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	version := ""
	if patch.SourceBuild != nil {
		version = patch.SourceBuild.Version
	}

	var matched []models.ApproverGroup
	for _, group := range all {
		if s.matcher.Matches(group.BuildVersionPattern, version) {
			matched = append(matched, group)
		}
	}
	return matched, nil
}

// launch starts the CI job for a PENDING request. Best-effort: the
// request stays PENDING on failure and the job can be retried.
func (s *ApprovalService) launch(ctx context.Context, patch *models.Patch) {
	if err := s.jobs.Launch(ctx, patch); err != nil {
		s.log.WithPatchID(patch.ID).Warn("failed to launch CI job", "error", err)
	}
}

func (s *ApprovalService) load(ctx context.Context, patchID int) (*models.Patch, error) {
	patch, err := s.patches.Get(ctx, patchID)
	if err != nil {
		return nil, err
	}
	fixes, err := s.fixes.ListByPatch(ctx, patchID)
	if err != nil {
		return nil, err
	}
	patch.SetFixes(fixes)
	return patch, nil
}

func memberOfAny(user *models.User, groups []models.ApproverGroup) bool {
	for _, group := range groups {
		if user.IsMemberOf(group.Group) {
			return true
		}
	}
	return false
}
