package service

import (
	"context"
	"fmt"

	"github.com/buildtrack/patchhub/common/logger"
	"github.com/buildtrack/patchhub/common/models"
)

// OriginService reconciles fix origins: when the same bug appears on
// earlier patches in the build lineage, the fix is inherited rather than
// new, and the patch that introduced it becomes the fix's origin.
type OriginService struct {
	patches PatchStore
	fixes   FixStore
	log     *logger.Logger
}

// NewOriginService creates an origin reconciliation service
func NewOriginService(patches PatchStore, fixes FixStore, log *logger.Logger) *OriginService {
	return &OriginService{patches: patches, fixes: fixes, log: log}
}

// Origins computes the origin candidates for each fix on the patch. A
// candidate is the recorded origin of a matching fix on a related patch,
// deduplicated by patch ID. Bugs with no candidates get no map entry:
// absence means "nothing to reconcile", not "reconciled to nothing".
func (s *OriginService) Origins(patch *models.Patch, related []*models.Patch) map[int][]*models.Patch {
	candidates := make(map[int][]*models.Patch)

	for _, fix := range patch.Fixes() {
		var origins []*models.Patch
		seen := make(map[int]bool)

		for _, rel := range related {
			if rel.ID == patch.ID {
				continue
			}
			relFix := rel.Fix(fix.BugID)
			if relFix == nil || relFix.Origin == nil {
				continue
			}
			if seen[relFix.Origin.ID] {
				continue
			}
			seen[relFix.Origin.ID] = true
			origins = append(origins, relFix.Origin)
		}

		if len(origins) > 0 {
			candidates[fix.BugID] = origins
		}
	}

	return candidates
}

// Candidates computes the origin candidates for a patch without writing
// anything back
func (s *OriginService) Candidates(ctx context.Context, patchID int) (map[int][]*models.Patch, error) {
	patch, err := s.load(ctx, patchID)
	if err != nil {
		return nil, err
	}
	related, err := s.lineage(ctx, patch)
	if err != nil {
		return nil, err
	}
	return s.Origins(patch, related), nil
}

// Reconcile loads the patch and its build lineage, computes origin
// candidates, and persists the unambiguous ones: a fix with no recorded
// origin and exactly one candidate adopts that candidate. The full
// candidate map is returned so ambiguous bugs can be resolved manually.
func (s *OriginService) Reconcile(ctx context.Context, patchID int) (map[int][]*models.Patch, error) {
	patch, err := s.load(ctx, patchID)
	if err != nil {
		return nil, err
	}

	related, err := s.lineage(ctx, patch)
	if err != nil {
		return nil, err
	}

	candidates := s.Origins(patch, related)

	for bugID, origins := range candidates {
		fix := patch.Fix(bugID)
		if fix == nil || fix.Origin != nil || len(origins) != 1 {
			continue
		}
		if err := s.fixes.UpdateOrigin(ctx, patchID, bugID, origins[0].ID); err != nil {
			return nil, fmt.Errorf("reconcile origin for bug %d: %w", bugID, err)
		}
		s.log.WithPatchID(patchID).Info("fix origin reconciled",
			"bug_id", bugID, "origin_patch_id", origins[0].ID)
	}

	return candidates, nil
}

// ApplyOrigin records a manually chosen origin for a fix
func (s *OriginService) ApplyOrigin(ctx context.Context, patchID, bugID, originPatchID int) error {
	if err := s.fixes.UpdateOrigin(ctx, patchID, bugID, originPatchID); err != nil {
		return err
	}
	s.log.WithPatchID(patchID).Info("fix origin set",
		"bug_id", bugID, "origin_patch_id", originPatchID)
	return nil
}

// UpdatedFixes reports the fixes in next whose recorded origin differs
// from the matching fix in prev. Used to audit what a reconciliation
// pass actually changed.
func UpdatedFixes(prev, next []models.Fix) []models.Fix {
	byBug := make(map[int]*models.Fix, len(prev))
	for i := range prev {
		byBug[prev[i].BugID] = &prev[i]
	}

	var updated []models.Fix
	for _, fix := range next {
		old, ok := byBug[fix.BugID]
		if !ok {
			continue
		}
		if originID(old.Origin) != originID(fix.Origin) {
			updated = append(updated, fix)
		}
	}
	return updated
}

func originID(origin *models.Patch) int {
	if origin == nil {
		return 0
	}
	return origin.ID
}

// lineage loads the related patches with their fix lists, excluding the
// patch itself
func (s *OriginService) lineage(ctx context.Context, patch *models.Patch) ([]*models.Patch, error) {
	related, err := s.patches.Related(ctx, patch.SourceBuild.Version, patch.Customer.ID)
	if err != nil {
		return nil, err
	}
	for _, rel := range related {
		if rel.ID == patch.ID {
			continue
		}
		relFixes, err := s.fixes.ListByPatch(ctx, rel.ID)
		if err != nil {
			return nil, err
		}
		rel.SetFixes(relFixes)
	}
	return related, nil
}

func (s *OriginService) load(ctx context.Context, patchID int) (*models.Patch, error) {
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
