package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/buildtrack/patchhub/common/logger"
	"github.com/buildtrack/patchhub/common/models"
	"github.com/buildtrack/patchhub/common/patchutil"
	"github.com/buildtrack/patchhub/common/redis"
)

// Bulk-entry diagnostics, keyed by the failed check. Checks run in
// priority order: a bug failing several reports only the first.
const (
	diagNotANumber = "not a number"
	diagDuplicate  = "already included in the patch"
	diagInBase     = "already delivered by the base patch"
	diagNoCheckIns = "no check-ins found"
	diagUnresolved = "unresolved in the bug tracker"
	diagNotFound   = "not found in the bug tracker"
)

// FixCache caches available-fix lists per release line in Redis. A nil
// cache is valid and always misses.
type FixCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFixCache creates a fix cache with the given entry TTL
func NewFixCache(client *redis.Client, ttl time.Duration) *FixCache {
	return &FixCache{client: client, ttl: ttl}
}

func (c *FixCache) key(family string) string {
	return "fixes:" + family
}

// Get returns the cached fix list for a release line
func (c *FixCache) Get(ctx context.Context, family string) ([]models.Fix, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, c.key(family))
	if err != nil {
		return nil, false
	}

	var fixes []models.Fix
	if err := json.Unmarshal([]byte(raw), &fixes); err != nil {
		return nil, false
	}
	return fixes, true
}

// Put stores the fix list for a release line
func (c *FixCache) Put(ctx context.Context, family string, fixes []models.Fix) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(fixes)
	if err != nil {
		return
	}
	_ = c.client.SetWithExpiry(ctx, c.key(family), string(raw), c.ttl)
}

// Invalidate drops the cached fix list for a release line
func (c *FixCache) Invalidate(ctx context.Context, family string) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Delete(ctx, c.key(family))
}

// FixService manages patch fix lists: availability, bulk entry
// validation, and replacement
type FixService struct {
	patches   PatchStore
	fixes     FixStore
	approvals ApprovalStore
	tracker   BugTracker
	cache     *FixCache
	jobs      JobRunner
	log       *logger.Logger
}

// NewFixService creates a fix service
func NewFixService(patches PatchStore, fixes FixStore, approvals ApprovalStore,
	tracker BugTracker, cache *FixCache, jobs JobRunner, log *logger.Logger) *FixService {
	return &FixService{
		patches:   patches,
		fixes:     fixes,
		approvals: approvals,
		tracker:   tracker,
		cache:     cache,
		jobs:      jobs,
		log:       log,
	}
}

// AvailableFixes returns the resolved fixes in the patch's release line
// that are not already on the patch or delivered by its base patch.
// Lists are cached per release line.
func (s *FixService) AvailableFixes(ctx context.Context, patch *models.Patch) ([]models.Fix, error) {
	if patch.SourceBuild == nil {
		return nil, fmt.Errorf("patch %d has no source build", patch.ID)
	}

	family := patchutil.ReleaseFamily(patchutil.VersionNumber(patch.SourceBuild.Version))

	all, hit := s.cache.Get(ctx, family)
	if !hit {
		var err error
		all, err = s.tracker.FixesForFamily(ctx, family)
		if err != nil {
			return nil, fmt.Errorf("list fixes for release line %q: %w", family, err)
		}
		s.cache.Put(ctx, family, all)
	}

	inBase, err := s.baseFixIDs(ctx, patch)
	if err != nil {
		return nil, err
	}

	var available []models.Fix
	for _, fix := range all {
		if patch.HasFix(fix.BugID) || inBase[fix.BugID] {
			continue
		}
		available = append(available, fix)
	}
	return available, nil
}

// baseFixIDs returns the bug IDs already delivered by the base patch
// this request extends, or nil when there is no base.
func (s *FixService) baseFixIDs(ctx context.Context, patch *models.Patch) (map[int]bool, error) {
	if patch.PreviousPatch == nil {
		return nil, nil
	}

	baseFixes, err := s.fixes.ListByPatch(ctx, patch.PreviousPatch.ID)
	if err != nil {
		return nil, fmt.Errorf("list fixes for base patch %d: %w", patch.PreviousPatch.ID, err)
	}

	ids := make(map[int]bool, len(baseFixes))
	for _, fix := range baseFixes {
		ids[fix.BugID] = true
	}
	return ids, nil
}

// ResolveBulkFixes validates a comma- or whitespace-delimited list of
// bug IDs and returns the fixes to add. A non-empty branch override
// skips tracker validation entirely: the fix is taken on trust against
// that branch. Each failed token gets one diagnostic; checks run in
// the order already-fixed, wrong release line, no check-ins, unresolved.
func (s *FixService) ResolveBulkFixes(ctx context.Context, patch *models.Patch, bulk, branch string) ([]models.Fix, FieldErrors, error) {
	fieldErrs := make(FieldErrors)
	branch = strings.TrimSpace(branch)

	var family string
	if patch.SourceBuild != nil {
		family = patchutil.ReleaseFamily(patchutil.VersionNumber(patch.SourceBuild.Version))
	}

	inBase, err := s.baseFixIDs(ctx, patch)
	if err != nil {
		return nil, nil, err
	}

	var resolved []models.Fix
	seen := make(map[int]bool)
	for _, token := range splitBulk(bulk) {
		bugID, err := strconv.Atoi(token)
		if err != nil {
			fieldErrs.Add(token, diagNotANumber)
			continue
		}
		if patch.HasFix(bugID) || seen[bugID] {
			fieldErrs.Add(token, diagDuplicate)
			continue
		}
		if inBase[bugID] {
			fieldErrs.Add(token, diagInBase)
			continue
		}

		if branch != "" {
			seen[bugID] = true
			resolved = append(resolved, models.Fix{
				BugID:              bugID,
				RequestDate:        time.Now(),
				VersionControlRoot: branch,
				Origin:             patch,
			})
			continue
		}

		fix, diag, err := s.validateBug(ctx, patch, bugID, family)
		if err != nil {
			return nil, nil, err
		}
		if diag != "" {
			fieldErrs.Add(token, diag)
			continue
		}

		seen[bugID] = true
		fix.Origin = patch
		resolved = append(resolved, fix)
	}

	return resolved, fieldErrs, nil
}

// validateBug checks a bug against the tracker and, when it passes,
// returns the fix to add. A non-empty diagnostic means rejection.
func (s *FixService) validateBug(ctx context.Context, patch *models.Patch, bugID int, family string) (models.Fix, string, error) {
	bug, err := s.tracker.Bug(ctx, bugID)
	if err != nil {
		return models.Fix{}, "", fmt.Errorf("look up bug %d: %w", bugID, err)
	}
	if bug == nil {
		return models.Fix{}, diagNotFound, nil
	}

	if patch.SourceBuild != nil && patch.SourceBuild.StartTime != nil &&
		bug.ResolveDate != nil && bug.ResolveDate.Before(*patch.SourceBuild.StartTime) {
		return models.Fix{}, fmt.Sprintf("already in the product: resolved before build %s started",
			patch.SourceBuild.Version), nil
	}

	if family != "" && bug.Release != "" && !strings.HasPrefix(bug.Release, family) {
		return models.Fix{}, fmt.Sprintf("fixed in release %s, outside the %s line", bug.Release, family), nil
	}

	if len(bug.CheckIns) == 0 {
		return models.Fix{}, diagNoCheckIns, nil
	}

	if !bug.IsResolved() {
		return models.Fix{}, diagUnresolved, nil
	}

	fix := bug.Fix()
	fix.RequestDate = time.Now()
	return fix, "", nil
}

// ReplaceFixes swaps the patch's fix list. Allowed while the request is
// SAVED, REJECTED, or still in APPROVAL; any change restarts the
// approval process, discards pending CI jobs, and returns the request
// to SAVED.
func (s *FixService) ReplaceFixes(ctx context.Context, patchID int, fixes []models.Fix) (*models.Patch, error) {
	patch, err := s.patches.Get(ctx, patchID)
	if err != nil {
		return nil, err
	}

	switch patch.Status {
	case models.StatusSaved, models.StatusRejected, models.StatusApproval:
	default:
		return nil, fmt.Errorf("patch %d is %s: %w", patchID, patch.Status, ErrFixesLocked)
	}

	log := s.log.WithPatchID(patchID)

	removed, err := s.approvals.DeleteByPatch(ctx, patchID)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		log.Info("approvals cleared by fix-list change", "removed", removed)
	}

	if err := s.jobs.Discard(ctx, patch); err != nil {
		log.Warn("failed to discard CI job", "error", err)
	}

	if _, err := s.fixes.DeleteByPatch(ctx, patchID); err != nil {
		return nil, err
	}

	for i := range fixes {
		if fixes[i].RequestDate.IsZero() {
			fixes[i].RequestDate = time.Now()
		}
	}
	patch.SetFixes(fixes)
	for _, fix := range patch.Fixes() {
		if err := s.fixes.Add(ctx, patchID, fix); err != nil {
			return nil, err
		}
	}

	if patch.Status != models.StatusSaved {
		if err := s.patches.UpdateStatus(ctx, patchID, models.StatusSaved); err != nil {
			return nil, err
		}
		patch.Status = models.StatusSaved
	}

	log.Info("fix list replaced", "fixes", patch.FixCount())
	return patch, nil
}

// splitBulk tokenizes bulk input on commas and whitespace
func splitBulk(bulk string) []string {
	return strings.FieldsFunc(bulk, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
}
