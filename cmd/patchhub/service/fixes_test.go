package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrack/patchhub/common/models"
	"github.com/buildtrack/patchhub/common/redis"
)

func testFixCache(t *testing.T) *FixCache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), testLogger())
	return NewFixCache(client, time.Minute)
}

type fixHarness struct {
	svc       *FixService
	patches   *fakePatchStore
	fixes     *fakeFixStore
	approvals *fakeApprovalStore
	tracker   *fakeTracker
	jobs      *fakeJobs
}

func newFixHarness(t *testing.T, cache *FixCache, patches *fakePatchStore) *fixHarness {
	t.Helper()

	h := &fixHarness{
		patches:   patches,
		fixes:     newFakeFixStore(),
		approvals: newFakeApprovalStore(),
		tracker:   newFakeTracker(),
		jobs:      &fakeJobs{},
	}
	h.svc = NewFixService(h.patches, h.fixes, h.approvals, h.tracker, cache, h.jobs, testLogger())
	return h
}

func resolvedBug(id int, release string, daysAgo int) *models.Bug {
	resolved := time.Now().AddDate(0, 0, -daysAgo)
	return &models.Bug{
		ID:          id,
		Release:     release,
		ResolveDate: &resolved,
		CheckIns:    []models.CheckIn{{ID: "c1", Author: "dev"}},
	}
}

func TestAvailableFixesFiltersPatchFixes(t *testing.T) {
	h := newFixHarness(t, nil, newFakePatchStore())
	h.tracker.family["5.3.3"] = []models.Fix{{BugID: 100}, {BugID: 101}, {BugID: 102}}

	patch := testPatch(1, models.StatusSaved)
	require.NoError(t, patch.AddFix(models.Fix{BugID: 101}))

	available, err := h.svc.AvailableFixes(context.Background(), patch)
	require.NoError(t, err)

	require.Len(t, available, 2)
	assert.Equal(t, 100, available[0].BugID)
	assert.Equal(t, 102, available[1].BugID)
}

func TestAvailableFixesExcludesBasePatchFixes(t *testing.T) {
	h := newFixHarness(t, nil, newFakePatchStore())
	h.tracker.family["5.3.3"] = []models.Fix{{BugID: 100}, {BugID: 101}}

	// Bug 100 already shipped in the base patch this request extends.
	require.NoError(t, h.fixes.Add(context.Background(), 9, models.Fix{BugID: 100}))

	patch := testPatch(1, models.StatusSaved)
	patch.PreviousPatch = &models.Patch{ID: 9, Name: "SP1"}

	available, err := h.svc.AvailableFixes(context.Background(), patch)
	require.NoError(t, err)

	require.Len(t, available, 1, "fixes the base patch delivers must not be offered again")
	assert.Equal(t, 101, available[0].BugID)
}

func TestAvailableFixesServedFromCache(t *testing.T) {
	h := newFixHarness(t, testFixCache(t), newFakePatchStore())
	h.tracker.family["5.3.3"] = []models.Fix{{BugID: 100}}

	patch := testPatch(1, models.StatusSaved)
	ctx := context.Background()

	_, err := h.svc.AvailableFixes(ctx, patch)
	require.NoError(t, err)
	require.Equal(t, 1, h.tracker.familyCalls)

	// Tracker data changes, but the cached list is still served
	h.tracker.family["5.3.3"] = []models.Fix{{BugID: 100}, {BugID: 200}}

	available, err := h.svc.AvailableFixes(ctx, patch)
	require.NoError(t, err)
	assert.Equal(t, 1, h.tracker.familyCalls, "second call must not hit the tracker")
	assert.Len(t, available, 1)
}

func TestResolveBulkFixesAcceptsValidBugs(t *testing.T) {
	h := newFixHarness(t, nil, newFakePatchStore())
	h.tracker.bugs[200] = resolvedBug(200, "5.3.3.4", 2)

	patch := testPatch(1, models.StatusSaved)

	fixes, fieldErrs, err := h.svc.ResolveBulkFixes(context.Background(), patch, "200", "")
	require.NoError(t, err)
	assert.False(t, fieldErrs.Any())

	require.Len(t, fixes, 1)
	assert.Equal(t, 200, fixes[0].BugID)
	assert.Equal(t, "5.3.3.4", fixes[0].Release)
	require.NotNil(t, fixes[0].Origin)
	assert.Equal(t, patch.ID, fixes[0].Origin.ID, "bulk fixes originate from the requesting patch")
}

func TestResolveBulkFixesDiagnostics(t *testing.T) {
	h := newFixHarness(t, nil, newFakePatchStore())

	unresolved := resolvedBug(201, "5.3.3.4", 2)
	unresolved.ResolveDate = nil
	h.tracker.bugs[201] = unresolved

	noCheckins := resolvedBug(202, "5.3.3.4", 2)
	noCheckins.CheckIns = nil
	h.tracker.bugs[202] = noCheckins

	h.tracker.bugs[203] = resolvedBug(203, "6.1.0.2", 2)

	patch := testPatch(1, models.StatusSaved)
	require.NoError(t, patch.AddFix(models.Fix{BugID: 300}))

	fixes, fieldErrs, err := h.svc.ResolveBulkFixes(context.Background(),
		patch, "abc, 201 202 203; 204, 300", "")
	require.NoError(t, err)

	assert.Empty(t, fixes)
	assert.Equal(t, diagNotANumber, fieldErrs["abc"])
	assert.Equal(t, diagUnresolved, fieldErrs["201"])
	assert.Equal(t, diagNoCheckIns, fieldErrs["202"])
	assert.Contains(t, fieldErrs["203"], "outside the 5.3.3 line")
	assert.Equal(t, diagNotFound, fieldErrs["204"])
	assert.Equal(t, diagDuplicate, fieldErrs["300"])
}

func TestResolveBulkFixesRejectsBaseDeliveredBugs(t *testing.T) {
	h := newFixHarness(t, nil, newFakePatchStore())
	h.tracker.bugs[200] = resolvedBug(200, "5.3.3.4", 2)

	require.NoError(t, h.fixes.Add(context.Background(), 9, models.Fix{BugID: 100}))

	patch := testPatch(1, models.StatusSaved)
	patch.PreviousPatch = &models.Patch{ID: 9}

	fixes, fieldErrs, err := h.svc.ResolveBulkFixes(context.Background(), patch, "100, 200", "")
	require.NoError(t, err)

	assert.Equal(t, diagInBase, fieldErrs["100"])
	require.Len(t, fixes, 1)
	assert.Equal(t, 200, fixes[0].BugID)
}

func TestResolveBulkFixesDiagnosticPriority(t *testing.T) {
	h := newFixHarness(t, nil, newFakePatchStore())

	// Resolved long before the build started, in the wrong release line,
	// with no check-ins: only the first failing check is reported.
	stale := resolvedBug(210, "6.1.0.2", 400)
	stale.CheckIns = nil
	h.tracker.bugs[210] = stale

	patch := testPatch(1, models.StatusSaved)
	started := time.Now().AddDate(0, 0, -30)
	patch.SourceBuild.StartTime = &started

	_, fieldErrs, err := h.svc.ResolveBulkFixes(context.Background(), patch, "210", "")
	require.NoError(t, err)
	assert.Contains(t, fieldErrs["210"], "already in the product")
}

func TestResolveBulkFixesBranchOverrideSkipsValidation(t *testing.T) {
	h := newFixHarness(t, nil, newFakePatchStore())

	patch := testPatch(1, models.StatusSaved)

	// Bug 999 is unknown to the tracker, but the explicit branch takes it
	// on trust.
	fixes, fieldErrs, err := h.svc.ResolveBulkFixes(context.Background(),
		patch, "999, nope", "//depot/hotfix/acme")
	require.NoError(t, err)

	assert.Equal(t, diagNotANumber, fieldErrs["nope"],
		"non-numeric tokens are diagnosed even with a branch override")
	require.Len(t, fixes, 1)
	assert.Equal(t, 999, fixes[0].BugID)
	assert.Equal(t, "//depot/hotfix/acme", fixes[0].VersionControlRoot)
	require.NotNil(t, fixes[0].Origin)
	assert.Equal(t, patch.ID, fixes[0].Origin.ID)
}

func TestReplaceFixesRestartsApproval(t *testing.T) {
	patches := newFakePatchStore(testPatch(1, models.StatusApproval))
	h := newFixHarness(t, nil, patches)

	require.NoError(t, h.fixes.Add(context.Background(), 1, models.Fix{BugID: 100}))
	require.NoError(t, h.approvals.Add(context.Background(), 1, models.Approval{
		User:        models.User{Login: "mia"},
		Status:      models.ApprovalApproved,
		PatchStatus: models.StatusApproval,
	}))

	patch, err := h.svc.ReplaceFixes(context.Background(), 1,
		[]models.Fix{{BugID: 100}, {BugID: 101}})
	require.NoError(t, err)

	assert.Equal(t, models.StatusSaved, patch.Status, "fix-list edits withdraw the request")
	assert.Equal(t, 2, patch.FixCount())
	assert.Empty(t, h.approvals.approvals[1], "approvals restart on fix-list change")
	assert.Equal(t, []int{1}, h.jobs.discarded)

	stored, err := h.fixes.ListByPatch(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestReplaceFixesLockedOnceBuilding(t *testing.T) {
	patches := newFakePatchStore(testPatch(1, models.StatusBuilding))
	h := newFixHarness(t, nil, patches)

	_, err := h.svc.ReplaceFixes(context.Background(), 1, []models.Fix{{BugID: 100}})
	require.ErrorIs(t, err, ErrFixesLocked)
}

func TestReplaceFixesDropsDuplicateBugIDs(t *testing.T) {
	patches := newFakePatchStore(testPatch(1, models.StatusSaved))
	h := newFixHarness(t, nil, patches)

	patch, err := h.svc.ReplaceFixes(context.Background(), 1,
		[]models.Fix{{BugID: 100, Notes: "first"}, {BugID: 100, Notes: "second"}})
	require.NoError(t, err)

	require.Equal(t, 1, patch.FixCount())
	assert.Equal(t, "first", patch.Fixes()[0].Notes)
}
