package service

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrack/patchhub/common/models"
)

func patchWithFixes(id int, fixes ...models.Fix) *models.Patch {
	patch := testPatch(id, models.StatusSaved)
	patch.SetFixes(fixes)
	return patch
}

func TestOriginsCollectsCandidatesPerBug(t *testing.T) {
	svc := NewOriginService(newFakePatchStore(), newFakeFixStore(), testLogger())

	p1 := &models.Patch{ID: 10}
	p2 := &models.Patch{ID: 20}

	patch := patchWithFixes(1,
		models.Fix{BugID: 101},
		models.Fix{BugID: 102},
		models.Fix{BugID: 103},
	)
	related := []*models.Patch{
		// Two related patches agree bug 101 came from p1; the duplicate
		// candidate collapses.
		patchWithFixes(2, models.Fix{BugID: 101, Origin: p1}),
		patchWithFixes(3,
			models.Fix{BugID: 101, Origin: p1},
			models.Fix{BugID: 103, Origin: p2},
		),
		// Bug 102 appears with no recorded origin: contributes nothing.
		patchWithFixes(4, models.Fix{BugID: 102}),
	}

	got := svc.Origins(patch, related)

	want := map[int][]*models.Patch{
		101: {p1},
		103: {p2},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreUnexported(models.Patch{})); diff != "" {
		t.Errorf("origin candidates mismatch (-want +got):\n%s", diff)
	}
	_, has102 := got[102]
	assert.False(t, has102, "bugs with zero candidates get no entry at all")
}

func TestOriginsSkipsSelf(t *testing.T) {
	svc := NewOriginService(newFakePatchStore(), newFakeFixStore(), testLogger())

	origin := &models.Patch{ID: 99}
	patch := patchWithFixes(1, models.Fix{BugID: 101})
	related := []*models.Patch{
		patchWithFixes(1, models.Fix{BugID: 101, Origin: origin}),
	}

	got := svc.Origins(patch, related)
	assert.Empty(t, got, "the patch itself is not part of its own lineage")
}

func TestOriginsDisagreeingCandidates(t *testing.T) {
	svc := NewOriginService(newFakePatchStore(), newFakeFixStore(), testLogger())

	patch := patchWithFixes(1, models.Fix{BugID: 101})
	related := []*models.Patch{
		patchWithFixes(2, models.Fix{BugID: 101, Origin: &models.Patch{ID: 10}}),
		patchWithFixes(3, models.Fix{BugID: 101, Origin: &models.Patch{ID: 20}}),
	}

	got := svc.Origins(patch, related)
	require.Len(t, got[101], 2, "disagreement keeps all candidates for manual resolution")
}

func TestReconcilePersistsUnambiguousOrigins(t *testing.T) {
	patches := newFakePatchStore(testPatch(1, models.StatusSaved))
	patches.related = []*models.Patch{
		testPatch(2, models.StatusRelease),
		testPatch(3, models.StatusRelease),
	}

	fixes := newFakeFixStore()
	ctx := context.Background()
	require.NoError(t, fixes.Add(ctx, 1, models.Fix{BugID: 101}))
	require.NoError(t, fixes.Add(ctx, 1, models.Fix{BugID: 102}))
	// Related patch 2 knows where both bugs came from; patch 3 disagrees
	// about 102.
	require.NoError(t, fixes.Add(ctx, 2, models.Fix{BugID: 101, Origin: &models.Patch{ID: 10}}))
	require.NoError(t, fixes.Add(ctx, 2, models.Fix{BugID: 102, Origin: &models.Patch{ID: 10}}))
	require.NoError(t, fixes.Add(ctx, 3, models.Fix{BugID: 102, Origin: &models.Patch{ID: 20}}))

	svc := NewOriginService(patches, fixes, testLogger())

	candidates, err := svc.Reconcile(ctx, 1)
	require.NoError(t, err)

	assert.Len(t, candidates[101], 1)
	assert.Len(t, candidates[102], 2)
	assert.Equal(t, map[int]int{101: 10}, fixes.originWrites,
		"only the unambiguous bug is persisted")
}

func TestReconcileLeavesExistingOriginsAlone(t *testing.T) {
	patches := newFakePatchStore(testPatch(1, models.StatusSaved))
	patches.related = []*models.Patch{testPatch(2, models.StatusRelease)}

	fixes := newFakeFixStore()
	ctx := context.Background()
	require.NoError(t, fixes.Add(ctx, 1, models.Fix{BugID: 101, Origin: &models.Patch{ID: 5}}))
	require.NoError(t, fixes.Add(ctx, 2, models.Fix{BugID: 101, Origin: &models.Patch{ID: 10}}))

	svc := NewOriginService(patches, fixes, testLogger())

	_, err := svc.Reconcile(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, fixes.originWrites, "a recorded origin is never overwritten")
}

func TestCandidatesDoesNotPersist(t *testing.T) {
	patches := newFakePatchStore(testPatch(1, models.StatusSaved))
	patches.related = []*models.Patch{testPatch(2, models.StatusRelease)}

	fixes := newFakeFixStore()
	ctx := context.Background()
	require.NoError(t, fixes.Add(ctx, 1, models.Fix{BugID: 101}))
	require.NoError(t, fixes.Add(ctx, 2, models.Fix{BugID: 101, Origin: &models.Patch{ID: 10}}))

	svc := NewOriginService(patches, fixes, testLogger())

	candidates, err := svc.Candidates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, candidates[101], 1)
	assert.Empty(t, fixes.originWrites, "a read-only lookup must not write origins")
}

func TestUpdatedFixes(t *testing.T) {
	prev := []models.Fix{
		{BugID: 101},
		{BugID: 102, Origin: &models.Patch{ID: 10}},
		{BugID: 103, Origin: &models.Patch{ID: 20}},
	}
	next := []models.Fix{
		{BugID: 101, Origin: &models.Patch{ID: 10}},
		{BugID: 102, Origin: &models.Patch{ID: 10}},
		{BugID: 103, Origin: &models.Patch{ID: 30}},
		{BugID: 104, Origin: &models.Patch{ID: 40}},
	}

	updated := UpdatedFixes(prev, next)

	require.Len(t, updated, 2)
	assert.Equal(t, 101, updated[0].BugID, "gaining an origin counts as a change")
	assert.Equal(t, 103, updated[1].BugID, "switching origins counts as a change")
}

func TestApplyOrigin(t *testing.T) {
	fixes := newFakeFixStore()
	ctx := context.Background()
	require.NoError(t, fixes.Add(ctx, 1, models.Fix{BugID: 101}))

	svc := NewOriginService(newFakePatchStore(), fixes, testLogger())

	require.NoError(t, svc.ApplyOrigin(ctx, 1, 101, 42))
	assert.Equal(t, map[int]int{101: 42}, fixes.originWrites)
}
