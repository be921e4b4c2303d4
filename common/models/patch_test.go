package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFixRejectsDuplicateBug(t *testing.T) {
	patch := Patch{ID: 1}

	require.NoError(t, patch.AddFix(Fix{BugID: 100}))
	err := patch.AddFix(Fix{BugID: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already contains a fix for bug 100")
	assert.Equal(t, 1, patch.FixCount())
}

func TestSetFixesDropsLaterDuplicates(t *testing.T) {
	patch := Patch{ID: 1}
	patch.SetFixes([]Fix{
		{BugID: 100, Notes: "keep"},
		{BugID: 200},
		{BugID: 100, Notes: "drop"},
	})

	require.Equal(t, 2, patch.FixCount())
	assert.Equal(t, "keep", patch.Fix(100).Notes)
}

func TestFixesSnapshotIsIndependent(t *testing.T) {
	patch := Patch{ID: 1}
	require.NoError(t, patch.AddFix(Fix{BugID: 100}))

	snapshot := patch.Fixes()
	snapshot[0].BugID = 999

	assert.True(t, patch.HasFix(100))
	assert.False(t, patch.HasFix(999))
}

func TestIsMemberOf(t *testing.T) {
	user := User{Login: "mia", Groups: []string{"release-mgrs", "qa-leads"}}

	assert.True(t, user.IsMemberOf("qa-leads"))
	assert.False(t, user.IsMemberOf("admins"))
	assert.False(t, (&User{}).IsMemberOf("anything"))
}

func TestNotificationWantsStatus(t *testing.T) {
	all := Notification{Email: "a@example.com"}
	assert.True(t, all.WantsStatus(StatusBuilt))

	filtered := Notification{
		Email:    "b@example.com",
		Statuses: []RequestStatus{StatusRejected, StatusRelease},
	}
	assert.True(t, filtered.WantsStatus(StatusRejected))
	assert.False(t, filtered.WantsStatus(StatusBuilt))
}

func TestApprovalIsApproved(t *testing.T) {
	assert.True(t, (&Approval{Status: ApprovalApproved}).IsApproved())
	assert.False(t, (&Approval{Status: ApprovalRejected}).IsApproved())
}
