package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestStatus(t *testing.T) {
	status, err := ParseRequestStatus("  approval ")
	require.NoError(t, err)
	assert.Equal(t, StatusApproval, status)

	_, err = ParseRequestStatus("SHIPPED")
	var parseErr *StatusParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "SHIPPED", parseErr.Value)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to RequestStatus
		ok       bool
	}{
		{StatusSaved, StatusApproval, true},
		{StatusSaved, StatusPending, true}, // zero-approver short circuit
		{StatusSaved, StatusBuilt, false},
		{StatusApproval, StatusPending, true},
		{StatusApproval, StatusRejected, true},
		{StatusApproval, StatusSaved, true}, // fix-list edit withdraws
		{StatusRejected, StatusSaved, true},
		{StatusRejected, StatusApproval, false},
		{StatusPending, StatusBranching, true},
		{StatusBranching, StatusBranched, true},
		{StatusBranched, StatusBuilding, true},
		{StatusBuilding, StatusBuilt, true},
		{StatusBuilt, StatusComplete, true},
		{StatusComplete, StatusRelease, true},
		{StatusFailed, StatusPending, true},
		{StatusRelease, StatusCanceled, false},
		{StatusCanceled, StatusSaved, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestEveryStatusCanBeCanceledExceptTerminals(t *testing.T) {
	for status := range requestStatuses {
		want := status != StatusRelease && status != StatusCanceled
		assert.Equal(t, want, CanTransition(status, StatusCanceled), "from %s", status)
	}
}

func TestUrgencyOrdering(t *testing.T) {
	assert.Greater(t, RequirementRequired.Urgency(), RequirementRecommended.Urgency())
	assert.Greater(t, RequirementRecommended.Urgency(), RequirementOptional.Urgency())
	assert.Zero(t, FixRequirement("BOGUS").Urgency())
}

func TestParsePatchPriorityDefaultsLow(t *testing.T) {
	p, err := ParsePatchPriority("")
	require.NoError(t, err)
	assert.Equal(t, PriorityLow, p)

	p, err = ParsePatchPriority("high")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)

	_, err = ParsePatchPriority("urgent")
	require.Error(t, err)
}
