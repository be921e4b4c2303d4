package patchutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildtrack/patchhub/common/models"
)

func samplePatch() *models.Patch {
	patch := &models.Patch{
		ID:          42,
		Name:        "SP13",
		Customer:    &models.Customer{Name: "Acme", ShortName: "ACME"},
		Environment: &models.Environment{Name: "Production", ShortName: "PROD1"},
		SourceBuild: &models.Build{Version: "MN-PROD-5.3.3.2-20120101"},
	}
	return patch
}

func TestReleaseFamily(t *testing.T) {
	assert.Equal(t, "5.3.3", ReleaseFamily("5.3.3.2"))
	assert.Equal(t, "5.3.3", ReleaseFamily("5.3.3.2.1"))
	assert.Equal(t, "5.3.3", ReleaseFamily("5.3.3"))
	assert.Equal(t, "5.3", ReleaseFamily("5.3"))
	assert.Equal(t, "", ReleaseFamily(""))
}

func TestPatchNumberRoundTrip(t *testing.T) {
	n, err := PatchNumber("SP13")
	require.NoError(t, err)
	assert.Equal(t, 13, n)

	n, err = PatchNumber("sp7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = PatchNumber("HOTFIX13")
	require.Error(t, err)
	_, err = PatchNumber("SPX")
	require.Error(t, err)

	assert.Equal(t, "SP13", PatchName(13))
}

func TestVersionParsing(t *testing.T) {
	assert.Equal(t, "MN-PROD-5.3.3.2", ShortVersion("MN-PROD-5.3.3.2-20120101"))
	assert.Equal(t, "5.3.3.2", VersionNumber("MN-PROD-5.3.3.2-20120101"))
	assert.Equal(t, "PROD", ProductName("MN-PROD-5.3.3.2-20120101"))
	assert.Equal(t, "5.3.3.2", VersionNumber("5.3.3.2"), "bare versions pass through")
}

func TestJobName(t *testing.T) {
	patch := samplePatch()
	assert.Equal(t, "ACME-PROD1-5.3.3.2-SP13", JobName(patch))
	assert.Equal(t, "ACME-PROD1-5.3.3.2-SP13-SHORT", ShortJobName(patch))

	patch.Environment = nil
	assert.Equal(t, "ACME-5.3.3.2-SP13", JobName(patch))

	patch.Customer = nil
	assert.Equal(t, "", JobName(patch))
	assert.Equal(t, "", ShortJobName(patch))
}

func TestBranchName(t *testing.T) {
	patch := samplePatch()
	assert.Equal(t, "acme_prod1_5.3.3.2_sp13", BranchName(patch))

	patch.Environment = nil
	assert.Equal(t, "acme_5.3.3.2_sp13", BranchName(patch))

	assert.Equal(t, "", BranchName(nil))
}

func TestBuildCommand(t *testing.T) {
	patch := samplePatch()
	patch.SetFixes([]models.Fix{{BugID: 100}, {BugID: 250}})

	cmd := BuildCommand(patch, "/opt/sp")
	assert.Equal(t,
		"sp.sh --exec -s /opt/sp --bugs 100,250 acme --env PROD1 MN-PROD-5.3.3.2-20120101 sp13",
		cmd)

	assert.Equal(t, "", BuildCommand(nil, ""))
}

func TestRecipientList(t *testing.T) {
	patch := samplePatch()
	patch.CCList = []string{"a@example.com", "b@example.com"}
	assert.Equal(t, "a@example.com b@example.com", RecipientList(patch))
	assert.Equal(t, "", RecipientList(nil))
}
