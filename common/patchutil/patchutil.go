// Package patchutil formats patch names, versions, and CI identifiers.
package patchutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/buildtrack/patchhub/common/models"
)

const (
	// Separator used inside full build version strings
	// (e.g. MN-PROD-5.3.3.2-20120101)
	versionSeparator = "-"

	// Prefix for service patch names (SP13)
	namePrefix = "SP"
)

// ReleaseFamily returns the maintenance line for a release version:
// the first three dot-separated components. A 5.3.3.2 build considers
// all fixes in 5.3.3.x, so "5.3.3.2" yields "5.3.3". Versions with
// three or fewer components are returned unchanged.
func ReleaseFamily(release string) string {
	parts := strings.Split(release, ".")
	if len(parts) > 3 {
		return strings.Join(parts[:3], ".")
	}
	return release
}

// PatchNumber parses the numeric portion of a service patch name
// ("SP13" -> 13).
func PatchNumber(name string) (int, error) {
	lower := strings.ToLower(name)
	idx := strings.Index(lower, strings.ToLower(namePrefix))
	if idx < 0 {
		return 0, fmt.Errorf("patch name %q does not start with %s", name, namePrefix)
	}
	n, err := strconv.Atoi(name[idx+len(namePrefix):])
	if err != nil {
		return 0, fmt.Errorf("patch name %q has no numeric suffix: %w", name, err)
	}
	return n, nil
}

// PatchName renders a patch number as a name (13 -> "SP13").
func PatchName(number int) string {
	return namePrefix + strconv.Itoa(number)
}

// ShortVersion trims the trailing timestamp segment from a full build
// version string.
func ShortVersion(version string) string {
	if idx := strings.LastIndex(version, versionSeparator); idx > 0 {
		return version[:idx]
	}
	return version
}

// VersionNumber extracts the numeric version from a full build version
// string ("MN-PROD-5.3.3.2-20120101" -> "5.3.3.2").
func VersionNumber(version string) string {
	short := ShortVersion(version)
	if idx := strings.LastIndex(short, versionSeparator); idx > 0 {
		return short[idx+1:]
	}
	return short
}

// ProductName extracts the product name from a full build version
// string ("MN-PROD-5.3.3.2-20120101" -> "PROD").
func ProductName(version string) string {
	parts := strings.SplitN(version, versionSeparator, 3)
	if len(parts) > 1 {
		return parts[1]
	}
	return version
}

// JobName builds the CI job name for a patch:
// CUSTOMER[-ENV]-VERNUM-NAME, upper-cased. Returns "" when the customer
// or source build is missing.
func JobName(patch *models.Patch) string {
	if patch == nil || patch.Customer == nil || patch.SourceBuild == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(patch.Customer.ShortName)
	b.WriteString(versionSeparator)

	if patch.Environment != nil {
		if env := strings.TrimSpace(patch.Environment.ShortName); env != "" {
			b.WriteString(env)
			b.WriteString(versionSeparator)
		}
	}

	b.WriteString(VersionNumber(patch.SourceBuild.Version))
	b.WriteString(versionSeparator)
	b.WriteString(patch.Name)

	return strings.ToUpper(b.String())
}

// ShortJobName builds the CI job name for a short (abbreviated) build
// by appending a -SHORT suffix.
func ShortJobName(patch *models.Patch) string {
	name := JobName(patch)
	if name == "" {
		return ""
	}
	return name + versionSeparator + "SHORT"
}

// BranchName builds the source-control branch for a patch:
// cust[_env]_vernum_spname, lower-cased.
func BranchName(patch *models.Patch) string {
	if patch == nil {
		return ""
	}

	var parts []string
	if patch.Customer != nil {
		if cust := strings.TrimSpace(patch.Customer.ShortName); cust != "" {
			parts = append(parts, strings.ToLower(cust))
		}
	}
	if patch.Environment != nil {
		if env := strings.TrimSpace(patch.Environment.ShortName); env != "" {
			parts = append(parts, strings.ToLower(env))
		}
	}
	if patch.SourceBuild != nil && patch.SourceBuild.Version != "" {
		vernum := VersionNumber(strings.ToLower(strings.TrimSpace(patch.SourceBuild.Version)))
		if vernum != "" {
			parts = append(parts, vernum)
		}
	}
	if name := strings.TrimSpace(patch.Name); name != "" {
		parts = append(parts, strings.ToLower(name))
	}

	return strings.Join(parts, "_")
}

// BuildCommand renders the command line used to invoke the service
// patch tool for the given request.
func BuildCommand(patch *models.Patch, scriptDir string) string {
	if patch == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("sp.sh --exec")

	if scriptDir != "" {
		b.WriteString(" -s " + scriptDir)
	}

	fixes := patch.Fixes()
	if len(fixes) > 0 {
		ids := make([]string, len(fixes))
		for i, fix := range fixes {
			ids[i] = strconv.Itoa(fix.BugID)
		}
		b.WriteString(" --bugs " + strings.Join(ids, ","))
	}

	if patch.Customer != nil && patch.Customer.ShortName != "" {
		b.WriteString(" " + strings.ToLower(patch.Customer.ShortName))
	}

	if patch.Environment != nil {
		if env := strings.TrimSpace(patch.Environment.ShortName); env != "" {
			b.WriteString(" --env " + env)
		}
	}

	if patch.SourceBuild != nil {
		b.WriteString(" " + patch.SourceBuild.Version)
	}

	if patch.Name != "" {
		b.WriteString(" " + strings.ToLower(patch.Name))
	}

	return b.String()
}

// RecipientList renders the patch CC list as a whitespace-delimited
// string of addresses.
func RecipientList(patch *models.Patch) string {
	if patch == nil {
		return ""
	}
	return strings.Join(patch.CCList, " ")
}
