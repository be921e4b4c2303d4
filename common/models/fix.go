package models

import (
	"strings"
	"time"
)

// DependencyType classifies why one fix depends on another
type DependencyType string

const (
	DependencyMerge      DependencyType = "MERGE"
	DependencyCompile    DependencyType = "COMPILE"
	DependencyFunctional DependencyType = "FUNCTIONAL"
	DependencyTest       DependencyType = "TEST"
)

// CheckIn is a source-control check-in reference attached to a fix
type CheckIn struct {
	ID     string `db:"checkin_id" json:"id"`
	Author string `db:"author" json:"author,omitempty"`
}

// FixDependency records that a fix depends on another bug being included
type FixDependency struct {
	BugID int            `db:"dep_bug_id" json:"bug_id"`
	Type  DependencyType `db:"dep_type" json:"type"`
}

// Fix is a single bug resolution included in a service patch.
// Maps to: patch_fix table.
type Fix struct {
	// Group ID associating the fix with a fix group (0 = ungrouped)
	GroupID int `db:"group_id" json:"group_id,omitempty"`

	// Bug tracker identifier, unique within a patch
	BugID int `db:"bug_id" json:"bug_id"`

	// Display name when different from the bug ID
	BugName string `db:"bug_name" json:"bug_name,omitempty"`

	// Date the fix was added to the containing patch request
	RequestDate time.Time `db:"request_date" json:"request_date,omitempty"`

	// Free-text classifiers from the bug tracker
	Status      string `db:"status" json:"status,omitempty"`
	FixType     string `db:"fix_type" json:"fix_type,omitempty"`
	SubType     string `db:"sub_type" json:"sub_type,omitempty"`
	ProductArea string `db:"product_area" json:"product_area,omitempty"`

	// Release where the fix was applied
	Release string `db:"release" json:"release,omitempty"`

	// Resolution date reported by the bug tracker
	ResolveDate *time.Time `db:"resolve_date" json:"resolve_date,omitempty"`

	// Explicit branch override supplied during bulk entry
	VersionControlRoot string `db:"vcs_root" json:"vcs_root,omitempty"`

	Description string `db:"description" json:"description,omitempty"`
	Notes       string `db:"notes" json:"notes,omitempty"`

	// Ordered check-ins implementing the fix
	Changelists []CheckIn `json:"changelists,omitempty"`

	// Check-ins excluded from the patch
	exclusions []CheckIn

	// Other bugs this fix depends on, at most one entry per bug ID
	dependencies []FixDependency

	// Patch where the fix was first introduced; nil when unknown or
	// when the fix was merely inherited
	Origin *Patch `json:"origin,omitempty"`
}

// AddChangelist appends a check-in to the fix.
func (f *Fix) AddChangelist(ci CheckIn) {
	f.Changelists = append(f.Changelists, ci)
}

// AddDependency records a dependency on another bug. Idempotent per
// dependent bug ID: adding a second dependency on the same bug is a no-op.
func (f *Fix) AddDependency(dep FixDependency) {
	if f.Dependency(dep.BugID) != nil {
		return
	}
	f.dependencies = append(f.dependencies, dep)
}

// Dependency returns the dependency on the given bug ID, or nil.
func (f *Fix) Dependency(bugID int) *FixDependency {
	for i := range f.dependencies {
		if f.dependencies[i].BugID == bugID {
			return &f.dependencies[i]
		}
	}
	return nil
}

// Dependencies returns a snapshot of the dependency list.
func (f *Fix) Dependencies() []FixDependency {
	out := make([]FixDependency, len(f.dependencies))
	copy(out, f.dependencies)
	return out
}

// SetDependencies replaces the dependency list, deduplicating by bug ID.
func (f *Fix) SetDependencies(deps []FixDependency) {
	f.dependencies = nil
	for _, dep := range deps {
		f.AddDependency(dep)
	}
}

// AddExclusion marks a check-in as excluded from the patch.
func (f *Fix) AddExclusion(ci CheckIn) {
	f.exclusions = append(f.exclusions, ci)
}

// SetExclusions replaces the exclusion list from a comma-delimited string
// of check-in identifiers. Blank tokens are dropped silently.
func (f *Fix) SetExclusions(csv string) {
	f.exclusions = nil
	for _, token := range strings.Split(csv, ",") {
		id := strings.TrimSpace(token)
		if id == "" {
			continue
		}
		f.exclusions = append(f.exclusions, CheckIn{ID: id})
	}
}

// Exclusions returns a snapshot of the excluded check-ins.
func (f *Fix) Exclusions() []CheckIn {
	out := make([]CheckIn, len(f.exclusions))
	copy(out, f.exclusions)
	return out
}

// ExclusionCount returns the number of excluded check-ins.
func (f *Fix) ExclusionCount() int {
	return len(f.exclusions)
}

// ExclusionsString renders the exclusion list as a comma-delimited string.
// Round-trips with SetExclusions for non-blank tokens.
func (f *Fix) ExclusionsString() string {
	ids := make([]string, 0, len(f.exclusions))
	for _, ci := range f.exclusions {
		if ci.ID != "" {
			ids = append(ids, ci.ID)
		}
	}
	return strings.Join(ids, ",")
}
