package models

import "sort"

// PatchGroup bundles related fixes that should be taken together,
// classified by how strongly they are recommended.
// Maps to: patch_group table.
type PatchGroup struct {
	ID          int    `db:"group_id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`

	// Build versions the group applies to
	BuildVersionPattern string `db:"build_version" json:"build_version_pattern,omitempty"`

	Requirement FixRequirement `db:"requirement" json:"requirement"`

	fixes map[int]Fix
}

// AddFix adds a fix to the group, keyed by bug ID. Re-adding a bug
// replaces the earlier entry.
func (g *PatchGroup) AddFix(fix Fix) {
	if g.fixes == nil {
		g.fixes = make(map[int]Fix)
	}
	g.fixes[fix.BugID] = fix
}

// HasFix reports whether the group contains the bug ID.
func (g *PatchGroup) HasFix(bugID int) bool {
	_, ok := g.fixes[bugID]
	return ok
}

// Fixes returns the group's fixes ordered by bug ID.
func (g *PatchGroup) Fixes() []Fix {
	out := make([]Fix, 0, len(g.fixes))
	for _, fix := range g.fixes {
		out = append(out, fix)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BugID < out[j].BugID })
	return out
}

// SortGroupsByUrgency orders groups REQUIRED first, then RECOMMENDED,
// then OPTIONAL. Groups of equal requirement keep their relative order.
func SortGroupsByUrgency(groups []PatchGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Requirement.Urgency() > groups[j].Requirement.Urgency()
	})
}
