package models

import (
	"fmt"
	"time"
)

// User is a directory entry referenced by patches, approvals, and owners
type User struct {
	ID     int      `db:"user_id" json:"id"`
	Login  string   `db:"login" json:"login"`
	Name   string   `db:"name" json:"name,omitempty"`
	Email  string   `db:"email" json:"email,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// IsMemberOf reports whether the user belongs to the named group.
func (u *User) IsMemberOf(group string) bool {
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Customer is the account a service patch is produced for
type Customer struct {
	ID        int    `db:"customer_id" json:"id"`
	Name      string `db:"name" json:"name"`
	ShortName string `db:"short_name" json:"short_name,omitempty"`
}

// Environment is the customer deployment the patch targets
type Environment struct {
	ID        int    `db:"env_id" json:"id"`
	Name      string `db:"name" json:"name"`
	ShortName string `db:"short_name" json:"short_name,omitempty"`
}

// Build identifies a product build by version string and source-control origin
type Build struct {
	ID          int    `db:"build_id" json:"id"`
	Version     string `db:"version" json:"version"`
	ReleaseID   string `db:"release_id" json:"release_id,omitempty"`
	DownloadURI string `db:"download_uri" json:"download_uri,omitempty"`

	// Time the build started; fixes resolved before this are already in
	// the product
	StartTime *time.Time `db:"start_time" json:"start_time,omitempty"`

	VersionControlType string `db:"vcs_type" json:"vcs_type,omitempty"`
	VersionControlRoot string `db:"vcs_root" json:"vcs_root,omitempty"`
	VersionControlID   string `db:"vcs_id" json:"vcs_id,omitempty"`
}

// Approval is one approver's verdict on a patch request. Append-only.
type Approval struct {
	ID     int            `db:"approval_id" json:"id"`
	User   User           `json:"user"`
	Status ApprovalStatus `db:"status" json:"status"`

	// Request status at the time the approval was recorded
	PatchStatus RequestStatus `db:"patch_status" json:"patch_status"`

	Comment string `db:"comment" json:"comment,omitempty"`
}

// IsApproved reports whether the verdict is APPROVED.
func (a *Approval) IsApproved() bool {
	return a.Status == ApprovalApproved
}

// ApproverGroup authorizes a user group to approve requests matching a
// build version pattern at a given request status.
// Maps to: patch_approver_group table.
type ApproverGroup struct {
	ID                  int           `db:"group_id" json:"id"`
	Group               string        `db:"group_name" json:"group"`
	Status              RequestStatus `db:"status" json:"status"`
	BuildVersionPattern string        `db:"build_version" json:"build_version_pattern"`
}

// Comment is a free-text remark on a patch request
type Comment struct {
	ID         int               `db:"comment_id" json:"id"`
	User       User              `json:"user"`
	Date       time.Time         `db:"comment_date" json:"date"`
	Visibility CommentVisibility `db:"visibility" json:"visibility"`
	Text       string            `db:"comment_text" json:"text"`
}

// Notification subscribes an email address to patch status updates
type Notification struct {
	ID    int    `db:"notification_id" json:"id"`
	Email string `db:"email" json:"email"`

	// Statuses the recipient wants to hear about; empty means all
	Statuses []RequestStatus `json:"statuses,omitempty"`
}

// WantsStatus reports whether the subscription covers the given status.
func (n *Notification) WantsStatus(status RequestStatus) bool {
	if len(n.Statuses) == 0 {
		return true
	}
	for _, s := range n.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// PatchOwner records who is currently responsible for a patch.
// One active record per patch, updated in place.
type PatchOwner struct {
	PatchID   int           `db:"patch_id" json:"patch_id"`
	User      User          `json:"user"`
	StartDate time.Time     `db:"start_date" json:"start_date"`
	EndDate   *time.Time    `db:"end_date" json:"end_date,omitempty"`
	Deadline  *time.Time    `db:"deadline" json:"deadline,omitempty"`
	Priority  PatchPriority `db:"priority" json:"priority"`
	Comment   string        `db:"comment" json:"comment,omitempty"`
}

// Patch is a service patch request: the aggregate of customer, build,
// fixes, approvals, comments, and workflow status.
// Maps to: patch_request table.
type Patch struct {
	ID   int    `db:"patch_id" json:"id"`
	Name string `db:"name" json:"name"`

	// Whether the patch may be distributed to the customer
	ExternalUse bool `db:"external_use" json:"external_use"`

	Customer    *Customer    `json:"customer,omitempty"`
	Environment *Environment `json:"environment,omitempty"`

	RequestDate time.Time `db:"request_date" json:"request_date"`
	Requestor   *User     `json:"requestor,omitempty"`
	Owner       *User     `json:"owner,omitempty"`

	// Build being patched and the resulting patch build
	SourceBuild *Build `json:"source_build,omitempty"`
	PatchBuild  *Build `json:"patch_build,omitempty"`

	Justification string `db:"justification" json:"justification,omitempty"`

	Status RequestStatus `db:"status" json:"status"`

	// Prior patch this request extends
	PreviousPatch *Patch `json:"previous_patch,omitempty"`

	CCList        []string       `json:"cc_list,omitempty"`
	Approvals     []Approval     `json:"approvals,omitempty"`
	Comments      []Comment      `json:"comments,omitempty"`
	Notifications []Notification `json:"notifications,omitempty"`

	fixes []Fix
}

// AddFix appends a fix to the patch. Exactly one fix per bug ID is
// allowed; duplicates are rejected rather than merged.
func (p *Patch) AddFix(fix Fix) error {
	if p.HasFix(fix.BugID) {
		return fmt.Errorf("patch %d already contains a fix for bug %d", p.ID, fix.BugID)
	}
	p.fixes = append(p.fixes, fix)
	return nil
}

// Fix returns the fix for the given bug ID, or nil.
func (p *Patch) Fix(bugID int) *Fix {
	for i := range p.fixes {
		if p.fixes[i].BugID == bugID {
			return &p.fixes[i]
		}
	}
	return nil
}

// HasFix reports whether the patch contains a fix for the bug ID.
func (p *Patch) HasFix(bugID int) bool {
	return p.Fix(bugID) != nil
}

// Fixes returns a snapshot of the fix list. Callers cannot mutate the
// aggregate through the returned slice.
func (p *Patch) Fixes() []Fix {
	out := make([]Fix, len(p.fixes))
	copy(out, p.fixes)
	return out
}

// FixCount returns the number of fixes in the patch.
func (p *Patch) FixCount() int {
	return len(p.fixes)
}

// SetFixes replaces the fix list. Later entries with duplicate bug IDs
// are dropped.
func (p *Patch) SetFixes(fixes []Fix) {
	p.fixes = nil
	for _, fix := range fixes {
		_ = p.AddFix(fix)
	}
}

// AddApproval appends an approval to the in-memory log.
func (p *Patch) AddApproval(a Approval) {
	p.Approvals = append(p.Approvals, a)
}
