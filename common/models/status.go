package models

import (
	"fmt"
	"strings"
)

// RequestStatus represents the lifecycle state of a patch request
type RequestStatus string

const (
	StatusSaved     RequestStatus = "SAVED"
	StatusApproval  RequestStatus = "APPROVAL"
	StatusRejected  RequestStatus = "REJECTED"
	StatusPending   RequestStatus = "PENDING"
	StatusCanceled  RequestStatus = "CANCELED"
	StatusRunning   RequestStatus = "RUNNING"
	StatusBranching RequestStatus = "BRANCHING"
	StatusBranched  RequestStatus = "BRANCHED"
	StatusBuilding  RequestStatus = "BUILDING"
	StatusBuilt     RequestStatus = "BUILT"
	StatusFailed    RequestStatus = "FAILED"
	StatusComplete  RequestStatus = "COMPLETE"
	StatusRelease   RequestStatus = "RELEASE"
)

// StatusParseError reports a status string that does not name a known
// RequestStatus. Distinct from ErrInvalidTransition: a parse failure is a
// boundary problem, not a workflow-rule violation.
type StatusParseError struct {
	Value string
}

func (e *StatusParseError) Error() string {
	return fmt.Sprintf("unknown request status %q", e.Value)
}

// ErrInvalidTransition reports a status change that the workflow does not allow.
type ErrInvalidTransition struct {
	From RequestStatus
	To   RequestStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

var requestStatuses = map[RequestStatus]struct{}{
	StatusSaved: {}, StatusApproval: {}, StatusRejected: {}, StatusPending: {},
	StatusCanceled: {}, StatusRunning: {}, StatusBranching: {}, StatusBranched: {},
	StatusBuilding: {}, StatusBuilt: {}, StatusFailed: {}, StatusComplete: {},
	StatusRelease: {},
}

// ParseRequestStatus parses a status string case-insensitively.
// Parsing happens once at the boundary (HTTP or DB deserialization);
// everything past the boundary works with the typed value.
func ParseRequestStatus(s string) (RequestStatus, error) {
	status := RequestStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := requestStatuses[status]; !ok {
		return "", &StatusParseError{Value: s}
	}
	return status, nil
}

// transitions is the workflow graph for patch requests. The main line is
// SAVED -> APPROVAL -> PENDING -> BUILT -> COMPLETE -> RELEASE, with
// REJECTED reachable from APPROVAL and retryable back to SAVED.
// SAVED -> PENDING covers the zero-approver short circuit,
// APPROVAL -> SAVED covers fix-list edits that withdraw the request, and
// the build-side states (BRANCHING through FAILED) track the CI job.
var transitions = map[RequestStatus][]RequestStatus{
	StatusSaved:     {StatusApproval, StatusPending, StatusCanceled},
	StatusApproval:  {StatusPending, StatusRejected, StatusSaved, StatusCanceled},
	StatusRejected:  {StatusSaved, StatusCanceled},
	StatusPending:   {StatusRunning, StatusBranching, StatusBuilding, StatusBuilt, StatusFailed, StatusCanceled},
	StatusRunning:   {StatusBuilt, StatusFailed, StatusCanceled},
	StatusBranching: {StatusBranched, StatusFailed, StatusCanceled},
	StatusBranched:  {StatusBuilding, StatusFailed, StatusCanceled},
	StatusBuilding:  {StatusBuilt, StatusFailed, StatusCanceled},
	StatusBuilt:     {StatusComplete, StatusFailed, StatusCanceled},
	StatusFailed:    {StatusPending, StatusCanceled},
	StatusComplete:  {StatusRelease, StatusCanceled},
	StatusRelease:   {},
	StatusCanceled:  {},
}

// CanTransition reports whether the workflow allows moving from one
// status to another.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApprovalStatus represents the verdict recorded by an approver
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// ParseApprovalStatus parses an approval verdict case-insensitively.
func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	status := ApprovalStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case ApprovalApproved, ApprovalRejected:
		return status, nil
	}
	return "", fmt.Errorf("unknown approval status %q", s)
}

// FixRequirement classifies how strongly a fix group is recommended
type FixRequirement string

const (
	RequirementOptional    FixRequirement = "OPTIONAL"
	RequirementRecommended FixRequirement = "RECOMMENDED"
	RequirementRequired    FixRequirement = "REQUIRED"
)

// Urgency returns the sort weight of the requirement.
// REQUIRED > RECOMMENDED > OPTIONAL.
func (r FixRequirement) Urgency() int {
	switch r {
	case RequirementRequired:
		return 3
	case RequirementRecommended:
		return 2
	case RequirementOptional:
		return 1
	}
	return 0
}

// ParseFixRequirement parses a requirement string case-insensitively.
func ParseFixRequirement(s string) (FixRequirement, error) {
	req := FixRequirement(strings.ToUpper(strings.TrimSpace(s)))
	switch req {
	case RequirementOptional, RequirementRecommended, RequirementRequired:
		return req, nil
	}
	return "", fmt.Errorf("unknown fix requirement %q", s)
}

// CommentVisibility controls who can see a patch comment
type CommentVisibility string

const (
	CommentShow  CommentVisibility = "SHOW"
	CommentHide  CommentVisibility = "HIDE"
	CommentAdmin CommentVisibility = "ADMIN"
)

// PatchPriority ranks the urgency of an owner assignment
type PatchPriority string

const (
	PriorityLow    PatchPriority = "LOW"
	PriorityMedium PatchPriority = "MEDIUM"
	PriorityHigh   PatchPriority = "HIGH"
)

// ParsePatchPriority parses a priority string case-insensitively,
// defaulting to LOW for empty input.
func ParsePatchPriority(s string) (PatchPriority, error) {
	if strings.TrimSpace(s) == "" {
		return PriorityLow, nil
	}
	p := PatchPriority(strings.ToUpper(strings.TrimSpace(s)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("unknown patch priority %q", s)
}
