package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/buildtrack/patchhub/common/logger"
	"github.com/buildtrack/patchhub/common/models"
	"github.com/buildtrack/patchhub/common/repository"
)

func testLogger() *logger.Logger {
	return logger.New("error", "text")
}

type fakePatchStore struct {
	mu      sync.Mutex
	nextID  int
	patches map[int]*models.Patch
	related []*models.Patch

	statusWrites []models.RequestStatus
	updateErr    error
}

func newFakePatchStore(patches ...*models.Patch) *fakePatchStore {
	s := &fakePatchStore{patches: make(map[int]*models.Patch), nextID: 1000}
	for _, p := range patches {
		s.patches[p.ID] = p
	}
	return s
}

func (s *fakePatchStore) Create(ctx context.Context, patch *models.Patch) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	clone := *patch
	clone.ID = s.nextID
	s.patches[clone.ID] = &clone
	return clone.ID, nil
}

func (s *fakePatchStore) Get(ctx context.Context, patchID int) (*models.Patch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	patch, ok := s.patches[patchID]
	if !ok {
		return nil, fmt.Errorf("patch %d: %w", patchID, repository.ErrNotFound)
	}
	clone := *patch
	return &clone, nil
}

func (s *fakePatchStore) UpdateStatus(ctx context.Context, patchID int, status models.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	patch, ok := s.patches[patchID]
	if !ok {
		return fmt.Errorf("patch %d: %w", patchID, repository.ErrNotFound)
	}
	patch.Status = status
	s.statusWrites = append(s.statusWrites, status)
	return nil
}

func (s *fakePatchStore) UpdateMeta(ctx context.Context, patch *models.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.patches[patch.ID]
	if !ok {
		return fmt.Errorf("patch %d: %w", patch.ID, repository.ErrNotFound)
	}
	stored.ExternalUse = patch.ExternalUse
	stored.Justification = patch.Justification
	stored.CCList = patch.CCList
	return nil
}

func (s *fakePatchStore) List(ctx context.Context, customerID int, status models.RequestStatus, limit int) ([]*models.Patch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Patch
	for _, patch := range s.patches {
		if customerID != 0 && (patch.Customer == nil || patch.Customer.ID != customerID) {
			continue
		}
		if status != "" && patch.Status != status {
			continue
		}
		clone := *patch
		out = append(out, &clone)
	}
	return out, nil
}

func (s *fakePatchStore) Related(ctx context.Context, buildVersion string, customerID int) ([]*models.Patch, error) {
	return s.related, nil
}

func (s *fakePatchStore) status(patchID int) models.RequestStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.patches[patchID].Status
}

type fakeFixStore struct {
	mu    sync.Mutex
	fixes map[int][]models.Fix

	originWrites map[int]int // bugID -> origin patch ID
}

func newFakeFixStore() *fakeFixStore {
	return &fakeFixStore{fixes: make(map[int][]models.Fix), originWrites: make(map[int]int)}
}

func (s *fakeFixStore) ListByPatch(ctx context.Context, patchID int) ([]models.Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Fix(nil), s.fixes[patchID]...), nil
}

func (s *fakeFixStore) Add(ctx context.Context, patchID int, fix models.Fix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes[patchID] = append(s.fixes[patchID], fix)
	return nil
}

func (s *fakeFixStore) DeleteByPatch(ctx context.Context, patchID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.fixes[patchID])
	delete(s.fixes, patchID)
	return n, nil
}

func (s *fakeFixStore) UpdateOrigin(ctx context.Context, patchID, bugID, originPatchID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originWrites[bugID] = originPatchID
	for i := range s.fixes[patchID] {
		if s.fixes[patchID][i].BugID == bugID {
			s.fixes[patchID][i].Origin = &models.Patch{ID: originPatchID}
			return nil
		}
	}
	return fmt.Errorf("fix %d on patch %d: %w", bugID, patchID, repository.ErrNotFound)
}

type fakeApprovalStore struct {
	mu        sync.Mutex
	approvals map[int][]models.Approval
	groups    []models.ApproverGroup

	deleted int
}

func newFakeApprovalStore(groups ...models.ApproverGroup) *fakeApprovalStore {
	return &fakeApprovalStore{approvals: make(map[int][]models.Approval), groups: groups}
}

func (s *fakeApprovalStore) ListByPatch(ctx context.Context, patchID int, status models.RequestStatus) ([]models.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Approval
	for _, a := range s.approvals[patchID] {
		if a.PatchStatus == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeApprovalStore) Add(ctx context.Context, patchID int, approval models.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals[patchID] = append(s.approvals[patchID], approval)
	return nil
}

func (s *fakeApprovalStore) DeleteByPatch(ctx context.Context, patchID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.approvals[patchID])
	delete(s.approvals, patchID)
	s.deleted += n
	return n, nil
}

func (s *fakeApprovalStore) GroupsForStatus(ctx context.Context, status models.RequestStatus) ([]models.ApproverGroup, error) {
	var out []models.ApproverGroup
	for _, g := range s.groups {
		if g.Status == status {
			out = append(out, g)
		}
	}
	return out, nil
}

type fakeOwnerStore struct {
	mu     sync.Mutex
	owners map[int]*models.PatchOwner
}

func newFakeOwnerStore() *fakeOwnerStore {
	return &fakeOwnerStore{owners: make(map[int]*models.PatchOwner)}
}

func (s *fakeOwnerStore) Get(ctx context.Context, patchID int) (*models.PatchOwner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[patchID]
	if !ok {
		return nil, fmt.Errorf("owner for patch %d: %w", patchID, repository.ErrNotFound)
	}
	return owner, nil
}

func (s *fakeOwnerStore) Upsert(ctx context.Context, owner *models.PatchOwner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[owner.PatchID] = owner
	return nil
}

type fakeCommentStore struct {
	mu            sync.Mutex
	comments      map[int][]models.Comment
	notifications map[int][]models.Notification
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{
		comments:      make(map[int][]models.Comment),
		notifications: make(map[int][]models.Notification),
	}
}

func (s *fakeCommentStore) ListByPatch(ctx context.Context, patchID int) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.comments[patchID], nil
}

func (s *fakeCommentStore) Add(ctx context.Context, patchID int, comment models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[patchID] = append(s.comments[patchID], comment)
	return nil
}

func (s *fakeCommentStore) Notifications(ctx context.Context, patchID int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifications[patchID], nil
}

type fakeDirectory struct {
	users   map[string]*models.User
	members map[string][]models.User
}

func newFakeDirectory(users ...*models.User) *fakeDirectory {
	d := &fakeDirectory{users: make(map[string]*models.User), members: make(map[string][]models.User)}
	for _, u := range users {
		d.users[u.Login] = u
		for _, g := range u.Groups {
			d.members[g] = append(d.members[g], *u)
		}
	}
	return d
}

func (d *fakeDirectory) User(ctx context.Context, login string) (*models.User, error) {
	user, ok := d.users[login]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", login, repository.ErrNotFound)
	}
	return user, nil
}

func (d *fakeDirectory) GroupMembers(ctx context.Context, group string) ([]models.User, error) {
	return d.members[group], nil
}

type fakeTracker struct {
	bugs   map[int]*models.Bug
	family map[string][]models.Fix

	familyCalls int
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{bugs: make(map[int]*models.Bug), family: make(map[string][]models.Fix)}
}

func (t *fakeTracker) Bug(ctx context.Context, bugID int) (*models.Bug, error) {
	return t.bugs[bugID], nil
}

func (t *fakeTracker) FixesForFamily(ctx context.Context, family string) ([]models.Fix, error) {
	t.familyCalls++
	return t.family[family], nil
}

type notifierEvent struct {
	kind   string
	status models.RequestStatus
	groups []models.ApproverGroup
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifierEvent
}

func (n *fakeNotifier) record(kind string, patch *models.Patch, groups []models.ApproverGroup) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifierEvent{kind: kind, status: patch.Status, groups: groups})
}

func (n *fakeNotifier) StatusChanged(ctx context.Context, patch *models.Patch, groups []models.ApproverGroup) {
	n.record("status", patch, groups)
}

func (n *fakeNotifier) OwnerAssigned(ctx context.Context, patch *models.Patch, owner *models.PatchOwner) {
	n.record("owner", patch, nil)
}

func (n *fakeNotifier) ReviewRequested(ctx context.Context, patch *models.Patch) {
	n.record("review", patch, nil)
}

func (n *fakeNotifier) Released(ctx context.Context, patch *models.Patch) {
	n.record("release", patch, nil)
}

func (n *fakeNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.kind
	}
	return out
}

type fakeJobs struct {
	mu        sync.Mutex
	launched  []int
	discarded []int
	launchErr error
}

func (j *fakeJobs) Launch(ctx context.Context, patch *models.Patch) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.launchErr != nil {
		return j.launchErr
	}
	j.launched = append(j.launched, patch.ID)
	return nil
}

func (j *fakeJobs) Discard(ctx context.Context, patch *models.Patch) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.discarded = append(j.discarded, patch.ID)
	return nil
}
