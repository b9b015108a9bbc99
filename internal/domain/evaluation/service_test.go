package evaluation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"evalhub/internal/domain/auth"
)

// memStore is an in-memory StoreAPI for exercising the service without a
// database. It enforces the same uniqueness the schema does.
type memStore struct {
	seq         int
	instances   map[string]Instance
	ratings     map[string]RatingEntry
	responses   map[string]QuestionResponse
	assignments map[string]Assignment
	ratingRows  []RatingRow
}

func newMemStore() *memStore {
	return &memStore{
		instances:   map[string]Instance{},
		ratings:     map[string]RatingEntry{},
		responses:   map[string]QuestionResponse{},
		assignments: map[string]Assignment{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) Transact(ctx context.Context, fn func(StoreAPI) error) error {
	return fn(m)
}

func (m *memStore) CreateInstance(ctx context.Context, inst Instance) (Instance, error) {
	if inst.Type == TypeSelf {
		for _, other := range m.instances {
			if other.Type == TypeSelf && other.OrgID == inst.OrgID && other.CycleID == inst.CycleID &&
				other.Kind == inst.Kind && other.EmployeeID == inst.EmployeeID {
				return Instance{}, fmt.Errorf("%w: evaluation already exists for this cycle", ErrValidation)
			}
		}
	}
	inst.ID = m.nextID("inst")
	inst.CreatedAt = time.Now()
	m.instances[inst.ID] = inst
	return inst, nil
}

func (m *memStore) CreateAssessorInstanceIfAbsent(ctx context.Context, inst Instance) (Instance, bool, error) {
	for _, other := range m.instances {
		if other.Type == TypeAssessor && other.OrgID == inst.OrgID && other.CycleID == inst.CycleID &&
			other.Kind == inst.Kind && other.EmployeeID == inst.EmployeeID && other.AssessorID == inst.AssessorID {
			return other, false, nil
		}
	}
	inst.ID = m.nextID("inst")
	inst.CreatedAt = time.Now()
	m.instances[inst.ID] = inst
	return inst, true, nil
}

func (m *memStore) GetInstance(ctx context.Context, orgID, id string) (Instance, error) {
	inst, ok := m.instances[id]
	if !ok || inst.OrgID != orgID {
		return Instance{}, ErrNotFound
	}
	return inst, nil
}

func (m *memStore) GetInstanceForUpdate(ctx context.Context, orgID, id string) (Instance, error) {
	return m.GetInstance(ctx, orgID, id)
}

func (m *memStore) UpdateInstanceStatus(ctx context.Context, inst Instance) error {
	stored, ok := m.instances[inst.ID]
	if !ok || stored.OrgID != inst.OrgID {
		return ErrNotFound
	}
	m.instances[inst.ID] = inst
	return nil
}

func (m *memStore) ListInstances(ctx context.Context, orgID string, f InstanceFilter) ([]Instance, error) {
	var out []Instance
	for _, inst := range m.instances {
		if inst.OrgID != orgID {
			continue
		}
		if f.EmployeeID != "" && inst.EmployeeID != f.EmployeeID {
			continue
		}
		if f.AssessorID != "" && inst.AssessorID != f.AssessorID {
			continue
		}
		if f.Kind != "" && inst.Kind != f.Kind {
			continue
		}
		if f.Status != "" && inst.Status != f.Status {
			continue
		}
		if f.CycleID != "" && inst.CycleID != f.CycleID {
			continue
		}
		out = append(out, inst)
	}
	return out, nil
}

func (m *memStore) ListAssessorVisible(ctx context.Context, orgID, assessorID string, f InstanceFilter) ([]Instance, error) {
	all, err := m.ListInstances(ctx, orgID, f)
	if err != nil {
		return nil, err
	}
	var out []Instance
	for _, inst := range all {
		switch {
		case inst.Type == TypeAssessor && inst.AssessorID == assessorID:
			out = append(out, inst)
		case inst.EmployeeID == assessorID:
			out = append(out, inst)
		case inst.Type == TypeSelf && (inst.Status == StatusCompleted || inst.Status == StatusReviewed):
			assigned, _ := m.IsAssigned(ctx, orgID, assessorID, inst.EmployeeID)
			if assigned {
				out = append(out, inst)
			}
		}
	}
	return out, nil
}

func (m *memStore) RecordRating(ctx context.Context, orgID, instanceID, competencyID string, rating int, comment string) (RatingEntry, error) {
	inst, ok := m.instances[instanceID]
	if !ok || inst.OrgID != orgID {
		return RatingEntry{}, ErrNotFound
	}
	key := instanceID + "|" + competencyID
	entry, ok := m.ratings[key]
	if !ok {
		entry = RatingEntry{ID: m.nextID("rating"), InstanceID: instanceID, CompetencyID: competencyID, CreatedAt: time.Now()}
	}
	entry.Rating = rating
	entry.Comment = comment
	m.ratings[key] = entry
	return entry, nil
}

func (m *memStore) ListRatings(ctx context.Context, orgID, instanceID string) ([]RatingEntry, error) {
	var out []RatingEntry
	for _, entry := range m.ratings {
		if entry.InstanceID == instanceID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *memStore) UpsertQuestionResponse(ctx context.Context, orgID, cycleID, employeeID, questionID, side string, rating int, comment string) (QuestionResponse, error) {
	key := orgID + "|" + cycleID + "|" + employeeID + "|" + questionID
	resp, ok := m.responses[key]
	if !ok {
		resp = QuestionResponse{
			ID: m.nextID("resp"), OrgID: orgID, CycleID: cycleID,
			EmployeeID: employeeID, QuestionID: questionID,
		}
	}
	r := rating
	if side == SideAssessor {
		resp.AssessorRating = &r
		resp.AssessorComment = comment
	} else {
		resp.EmployeeRating = &r
		resp.EmployeeComment = comment
	}
	resp.UpdatedAt = time.Now()
	m.responses[key] = resp
	return resp, nil
}

func (m *memStore) ListResponses(ctx context.Context, orgID, cycleID, employeeID string) ([]QuestionResponse, error) {
	var out []QuestionResponse
	for _, resp := range m.responses {
		if resp.OrgID == orgID && resp.CycleID == cycleID && resp.EmployeeID == employeeID {
			out = append(out, resp)
		}
	}
	return out, nil
}

func (m *memStore) CreateAssignment(ctx context.Context, orgID, assessorID, employeeID string) (Assignment, error) {
	a := Assignment{ID: m.nextID("asg"), OrgID: orgID, AssessorID: assessorID, EmployeeID: employeeID, CreatedAt: time.Now()}
	m.assignments[a.ID] = a
	return a, nil
}

func (m *memStore) DeleteAssignment(ctx context.Context, orgID, id string) error {
	a, ok := m.assignments[id]
	if !ok || a.OrgID != orgID {
		return ErrNotFound
	}
	delete(m.assignments, id)
	return nil
}

func (m *memStore) ListAssignments(ctx context.Context, orgID, assessorID, employeeID string) ([]Assignment, error) {
	var out []Assignment
	for _, a := range m.assignments {
		if a.OrgID != orgID {
			continue
		}
		if assessorID != "" && a.AssessorID != assessorID {
			continue
		}
		if employeeID != "" && a.EmployeeID != employeeID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) IsAssigned(ctx context.Context, orgID, assessorID, employeeID string) (bool, error) {
	for _, a := range m.assignments {
		if a.OrgID == orgID && a.AssessorID == assessorID && a.EmployeeID == employeeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) AssignedAssessorIDs(ctx context.Context, orgID, employeeID string) ([]string, error) {
	var out []string
	for _, a := range m.assignments {
		if a.OrgID == orgID && a.EmployeeID == employeeID {
			out = append(out, a.AssessorID)
		}
	}
	return out, nil
}

func (m *memStore) RatingRows(ctx context.Context, orgID string, f PopulationFilter) ([]RatingRow, error) {
	return m.ratingRows, nil
}

type fakeDirectory struct {
	assessors    []string
	competencies []Dimension
	questions    []Dimension
}

func (d *fakeDirectory) OrgAssessors(ctx context.Context, orgID string) ([]string, error) {
	return d.assessors, nil
}

func (d *fakeDirectory) CompetencyCatalogue(ctx context.Context, orgID string) ([]Dimension, error) {
	return d.competencies, nil
}

func (d *fakeDirectory) QuestionCatalogue(ctx context.Context, orgID string) ([]Dimension, error) {
	return d.questions, nil
}

type fakeCycles struct {
	id  string
	err error
}

func (c *fakeCycles) ActiveCycleID(ctx context.Context, orgID string) (string, error) {
	return c.id, c.err
}

func newTestService(store *memStore, dir *fakeDirectory) *Service {
	svc := NewService(store, dir, &fakeCycles{id: "cycle-1"})
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

var (
	hrCaller       = Caller{UserID: "u-hr", EmployeeID: "hr-1", OrgID: "org-1", Role: auth.RoleHR}
	empCaller      = Caller{UserID: "u-emp", EmployeeID: "emp-1", OrgID: "org-1", Role: auth.RoleEmployee}
	assessorCaller = Caller{UserID: "u-ass", EmployeeID: "ass-1", OrgID: "org-1", Role: auth.RoleAssessor}
)

func TestCompleteCompetencySelfFansOutToAllAssessors(t *testing.T) {
	store := newMemStore()
	dir := &fakeDirectory{assessors: []string{"ass-1", "ass-2"}}
	svc := newTestService(store, dir)
	ctx := context.Background()

	inst, err := svc.CreateSelf(ctx, empCaller, "", KindCompetency)
	if err != nil {
		t.Fatalf("create self: %v", err)
	}
	if inst.Status != StatusPending || inst.CycleID != "cycle-1" {
		t.Fatalf("unexpected instance: %+v", inst)
	}

	if _, err := svc.Start(ctx, empCaller, inst.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	completed, created, err := svc.Complete(ctx, empCaller, inst.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", completed.Status)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 assessor instances, got %d", len(created))
	}
	for _, c := range created {
		if c.Type != TypeAssessor || c.Kind != KindCompetency || c.Status != StatusPending {
			t.Fatalf("unexpected fan-out instance: %+v", c)
		}
		if c.EmployeeID != "emp-1" || c.CycleID != "cycle-1" {
			t.Fatalf("fan-out instance has wrong scope: %+v", c)
		}
	}

	// Completing again is a no-op for fan-out.
	_, created, err = svc.Complete(ctx, empCaller, inst.ID)
	if err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("re-complete must not fan out, got %d new instances", len(created))
	}
	if len(store.instances) != 3 {
		t.Fatalf("expected 3 instances total, got %d", len(store.instances))
	}
}

func TestCompleteAppraisalSelfFansOutToAssignedOnly(t *testing.T) {
	store := newMemStore()
	dir := &fakeDirectory{assessors: []string{"ass-1", "ass-2"}}
	svc := newTestService(store, dir)
	ctx := context.Background()

	if _, err := svc.CreateAssignment(ctx, hrCaller, "ass-2", "emp-1"); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	inst, err := svc.CreateSelf(ctx, empCaller, "", KindAppraisal)
	if err != nil {
		t.Fatalf("create self: %v", err)
	}
	_, created, err := svc.Complete(ctx, empCaller, inst.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 assessor instance, got %d", len(created))
	}
	if created[0].AssessorID != "ass-2" {
		t.Fatalf("expected fan-out to assigned assessor, got %s", created[0].AssessorID)
	}
}

func TestCompleteAssessorInstanceDoesNotFanOut(t *testing.T) {
	store := newMemStore()
	dir := &fakeDirectory{assessors: []string{"ass-1"}}
	svc := newTestService(store, dir)
	ctx := context.Background()

	inst, err := svc.CreateAssessor(ctx, hrCaller, "emp-1", "ass-1", KindCompetency)
	if err != nil {
		t.Fatalf("create assessor: %v", err)
	}
	caller := assessorCaller
	_, created, err := svc.Complete(ctx, caller, inst.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("assessor completion must not fan out, got %d", len(created))
	}
}

func TestCreateSelfDuplicateRejected(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDirectory{})
	ctx := context.Background()

	if _, err := svc.CreateSelf(ctx, empCaller, "", KindCompetency); err != nil {
		t.Fatalf("create self: %v", err)
	}
	_, err := svc.CreateSelf(ctx, empCaller, "", KindCompetency)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreateSelfForbiddenForOthers(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDirectory{})
	ctx := context.Background()

	_, err := svc.CreateSelf(ctx, empCaller, "emp-2", KindCompetency)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// HR may open one on behalf of any employee.
	if _, err := svc.CreateSelf(ctx, hrCaller, "emp-2", KindCompetency); err != nil {
		t.Fatalf("hr create self: %v", err)
	}
}

func TestCreateSelfWithoutActiveCycle(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, &fakeDirectory{}, &fakeCycles{err: errors.New("no active cycle")})

	_, err := svc.CreateSelf(context.Background(), empCaller, "", KindCompetency)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCreateAssessorAppraisalRequiresAssignment(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDirectory{})
	ctx := context.Background()

	_, err := svc.CreateAssessor(ctx, assessorCaller, "emp-1", "", KindAppraisal)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := svc.CreateAssignment(ctx, hrCaller, "ass-1", "emp-1"); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	if _, err := svc.CreateAssessor(ctx, assessorCaller, "emp-1", "", KindAppraisal); err != nil {
		t.Fatalf("create assessor after assignment: %v", err)
	}
}

func TestCreateAssessorIdempotent(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDirectory{})
	ctx := context.Background()

	first, err := svc.CreateAssessor(ctx, assessorCaller, "emp-1", "", KindCompetency)
	if err != nil {
		t.Fatalf("create assessor: %v", err)
	}
	second, err := svc.CreateAssessor(ctx, assessorCaller, "emp-1", "", KindCompetency)
	if err != nil {
		t.Fatalf("repeat create assessor: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the existing instance back, got %s and %s", first.ID, second.ID)
	}
}

func TestSubmitRatingBounds(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDirectory{})
	ctx := context.Background()

	inst, err := svc.CreateSelf(ctx, empCaller, "", KindCompetency)
	if err != nil {
		t.Fatalf("create self: %v", err)
	}

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.SubmitRating(ctx, empCaller, inst.ID, "c1", rating, "")
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("rating %d: expected ErrValidation, got %v", rating, err)
		}
	}
	if len(store.ratings) != 0 {
		t.Fatal("rejected ratings must not persist")
	}

	out, err := svc.SubmitRating(ctx, empCaller, inst.ID, "c1", 3, "solid")
	if err != nil {
		t.Fatalf("submit rating: %v", err)
	}
	entry, ok := out.(RatingEntry)
	if !ok {
		t.Fatalf("expected RatingEntry, got %T", out)
	}
	if entry.Rating != 3 || entry.Comment != "solid" {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	// Resubmitting corrects in place rather than duplicating.
	if _, err := svc.SubmitRating(ctx, empCaller, inst.ID, "c1", 4, ""); err != nil {
		t.Fatalf("resubmit rating: %v", err)
	}
	if len(store.ratings) != 1 {
		t.Fatalf("expected 1 rating, got %d", len(store.ratings))
	}
}

func TestSubmitRatingAfterCompleteRejected(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDirectory{})
	ctx := context.Background()

	inst, err := svc.CreateSelf(ctx, empCaller, "", KindCompetency)
	if err != nil {
		t.Fatalf("create self: %v", err)
	}
	if _, _, err := svc.Complete(ctx, empCaller, inst.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err = svc.SubmitRating(ctx, empCaller, inst.ID, "c1", 3, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestSubmitRatingSharedAppraisalResponse(t *testing.T) {
	store := newMemStore()
	dir := &fakeDirectory{assessors: []string{"ass-1"}}
	svc := newTestService(store, dir)
	ctx := context.Background()

	selfInst, err := svc.CreateSelf(ctx, empCaller, "", KindAppraisal)
	if err != nil {
		t.Fatalf("create self: %v", err)
	}
	if _, err := svc.SubmitRating(ctx, empCaller, selfInst.ID, "q1", 4, "went well"); err != nil {
		t.Fatalf("employee submit: %v", err)
	}

	if _, err := svc.CreateAssignment(ctx, hrCaller, "ass-1", "emp-1"); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	assInst, err := svc.CreateAssessor(ctx, assessorCaller, "emp-1", "", KindAppraisal)
	if err != nil {
		t.Fatalf("create assessor: %v", err)
	}
	if _, err := svc.SubmitRating(ctx, assessorCaller, assInst.ID, "q1", 2, "needs work"); err != nil {
		t.Fatalf("assessor submit: %v", err)
	}

	// Both sides land on the one shared row.
	responses, err := store.ListResponses(ctx, "org-1", "cycle-1", "emp-1")
	if err != nil {
		t.Fatalf("list responses: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("expected 1 shared response, got %d", len(responses))
	}
	resp := responses[0]
	if resp.EmployeeRating == nil || *resp.EmployeeRating != 4 {
		t.Fatalf("unexpected employee side: %+v", resp)
	}
	if resp.AssessorRating == nil || *resp.AssessorRating != 2 {
		t.Fatalf("unexpected assessor side: %+v", resp)
	}
	if resp.EmployeeComment != "went well" || resp.AssessorComment != "needs work" {
		t.Fatalf("unexpected comments: %+v", resp)
	}
}

func TestCrossOrgLooksLikeMissing(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDirectory{})
	ctx := context.Background()

	inst, err := svc.CreateSelf(ctx, empCaller, "", KindCompetency)
	if err != nil {
		t.Fatalf("create self: %v", err)
	}

	outsider := Caller{UserID: "u-x", EmployeeID: "emp-1", OrgID: "org-2", Role: auth.RoleHR}
	if _, err := svc.Start(ctx, outsider, inst.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across orgs, got %v", err)
	}
	if _, _, err := svc.Complete(ctx, outsider, inst.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across orgs, got %v", err)
	}
	if _, _, _, err := svc.Detail(ctx, outsider, inst.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across orgs, got %v", err)
	}
}

func TestInOrgRoleFailureIsForbidden(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, &fakeDirectory{})
	ctx := context.Background()

	inst, err := svc.CreateSelf(ctx, empCaller, "", KindCompetency)
	if err != nil {
		t.Fatalf("create self: %v", err)
	}

	colleague := Caller{UserID: "u-2", EmployeeID: "emp-2", OrgID: "org-1", Role: auth.RoleEmployee}
	if _, err := svc.Start(ctx, colleague, inst.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden in org, got %v", err)
	}
	if _, err := svc.SubmitRating(ctx, colleague, inst.ID, "c1", 3, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden in org, got %v", err)
	}
}

func TestListScopesByRole(t *testing.T) {
	store := newMemStore()
	dir := &fakeDirectory{assessors: []string{"ass-1"}}
	svc := newTestService(store, dir)
	ctx := context.Background()

	mine, err := svc.CreateSelf(ctx, empCaller, "", KindCompetency)
	if err != nil {
		t.Fatalf("create self: %v", err)
	}
	if _, err := svc.CreateSelf(ctx, hrCaller, "emp-2", KindCompetency); err != nil {
		t.Fatalf("create other self: %v", err)
	}
	if _, _, err := svc.Complete(ctx, empCaller, mine.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	all, err := svc.List(ctx, hrCaller, InstanceFilter{})
	if err != nil {
		t.Fatalf("hr list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("hr expected 3 instances, got %d", len(all))
	}

	own, err := svc.List(ctx, empCaller, InstanceFilter{})
	if err != nil {
		t.Fatalf("employee list: %v", err)
	}
	for _, inst := range own {
		if inst.EmployeeID != "emp-1" {
			t.Fatalf("employee listing leaked %+v", inst)
		}
	}
	if len(own) != 2 {
		t.Fatalf("employee expected self + fan-out rows, got %d", len(own))
	}

	visible, err := svc.List(ctx, assessorCaller, InstanceFilter{})
	if err != nil {
		t.Fatalf("assessor list: %v", err)
	}
	// The fanned-out assessor instance; the completed self evaluation needs
	// an assignment to become visible.
	if len(visible) != 1 {
		t.Fatalf("assessor expected 1 instance, got %d", len(visible))
	}
	if visible[0].Type != TypeAssessor || visible[0].AssessorID != "ass-1" {
		t.Fatalf("unexpected assessor listing: %+v", visible[0])
	}

	if _, err := svc.CreateAssignment(ctx, hrCaller, "ass-1", "emp-1"); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	visible, err = svc.List(ctx, assessorCaller, InstanceFilter{})
	if err != nil {
		t.Fatalf("assessor list after assignment: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("assessor expected 2 instances after assignment, got %d", len(visible))
	}
}

func TestReviewFlow(t *testing.T) {
	store := newMemStore()
	dir := &fakeDirectory{assessors: []string{"ass-1"}}
	svc := newTestService(store, dir)
	ctx := context.Background()

	inst, err := svc.CreateSelf(ctx, empCaller, "", KindCompetency)
	if err != nil {
		t.Fatalf("create self: %v", err)
	}

	// Reviewing before completion is a state error, surfaced to HR too.
	if _, err := svc.Review(ctx, hrCaller, inst.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	if _, _, err := svc.Complete(ctx, empCaller, inst.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Employees never review, even their own.
	if _, err := svc.Review(ctx, empCaller, inst.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// Unassigned assessors cannot review the self evaluation.
	if _, err := svc.Review(ctx, assessorCaller, inst.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := svc.CreateAssignment(ctx, hrCaller, "ass-1", "emp-1"); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	reviewed, err := svc.Review(ctx, assessorCaller, inst.ID)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if reviewed.Status != StatusReviewed {
		t.Fatalf("expected reviewed, got %s", reviewed.Status)
	}
}

func TestGapAnalysis(t *testing.T) {
	store := newMemStore()
	dir := &fakeDirectory{competencies: []Dimension{
		{ID: "c1", Name: "Communication"},
		{ID: "c2", Name: "Leadership"},
	}}
	svc := newTestService(store, dir)
	ctx := context.Background()

	store.ratingRows = []RatingRow{
		{DimensionID: "c1", Side: TypeSelf, Rating: 3},
		{DimensionID: "c1", Side: TypeAssessor, Rating: 5},
	}

	rows, err := svc.GapAnalysis(ctx, hrCaller, PopulationFilter{Kind: KindCompetency})
	if err != nil {
		t.Fatalf("gap analysis: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].DimensionID != "c1" || rows[0].Gap != 2 {
		t.Fatalf("unexpected top row: %+v", rows[0])
	}
	if rows[1].Count != 0 {
		t.Fatalf("empty dimension must report zero count: %+v", rows[1])
	}

	_, err = svc.GapAnalysis(ctx, hrCaller, PopulationFilter{Kind: "bogus"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown kind, got %v", err)
	}
}

func TestGapAnalysisInstanceGranularity(t *testing.T) {
	store := newMemStore()
	dir := &fakeDirectory{competencies: []Dimension{{ID: "c1", Name: "Communication"}}}
	svc := newTestService(store, dir)
	ctx := context.Background()

	inst, err := svc.CreateSelf(ctx, empCaller, "", KindCompetency)
	if err != nil {
		t.Fatalf("create self: %v", err)
	}

	if _, err := svc.GapAnalysis(ctx, hrCaller, PopulationFilter{Kind: KindCompetency, InstanceID: inst.ID}); err != nil {
		t.Fatalf("gap analysis: %v", err)
	}

	_, err = svc.GapAnalysis(ctx, hrCaller, PopulationFilter{Kind: KindCompetency, InstanceID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown instance, got %v", err)
	}
}
