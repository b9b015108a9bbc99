package evaluation

import (
	"context"
	"fmt"
	"time"

	"evalhub/internal/domain/auth"
)

// Directory resolves people and catalogues owned by the directory domain.
type Directory interface {
	OrgAssessors(ctx context.Context, orgID string) ([]string, error)
	CompetencyCatalogue(ctx context.Context, orgID string) ([]Dimension, error)
	QuestionCatalogue(ctx context.Context, orgID string) ([]Dimension, error)
}

// CycleSource resolves the open evaluation period for an organization.
type CycleSource interface {
	ActiveCycleID(ctx context.Context, orgID string) (string, error)
}

type Service struct {
	store  StoreAPI
	dir    Directory
	cycles CycleSource
	now    func() time.Time
}

func NewService(store StoreAPI, dir Directory, cycles CycleSource) *Service {
	return &Service{store: store, dir: dir, cycles: cycles, now: time.Now}
}

// CreateSelf opens a pending self evaluation for the employee in the active
// cycle. Employees and assessors may only open their own; HR may open one for
// anyone in the org.
func (s *Service) CreateSelf(ctx context.Context, caller Caller, employeeID, kind string) (Instance, error) {
	if employeeID == "" {
		employeeID = caller.EmployeeID
	}
	if employeeID == "" {
		return Instance{}, fmt.Errorf("%w: employee id required", ErrValidation)
	}
	if err := validKind(kind); err != nil {
		return Instance{}, err
	}
	if caller.Role != auth.RoleHR && employeeID != caller.EmployeeID {
		return Instance{}, fmt.Errorf("%w: cannot open a self evaluation for another employee", ErrForbidden)
	}

	cycleID, err := s.cycles.ActiveCycleID(ctx, caller.OrgID)
	if err != nil {
		return Instance{}, fmt.Errorf("%w: no active evaluation cycle", ErrValidation)
	}

	return s.store.CreateInstance(ctx, Instance{
		OrgID:      caller.OrgID,
		CycleID:    cycleID,
		Type:       TypeSelf,
		Kind:       kind,
		EmployeeID: employeeID,
		Status:     StatusPending,
	})
}

// CreateAssessor opens (or returns the existing) assessor evaluation for the
// given employee. Assessors open their own; for appraisals they must also be
// assigned to the employee.
func (s *Service) CreateAssessor(ctx context.Context, caller Caller, employeeID, assessorID, kind string) (Instance, error) {
	if assessorID == "" {
		assessorID = caller.EmployeeID
	}
	if employeeID == "" || assessorID == "" {
		return Instance{}, fmt.Errorf("%w: employee and assessor ids required", ErrValidation)
	}
	if err := validKind(kind); err != nil {
		return Instance{}, err
	}

	switch caller.Role {
	case auth.RoleHR:
	case auth.RoleAssessor:
		if assessorID != caller.EmployeeID {
			return Instance{}, fmt.Errorf("%w: cannot open an evaluation on behalf of another assessor", ErrForbidden)
		}
		if kind == KindAppraisal {
			assigned, err := s.store.IsAssigned(ctx, caller.OrgID, assessorID, employeeID)
			if err != nil {
				return Instance{}, err
			}
			if !assigned {
				return Instance{}, fmt.Errorf("%w: not assigned to this employee", ErrForbidden)
			}
		}
	default:
		return Instance{}, fmt.Errorf("%w: assessor or hr role required", ErrForbidden)
	}

	cycleID, err := s.cycles.ActiveCycleID(ctx, caller.OrgID)
	if err != nil {
		return Instance{}, fmt.Errorf("%w: no active evaluation cycle", ErrValidation)
	}

	inst, _, err := s.store.CreateAssessorInstanceIfAbsent(ctx, Instance{
		OrgID:      caller.OrgID,
		CycleID:    cycleID,
		Type:       TypeAssessor,
		Kind:       kind,
		EmployeeID: employeeID,
		AssessorID: assessorID,
		Status:     StatusPending,
	})
	return inst, err
}

// Start moves a pending evaluation to in progress. Re-starting an in-progress
// evaluation succeeds without touching StartedAt.
func (s *Service) Start(ctx context.Context, caller Caller, instanceID string) (Instance, error) {
	inst, err := s.store.GetInstance(ctx, caller.OrgID, instanceID)
	if err != nil {
		return Instance{}, err
	}
	if !CanMutate(caller, inst) {
		return Instance{}, fmt.Errorf("%w: cannot start this evaluation", ErrForbidden)
	}
	if err := applyStart(&inst, s.now().UTC()); err != nil {
		return Instance{}, err
	}
	if err := s.store.UpdateInstanceStatus(ctx, inst); err != nil {
		return Instance{}, err
	}
	return inst, nil
}

// Complete marks the evaluation completed and, when a self evaluation crosses
// into completed for the first time, fans out assessor instances inside the
// same transaction. The returned slice holds only the newly created assessor
// instances so the caller can notify them.
func (s *Service) Complete(ctx context.Context, caller Caller, instanceID string) (Instance, []Instance, error) {
	var completed Instance
	var created []Instance
	err := s.store.Transact(ctx, func(tx StoreAPI) error {
		inst, err := tx.GetInstanceForUpdate(ctx, caller.OrgID, instanceID)
		if err != nil {
			return err
		}
		if !CanMutate(caller, inst) {
			return fmt.Errorf("%w: cannot complete this evaluation", ErrForbidden)
		}
		fan := applyComplete(&inst, s.now().UTC())
		if err := tx.UpdateInstanceStatus(ctx, inst); err != nil {
			return err
		}
		if fan {
			created, err = s.fanOut(ctx, tx, inst)
			if err != nil {
				return err
			}
		}
		completed = inst
		return nil
	})
	if err != nil {
		return Instance{}, nil, err
	}
	return completed, created, nil
}

// Review moves a completed evaluation to reviewed.
func (s *Service) Review(ctx context.Context, caller Caller, instanceID string) (Instance, error) {
	inst, err := s.store.GetInstance(ctx, caller.OrgID, instanceID)
	if err != nil {
		return Instance{}, err
	}
	assigned, err := s.assignedTo(ctx, caller, inst)
	if err != nil {
		return Instance{}, err
	}
	if !CanReview(caller, inst, assigned) {
		return Instance{}, fmt.Errorf("%w: cannot review this evaluation", ErrForbidden)
	}
	if err := applyReview(&inst); err != nil {
		return Instance{}, err
	}
	if err := s.store.UpdateInstanceStatus(ctx, inst); err != nil {
		return Instance{}, err
	}
	return inst, nil
}

// SubmitRating records a competency rating or the caller's side of an
// appraisal question response, depending on the instance kind. Writes are
// rejected once the instance is completed.
func (s *Service) SubmitRating(ctx context.Context, caller Caller, instanceID, dimensionID string, rating int, comment string) (any, error) {
	if dimensionID == "" {
		return nil, fmt.Errorf("%w: competency or question id required", ErrValidation)
	}
	if rating < RatingMin || rating > RatingMax {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", ErrValidation, RatingMin, RatingMax)
	}

	inst, err := s.store.GetInstance(ctx, caller.OrgID, instanceID)
	if err != nil {
		return nil, err
	}
	if !CanMutate(caller, inst) {
		return nil, fmt.Errorf("%w: cannot rate this evaluation", ErrForbidden)
	}
	if inst.Status == StatusCompleted || inst.Status == StatusReviewed {
		return nil, fmt.Errorf("%w: evaluation is already %s", ErrInvalidTransition, inst.Status)
	}

	if inst.Kind == KindCompetency {
		return s.store.RecordRating(ctx, caller.OrgID, inst.ID, dimensionID, rating, comment)
	}

	side := SideEmployee
	if inst.Type == TypeAssessor {
		side = SideAssessor
	}
	return s.store.UpsertQuestionResponse(ctx, caller.OrgID, inst.CycleID, inst.EmployeeID, dimensionID, side, rating, comment)
}

// List returns the instances visible to the caller, narrowed by the filter.
func (s *Service) List(ctx context.Context, caller Caller, f InstanceFilter) ([]Instance, error) {
	switch caller.Role {
	case auth.RoleHR:
		return s.store.ListInstances(ctx, caller.OrgID, f)
	case auth.RoleEmployee:
		f.EmployeeID = caller.EmployeeID
		return s.store.ListInstances(ctx, caller.OrgID, f)
	case auth.RoleAssessor:
		return s.store.ListAssessorVisible(ctx, caller.OrgID, caller.EmployeeID, f)
	}
	return nil, fmt.Errorf("%w: unknown role", ErrForbidden)
}

// Detail returns an instance together with its ratings or responses.
func (s *Service) Detail(ctx context.Context, caller Caller, instanceID string) (Instance, []RatingEntry, []QuestionResponse, error) {
	inst, err := s.store.GetInstance(ctx, caller.OrgID, instanceID)
	if err != nil {
		return Instance{}, nil, nil, err
	}
	assigned, err := s.assignedTo(ctx, caller, inst)
	if err != nil {
		return Instance{}, nil, nil, err
	}
	if !CanSee(caller, inst, assigned) {
		return Instance{}, nil, nil, fmt.Errorf("%w: cannot view this evaluation", ErrForbidden)
	}

	if inst.Kind == KindCompetency {
		ratings, err := s.store.ListRatings(ctx, caller.OrgID, inst.ID)
		if err != nil {
			return Instance{}, nil, nil, err
		}
		return inst, ratings, nil, nil
	}

	responses, err := s.store.ListResponses(ctx, caller.OrgID, inst.CycleID, inst.EmployeeID)
	if err != nil {
		return Instance{}, nil, nil, err
	}
	return inst, nil, responses, nil
}

// GapAnalysis reduces the selected completed/reviewed population to
// per-dimension self/assessor averages and gaps.
func (s *Service) GapAnalysis(ctx context.Context, caller Caller, f PopulationFilter) ([]GapRow, error) {
	if err := validKind(f.Kind); err != nil {
		return nil, err
	}
	if f.InstanceID != "" {
		// Instance granularity means "the comparison around this instance":
		// the same employee-and-cycle population the instance belongs to.
		inst, err := s.store.GetInstance(ctx, caller.OrgID, f.InstanceID)
		if err != nil {
			return nil, err
		}
		f.EmployeeID = inst.EmployeeID
		f.CycleID = inst.CycleID
		f.InstanceID = ""
	}

	var catalogue []Dimension
	var err error
	if f.Kind == KindCompetency {
		catalogue, err = s.dir.CompetencyCatalogue(ctx, caller.OrgID)
	} else {
		catalogue, err = s.dir.QuestionCatalogue(ctx, caller.OrgID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.store.RatingRows(ctx, caller.OrgID, f)
	if err != nil {
		return nil, err
	}
	return ComputeGaps(catalogue, rows), nil
}

// CreateAssignment links an assessor to an employee for appraisal scoping.
func (s *Service) CreateAssignment(ctx context.Context, caller Caller, assessorID, employeeID string) (Assignment, error) {
	if assessorID == "" || employeeID == "" {
		return Assignment{}, fmt.Errorf("%w: assessor and employee ids required", ErrValidation)
	}
	return s.store.CreateAssignment(ctx, caller.OrgID, assessorID, employeeID)
}

func (s *Service) DeleteAssignment(ctx context.Context, caller Caller, assignmentID string) error {
	return s.store.DeleteAssignment(ctx, caller.OrgID, assignmentID)
}

func (s *Service) ListAssignments(ctx context.Context, caller Caller, assessorID, employeeID string) ([]Assignment, error) {
	if caller.Role == auth.RoleAssessor {
		assessorID = caller.EmployeeID
	}
	return s.store.ListAssignments(ctx, caller.OrgID, assessorID, employeeID)
}

// assignedTo reports whether an assessor caller is assigned to the instance's
// employee; the lookup only matters for assessor access to self instances.
func (s *Service) assignedTo(ctx context.Context, caller Caller, inst Instance) (bool, error) {
	if caller.Role != auth.RoleAssessor || inst.Type != TypeSelf {
		return false, nil
	}
	return s.store.IsAssigned(ctx, caller.OrgID, caller.EmployeeID, inst.EmployeeID)
}

func validKind(kind string) error {
	switch kind {
	case KindCompetency, KindAppraisal:
		return nil
	}
	return fmt.Errorf("%w: unknown evaluation kind %q", ErrValidation, kind)
}
