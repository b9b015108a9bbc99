package directory

import (
	"context"
	"fmt"
	"strings"

	"evalhub/internal/domain/auth"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) GetEmployee(ctx context.Context, orgID, employeeID string) (Employee, error) {
	return s.store.GetEmployee(ctx, orgID, employeeID)
}

func (s *Service) GetEmployeeByUserID(ctx context.Context, orgID, userID string) (Employee, error) {
	return s.store.GetEmployeeByUserID(ctx, orgID, userID)
}

func (s *Service) ListEmployees(ctx context.Context, orgID, departmentID, jobID string, limit, offset int) ([]Employee, error) {
	return s.store.ListEmployees(ctx, orgID, departmentID, jobID, limit, offset)
}

// CreateEmployee provisions the employee record together with a login in one
// transaction. Role defaults to employee.
func (s *Service) CreateEmployee(ctx context.Context, orgID string, emp Employee, password string) (Employee, error) {
	emp.Email = NormalizeEmail(emp.Email)
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
	if emp.Role == "" {
		emp.Role = auth.RoleEmployee
	}
	if err := ValidateEmployee(emp); err != nil {
		return Employee{}, err
	}
	switch emp.Role {
	case auth.RoleEmployee, auth.RoleAssessor, auth.RoleHR:
	default:
		return Employee{}, fmt.Errorf("%w: unknown role %q", ErrValidation, emp.Role)
	}
	if strings.TrimSpace(password) == "" {
		return Employee{}, fmt.Errorf("%w: password required", ErrValidation)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Employee{}, err
	}
	return s.store.CreateEmployeeWithUser(ctx, orgID, emp, hash)
}

func (s *Service) UpdateEmployee(ctx context.Context, orgID, employeeID string, emp Employee) (Employee, error) {
	emp.Email = NormalizeEmail(emp.Email)
	if err := ValidateEmployee(emp); err != nil {
		return Employee{}, err
	}
	return s.store.UpdateEmployee(ctx, orgID, employeeID, emp)
}

func (s *Service) DeactivateEmployee(ctx context.Context, orgID, employeeID string) error {
	return s.store.SetEmployeeStatus(ctx, orgID, employeeID, EmployeeStatusInactive)
}

// OrgAssessors lists the employee ids of every active assessor in the org.
func (s *Service) OrgAssessors(ctx context.Context, orgID string) ([]string, error) {
	return s.store.OrgAssessors(ctx, orgID)
}

func (s *Service) OrgName(ctx context.Context, orgID string) (string, error) {
	return s.store.OrgName(ctx, orgID)
}

func (s *Service) ListDepartments(ctx context.Context, orgID string) ([]Department, error) {
	return s.store.ListDepartments(ctx, orgID)
}

func (s *Service) CreateDepartment(ctx context.Context, orgID, name string) (Department, error) {
	if strings.TrimSpace(name) == "" {
		return Department{}, fmt.Errorf("%w: department name required", ErrValidation)
	}
	return s.store.CreateDepartment(ctx, orgID, strings.TrimSpace(name))
}

func (s *Service) DeleteDepartment(ctx context.Context, orgID, departmentID string) error {
	inUse, err := s.store.DepartmentHasEmployees(ctx, orgID, departmentID)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("%w: department still has employees", ErrConflict)
	}
	return s.store.DeleteDepartment(ctx, orgID, departmentID)
}

func (s *Service) ListJobs(ctx context.Context, orgID string) ([]Job, error) {
	return s.store.ListJobs(ctx, orgID)
}

func (s *Service) CreateJob(ctx context.Context, orgID, title string) (Job, error) {
	if strings.TrimSpace(title) == "" {
		return Job{}, fmt.Errorf("%w: job title required", ErrValidation)
	}
	return s.store.CreateJob(ctx, orgID, strings.TrimSpace(title))
}

func (s *Service) ListCompetencies(ctx context.Context, orgID string) ([]Competency, error) {
	return s.store.ListCompetencies(ctx, orgID)
}

func (s *Service) CreateCompetency(ctx context.Context, orgID string, comp Competency) (Competency, error) {
	if strings.TrimSpace(comp.Name) == "" {
		return Competency{}, fmt.Errorf("%w: competency name required", ErrValidation)
	}
	return s.store.CreateCompetency(ctx, orgID, comp)
}

func (s *Service) UpdateCompetency(ctx context.Context, orgID, competencyID string, comp Competency) (Competency, error) {
	if strings.TrimSpace(comp.Name) == "" {
		return Competency{}, fmt.Errorf("%w: competency name required", ErrValidation)
	}
	return s.store.UpdateCompetency(ctx, orgID, competencyID, comp)
}

func (s *Service) DeleteCompetency(ctx context.Context, orgID, competencyID string) error {
	inUse, err := s.store.CompetencyHasRatings(ctx, orgID, competencyID)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("%w: competency has recorded ratings", ErrConflict)
	}
	return s.store.DeleteCompetency(ctx, orgID, competencyID)
}

func (s *Service) ListQuestions(ctx context.Context, orgID string) ([]Question, error) {
	return s.store.ListQuestions(ctx, orgID)
}

func (s *Service) CreateQuestion(ctx context.Context, orgID string, q Question) (Question, error) {
	if strings.TrimSpace(q.Text) == "" {
		return Question{}, fmt.Errorf("%w: question text required", ErrValidation)
	}
	return s.store.CreateQuestion(ctx, orgID, q)
}

func (s *Service) DeleteQuestion(ctx context.Context, orgID, questionID string) error {
	inUse, err := s.store.QuestionHasResponses(ctx, orgID, questionID)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("%w: question has recorded responses", ErrConflict)
	}
	return s.store.DeleteQuestion(ctx, orgID, questionID)
}
