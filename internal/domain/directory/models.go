package directory

import "time"

type Employee struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"orgId"`
	UserID       string    `json:"userId"`
	Number       string    `json:"employeeNumber"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	DepartmentID string    `json:"departmentId,omitempty"`
	JobID        string    `json:"jobId,omitempty"`
	ManagerID    string    `json:"managerId,omitempty"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Department struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Job struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Competency is a rated dimension of the competency catalogue. Position fixes
// the catalogue order analytics and tie-breaking rely on.
type Competency struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"orgId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Question is an appraisal questionnaire entry, ordered like competencies.
type Question struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	Text      string    `json:"text"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	EmployeeStatusActive   = "active"
	EmployeeStatusInactive = "inactive"
)
