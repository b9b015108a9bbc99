package evaluation

import "time"

// Instance is one self- or assessor-side pass through the evaluation workflow
// for one employee. AssessorID is empty exactly when Type is self.
type Instance struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"orgId"`
	CycleID     string     `json:"cycleId"`
	Type        string     `json:"type"`
	Kind        string     `json:"kind"`
	EmployeeID  string     `json:"employeeId"`
	AssessorID  string     `json:"assessorId,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// RatingEntry is a competency rating owned by exactly one instance.
type RatingEntry struct {
	ID           string    `json:"id"`
	InstanceID   string    `json:"instanceId"`
	CompetencyID string    `json:"competencyId"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// QuestionResponse is the shared appraisal comparison record for one employee
// and one question within a cycle. The employee's self instance writes the
// employee columns, assessor instances write the assessor columns.
type QuestionResponse struct {
	ID              string    `json:"id"`
	OrgID           string    `json:"orgId"`
	CycleID         string    `json:"cycleId"`
	EmployeeID      string    `json:"employeeId"`
	QuestionID      string    `json:"questionId"`
	EmployeeRating  *int      `json:"employeeRating,omitempty"`
	EmployeeComment string    `json:"employeeComment,omitempty"`
	AssessorRating  *int      `json:"assessorRating,omitempty"`
	AssessorComment string    `json:"assessorComment,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Assignment scopes which assessor may appraise which employee.
type Assignment struct {
	ID         string    `json:"id"`
	OrgID      string    `json:"orgId"`
	AssessorID string    `json:"assessorId"`
	EmployeeID string    `json:"employeeId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Caller identifies the authenticated principal for access decisions.
type Caller struct {
	UserID     string
	EmployeeID string
	OrgID      string
	Role       string
}

// InstanceFilter narrows listings; zero values mean "no constraint".
type InstanceFilter struct {
	EmployeeID string
	AssessorID string
	Kind       string
	Status     string
	CycleID    string
}

// PopulationFilter selects the completed/reviewed population feeding the gap
// analysis. Exactly one of DepartmentID/JobID/EmployeeID/InstanceID is set for
// the narrower granularities; all empty means whole organization.
type PopulationFilter struct {
	Kind         string
	CycleID      string
	DepartmentID string
	JobID        string
	EmployeeID   string
	InstanceID   string
}

// RatingRow is one rating observation feeding the gap reduction.
type RatingRow struct {
	DimensionID string
	Side        string // self or assessor
	Rating      int
}

// Dimension is a catalogue entry (competency or question) in catalogue order.
type Dimension struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GapRow is the per-dimension gap analysis result. Averages are 0 with a zero
// count when the side has no data; a zero average with Count == 0 means "no
// data", not a low score.
type GapRow struct {
	DimensionID   string  `json:"dimensionId"`
	DimensionName string  `json:"dimensionName"`
	SelfAvg       float64 `json:"selfAvg"`
	AssessorAvg   float64 `json:"assessorAvg"`
	Gap           float64 `json:"gap"`
	SelfCount     int     `json:"selfCount"`
	AssessorCount int     `json:"assessorCount"`
	Count         int     `json:"count"`
}
