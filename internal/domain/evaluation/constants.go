package evaluation

const (
	TypeSelf     = "self"
	TypeAssessor = "assessor"

	KindCompetency = "competency"
	KindAppraisal  = "appraisal"

	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusReviewed   = "reviewed"

	// Sides of an appraisal question response.
	SideEmployee = "employee"
	SideAssessor = "assessor"

	RatingMin = 1
	RatingMax = 5
)

const (
	GranularityInstance     = "instance"
	GranularityDepartment   = "department"
	GranularityJob          = "job"
	GranularityOrganization = "organization"
)
