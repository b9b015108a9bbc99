package evaluation

import "context"

// StoreAPI is the persistence surface of the evaluation workflow. Every query
// is scoped to one organization; missing rows surface ErrNotFound. The store
// does not police when writes are legal, the service does.
type StoreAPI interface {
	// Transact runs fn against a store bound to one transaction. The complete
	// transition and its fan-out run inside a single Transact call so either
	// everything applies or nothing does.
	Transact(ctx context.Context, fn func(StoreAPI) error) error

	CreateInstance(ctx context.Context, inst Instance) (Instance, error)
	// CreateAssessorInstanceIfAbsent inserts the assessor instance unless one
	// already exists for the same (employee, assessor, kind, cycle), relying
	// on the store's unique constraint. It reports whether a row was created;
	// a duplicate returns the existing instance with created == false.
	CreateAssessorInstanceIfAbsent(ctx context.Context, inst Instance) (Instance, bool, error)
	GetInstance(ctx context.Context, orgID, id string) (Instance, error)
	// GetInstanceForUpdate additionally locks the row for the duration of the
	// surrounding transaction.
	GetInstanceForUpdate(ctx context.Context, orgID, id string) (Instance, error)
	UpdateInstanceStatus(ctx context.Context, inst Instance) error
	ListInstances(ctx context.Context, orgID string, f InstanceFilter) ([]Instance, error)
	// ListAssessorVisible lists the assessor's own assessor instances plus
	// completed/reviewed self instances of employees assigned to them.
	ListAssessorVisible(ctx context.Context, orgID, assessorID string, f InstanceFilter) ([]Instance, error)

	RecordRating(ctx context.Context, orgID, instanceID, competencyID string, rating int, comment string) (RatingEntry, error)
	ListRatings(ctx context.Context, orgID, instanceID string) ([]RatingEntry, error)
	// UpsertQuestionResponse creates the shared appraisal response row on
	// first write and thereafter updates only the given side's columns.
	UpsertQuestionResponse(ctx context.Context, orgID, cycleID, employeeID, questionID, side string, rating int, comment string) (QuestionResponse, error)
	ListResponses(ctx context.Context, orgID, cycleID, employeeID string) ([]QuestionResponse, error)

	CreateAssignment(ctx context.Context, orgID, assessorID, employeeID string) (Assignment, error)
	DeleteAssignment(ctx context.Context, orgID, id string) error
	ListAssignments(ctx context.Context, orgID, assessorID, employeeID string) ([]Assignment, error)
	IsAssigned(ctx context.Context, orgID, assessorID, employeeID string) (bool, error)
	AssignedAssessorIDs(ctx context.Context, orgID, employeeID string) ([]string, error)

	// RatingRows returns the rating observations for the completed/reviewed
	// population selected by the filter.
	RatingRows(ctx context.Context, orgID string, f PopulationFilter) ([]RatingRow, error)
}
