package cycles

import "time"

const (
	StatusDraft  = "draft"
	StatusActive = "active"
	StatusClosed = "closed"
)

// Cycle is an evaluation period. At most one cycle per organization is active
// at a time; new instances always attach to the active cycle.
type Cycle struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"orgId"`
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
